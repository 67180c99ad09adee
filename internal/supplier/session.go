package supplier

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"
)

// SessionOptions configures one scoped browser acquisition. Exactly one of
// StatePath (replay of a previously captured authenticated storage state) or
// ProfileDir (persistent on-disk profile that retains cookies across runs)
// must be set. Both are prepared out-of-band by a manual login; the session
// never authenticates by itself.
type SessionOptions struct {
	StatePath  string
	ProfileDir string
	Headless   bool
	NavTimeout time.Duration
	UserAgent  string
	Locale     string
}

func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		Headless:   true,
		NavTimeout: 120 * time.Second,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122 Safari/537.36",
		Locale: "ru-RU",
	}
}

// Session owns one browser context and one page for the whole duration of a
// batch run. The engine never opens concurrent tabs; all navigation goes
// through the single page. Close releases everything on every exit path.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	opts    SessionOptions
	logger  *slog.Logger
}

// OpenSession acquires the browsing session. Only one session should be
// active per process; nested acquisition is not supported.
func OpenSession(opts SessionOptions, logger *slog.Logger) (*Session, error) {
	if opts.StatePath == "" && opts.ProfileDir == "" {
		return nil, fmt.Errorf("session: either a storage-state path or a profile dir is required")
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = DefaultSessionOptions().NavTimeout
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	s := &Session{
		pw:     pw,
		opts:   opts,
		logger: logger.With("component", "session"),
	}

	if opts.ProfileDir != "" {
		ctx, err := pw.Chromium.LaunchPersistentContext(opts.ProfileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless:  playwright.Bool(opts.Headless),
			Locale:    playwright.String(opts.Locale),
			UserAgent: playwright.String(opts.UserAgent),
		})
		if err != nil {
			pw.Stop()
			return nil, fmt.Errorf("failed to open persistent profile %s: %w", opts.ProfileDir, err)
		}
		s.context = ctx
		s.logger.Info("session opened", "mode", "profile", "dir", opts.ProfileDir)
	} else {
		st, err := os.Stat(opts.StatePath)
		if err != nil {
			pw.Stop()
			return nil, fmt.Errorf("storage state file not found: %s: %w", opts.StatePath, err)
		}

		browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
		})
		if err != nil {
			pw.Stop()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		ctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
			StorageStatePath: playwright.String(opts.StatePath),
			Locale:           playwright.String(opts.Locale),
			UserAgent:        playwright.String(opts.UserAgent),
		})
		if err != nil {
			browser.Close()
			pw.Stop()
			return nil, fmt.Errorf("failed to create browser context: %w", err)
		}
		s.browser = browser
		s.context = ctx
		s.logger.Info("session opened", "mode", "state", "path", opts.StatePath,
			"size", st.Size(), "mtime", st.ModTime().Unix())
	}

	page, err := s.context.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.NavTimeout.Milliseconds()))
	s.page = page

	return s, nil
}

func (s *Session) Close() error {
	var errs []error

	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close page: %w", err))
		}
	}
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

// Navigate loads url on the session's single page. Playwright calls do not
// take a context, so cancellation is checked at the navigation boundary.
func (s *Session) Navigate(ctx context.Context, url string, wait NavWait) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	waitUntil := playwright.WaitUntilStateDomcontentloaded
	if wait == NavWaitCommit {
		// commit avoids hanging on heavy page resources
		waitUntil = playwright.WaitUntilStateCommit
	}

	s.logger.Debug("navigating", "url", url)
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: waitUntil,
		Timeout:   playwright.Float(float64(s.opts.NavTimeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (s *Session) Content() (string, error) {
	return s.page.Content()
}

func (s *Session) BodyText() (string, error) {
	return s.page.Locator("body").InnerText(playwright.LocatorInnerTextOptions{
		Timeout: playwright.Float(2000),
	})
}

func (s *Session) WaitForAny(selector string, timeout time.Duration) error {
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("waiting for %q: %w", selector, err)
	}
	return nil
}

func (s *Session) Screenshot() ([]byte, error) {
	return s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
}

func (s *Session) URL() string {
	return s.page.URL()
}
