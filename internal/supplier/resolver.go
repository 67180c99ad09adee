package supplier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"partsync/internal/models"
	"partsync/internal/parser"
	"partsync/internal/ratelimit"
)

// NavWait selects how long a navigation blocks before control returns.
type NavWait int

const (
	NavWaitDOMContentLoaded NavWait = iota
	// NavWaitCommit returns as soon as the response commits, before page
	// resources finish loading. Used for the heavy parts pages.
	NavWaitCommit
)

// Pager is the one page the session drives. The resolver depends on this
// interface rather than on playwright so the state machine can be exercised
// against canned HTML.
type Pager interface {
	Navigate(ctx context.Context, url string, wait NavWait) error
	Content() (string, error)
	BodyText() (string, error)
	WaitForAny(selector string, timeout time.Duration) error
	Screenshot() ([]byte, error)
	URL() string
}

// detailWaitSelector is what FetchFirstOffer waits for: either an
// availability block or the brand/number display elements.
const detailWaitSelector = parser.OfferBlockSelector + ", .article-brand, .article-number"

// Resolver drives the search/detail/parts flow against the supplier portal:
// it turns a raw part code into a canonical PartRef and a detail page into a
// first-warehouse offer. One resolution at a time, strictly sequential.
type Resolver struct {
	pager       Pager
	pacer       ratelimit.Pacer
	diag        *Diagnostics
	logger      *slog.Logger
	baseURL     string
	waitTimeout time.Duration
}

func NewResolver(pager Pager, pacer ratelimit.Pacer, diag *Diagnostics, logger *slog.Logger, baseURL string, waitTimeout time.Duration) *Resolver {
	if waitTimeout <= 0 {
		waitTimeout = 120 * time.Second
	}
	return &Resolver{
		pager:       pager,
		pacer:       pacer,
		diag:        diag,
		logger:      logger.With("component", "resolver"),
		baseURL:     strings.TrimRight(baseURL, "/"),
		waitTimeout: waitTimeout,
	}
}

// DetailURL derives the canonical detail page address from a brand/number
// pair. The brand may contain spaces or ampersands, so both segments are
// path-escaped. This is the only place such URLs are constructed.
func DetailURL(baseURL, brand, number string) string {
	return strings.TrimRight(baseURL, "/") + "/parts/" + url.PathEscape(brand) + "/" + url.PathEscape(number)
}

// EnsureAuthenticated is the pre-flight check run once per session: it loads
// the portal root and fails fast with ErrAccessDenied if the prepared
// session material no longer holds, before any part code is spent on it.
func (r *Resolver) EnsureAuthenticated(ctx context.Context) error {
	if err := r.pager.Navigate(ctx, r.baseURL+"/", NavWaitDOMContentLoaded); err != nil {
		return err
	}
	if err := r.pacer.Wait(ctx); err != nil {
		return err
	}
	return r.checkAccess("guest_mode")
}

// Resolve turns a part code into a PartRef. It tries the code as given and,
// if different, the separator-stripped spelling, in that order and at most
// twice. Guest mode aborts immediately and is never retried.
func (r *Resolver) Resolve(ctx context.Context, partCode string) (models.PartRef, error) {
	variants := searchVariants(partCode)

	var lastErr error
	for _, variant := range variants {
		ref, err := r.attempt(ctx, variant)
		if err == nil {
			return ref, nil
		}
		if errors.Is(err, ErrAccessDenied) || ctx.Err() != nil {
			return models.PartRef{}, err
		}
		if !errors.Is(err, errNoMatch) {
			lastErr = err
		}
		r.logger.Info("search variant missed", "pcode", partCode, "variant", variant)
	}

	r.saveCurrentPage("search_unexpected")
	return models.PartRef{}, &ResolutionError{PartCode: partCode, Variants: variants, Err: lastErr}
}

// attempt runs one full search pass for a single spelling variant.
func (r *Resolver) attempt(ctx context.Context, variant string) (models.PartRef, error) {
	searchURL := r.baseURL + "/search?pcode=" + url.QueryEscape(variant) + "&whCode="
	r.logger.Info("searching", "variant", variant)

	if err := r.pager.Navigate(ctx, searchURL, NavWaitDOMContentLoaded); err != nil {
		return models.PartRef{}, err
	}
	if err := r.pacer.Wait(ctx); err != nil {
		return models.PartRef{}, err
	}
	if err := r.checkAccess("search_guest_mode"); err != nil {
		return models.PartRef{}, err
	}

	html, err := r.pager.Content()
	if err != nil {
		return models.PartRef{}, fmt.Errorf("reading search page: %w", err)
	}

	switch outcome := parser.ClassifySearch(html, variant).(type) {
	case parser.DirectHit:
		ref := models.PartRef{
			Brand:     outcome.Brand,
			Number:    outcome.Number,
			DetailURL: DetailURL(r.baseURL, outcome.Brand, outcome.Number),
		}
		r.logger.Info("direct hit", "brand", ref.Brand, "number", ref.Number)
		return ref, nil

	case parser.ListHit:
		return r.followDetail(ctx, r.baseURL+outcome.DetailPath)

	default:
		// Expected, non-exceptional: no diagnostics for a plain miss.
		return models.PartRef{}, errNoMatch
	}
}

// followDetail is the second navigation step after a ListHit: the first
// results row links to a brand+code page that should expose the product
// title block.
func (r *Resolver) followDetail(ctx context.Context, detailURL string) (models.PartRef, error) {
	r.logger.Info("list hit, following detail", "url", detailURL)

	if err := r.pager.Navigate(ctx, detailURL, NavWaitDOMContentLoaded); err != nil {
		return models.PartRef{}, err
	}
	if err := r.pacer.Wait(ctx); err != nil {
		return models.PartRef{}, err
	}
	if err := r.checkAccess("search_detail_guest_mode"); err != nil {
		return models.PartRef{}, err
	}

	html, err := r.pager.Content()
	if err != nil {
		return models.PartRef{}, fmt.Errorf("reading search detail page: %w", err)
	}

	brand, number, ok := parser.ParseDetailRef(html)
	if !ok {
		r.diag.SaveHTML("search_detail_unexpected", html)
		return models.PartRef{}, fmt.Errorf("no product title block at %s", detailURL)
	}

	ref := models.PartRef{
		Brand:     brand,
		Number:    number,
		DetailURL: DetailURL(r.baseURL, brand, number),
	}
	r.logger.Info("resolved via detail", "brand", brand, "number", number)
	return ref, nil
}

// FetchFirstOffer opens a detail page and extracts the first warehouse
// block in document order. Brand/number are re-extracted from the detail
// page even when already known from resolution: the detail page is the
// authoritative source. A page with no availability blocks yields a nil
// offer, which is a valid result, not an error.
func (r *Resolver) FetchFirstOffer(ctx context.Context, detailURL string) (brand, number string, offer *models.Offer, err error) {
	if err := r.pager.Navigate(ctx, detailURL, NavWaitCommit); err != nil {
		return "", "", nil, err
	}
	if err := r.pacer.Wait(ctx); err != nil {
		return "", "", nil, err
	}
	if err := r.checkAccess("parts_guest_mode"); err != nil {
		return "", "", nil, err
	}

	if err := r.pager.WaitForAny(detailWaitSelector, r.waitTimeout); err != nil {
		if shot, serr := r.pager.Screenshot(); serr == nil {
			r.diag.SaveScreenshot("parts_timeout", shot)
		}
		r.saveCurrentPage("parts_timeout")
		return "", "", nil, fmt.Errorf("%w: %s", ErrPageTimeout, detailURL)
	}

	html, err := r.pager.Content()
	if err != nil {
		return "", "", nil, fmt.Errorf("reading parts page: %w", err)
	}

	brand, number = parser.ExtractPartInfo(html)
	offer = parser.FirstOffer(html)
	if offer == nil {
		// Absence of stock is frequent and expected; the artifact is kept
		// for auditing, the caller decides whether it is actionable.
		r.diag.SaveHTML("parts_no_offers", html)
		r.logger.Info("no offers on parts page", "url", detailURL)
		return brand, number, nil, nil
	}

	r.logger.Info("first offer extracted",
		"warehouse", offer.Warehouse, "qty", offer.Qty, "price", offer.PriceRub)
	return brand, number, offer, nil
}

// Snapshot runs one full resolution+extraction cycle. When the caller
// already knows the detail URL, resolution is skipped entirely.
func (r *Resolver) Snapshot(ctx context.Context, partCode, knownDetailURL string) (models.Snapshot, error) {
	ref := models.PartRef{DetailURL: knownDetailURL}
	if ref.DetailURL == "" {
		var err error
		ref, err = r.Resolve(ctx, partCode)
		if err != nil {
			return models.Snapshot{}, err
		}
	}

	brand, number, offer, err := r.FetchFirstOffer(ctx, ref.DetailURL)
	if err != nil {
		return models.Snapshot{}, err
	}
	if brand == "" {
		brand = ref.Brand
	}
	if number == "" {
		number = ref.Number
	}

	return models.Snapshot{
		PartCode:  partCode,
		Brand:     brand,
		Number:    number,
		DetailURL: ref.DetailURL,
		Offer:     offer,
		FetchedAt: time.Now(),
	}, nil
}

// checkAccess inspects the currently loaded page for the guest-mode banner
// and, when present, saves the markup under the given stage name and fails
// with ErrAccessDenied.
func (r *Resolver) checkAccess(stage string) error {
	body, err := r.pager.BodyText()
	if err != nil {
		return fmt.Errorf("reading page body: %w", err)
	}
	if !parser.IsAccessDenied(body) {
		return nil
	}
	r.saveCurrentPage(stage)
	return fmt.Errorf("%w (stage %s)", ErrAccessDenied, stage)
}

func (r *Resolver) saveCurrentPage(stage string) {
	if html, err := r.pager.Content(); err == nil {
		r.diag.SaveHTML(stage, html)
	}
}

// searchVariants builds the ordered spelling variants for one part code:
// the code as given, then the separator-stripped form if different.
func searchVariants(code string) []string {
	variants := []string{code}
	stripped := strings.NewReplacer("-", "", " ", "").Replace(code)
	if stripped != code {
		variants = append(variants, stripped)
	}
	return variants
}
