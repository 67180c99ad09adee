package supplier

import (
	"log/slog"
	"os"
	"path/filepath"
)

// Diagnostics persists raw page markup (and screenshots when available) at
// failure points, named by pipeline stage. The artifacts are for human
// triage only; nothing reads them back programmatically, so saving is
// best-effort and never fails the caller.
type Diagnostics struct {
	dir    string
	logger *slog.Logger
}

func NewDiagnostics(dir string, logger *slog.Logger) *Diagnostics {
	return &Diagnostics{
		dir:    dir,
		logger: logger.With("component", "diagnostics"),
	}
}

// SaveHTML writes the page markup as <stage>.html.
func (d *Diagnostics) SaveHTML(stage, html string) {
	d.write(stage+".html", []byte(html))
}

// SaveScreenshot writes a full-page screenshot as <stage>.png.
func (d *Diagnostics) SaveScreenshot(stage string, png []byte) {
	if len(png) == 0 {
		return
	}
	d.write(stage+".png", png)
}

func (d *Diagnostics) write(name string, data []byte) {
	if d == nil || d.dir == "" {
		return
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		d.logger.Warn("cannot create debug dir", "dir", d.dir, "error", err)
		return
	}
	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		d.logger.Warn("cannot write debug artifact", "path", path, "error", err)
		return
	}
	d.logger.Info("saved debug artifact", "path", path)
}
