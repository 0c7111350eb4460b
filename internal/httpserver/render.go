package httpserver

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/stevechez/influencer-portfolio/internal/seo"
	"github.com/stevechez/influencer-portfolio/internal/shot"
)

const (
	layoutGlob  = "layouts/*.tmpl"
	partialGlob = "partials/*.tmpl"
	pageGlob    = "pages/*.tmpl"
	// overlaySet is the page set whose "overlay" template renders fragments.
	overlaySet = "shot"
)

var funcMap = template.FuncMap{
	"jsonld": func(v any) template.JS { return template.JS(seo.JSON(v)) },
	"comma":  func(n int) string { return humanize.Comma(int64(n)) },
	"pct":    func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) },
	"meta":   shotMeta,
	"placeholder": func(s shot.Shot) template.CSS {
		if !strings.HasPrefix(s.BlurPlaceholder, "data:image/") || strings.ContainsAny(s.BlurPlaceholder, `"'()\`) {
			return ""
		}
		return template.CSS(`background-image: url("` + s.BlurPlaceholder + `")`)
	},
	"year": func() int { return time.Now().Year() },
}

// shotMeta is the secondary caption line: dimensions, megapixels, file size
// and age.
func shotMeta(s shot.Shot) string {
	var parts []string
	if s.Width > 0 && s.Height > 0 {
		parts = append(parts,
			humanize.Comma(int64(s.Width))+" × "+humanize.Comma(int64(s.Height)),
			humanize.FtoaWithDigits(s.Megapixels(), 1)+" MP")
	}
	if s.Bytes > 0 {
		parts = append(parts, humanize.Bytes(uint64(s.Bytes)))
	}
	if !s.CreatedAt.IsZero() {
		parts = append(parts, humanize.Time(s.CreatedAt))
	}
	return strings.Join(parts, " · ")
}

// renderer holds one template set per page: the base layout, every partial
// and the page's own "content" definition.
type renderer struct {
	fsys   fs.FS
	logger *zap.Logger

	mu    sync.RWMutex
	pages map[string]*template.Template

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func newRenderer(fsys fs.FS, logger *zap.Logger) (*renderer, error) {
	r := &renderer{fsys: fsys, logger: logger}
	pages, err := parsePages(fsys)
	if err != nil {
		return nil, err
	}
	r.pages = pages
	return r, nil
}

func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	files, err := fs.Glob(fsys, pageGlob)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no page templates match %s", pageGlob)
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), path.Ext(file))
		t, err := template.New(name).Funcs(funcMap).ParseFS(fsys, layoutGlob, partialGlob, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		pages[name] = t
	}
	if _, ok := pages[overlaySet]; !ok {
		return nil, fmt.Errorf("missing page template %q", overlaySet)
	}
	return pages, nil
}

// watch re-parses the templates under dir whenever a file changes. A parse
// failure keeps the previous set.
func (r *renderer) watch(dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, sub := range []string{"layouts", "partials", "pages"} {
		if err := w.Add(filepath.Join(dir, sub)); err != nil {
			_ = w.Close()
			return fmt.Errorf("watch %s: %w", sub, err)
		}
	}
	r.watcher = w
	r.done = make(chan struct{})
	go r.loop()
	return nil
}

func (r *renderer) loop() {
	defer close(r.done)
	for {
		select {
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			pages, err := parsePages(r.fsys)
			if err != nil {
				r.logger.Error("template reload failed", zap.String("file", ev.Name), zap.Error(err))
				continue
			}
			r.mu.Lock()
			r.pages = pages
			r.mu.Unlock()
			r.logger.Info("templates reloaded", zap.String("file", ev.Name))
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("template watcher error", zap.Error(err))
		}
	}
}

// Close stops watching.
func (r *renderer) Close() {
	if r.watcher == nil {
		return
	}
	_ = r.watcher.Close()
	<-r.done
	r.watcher = nil
}

func (r *renderer) lookup(name string) (*template.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.pages[name]
	if !ok {
		return nil, fmt.Errorf("unknown page template %q", name)
	}
	return t, nil
}

// page renders the full document for page.
func (r *renderer) page(w http.ResponseWriter, status int, page string, data any) error {
	t, err := r.lookup(page)
	if err != nil {
		return err
	}
	return execute(w, status, t, "base", data)
}

// fragment renders a named partial on its own, for htmx swaps.
func (r *renderer) fragment(w http.ResponseWriter, status int, name string, data any) error {
	t, err := r.lookup(overlaySet)
	if err != nil {
		return err
	}
	return execute(w, status, t, name, data)
}

func execute(w http.ResponseWriter, status int, t *template.Template, name string, data any) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("execute %s/%s: %w", t.Name(), name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
