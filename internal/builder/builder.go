// internal/builder/builder.go
package builder

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"quire/internal/arena"
	"quire/internal/config"
	"quire/internal/content"
	"quire/internal/errors"
	"quire/internal/library"
	"quire/internal/logging"
	"quire/internal/metrics"
	"quire/internal/render"
	"quire/internal/templates"
	"quire/internal/util"
)

// Site is the build controller. It owns the library and the template engine
// and is driven from a single goroutine: a full build, then one rebuild per
// filesystem event.
type Site struct {
	Layout    config.Layout
	Config    *config.SiteConfig
	Library   *library.Library
	Templates *templates.Engine
	Metrics   metrics.Recorder

	opts Options
}

// New loads the templates of the site at layout. Content is read by Load.
func New(layout config.Layout, cfg *config.SiteConfig, opts Options) (*Site, error) {
	tmpl, err := templates.Load(layout.Templates)
	if err != nil {
		return nil, err
	}
	s := &Site{
		Layout:    layout,
		Config:    cfg,
		Library:   library.New(cfg, layout.Content),
		Templates: tmpl,
		Metrics:   metrics.NoopRecorder{},
		opts:      opts,
	}
	tmpl.Bind(s.Library, cfg)
	return s, nil
}

// Load parses every content file, links the library, fills the permalink
// table and renders all markdown.
func (s *Site) Load(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	lib := library.New(s.Config, s.Layout.Content)

	err := filepath.WalkDir(s.Layout.Content, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.IOError(path, err).WithContext("op", "walk").Build()
		}
		if d.IsDir() || filepath.Ext(path) != ".md" || util.IsTempFile(path) {
			return nil
		}
		if filepath.Base(path) == content.SectionName+".md" {
			sec, err := content.SectionFromFile(s.Layout.Content, path, s.Config)
			if err != nil {
				return err
			}
			if sec.IsDraft() && !s.opts.Drafts {
				logger.Debug("Skipping draft section", "path", path)
				return nil
			}
			lib.InsertSection(sec)
			return nil
		}
		page, err := content.PageFromFile(s.Layout.Content, path, s.Config)
		if err != nil {
			return err
		}
		if page.IsDraft() && !s.opts.Drafts {
			logger.Debug("Skipping draft page", "path", path)
			return nil
		}
		lib.InsertPage(page)
		return nil
	})
	if err != nil {
		return err
	}

	lib.Link()
	if err := lib.BuildPermalinks(); err != nil {
		return err
	}
	s.Library = lib
	s.Templates.Bind(lib, s.Config)

	pages, sections := lib.Len()
	logger.Debug("Loaded content", "pages", pages, "sections", sections)
	_, err = s.renderAllMarkdown()
	return err
}

// Build writes the whole site into the output directory. Load must have run.
func (s *Site) Build(ctx context.Context) (*Report, error) {
	logger := logging.FromContext(ctx)
	progress := logging.Start(logger)
	s.Config.StampBuild()

	if err := s.prepareOutput(logger); err != nil {
		return nil, err
	}

	rep := &Report{Path: s.Layout.Root}
	rendered, err := s.renderAll(ctx)
	rep.Rendered = rendered
	if err != nil {
		return rep, err
	}

	copied, err := s.copyStatic()
	rep.Copied += copied
	if err != nil {
		return rep, err
	}
	copied, err = s.copyAllContentAssets()
	rep.Copied += copied
	if err != nil {
		return rep, err
	}
	if err := s.writeSitemap(); err != nil {
		return rep, err
	}

	s.Metrics.ObserveBuildDuration(progress.Elapsed())
	s.Metrics.AddRendered(rep.Rendered)
	s.Metrics.AddCopied(rep.Copied)
	pages, sections := s.Library.Len()
	progress.Done("Site built", "pages", pages, "sections", sections, "copied", rep.Copied)
	return rep, nil
}

// prepareOutput creates the output directory, emptying it first when asked.
func (s *Site) prepareOutput(logger *log.Logger) error {
	out := s.Layout.Output
	if err := os.MkdirAll(out, 0o755); err != nil {
		return errors.IOError(out, err).WithContext("op", "mkdir").Build()
	}
	if !s.opts.CleanDestination {
		return nil
	}
	logger.Info("Cleaning destination directory", "path", out)
	entries, err := os.ReadDir(out)
	if err != nil {
		return errors.IOError(out, err).WithContext("op", "clean").Build()
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(out, entry.Name())); err != nil {
			return errors.IOError(out, err).WithContext("op", "clean").Build()
		}
	}
	return nil
}

func (s *Site) renderContext(scope map[string]any) *render.Context {
	return &render.Context{
		Permalinks: s.Library.Permalinks(),
		Unsafe:     s.opts.Unsafe || s.Config.UnsafeHTML,
		Shortcodes: s.shortcodes(scope),
	}
}

// shortcodes renders {{< name(args) >}} through templates/shortcodes/<name>.html.
// The template sees its arguments at the top level next to config and the
// page or section being rendered.
func (s *Site) shortcodes(scope map[string]any) render.ShortcodeFunc {
	return func(name string, args map[string]any) (string, error) {
		data := map[string]any{"config": s.Config}
		for k, v := range scope {
			data[k] = v
		}
		for k, v := range args {
			data[k] = v
		}
		return s.Templates.Render("shortcodes/"+name+".html", data)
	}
}

func (s *Site) renderPageMarkdown(k arena.Key) error {
	p, ok := s.Library.Page(k)
	if !ok {
		return nil
	}
	ctx := s.renderContext(map[string]any{"page": p.BasicView()})
	ctx.InsertAnchor = s.Library.AnchorModeFor(k)
	return p.RenderMarkdown(ctx)
}

func (s *Site) renderSectionMarkdown(k arena.Key) error {
	sec, ok := s.Library.Section(k)
	if !ok {
		return nil
	}
	return sec.RenderMarkdown(s.renderContext(map[string]any{"section": sec.BasicView()}))
}

// renderAllMarkdown renders every section then every page. It returns how
// many bodies were rendered.
func (s *Site) renderAllMarkdown() (int, error) {
	n := 0
	for _, k := range s.Library.SectionKeys() {
		if err := s.renderSectionMarkdown(k); err != nil {
			return n, err
		}
		n++
	}
	for _, k := range s.Library.PageKeys() {
		if err := s.renderPageMarkdown(k); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// observe reports a rebuild to the metrics recorder.
func (s *Site) observe(rep Report, start time.Time, err error) {
	s.Metrics.ObserveRebuild(rep.Kind.String(), time.Since(start), err == nil)
	if err == nil {
		s.Metrics.AddRendered(rep.Rendered)
		s.Metrics.AddCopied(rep.Copied)
	}
}
