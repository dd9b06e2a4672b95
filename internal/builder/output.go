package builder

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"quire/internal/arena"
	"quire/internal/assets"
	"quire/internal/errors"
	"quire/internal/library"
)

// renderAll writes every section and page through its template.
func (s *Site) renderAll(ctx context.Context) (int, error) {
	return s.renderKeys(ctx, library.Changes{
		Pages:    s.Library.PageKeys(),
		Sections: s.Library.SectionKeys(),
	})
}

// renderKeys writes the pages and sections listed in ch concurrently. Keys
// that no longer resolve are skipped.
func (s *Site) renderKeys(ctx context.Context, ch library.Changes) (int, error) {
	var written atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, k := range ch.Sections {
		k := k
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := s.writeSection(k)
			if ok {
				written.Add(1)
			}
			return err
		})
	}
	for _, k := range ch.Pages {
		k := k
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := s.writePage(k)
			if ok {
				written.Add(1)
			}
			return err
		})
	}
	err := g.Wait()
	return int(written.Load()), err
}

func (s *Site) writePage(k arena.Key) (bool, error) {
	p, ok := s.Library.Page(k)
	if !ok {
		return false, nil
	}
	view, _ := s.Library.PageView(k)
	html, err := s.Templates.Render(p.TemplateName(), map[string]any{
		"config":       s.Config,
		"page":         view,
		"current_url":  p.Permalink,
		"current_path": "/" + p.Path,
	})
	if err != nil {
		return false, errors.TemplateError(p.File.Path, err).Build()
	}
	return true, writeFile(s.outputFor(p.Path), html)
}

func (s *Site) writeSection(k arena.Key) (bool, error) {
	sec, ok := s.Library.Section(k)
	if !ok {
		return false, nil
	}
	view, _ := s.Library.SectionView(k)
	currentPath := "/" + sec.Path
	if sec.IsRoot() {
		currentPath = "/"
	}
	html, err := s.Templates.Render(sec.TemplateName(), map[string]any{
		"config":       s.Config,
		"section":      view,
		"current_url":  sec.Permalink,
		"current_path": currentPath,
	})
	if err != nil {
		return false, errors.TemplateError(sec.File.Path, err).Build()
	}
	return true, writeFile(s.outputFor(sec.Path), html)
}

// outputFor returns the index.html written for a site path.
func (s *Site) outputFor(path string) string {
	return filepath.Join(s.Layout.Output, filepath.FromSlash(path), "index.html")
}

// removeOutput deletes the index.html of a site path that no longer exists.
func (s *Site) removeOutput(path string) error {
	if path == "" || path == "/" {
		return nil
	}
	target := s.outputFor(path)
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return errors.IOError(target, err).WithContext("op", "remove").Build()
	}
	return nil
}

// removeOutputs deletes the index.html of a removed entity and the copies of
// its assets.
func (s *Site) removeOutputs(path string, files []string) error {
	if err := s.removeOutput(path); err != nil {
		return err
	}
	return s.removeCopiedAssets(path, files)
}

func (s *Site) removeCopiedAssets(path string, files []string) error {
	dir := filepath.Join(s.Layout.Output, filepath.FromSlash(path))
	for _, src := range files {
		target := filepath.Join(dir, filepath.Base(src))
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return errors.IOError(target, err).WithContext("op", "remove").Build()
		}
	}
	return nil
}

func writeFile(path, data string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.IOError(path, err).WithContext("op", "mkdir").Build()
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return errors.IOError(path, err).WithContext("op", "write").Build()
	}
	return nil
}

func (s *Site) staticOptions() assets.Options {
	return assets.Options{HardLink: s.Config.HardLinkStatic, OptimizePNG: s.Config.OptimizePNG}
}

func (s *Site) assetOptions() assets.Options {
	return assets.Options{OptimizePNG: s.Config.OptimizePNG}
}

// copyStatic mirrors the static directory into the output root. A site
// without one copies nothing.
func (s *Site) copyStatic() (int, error) {
	if _, err := os.Stat(s.Layout.Static); os.IsNotExist(err) {
		return 0, nil
	}
	return assets.CopyDirectory(s.Layout.Static, s.Layout.Output, s.staticOptions())
}

// copyAssets copies files colocated with a page or section next to its output.
func (s *Site) copyAssets(path string, files []string) (int, error) {
	n := 0
	dir := filepath.Join(s.Layout.Output, filepath.FromSlash(path))
	for _, src := range files {
		wrote, err := assets.CopyIfNeeded(src, filepath.Join(dir, filepath.Base(src)), s.assetOptions())
		if err != nil {
			return n, err
		}
		if wrote {
			n++
		}
	}
	return n, nil
}

func (s *Site) copyPageAssets(k arena.Key) (int, error) {
	p, ok := s.Library.Page(k)
	if !ok {
		return 0, nil
	}
	return s.copyAssets(p.Path, p.Assets)
}

func (s *Site) copySectionAssets(k arena.Key) (int, error) {
	sec, ok := s.Library.Section(k)
	if !ok {
		return 0, nil
	}
	return s.copyAssets(sec.Path, sec.Assets)
}

func (s *Site) copyAllContentAssets() (int, error) {
	total := 0
	for _, k := range s.Library.SectionKeys() {
		n, err := s.copySectionAssets(k)
		total += n
		if err != nil {
			return total, err
		}
	}
	for _, k := range s.Library.PageKeys() {
		n, err := s.copyPageAssets(k)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// writeSitemap writes sitemap.xml listing every section and page permalink.
func (s *Site) writeSitemap() error {
	if !s.Config.SitemapEnabled() {
		return nil
	}
	set := sitemapURLSet{Xmlns: sitemapNamespace}
	for _, k := range s.Library.SectionKeys() {
		if sec, ok := s.Library.Section(k); ok {
			set.URLs = append(set.URLs, sitemapURL{Loc: sec.Permalink})
		}
	}
	for _, k := range s.Library.PageKeys() {
		p, ok := s.Library.Page(k)
		if !ok {
			continue
		}
		u := sitemapURL{Loc: p.Permalink}
		if p.Meta.Date != nil {
			u.LastMod = p.Meta.Date.Format("2006-01-02")
		}
		set.URLs = append(set.URLs, u)
	}

	data, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "could not encode sitemap").Build()
	}
	return writeFile(filepath.Join(s.Layout.Output, "sitemap.xml"), xml.Header+string(data)+"\n")
}
