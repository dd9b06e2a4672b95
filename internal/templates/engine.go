// Package templates renders pages and sections through html/template. Every
// .html file below the templates directory is one template, named by its
// slash-separated path, so templates can include each other.
package templates

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"quire/internal/config"
	"quire/internal/content"
	"quire/internal/errors"
	"quire/internal/render"
)

// Lookup gives templates read access to the site being built.
type Lookup interface {
	Permalinks() map[string]string
	PageViewByRelative(relative string) (content.PageView, bool)
	SectionViewByRelative(relative string) (content.SectionView, bool)
}

// Engine holds the parsed template set.
type Engine struct {
	dir string

	mu     sync.RWMutex
	set    *template.Template
	lookup Lookup
	cfg    *config.SiteConfig
}

// Load parses every template below dir. A missing directory yields an empty
// engine.
func Load(dir string) (*Engine, error) {
	e := &Engine{dir: dir}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload parses the templates directory again, replacing the current set
// only when every file parses.
func (e *Engine) Reload() error {
	set := template.New("").Funcs(e.funcs())
	err := filepath.WalkDir(e.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == e.dir {
				return filepath.SkipDir
			}
			return errors.IOError(path, err).WithContext("op", "walk").Build()
		}
		if d.IsDir() || filepath.Ext(path) != ".html" {
			return nil
		}
		rel, err := filepath.Rel(e.dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.IOError(path, err).WithContext("op", "read").Build()
		}
		if _, err := set.New(filepath.ToSlash(rel)).Parse(string(data)); err != nil {
			return errors.TemplateError(path, err).WithContext("op", "parse").Build()
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.set = set
	e.mu.Unlock()
	return nil
}

// Bind points the template functions at a site. It must not be called while
// a render is in progress.
func (e *Engine) Bind(lookup Lookup, cfg *config.SiteConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lookup = lookup
	e.cfg = cfg
}

// Has reports whether a template named name exists.
func (e *Engine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.set.Lookup(name) != nil
}

// Render executes template name with the context map ctx.
func (e *Engine) Render(name string, ctx map[string]any) (string, error) {
	e.mu.RLock()
	t := e.set.Lookup(name)
	e.mu.RUnlock()
	if t == nil {
		return "", errors.TemplateError(name, fmt.Errorf("template %q not found", name)).Build()
	}
	var sb strings.Builder
	if err := t.Execute(&sb, ctx); err != nil {
		return "", errors.TemplateError(name, err).Build()
	}
	return sb.String(), nil
}

func (e *Engine) funcs() template.FuncMap {
	return template.FuncMap{
		"getURL":     e.getURL,
		"getPage":    e.getPage,
		"getPages":   e.getPages,
		"getSection": e.getSection,
		"dict":       dict,
		"safe":       func(s string) template.HTML { return template.HTML(s) },
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
	}
}

// dict builds a map from alternating keys and values so partials can be
// called with more than one argument.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict needs an even number of arguments, got %d", len(pairs))
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

func (e *Engine) bound() (Lookup, *config.SiteConfig, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.lookup == nil || e.cfg == nil {
		return nil, nil, fmt.Errorf("templates are not bound to a site")
	}
	return e.lookup, e.cfg, nil
}

// getURL resolves `./` internal links through the permalink table and turns
// anything else into a permalink. An optional true argument appends the
// build timestamp as a cache buster.
func (e *Engine) getURL(path string, cachebust ...bool) (string, error) {
	lookup, cfg, err := e.bound()
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(path, render.InternalLinkPrefix) {
		url, err := render.ResolveInternalLink(path, lookup.Permalinks())
		if err != nil {
			return "", fmt.Errorf("could not resolve URL for link %q", path)
		}
		return url, nil
	}
	permalink := cfg.MakePermalink(path)
	if len(cachebust) > 0 && cachebust[0] {
		permalink = fmt.Sprintf("%s?t=%d", permalink, cfg.BuildTimestamp)
	}
	return permalink, nil
}

func (e *Engine) getPage(relative string) (content.PageView, error) {
	lookup, _, err := e.bound()
	if err != nil {
		return content.PageView{}, err
	}
	v, ok := lookup.PageViewByRelative(relative)
	if !ok {
		return content.PageView{}, fmt.Errorf("page %q not found", relative)
	}
	return v, nil
}

func (e *Engine) getPages(relatives ...string) ([]content.PageView, error) {
	views := make([]content.PageView, 0, len(relatives))
	for _, rel := range relatives {
		v, err := e.getPage(rel)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (e *Engine) getSection(relative string) (content.SectionView, error) {
	lookup, _, err := e.bound()
	if err != nil {
		return content.SectionView{}, err
	}
	v, ok := lookup.SectionViewByRelative(relative)
	if !ok {
		return content.SectionView{}, fmt.Errorf("section %q not found", relative)
	}
	return v, nil
}
