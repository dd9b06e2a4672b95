package content

import (
	"path/filepath"
	"strings"

	"quire/internal/arena"
	"quire/internal/config"
	"quire/internal/frontmatter"
	"quire/internal/render"
	"quire/internal/util"
)

// DefaultPageTemplate renders a page without a template override.
const DefaultPageTemplate = "page.html"

// Page is a single piece of content, such as a blog post.
type Page struct {
	File FileInfo
	Meta frontmatter.PageFrontMatter
	// RawContent is the markdown body below the front matter.
	RawContent string
	// Assets are the non-markdown files next to an index page.
	Assets []string

	Slug       string
	Path       string
	Components []string
	Permalink  string

	Content    string
	Summary    string
	HasSummary bool
	TOC        []render.Header

	WordCount   int
	ReadingTime int

	// Parent is the section listing this page.
	Parent arena.Key
	// Earlier and Later link the date ordering, newest first.
	Earlier, Later arena.Key
	// Lighter and Heavier link the weight ordering, lightest first.
	Lighter, Heavier arena.Key
}

// NewPage returns an empty page for the file at path.
func NewPage(contentDir, path string, meta frontmatter.PageFrontMatter) *Page {
	return &Page{
		File: NewPageInfo(contentDir, path),
		Meta: meta,
	}
}

// ParsePage builds a page from the text of the file at path. Slug, path and
// permalink are fixed here; content stays unrendered.
func ParsePage(contentDir, path, text string, cfg *config.SiteConfig) (*Page, error) {
	meta, body, err := frontmatter.ParsePage(path, text)
	if err != nil {
		return nil, err
	}
	p := NewPage(contentDir, path, meta)
	p.RawContent = body
	p.WordCount, p.ReadingTime = util.ReadingAnalytics(body)

	switch {
	case meta.Slug != nil:
		p.Slug = strings.TrimSpace(*meta.Slug)
	case p.File.Name == IndexName:
		p.Slug = util.Slugify(filepath.Base(filepath.Dir(path)))
	default:
		p.Slug = util.Slugify(p.File.Name)
	}

	if meta.Path != nil {
		p.Path = strings.TrimLeft(strings.TrimSpace(*meta.Path), "/")
	} else if len(p.File.Components) == 0 {
		p.Path = p.Slug
	} else {
		p.Path = strings.Join(p.File.Components, "/") + "/" + p.Slug
	}
	if !strings.HasSuffix(p.Path, "/") {
		p.Path += "/"
	}
	p.Components = splitPath(p.Path)
	p.Permalink = cfg.MakePermalink(p.Path)
	return p, nil
}

// PageFromFile reads and parses the page at path, collecting its assets when
// it is an index file.
func PageFromFile(contentDir, path string, cfg *config.SiteConfig) (*Page, error) {
	text, err := util.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := ParsePage(contentDir, path, text, cfg)
	if err != nil {
		return nil, err
	}
	if p.File.Name == IndexName {
		if p.Assets, err = findRelatedAssets(filepath.Dir(path), cfg); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// RenderMarkdown fills Content, Summary and TOC. It must run after the
// permalink table holds every page and section.
func (p *Page) RenderMarkdown(ctx *render.Context) error {
	ctx.CurrentPermalink = p.Permalink
	ctx.Source = p.File.Path
	res, err := render.Markdown(p.RawContent, ctx)
	if err != nil {
		return err
	}
	p.Content = res.Body
	p.Summary = res.Summary
	p.HasSummary = res.HasSummary
	p.TOC = res.TOC
	return nil
}

// TemplateName returns the template used to render the page.
func (p *Page) TemplateName() string {
	if p.Meta.Template != nil {
		return *p.Meta.Template
	}
	return DefaultPageTemplate
}

// IsDraft reports whether the page is excluded from normal builds.
func (p *Page) IsDraft() bool { return p.Meta.Draft }

// HasDate reports whether the page takes part in date orderings.
func (p *Page) HasDate() bool { return p.Meta.Date != nil }

// HasWeight reports whether the page takes part in weight orderings.
func (p *Page) HasWeight() bool { return p.Meta.Weight != nil }

func splitPath(path string) []string {
	var components []string
	for _, c := range strings.Split(path, "/") {
		if c != "" {
			components = append(components, c)
		}
	}
	return components
}
