package content

import (
	"html/template"
	"time"

	"quire/internal/frontmatter"
	"quire/internal/render"
)

// PageView is the acyclic, template-facing copy of a page. Neighbour views
// are filled one level deep by the library.
type PageView struct {
	Relative    string              `json:"relative"`
	Content     template.HTML       `json:"content"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Date        string              `json:"date,omitempty"`
	Year        int                 `json:"year,omitempty"`
	Month       int                 `json:"month,omitempty"`
	Day         int                 `json:"day,omitempty"`
	Slug        string              `json:"slug"`
	Path        string              `json:"path"`
	Components  []string            `json:"components"`
	Permalink   string              `json:"permalink"`
	Summary     template.HTML       `json:"summary,omitempty"`
	HasSummary  bool                `json:"has_summary"`
	Taxonomies  map[string][]string `json:"taxonomies"`
	Extra       map[string]any      `json:"extra"`
	WordCount   int                 `json:"word_count"`
	ReadingTime int                 `json:"reading_time"`
	TOC         []render.Header     `json:"toc"`
	Draft       bool                `json:"draft"`
	Assets      []string            `json:"assets"`

	Earlier *PageView `json:"earlier,omitempty"`
	Later   *PageView `json:"later,omitempty"`
	Lighter *PageView `json:"lighter,omitempty"`
	Heavier *PageView `json:"heavier,omitempty"`
}

// SectionView is the template-facing copy of a section. Pages and
// subsections are basic views, never expanded further.
type SectionView struct {
	Relative    string          `json:"relative"`
	Content     template.HTML   `json:"content"`
	Permalink   string          `json:"permalink"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Extra       map[string]any  `json:"extra"`
	Path        string          `json:"path"`
	Components  []string        `json:"components"`
	WordCount   int             `json:"word_count"`
	ReadingTime int             `json:"reading_time"`
	TOC         []render.Header `json:"toc"`
	Assets      []string        `json:"assets"`

	Pages       []PageView    `json:"pages"`
	Subsections []SectionView `json:"subsections"`
	// Children lists subsections then pages through their shared projection.
	Children []Ref `json:"children"`
}

// Ref is the projection shared by pages and sections, for mixed listings.
type Ref struct {
	IsSection   bool           `json:"is_section"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Permalink   string         `json:"permalink"`
	Extra       map[string]any `json:"extra"`
}

// BasicView returns the view of p without ordering neighbours.
func (p *Page) BasicView() PageView {
	v := PageView{
		Relative:    p.File.Relative,
		Content:     template.HTML(p.Content),
		Title:       deref(p.Meta.Title),
		Description: deref(p.Meta.Description),
		Slug:        p.Slug,
		Path:        p.Path,
		Components:  p.Components,
		Permalink:   p.Permalink,
		Summary:     template.HTML(p.Summary),
		HasSummary:  p.HasSummary,
		Taxonomies:  p.Meta.Taxonomies,
		Extra:       extraMap(p.Meta.Extra),
		WordCount:   p.WordCount,
		ReadingTime: p.ReadingTime,
		TOC:         p.TOC,
		Draft:       p.IsDraft(),
		Assets:      assetURLs(p.Path, p.Assets),
	}
	if p.Meta.Date != nil {
		v.Date = p.Meta.Date.Format(time.RFC3339)
		v.Year, v.Month, v.Day, _ = p.Meta.DateParts()
	}
	return v
}

// Ref returns the shared projection of p.
func (p *Page) Ref() Ref {
	return Ref{
		Title:       deref(p.Meta.Title),
		Description: deref(p.Meta.Description),
		Permalink:   p.Permalink,
		Extra:       extraMap(p.Meta.Extra),
	}
}

// BasicView returns the view of s without its children.
func (s *Section) BasicView() SectionView {
	return SectionView{
		Relative:    s.File.Relative,
		Content:     template.HTML(s.Content),
		Permalink:   s.Permalink,
		Title:       deref(s.Meta.Title),
		Description: deref(s.Meta.Description),
		Extra:       extraMap(s.Meta.Extra),
		Path:        s.Path,
		Components:  s.Components,
		WordCount:   s.WordCount,
		ReadingTime: s.ReadingTime,
		TOC:         s.TOC,
		Assets:      assetURLs(s.Path, s.Assets),
	}
}

// Ref returns the shared projection of s.
func (s *Section) Ref() Ref {
	return Ref{
		IsSection:   true,
		Title:       deref(s.Meta.Title),
		Description: deref(s.Meta.Description),
		Permalink:   s.Permalink,
		Extra:       extraMap(s.Meta.Extra),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func extraMap(extra map[string]frontmatter.Value) map[string]any {
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		out[k] = v.Interface()
	}
	return out
}
