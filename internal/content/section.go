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

const (
	// RootSectionTemplate renders the root section.
	RootSectionTemplate = "index.html"
	// DefaultSectionTemplate renders every other section.
	DefaultSectionTemplate = "section.html"
)

// Section is a directory of the content tree described by an _index.md file.
type Section struct {
	File       FileInfo
	Meta       frontmatter.SectionFrontMatter
	RawContent string
	Assets     []string

	Path       string
	Components []string
	Permalink  string

	Content string
	TOC     []render.Header

	WordCount   int
	ReadingTime int

	// Parent is zero for the root section.
	Parent arena.Key
	// Pages are the direct child pages, sorted by the section's sort_by.
	Pages []arena.Key
	// IgnoredPages are children lacking the field sort_by needs.
	IgnoredPages []arena.Key
	Subsections  []arena.Key
}

// NewSection returns an empty section for the file at path.
func NewSection(contentDir, path string, meta frontmatter.SectionFrontMatter) *Section {
	s := &Section{
		File: NewSectionInfo(contentDir, path),
		Meta: meta,
	}
	s.setPath(s.File.Components)
	return s
}

// DefaultSection synthesizes the section of contentDir/components when no
// _index.md exists for it.
func DefaultSection(contentDir string, components []string, cfg *config.SiteConfig) *Section {
	parts := append([]string{contentDir}, components...)
	path := filepath.Join(append(parts, SectionName+".md")...)
	s := NewSection(contentDir, path, frontmatter.SectionFrontMatter{
		SortBy:            frontmatter.SortNone,
		InsertAnchorLinks: frontmatter.AnchorNone,
		Extra:             map[string]frontmatter.Value{},
	})
	s.Permalink = cfg.MakePermalink(s.Path)
	return s
}

// ParseSection builds a section from the text of the _index.md file at path.
func ParseSection(contentDir, path, text string, cfg *config.SiteConfig) (*Section, error) {
	meta, body, err := frontmatter.ParseSection(path, text)
	if err != nil {
		return nil, err
	}
	s := NewSection(contentDir, path, meta)
	s.RawContent = body
	s.WordCount, s.ReadingTime = util.ReadingAnalytics(body)
	s.Permalink = cfg.MakePermalink(s.Path)
	return s, nil
}

// SectionFromFile reads and parses the section file at path, collecting the
// assets of its directory.
func SectionFromFile(contentDir, path string, cfg *config.SiteConfig) (*Section, error) {
	text, err := util.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseSection(contentDir, path, text, cfg)
	if err != nil {
		return nil, err
	}
	if s.Assets, err = findRelatedAssets(filepath.Dir(path), cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Section) setPath(components []string) {
	s.Components = components
	if len(components) == 0 {
		s.Path = "/"
		return
	}
	s.Path = strings.Join(components, "/") + "/"
}

// RenderMarkdown fills Content and TOC.
func (s *Section) RenderMarkdown(ctx *render.Context) error {
	ctx.CurrentPermalink = s.Permalink
	ctx.Source = s.File.Path
	ctx.InsertAnchor = s.Meta.InsertAnchorLinks
	res, err := render.Markdown(s.RawContent, ctx)
	if err != nil {
		return err
	}
	s.Content = res.Body
	s.TOC = res.TOC
	return nil
}

// IsRoot reports whether s is the section of the content root.
func (s *Section) IsRoot() bool { return len(s.Components) == 0 }

// TemplateName returns the template used to render the section.
func (s *Section) TemplateName() string {
	if s.Meta.Template != nil {
		return *s.Meta.Template
	}
	if s.IsRoot() {
		return RootSectionTemplate
	}
	return DefaultSectionTemplate
}

// IsDraft reports whether the section is excluded from normal builds.
func (s *Section) IsDraft() bool { return s.Meta.Draft }
