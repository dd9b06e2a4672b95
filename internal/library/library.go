// Package library owns every page and section of a site and maintains the
// links between them: the section hierarchy, the date and weight orderings
// and the permalink table used to resolve internal links.
package library

import (
	"sort"
	"strings"
	"time"

	"quire/internal/arena"
	"quire/internal/config"
	"quire/internal/content"
	"quire/internal/errors"
	"quire/internal/frontmatter"
)

// Library is the arena of pages and sections. It is not safe for concurrent
// mutation; a single controller owns it.
type Library struct {
	cfg        *config.SiteConfig
	contentDir string

	pages    *arena.Arena[content.Page]
	sections *arena.Arena[content.Section]

	pagesByRelative    map[string]arena.Key
	sectionsByRelative map[string]arena.Key

	root       arena.Key
	permalinks map[string]string
}

// New returns an empty library for the content tree at contentDir.
func New(cfg *config.SiteConfig, contentDir string) *Library {
	return &Library{
		cfg:                cfg,
		contentDir:         contentDir,
		pages:              arena.New[content.Page](),
		sections:           arena.New[content.Section](),
		pagesByRelative:    map[string]arena.Key{},
		sectionsByRelative: map[string]arena.Key{},
		permalinks:         map[string]string{},
	}
}

// Changes lists the entities whose links or listings were touched by an
// incremental update.
type Changes struct {
	Pages    []arena.Key
	Sections []arena.Key
}

func (c *Changes) addPage(keys ...arena.Key) {
	for _, k := range keys {
		if !k.IsZero() && !containsKey(c.Pages, k) {
			c.Pages = append(c.Pages, k)
		}
	}
}

func (c *Changes) addSection(keys ...arena.Key) {
	for _, k := range keys {
		if !k.IsZero() && !containsKey(c.Sections, k) {
			c.Sections = append(c.Sections, k)
		}
	}
}

func containsKey(keys []arena.Key, k arena.Key) bool {
	for _, c := range keys {
		if c == k {
			return true
		}
	}
	return false
}

// InsertPage adds p without linking it. Call Link once every entity is in.
func (l *Library) InsertPage(p *content.Page) arena.Key {
	k := l.pages.Insert(p)
	l.pagesByRelative[p.File.Relative] = k
	return k
}

// InsertSection adds s without linking it.
func (l *Library) InsertSection(s *content.Section) arena.Key {
	k := l.sections.Insert(s)
	l.sectionsByRelative[s.File.Relative] = k
	return k
}

// Page resolves a page key.
func (l *Library) Page(k arena.Key) (*content.Page, bool) { return l.pages.Get(k) }

// Section resolves a section key.
func (l *Library) Section(k arena.Key) (*content.Section, bool) { return l.sections.Get(k) }

// PageByRelative looks a page up by its content-relative identity.
func (l *Library) PageByRelative(relative string) (arena.Key, bool) {
	k, ok := l.pagesByRelative[relative]
	return k, ok
}

// SectionByRelative looks a section up by its content-relative identity.
func (l *Library) SectionByRelative(relative string) (arena.Key, bool) {
	k, ok := l.sectionsByRelative[relative]
	return k, ok
}

// Root returns the root section. It is zero before Link.
func (l *Library) Root() arena.Key { return l.root }

// PageKeys returns every page key ordered by relative path.
func (l *Library) PageKeys() []arena.Key {
	return sortedKeys(l.pagesByRelative)
}

// SectionKeys returns every section key ordered by relative path.
func (l *Library) SectionKeys() []arena.Key {
	return sortedKeys(l.sectionsByRelative)
}

// Len returns the number of pages and sections.
func (l *Library) Len() (pages, sections int) {
	return l.pages.Len(), l.sections.Len()
}

func sortedKeys(m map[string]arena.Key) []arena.Key {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	keys := make([]arena.Key, 0, len(names))
	for _, n := range names {
		keys = append(keys, m[n])
	}
	return keys
}

// Link builds the hierarchy and both orderings from scratch, synthesizing a
// root section when the content root has no _index.md.
func (l *Library) Link() {
	l.root = arena.Key{}
	l.sections.Each(func(k arena.Key, s *content.Section) bool {
		s.Parent = arena.Key{}
		s.Pages, s.IgnoredPages, s.Subsections = nil, nil, nil
		if s.IsRoot() {
			l.root = k
		}
		return true
	})
	if l.root.IsZero() {
		l.root = l.InsertSection(content.DefaultSection(l.contentDir, nil, l.cfg))
	}

	index := l.sectionIndex()
	for _, k := range l.SectionKeys() {
		s := l.sections.MustGet(k)
		if s.IsRoot() {
			continue
		}
		parentKey := l.findSection(index, s.Components[:len(s.Components)-1])
		s.Parent = parentKey
		parent := l.sections.MustGet(parentKey)
		parent.Subsections = append(parent.Subsections, k)
	}
	for _, k := range l.PageKeys() {
		p := l.pages.MustGet(k)
		parentKey := l.findSection(index, p.File.Components)
		p.Parent = parentKey
		parent := l.sections.MustGet(parentKey)
		parent.Pages = append(parent.Pages, k)
	}

	l.sections.Each(func(k arena.Key, s *content.Section) bool {
		l.sortSubsections(s)
		l.sortSectionPages(s)
		return true
	})
	l.linkAll(dateOrdering(l.cfg.Ordering.Date))
	l.linkAll(weightOrdering(l.cfg.Ordering.Weight))
}

func (l *Library) sectionIndex() map[string]arena.Key {
	index := make(map[string]arena.Key, l.sections.Len())
	l.sections.Each(func(k arena.Key, s *content.Section) bool {
		index[strings.Join(s.Components, "/")] = k
		return true
	})
	return index
}

// findSection returns the section with the longest components prefix. The
// root section always matches.
func (l *Library) findSection(index map[string]arena.Key, components []string) arena.Key {
	for i := len(components); i > 0; i-- {
		if k, ok := index[strings.Join(components[:i], "/")]; ok {
			return k
		}
	}
	return l.root
}

func (l *Library) sortSubsections(s *content.Section) {
	sort.SliceStable(s.Subsections, func(i, j int) bool {
		a, b := l.sections.MustGet(s.Subsections[i]), l.sections.MustGet(s.Subsections[j])
		wa, wb := weightOf(a.Meta.Weight), weightOf(b.Meta.Weight)
		if wa != wb {
			return wa < wb
		}
		return a.Path < b.Path
	})
}

func weightOf(w *int) int {
	if w == nil {
		return 0
	}
	return *w
}

// sortSectionPages orders the pages of s by its sort_by, moving the pages
// missing the sort field to IgnoredPages.
func (l *Library) sortSectionPages(s *content.Section) {
	all := append(s.Pages, s.IgnoredPages...)
	s.Pages, s.IgnoredPages = nil, nil

	var has func(*content.Page) bool
	before := byPath
	switch s.Meta.SortBy {
	case frontmatter.SortDate:
		has, before = (*content.Page).HasDate, byDate
	case frontmatter.SortWeight:
		has, before = (*content.Page).HasWeight, byWeight
	}
	for _, k := range all {
		if has != nil && !has(l.pages.MustGet(k)) {
			s.IgnoredPages = append(s.IgnoredPages, k)
			continue
		}
		s.Pages = append(s.Pages, k)
	}
	l.sortKeys(s.Pages, before)
	l.sortKeys(s.IgnoredPages, byPath)
}

// ReplacePage swaps the page behind k for a reparsed version of the same
// file. The key stays valid, so neighbours need no patch unless the date,
// weight or path moved the page within an ordering.
func (l *Library) ReplacePage(k arena.Key, p *content.Page) (Changes, error) {
	old, ok := l.pages.Get(k)
	if !ok {
		return Changes{}, errors.New(errors.KindInternal, "replace of unknown page").
			WithContext("path", p.File.Path).Build()
	}
	p.Parent = old.Parent
	p.Earlier, p.Later, p.Lighter, p.Heavier = old.Earlier, old.Later, old.Lighter, old.Heavier
	l.pages.Replace(k, p)
	if old.File.Relative != p.File.Relative {
		delete(l.pagesByRelative, old.File.Relative)
		l.pagesByRelative[p.File.Relative] = k
	}

	var ch Changes
	ch.addPage(k, p.Earlier, p.Later, p.Lighter, p.Heavier)
	ch.addSection(p.Parent)

	pathMoved := old.Path != p.Path
	if pathMoved || !sameDate(old.Meta.Date, p.Meta.Date) {
		o := dateOrdering(l.cfg.Ordering.Date)
		ch.addPage(l.unlink(o, k)...)
		ch.addPage(l.insert(o, k)...)
	}
	if pathMoved || !sameInt(old.Meta.Weight, p.Meta.Weight) {
		o := weightOrdering(l.cfg.Ordering.Weight)
		ch.addPage(l.unlink(o, k)...)
		ch.addPage(l.insert(o, k)...)
	}
	if parent, ok := l.sections.Get(p.Parent); ok {
		l.sortSectionPages(parent)
	}
	return ch, nil
}

// AddPage inserts a new page and links it into its section and orderings.
func (l *Library) AddPage(p *content.Page) (arena.Key, Changes) {
	k := l.InsertPage(p)
	p.Parent = l.findSection(l.sectionIndex(), p.File.Components)
	parent := l.sections.MustGet(p.Parent)
	parent.Pages = append(parent.Pages, k)
	l.sortSectionPages(parent)

	var ch Changes
	ch.addPage(k)
	ch.addSection(p.Parent)
	ch.addPage(l.insert(dateOrdering(l.cfg.Ordering.Date), k)...)
	ch.addPage(l.insert(weightOrdering(l.cfg.Ordering.Weight), k)...)
	return k, ch
}

// RemovePage unlinks and deletes the page behind k.
func (l *Library) RemovePage(k arena.Key) (Changes, bool) {
	p, ok := l.pages.Get(k)
	if !ok {
		return Changes{}, false
	}
	var ch Changes
	ch.addPage(l.unlink(dateOrdering(l.cfg.Ordering.Date), k)...)
	ch.addPage(l.unlink(weightOrdering(l.cfg.Ordering.Weight), k)...)
	if parent, ok := l.sections.Get(p.Parent); ok {
		parent.Pages = removeKey(parent.Pages, k)
		parent.IgnoredPages = removeKey(parent.IgnoredPages, k)
		ch.addSection(p.Parent)
	}
	delete(l.pagesByRelative, p.File.Relative)
	l.pages.Remove(k)
	return ch, true
}

// ReplaceSection swaps the section behind k for a reparsed version, keeping
// its place in the hierarchy.
func (l *Library) ReplaceSection(k arena.Key, s *content.Section) (Changes, error) {
	old, ok := l.sections.Get(k)
	if !ok {
		return Changes{}, errors.New(errors.KindInternal, "replace of unknown section").
			WithContext("path", s.File.Path).Build()
	}
	s.Parent = old.Parent
	s.Pages, s.IgnoredPages, s.Subsections = old.Pages, old.IgnoredPages, old.Subsections
	l.sections.Replace(k, s)
	if old.Meta.SortBy != s.Meta.SortBy {
		l.sortSectionPages(s)
	}
	if parent, ok := l.sections.Get(s.Parent); ok && !sameInt(old.Meta.Weight, s.Meta.Weight) {
		l.sortSubsections(parent)
	}

	var ch Changes
	ch.addSection(k, s.Parent)
	ch.addPage(s.Pages...)
	ch.addPage(s.IgnoredPages...)
	return ch, nil
}

// RemoveSection deletes the section behind k. The hierarchy must be rebuilt
// with Link afterwards, since its children move to another section.
func (l *Library) RemoveSection(k arena.Key) bool {
	s, ok := l.sections.Get(k)
	if !ok {
		return false
	}
	delete(l.sectionsByRelative, s.File.Relative)
	l.sections.Remove(k)
	return true
}

func removeKey(keys []arena.Key, k arena.Key) []arena.Key {
	out := keys[:0]
	for _, c := range keys {
		if c != k {
			out = append(out, c)
		}
	}
	return out
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// BuildPermalinks rebuilds the permalink table from every page and section.
// Two entities sharing a permalink is an error, since they would overwrite
// each other's output.
func (l *Library) BuildPermalinks() error {
	table := make(map[string]string, l.pages.Len()+l.sections.Len())
	owners := make(map[string]string, len(table))
	claim := func(relative, permalink string) error {
		if other, ok := owners[permalink]; ok {
			return errors.New(errors.KindSchema, "duplicate permalink").
				WithContext("permalink", permalink).
				WithContext("path", relative).
				WithContext("other", other).
				Build()
		}
		owners[permalink] = relative
		table[relative] = permalink
		return nil
	}
	for _, k := range l.SectionKeys() {
		s := l.sections.MustGet(k)
		if err := claim(s.File.Relative, s.Permalink); err != nil {
			return err
		}
	}
	for _, k := range l.PageKeys() {
		p := l.pages.MustGet(k)
		if err := claim(p.File.Relative, p.Permalink); err != nil {
			return err
		}
	}
	l.permalinks = table
	return nil
}

// Permalinks returns the permalink table. Callers must not modify it.
func (l *Library) Permalinks() map[string]string { return l.permalinks }

// AnchorModeFor returns the heading anchor mode pages of the parent section use.
func (l *Library) AnchorModeFor(k arena.Key) frontmatter.InsertAnchor {
	p, ok := l.pages.Get(k)
	if !ok {
		return frontmatter.AnchorNone
	}
	if s, ok := l.sections.Get(p.Parent); ok {
		return s.Meta.InsertAnchorLinks
	}
	return frontmatter.AnchorNone
}
