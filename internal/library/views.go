package library

import (
	"quire/internal/arena"
	"quire/internal/content"
)

// PageView returns the view of the page behind k with its ordering
// neighbours expanded one level.
func (l *Library) PageView(k arena.Key) (content.PageView, bool) {
	p, ok := l.pages.Get(k)
	if !ok {
		return content.PageView{}, false
	}
	v := p.BasicView()
	v.Earlier = l.basicPageView(p.Earlier)
	v.Later = l.basicPageView(p.Later)
	v.Lighter = l.basicPageView(p.Lighter)
	v.Heavier = l.basicPageView(p.Heavier)
	return v, true
}

func (l *Library) basicPageView(k arena.Key) *content.PageView {
	p, ok := l.pages.Get(k)
	if !ok {
		return nil
	}
	v := p.BasicView()
	return &v
}

// SectionView returns the view of the section behind k with its pages and
// subsections expanded one level.
func (l *Library) SectionView(k arena.Key) (content.SectionView, bool) {
	s, ok := l.sections.Get(k)
	if !ok {
		return content.SectionView{}, false
	}
	v := s.BasicView()
	v.Pages = make([]content.PageView, 0, len(s.Pages))
	for _, pk := range s.Pages {
		if p, ok := l.pages.Get(pk); ok {
			v.Pages = append(v.Pages, p.BasicView())
		}
	}
	v.Subsections = make([]content.SectionView, 0, len(s.Subsections))
	for _, sk := range s.Subsections {
		if sub, ok := l.sections.Get(sk); ok {
			v.Subsections = append(v.Subsections, sub.BasicView())
		}
	}
	v.Children = l.Children(k)
	return v, true
}

// Children returns the shared projection of the subsections then the pages
// of the section behind k.
func (l *Library) Children(k arena.Key) []content.Ref {
	s, ok := l.sections.Get(k)
	if !ok {
		return nil
	}
	refs := make([]content.Ref, 0, len(s.Subsections)+len(s.Pages))
	for _, sk := range s.Subsections {
		if sub, ok := l.sections.Get(sk); ok {
			refs = append(refs, sub.Ref())
		}
	}
	for _, pk := range s.Pages {
		if p, ok := l.pages.Get(pk); ok {
			refs = append(refs, p.Ref())
		}
	}
	return refs
}

// PageViewByRelative looks a page view up by content-relative identity.
func (l *Library) PageViewByRelative(relative string) (content.PageView, bool) {
	k, ok := l.pagesByRelative[relative]
	if !ok {
		return content.PageView{}, false
	}
	return l.PageView(k)
}

// SectionViewByRelative looks a section view up by content-relative identity.
func (l *Library) SectionViewByRelative(relative string) (content.SectionView, bool) {
	k, ok := l.sectionsByRelative[relative]
	if !ok {
		return content.SectionView{}, false
	}
	return l.SectionView(k)
}
