package library

import (
	"sort"

	"quire/internal/arena"
	"quire/internal/config"
	"quire/internal/content"
)

// ordering describes one of the two doubly linked page orderings.
type ordering struct {
	name  string
	scope config.Scope
	has   func(*content.Page) bool
	// before reports whether a comes before b. It must be a total order over
	// pages with distinct files.
	before func(a, b *content.Page) bool
	prev   func(*content.Page) *arena.Key
	next   func(*content.Page) *arena.Key
}

func dateOrdering(scope config.Scope) ordering {
	return ordering{
		name:   "date",
		scope:  scope,
		has:    (*content.Page).HasDate,
		before: byDate,
		prev:   func(p *content.Page) *arena.Key { return &p.Later },
		next:   func(p *content.Page) *arena.Key { return &p.Earlier },
	}
}

func weightOrdering(scope config.Scope) ordering {
	return ordering{
		name:   "weight",
		scope:  scope,
		has:    (*content.Page).HasWeight,
		before: byWeight,
		prev:   func(p *content.Page) *arena.Key { return &p.Lighter },
		next:   func(p *content.Page) *arena.Key { return &p.Heavier },
	}
}

// byDate orders newest first, ties by path then file.
func byDate(a, b *content.Page) bool {
	if !a.Meta.Date.Equal(*b.Meta.Date) {
		return a.Meta.Date.After(*b.Meta.Date)
	}
	return byPath(a, b)
}

// byWeight orders lightest first, ties by path then file.
func byWeight(a, b *content.Page) bool {
	if *a.Meta.Weight != *b.Meta.Weight {
		return *a.Meta.Weight < *b.Meta.Weight
	}
	return byPath(a, b)
}

func byPath(a, b *content.Page) bool {
	if a.Path != b.Path {
		return a.Path < b.Path
	}
	return a.File.Relative < b.File.Relative
}

// sortKeys sorts keys in place with before.
func (l *Library) sortKeys(keys []arena.Key, before func(a, b *content.Page) bool) {
	sort.SliceStable(keys, func(i, j int) bool {
		return before(l.pages.MustGet(keys[i]), l.pages.MustGet(keys[j]))
	})
}

// scopeOf returns the pages sharing an ordering with p, p included.
func (l *Library) scopeOf(o ordering, p *content.Page) []arena.Key {
	var keys []arena.Key
	l.pages.Each(func(k arena.Key, c *content.Page) bool {
		if o.has(c) && (o.scope == config.ScopeSite || c.Parent == p.Parent) {
			keys = append(keys, k)
		}
		return true
	})
	return keys
}

// linkAll rebuilds the ordering from scratch.
func (l *Library) linkAll(o ordering) {
	groups := map[arena.Key][]arena.Key{}
	var order []arena.Key
	for _, k := range l.pages.Keys() {
		p := l.pages.MustGet(k)
		*o.prev(p), *o.next(p) = arena.Key{}, arena.Key{}
		if !o.has(p) {
			continue
		}
		group := arena.Key{}
		if o.scope == config.ScopeSection {
			group = p.Parent
		}
		if _, ok := groups[group]; !ok {
			order = append(order, group)
		}
		groups[group] = append(groups[group], k)
	}
	for _, g := range order {
		keys := groups[g]
		l.sortKeys(keys, o.before)
		for i := 1; i < len(keys); i++ {
			prev, cur := l.pages.MustGet(keys[i-1]), l.pages.MustGet(keys[i])
			*o.next(prev) = keys[i]
			*o.prev(cur) = keys[i-1]
		}
	}
}

// unlink removes k from the ordering, joining its neighbours. It returns the
// neighbours that were patched.
func (l *Library) unlink(o ordering, k arena.Key) []arena.Key {
	p := l.pages.MustGet(k)
	prevKey, nextKey := *o.prev(p), *o.next(p)
	var touched []arena.Key
	if prev, ok := l.pages.Get(prevKey); ok {
		*o.next(prev) = nextKey
		touched = append(touched, prevKey)
	}
	if next, ok := l.pages.Get(nextKey); ok {
		*o.prev(next) = prevKey
		touched = append(touched, nextKey)
	}
	*o.prev(p), *o.next(p) = arena.Key{}, arena.Key{}
	return touched
}

// insert places k between its closest neighbours in the ordering, found by a
// scan over its scope. It returns the neighbours that were patched.
func (l *Library) insert(o ordering, k arena.Key) []arena.Key {
	p := l.pages.MustGet(k)
	if !o.has(p) {
		return nil
	}
	var predKey, succKey arena.Key
	var pred, succ *content.Page
	for _, ck := range l.scopeOf(o, p) {
		if ck == k {
			continue
		}
		c := l.pages.MustGet(ck)
		if o.before(c, p) {
			if pred == nil || o.before(pred, c) {
				pred, predKey = c, ck
			}
		} else if succ == nil || o.before(c, succ) {
			succ, succKey = c, ck
		}
	}

	var touched []arena.Key
	*o.prev(p), *o.next(p) = predKey, succKey
	if pred != nil {
		*o.next(pred) = k
		touched = append(touched, predKey)
	}
	if succ != nil {
		*o.prev(succ) = k
		touched = append(touched, succKey)
	}
	return touched
}
