package library

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quire/internal/arena"
	"quire/internal/config"
	"quire/internal/content"
)

type fixture struct {
	t   *testing.T
	cfg *config.SiteConfig
	lib *Library
}

func newFixture(t *testing.T) *fixture {
	cfg := config.Default()
	cfg.BaseURL = "http://hello.com/"
	return &fixture{t: t, cfg: cfg, lib: New(cfg, "content")}
}

func (f *fixture) parsePage(relative, meta string) *content.Page {
	f.t.Helper()
	p, err := content.ParsePage("content", "content/"+relative, "+++\n"+meta+"\n+++\n", f.cfg)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) page(relative, meta string) arena.Key {
	return f.lib.InsertPage(f.parsePage(relative, meta))
}

func (f *fixture) section(relative, meta string) arena.Key {
	f.t.Helper()
	s, err := content.ParseSection("content", "content/"+relative, "+++\n"+meta+"\n+++\n", f.cfg)
	require.NoError(f.t, err)
	return f.lib.InsertSection(s)
}

func (f *fixture) get(k arena.Key) *content.Page {
	p, ok := f.lib.Page(k)
	require.True(f.t, ok)
	return p
}

func (f *fixture) sec(k arena.Key) *content.Section {
	s, ok := f.lib.Section(k)
	require.True(f.t, ok)
	return s
}

// dateChain walks the date ordering from its newest page.
func (f *fixture) dateChain() []arena.Key {
	var head arena.Key
	for _, k := range f.lib.PageKeys() {
		p := f.get(k)
		if p.HasDate() && p.Later.IsZero() {
			require.True(f.t, head.IsZero(), "two heads in date ordering")
			head = k
		}
	}
	var chain []arena.Key
	for k := head; !k.IsZero(); k = f.get(k).Earlier {
		require.Less(f.t, len(chain), 1000, "cycle in date ordering")
		chain = append(chain, k)
	}
	return chain
}

// assertDateLinksConsistent checks that P.later.earlier == P and
// P.earlier.later == P for every dated page.
func (f *fixture) assertDateLinksConsistent() {
	for _, k := range f.lib.PageKeys() {
		p := f.get(k)
		if !p.HasDate() {
			assert.True(f.t, p.Earlier.IsZero() && p.Later.IsZero())
			continue
		}
		if !p.Later.IsZero() {
			assert.Equal(f.t, k, f.get(p.Later).Earlier)
		}
		if !p.Earlier.IsZero() {
			assert.Equal(f.t, k, f.get(p.Earlier).Later)
		}
	}
}

func TestLink_SynthesizesRoot(t *testing.T) {
	f := newFixture(t)
	a := f.page("a.md", "")
	f.lib.Link()

	root := f.sec(f.lib.Root())
	assert.True(t, root.IsRoot())
	assert.Equal(t, []arena.Key{a}, root.Pages)
	assert.Equal(t, f.lib.Root(), f.get(a).Parent)
}

func TestLink_Hierarchy(t *testing.T) {
	f := newFixture(t)
	root := f.section("_index.md", "")
	blog := f.section("blog/_index.md", "")
	tech := f.section("blog/tech/_index.md", "")
	docs := f.section("docs/deep/_index.md", "")

	top := f.page("about.md", "")
	post := f.page("blog/post.md", "")
	techPost := f.page("blog/tech/go.md", "")
	orphan := f.page("blog/misc/note.md", "")
	bundle := f.page("blog/tech/bundle/index.md", "")
	f.lib.Link()

	assert.Equal(t, root, f.lib.Root())
	assert.ElementsMatch(t, []arena.Key{blog, docs}, f.sec(root).Subsections)
	assert.Equal(t, []arena.Key{tech}, f.sec(blog).Subsections)
	assert.Equal(t, root, f.sec(docs).Parent)

	assert.Equal(t, []arena.Key{top}, f.sec(root).Pages)
	assert.ElementsMatch(t, []arena.Key{post, orphan}, f.sec(blog).Pages)
	assert.ElementsMatch(t, []arena.Key{bundle, techPost}, f.sec(tech).Pages)
	assert.Equal(t, tech, f.get(bundle).Parent)

	// Every entity is reachable exactly once from the root.
	seen := map[arena.Key]int{}
	var walk func(arena.Key)
	walk = func(k arena.Key) {
		s := f.sec(k)
		for _, p := range s.Pages {
			seen[p]++
		}
		for _, sub := range s.Subsections {
			walk(sub)
		}
	}
	walk(root)
	for _, k := range f.lib.PageKeys() {
		assert.Equal(t, 1, seen[k])
	}
}

func TestLink_DateOrdering(t *testing.T) {
	f := newFixture(t)
	old := f.page("blog/old.md", "date = 2017-01-01")
	mid := f.page("blog/mid.md", "date = 2018-01-01")
	newest := f.page("news/new.md", "date = 2019-01-01")
	undated := f.page("blog/undated.md", "")
	f.lib.Link()

	assert.Equal(t, []arena.Key{newest, mid, old}, f.dateChain())
	f.assertDateLinksConsistent()
	assert.True(t, f.get(newest).Later.IsZero())
	assert.Equal(t, mid, f.get(newest).Earlier)
	assert.True(t, f.get(undated).Earlier.IsZero())
}

func TestLink_DateTiesBrokenByPath(t *testing.T) {
	f := newFixture(t)
	b := f.page("b.md", "date = 2018-01-01")
	a := f.page("a.md", "date = 2018-01-01")
	c := f.page("c.md", "date = 2018-01-01")
	f.lib.Link()

	assert.Equal(t, []arena.Key{a, b, c}, f.dateChain())
	f.assertDateLinksConsistent()
}

func TestLink_DateOrderingSectionScope(t *testing.T) {
	f := newFixture(t)
	f.cfg.Ordering.Date = config.ScopeSection
	f.section("blog/_index.md", "")
	f.section("news/_index.md", "")
	b1 := f.page("blog/one.md", "date = 2017-01-01")
	b2 := f.page("blog/two.md", "date = 2018-01-01")
	n1 := f.page("news/one.md", "date = 2019-01-01")
	f.lib.Link()

	assert.Equal(t, b1, f.get(b2).Earlier)
	assert.Equal(t, b2, f.get(b1).Later)
	assert.True(t, f.get(n1).Earlier.IsZero())
	assert.True(t, f.get(n1).Later.IsZero())
}

func TestLink_WeightOrderingPerSection(t *testing.T) {
	f := newFixture(t)
	blog := f.section("blog/_index.md", "sort_by = \"weight\"")
	heavy := f.page("blog/heavy.md", "weight = 10")
	light := f.page("blog/light.md", "weight = 1")
	none := f.page("blog/none.md", "")
	other := f.page("other.md", "weight = 5")
	f.lib.Link()

	assert.Equal(t, heavy, f.get(light).Heavier)
	assert.Equal(t, light, f.get(heavy).Lighter)
	assert.True(t, f.get(light).Lighter.IsZero())
	assert.True(t, f.get(other).Lighter.IsZero() && f.get(other).Heavier.IsZero())

	assert.Equal(t, []arena.Key{light, heavy}, f.sec(blog).Pages)
	assert.Equal(t, []arena.Key{none}, f.sec(blog).IgnoredPages)
}

func TestLink_WeightOrderingSiteScope(t *testing.T) {
	f := newFixture(t)
	f.cfg.Ordering.Weight = config.ScopeSite
	f.section("blog/_index.md", "")
	a := f.page("blog/a.md", "weight = 1")
	b := f.page("b.md", "weight = 2")
	f.lib.Link()

	assert.Equal(t, b, f.get(a).Heavier)
	assert.Equal(t, a, f.get(b).Lighter)
}

func TestLink_SectionSortByDate(t *testing.T) {
	f := newFixture(t)
	blog := f.section("blog/_index.md", "sort_by = \"date\"")
	old := f.page("blog/old.md", "date = 2017-01-01")
	recent := f.page("blog/recent.md", "date = 2019-01-01")
	undated := f.page("blog/undated.md", "")
	f.lib.Link()

	assert.Equal(t, []arena.Key{recent, old}, f.sec(blog).Pages)
	assert.Equal(t, []arena.Key{undated}, f.sec(blog).IgnoredPages)
}

func TestReplacePage_UnchangedDateKeepsLinks(t *testing.T) {
	f := newFixture(t)
	a := f.page("a.md", "date = 2017-01-01")
	b := f.page("b.md", "date = 2018-01-01")
	c := f.page("c.md", "date = 2019-01-01")
	f.lib.Link()

	ch, err := f.lib.ReplacePage(b, f.parsePage("b.md", "date = 2018-01-01\ntitle = \"new\""))
	require.NoError(t, err)
	assert.Equal(t, "new", *f.get(b).Meta.Title)
	assert.Equal(t, []arena.Key{c, b, a}, f.dateChain())
	f.assertDateLinksConsistent()
	assert.Contains(t, ch.Pages, b)
	assert.Contains(t, ch.Sections, f.lib.Root())
}

func TestReplacePage_DateChangeMovesPage(t *testing.T) {
	f := newFixture(t)
	a := f.page("a.md", "date = 2017-01-01")
	b := f.page("b.md", "date = 2018-01-01")
	c := f.page("c.md", "date = 2019-01-01")
	d := f.page("d.md", "date = 2020-01-01")
	f.lib.Link()

	ch, err := f.lib.ReplacePage(a, f.parsePage("a.md", "date = 2019-06-01"))
	require.NoError(t, err)
	assert.Equal(t, []arena.Key{d, a, c, b}, f.dateChain())
	f.assertDateLinksConsistent()
	assert.Subset(t, ch.Pages, []arena.Key{a, b, c, d})

	_, err = f.lib.ReplacePage(a, f.parsePage("a.md", ""))
	require.NoError(t, err)
	assert.Equal(t, []arena.Key{d, c, b}, f.dateChain())
	f.assertDateLinksConsistent()

	_, err = f.lib.ReplacePage(a, f.parsePage("a.md", "date = 2000-01-01"))
	require.NoError(t, err)
	assert.Equal(t, []arena.Key{d, c, b, a}, f.dateChain())
	f.assertDateLinksConsistent()
}

func TestReplacePage_Unknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.lib.ReplacePage(arena.Key{}, f.parsePage("a.md", ""))
	assert.Error(t, err)
}

func TestAddAndRemovePage(t *testing.T) {
	f := newFixture(t)
	blog := f.section("blog/_index.md", "sort_by = \"weight\"")
	a := f.page("blog/a.md", "date = 2017-01-01\nweight = 1")
	c := f.page("blog/c.md", "date = 2019-01-01\nweight = 3")
	f.lib.Link()

	b, ch := f.lib.AddPage(f.parsePage("blog/b.md", "date = 2018-01-01\nweight = 2"))
	assert.Equal(t, blog, f.get(b).Parent)
	assert.Equal(t, []arena.Key{c, b, a}, f.dateChain())
	f.assertDateLinksConsistent()
	assert.Equal(t, []arena.Key{a, b, c}, f.sec(blog).Pages)
	assert.Equal(t, b, f.get(a).Heavier)
	assert.Equal(t, c, f.get(b).Heavier)
	assert.Contains(t, ch.Sections, blog)

	ch, ok := f.lib.RemovePage(b)
	require.True(t, ok)
	assert.ElementsMatch(t, []arena.Key{a, c}, ch.Pages)
	assert.Equal(t, []arena.Key{c, a}, f.dateChain())
	f.assertDateLinksConsistent()
	assert.Equal(t, c, f.get(a).Heavier)
	assert.Equal(t, []arena.Key{a, c}, f.sec(blog).Pages)

	_, found := f.lib.Page(b)
	assert.False(t, found)
	_, found = f.lib.PageByRelative("blog/b.md")
	assert.False(t, found)
	_, ok = f.lib.RemovePage(b)
	assert.False(t, ok)
}

func TestRemoveSection_ReparentsOnLink(t *testing.T) {
	f := newFixture(t)
	blog := f.section("blog/_index.md", "")
	post := f.page("blog/post.md", "")
	f.lib.Link()
	assert.Equal(t, blog, f.get(post).Parent)

	require.True(t, f.lib.RemoveSection(blog))
	f.lib.Link()
	assert.Equal(t, f.lib.Root(), f.get(post).Parent)
	assert.Equal(t, []arena.Key{post}, f.sec(f.lib.Root()).Pages)
}

func TestReplaceSection_KeepsHierarchy(t *testing.T) {
	f := newFixture(t)
	blog := f.section("blog/_index.md", "")
	a := f.page("blog/a.md", "weight = 2")
	b := f.page("blog/b.md", "weight = 1")
	f.lib.Link()
	assert.Equal(t, []arena.Key{a, b}, f.sec(blog).Pages)

	s, err := content.ParseSection("content", "content/blog/_index.md", "+++\nsort_by = \"weight\"\n+++\n", f.cfg)
	require.NoError(t, err)
	ch, err := f.lib.ReplaceSection(blog, s)
	require.NoError(t, err)
	assert.Equal(t, []arena.Key{b, a}, f.sec(blog).Pages)
	assert.Equal(t, f.lib.Root(), f.sec(blog).Parent)
	assert.ElementsMatch(t, []arena.Key{a, b}, ch.Pages)
}

func TestBuildPermalinks(t *testing.T) {
	f := newFixture(t)
	f.section("_index.md", "")
	f.section("blog/_index.md", "")
	f.page("blog/post.md", "")
	f.lib.Link()
	require.NoError(t, f.lib.BuildPermalinks())

	assert.Equal(t, map[string]string{
		"_index.md":      "http://hello.com/",
		"blog/_index.md": "http://hello.com/blog/",
		"blog/post.md":   "http://hello.com/blog/post/",
	}, f.lib.Permalinks())
}

func TestBuildPermalinks_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.page("a.md", "path = \"same\"")
	f.page("b.md", "path = \"same\"")
	f.lib.Link()
	assert.Error(t, f.lib.BuildPermalinks())
}

func TestViews(t *testing.T) {
	f := newFixture(t)
	blog := f.section("blog/_index.md", "title = \"Blog\"")
	f.section("blog/tech/_index.md", "title = \"Tech\"")
	f.page("blog/old.md", "title = \"Old\"\ndate = 2017-01-01")
	recent := f.page("blog/new.md", "title = \"New\"\ndate = 2018-01-01")
	f.lib.Link()

	v, ok := f.lib.PageView(recent)
	require.True(t, ok)
	require.NotNil(t, v.Earlier)
	assert.Equal(t, "Old", v.Earlier.Title)
	assert.Nil(t, v.Earlier.Later, "neighbours are expanded one level only")
	assert.Nil(t, v.Later)

	sv, ok := f.lib.SectionView(blog)
	require.True(t, ok)
	assert.Equal(t, "Blog", sv.Title)
	require.Len(t, sv.Pages, 2)
	require.Len(t, sv.Subsections, 1)
	assert.Equal(t, "Tech", sv.Subsections[0].Title)
	assert.Nil(t, sv.Subsections[0].Pages)
	require.Len(t, sv.Children, 3)
	assert.True(t, sv.Children[0].IsSection)
	assert.False(t, sv.Children[1].IsSection)

	byRel, ok := f.lib.PageViewByRelative("blog/old.md")
	require.True(t, ok)
	assert.Equal(t, "Old", byRel.Title)
	_, ok = f.lib.SectionViewByRelative("nope/_index.md")
	assert.False(t, ok)
}

func TestOrderingStaysConsistentUnderChurn(t *testing.T) {
	f := newFixture(t)
	var keys []arena.Key
	for i := 0; i < 8; i++ {
		keys = append(keys, f.page(fmt.Sprintf("p%d.md", i), fmt.Sprintf("date = 2018-01-%02d", 1+i%3)))
	}
	f.lib.Link()
	f.assertDateLinksConsistent()

	for i, k := range keys {
		_, err := f.lib.ReplacePage(k, f.parsePage(fmt.Sprintf("p%d.md", i), fmt.Sprintf("date = 2018-02-%02d", 1+(i*5)%7)))
		require.NoError(t, err)
		f.assertDateLinksConsistent()
		assert.Len(t, f.dateChain(), len(keys))
	}
}
