package frontmatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quire/internal/errors"
)

func TestSplit_TOML(t *testing.T) {
	block, body, format, err := Split("a.md", "\n+++\ntitle = \"Hello\"\n+++\nHello world")
	require.NoError(t, err)
	assert.Equal(t, TOML, format)
	assert.Equal(t, "title = \"Hello\"\n", block)
	assert.Equal(t, "Hello world", body)
}

func TestSplit_EmptyBlockWithoutTrailingNewline(t *testing.T) {
	block, body, _, err := Split("a.md", "+++\n+++")
	require.NoError(t, err)
	assert.Empty(t, block)
	assert.Empty(t, body)
}

func TestSplit_YAML(t *testing.T) {
	block, body, format, err := Split("a.md", "---\ntitle: Hello\n---\n# Body\n")
	require.NoError(t, err)
	assert.Equal(t, YAML, format)
	assert.Equal(t, "title: Hello\n", block)
	assert.Equal(t, "# Body\n", body)
}

func TestSplit_MissingOpeningDelimiterIsParseError(t *testing.T) {
	content := "\n    title = \"Hello\"\n    slug = \"hello-world\"\n    +++\n    Hello world"
	_, _, _, err := Split("start.md", content)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindParse))
}

func TestSplit_NoFrontMatterAtAll(t *testing.T) {
	_, _, _, err := Split("start.md", "# Just markdown\n")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindParse))
}

func TestParsePage_AllFields(t *testing.T) {
	content := `+++
title = "Hello"
description = "hey there"
slug = "hello-world"
date = 2018-10-08
weight = 3
draft = true
template = "post.html"

[taxonomies]
tags = ["go", "web"]

[extra]
author = "someone"
ratio = 1.5
nested = { list = [1, 2] }
+++
Body`
	fm, body, err := ParsePage("post.md", content)
	require.NoError(t, err)
	assert.Equal(t, "Body", body)
	assert.Equal(t, "Hello", *fm.Title)
	assert.Equal(t, "hey there", *fm.Description)
	assert.Equal(t, "hello-world", *fm.Slug)
	assert.Equal(t, "post.html", *fm.Template)
	assert.Equal(t, 3, *fm.Weight)
	assert.True(t, fm.Draft)
	assert.Nil(t, fm.Path)
	require.NotNil(t, fm.Date)
	y, m, d, ok := fm.DateParts()
	require.True(t, ok)
	assert.Equal(t, []int{2018, 10, 8}, []int{y, m, d})
	assert.Equal(t, []string{"go", "web"}, fm.Taxonomies["tags"])

	author, ok := fm.Extra["author"].Str()
	require.True(t, ok)
	assert.Equal(t, "someone", author)
	ratio, ok := fm.Extra["ratio"].FloatVal()
	require.True(t, ok)
	assert.Equal(t, 1.5, ratio)
	assert.Equal(t, map[string]any{"list": []any{int64(1), int64(2)}}, fm.Extra["nested"].Interface())
}

func TestParseDate(t *testing.T) {
	plus2 := time.FixedZone("", 2*60*60)
	cases := map[string]time.Time{
		"2002-12-14":                 time.Date(2002, 12, 14, 0, 0, 0, 0, time.UTC),
		"2001-12-15T02:59:43.1Z":     time.Date(2001, 12, 15, 2, 59, 43, 100000000, time.UTC),
		"2018-01-01T10:00:00":        time.Date(2018, 1, 1, 10, 0, 0, 0, time.UTC),
		"2001-12-14t21:59:43.10Z":    time.Date(2001, 12, 14, 21, 59, 43, 100000000, time.UTC),
		"2001-12-14 21:59:43 +02:00": time.Date(2001, 12, 14, 21, 59, 43, 0, plus2),
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := ParseDate(in)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	for _, bad := range []string{"2001-13-15", "xxxx-12-15", "2001-12-xx", "yesterday"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestParsePage_InvalidDateIsSchemaError(t *testing.T) {
	_, _, err := ParsePage("post.md", "+++\ndate = \"2001-13-15\"\n+++\n")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindSchema))
}

func TestParsePage_WrongTypeIsSchemaError(t *testing.T) {
	cases := []string{
		"+++\ntitle = 1\n+++\n",
		"+++\nweight = \"heavy\"\n+++\n",
		"+++\ndraft = \"yes\"\n+++\n",
		"+++\ntaxonomies = { tags = [1] }\n+++\n",
		"+++\nextra = 3\n+++\n",
		"+++\ntitle = \n+++\n",
	}
	for _, content := range cases {
		_, _, err := ParsePage("post.md", content)
		require.Error(t, err, content)
		assert.True(t, errors.IsKind(err, errors.KindSchema), content)
	}
}

func TestParsePage_YAML(t *testing.T) {
	fm, body, err := ParsePage("post.md", "---\ntitle: Hello\ndate: 2019-05-01\nextra:\n  tags: [a, b]\n---\nBody\n")
	require.NoError(t, err)
	assert.Equal(t, "Body\n", body)
	assert.Equal(t, "Hello", *fm.Title)
	require.NotNil(t, fm.Date)
	assert.Equal(t, 2019, fm.Date.Year())
	assert.Equal(t, []any{"a", "b"}, fm.Extra["tags"].Interface())
}

func TestParsePage_IgnoresUnknownKeys(t *testing.T) {
	_, _, err := ParsePage("post.md", "+++\nunknown = true\n+++\n")
	require.NoError(t, err)
}

func TestParseSection_Defaults(t *testing.T) {
	fm, body, err := ParseSection("_index.md", "+++\n+++\n")
	require.NoError(t, err)
	assert.Empty(t, body)
	assert.Equal(t, SortNone, fm.SortBy)
	assert.Equal(t, AnchorNone, fm.InsertAnchorLinks)
	assert.NotNil(t, fm.Extra)
}

func TestParseSection_Fields(t *testing.T) {
	fm, _, err := ParseSection("_index.md", "+++\ntitle = \"Blog\"\nsort_by = \"weight\"\ninsert_anchor_links = \"left\"\nslug = \"ignored\"\n+++\n")
	require.NoError(t, err)
	assert.Equal(t, "Blog", *fm.Title)
	assert.Equal(t, SortWeight, fm.SortBy)
	assert.Equal(t, AnchorLeft, fm.InsertAnchorLinks)
}

func TestParseSection_BadEnum(t *testing.T) {
	_, _, err := ParseSection("_index.md", "+++\nsort_by = \"size\"\n+++\n")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindSchema))
}

func TestValueInterface(t *testing.T) {
	v := Map(map[string]Value{
		"s": String("x"),
		"l": List(Int(1), Bool(true), Float(2.5)),
		"d": Datetime(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)),
		"n": {},
	})
	assert.Equal(t, map[string]any{
		"s": "x",
		"l": []any{int64(1), true, 2.5},
		"d": "2020-01-02T03:04:05Z",
		"n": nil,
	}, v.Interface())

	child, ok := v.Get("s")
	require.True(t, ok)
	assert.Equal(t, StringValue, child.Kind())
	_, ok = String("x").Get("s")
	assert.False(t, ok)
}
