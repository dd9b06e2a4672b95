// Package frontmatter splits content files into their metadata header and body
// and decodes the header into page or section metadata.
package frontmatter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"quire/internal/errors"
)

// InsertAnchor controls where heading anchor links are inserted.
type InsertAnchor string

const (
	AnchorNone  InsertAnchor = "none"
	AnchorLeft  InsertAnchor = "left"
	AnchorRight InsertAnchor = "right"
)

// SortBy selects how a section orders its direct pages.
type SortBy string

const (
	SortNone   SortBy = "none"
	SortDate   SortBy = "date"
	SortWeight SortBy = "weight"
)

// PageFrontMatter is the metadata block of a page.
type PageFrontMatter struct {
	Title       *string
	Description *string
	Date        *time.Time
	Weight      *int
	Slug        *string
	Path        *string
	Template    *string
	Draft       bool
	Taxonomies  map[string][]string
	Extra       map[string]Value
}

// DateParts returns year, month and day of the date, if any.
func (fm PageFrontMatter) DateParts() (year, month, day int, ok bool) {
	if fm.Date == nil {
		return 0, 0, 0, false
	}
	y, m, d := fm.Date.Date()
	return y, int(m), d, true
}

// SectionFrontMatter is the metadata block of a section.
type SectionFrontMatter struct {
	Title             *string
	Description       *string
	Weight            *int
	Template          *string
	Draft             bool
	SortBy            SortBy
	InsertAnchorLinks InsertAnchor
	Extra             map[string]Value
}

// ParsePage splits content and decodes a page front matter.
func ParsePage(path, content string) (PageFrontMatter, string, error) {
	fields, body, err := splitAndDecode(path, content)
	if err != nil {
		return PageFrontMatter{}, "", err
	}
	d := decoder{path: path, fields: fields}
	fm := PageFrontMatter{
		Title:       d.optString("title"),
		Description: d.optString("description"),
		Date:        d.optDate("date"),
		Weight:      d.optInt("weight"),
		Slug:        d.optString("slug"),
		Path:        d.optString("path"),
		Template:    d.optString("template"),
		Draft:       d.boolean("draft"),
		Taxonomies:  d.taxonomies("taxonomies"),
		Extra:       d.extra("extra"),
	}
	if d.err != nil {
		return PageFrontMatter{}, "", d.err
	}
	return fm, body, nil
}

// ParseSection splits content and decodes a section front matter.
func ParseSection(path, content string) (SectionFrontMatter, string, error) {
	fields, body, err := splitAndDecode(path, content)
	if err != nil {
		return SectionFrontMatter{}, "", err
	}
	d := decoder{path: path, fields: fields}
	fm := SectionFrontMatter{
		Title:             d.optString("title"),
		Description:       d.optString("description"),
		Weight:            d.optInt("weight"),
		Template:          d.optString("template"),
		Draft:             d.boolean("draft"),
		SortBy:            SortBy(d.enum("sort_by", string(SortNone), string(SortNone), string(SortDate), string(SortWeight))),
		InsertAnchorLinks: InsertAnchor(d.enum("insert_anchor_links", string(AnchorNone), string(AnchorNone), string(AnchorLeft), string(AnchorRight))),
		Extra:             d.extra("extra"),
	}
	if d.err != nil {
		return SectionFrontMatter{}, "", d.err
	}
	return fm, body, nil
}

func splitAndDecode(path, content string) (map[string]any, string, error) {
	block, body, format, err := Split(path, content)
	if err != nil {
		return nil, "", err
	}
	fields := map[string]any{}
	switch format {
	case TOML:
		if _, err := toml.Decode(block, &fields); err != nil {
			return nil, "", errors.SchemaError(path, "invalid TOML front matter").WithCause(err).Build()
		}
	case YAML:
		if err := yaml.Unmarshal([]byte(block), &fields); err != nil {
			return nil, "", errors.SchemaError(path, "invalid YAML front matter").WithCause(err).Build()
		}
		if fields == nil {
			fields = map[string]any{}
		}
	}
	return fields, body, nil
}

// decoder extracts typed fields, keeping the first schema violation.
type decoder struct {
	path   string
	fields map[string]any
	err    error
}

func (d *decoder) fail(field, format string, args ...any) {
	if d.err != nil {
		return
	}
	d.err = errors.SchemaError(d.path, fmt.Sprintf(format, args...)).WithContext("field", field).Build()
}

func (d *decoder) optString(key string) *string {
	raw, ok := d.fields[key]
	if !ok || raw == nil {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		d.fail(key, "%s must be a string, got %T", key, raw)
		return nil
	}
	return &s
}

func (d *decoder) optInt(key string) *int {
	raw, ok := d.fields[key]
	if !ok || raw == nil {
		return nil
	}
	var n int
	switch x := raw.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case uint64:
		n = int(x)
	default:
		d.fail(key, "%s must be an integer, got %T", key, raw)
		return nil
	}
	return &n
}

func (d *decoder) boolean(key string) bool {
	raw, ok := d.fields[key]
	if !ok || raw == nil {
		return false
	}
	b, ok := raw.(bool)
	if !ok {
		d.fail(key, "%s must be a boolean, got %T", key, raw)
	}
	return b
}

func (d *decoder) optDate(key string) *time.Time {
	raw, ok := d.fields[key]
	if !ok || raw == nil {
		return nil
	}
	switch x := raw.(type) {
	case time.Time:
		return &x
	case string:
		t, err := ParseDate(x)
		if err != nil {
			d.fail(key, "%s: %v", key, err)
			return nil
		}
		return &t
	default:
		d.fail(key, "%s must be a date, got %T", key, raw)
		return nil
	}
}

func (d *decoder) enum(key, def string, allowed ...string) string {
	s := d.optString(key)
	if s == nil {
		return def
	}
	for _, a := range allowed {
		if *s == a {
			return a
		}
	}
	d.fail(key, "%s must be one of %s, got %q", key, strings.Join(allowed, ", "), *s)
	return def
}

func (d *decoder) taxonomies(key string) map[string][]string {
	out := map[string][]string{}
	raw, ok := d.fields[key]
	if !ok || raw == nil {
		return out
	}
	table, ok := raw.(map[string]any)
	if !ok {
		d.fail(key, "%s must be a table of lists, got %T", key, raw)
		return out
	}
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		list, ok := table[name].([]any)
		if !ok {
			d.fail(key, "%s.%s must be a list of strings, got %T", key, name, table[name])
			return out
		}
		terms := make([]string, 0, len(list))
		for _, item := range list {
			term, ok := item.(string)
			if !ok {
				d.fail(key, "%s.%s must be a list of strings, found %T", key, name, item)
				return out
			}
			terms = append(terms, term)
		}
		out[name] = terms
	}
	return out
}

func (d *decoder) extra(key string) map[string]Value {
	out := map[string]Value{}
	raw, ok := d.fields[key]
	if !ok || raw == nil {
		return out
	}
	v, err := FromAny(raw)
	if err != nil {
		d.fail(key, "%s: %v", key, err)
		return out
	}
	entries, ok := v.Entries()
	if !ok {
		d.fail(key, "%s must be a table, got %T", key, raw)
		return out
	}
	return entries
}
