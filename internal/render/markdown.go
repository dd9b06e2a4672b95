// Package render turns markdown bodies into HTML, a summary and a table of
// contents, resolving internal links against the site permalink table.
package render

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"quire/internal/errors"
	"quire/internal/frontmatter"
)

// SummaryMarker separates the summary from the rest of a body.
const SummaryMarker = "<!-- more -->"

var (
	markdownRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(newLinkResolver(), 100),
				util.Prioritized(newHeadingCollector(), 200),
			),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
	htmlSanitizer = newSanitizer()
)

// newSanitizer keeps heading anchors intact and leaves the site's own links
// followable.
func newSanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(false)
	p.AllowAttrs("class", "aria-label").OnElements("a")
	return p
}

// Context carries the per-document inputs of a render.
type Context struct {
	// Permalinks maps content-relative identities to permalinks.
	Permalinks       map[string]string
	CurrentPermalink string
	InsertAnchor     frontmatter.InsertAnchor
	// Unsafe disables HTML sanitizing.
	Unsafe     bool
	Shortcodes ShortcodeFunc
	// Source names the file being rendered, for error reporting.
	Source string
}

// Result is the output of a markdown render.
type Result struct {
	Body       string
	Summary    string
	HasSummary bool
	TOC        []Header
}

// Markdown renders content. The permalink table in ctx is only read.
func Markdown(content string, ctx *Context) (*Result, error) {
	if ctx == nil {
		ctx = &Context{}
	}

	expanded, err := expandShortcodes(content, ctx)
	if err != nil {
		return nil, err
	}

	st := &renderState{ctx: ctx}
	pc := parser.NewContext()
	pc.Set(renderStateKey, st)

	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(expanded), &buf, parser.WithContext(pc)); err != nil {
		return nil, errors.ParseError(ctx.Source, "markdown conversion failed").WithCause(err).Build()
	}
	if st.err != nil {
		return nil, st.err
	}

	body := buf.String()
	res := &Result{TOC: makeTOC(st.headers)}
	if i := strings.Index(body, SummaryMarker); i >= 0 {
		res.Summary = body[:i]
		res.HasSummary = true
	}
	if !ctx.Unsafe {
		body = htmlSanitizer.Sanitize(body)
		if res.HasSummary {
			res.Summary = htmlSanitizer.Sanitize(res.Summary)
		}
	}
	res.Body = body
	return res, nil
}
