package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"quire/internal/frontmatter"
)

// Header is one entry of a table of contents.
type Header struct {
	Level     int      `json:"level"`
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Permalink string   `json:"permalink"`
	Children  []Header `json:"children"`
}

// headingCollector records every heading and inserts anchor links when asked to.
type headingCollector struct{}

func newHeadingCollector() parser.ASTTransformer {
	return &headingCollector{}
}

func (t *headingCollector) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	st := stateFrom(pc)
	if st == nil {
		return
	}
	source := reader.Source()
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		id := ""
		if raw, ok := heading.AttributeString("id"); ok {
			if b, ok := raw.([]byte); ok {
				id = string(b)
			}
		}
		st.headers = append(st.headers, Header{
			Level:     heading.Level,
			ID:        id,
			Title:     nodeText(heading, source),
			Permalink: fmt.Sprintf("%s#%s", st.ctx.CurrentPermalink, id),
		})
		if id != "" {
			insertAnchor(heading, id, st.ctx.InsertAnchor)
		}
		return ast.WalkSkipChildren, nil
	})
}

func insertAnchor(heading *ast.Heading, id string, mode frontmatter.InsertAnchor) {
	if mode != frontmatter.AnchorLeft && mode != frontmatter.AnchorRight {
		return
	}
	anchor := ast.NewString([]byte(fmt.Sprintf(
		`<a class="anchor" href="#%s" aria-label="Anchor link for: %s">#</a>`,
		html.EscapeString(id), html.EscapeString(id))))
	anchor.SetCode(true)
	if mode == frontmatter.AnchorLeft && heading.FirstChild() != nil {
		heading.InsertBefore(heading, heading.FirstChild(), anchor)
		return
	}
	heading.AppendChild(heading, anchor)
}

// nodeText concatenates the literal text below n.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			if !v.IsCode() {
				buf.Write(v.Value)
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// makeTOC nests a flat, document-ordered list of headers by level.
func makeTOC(flat []Header) []Header {
	var out []Header
	for i := 0; i < len(flat); {
		h := flat[i]
		j := i + 1
		for j < len(flat) && flat[j].Level > h.Level {
			j++
		}
		h.Children = makeTOC(flat[i+1 : j])
		out = append(out, h)
		i = j
	}
	return out
}
