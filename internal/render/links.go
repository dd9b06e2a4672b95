package render

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"quire/internal/errors"
)

// InternalLinkPrefix marks a link destination as a content-relative identity.
const InternalLinkPrefix = "./"

// ResolveInternalLink turns `./posts/intro.md#part` into the permalink of
// posts/intro.md with the fragment appended.
func ResolveInternalLink(link string, permalinks map[string]string) (string, error) {
	target := strings.TrimPrefix(link, InternalLinkPrefix)
	anchor := ""
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target, anchor = target[:i], target[i:]
	}
	permalink, ok := permalinks[target]
	if !ok {
		return "", fmt.Errorf("relative link %s not found", link)
	}
	return permalink + anchor, nil
}

var (
	renderStateKey = parser.NewContextKey()
)

// renderState travels through the goldmark parser context so transformers can
// read per-document inputs and report failures.
type renderState struct {
	ctx     *Context
	headers []Header
	err     error
}

func stateFrom(pc parser.Context) *renderState {
	st, _ := pc.Get(renderStateKey).(*renderState)
	return st
}

// linkResolver walks the document and rewrites internal links to permalinks.
type linkResolver struct{}

func newLinkResolver() parser.ASTTransformer {
	return &linkResolver{}
}

// Transform rewrites `./` link destinations and records the first unresolved one.
func (t *linkResolver) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	st := stateFrom(pc)
	if st == nil {
		return
	}
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		dest := string(link.Destination)
		if !strings.HasPrefix(dest, InternalLinkPrefix) {
			return ast.WalkContinue, nil
		}
		resolved, err := ResolveInternalLink(dest, st.ctx.Permalinks)
		if err != nil {
			if st.err == nil {
				st.err = errors.BrokenLinkError(dest, st.ctx.Source).WithCause(err).Build()
			}
			return ast.WalkContinue, nil
		}
		link.Destination = []byte(resolved)
		return ast.WalkContinue, nil
	})
}
