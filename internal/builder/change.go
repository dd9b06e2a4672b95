package builder

import (
	"path/filepath"
	"strings"

	"quire/internal/config"
	"quire/internal/errors"
)

// ChangeKind classifies a filesystem event by the root it happened under.
type ChangeKind int

const (
	ContentChange ChangeKind = iota + 1
	TemplateChange
	StaticChange
)

func (k ChangeKind) String() string {
	switch k {
	case ContentChange:
		return "content"
	case TemplateChange:
		return "template"
	case StaticChange:
		return "static"
	default:
		return "build"
	}
}

// DetectChangeKind maps path to the site root that contains it. A path under
// none of them is a fatal error: the watcher is out of sync with the layout.
func DetectChangeKind(layout config.Layout, path string) (ChangeKind, error) {
	switch {
	case within(layout.Templates, path):
		return TemplateChange, nil
	case within(layout.Content, path):
		return ContentChange, nil
	case within(layout.Static, path):
		return StaticChange, nil
	}
	return 0, errors.UnclassifiedChangeError(path).Build()
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, ok := relativeTo(root, path)
	return ok && (rel == "." || !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "..")
}

func relativeTo(root, path string) (string, bool) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return "", false
	}
	return rel, true
}
