// internal/builder/models.go
package builder

import "fmt"

// Options control a build.
type Options struct {
	// CleanDestination empties the output directory before a full build.
	CleanDestination bool
	// Unsafe skips HTML sanitizing of rendered markdown.
	Unsafe bool
	// Drafts includes pages and sections marked draft.
	Drafts bool
}

// Report describes the work done by a full build or an incremental rebuild.
type Report struct {
	Kind ChangeKind
	Path string
	// Skipped is set when the event needed no work, such as an editor temp file.
	Skipped bool

	Reparsed int // files parsed again
	Relinked int // library updates
	Markdown int // markdown bodies rendered
	Rendered int // HTML files written through templates
	Copied   int // static files and assets written
}

func (r Report) String() string {
	if r.Skipped {
		return fmt.Sprintf("%s %s: skipped", r.Kind, r.Path)
	}
	return fmt.Sprintf("%s %s: reparsed=%d relinked=%d markdown=%d rendered=%d copied=%d",
		r.Kind, r.Path, r.Reparsed, r.Relinked, r.Markdown, r.Rendered, r.Copied)
}
