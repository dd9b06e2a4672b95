// Package errors provides the classified error type used across quire.
//
// Every failure that crosses a package boundary carries a Kind so callers can
// decide how to react without matching on message text:
//
//	err := errors.ParseError("content/posts/a.md", "missing front matter delimiter").Build()
//	if errors.IsKind(err, errors.KindParse) { ... }
//
// Kinds survive fmt.Errorf("...: %w") wrapping because lookup goes through errors.As.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sort"
	"strings"
)

// Kind classifies an error.
type Kind string

const (
	KindParse              Kind = "parse"
	KindSchema             Kind = "schema"
	KindIO                 Kind = "io"
	KindBrokenLink         Kind = "broken_link"
	KindTemplate           Kind = "template"
	KindUnclassifiedChange Kind = "unclassified_change"
	KindInternal           Kind = "internal"
)

// Severity indicates whether an error stops the process.
type Severity string

const (
	SeverityError Severity = "error" // fails the current operation
	SeverityFatal Severity = "fatal" // stops execution completely
)

// Context holds structured key/value details attached to an error.
type Context map[string]any

// ClassifiedError is a structured error with a kind, severity and context.
type ClassifiedError struct {
	kind     Kind
	severity Severity
	message  string
	cause    error
	context  Context
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	var b strings.Builder
	b.WriteString(e.message)
	if len(e.context) > 0 {
		keys := make([]string, 0, len(e.context))
		for k := range e.context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.context[k])
		}
		b.WriteString(")")
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped cause.
func (e *ClassifiedError) Unwrap() error { return e.cause }

// Kind returns the error kind.
func (e *ClassifiedError) Kind() Kind { return e.kind }

// Severity returns the error severity.
func (e *ClassifiedError) Severity() Severity { return e.severity }

// Message returns the message without context or cause.
func (e *ClassifiedError) Message() string { return e.message }

// Context returns a copy of the error context.
func (e *ClassifiedError) Context() Context {
	out := make(Context, len(e.context))
	maps.Copy(out, e.context)
	return out
}

// Get returns a single context value.
func (e *ClassifiedError) Get(key string) (any, bool) {
	v, ok := e.context[key]
	return v, ok
}

// IsFatal reports whether the error should stop execution.
func (e *ClassifiedError) IsFatal() bool { return e.severity == SeverityFatal }

// Builder assembles a ClassifiedError.
type Builder struct {
	err ClassifiedError
}

// New starts a builder for the given kind.
func New(kind Kind, message string) *Builder {
	return &Builder{err: ClassifiedError{
		kind:     kind,
		severity: SeverityError,
		message:  message,
		context:  make(Context),
	}}
}

// Wrap starts a builder that wraps cause.
func Wrap(cause error, kind Kind, message string) *Builder {
	return New(kind, message).WithCause(cause)
}

// WithCause sets the wrapped error.
func (b *Builder) WithCause(err error) *Builder {
	b.err.cause = err
	return b
}

// WithContext adds a context value.
func (b *Builder) WithContext(key string, value any) *Builder {
	b.err.context[key] = value
	return b
}

// Fatal marks the error as fatal.
func (b *Builder) Fatal() *Builder {
	b.err.severity = SeverityFatal
	return b
}

// Build returns the finished error.
func (b *Builder) Build() *ClassifiedError {
	e := b.err
	e.context = make(Context, len(b.err.context))
	maps.Copy(e.context, b.err.context)
	return &e
}

// ParseError reports missing or malformed front-matter delimiters.
func ParseError(path, message string) *Builder {
	return New(KindParse, message).WithContext("path", path)
}

// SchemaError reports front matter that decodes but violates the expected field types.
func SchemaError(path, message string) *Builder {
	return New(KindSchema, message).WithContext("path", path)
}

// IOError reports a file read, write or copy failure.
func IOError(path string, cause error) *Builder {
	return Wrap(cause, KindIO, "i/o failure").WithContext("path", path)
}

// BrokenLinkError reports an internal link that did not resolve through the permalink table.
func BrokenLinkError(link, source string) *Builder {
	return New(KindBrokenLink, fmt.Sprintf("broken internal link %q", link)).
		WithContext("link", link).
		WithContext("path", source)
}

// TemplateError wraps a failure from the template engine.
func TemplateError(path string, cause error) *Builder {
	return Wrap(cause, KindTemplate, "template rendering failed").WithContext("path", path)
}

// UnclassifiedChangeError reports a watched-path event outside the known roots.
func UnclassifiedChangeError(path string) *Builder {
	return New(KindUnclassifiedChange, "change detected outside content, templates and static roots").
		WithContext("path", path).
		Fatal()
}

// As finds the first ClassifiedError in err's chain.
func As(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf returns the kind of the first ClassifiedError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	if ce, ok := As(err); ok {
		return ce.kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	ce, ok := As(err)
	return ok && ce.kind == kind
}

// IsFatal reports whether err carries a fatal classification.
func IsFatal(err error) bool {
	ce, ok := As(err)
	return ok && ce.IsFatal()
}
