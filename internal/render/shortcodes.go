package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"quire/internal/errors"
)

// ShortcodeFunc renders the shortcode name with its arguments to HTML.
type ShortcodeFunc func(name string, args map[string]any) (string, error)

var (
	shortcodeLineRe = regexp.MustCompile(`^\s*\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\((.*)\)\s*\}\}\s*$`)
	shortcodeArgRe  = regexp.MustCompile(`\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*("(?:[^"\\]|\\.)*"|'[^']*'|[^,\s]+)\s*(?:,|$)`)
)

// expandShortcodes replaces every line made of a single `{{ name(args) }}` call
// outside fenced code blocks with the rendered shortcode.
func expandShortcodes(content string, ctx *Context) (string, error) {
	if ctx.Shortcodes == nil || !strings.Contains(content, "{{") {
		return content, nil
	}

	lines := strings.SplitAfter(content, "\n")
	fence := ""
	var out strings.Builder
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if fence == "" && (strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")) {
			fence = trimmed[:3]
		} else if fence != "" && strings.HasPrefix(trimmed, fence) {
			fence = ""
		} else if fence == "" {
			if m := shortcodeLineRe.FindStringSubmatch(line); m != nil {
				args, err := parseShortcodeArgs(m[2])
				if err != nil {
					return "", errors.ParseError(ctx.Source, fmt.Sprintf("invalid shortcode %s", m[1])).WithCause(err).Build()
				}
				rendered, err := ctx.Shortcodes(m[1], args)
				if err != nil {
					return "", errors.TemplateError(ctx.Source, err).WithContext("shortcode", m[1]).Build()
				}
				out.WriteString(rendered)
				if strings.HasSuffix(line, "\n") {
					out.WriteString("\n")
				}
				continue
			}
		}
		out.WriteString(line)
	}
	return out.String(), nil
}

func parseShortcodeArgs(raw string) (map[string]any, error) {
	args := make(map[string]any)
	rest := strings.TrimSpace(raw)
	for rest != "" {
		loc := shortcodeArgRe.FindStringSubmatchIndex(rest)
		if loc == nil || loc[0] != 0 {
			return nil, fmt.Errorf("cannot parse arguments %q", raw)
		}
		key := rest[loc[2]:loc[3]]
		args[key] = shortcodeValue(rest[loc[4]:loc[5]])
		rest = strings.TrimSpace(rest[loc[1]:])
	}
	return args, nil
}

func shortcodeValue(v string) any {
	switch {
	case strings.HasPrefix(v, `"`):
		if s, err := strconv.Unquote(v); err == nil {
			return s
		}
		return strings.Trim(v, `"`)
	case strings.HasPrefix(v, "'"):
		return strings.Trim(v, "'")
	case v == "true":
		return true
	case v == "false":
		return false
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}
