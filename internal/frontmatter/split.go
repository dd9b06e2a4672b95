package frontmatter

import (
	"regexp"

	"quire/internal/errors"
)

// Format identifies the encoding of a front-matter block.
type Format int

const (
	// TOML front matter is delimited by `+++` lines.
	TOML Format = iota
	// YAML front matter is delimited by `---` lines.
	YAML
)

func (f Format) String() string {
	if f == YAML {
		return "yaml"
	}
	return "toml"
}

// Whitespace may precede the opening delimiter; the closing delimiter is the
// first one found after it.
var (
	tomlRe = regexp.MustCompile(`(?s)^[[:space:]]*\+\+\+\r?\n(.*?)\+\+\+\r?\n?(.*)$`)
	yamlRe = regexp.MustCompile(`(?s)^[[:space:]]*---\r?\n(.*?)---\r?\n?(.*)$`)
)

// Split separates the delimited front-matter block from the body.
// A missing or unterminated block is a parse error; front matter is never optional.
func Split(path, content string) (block string, body string, format Format, err error) {
	if m := tomlRe.FindStringSubmatch(content); m != nil {
		return m[1], m[2], TOML, nil
	}
	if m := yamlRe.FindStringSubmatch(content); m != nil {
		return m[1], m[2], YAML, nil
	}
	return "", "", TOML, errors.ParseError(path,
		"couldn't find front matter: the file must start with a block delimited by `+++` (TOML) or `---` (YAML)").Build()
}
