// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Scope decides which pages share one ordering.
type Scope string

const (
	// ScopeSite links every eligible page of the site into a single ordering.
	ScopeSite Scope = "site"
	// ScopeSection links pages only with siblings under the same parent section.
	ScopeSection Scope = "section"
)

// Ordering selects the scope of each page ordering.
type Ordering struct {
	Date   Scope `yaml:"date"`
	Weight Scope `yaml:"weight"`
}

// SiteConfig holds the configuration from the site.yaml file.
// The `yaml` tags are used by the parser to map file keys to struct fields.
type SiteConfig struct {
	BaseURL         string         `yaml:"base_url"`
	Title           string         `yaml:"title"`
	Description     string         `yaml:"description"`
	IgnoredContent  []string       `yaml:"ignored_content"`
	HardLinkStatic  bool           `yaml:"hard_link_static"`
	OptimizePNG     int            `yaml:"optimize_png"`
	UnsafeHTML      bool           `yaml:"unsafe_html"`
	GenerateSitemap *bool          `yaml:"generate_sitemap"`
	Ordering        Ordering       `yaml:"ordering"`
	Extra           map[string]any `yaml:"extra"`

	// BuildTimestamp is set when a build starts and used for cache busting URLs.
	BuildTimestamp int64 `yaml:"-"`

	ignoredGlobs []glob.Glob
}

// Default returns the configuration used when a key is absent from site.yaml.
func Default() *SiteConfig {
	cfg := &SiteConfig{
		BaseURL: "http://a-website.com",
	}
	if err := cfg.normalize(); err != nil {
		panic(err)
	}
	return cfg
}

// LoadSiteConfig reads and validates the YAML configuration at path.
func LoadSiteConfig(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes.
func Parse(data []byte) (*SiteConfig, error) {
	cfg := &SiteConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *SiteConfig) normalize() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.OptimizePNG < 0 || c.OptimizePNG > 6 {
		return fmt.Errorf("optimize_png must be between 0 and 6, got %d", c.OptimizePNG)
	}
	switch c.Ordering.Date {
	case "":
		c.Ordering.Date = ScopeSite
	case ScopeSite, ScopeSection:
	default:
		return fmt.Errorf("ordering.date must be %q or %q, got %q", ScopeSite, ScopeSection, c.Ordering.Date)
	}
	switch c.Ordering.Weight {
	case "":
		c.Ordering.Weight = ScopeSection
	case ScopeSite, ScopeSection:
	default:
		return fmt.Errorf("ordering.weight must be %q or %q, got %q", ScopeSite, ScopeSection, c.Ordering.Weight)
	}
	if c.Extra == nil {
		c.Extra = map[string]any{}
	}
	return c.SetIgnoredContent(c.IgnoredContent)
}

// SetIgnoredContent replaces the ignore patterns and compiles them.
func (c *SiteConfig) SetIgnoredContent(patterns []string) error {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return fmt.Errorf("invalid ignored_content pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	c.IgnoredContent = patterns
	c.ignoredGlobs = globs
	return nil
}

// IsIgnored reports whether a file name matches one of the ignored_content globs.
// Only the name is matched, never a directory-relative path.
func (c *SiteConfig) IsIgnored(fileName string) bool {
	for _, g := range c.ignoredGlobs {
		if g.Match(fileName) {
			return true
		}
	}
	return false
}

// SitemapEnabled reports whether sitemap.xml should be written.
func (c *SiteConfig) SitemapEnabled() bool {
	return c.GenerateSitemap == nil || *c.GenerateSitemap
}

// MakePermalink joins the base URL and a site path, adding a trailing slash
// unless path is empty or already ends with one.
func (c *SiteConfig) MakePermalink(path string) string {
	trailing := "/"
	if path == "" || strings.HasSuffix(path, "/") {
		trailing = ""
	}
	base := c.BaseURL
	switch {
	case path == "/" && strings.HasSuffix(base, "/"):
		return base
	case path == "/":
		return base + "/"
	case strings.HasSuffix(base, "/") && strings.HasPrefix(path, "/"):
		return base + path[1:] + trailing
	case strings.HasSuffix(base, "/"), strings.HasPrefix(path, "/"):
		return base + path + trailing
	default:
		return base + "/" + path + trailing
	}
}

// StampBuild records the current time as the build timestamp.
func (c *SiteConfig) StampBuild() {
	c.BuildTimestamp = time.Now().Unix()
}

// Layout holds the fixed directory structure of a site.
type Layout struct {
	Root      string
	Content   string
	Templates string
	Static    string
	Output    string
}

// NewLayout derives the standard directories below root.
func NewLayout(root string) Layout {
	return Layout{
		Root:      root,
		Content:   filepath.Join(root, "content"),
		Templates: filepath.Join(root, "templates"),
		Static:    filepath.Join(root, "static"),
		Output:    filepath.Join(root, "public"),
	}
}
