// internal/scaffold/scaffold.go
package scaffold

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"quire/internal/config"
	"quire/internal/errors"
	"quire/internal/logging"
	"quire/internal/util"
)

// CreateNewSite writes a site skeleton that builds as is.
func CreateNewSite(ctx context.Context, name string) error {
	logger := logging.FromContext(ctx)
	if entries, err := os.ReadDir(name); err == nil && len(entries) > 0 {
		return errors.New(errors.KindIO, "destination is not empty").WithContext("path", name).Build()
	}
	logger.Info("Scaffolding new site", "path", name)

	layout := config.NewLayout(name)
	for _, dir := range []string{layout.Content, layout.Templates, layout.Static, filepath.Join(name, "archetypes")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.IOError(dir, err).WithContext("op", "mkdir").Build()
		}
	}

	files := map[string]string{
		"site.yaml":                      siteYamlContent,
		"content/_index.md":              rootSectionContent,
		"content/posts/_index.md":        postsSectionContent,
		"content/posts/hello-world.md":   firstPostContent,
		"templates/partials/head.html":   templateHeadContent,
		"templates/index.html":           templateIndexContent,
		"templates/section.html":         templateSectionContent,
		"templates/page.html":            templatePageContent,
		"templates/shortcodes/note.html": templateNoteContent,
		"static/css/style.css":           staticCssContent,
		"archetypes/default.md":          archetypeDefaultMdContent,
	}
	for rel, content := range files {
		if err := writeFile(filepath.Join(name, filepath.FromSlash(rel)), content); err != nil {
			return err
		}
	}
	logger.Info("Site scaffolded. You can now:")
	logger.Info("  cd " + name)
	logger.Info("  quire serve")
	return nil
}

// CreateNewContent writes content/<section>/<slug>.md from the site's
// archetype and returns its path.
func CreateNewContent(ctx context.Context, root, section, title string) (string, error) {
	path := filepath.Join(root, "content", filepath.FromSlash(section), util.Slugify(title)+".md")
	if _, err := os.Stat(path); err == nil {
		return "", errors.New(errors.KindIO, "content file already exists").WithContext("path", path).Build()
	}

	archetypePath := filepath.Join(root, "archetypes", "default.md")
	tmplText := archetypeDefaultMdContent
	if data, err := os.ReadFile(archetypePath); err == nil {
		tmplText = string(data)
	}
	tmpl, err := template.New("archetype").Parse(tmplText)
	if err != nil {
		return "", errors.TemplateError(archetypePath, err).Build()
	}

	data := struct {
		Title string
		Date  string
	}{
		Title: title,
		Date:  time.Now().Format("2006-01-02"),
	}
	var output bytes.Buffer
	if err := tmpl.Execute(&output, data); err != nil {
		return "", errors.TemplateError(archetypePath, err).Build()
	}
	if err := writeFile(path, output.String()); err != nil {
		return "", err
	}
	logging.FromContext(ctx).Info("Created", "path", path)
	return path, nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.IOError(path, err).WithContext("op", "mkdir").Build()
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.IOError(path, err).WithContext("op", "write").Build()
	}
	return nil
}

// Constants for default file contents
const siteYamlContent = `base_url: http://localhost:1111
title: My Site
description: A new site powered by quire.
ignored_content: []
generate_sitemap: true
ordering:
  date: site
  weight: section
`

const rootSectionContent = `+++
title = "Home"
+++
Welcome to your new site.
`

const postsSectionContent = `+++
title = "Posts"
sort_by = "date"
insert_anchor_links = "right"
+++
`

const firstPostContent = `+++
title = "Hello, world"
date = 2024-01-01
+++
This is the first post. Everything before the marker below is the summary.

<!-- more -->

## Next steps

Read the [home page](./_index.md), then edit this file.

{{ note(text="Shortcodes live in templates/shortcodes.") }}
`

const archetypeDefaultMdContent = `+++
title = "{{.Title}}"
date = {{.Date}}
draft = true
+++

Write something meaningful here.
`

const templateHeadContent = `<head>
  <meta charset="utf-8">
  <title>{{ .title }} | {{ .config.Title }}</title>
  <meta name="description" content="{{ .config.Description }}">
  <link rel="stylesheet" href="{{ getURL "css/style.css" true }}">
</head>
`

const templateIndexContent = `<!DOCTYPE html>
<html lang="en">
{{ template "partials/head.html" (dict "title" .section.Title "config" .config) }}
<body>
  <h1>{{ .config.Title }}</h1>
  {{ .section.Content }}
  <ul>
  {{ range .section.Subsections }}
    <li><a href="{{ .Permalink }}">{{ .Title }}</a></li>
  {{ end }}
  {{ range .section.Pages }}
    <li><a href="{{ .Permalink }}">{{ .Title }}</a></li>
  {{ end }}
  </ul>
</body>
</html>
`

const templateSectionContent = `<!DOCTYPE html>
<html lang="en">
{{ template "partials/head.html" (dict "title" .section.Title "config" .config) }}
<body>
  <p><a href="{{ getURL "/" }}">{{ .config.Title }}</a></p>
  <h1>{{ .section.Title }}</h1>
  {{ .section.Content }}
  {{ range .section.Pages }}
  <article>
    <h2><a href="{{ .Permalink }}">{{ .Title }}</a></h2>
    {{ if .Date }}<time>{{ .Year }}-{{ .Month }}-{{ .Day }}</time>{{ end }}
    {{ if .HasSummary }}{{ .Summary }}<a href="{{ .Permalink }}">Read more</a>{{ end }}
  </article>
  {{ end }}
</body>
</html>
`

const templatePageContent = `<!DOCTYPE html>
<html lang="en">
{{ template "partials/head.html" (dict "title" .page.Title "config" .config) }}
<body>
  <p><a href="{{ getURL "/" }}">{{ .config.Title }}</a></p>
  <h1>{{ .page.Title }}</h1>
  <p>{{ .page.WordCount }} words, {{ .page.ReadingTime }} min read</p>
  {{ if .page.TOC }}
  <nav><ul>{{ range .page.TOC }}<li><a href="{{ .Permalink }}">{{ .Title }}</a></li>{{ end }}</ul></nav>
  {{ end }}
  {{ .page.Content }}
  <footer>
    {{ with .page.Later }}<a href="{{ .Permalink }}">Newer: {{ .Title }}</a>{{ end }}
    {{ with .page.Earlier }}<a href="{{ .Permalink }}">Older: {{ .Title }}</a>{{ end }}
  </footer>
</body>
</html>
`

const templateNoteContent = `<aside class="note">{{ .text }}</aside>`

const staticCssContent = `body {
  font-family: sans-serif;
  max-width: 700px;
  margin: 2em auto;
  padding: 0 1em;
  line-height: 1.6;
  color: #222;
  background: #fdfdfd;
}
a.anchor { margin-left: 0.3em; color: #aaa; text-decoration: none; }
aside.note { border-left: 3px solid #ccc; padding-left: 1em; color: #555; }
footer { display: flex; justify-content: space-between; margin-top: 3em; }
`
