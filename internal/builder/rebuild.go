package builder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quire/internal/arena"
	"quire/internal/assets"
	"quire/internal/content"
	"quire/internal/errors"
	"quire/internal/library"
	"quire/internal/logging"
	"quire/internal/util"
)

// HandleChange applies one filesystem event to the built site. Editor temp
// files are skipped; a path outside every known root is a fatal error.
func (s *Site) HandleChange(ctx context.Context, path string) (Report, error) {
	if util.IsTempFile(path) {
		return Report{Path: path, Skipped: true}, nil
	}
	kind, err := DetectChangeKind(s.Layout, path)
	if err != nil {
		return Report{Path: path}, err
	}

	start := time.Now()
	var rep Report
	switch kind {
	case ContentChange:
		rep, err = s.RebuildAfterContentChange(ctx, path)
	case TemplateChange:
		rep, err = s.RebuildAfterTemplateChange(ctx, path)
	case StaticChange:
		rep, err = s.CopyStaticFile(ctx, path)
	}
	s.observe(rep, start, err)
	logging.FromContext(ctx).Debug("Change handled", "report", rep.String())
	return rep, err
}

// RebuildAfterContentChange reparses the single file at path and patches the
// library. When no permalink moved, only the entities whose links or listings
// changed are rendered again; otherwise every body is re-rendered against the
// new permalink table without reparsing.
func (s *Site) RebuildAfterContentChange(ctx context.Context, path string) (Report, error) {
	rep := Report{Kind: ContentChange, Path: path}
	info, statErr := os.Stat(path)
	exists := statErr == nil
	if exists && info.IsDir() {
		rep.Skipped = true
		return rep, nil
	}

	if filepath.Ext(path) != ".md" {
		if !exists {
			// A vanished directory takes everything below it along.
			if rel, ok := relativeTo(s.Layout.Content, path); ok && rel != "." {
				removed, err := s.removeContentTree(filepath.ToSlash(rel) + "/")
				if err != nil {
					return rep, err
				}
				if removed > 0 {
					s.Library.Link()
					rep.Relinked = removed
					return s.afterPermalinkChange(ctx, rep)
				}
			}
		}
		// An asset changed: its owner collects assets when parsed.
		for _, owner := range []string{content.IndexName + ".md", content.SectionName + ".md"} {
			candidate := filepath.Join(filepath.Dir(path), owner)
			if _, err := os.Stat(candidate); err == nil {
				ownerRep, err := s.RebuildAfterContentChange(ctx, candidate)
				ownerRep.Path = path
				if err == nil && !exists {
					err = s.removeAssetOutput(candidate, path)
				}
				return ownerRep, err
			}
		}
		rep.Skipped = true
		return rep, nil
	}

	if filepath.Base(path) == content.SectionName+".md" {
		return s.rebuildSection(ctx, rep, path, exists)
	}
	return s.rebuildPage(ctx, rep, path, exists)
}

func (s *Site) rebuildPage(ctx context.Context, rep Report, path string, exists bool) (Report, error) {
	rel := content.NewPageInfo(s.Layout.Content, path).Relative
	k, known := s.Library.PageByRelative(rel)

	var page *content.Page
	if exists {
		p, err := content.PageFromFile(s.Layout.Content, path, s.Config)
		if err != nil {
			return rep, err
		}
		rep.Reparsed = 1
		if !p.IsDraft() || s.opts.Drafts {
			page = p
		}
	}

	if page == nil {
		if !known {
			rep.Skipped = true
			return rep, nil
		}
		old, _ := s.Library.Page(k)
		oldPath, oldAssets := old.Path, old.Assets
		s.Library.RemovePage(k)
		rep.Relinked = 1
		if err := s.removeOutputs(oldPath, oldAssets); err != nil {
			return rep, err
		}
		return s.afterPermalinkChange(ctx, rep)
	}

	var ch library.Changes
	moved := true
	if known {
		old, _ := s.Library.Page(k)
		oldPath := old.Path
		moved = old.Permalink != page.Permalink
		var err error
		if ch, err = s.Library.ReplacePage(k, page); err != nil {
			return rep, err
		}
		if moved {
			if err := s.removeOutput(oldPath); err != nil {
				return rep, err
			}
		}
	} else {
		k, ch = s.Library.AddPage(page)
	}
	rep.Relinked = 1
	if moved {
		return s.afterPermalinkChange(ctx, rep)
	}

	if err := s.renderPageMarkdown(k); err != nil {
		return rep, err
	}
	rep.Markdown = 1
	return s.finishIncremental(ctx, rep, ch, func() (int, error) { return s.copyPageAssets(k) })
}

func (s *Site) rebuildSection(ctx context.Context, rep Report, path string, exists bool) (Report, error) {
	rel := content.NewSectionInfo(s.Layout.Content, path).Relative
	k, known := s.Library.SectionByRelative(rel)

	var sec *content.Section
	if exists {
		parsed, err := content.SectionFromFile(s.Layout.Content, path, s.Config)
		if err != nil {
			return rep, err
		}
		rep.Reparsed = 1
		if !parsed.IsDraft() || s.opts.Drafts {
			sec = parsed
		}
	}

	switch {
	case sec == nil && !known:
		rep.Skipped = true
		return rep, nil
	case sec == nil:
		old, _ := s.Library.Section(k)
		oldPath, oldAssets := old.Path, old.Assets
		s.Library.RemoveSection(k)
		s.Library.Link()
		rep.Relinked = 1
		if err := s.removeOutputs(oldPath, oldAssets); err != nil {
			return rep, err
		}
		return s.afterPermalinkChange(ctx, rep)
	case !known:
		// A new section adopts pages and subsections: relink everything.
		s.Library.InsertSection(sec)
		s.Library.Link()
		rep.Relinked = 1
		return s.afterPermalinkChange(ctx, rep)
	}

	old, _ := s.Library.Section(k)
	anchorsChanged := old.Meta.InsertAnchorLinks != sec.Meta.InsertAnchorLinks
	ch, err := s.Library.ReplaceSection(k, sec)
	if err != nil {
		return rep, err
	}
	rep.Relinked = 1
	if err := s.renderSectionMarkdown(k); err != nil {
		return rep, err
	}
	rep.Markdown = 1
	if anchorsChanged {
		for _, pk := range append(append([]arena.Key{}, sec.Pages...), sec.IgnoredPages...) {
			if err := s.renderPageMarkdown(pk); err != nil {
				return rep, err
			}
			rep.Markdown++
		}
	}
	return s.finishIncremental(ctx, rep, ch, func() (int, error) { return s.copySectionAssets(k) })
}

// removeContentTree drops every page and section whose relative path starts
// with prefix, along with their outputs and copied assets.
func (s *Site) removeContentTree(prefix string) (int, error) {
	removed := 0
	for _, k := range s.Library.PageKeys() {
		p, ok := s.Library.Page(k)
		if !ok || !strings.HasPrefix(p.File.Relative, prefix) {
			continue
		}
		sitePath, files := p.Path, p.Assets
		s.Library.RemovePage(k)
		removed++
		if err := s.removeOutputs(sitePath, files); err != nil {
			return removed, err
		}
	}
	for _, k := range s.Library.SectionKeys() {
		sec, ok := s.Library.Section(k)
		if !ok || !strings.HasPrefix(sec.File.Relative, prefix) {
			continue
		}
		sitePath, files := sec.Path, sec.Assets
		s.Library.RemoveSection(k)
		removed++
		if err := s.removeOutputs(sitePath, files); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// removeAssetOutput deletes the copy of a removed asset next to the output of
// the index file that owned it.
func (s *Site) removeAssetOutput(owner, asset string) error {
	var sitePath string
	if filepath.Base(owner) == content.SectionName+".md" {
		k, ok := s.Library.SectionByRelative(content.NewSectionInfo(s.Layout.Content, owner).Relative)
		if sec, found := s.Library.Section(k); ok && found {
			sitePath = sec.Path
		}
	} else {
		k, ok := s.Library.PageByRelative(content.NewPageInfo(s.Layout.Content, owner).Relative)
		if p, found := s.Library.Page(k); ok && found {
			sitePath = p.Path
		}
	}
	if sitePath == "" {
		return nil
	}
	return s.removeCopiedAssets(sitePath, []string{asset})
}

// finishIncremental writes the changed entities, their assets and the sitemap.
func (s *Site) finishIncremental(ctx context.Context, rep Report, ch library.Changes, copyAssets func() (int, error)) (Report, error) {
	n, err := s.renderKeys(ctx, ch)
	rep.Rendered = n
	if err != nil {
		return rep, err
	}
	copied, err := copyAssets()
	rep.Copied = copied
	if err != nil {
		return rep, err
	}
	return rep, s.writeSitemap()
}

// afterPermalinkChange rebuilds the permalink table, then renders every body
// and every output, since any internal link may now resolve differently.
func (s *Site) afterPermalinkChange(ctx context.Context, rep Report) (Report, error) {
	if err := s.Library.BuildPermalinks(); err != nil {
		return rep, err
	}
	n, err := s.renderAllMarkdown()
	rep.Markdown = n
	if err != nil {
		return rep, err
	}
	if rep.Rendered, err = s.renderAll(ctx); err != nil {
		return rep, err
	}
	copied, err := s.copyAllContentAssets()
	rep.Copied = copied
	if err != nil {
		return rep, err
	}
	return rep, s.writeSitemap()
}

// RebuildAfterTemplateChange reloads the templates and renders every output
// again. Nothing is reparsed; a shortcode change also re-renders markdown.
func (s *Site) RebuildAfterTemplateChange(ctx context.Context, path string) (Report, error) {
	rep := Report{Kind: TemplateChange, Path: path}
	if err := s.Templates.Reload(); err != nil {
		return rep, err
	}
	if rel, ok := relativeTo(s.Layout.Templates, path); ok && strings.HasPrefix(filepath.ToSlash(rel), "shortcodes/") {
		n, err := s.renderAllMarkdown()
		rep.Markdown = n
		if err != nil {
			return rep, err
		}
	}
	n, err := s.renderAll(ctx)
	rep.Rendered = n
	return rep, err
}

// CopyStaticFile mirrors one changed path of the static directory. A removed
// file is removed from the output; a new directory is copied whole.
func (s *Site) CopyStaticFile(ctx context.Context, path string) (Report, error) {
	rep := Report{Kind: StaticChange, Path: path}
	rel, ok := relativeTo(s.Layout.Static, path)
	if !ok || rel == "." {
		rep.Skipped = true
		return rep, nil
	}
	dest := filepath.Join(s.Layout.Output, rel)

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		if err := os.RemoveAll(dest); err != nil {
			return rep, errors.IOError(dest, err).WithContext("op", "remove").Build()
		}
		return rep, nil
	case err != nil:
		return rep, errors.IOError(path, err).WithContext("op", "stat").Build()
	case info.IsDir():
		n, err := assets.CopyDirectory(path, dest, s.staticOptions())
		rep.Copied = n
		return rep, err
	}

	logging.FromContext(ctx).Debug("Copying static file", "path", rel, "stale", assets.FileStale(path, dest))
	wrote, err := assets.CopyIfNeeded(path, dest, s.staticOptions())
	if wrote {
		rep.Copied = 1
	}
	return rep, err
}
