// Package content holds the pages and sections of a site and the rules that
// derive their location metadata from the content tree.
package content

import (
	"path/filepath"
	"strings"
)

// IndexName is the stem of a file that represents its whole directory.
const IndexName = "index"

// SectionName is the stem of a section file.
const SectionName = "_index"

// FileInfo is the location metadata of one content file.
type FileInfo struct {
	// Path is the file path as given.
	Path string
	// Parent is the directory the file belongs to. For index bundles this is
	// the bundle's containing directory.
	Parent string
	// Relative is the slash-separated path below the content root and serves
	// as the identity key of the file.
	Relative string
	// Components are the directory names from the content root to Parent.
	Components []string
	// Name is the file stem.
	Name string
}

func newFileInfo(contentDir, path string) FileInfo {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	info := FileInfo{
		Path:     path,
		Parent:   filepath.Dir(path),
		Name:     stem,
		Relative: filepath.Base(path),
	}

	rel, err := filepath.Rel(contentDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return info
	}
	info.Relative = filepath.ToSlash(rel)
	for _, c := range strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/") {
		if c != "" && c != "." {
			info.Components = append(info.Components, c)
		}
	}
	return info
}

// NewPageInfo builds the metadata of a page file. An index file stands for its
// directory, so its parent and components stop one level higher.
func NewPageInfo(contentDir, path string) FileInfo {
	info := newFileInfo(contentDir, path)
	if info.Name == IndexName {
		info.Parent = filepath.Dir(info.Parent)
		if n := len(info.Components); n > 0 {
			info.Components = info.Components[:n-1]
		}
	}
	return info
}

// NewSectionInfo builds the metadata of a section file.
func NewSectionInfo(contentDir, path string) FileInfo {
	return newFileInfo(contentDir, path)
}

// IsIndex reports whether the file is an index-style file that carries the
// assets of its directory.
func (f FileInfo) IsIndex() bool {
	return f.Name == IndexName || f.Name == SectionName
}
