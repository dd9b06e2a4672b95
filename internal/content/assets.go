package content

import (
	"os"
	"path/filepath"
	"sort"

	"quire/internal/config"
	"quire/internal/errors"
)

// findRelatedAssets returns the non-markdown files directly inside dir that are
// not matched by an ignored_content glob. The scan is not recursive and globs
// only see file names.
func findRelatedAssets(dir string, cfg *config.SiteConfig) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.IOError(dir, err).WithContext("op", "scan assets").Build()
	}
	var assets []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) == ".md" {
			continue
		}
		if cfg != nil && cfg.IsIgnored(name) {
			continue
		}
		assets = append(assets, filepath.Join(dir, name))
	}
	sort.Strings(assets)
	return assets, nil
}

// assetURLs maps asset files to site paths below the owner's path.
func assetURLs(path string, assets []string) []string {
	urls := make([]string, 0, len(assets))
	for _, a := range assets {
		urls = append(urls, path+filepath.Base(a))
	}
	return urls
}
