package util

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"

	"quire/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFile returns the content of path with a leading UTF-8 byte order mark removed.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.IOError(path, err).WithContext("op", "read").Build()
	}
	return string(bytes.TrimPrefix(data, utf8BOM)), nil
}

// WordsPerMinute is the reading speed used for reading time estimates.
const WordsPerMinute = 200

// ReadingAnalytics returns the whitespace-separated word count of content and
// the estimated reading time in minutes, rounded up.
func ReadingAnalytics(content string) (wordCount, readingTime int) {
	wordCount = len(strings.Fields(content))
	readingTime = int(math.Ceil(float64(wordCount) / WordsPerMinute))
	return wordCount, readingTime
}

// IsTempFile reports whether path looks like a file written by an editor or the OS
// as part of saving, rather than a real content change.
func IsTempFile(path string) bool {
	base := filepath.Base(path)
	if base == ".DS_STORE" || base == ".DS_Store" {
		return true
	}
	if strings.HasPrefix(base, "#") || strings.HasSuffix(base, "~") {
		return true
	}
	for _, suffix := range []string{"___jb_old___", "___jb_tmp___", "___jb_bak___"} {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	switch filepath.Ext(base) {
	case ".swp", ".swx", ".tmp":
		return true
	}
	return false
}
