package extractors

import (
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// textExtensions are extensions read as plain text regardless of the
// platform MIME table.
var textExtensions = map[string]bool{
	".txt":  true,
	".text": true,
	".md":   true,
	".log":  true,
}

// MediaTypeForPath guesses a media type from a file extension.
// Unknown extensions return an empty string so the registry sniffs the content.
func MediaTypeForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return domain.MediaTypePDF
	case textExtensions[ext]:
		return domain.MediaTypePlainText
	case ext == "":
		return ""
	}

	mt := mime.TypeByExtension(ext)
	if mt == "" {
		return ""
	}
	return domain.BaseMediaType(mt)
}

// IsSupportedPath reports whether a file extension maps to an extractable type.
func IsSupportedPath(path string) bool {
	return domain.IsSupportedMediaType(MediaTypeForPath(path))
}

// LoadDocument reads a file from disk into a document named after its base name.
func LoadDocument(path string) (domain.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return domain.Document{
		Filename:  filepath.Base(path),
		MediaType: MediaTypeForPath(path),
		Content:   content,
	}, nil
}

// ExpandPaths resolves files and directories into a sorted list of files.
// Directories are walked recursively and contribute only supported files;
// hidden entries below a directory are skipped. Explicit file arguments are
// kept as given so unsupported types surface as skipped documents.
func ExpandPaths(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && IsSupportedPath(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}

	sort.Strings(out)
	return out, nil
}

// LoadDocuments reads every file into a document.
func LoadDocuments(paths []string) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := LoadDocument(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
