package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
)

// LoadDirectory reads every supported invoice file in dir (non-recursive).
// os.ReadDir sorts by name, so batch order is stable across runs.
func LoadDirectory(dir string) ([]entity.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var docs []entity.Document
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		doc, ok, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// LoadFile reads one file as a document. ok is false when the extension is
// not a supported invoice format.
func LoadFile(path string) (entity.Document, bool, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if _, allowed := constants.AllowedExtensions[ext]; !allowed {
		return entity.Document{}, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.Document{}, false, fmt.Errorf("reading %s: %w", path, err)
	}
	return entity.NewDocument(data, constants.MediaTypeForExt(ext), filepath.Base(path)), true, nil
}
