package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"model-myself/backend/pkg/errors"
)

// metadataFile handles the sidecar JSON holding all document metadata
type metadataFile struct {
	path string
}

func newMetadataFile(path string) *metadataFile {
	return &metadataFile{path: path}
}

func (m *metadataFile) load() (map[string]Document, error) {
	docs := make(map[string]Document)
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return docs, nil
		}
		return nil, errors.NewPersistence(m.path, err)
	}
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, errors.NewPersistence(m.path, err)
	}
	return docs, nil
}

// save rewrites the metadata file atomically via temp file and rename
func (m *metadataFile) save(docs map[string]Document) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return errors.NewPersistence(m.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".metadata-*.json")
	if err != nil {
		return errors.NewPersistence(m.path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.NewPersistence(m.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.NewPersistence(m.path, err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		os.Remove(tmp.Name())
		return errors.NewPersistence(m.path, err)
	}
	return nil
}
