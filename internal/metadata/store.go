package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Cache maps routine name to its metadata. After a full run the key set
// equals exactly the routine names that loaded successfully in that run.
type Cache map[string]*RoutineMetadata

// Load reads the persisted cache. An absent file means no prior state
// and yields an empty cache; a malformed document is a fatal
// configuration error.
func Load(path string) (Cache, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Cache{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file %s: %w", path, err)
	}

	cache := Cache{}
	if len(bytes.TrimSpace(data)) == 0 {
		return cache, nil
	}
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("malformed metadata file %s: %w", path, err)
	}

	for name, m := range cache {
		if m == nil {
			return nil, fmt.Errorf("malformed metadata file %s: entry %q is null", path, name)
		}
		if !m.Designation.Valid() {
			return nil, fmt.Errorf("malformed metadata file %s: entry %q has unknown designation %q",
				path, name, m.Designation)
		}
	}

	return cache, nil
}

// Save writes the cache as an indented, key-sorted JSON document using
// write-to-temp-then-rename so a crash never leaves a partial file. The
// write is skipped when the serialized bytes equal the current file
// contents.
func Save(path string, cache Cache) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}
	data = append(data, '\n')

	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, data) {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp metadata file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp metadata file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace metadata file: %w", err)
	}

	return nil
}
