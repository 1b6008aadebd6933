package canvas

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"drawspace/domain"
)

// FileCacheSink persists the full shape set to a local JSON file on every
// mutation. Used in standalone mode, where no relay is attached. Writes go
// through a temp file and rename so a crash never leaves a torn cache.
type FileCacheSink struct {
	path string
}

func NewFileCacheSink(path string) *FileCacheSink {
	return &FileCacheSink{path: path}
}

func (fs *FileCacheSink) Apply(_ Mutation, snapshot []domain.Shape) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("commit cache: %w", err)
	}
	return nil
}

// Load reads a previously written cache. A missing file is an empty canvas,
// not an error.
func (fs *FileCacheSink) Load() ([]domain.Shape, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache: %w", err)
	}
	var shapes []domain.Shape
	if err := json.Unmarshal(data, &shapes); err != nil {
		return nil, fmt.Errorf("decode cache: %w", err)
	}
	return shapes, nil
}
