package export

import (
	"os"
	"path/filepath"
)

// Saver is the file-save collaborator: it turns a byte sequence into a
// persisted file and reports where it ended up.
type Saver interface {
	Save(name string, data []byte) (location string, err error)
}

// FileSaver writes files into a directory on local disk.
type FileSaver struct {
	Dir string
}

func (s FileSaver) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
