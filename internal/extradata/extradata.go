package extradata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anime-shed/allsky-modules-go/pkg/models"
)

// Writer saves overlay variables into files under the extra-data directory
type Writer struct {
	dir string
}

// NewWriter creates a writer for dir, normally $ALLSKY_TMP/extra
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the directory files are written to
func (w *Writer) Dir() string {
	return w.dir
}

// Path returns where filename is stored
func (w *Writer) Path(filename string) (string, error) {
	if filename == "" {
		return "", errors.New("extra data filename is empty")
	}
	if filepath.Base(filename) != filename || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("extra data filename %q must be a plain file name", filename)
	}
	return filepath.Join(w.dir, filename), nil
}

// Save replaces filename with data. The file is written next to its final
// location and renamed so readers never see a partial document.
func (w *Writer) Save(filename string, data models.ExtraData) (string, error) {
	path, err := w.Path(filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create extra data directory: %w", err)
	}

	body, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode extra data: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, "."+filename+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write extra data: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to set extra data permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close extra data: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move extra data into place: %w", err)
	}
	return path, nil
}

// Remove deletes filename. A missing file is not an error.
func (w *Writer) Remove(filename string) error {
	path, err := w.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove extra data: %w", err)
	}
	return nil
}

// Load reads filename back
func (w *Writer) Load(filename string) (models.ExtraData, error) {
	path, err := w.Path(filename)
	if err != nil {
		return nil, err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data models.ExtraData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode extra data: %w", err)
	}
	return data, nil
}
