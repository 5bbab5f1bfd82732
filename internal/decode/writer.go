package decode

import (
	"fmt"
	"os"
	"path/filepath"
)

// Writer places decoded payloads under <root>/<protocol>/<name>, creating
// the protocol subdirectory lazily (spec §6.5).
type Writer struct {
	Root string
}

// NewWriter returns a Writer rooted at root.
func NewWriter(root string) *Writer {
	return &Writer{Root: root}
}

// Write creates <root>/<protocol>/ if needed and writes data to name inside
// it, returning the path written.
func (w *Writer) Write(protocolDir, name string, data []byte) (string, error) {
	dir := filepath.Join(w.Root, protocolDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("decode: create output dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("decode: write %s: %w", path, err)
	}
	return path, nil
}
