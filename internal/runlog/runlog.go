// Package runlog owns the output directory of a training or evaluation run.
package runlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Dir is a run directory. Every artefact of a run is written beneath Path.
type Dir struct {
	ID   string
	Path string
}

// Create makes root/name, generating a name when none is given.
func Create(root, name string) (*Dir, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = uuid.NewString()
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid run name %q", name)
	}
	path := filepath.Join(root, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return &Dir{ID: name, Path: path}, nil
}

// File returns the path of an artefact in the run directory.
func (d *Dir) File(name string) string {
	return filepath.Join(d.Path, name)
}

// DumpJSON writes v as indented JSON.
func (d *Dir) DumpJSON(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return os.WriteFile(d.File(name), append(b, '\n'), 0o644)
}

// DumpJSONLines writes one JSON value per line.
func DumpJSONLines[T any](d *Dir, name string, items []T) error {
	f, err := os.Create(d.File(name))
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i, item := range items {
		if err := enc.Encode(item); err != nil {
			_ = f.Close()
			return fmt.Errorf("encode %s line %d: %w", name, i+1, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadJSON decodes an artefact written by DumpJSON.
func ReadJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
