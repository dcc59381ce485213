// Package store reads and writes decision tree documents on disk.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
)

// maxDocumentSize caps how much of a file Load reads.
const maxDocumentSize = 16 << 20

// Load reads a document from path. A malformed document returns an empty graph
// and a *model.MalformedGraphError; I/O failures return a nil graph.
func Load(path string) (*model.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Read(f)
}

// Read decodes a document from r.
func Read(r io.Reader) (*model.Graph, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", maxDocumentSize)
	}
	return model.Decode(data)
}

// Save writes the graph to path, replacing any existing file. The document is
// written to a temporary file in the same directory and renamed into place.
func Save(path string, g *model.Graph) (err error) {
	data, err := model.Encode(g)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, werr := tmp.Write(data); werr != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, werr)
	}
	if cerr := tmp.Close(); cerr != nil {
		return fmt.Errorf("failed to close %s: %w", path, cerr)
	}
	if rerr := os.Rename(tmp.Name(), path); rerr != nil {
		return fmt.Errorf("failed to replace %s: %w", path, rerr)
	}
	return nil
}

// IsMalformed reports whether err came from a document with the wrong shape,
// as opposed to an I/O failure.
func IsMalformed(err error) bool {
	return errors.Is(err, model.ErrMalformedGraph)
}
