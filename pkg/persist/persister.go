package persist

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

const (
	filePerm     = 0o644
	tmpExtension = ".tmp"
)

// WriteFile encodes state into a temporary file next to path, syncs it and
// renames it over path. A crash never leaves path partially written.
func WriteFile(path string, codec Codec, state any) error {
	dir := filepath.Dir(path)

	tmp, createErr := os.CreateTemp(dir, filepath.Base(path)+".*"+tmpExtension)
	if createErr != nil {
		return fmt.Errorf("create temp file: %w", createErr)
	}

	tmpPath := tmp.Name()

	writeErr := encodeAndSync(tmp, codec, state)
	if writeErr != nil {
		os.Remove(tmpPath)

		return writeErr
	}

	chmodErr := os.Chmod(tmpPath, filePerm)
	if chmodErr != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("chmod temp file: %w", chmodErr)
	}

	renameErr := os.Rename(tmpPath, path)
	if renameErr != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("rename state file: %w", renameErr)
	}

	return nil
}

func encodeAndSync(fd *os.File, codec Codec, state any) error {
	buf := bufio.NewWriter(fd)

	encodeErr := codec.Encode(buf, state)
	if encodeErr != nil {
		fd.Close()

		return fmt.Errorf("encode state: %w", encodeErr)
	}

	flushErr := buf.Flush()
	if flushErr != nil {
		fd.Close()

		return fmt.Errorf("flush state: %w", flushErr)
	}

	syncErr := fd.Sync()
	if syncErr != nil {
		fd.Close()

		return fmt.Errorf("sync state: %w", syncErr)
	}

	closeErr := fd.Close()
	if closeErr != nil {
		return fmt.Errorf("close state file: %w", closeErr)
	}

	return nil
}

// ReadFile decodes state from path. The state parameter must be a pointer.
func ReadFile(path string, codec Codec, state any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	err = codec.Decode(bufio.NewReader(file), state)
	if err != nil {
		return fmt.Errorf("decode state: %w", err)
	}

	return nil
}

// Persister handles I/O for a specific state type at a fixed path.
type Persister[T any] struct {
	path  string
	codec Codec
}

// NewPersister creates a persister with the given path and codec.
func NewPersister[T any](path string, codec Codec) *Persister[T] {
	return &Persister[T]{
		path:  path,
		codec: codec,
	}
}

// Path returns the file the persister reads and writes.
func (p *Persister[T]) Path() string {
	return p.path
}

// Save atomically writes the state produced by buildState.
func (p *Persister[T]) Save(buildState func() *T) error {
	return WriteFile(p.path, p.codec, buildState())
}

// Load decodes the file and hands the result to restoreState.
func (p *Persister[T]) Load(restoreState func(*T)) error {
	var state T

	err := ReadFile(p.path, p.codec, &state)
	if err != nil {
		return err
	}

	restoreState(&state)

	return nil
}
