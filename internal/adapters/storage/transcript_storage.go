// Package storage keeps raw session transcripts as gzip files on disk.
package storage

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/emiliopalmerini/mtranscript/internal/util"
)

// TranscriptStorage implements ports.TranscriptStorage over a directory.
type TranscriptStorage struct {
	baseDir string
}

// NewTranscriptStorage stores transcripts under baseDir, creating it if needed.
func NewTranscriptStorage(baseDir string) (*TranscriptStorage, error) {
	if err := util.EnsureDir(baseDir); err != nil {
		return nil, err
	}
	return &TranscriptStorage{baseDir: baseDir}, nil
}

func (s *TranscriptStorage) Store(ctx context.Context, sessionID string, sourcePath string) (string, error) {
	destPath, err := s.getPath(sessionID)
	if err != nil {
		return "", err
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() { _ = src.Close() }()

	// Compressed into a temp file in baseDir, then renamed over the archive.
	tmp, err := os.CreateTemp(s.baseDir, ".transcript-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	gw := gzip.NewWriter(tmp)
	if _, err := io.Copy(gw, src); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to compress transcript: %w", err)
	}
	if err := gw.Close(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to close gzip writer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return "", fmt.Errorf("failed to move transcript into place: %w", err)
	}
	return destPath, nil
}

func (s *TranscriptStorage) Get(ctx context.Context, sessionID string) ([]byte, error) {
	path, err := s.getPath(sessionID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript file: %w", err)
	}
	defer func() { _ = file.Close() }()

	gr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() { _ = gr.Close() }()

	data, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return data, nil
}

func (s *TranscriptStorage) Delete(ctx context.Context, sessionID string) error {
	path, err := s.getPath(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}

func (s *TranscriptStorage) Exists(ctx context.Context, sessionID string) (bool, error) {
	path, err := s.getPath(sessionID)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// getPath rejects session ids that would escape baseDir.
func (s *TranscriptStorage) getPath(sessionID string) (string, error) {
	if sessionID == "" || sessionID == "." || sessionID == ".." || strings.ContainsAny(sessionID, `/\`) {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(s.baseDir, sessionID+".jsonl.gz"), nil
}
