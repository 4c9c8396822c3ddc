package turso

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
)

// TranscriptRepository archives the raw JSONL source of a session, gzipped.
type TranscriptRepository struct {
	db *sql.DB
}

func NewTranscriptRepository(db *sql.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

func (r *TranscriptRepository) Store(ctx context.Context, sessionID string, sourcePath string) (string, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() { _ = src.Close() }()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := io.Copy(gw, src); err != nil {
		return "", fmt.Errorf("failed to compress transcript: %w", err)
	}
	if err := gw.Close(); err != nil {
		return "", fmt.Errorf("failed to close gzip writer: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO transcripts (session_id, gzip_data) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET gzip_data = excluded.gzip_data
	`, sessionID, buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to store transcript in database: %w", err)
	}
	return "db", nil
}

func (r *TranscriptRepository) Get(ctx context.Context, sessionID string) ([]byte, error) {
	var gzipData []byte
	if err := r.db.QueryRowContext(ctx,
		`SELECT gzip_data FROM transcripts WHERE session_id = ?`, sessionID,
	).Scan(&gzipData); err != nil {
		return nil, fmt.Errorf("failed to get transcript from database: %w", err)
	}

	gr, err := gzip.NewReader(bytes.NewReader(gzipData))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() { _ = gr.Close() }()

	data, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress transcript: %w", err)
	}
	return data, nil
}

func (r *TranscriptRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transcripts WHERE session_id = ?`, sessionID)
	return err
}

func (r *TranscriptRepository) Exists(ctx context.Context, sessionID string) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transcripts WHERE session_id = ?`, sessionID,
	).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
