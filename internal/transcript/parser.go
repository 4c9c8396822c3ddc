package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/emiliopalmerini/mtranscript/internal/domain"
	"github.com/emiliopalmerini/mtranscript/internal/ports"
)

// Result holds the events read from a transcript.
type Result struct {
	Events  []domain.Event
	Skipped int
}

// Parser reads JSONL transcripts. Malformed lines are skipped and counted.
type Parser struct {
	logger ports.Logger
}

// NewParser creates a Parser reporting skipped lines to logger.
func NewParser(logger ports.Logger) *Parser {
	return &Parser{logger: logger}
}

// ParseFile reads the transcript at path.
func (p *Parser) ParseFile(path string) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	defer func() { _ = file.Close() }()

	return p.Parse(file)
}

// Parse reads one record per line from r.
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	result := &Result{Events: make([]domain.Event, 0)}

	scanner := bufio.NewScanner(r)
	// Tool inputs can be large.
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 10*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}

		event, err := ParseLine(line)
		if err != nil {
			result.Skipped++
			p.logger.Warn(fmt.Sprintf("transcript line %d skipped: %v", lineNo, err))
			continue
		}
		result.Events = append(result.Events, event)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading transcript: %w", err)
	}

	p.logger.Debug(fmt.Sprintf("parsed %d events (%d skipped)", len(result.Events), result.Skipped))
	return result, nil
}

// ParseLine decodes a single JSON record into a domain event.
func ParseLine(line []byte) (domain.Event, error) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	return rec.Event()
}

// Encode writes events as JSONL records.
func Encode(w io.Writer, events []domain.Event) error {
	enc := json.NewEncoder(w)
	for _, e := range events {
		if err := enc.Encode(FromEvent(e)); err != nil {
			return fmt.Errorf("failed to encode event %s: %w", e.Env().ID, err)
		}
	}
	return nil
}
