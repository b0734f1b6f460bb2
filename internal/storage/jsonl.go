package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"snarkcollective/internal/model"
)

// JsonlStorage appends project records to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutSnapshot appends one JSON line per project record. The round itself is
// carried by each record's round_id, so every record must belong to round.
func (s *JsonlStorage) PutSnapshot(ctx context.Context, round model.Round, projects []model.ProjectRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(projects) == 0 {
		return nil
	}
	for _, record := range projects {
		if record.RoundID != round.RoundID {
			return fmt.Errorf("project %d belongs to round %d, snapshot is round %d", record.ProjectIndex, record.RoundID, round.RoundID)
		}
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range projects {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal project record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write project record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
