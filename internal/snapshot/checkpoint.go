package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/blake2s"

	"snarkcollective/internal/model"
)

// Checkpoint is the state of the last complete snapshot: the round counters
// and a fingerprint of its project records.
type Checkpoint struct {
	Round     model.Round `json:"round"`
	Projects  string      `json:"projects"`
	UpdatedAt string      `json:"updated_at"`
}

// Matches reports whether round and fingerprint are the state already stored.
func (c Checkpoint) Matches(round model.Round, fingerprint string) bool {
	return c.Round == round && c.Projects == fingerprint
}

// Fingerprint hashes the records without their observation time, so a
// donation or approval changes it but a repeated read does not.
func Fingerprint(records []model.ProjectRecord) (string, error) {
	h, err := blake2s.New256(nil)
	if err != nil {
		return "", err
	}
	enc := json.NewEncoder(h)
	for _, rec := range records {
		rec.ObservedAt = ""
		if err := enc.Encode(rec); err != nil {
			return "", fmt.Errorf("encode record: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CheckpointStore persists checkpoints to disk.
type CheckpointStore struct {
	path    string
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled}
}

func (c *CheckpointStore) Load() (Checkpoint, bool, error) {
	if !c.enabled {
		return Checkpoint{}, false, nil
	}

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return Checkpoint{}, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp, true, nil
}

// Save writes the checkpoint through a temp file so readers never see a
// partial write.
func (c *CheckpointStore) Save(round model.Round, fingerprint string, at time.Time) error {
	if !c.enabled {
		return nil
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(Checkpoint{
		Round:     round,
		Projects:  fingerprint,
		UpdatedAt: at.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
