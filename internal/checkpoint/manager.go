package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"reelsmith/internal/services"
)

const ledgerFileName = "checkpoint.json"

// Manager persists one ledger for one unit of work. Each run must use its own
// directory so concurrent runs never share a ledger file.
type Manager struct {
	path string
}

// NewManager returns a manager storing its ledger inside dir.
func NewManager(dir string) *Manager {
	return &Manager{path: filepath.Join(dir, ledgerFileName)}
}

// Path returns the ledger file location.
func (m *Manager) Path() string { return m.path }

// Save persists the full ledger. The write is atomic with respect to process
// crash: the document lands in a temp file in the same directory, is synced,
// and is renamed over the previous ledger.
func (m *Manager) Save(ledger *Ledger) error {
	if ledger == nil {
		return services.Wrap(services.ErrInvalidArgument, "", "save checkpoint", "ledger is nil", nil)
	}

	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ledgerFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		return fmt.Errorf("publish checkpoint: %w", err)
	}
	tmpPath = ""
	return nil
}

// Load returns the last persisted ledger, or an empty ledger when none was
// ever saved.
func (m *Manager) Load() (*Ledger, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewLedger(), nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	ledger := NewLedger()
	if err := json.Unmarshal(data, ledger); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	return ledger, nil
}

// Has reports whether a persisted ledger exists.
func (m *Manager) Has() bool {
	info, err := os.Stat(m.path)
	return err == nil && !info.IsDir()
}

// Delete removes the persisted ledger. Deleting an absent ledger succeeds.
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}
