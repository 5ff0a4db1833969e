package checkpoint

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chatcore/chatcore/pkg/models"
	"github.com/rs/zerolog/log"
)

// MemoryStore keeps threads in an in-memory map with optional JSON
// snapshot persistence so conversations survive restarts. Suitable only
// for single-process deployments; use PostgresStore for anything else.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*models.Thread

	// Persistence
	snapshotPath string        // empty = no persistence
	saveMu       sync.Mutex    // guards file writes
	saveCh       chan struct{} // debounce channel
	doneCh       chan struct{} // signals the background saver to stop
	closeOnce    sync.Once
}

// snapshot is the JSON-serializable shape written to disk.
type snapshot struct {
	Threads map[string]*models.Thread `json:"threads"`
}

// NewMemoryStore creates an in-memory store. If CHATCORE_DATA_DIR is
// set, threads are persisted to a JSON file in that directory.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{
		threads: make(map[string]*models.Thread),
		saveCh:  make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
	}

	if dataDir := os.Getenv("CHATCORE_DATA_DIR"); dataDir != "" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			log.Warn().Err(err).Str("dir", dataDir).Msg("Cannot create data dir, persistence disabled")
		} else {
			m.snapshotPath = filepath.Join(dataDir, "threads.json")
			m.loadSnapshot()
		}
	}

	go m.saveLoop()
	return m
}

// Load returns a copy of the stored thread, or a fresh empty thread for
// unknown ids.
func (m *MemoryStore) Load(_ context.Context, threadID string) (*models.Thread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.threads[threadID]
	if !ok {
		now := time.Now().UTC()
		return &models.Thread{ID: threadID, CreatedAt: now, UpdatedAt: now}, nil
	}

	// Copy so the caller's working thread never aliases stored state.
	cp := *stored
	cp.Messages = make([]models.Message, len(stored.Messages))
	copy(cp.Messages, stored.Messages)
	return &cp, nil
}

// Save replaces the stored thread and schedules a snapshot write.
func (m *MemoryStore) Save(_ context.Context, thread *models.Thread) error {
	m.mu.Lock()
	cp := *thread
	cp.Messages = make([]models.Message, len(thread.Messages))
	copy(cp.Messages, thread.Messages)
	cp.UpdatedAt = time.Now().UTC()
	m.threads[thread.ID] = &cp
	m.mu.Unlock()

	m.scheduleSave()
	return nil
}

// Ping always succeeds for the in-memory store.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close flushes a final snapshot and stops the background saver.
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		close(m.doneCh)
		m.writeSnapshot()
	})
	return nil
}

// ── Snapshot persistence ────────────────────────────────────

func (m *MemoryStore) scheduleSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default: // a save is already pending
	}
}

// saveLoop debounces snapshot writes so bursts of turns produce one write.
func (m *MemoryStore) saveLoop() {
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			time.Sleep(100 * time.Millisecond)
			m.writeSnapshot()
		}
	}
}

func (m *MemoryStore) writeSnapshot() {
	if m.snapshotPath == "" {
		return
	}
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.mu.RLock()
	data, err := json.MarshalIndent(snapshot{Threads: m.threads}, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		log.Error().Err(err).Msg("Cannot marshal thread snapshot")
		return
	}

	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("Cannot write thread snapshot")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Cannot replace thread snapshot")
	}
}

func (m *MemoryStore) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Cannot read thread snapshot")
		}
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Corrupt thread snapshot, starting empty")
		return
	}
	if snap.Threads != nil {
		m.threads = snap.Threads
	}
	log.Info().Int("threads", len(m.threads)).Str("path", m.snapshotPath).Msg("Thread snapshot loaded")
}
