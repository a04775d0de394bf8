package durability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"inventory-ledger/internal/store"
	"inventory-ledger/internal/util"

	"go.uber.org/zap"
)

// Manager bounds the staleness window of the embedded store without
// paying for a flush on every call. It counts mutations through the
// store's commit hook and forces a checkpoint at the configured
// threshold; a low-frequency ticker provides a second, time-based
// trigger. Both paths share one mutex and are safe back-to-back.
type Manager struct {
	store     *store.Store
	threshold int
	interval  time.Duration
	backupDir string
	logger    *zap.Logger

	mu        sync.Mutex
	mutations int

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewManager wires the manager into the store's commit hook
func NewManager(s *store.Store, threshold int, interval time.Duration, backupDir string) *Manager {
	if threshold <= 0 {
		threshold = 50
	}
	m := &Manager{
		store:     s,
		threshold: threshold,
		interval:  interval,
		backupDir: backupDir,
		logger:    util.GetLogger(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	s.SetCommitHook(m.noteMutation)
	return m
}

// noteMutation runs after every successful store mutation
func (m *Manager) noteMutation() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mutations++
	if m.mutations < m.threshold {
		return
	}
	if err := m.checkpointLocked("threshold"); err != nil {
		m.logger.Error("Threshold checkpoint failed", zap.Error(err))
		return
	}
	m.mutations = 0
}

// Start runs the periodic checkpoint loop until ctx is canceled or
// Stop is called
func (m *Manager) Start(ctx context.Context) {
	defer close(m.doneCh)

	if m.interval <= 0 {
		<-m.stopCh
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.Checkpoint(ctx, "interval"); err != nil {
				m.logger.Error("Periodic checkpoint failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		}
	}
}

// Stop terminates the periodic loop and waits for it to exit
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	<-m.doneCh
}

// Checkpoint forces a flush and resets the mutation counter. Invoking
// it twice in a row is harmless.
func (m *Manager) Checkpoint(ctx context.Context, trigger string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkpointLocked(trigger); err != nil {
		return err
	}
	m.mutations = 0
	return nil
}

func (m *Manager) checkpointLocked(trigger string) error {
	start := time.Now()
	if err := m.store.Checkpoint(context.Background()); err != nil {
		return err
	}
	util.CheckpointsForcedTotal.WithLabelValues(trigger).Inc()
	util.CheckpointDuration.Observe(time.Since(start).Seconds())
	m.logger.Debug("Checkpoint forced",
		zap.String("trigger", trigger),
		zap.Duration("took", time.Since(start)))
	return nil
}

// PendingMutations reports operations recorded since the last forced
// checkpoint
func (m *Manager) PendingMutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutations
}

// Shutdown forces a final flush and writes a timestamped backup copy.
// A backup failure is logged and counted but never blocks shutdown.
func (m *Manager) Shutdown(ctx context.Context) error {
	if err := m.Checkpoint(ctx, "shutdown"); err != nil {
		return err
	}

	if m.backupDir == "" {
		return nil
	}
	path, err := m.writeBackup(ctx)
	if err != nil {
		util.BackupsTotal.WithLabelValues("error").Inc()
		m.logger.Error("Shutdown backup failed", zap.Error(err))
		return nil
	}
	util.BackupsTotal.WithLabelValues("ok").Inc()
	m.logger.Info("Shutdown backup written", zap.String("path", path))
	return nil
}

func (m *Manager) writeBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(m.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	name := fmt.Sprintf("inventory-%s.db", time.Now().Format("20060102-150405"))
	path := filepath.Join(m.backupDir, name)
	if err := m.store.BackupTo(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// RefreshConnection flushes, closes, and reopens the storage handle.
// Recovery path for writes that appear to have silently failed.
func (m *Manager) RefreshConnection() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Reopen(); err != nil {
		return err
	}
	util.ConnectionRefreshesTotal.Inc()
	m.logger.Warn("Storage connection refreshed")
	return nil
}
