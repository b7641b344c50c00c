// Package backup decides when the database is snapshotted, where snapshots
// may be written, and how many are retained. The scheduler listens to store
// change events, debounces bursts into single runs, spaces runs by a minimum
// interval, and never runs two exports concurrently.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/thiagovelsa/JudDesk-sub000/internal/event"
	"github.com/thiagovelsa/JudDesk-sub000/internal/services"
	"github.com/thiagovelsa/JudDesk-sub000/internal/snapshot"
	"github.com/thiagovelsa/JudDesk-sub000/internal/store"
)

// startupCatchUp is how stale the last recorded backup may be before boot
// triggers an immediate run.
const startupCatchUp = 24 * time.Hour

// Info describes one on-disk snapshot file. It is derived by listing the
// backup directory, never stored.
type Info struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Exporter produces a full-database snapshot. *snapshot.Exporter satisfies it.
type Exporter interface {
	Export(ctx context.Context) (*snapshot.Snapshot, error)
}

// Importer replaces the database with a snapshot. *snapshot.Importer
// satisfies it.
type Importer interface {
	Import(ctx context.Context, snap *snapshot.Snapshot) error
}

// Scheduler coordinates automatic and manual backups.
type Scheduler struct {
	exporter Exporter
	importer Importer
	settings services.SettingsRepository
	dirs     *Dirs
	bus      *event.Bus
	logger   *zap.Logger
	now      func() time.Time

	mu          sync.Mutex
	cfg         Config
	limiter     *rate.Limiter
	debounce    *time.Timer
	interval    *time.Timer
	running     bool
	waiting     bool
	rescheduled bool
	unsub       func()
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithNow overrides the scheduler's time source. Snapshot filenames, the
// startup catch-up check, and interval spacing all read it; tests use a
// controllable clock here.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler, loading its configuration from the settings
// table (missing keys keep their defaults).
func New(exporter Exporter, importer Importer,
	settings services.SettingsRepository, dirs *Dirs,
	bus *event.Bus, logger *zap.Logger, opts ...Option) *Scheduler {

	cfg := loadConfig(context.Background(), settings)
	s := &Scheduler{
		exporter: exporter,
		importer: importer,
		settings: settings,
		dirs:     dirs,
		bus:      bus,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
		limiter:  rate.NewLimiter(intervalLimit(cfg.MinInterval), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func intervalLimit(min time.Duration) rate.Limit {
	if min <= 0 {
		return rate.Inf
	}
	return rate.Every(min)
}

// Start subscribes to store change events and runs the startup catch-up:
// if backups are enabled and none was ever recorded, or the last one is
// older than 24 hours, one runs immediately and synchronously.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.unsub = s.bus.Subscribe(store.TopicChanged, func(ctx context.Context, e event.Event) {
		s.onChange()
	})
	enabled := s.cfg.Enabled
	s.mu.Unlock()

	if !enabled {
		return
	}
	if last, ok := s.lastRun(ctx); ok && s.now().Sub(last) < startupCatchUp {
		return
	}
	if _, err := s.ExecuteBackup(ctx); err != nil {
		// Startup backups are automatic: log, never surface.
		s.logger.Warn("startup backup failed", zap.Error(err))
	}
}

// Stop unsubscribes from the bus and cancels pending timers. A run already
// in progress finishes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	if s.interval != nil {
		s.interval.Stop()
		s.interval = nil
	}
}

// onChange (re)arms the debounce timer. Bursts of changes inside one window
// coalesce into a single run.
func (s *Scheduler) onChange() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled {
		return
	}
	s.armDebounceLocked()
}

func (s *Scheduler) armDebounceLocked() {
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.cfg.Debounce, s.debounceFired)
}

func (s *Scheduler) debounceFired() {
	s.mu.Lock()
	if !s.cfg.Enabled {
		s.mu.Unlock()
		return
	}
	if s.running {
		// Never run concurrently: remember the change and try again after
		// the current run completes.
		s.rescheduled = true
		s.mu.Unlock()
		return
	}
	if s.waiting {
		// An interval wait is already armed; its run covers this change.
		s.mu.Unlock()
		return
	}

	// Space runs by the minimum interval, measured from the previous run's
	// start. The reservation's delay is exactly the remaining wait.
	res := s.limiter.ReserveN(s.now(), 1)
	if delay := res.DelayFrom(s.now()); delay > 0 {
		s.waiting = true
		if s.interval != nil {
			s.interval.Stop()
		}
		s.interval = time.AfterFunc(delay, s.intervalElapsed)
		s.mu.Unlock()
		return
	}

	s.running = true
	s.mu.Unlock()
	s.runAutomatic()
}

func (s *Scheduler) intervalElapsed() {
	s.mu.Lock()
	s.waiting = false
	if !s.cfg.Enabled {
		s.mu.Unlock()
		return
	}
	if s.running {
		s.rescheduled = true
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	s.runAutomatic()
}

// runAutomatic executes one scheduled run. Failures are logged and
// swallowed: background backups never surface errors to the user.
func (s *Scheduler) runAutomatic() {
	if _, err := s.execute(context.Background()); err != nil {
		s.logger.Warn("automatic backup failed, no backup produced", zap.Error(err))
	}
	s.finishRun()
}

// finishRun clears the running flag; a change that arrived during the run
// re-enters the debounce cycle so it is never lost.
func (s *Scheduler) finishRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if s.rescheduled {
		s.rescheduled = false
		s.armDebounceLocked()
	}
}

// ExecuteBackup runs a backup immediately, bypassing the debounce. It
// refuses to start while another run is in progress and returns (nil, nil)
// in that case. Unlike automatic runs, failures are surfaced to the caller.
func (s *Scheduler) ExecuteBackup(ctx context.Context) (*Info, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, nil
	}
	s.running = true
	// Manual runs skip the interval wait but still count against it: the
	// limiter is rebuilt empty so the next automatic run is spaced
	// MinInterval from this run's start, not from an older reservation.
	s.limiter = rate.NewLimiter(intervalLimit(s.cfg.MinInterval), 1)
	s.limiter.ReserveN(s.now(), 1)
	s.mu.Unlock()
	defer s.finishRun()

	return s.execute(ctx)
}

// execute performs one backup run end to end: resolve the destination,
// export, write atomically, record the run, rotate.
func (s *Scheduler) execute(ctx context.Context) (*Info, error) {
	dir := s.resolveDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir %q: %w", dir, err)
	}

	snap, err := s.exporter.Export(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	now := s.now()
	name := FileName(now)
	path := filepath.Join(dir, name)

	// Write-then-rename so a crash mid-write never leaves a truncated file
	// that would later be listed (or restored) as a valid backup.
	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("finalize snapshot: %w", err)
	}

	if err := s.settings.Set(ctx, keyLastRun, now.UTC().Format(time.RFC3339)); err != nil {
		s.logger.Warn("recording backup timestamp failed", zap.Error(err))
	}
	if err := s.rotate(dir); err != nil {
		s.logger.Warn("backup rotation failed", zap.Error(err))
	}

	info := &Info{Name: name, Path: path, Size: int64(len(data)), CreatedAt: now}
	s.logger.Info("backup written",
		zap.String("file", path), zap.Int64("bytes", info.Size))
	return info, nil
}

// rotate deletes the oldest valid backup files beyond MaxBackups. Filenames
// embed their timestamp, so lexical order is chronological.
func (s *Scheduler) rotate(dir string) error {
	s.mu.Lock()
	max := s.cfg.MaxBackups
	s.mu.Unlock()
	if max <= 0 {
		return nil
	}

	names, err := s.validNames(dir)
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	for _, name := range names[minInt(max, len(names)):] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("rotate %q: %w", name, err)
		}
	}
	return nil
}

// List returns the valid backup files in the active directory, newest first.
func (s *Scheduler) List() ([]Info, error) {
	dir := s.resolveDir()
	names, err := s.validNames(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	infos := make([]Info, 0, len(names))
	for _, name := range names {
		fi, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Name:      name,
			Path:      filepath.Join(dir, name),
			Size:      fi.Size(),
			CreatedAt: fi.ModTime(),
		})
	}
	return infos, nil
}

// Delete removes one backup file. The name is validated before any
// filesystem call.
func (s *Scheduler) Delete(name string) error {
	if err := SafeName(name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.resolveDir(), name)); err != nil {
		return fmt.Errorf("delete backup %q: %w", name, err)
	}
	return nil
}

// Restore replaces the live database with the named backup's contents.
// The name is validated before any filesystem call.
func (s *Scheduler) Restore(ctx context.Context, name string) error {
	if err := SafeName(name); err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(s.resolveDir(), name))
	if err != nil {
		return fmt.Errorf("read backup %q: %w", name, err)
	}
	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode backup %q: %w", name, err)
	}
	return s.importer.Import(ctx, &snap)
}

// resolveDir picks the configured destination when it passes validation,
// falling back to the default app-data subdirectory.
func (s *Scheduler) resolveDir() string {
	s.mu.Lock()
	custom := s.cfg.Path
	s.mu.Unlock()

	if custom != "" && s.dirs.ValidateDir(custom) == nil {
		return custom
	}
	return s.dirs.Default()
}

func (s *Scheduler) validNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || SafeName(e.Name()) != nil {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (s *Scheduler) lastRun(ctx context.Context) (time.Time, bool) {
	setting, err := s.settings.Get(ctx, keyLastRun)
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, setting.Value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
