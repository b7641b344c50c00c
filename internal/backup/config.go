package backup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/thiagovelsa/JudDesk-sub000/internal/services"
)

// Settings keys persisted by the backup subsystem.
const (
	keyEnabled    = "backup.enabled"
	keyPath       = "backup.path"
	keyMaxBackups = "backup.max_backups"
	keyDebounceMs = "backup.debounce_ms"
	keyIntervalMs = "backup.min_interval_ms"
	keyLastRun    = "backup.last_run"
)

// Config is the scheduler's runtime configuration, mirrored to the settings
// table. Each Scheduler owns its own instance; there is no package state.
type Config struct {
	Enabled     bool
	Path        string // custom destination; empty means the default location
	MaxBackups  int
	Debounce    time.Duration
	MinInterval time.Duration
}

// DefaultConfig returns the configuration used before the user changes
// anything.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		MaxBackups:  10,
		Debounce:    5 * time.Second,
		MinInterval: 10 * time.Minute,
	}
}

// loadConfig overlays persisted settings onto the defaults. A missing or
// unreadable setting keeps its default — settings reads are recoverable.
func loadConfig(ctx context.Context, repo services.SettingsRepository) Config {
	cfg := DefaultConfig()
	if v, ok := getSetting(ctx, repo, keyEnabled); ok {
		cfg.Enabled = v == "true"
	}
	if v, ok := getSetting(ctx, repo, keyPath); ok {
		cfg.Path = v
	}
	if v, ok := getSetting(ctx, repo, keyMaxBackups); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxBackups = n
		}
	}
	if v, ok := getSetting(ctx, repo, keyDebounceMs); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Debounce = time.Duration(n) * time.Millisecond
		}
	}
	if v, ok := getSetting(ctx, repo, keyIntervalMs); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MinInterval = time.Duration(n) * time.Millisecond
		}
	}
	return cfg
}

func getSetting(ctx context.Context, repo services.SettingsRepository, key string) (string, bool) {
	s, err := repo.Get(ctx, key)
	if err != nil {
		return "", false
	}
	return s.Value, true
}

// Config returns a copy of the scheduler's current configuration.
func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Reload re-reads the configuration from the settings table, replacing the
// in-memory copy.
func (s *Scheduler) Reload(ctx context.Context) {
	cfg := loadConfig(ctx, s.settings)
	s.mu.Lock()
	s.cfg = cfg
	s.limiter.SetLimit(intervalLimit(cfg.MinInterval))
	s.mu.Unlock()
}

// SetEnabled toggles automatic backups and persists the choice.
func (s *Scheduler) SetEnabled(ctx context.Context, enabled bool) error {
	if err := s.settings.Set(ctx, keyEnabled, strconv.FormatBool(enabled)); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg.Enabled = enabled
	if !enabled && s.debounce != nil {
		s.debounce.Stop()
	}
	s.mu.Unlock()
	return nil
}

// SetPath configures a custom backup destination. An empty path restores
// the default location; anything else must pass the allow-list.
func (s *Scheduler) SetPath(ctx context.Context, path string) error {
	if path != "" {
		if err := s.dirs.ValidateDir(path); err != nil {
			return err
		}
	}
	if err := s.settings.Set(ctx, keyPath, path); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg.Path = path
	s.mu.Unlock()
	return nil
}

// SetMaxBackups changes how many snapshot files rotation retains.
func (s *Scheduler) SetMaxBackups(ctx context.Context, n int) error {
	if n < 1 {
		return fmt.Errorf("backup: max backups must be at least 1, got %d", n)
	}
	if err := s.settings.Set(ctx, keyMaxBackups, strconv.Itoa(n)); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg.MaxBackups = n
	s.mu.Unlock()
	return nil
}

// SetDebounce changes the quiet period required before a run starts.
func (s *Scheduler) SetDebounce(ctx context.Context, d time.Duration) error {
	if err := s.settings.Set(ctx, keyDebounceMs, strconv.FormatInt(d.Milliseconds(), 10)); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg.Debounce = d
	s.mu.Unlock()
	return nil
}

// SetMinInterval changes the minimum spacing between run starts.
func (s *Scheduler) SetMinInterval(ctx context.Context, d time.Duration) error {
	if err := s.settings.Set(ctx, keyIntervalMs, strconv.FormatInt(d.Milliseconds(), 10)); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg.MinInterval = d
	s.limiter.SetLimit(intervalLimit(d))
	s.mu.Unlock()
	return nil
}
