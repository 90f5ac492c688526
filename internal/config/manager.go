package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Manager owns the on-disk config file: strict parsing, the committed
// snapshot, and an fsnotify watch loop that re-publishes validated changes
// to subscribers.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Config
	// lastHash tracks the last committed config content so editor-induced
	// duplicate write events don't trigger redundant publishes.
	lastHash uint64

	subsMu sync.Mutex
	subs   []chan *Config

	log       zerolog.Logger
	validator func(ctx context.Context, cfg *Config) error
}

func NewManager(path string) *Manager {
	return &Manager{path: path, log: zerolog.Nop()}
}

func (m *Manager) SetLogger(log zerolog.Logger) { m.log = log }

// SetValidator installs a hook run by Watch before committing/publishing a
// changed config. Rejected configs are dropped; the previous one stays live.
func (m *Manager) SetValidator(fn func(ctx context.Context, cfg *Config) error) {
	m.validator = fn
}

// Parse reads and strictly decodes the file without committing it.
func (m *Manager) Parse() (*Config, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	jb, err := coerceToJSONBytes(m.path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	return &cfg, nil
}

// Load parses and commits the file. Used once at bootstrap.
func (m *Manager) Load() (*Config, error) {
	cfg, err := m.Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m.commit(cfg)
	return cfg, nil
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) commit(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.lastHash = hashConfig(cfg)
	m.mu.Unlock()
}

func hashConfig(cfg *Config) uint64 {
	if cfg == nil {
		return 0
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// Subscribe returns a channel receiving each newly committed config.
func (m *Manager) Subscribe(buffer int) chan *Config {
	ch := make(chan *Config, buffer)
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

func (m *Manager) Unsubscribe(ch chan *Config) {
	if ch == nil {
		return
	}
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for i, s := range m.subs {
		if s == ch {
			last := len(m.subs) - 1
			m.subs[i] = m.subs[last]
			m.subs[last] = nil
			m.subs = m.subs[:last]
			close(ch)
			return
		}
	}
}

func (m *Manager) publish(cfg *Config) {
	// Hold subsMu while sending to avoid send-on-closed panics.
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		if ch == nil {
			continue
		}
		// If the subscriber is slow, drop one stale item and push the newest.
		select {
		case ch <- cfg:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- cfg:
			default:
				m.log.Debug().Msg("config update dropped (subscriber slow)")
			}
		}
	}
}

const (
	watchDebounce     = 250 * time.Millisecond
	watchRestartDelay = time.Second
)

// Watch blocks until ctx is done, reloading the file on change. Partial
// writes are absorbed by a debounce timer; unchanged content (by hash) is
// not re-published.
func (m *Manager) Watch(ctx context.Context) error {
	dir := filepath.Dir(m.path)
	file := filepath.Base(m.path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(watchDebounce, func() { m.reload(ctx) })
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		w, err := fsnotify.NewWatcher()
		if err == nil {
			err = w.Add(dir)
			if err != nil {
				_ = w.Close()
			}
		}
		if err != nil {
			m.log.Warn().Err(err).Str("dir", dir).Msg("config watch init failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(watchRestartDelay):
				continue
			}
		}
		m.log.Debug().Str("dir", dir).Str("file", file).Msg("config watcher started")

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				// Compare by basename: robust across absolute/relative paths
				// and editors that replace the file via rename.
				if strings.EqualFold(filepath.Base(ev.Name), file) {
					debounce()
				}
			case werr, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if werr == nil {
					continue
				}
				m.log.Warn().Err(werr).Str("dir", dir).Msg("config watch error")
			}
		}

		_ = w.Close()
		if ctx.Err() != nil {
			return nil
		}
		m.log.Warn().Str("dir", dir).Msg("config watcher stopped; restarting")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(watchRestartDelay):
		}
	}
}

func (m *Manager) reload(ctx context.Context) {
	cfg, err := m.Parse()
	if err != nil {
		m.log.Warn().Err(err).Str("path", m.path).Msg("config parse failed")
		return
	}
	if err := cfg.Validate(); err != nil {
		m.log.Warn().Err(err).Str("path", m.path).Msg("config rejected")
		return
	}

	h := hashConfig(cfg)
	m.mu.RLock()
	unchanged := h != 0 && h == m.lastHash
	m.mu.RUnlock()
	if unchanged {
		m.log.Debug().Str("path", m.path).Msg("config unchanged; skipping publish")
		return
	}

	if m.validator != nil {
		vctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := m.validator(vctx, cfg)
		cancel()
		if err != nil {
			m.log.Warn().Err(err).Str("path", m.path).Msg("config rejected by validator")
			return
		}
	}

	m.commit(cfg)
	m.publish(cfg)
	m.log.Info().Str("path", m.path).Msg("config reloaded")
}
