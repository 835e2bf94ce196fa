// Package scenewatcher reloads the driven entity tree when its scene file
// changes on disk. A file that fails to load is logged and the running tree
// is kept.
package scenewatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/sakamoto/pkg/driver"
	"github.com/bft-labs/sakamoto/pkg/entity"
	"github.com/bft-labs/sakamoto/pkg/log"
)

// DefaultDebounceDelay is used when Config.DebounceDelay is not positive.
const DefaultDebounceDelay = 100 * time.Millisecond

// Loader builds a fresh tree from the scene file at path.
type Loader func(path string) (entity.Node, error)

// Config holds configuration options for the scene watcher plugin.
type Config struct {
	// DebounceDelay is how long to wait after the last change before
	// reloading. Editors often write a file in several steps.
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{DebounceDelay: DefaultDebounceDelay}
}

// Plugin watches one scene file and hands rebuilt trees to the driver.
type Plugin struct {
	path          string
	load          Loader
	debounceDelay time.Duration

	mu       sync.Mutex
	logger   log.Logger
	ctrl     driver.Controller
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// New creates a watcher for the scene file at path.
func New(path string, load Loader, cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}
	return &Plugin{
		path:          path,
		load:          load,
		debounceDelay: cfg.DebounceDelay,
		logger:        log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "scenewatcher"
}

// Initialize starts watching the scene file's directory.
func (p *Plugin) Initialize(ctx context.Context, cfg driver.PluginConfig) error {
	if p.load == nil {
		return fmt.Errorf("scenewatcher: nil loader")
	}

	p.mu.Lock()
	if cfg.Logger != nil {
		p.logger = cfg.Logger
	}
	p.ctrl = cfg.Controller
	p.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("scenewatcher: create watcher: %w", err)
	}
	dir := filepath.Dir(p.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("scenewatcher: watch %s: %w", dir, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("scene watcher started",
		log.String("path", p.path),
		log.Duration("debounce", p.debounceDelay),
	)

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher, drops a pending reload and waits for one that
// is already loading.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	p.mu.Lock()
	p.stopPending()
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.scheduleReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("scene watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) scheduleReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopPending()
	p.wg.Add(1)
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		defer p.wg.Done()
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// stopPending cancels a scheduled reload that has not started. p.mu must be
// held.
func (p *Plugin) stopPending() {
	if p.debounce != nil && p.debounce.Stop() {
		p.wg.Done()
	}
	p.debounce = nil
}

func (p *Plugin) reload() {
	root, err := p.load(p.path)
	if err != nil {
		p.logger.Warn("scene reload skipped, keeping current tree",
			log.String("path", p.path),
			log.Err(err),
		)
		return
	}

	p.mu.Lock()
	ctrl := p.ctrl
	p.mu.Unlock()
	if ctrl == nil {
		return
	}
	if err := ctrl.Reload(root); err != nil {
		p.logger.Warn("scene reload rejected", log.String("path", p.path), log.Err(err))
		return
	}
	p.logger.Info("scene reload requested", log.String("path", p.path))
}
