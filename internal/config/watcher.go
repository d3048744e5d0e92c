// Package config triggers configuration reloads on SIGHUP and on changes to
// the configuration file.
package config

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// DefaultDebounce coalesces the burst of events one editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// ReloadFunc is called with the configuration path when a reload is due.
// A returned error is logged; the watcher keeps running.
type ReloadFunc func(configPath string) error

// Watcher calls a ReloadFunc when the configuration file changes or the
// process receives SIGHUP. Reloads never run concurrently.
type Watcher struct {
	path     string
	reload   ReloadFunc
	debounce time.Duration

	fs     *fsnotify.Watcher
	sighup chan os.Signal

	reloadMu sync.Mutex
	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long file events are coalesced before reloading.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithoutSignal disables the SIGHUP trigger.
func WithoutSignal() Option {
	return func(w *Watcher) { w.sighup = nil }
}

// Watch starts watching configPath. The watcher stops when ctx is done or
// Close is called.
//
// The parent directory is watched rather than the file: editors that save
// by writing a temporary file and renaming it replace the inode, which a
// file-level watch would lose.
func Watch(ctx context.Context, configPath string, reload ReloadFunc, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		path:     configPath,
		reload:   reload,
		debounce: DefaultDebounce,
		sighup:   make(chan os.Signal, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(configPath)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.fs = fsw

	if w.sighup != nil {
		signal.Notify(w.sighup, syscall.SIGHUP)
	}

	w.wg.Add(1)
	go w.loop(ctx)

	log.Infof("Watching config file: %s", configPath)
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		if w.sighup != nil {
			signal.Stop(w.sighup)
		}
		err = w.fs.Close()
	})
	w.wg.Wait()
	return err
}

// Trigger runs a reload immediately.
func (w *Watcher) Trigger() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()
	if err := w.reload(w.path); err != nil {
		log.Errorf("Configuration reload failed: %v", err)
	}
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	name := filepath.Base(w.path)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-w.sighup:
			log.Info("SIGHUP received, reloading configuration...")
			w.Trigger()
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			log.Info("Config file changed, reloading...")
			w.Trigger()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Errorf("File watcher error: %v", err)
		}
	}
}
