// Package watch reports which published pages of which projects changed on
// disk, so previews can refresh without the editor being connected.
package watch

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"central-illustration/internal/logger"

	"github.com/fsnotify/fsnotify"
)

type pageKey struct {
	folder string
	page   int
}

// Watcher watches <root>/<folder>/public/content/page-N for every project.
// Bursts of events for one page are coalesced into a single callback.
type Watcher struct {
	fs       *fsnotify.Watcher
	root     string
	delay    time.Duration
	onChange func(folder string, page int)
	log      *logger.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(root string, delay time.Duration, onChange func(folder string, page int), log *logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.Nop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       fsw,
		root:     root,
		delay:    delay,
		onChange: onChange,
		log:      log.With("component", "watch"),
		done:     make(chan struct{}),
	}

	entries, err := os.ReadDir(root)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		fsw.Close()
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := w.AddProject(e.Name()); err != nil {
			w.log.Warn("cannot watch project", "folder", e.Name(), "error", err)
		}
	}
	return w, nil
}

func (w *Watcher) contentDir(folder string) string {
	return filepath.Join(w.root, folder, "public", "content")
}

// AddProject starts watching a project's live content tree. A project without
// one is skipped.
func (w *Watcher) AddProject(folder string) error {
	dir := w.contentDir(folder)
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return nil
	}
	if err := w.fs.Add(dir); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "page-") {
			if err := w.fs.Add(filepath.Join(dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// locate maps a changed path to its project and page.
func (w *Watcher) locate(path string) (pageKey, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return pageKey{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 4 || parts[1] != "public" || parts[2] != "content" {
		return pageKey{}, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(parts[3], "page-"))
	if err != nil || !strings.HasPrefix(parts[3], "page-") || n < 1 {
		return pageKey{}, false
	}
	return pageKey{folder: parts[0], page: n}, true
}

func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop()
	}()
}

func (w *Watcher) loop() {
	pending := map[pageKey]struct{}{}
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			key, ok := w.locate(event.Name)
			if !ok {
				continue
			}
			if event.Has(fsnotify.Create) {
				if st, err := os.Stat(event.Name); err == nil && st.IsDir() {
					if err := w.fs.Add(event.Name); err != nil {
						w.log.Warn("cannot watch page", "path", event.Name, "error", err)
					}
				}
			}
			pending[key] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.delay)
				fire = timer.C
			}

		case <-fire:
			w.flush(pending)
			pending = map[pageKey]struct{}{}
			timer, fire = nil, nil

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) flush(pending map[pageKey]struct{}) {
	keys := make([]pageKey, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].folder != keys[j].folder {
			return keys[i].folder < keys[j].folder
		}
		return keys[i].page < keys[j].page
	})
	for _, k := range keys {
		w.log.Debug("content changed", "folder", k.folder, "page", k.page)
		w.onChange(k.folder, k.page)
	}
}

func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}
