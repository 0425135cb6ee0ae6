// Package content is the per-project markdown and layout store addressed by
// (project, page_index, content_type).
//
// Each project keeps two trees:
//
//	<folder>/public/content/page-N/   live: what the running demo fetches
//	<folder>/.drafts/content/page-N/  editable: what the editor reads and writes
//
// Reads prefer the draft. Publish promotes drafts to live.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"central-illustration/internal/models"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	ErrProjectNotFound = errors.New("project directory not found")
	ErrPageNotFound    = errors.New("page not found")
	ErrInvalidPage     = errors.New("page index must be positive")
)

const (
	pagePrefix = "page-"
	layoutFile = "layout.json"
)

// Templates resolves the directory a new page is seeded from.
type Templates interface {
	PageTemplateDir(folder string, style models.PageStyle) string
}

type Store struct {
	root      string
	templates Templates
	md        goldmark.Markdown

	// writes and structural changes (add, delete, publish) are serialized
	// per store
	mu sync.Mutex
}

func NewStore(projectsDir string, templates Templates) *Store {
	return &Store{
		root:      projectsDir,
		templates: templates,
		md:        goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

func (s *Store) projectDir(folder string) string { return filepath.Join(s.root, folder) }

func (s *Store) liveDir(folder string) string {
	return filepath.Join(s.projectDir(folder), "public", "content")
}

func (s *Store) draftDir(folder string) string {
	return filepath.Join(s.projectDir(folder), ".drafts", "content")
}

// LiveDir is the directory the running demo serves /content from.
func (s *Store) LiveDir(folder string) string { return s.liveDir(folder) }

func pageDirName(index int) string { return pagePrefix + strconv.Itoa(index) }

func (s *Store) checkProject(folder string) error {
	info, err := os.Stat(s.projectDir(folder))
	if err != nil || !info.IsDir() {
		return ErrProjectNotFound
	}
	return nil
}

// pageIndexes lists the page-N directories under dir.
func pageIndexes(dir string) (map[int]bool, error) {
	out := map[int]bool{}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), pagePrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), pagePrefix))
		if err != nil || n < 1 {
			continue
		}
		out[n] = true
	}
	return out, nil
}

func (s *Store) indexes(folder string) (live, draft map[int]bool, err error) {
	if live, err = pageIndexes(s.liveDir(folder)); err != nil {
		return nil, nil, err
	}
	if draft, err = pageIndexes(s.draftDir(folder)); err != nil {
		return nil, nil, err
	}
	return live, draft, nil
}

// readFile prefers the draft copy. A missing file is not an error.
func (s *Store) readFile(folder string, page int, name string) (string, bool, error) {
	for _, dir := range []string{s.draftDir(folder), s.liveDir(folder)} {
		data, err := os.ReadFile(filepath.Join(dir, pageDirName(page), name))
		if err == nil {
			return string(data), true, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", false, err
		}
	}
	return "", false, nil
}

// Pages lists every page that exists in either tree, in page_index order.
func (s *Store) Pages(folder string) ([]models.Page, error) {
	if err := s.checkProject(folder); err != nil {
		return nil, err
	}
	live, draft, err := s.indexes(folder)
	if err != nil {
		return nil, err
	}

	all := make([]int, 0, len(live)+len(draft))
	for n := range live {
		all = append(all, n)
	}
	for n := range draft {
		if !live[n] {
			all = append(all, n)
		}
	}
	sort.Ints(all)

	pages := make([]models.Page, 0, len(all))
	for _, n := range all {
		title, _, err := s.readFile(folder, n, string(models.ContentTitle)+".md")
		if err != nil {
			return nil, err
		}
		points, _, err := s.readFile(folder, n, string(models.ContentPoints)+".md")
		if err != nil {
			return nil, err
		}
		_, hasDetail, err := s.readFile(folder, n, string(models.ContentDetail)+".md")
		if err != nil {
			return nil, err
		}
		pages = append(pages, models.Page{
			PageIndex:      n,
			PageNumber:     n,
			TitleContent:   title,
			PointsContent:  points,
			HasDetail:      hasDetail,
			HasUnpublished: draft[n],
		})
	}
	return pages, nil
}

// Content returns the markdown for one slot, or "" when nothing was written yet.
func (s *Store) Content(folder string, page int, ct models.ContentType) (string, error) {
	if page < 1 {
		return "", ErrInvalidPage
	}
	if err := s.checkProject(folder); err != nil {
		return "", err
	}
	text, _, err := s.readFile(folder, page, string(ct)+".md")
	return text, err
}

// SetContent overwrites one slot in the editable tree. The page must exist.
func (s *Store) SetContent(folder string, page int, ct models.ContentType, text string) error {
	return s.writeDraft(folder, page, string(ct)+".md", []byte(text))
}

func (s *Store) Layout(folder string, page int) (*models.Layout, error) {
	if page < 1 {
		return nil, ErrInvalidPage
	}
	if err := s.checkProject(folder); err != nil {
		return nil, err
	}
	raw, ok, err := s.readFile(folder, page, layoutFile)
	if err != nil {
		return nil, err
	}
	layout := &models.Layout{Items: []models.LayoutItem{}}
	if !ok {
		return layout, nil
	}
	if err := json.Unmarshal([]byte(raw), layout); err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	if layout.Items == nil {
		layout.Items = []models.LayoutItem{}
	}
	return layout, nil
}

// SetLayout replaces the whole item list for a page. The page must exist.
func (s *Store) SetLayout(folder string, page int, layout models.Layout) error {
	if layout.Items == nil {
		layout.Items = []models.LayoutItem{}
	}
	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return err
	}
	return s.writeDraft(folder, page, layoutFile, data)
}

// writeDraft refuses pages missing from both trees, so a write racing a
// delete cannot bring the page back.
func (s *Store) writeDraft(folder string, page int, name string, data []byte) error {
	if page < 1 {
		return ErrInvalidPage
	}
	if err := s.checkProject(folder); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	live, draft, err := s.indexes(folder)
	if err != nil {
		return err
	}
	if !live[page] && !draft[page] {
		return ErrPageNotFound
	}
	dir := filepath.Join(s.draftDir(folder), pageDirName(page))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, name), data)
}

// AddPage creates page max+1 in the live tree, seeded from the template page
// for style. Existing pages keep their indexes.
func (s *Store) AddPage(folder string, style models.PageStyle) (int, error) {
	if err := s.checkProject(folder); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	live, draft, err := s.indexes(folder)
	if err != nil {
		return 0, err
	}
	next := 1
	for _, set := range []map[int]bool{live, draft} {
		for n := range set {
			if n >= next {
				next = n + 1
			}
		}
	}

	newDir := filepath.Join(s.liveDir(folder), pageDirName(next))
	if err := os.MkdirAll(newDir, 0o755); err != nil {
		return 0, err
	}

	var tplDir string
	if s.templates != nil {
		tplDir = s.templates.PageTemplateDir(folder, style)
	}
	for _, ct := range models.ContentTypes {
		name := string(ct) + ".md"
		var data []byte
		if tplDir != "" {
			if b, err := os.ReadFile(filepath.Join(tplDir, name)); err == nil {
				data = b
			}
		}
		if err := os.WriteFile(filepath.Join(newDir, name), data, 0o644); err != nil {
			os.RemoveAll(newDir)
			return 0, err
		}
	}
	return next, nil
}

// DeletePage removes one page from both trees. Other pages are not renumbered.
func (s *Store) DeletePage(folder string, page int) error {
	if page < 1 {
		return ErrInvalidPage
	}
	if err := s.checkProject(folder); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	live, draft, err := s.indexes(folder)
	if err != nil {
		return err
	}
	if !live[page] && !draft[page] {
		return ErrPageNotFound
	}
	for _, dir := range []string{s.liveDir(folder), s.draftDir(folder)} {
		if err := os.RemoveAll(filepath.Join(dir, pageDirName(page))); err != nil {
			return err
		}
	}
	return nil
}

// Publish promotes draft pages into the live tree and renders each markdown
// file to a sibling .html. page limits it to one page; nil means all.
// It returns the page indexes that were promoted.
func (s *Store) Publish(folder string, page *int) ([]int, error) {
	if err := s.checkProject(folder); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, draft, err := s.indexes(folder)
	if err != nil {
		return nil, err
	}

	var targets []int
	if page != nil {
		if draft[*page] {
			targets = []int{*page}
		}
	} else {
		for n := range draft {
			targets = append(targets, n)
		}
		sort.Ints(targets)
	}

	published := []int{}
	for _, n := range targets {
		if err := s.promote(folder, n); err != nil {
			return published, fmt.Errorf("publish page %d: %w", n, err)
		}
		published = append(published, n)
	}
	return published, nil
}

func (s *Store) promote(folder string, page int) error {
	src := filepath.Join(s.draftDir(folder), pageDirName(page))
	dst := filepath.Join(s.liveDir(folder), pageDirName(page))
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		if err != nil {
			return err
		}
		if err := writeFileAtomic(filepath.Join(dst, e.Name()), data); err != nil {
			return err
		}
		if strings.HasSuffix(e.Name(), ".md") {
			html, err := s.Render(data)
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(e.Name(), ".md") + ".html"
			if err := writeFileAtomic(filepath.Join(dst, name), html); err != nil {
				return err
			}
		}
	}
	return os.RemoveAll(src)
}

// Render converts markdown to HTML with GitHub flavoured extensions.
func (s *Store) Render(markdown []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.md.Convert(markdown, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
