// Package editor is the content editor for one demonstration: page
// selection, the markdown buffer for the selected slot, page add/delete,
// publishing and the demo's preview lifecycle.
//
// Loads can race with selection changes. Every load takes a sequence number
// and its result is applied only if no newer load was issued meanwhile.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"central-illustration/internal/apierr"
	"central-illustration/internal/logger"
	"central-illustration/internal/models"
	"central-illustration/internal/preview"

	"golang.org/x/sync/errgroup"
)

var (
	ErrCanceled    = errors.New("canceled by user")
	ErrNoPages     = errors.New("project has no pages")
	ErrOutOfRange  = errors.New("page position out of range")
	ErrInvalidType = errors.New("invalid content type")
	ErrControl     = errors.New("process manager refused")
	ErrNotLoaded   = errors.New("content is still loading")
)

type Backend interface {
	Demo(ctx context.Context, demoID int64) (*models.Demonstration, error)
	ProjectExtension(ctx context.Context, demoID int64) (*string, error)
	Pages(ctx context.Context, demoID int64) ([]models.Page, error)
	PageContent(ctx context.Context, demoID int64, page int, ct models.ContentType) (string, error)
	UpdatePageContent(ctx context.Context, demoID int64, page int, ct models.ContentType, text string) error
	AddPage(ctx context.Context, demoID int64, style models.PageStyle) (*models.AddPageResponse, error)
	DeletePage(ctx context.Context, demoID int64, page int) error
	Publish(ctx context.Context, demoID int64, page *int) (*models.PublishResponse, error)
	DemoStatus(ctx context.Context, demoID int64) (*models.DemoStatus, error)
	StartDemo(ctx context.Context, demoID int64) (*models.ControlResult, error)
	StopDemo(ctx context.Context, demoID int64) (*models.ControlResult, error)
}

// UI is how the editor asks before destructive actions and reports failed
// writes.
type UI interface {
	Confirm(prompt string) bool
	Alert(message string)
}

type Options struct {
	// VisualLayout enables the hero canvas for templates that have one.
	VisualLayout bool
	Poster       preview.Poster
	UI           UI
	Log          *logger.Logger
}

// State is a copy of what the editor currently shows.
type State struct {
	DemoID       int64
	Title        string
	Extension    *string
	VisualLayout bool
	Pages        []models.Page
	Selected     int
	ContentType  models.ContentType
	Content      string
	Running      bool
	URL          *string
}

type Editor struct {
	api    Backend
	demoID int64
	opts   Options
	log    *logger.Logger

	mu        sync.Mutex
	title     string
	extension *string
	pages     []models.Page
	selected  int
	ct        models.ContentType
	seq       uint64

	// text belongs to the slot (bufPage, bufType), not to the selection.
	// bufPage is 0 until a load or a local edit binds the buffer.
	text    string
	bufPage int
	bufType models.ContentType

	running   bool
	url       *string
}

type declineUI struct{}

func (declineUI) Confirm(string) bool { return false }
func (declineUI) Alert(string)        {}

func New(api Backend, demoID int64, opts Options) *Editor {
	if opts.Poster == nil {
		opts.Poster = preview.Discard{}
	}
	if opts.UI == nil {
		opts.UI = declineUI{}
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Editor{
		api:    api,
		demoID: demoID,
		opts:   opts,
		log:    log.With("demo_id", demoID),
		ct:     models.ContentTitle,
	}
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		DemoID:       e.demoID,
		Title:        e.title,
		Extension:    e.extension,
		VisualLayout: e.opts.VisualLayout,
		Pages:        append([]models.Page(nil), e.pages...),
		Selected:     e.selected,
		ContentType:  e.ct,
		Content:      e.text,
		Running:      e.running,
		URL:          e.url,
	}
}

// Open loads everything the editor shows. Only the page list is required;
// title, extension and run status are best effort.
func (e *Editor) Open(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	var pages []models.Page
	g.Go(func() error {
		var err error
		pages, err = e.api.Pages(gctx, e.demoID)
		return err
	})
	g.Go(func() error {
		if d, err := e.api.Demo(gctx, e.demoID); err == nil {
			e.mu.Lock()
			e.title = d.Title
			e.mu.Unlock()
		} else {
			e.log.Warn("load demo", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if name, err := e.api.ProjectExtension(gctx, e.demoID); err == nil {
			e.mu.Lock()
			e.extension = name
			e.mu.Unlock()
		} else {
			e.log.Warn("load project extension", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		e.refreshStatus(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load pages: %w", err)
	}

	e.mu.Lock()
	e.pages = pages
	e.selected = 0
	e.mu.Unlock()

	if len(pages) > 0 {
		e.load(ctx)
	}
	return nil
}

// pageIndexAt must be called with mu held. Records without a page_index
// fall back to their 1-based position.
func (e *Editor) pageIndexAt(pos int) int {
	if pos >= 0 && pos < len(e.pages) && e.pages[pos].PageIndex > 0 {
		return e.pages[pos].PageIndex
	}
	return pos + 1
}

// PageIndex is the page_index of the selected page.
func (e *Editor) PageIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pageIndexAt(e.selected)
}

// load fetches the selected slot. A failed read leaves an empty buffer.
func (e *Editor) load(ctx context.Context) {
	e.mu.Lock()
	e.seq++
	seq := e.seq
	page, ct := e.pageIndexAt(e.selected), e.ct
	e.mu.Unlock()

	text, err := e.api.PageContent(ctx, e.demoID, page, ct)
	if err != nil {
		e.log.Warn("load content", "page", page, "type", ct, "error", err)
		text = ""
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.seq {
		e.log.Debug("dropping stale content load", "page", page, "type", ct)
		return
	}
	e.text, e.bufPage, e.bufType = text, page, ct
}

func (e *Editor) SelectPage(ctx context.Context, pos int) error {
	e.mu.Lock()
	if pos < 0 || pos >= len(e.pages) {
		e.mu.Unlock()
		return ErrOutOfRange
	}
	e.selected = pos
	e.mu.Unlock()

	e.load(ctx)
	return nil
}

func (e *Editor) SelectContentType(ctx context.Context, ct models.ContentType) error {
	if !ct.Valid() {
		return ErrInvalidType
	}
	e.mu.Lock()
	e.ct = ct
	empty := len(e.pages) == 0
	e.mu.Unlock()

	if !empty {
		e.load(ctx)
	}
	return nil
}

// SetContent edits the local buffer for the selected slot. A load still in
// flight is dropped so it cannot overwrite the edit. Nothing is sent until
// Save.
func (e *Editor) SetContent(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pages) == 0 {
		return
	}
	e.seq++
	e.text, e.bufPage, e.bufType = text, e.pageIndexAt(e.selected), e.ct
}

func (e *Editor) fail(err error, fallback string) error {
	e.opts.UI.Alert(apierr.Message(err, fallback))
	return err
}

// controlFailed reports a start or stop the process manager answered with
// status "error".
func (e *Editor) controlFailed(res *models.ControlResult, fallback string) error {
	msg := res.Message
	if msg == "" {
		msg = fallback
	}
	e.opts.UI.Alert(msg)
	return fmt.Errorf("%w: %s", ErrControl, msg)
}

// Save writes the buffer to the slot it was loaded for, which can lag the
// selection while a load is in flight. Once the backend has accepted it the
// preview is told to refetch that page.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if len(e.pages) == 0 {
		e.mu.Unlock()
		return ErrNoPages
	}
	if e.bufPage == 0 {
		e.mu.Unlock()
		return ErrNotLoaded
	}
	page, ct, text := e.bufPage, e.bufType, e.text
	e.mu.Unlock()

	if err := e.api.UpdatePageContent(ctx, e.demoID, page, ct, text); err != nil {
		return e.fail(err, "Failed to save content")
	}
	e.opts.Poster.Post(preview.ContentUpdatedMessage(page))
	return nil
}

func (e *Editor) reloadPages(ctx context.Context) ([]models.Page, error) {
	pages, err := e.api.Pages(ctx, e.demoID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.pages = pages
	e.mu.Unlock()
	return pages, nil
}

func clamp(pos, n int) int { return max(0, min(pos, n-1)) }

// AddPage creates a page from one of the two base styles and selects it.
func (e *Editor) AddPage(ctx context.Context, style models.PageStyle) (int, error) {
	res, err := e.api.AddPage(ctx, e.demoID, style)
	if err != nil {
		return 0, e.fail(err, "Failed to add page")
	}
	pages, err := e.reloadPages(ctx)
	if err != nil {
		return res.PageIndex, e.fail(err, "Failed to reload pages")
	}

	e.mu.Lock()
	e.selected = clamp(len(pages)-1, len(pages))
	e.mu.Unlock()
	if len(pages) > 0 {
		e.load(ctx)
	}
	return res.PageIndex, nil
}

// DeletePage removes the selected page after confirmation and keeps the
// selection in range.
func (e *Editor) DeletePage(ctx context.Context) error {
	e.mu.Lock()
	if len(e.pages) == 0 {
		e.mu.Unlock()
		return ErrNoPages
	}
	old := e.selected
	page := e.pageIndexAt(old)
	e.mu.Unlock()

	if !e.opts.UI.Confirm(fmt.Sprintf("Delete Page %d? This cannot be undone.", page)) {
		return ErrCanceled
	}
	if err := e.api.DeletePage(ctx, e.demoID, page); err != nil {
		return e.fail(err, "Failed to delete page")
	}
	pages, err := e.reloadPages(ctx)
	if err != nil {
		return e.fail(err, "Failed to reload pages")
	}

	e.mu.Lock()
	e.selected = clamp(old, len(pages))
	if e.bufPage == page {
		e.bufPage = 0
	}
	if len(pages) == 0 {
		e.seq++
		e.text = ""
	}
	e.mu.Unlock()

	if len(pages) > 0 {
		e.load(ctx)
	}
	return nil
}

// Publish promotes draft edits so the running demo serves them. A nil page
// publishes every page.
func (e *Editor) Publish(ctx context.Context, page *int) (*models.PublishResponse, error) {
	prompt := "Publish all pages? Changes become visible in the running demo."
	if page != nil {
		prompt = fmt.Sprintf("Publish Page %d? Changes become visible in the running demo.", *page)
	}
	if !e.opts.UI.Confirm(prompt) {
		return nil, ErrCanceled
	}
	res, err := e.api.Publish(ctx, e.demoID, page)
	if err != nil {
		return nil, e.fail(err, "Failed to publish")
	}
	if _, err := e.reloadPages(ctx); err != nil {
		e.log.Warn("reload pages after publish", "error", err)
	}
	for _, n := range res.Published {
		e.opts.Poster.Post(preview.ContentUpdatedMessage(n))
	}
	return res, nil
}

func (e *Editor) refreshStatus(ctx context.Context) {
	st, err := e.api.DemoStatus(ctx, e.demoID)
	if err != nil {
		e.log.Warn("load demo status", "error", err)
		return
	}
	e.mu.Lock()
	e.running = st.Status == models.StateRunning
	e.url = st.URL
	e.mu.Unlock()
}

// StartPreview asks the process manager to run the demo, then re-polls the
// status once.
func (e *Editor) StartPreview(ctx context.Context) (*models.ControlResult, error) {
	res, err := e.api.StartDemo(ctx, e.demoID)
	if err != nil {
		return nil, e.fail(err, "Failed to start preview")
	}
	if res.Status == "error" {
		return res, e.controlFailed(res, "Failed to start preview")
	}
	e.refreshStatus(ctx)
	return res, nil
}

func (e *Editor) StopPreview(ctx context.Context) (*models.ControlResult, error) {
	res, err := e.api.StopDemo(ctx, e.demoID)
	if err != nil {
		return nil, e.fail(err, "Failed to stop preview")
	}
	if res.Status == "error" {
		return res, e.controlFailed(res, "Failed to stop preview")
	}
	e.refreshStatus(ctx)
	return res, nil
}

// HandleMessage reacts to messages from the preview. SLIDE_CHANGED selects
// that position when it is in range; everything else is ignored.
func (e *Editor) HandleMessage(ctx context.Context, m preview.Message) {
	if m.Type != preview.SlideChanged || m.Slide == nil {
		return
	}
	e.mu.Lock()
	pos, same := *m.Slide, *m.Slide == e.selected
	e.mu.Unlock()
	if same {
		return
	}
	if err := e.SelectPage(ctx, pos); err != nil {
		e.log.Debug("ignoring slide change", "slide", pos, "error", err)
	}
}
