package editor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"central-illustration/internal/apierr"
	"central-illustration/internal/models"
	"central-illustration/internal/preview"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slot struct {
	page int
	ct   models.ContentType
}

type fakeBackend struct {
	mu       sync.Mutex
	pages    map[int]bool
	content  map[slot]string
	gates    map[slot]chan struct{}
	running  bool
	loads    int
	statuses int

	pagesErr  error
	saveErr   error
	statusErr error
	startRes  *models.ControlResult
	published []int
}

func newFakeBackend(pages ...int) *fakeBackend {
	f := &fakeBackend{pages: map[int]bool{}, content: map[slot]string{}, gates: map[slot]chan struct{}{}}
	for _, p := range pages {
		f.pages[p] = true
		for _, ct := range models.ContentTypes {
			f.content[slot{p, ct}] = fmt.Sprintf("%s of %d", ct, p)
		}
	}
	return f
}

func (f *fakeBackend) Demo(ctx context.Context, id int64) (*models.Demonstration, error) {
	return &models.Demonstration{ID: id, Title: "Deck"}, nil
}

func (f *fakeBackend) ProjectExtension(ctx context.Context, id int64) (*string, error) {
	return nil, nil
}

func (f *fakeBackend) Pages(ctx context.Context, id int64) ([]models.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pagesErr != nil {
		return nil, f.pagesErr
	}
	idx := make([]int, 0, len(f.pages))
	for p := range f.pages {
		idx = append(idx, p)
	}
	sort.Ints(idx)
	out := make([]models.Page, 0, len(idx))
	for _, p := range idx {
		out = append(out, models.Page{PageIndex: p, PageNumber: p})
	}
	return out, nil
}

func (f *fakeBackend) PageContent(ctx context.Context, id int64, page int, ct models.ContentType) (string, error) {
	f.mu.Lock()
	f.loads++
	gate := f.gates[slot{page, ct}]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.content[slot{page, ct}]
	if !ok {
		return "", apierr.New(404, "Page not found")
	}
	return text, nil
}

func (f *fakeBackend) UpdatePageContent(ctx context.Context, id int64, page int, ct models.ContentType, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.content[slot{page, ct}] = text
	return nil
}

func (f *fakeBackend) AddPage(ctx context.Context, id int64, style models.PageStyle) (*models.AddPageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := 1
	for p := range f.pages {
		next = max(next, p+1)
	}
	f.pages[next] = true
	for _, ct := range models.ContentTypes {
		f.content[slot{next, ct}] = ""
	}
	return &models.AddPageResponse{Status: "success", PageIndex: next}, nil
}

func (f *fakeBackend) DeletePage(ctx context.Context, id int64, page int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.pages[page] {
		return apierr.New(404, "Page not found")
	}
	delete(f.pages, page)
	return nil
}

func (f *fakeBackend) Publish(ctx context.Context, id int64, page *int) (*models.PublishResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = []int{1, 2}
	if page != nil {
		f.published = []int{*page}
	}
	return &models.PublishResponse{Status: "success", Published: f.published}, nil
}

func (f *fakeBackend) DemoStatus(ctx context.Context, id int64) (*models.DemoStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if !f.running {
		return &models.DemoStatus{Status: models.StateNotRunning}, nil
	}
	port, url := 3001, "http://127.0.0.1:3001"
	return &models.DemoStatus{Status: models.StateRunning, Port: &port, URL: &url}, nil
}

func (f *fakeBackend) StartDemo(ctx context.Context, id int64) (*models.ControlResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startRes != nil {
		return f.startRes, nil
	}
	f.running = true
	return &models.ControlResult{Status: "started"}, nil
}

func (f *fakeBackend) StopDemo(ctx context.Context, id int64) (*models.ControlResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	return &models.ControlResult{Status: "stopped"}, nil
}

type scriptedUI struct {
	answer  bool
	prompts []string
	alerts  []string
}

func (u *scriptedUI) Confirm(p string) bool { u.prompts = append(u.prompts, p); return u.answer }
func (u *scriptedUI) Alert(m string)        { u.alerts = append(u.alerts, m) }

type recorder struct {
	mu   sync.Mutex
	msgs []preview.Message
}

func (r *recorder) Post(m preview.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func open(t *testing.T, api *fakeBackend, ui *scriptedUI, poster preview.Poster) *Editor {
	t.Helper()
	e := New(api, 7, Options{UI: ui, Poster: poster})
	require.NoError(t, e.Open(context.Background()))
	return e
}

func TestOpenLoadsFirstPage(t *testing.T) {
	api := newFakeBackend(1, 2)
	api.statusErr = errors.New("status down")
	e := open(t, api, &scriptedUI{}, nil)

	st := e.State()
	assert.Equal(t, "Deck", st.Title)
	assert.Nil(t, st.Extension)
	assert.Len(t, st.Pages, 2)
	assert.Equal(t, 0, st.Selected)
	assert.Equal(t, models.ContentTitle, st.ContentType)
	assert.Equal(t, "title of 1", st.Content)
	assert.False(t, st.Running)
}

func TestOpenRequiresPages(t *testing.T) {
	api := newFakeBackend()
	api.pagesErr = apierr.New(404, "Project not found")
	e := New(api, 7, Options{})
	assert.Error(t, e.Open(context.Background()))
}

func TestReadFailureDegradesToEmpty(t *testing.T) {
	api := newFakeBackend(1)
	e := open(t, api, &scriptedUI{}, nil)
	delete(api.content, slot{1, models.ContentDetail})

	require.NoError(t, e.SelectContentType(context.Background(), models.ContentDetail))
	assert.Equal(t, "", e.State().Content)
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	api := newFakeBackend(1)
	e := open(t, api, &scriptedUI{}, nil)
	ctx := context.Background()

	gate := make(chan struct{})
	api.mu.Lock()
	api.gates[slot{1, models.ContentPoints}] = gate
	loadsBefore := api.loads
	api.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.SelectContentType(ctx, models.ContentPoints)
		close(done)
	}()
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.loads == loadsBefore+1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, e.SelectContentType(ctx, models.ContentDetail))
	assert.Equal(t, "detail of 1", e.State().Content)

	close(gate)
	<-done
	st := e.State()
	assert.Equal(t, models.ContentDetail, st.ContentType)
	assert.Equal(t, "detail of 1", st.Content)
}

// gateLoad holds the next load of (page, ct) and returns the gate and the
// load count to wait for.
func gateLoad(api *fakeBackend, page int, ct models.ContentType) (chan struct{}, int) {
	gate := make(chan struct{})
	api.mu.Lock()
	defer api.mu.Unlock()
	api.gates[slot{page, ct}] = gate
	return gate, api.loads + 1
}

func waitLoads(t *testing.T, api *fakeBackend, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.loads == n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSaveDuringPageSwitchWritesLoadedSlot(t *testing.T) {
	api := newFakeBackend(1, 2)
	rec := &recorder{}
	e := open(t, api, &scriptedUI{}, rec)
	ctx := context.Background()

	gate, loads := gateLoad(api, 2, models.ContentTitle)
	done := make(chan struct{})
	go func() {
		e.SelectPage(ctx, 1)
		close(done)
	}()
	waitLoads(t, api, loads)

	require.NoError(t, e.Save(ctx))
	api.mu.Lock()
	assert.Equal(t, "title of 1", api.content[slot{1, models.ContentTitle}])
	assert.Equal(t, "title of 2", api.content[slot{2, models.ContentTitle}])
	api.mu.Unlock()
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, 1, *rec.msgs[0].Page)

	close(gate)
	<-done
	assert.Equal(t, "title of 2", e.State().Content)

	e.SetContent("# Two")
	require.NoError(t, e.Save(ctx))
	api.mu.Lock()
	assert.Equal(t, "# Two", api.content[slot{2, models.ContentTitle}])
	assert.Equal(t, "title of 1", api.content[slot{1, models.ContentTitle}])
	api.mu.Unlock()
}

func TestLocalEditSurvivesLateLoad(t *testing.T) {
	api := newFakeBackend(1)
	e := open(t, api, &scriptedUI{}, nil)
	ctx := context.Background()

	gate, loads := gateLoad(api, 1, models.ContentPoints)
	done := make(chan struct{})
	go func() {
		e.SelectContentType(ctx, models.ContentPoints)
		close(done)
	}()
	waitLoads(t, api, loads)

	e.SetContent("- typed by user")
	close(gate)
	<-done
	assert.Equal(t, "- typed by user", e.State().Content)

	require.NoError(t, e.Save(ctx))
	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, "- typed by user", api.content[slot{1, models.ContentPoints}])
	assert.Equal(t, "title of 1", api.content[slot{1, models.ContentTitle}])
}

func TestSaveRefusedWhileDeletedPageReloads(t *testing.T) {
	api := newFakeBackend(1, 2)
	e := open(t, api, &scriptedUI{answer: true}, nil)
	ctx := context.Background()

	gate, loads := gateLoad(api, 2, models.ContentTitle)
	done := make(chan error, 1)
	go func() { done <- e.DeletePage(ctx) }()
	waitLoads(t, api, loads)

	assert.ErrorIs(t, e.Save(ctx), ErrNotLoaded)
	close(gate)
	require.NoError(t, <-done)

	require.NoError(t, e.Save(ctx))
	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, "title of 2", api.content[slot{2, models.ContentTitle}])
	assert.False(t, api.pages[1])
}

func TestSavePostsOnlyAfterSuccess(t *testing.T) {
	api := newFakeBackend(1, 3)
	ui, rec := &scriptedUI{}, &recorder{}
	e := open(t, api, ui, rec)
	ctx := context.Background()

	require.NoError(t, e.SelectPage(ctx, 1))
	e.SetContent("# Hello")

	api.saveErr = apierr.New(403, "Not enough permissions")
	assert.Error(t, e.Save(ctx))
	assert.Empty(t, rec.msgs)
	assert.Equal(t, []string{"Not enough permissions"}, ui.alerts)
	assert.Equal(t, "# Hello", e.State().Content)

	api.saveErr = nil
	require.NoError(t, e.Save(ctx))
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, preview.ContentUpdated, rec.msgs[0].Type)
	assert.Equal(t, 3, *rec.msgs[0].Page)

	require.NoError(t, e.SelectPage(ctx, 0))
	require.NoError(t, e.SelectPage(ctx, 1))
	assert.Equal(t, "# Hello", e.State().Content)
}

func TestAddPageSelectsNewPage(t *testing.T) {
	api := newFakeBackend(1)
	e := open(t, api, &scriptedUI{}, nil)
	ctx := context.Background()

	idx, err := e.AddPage(ctx, models.PageStyle2)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	st := e.State()
	assert.Len(t, st.Pages, 2)
	assert.Equal(t, 1, st.Selected)
	assert.Equal(t, 2, e.PageIndex())

	e.SetContent("# Hello")
	require.NoError(t, e.Save(ctx))
	require.NoError(t, e.SelectPage(ctx, 0))
	require.NoError(t, e.SelectPage(ctx, 1))
	assert.Equal(t, "# Hello", e.State().Content)
}

func TestDeleteKeepsSelectionInRange(t *testing.T) {
	cases := []struct {
		pages    []int
		selected int
		want     int
	}{
		{[]int{1, 2, 3}, 2, 1},
		{[]int{1, 2, 3}, 1, 1},
		{[]int{1, 2, 3}, 0, 0},
		{[]int{4}, 0, 0},
	}
	for _, tc := range cases {
		api := newFakeBackend(tc.pages...)
		ui := &scriptedUI{answer: true}
		e := open(t, api, ui, nil)
		require.NoError(t, e.SelectPage(context.Background(), tc.selected))

		require.NoError(t, e.DeletePage(context.Background()))
		st := e.State()
		assert.Equal(t, tc.want, st.Selected, "pages %v selected %d", tc.pages, tc.selected)
		assert.GreaterOrEqual(t, st.Selected, 0)
		if len(st.Pages) > 0 {
			assert.Less(t, st.Selected, len(st.Pages))
		}
	}
}

func TestDeleteLastPageShowsEmptyState(t *testing.T) {
	api := newFakeBackend(5)
	ui := &scriptedUI{answer: true}
	e := open(t, api, ui, nil)

	api.mu.Lock()
	before := api.loads
	api.mu.Unlock()

	require.NoError(t, e.DeletePage(context.Background()))
	assert.Equal(t, []string{"Delete Page 5? This cannot be undone."}, ui.prompts)

	st := e.State()
	assert.Empty(t, st.Pages)
	assert.Equal(t, 0, st.Selected)
	assert.Equal(t, "", st.Content)
	assert.Equal(t, before, api.loads)

	assert.ErrorIs(t, e.DeletePage(context.Background()), ErrNoPages)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	api := newFakeBackend(1, 2)
	e := open(t, api, &scriptedUI{answer: false}, nil)

	assert.ErrorIs(t, e.DeletePage(context.Background()), ErrCanceled)
	assert.Len(t, api.pages, 2)
}

func TestPublish(t *testing.T) {
	api := newFakeBackend(1, 2)
	ui, rec := &scriptedUI{}, &recorder{}
	e := open(t, api, ui, rec)

	_, err := e.Publish(context.Background(), nil)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.Nil(t, api.published)

	ui.answer = true
	res, err := e.Publish(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, res.Published)
	assert.Len(t, rec.msgs, 2)
}

func TestPreviewLifecycleRepollsOnce(t *testing.T) {
	api := newFakeBackend(1)
	ui := &scriptedUI{}
	e := open(t, api, ui, nil)
	ctx := context.Background()
	polled := api.statuses

	_, err := e.StartPreview(ctx)
	require.NoError(t, err)
	assert.Equal(t, polled+1, api.statuses)
	st := e.State()
	assert.True(t, st.Running)
	require.NotNil(t, st.URL)
	assert.Equal(t, "http://127.0.0.1:3001", *st.URL)

	_, err = e.StopPreview(ctx)
	require.NoError(t, err)
	assert.Equal(t, polled+2, api.statuses)
	assert.False(t, e.State().Running)

	api.startRes = &models.ControlResult{Status: "error", Message: "Demo folder not found: x"}
	_, err = e.StartPreview(ctx)
	assert.ErrorIs(t, err, ErrControl)
	assert.Equal(t, []string{"Demo folder not found: x"}, ui.alerts)
	assert.Equal(t, polled+2, api.statuses)
}

func TestSlideChangedSelectsPosition(t *testing.T) {
	api := newFakeBackend(1, 2, 6)
	e := open(t, api, &scriptedUI{}, nil)
	ctx := context.Background()

	e.HandleMessage(ctx, preview.SlideChangedMessage(2))
	assert.Equal(t, 2, e.State().Selected)
	assert.Equal(t, "title of 6", e.State().Content)

	e.HandleMessage(ctx, preview.SlideChangedMessage(9))
	assert.Equal(t, 2, e.State().Selected)

	e.HandleMessage(ctx, preview.ContentUpdatedMessage(1))
	assert.Equal(t, 2, e.State().Selected)
}

func TestPageIndexFallsBackToPosition(t *testing.T) {
	e := New(newFakeBackend(), 1, Options{})
	e.pages = []models.Page{{PageIndex: 4}, {}, {PageIndex: 9}}
	assert.Equal(t, 4, e.pageIndexAt(0))
	assert.Equal(t, 2, e.pageIndexAt(1))
	assert.Equal(t, 9, e.pageIndexAt(2))
}
