package layout

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"central-illustration/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	stored    map[int]models.Layout
	loadErr   error
	uploadErr error
	uploaded  []string
}

func newFakeBackend() *fakeBackend { return &fakeBackend{stored: map[int]models.Layout{}} }

func (f *fakeBackend) Layout(ctx context.Context, demoID int64, page int) (*models.Layout, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	l := f.stored[page]
	return &l, nil
}

func (f *fakeBackend) SaveLayout(ctx context.Context, demoID int64, page int, l models.Layout) error {
	f.stored[page] = l
	return nil
}

func (f *fakeBackend) UploadAsset(ctx context.Context, demoID int64, filename string, r io.Reader) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	data, _ := io.ReadAll(r)
	f.uploaded = append(f.uploaded, string(data))
	return "/uploads/" + filename, nil
}

func TestDefaults(t *testing.T) {
	c := New(newFakeBackend(), 1, 1, nil)

	text := c.AddText()
	assert.True(t, strings.HasPrefix(text.ID, "text_"))
	assert.Equal(t, "Edit me", text.Content)
	assert.Equal(t, [4]float64{80, 80, 200, 80}, [4]float64{text.X, text.Y, text.Width, text.Height})
	require.NotNil(t, text.Style)
	assert.Equal(t, 24.0, text.Style.FontSize)
	assert.Equal(t, "#ffffff", text.Style.Color)

	svg := c.AddSVG()
	assert.True(t, strings.HasPrefix(svg.ID, "svg_"))
	assert.Equal(t, DefaultSVG, svg.Content)
	assert.Equal(t, [4]float64{160, 160, 200, 100}, [4]float64{svg.X, svg.Y, svg.Width, svg.Height})

	assert.NotEqual(t, c.AddText().ID, text.ID)
	assert.Len(t, c.Items(), 3)
}

func TestDragMovesByPointerDelta(t *testing.T) {
	bounds := Rect{X: 30, Y: 50, Width: 800, Height: 450}
	starts := []Point{{0, 0}, {80, 80}, {412.5, 17}}
	for _, start := range starts {
		c := New(newFakeBackend(), 1, 1, nil)
		it := c.AddText()
		c.items[0].X, c.items[0].Y = start.X, start.Y

		p0 := Point{X: bounds.X + start.X + 13, Y: bounds.Y + start.Y + 7}
		p1 := Point{X: p0.X + 120, Y: p0.Y - 45}
		require.NoError(t, c.BeginDrag(it.ID, p0, bounds))
		c.PointerMove(Point{X: p0.X + 5, Y: p0.Y + 5}, bounds)
		c.PointerMove(p1, bounds)
		c.PointerUp()

		got, _ := c.Item(it.ID)
		assert.InDelta(t, start.X+120, got.X, 1e-9)
		assert.InDelta(t, start.Y-45, got.Y, 1e-9)
		assert.Equal(t, 200.0, got.Width)
	}
}

func TestDragUsesBoundsOfEachEvent(t *testing.T) {
	c := New(newFakeBackend(), 1, 1, nil)
	it := c.AddText()

	require.NoError(t, c.BeginDrag(it.ID, Point{X: 100, Y: 100}, Rect{}))
	// canvas scrolled up by 40 before the move
	c.PointerMove(Point{X: 100, Y: 100}, Rect{Y: -40})

	got, _ := c.Item(it.ID)
	assert.Equal(t, 80.0, got.X)
	assert.Equal(t, 120.0, got.Y)
}

func TestDragLeavesOtherItems(t *testing.T) {
	c := New(newFakeBackend(), 1, 1, nil)
	a, b := c.AddText(), c.AddSVG()

	require.NoError(t, c.BeginDrag(a.ID, Point{X: 90, Y: 90}, Rect{}))
	c.PointerMove(Point{X: 300, Y: 10}, Rect{})
	c.PointerUp()

	got, _ := c.Item(b.ID)
	assert.Equal(t, b, got)

	// moves after release change nothing
	before, _ := c.Item(a.ID)
	c.PointerMove(Point{X: 0, Y: 0}, Rect{})
	after, _ := c.Item(a.ID)
	assert.Equal(t, before, after)
	_, active := c.Active()
	assert.False(t, active)
}

func TestResizeNeverBelowMinimum(t *testing.T) {
	c := New(newFakeBackend(), 1, 1, nil)
	it := c.AddText()
	require.NoError(t, c.BeginResize(it.ID))

	for _, p := range []Point{{0, 0}, {81, 81}, {-500, 900}, {119.9, 109.9}, {400, 300}} {
		c.PointerMove(p, Rect{})
		got, _ := c.Item(it.ID)
		assert.GreaterOrEqual(t, got.Width, float64(MinWidth))
		assert.GreaterOrEqual(t, got.Height, float64(MinHeight))
	}
	got, _ := c.Item(it.ID)
	assert.Equal(t, 320.0, got.Width)
	assert.Equal(t, 220.0, got.Height)
	assert.Equal(t, 80.0, got.X)
}

func TestAddImage(t *testing.T) {
	api := newFakeBackend()
	c := New(api, 1, 1, nil)

	_, err := c.AddImage(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrNoFile)
	assert.Empty(t, c.Items())

	api.uploadErr = errors.New("413")
	_, err = c.AddImage(context.Background(), "a.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Empty(t, c.Items())

	api.uploadErr = nil
	it, err := c.AddImage(context.Background(), "a.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/a.png", it.Content)
	assert.Equal(t, [4]float64{120, 120, 240, 160}, [4]float64{it.X, it.Y, it.Width, it.Height})
	assert.Equal(t, []string{"png"}, api.uploaded)
}

func TestEditRemoveSave(t *testing.T) {
	api := newFakeBackend()
	c := New(api, 1, 2, nil)
	text, svg := c.AddText(), c.AddSVG()

	require.NoError(t, c.SetText(text.ID, "Hello"))
	assert.ErrorIs(t, c.SetText(svg.ID, "x"), ErrNotText)
	assert.ErrorIs(t, c.SetText("nope", "x"), ErrUnknownItem)

	assert.True(t, c.Remove(svg.ID))
	assert.False(t, c.Remove(svg.ID))

	assert.Empty(t, api.stored[2].Items)
	require.NoError(t, c.Save(context.Background()))
	require.Len(t, api.stored[2].Items, 1)
	assert.Equal(t, "Hello", api.stored[2].Items[0].Content)

	fresh := New(api, 1, 2, nil)
	fresh.Load(context.Background())
	assert.Equal(t, c.Items(), fresh.Items())
}

func TestLoadFailureLeavesEmptyCanvas(t *testing.T) {
	api := newFakeBackend()
	c := New(api, 1, 1, nil)
	c.AddText()

	api.loadErr = errors.New("boom")
	c.Load(context.Background())
	assert.Empty(t, c.Items())
}
