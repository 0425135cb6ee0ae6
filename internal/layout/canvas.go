// Package layout edits the positioned items on a page's hero canvas.
//
// Pointer coordinates are in the same space as the canvas bounds handed to
// each pointer call. Bounds are passed per event and never cached, so a
// canvas that scrolls or resizes mid-drag still yields correct geometry.
package layout

import (
	"context"
	"errors"
	"fmt"
	"io"

	"central-illustration/internal/logger"
	"central-illustration/internal/models"

	"github.com/google/uuid"
)

const (
	MinWidth  = 40
	MinHeight = 30

	DefaultSVG = `<svg viewBox="0 0 200 100"><circle cx="50" cy="50" r="30" fill="orange"/></svg>`
)

var (
	ErrNoFile       = errors.New("no file selected")
	ErrUploadFailed = errors.New("Upload failed")
	ErrUnknownItem  = errors.New("unknown layout item")
	ErrNotText      = errors.New("item is not a text item")
)

type Point struct{ X, Y float64 }

// Rect is the canvas container's bounding rectangle at the time of an event.
type Rect struct{ X, Y, Width, Height float64 }

func (r Rect) local(p Point) Point { return Point{X: p.X - r.X, Y: p.Y - r.Y} }

type Backend interface {
	Layout(ctx context.Context, demoID int64, page int) (*models.Layout, error)
	SaveLayout(ctx context.Context, demoID int64, page int, layout models.Layout) error
	UploadAsset(ctx context.Context, demoID int64, filename string, r io.Reader) (string, error)
}

type gesture int

const (
	idle gesture = iota
	dragging
	resizing
)

// Canvas is owned by a single editor view and is not safe for concurrent use.
type Canvas struct {
	api    Backend
	demoID int64
	page   int
	log    *logger.Logger

	items []models.LayoutItem

	mode   gesture
	active string
	offset Point
}

func New(api Backend, demoID int64, page int, log *logger.Logger) *Canvas {
	if log == nil {
		log = logger.Nop()
	}
	return &Canvas{api: api, demoID: demoID, page: page, log: log, items: []models.LayoutItem{}}
}

func (c *Canvas) Page() int { return c.page }

// Load replaces the local items with the stored layout. A failed read leaves
// an empty canvas to edit from.
func (c *Canvas) Load(ctx context.Context) {
	c.endGesture()
	l, err := c.api.Layout(ctx, c.demoID, c.page)
	if err != nil {
		c.log.Warn("load layout", "demo_id", c.demoID, "page", c.page, "error", err)
		c.items = []models.LayoutItem{}
		return
	}
	c.items = append([]models.LayoutItem{}, l.Items...)
}

// Save overwrites the stored layout with the whole local list.
func (c *Canvas) Save(ctx context.Context) error {
	return c.api.SaveLayout(ctx, c.demoID, c.page, models.Layout{Items: c.Items()})
}

func (c *Canvas) Items() []models.LayoutItem {
	out := make([]models.LayoutItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Canvas) Item(id string) (models.LayoutItem, bool) {
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	return models.LayoutItem{}, false
}

func (c *Canvas) index(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

func newID(kind models.ItemType) string {
	return string(kind) + "_" + uuid.Must(uuid.NewV7()).String()
}

func (c *Canvas) add(it models.LayoutItem) models.LayoutItem {
	c.items = append(c.items, it)
	return it
}

func (c *Canvas) AddText() models.LayoutItem {
	return c.add(models.LayoutItem{
		ID: newID(models.ItemText), Type: models.ItemText, Content: "Edit me",
		X: 80, Y: 80, Width: 200, Height: 80,
		Style: &models.ItemStyle{FontSize: 24, Color: "#ffffff"},
	})
}

func (c *Canvas) AddSVG() models.LayoutItem {
	return c.add(models.LayoutItem{
		ID: newID(models.ItemSVG), Type: models.ItemSVG, Content: DefaultSVG,
		X: 160, Y: 160, Width: 200, Height: 100,
	})
}

// AddImage uploads the file first and appends an item pointing at the stored
// path. Nothing is appended when there is no file or the upload fails.
func (c *Canvas) AddImage(ctx context.Context, filename string, r io.Reader) (models.LayoutItem, error) {
	if r == nil || filename == "" {
		return models.LayoutItem{}, ErrNoFile
	}
	path, err := c.api.UploadAsset(ctx, c.demoID, filename, r)
	if err != nil {
		return models.LayoutItem{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	return c.add(models.LayoutItem{
		ID: newID(models.ItemImage), Type: models.ItemImage, Content: path,
		X: 120, Y: 120, Width: 240, Height: 160,
	}), nil
}

func (c *Canvas) SetText(id, text string) error {
	i := c.index(id)
	if i < 0 {
		return ErrUnknownItem
	}
	if c.items[i].Type != models.ItemText {
		return ErrNotText
	}
	c.items[i].Content = text
	return nil
}

func (c *Canvas) Remove(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	if c.active == id {
		c.endGesture()
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true
}

// BeginDrag records the pointer's offset from the item's top-left corner.
func (c *Canvas) BeginDrag(id string, pointer Point, bounds Rect) error {
	i := c.index(id)
	if i < 0 {
		return ErrUnknownItem
	}
	p := bounds.local(pointer)
	c.mode, c.active = dragging, id
	c.offset = Point{X: p.X - c.items[i].X, Y: p.Y - c.items[i].Y}
	return nil
}

func (c *Canvas) BeginResize(id string) error {
	if c.index(id) < 0 {
		return ErrUnknownItem
	}
	c.mode, c.active = resizing, id
	return nil
}

// PointerMove applies the active gesture, if any, to its item only.
func (c *Canvas) PointerMove(pointer Point, bounds Rect) {
	i := c.index(c.active)
	if c.mode == idle || i < 0 {
		return
	}
	p := bounds.local(pointer)
	it := &c.items[i]
	switch c.mode {
	case dragging:
		it.X = p.X - c.offset.X
		it.Y = p.Y - c.offset.Y
	case resizing:
		it.Width = max(MinWidth, p.X-it.X)
		it.Height = max(MinHeight, p.Y-it.Y)
	}
}

func (c *Canvas) PointerUp() { c.endGesture() }

// Active reports the item under an ongoing drag or resize.
func (c *Canvas) Active() (string, bool) { return c.active, c.mode != idle }

func (c *Canvas) endGesture() {
	c.mode, c.active, c.offset = idle, "", Point{}
}
