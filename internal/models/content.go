package models

import "fmt"

type ContentType string

const (
	ContentTitle  ContentType = "title"
	ContentPoints ContentType = "points"
	ContentDetail ContentType = "detail"
)

var ContentTypes = []ContentType{ContentTitle, ContentPoints, ContentDetail}

func (c ContentType) Valid() bool {
	switch c {
	case ContentTitle, ContentPoints, ContentDetail:
		return true
	}
	return false
}

func ParseContentType(s string) (ContentType, error) {
	c := ContentType(s)
	if !c.Valid() {
		return "", fmt.Errorf("invalid content type %q", s)
	}
	return c, nil
}

// Page is one page-N directory of a project. PageIndex is 1-based and not
// contiguous once pages have been deleted.
type Page struct {
	PageIndex      int    `json:"page_index"`
	PageNumber     int    `json:"page_number"`
	TitleContent   string `json:"title_content"`
	PointsContent  string `json:"points_content"`
	HasDetail      bool   `json:"has_detail"`
	HasUnpublished bool   `json:"has_unpublished"`
}

type PageList struct {
	Pages []Page `json:"pages"`
}

type PageContent struct {
	Content string `json:"content"`
}

type PageContentUpdate struct {
	PageIndex   int         `json:"page_index"`
	ContentType ContentType `json:"content_type"`
	Content     string      `json:"content"`
}

// PageStyle selects the template page a new page is seeded from.
type PageStyle int

const (
	PageStyle1 PageStyle = 0
	PageStyle2 PageStyle = 1
)

type AddPageRequest struct {
	BasePageIndex PageStyle      `json:"base_page_index"`
	PageData      map[string]any `json:"page_data"`
}

type AddPageResponse struct {
	Status    string `json:"status"`
	PageIndex int    `json:"page_index"`
	Message   string `json:"message"`
}

type PublishRequest struct {
	PageIndex *int `json:"page_index,omitempty"`
}

type PublishResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Published []int  `json:"published"`
}

type ItemType string

const (
	ItemText  ItemType = "text"
	ItemImage ItemType = "image"
	ItemSVG   ItemType = "svg"
)

type ItemStyle struct {
	FontSize float64 `json:"fontSize,omitempty"`
	Color    string  `json:"color,omitempty"`
}

// LayoutItem is a positioned element on a page's hero canvas. Geometry is in
// canvas pixels. Content is markdown text, an image path or inline SVG markup
// depending on Type.
type LayoutItem struct {
	ID      string     `json:"id"`
	Type    ItemType   `json:"type"`
	Content string     `json:"content,omitempty"`
	X       float64    `json:"x"`
	Y       float64    `json:"y"`
	Width   float64    `json:"width"`
	Height  float64    `json:"height"`
	Style   *ItemStyle `json:"style,omitempty"`
}

type Layout struct {
	Items []LayoutItem `json:"items"`
}

type UploadResult struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
