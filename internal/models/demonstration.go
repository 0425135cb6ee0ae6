package models

import "time"

type Demonstration struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	FolderName  string    `json:"folder_name"`
	URL         *string   `json:"url"`
	IsVisible   bool      `json:"is_visible"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CreatedBy   *string   `json:"created_by"`
}

type DemonstrationCreate struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	FolderName  string  `json:"folder_name"`
	URL         *string `json:"url,omitempty"`
	IsVisible   *bool   `json:"is_visible,omitempty"`
}

// DemonstrationUpdate is a partial update. FolderName is deliberately absent:
// it names the project directory and never changes after creation.
type DemonstrationUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	URL         *string `json:"url,omitempty"`
	IsVisible   *bool   `json:"is_visible,omitempty"`
}

type ExportFormat string

const (
	ExportPPT169 ExportFormat = "ppt_169"
	ExportPPT43  ExportFormat = "ppt_43"
	ExportPDF169 ExportFormat = "pdf_169"
	ExportPDF43  ExportFormat = "pdf_43"
)

func (f ExportFormat) Valid() bool {
	switch f {
	case ExportPPT169, ExportPPT43, ExportPDF169, ExportPDF43:
		return true
	}
	return false
}
