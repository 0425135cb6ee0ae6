package models

type Extension struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Path        string  `json:"path"`
	Icon        *string `json:"icon"`
}

type FileNode struct {
	Type     string              `json:"type"`
	Size     int64               `json:"size,omitempty"`
	Children map[string]FileNode `json:"children,omitempty"`
}

type ExtensionInfo struct {
	Name             string              `json:"name"`
	Path             string              `json:"path"`
	HasTemplate      bool                `json:"has_template_json"`
	TemplateData     map[string]any      `json:"template_data,omitempty"`
	ContentStructure map[string]FileNode `json:"content_structure,omitempty"`
}

type CreateFromExtensionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	FolderName  string `json:"folder_name"`
}

type CreateFromExtensionResponse struct {
	Status     string `json:"status"`
	DemoID     int64  `json:"demo_id"`
	FolderName string `json:"folder_name"`
	Message    string `json:"message"`
}

type ProjectExtension struct {
	ExtensionName *string `json:"extension_name"`
}
