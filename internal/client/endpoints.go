package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"central-illustration/internal/models"
	"central-illustration/internal/preview"
)

func id(n int64) string { return strconv.FormatInt(n, 10) }

// ── Auth ──────────────────────────────────────────────────────────────────────

// Login exchanges credentials for a bearer token using the password form.
func (c *Client) Login(ctx context.Context, username, password string) (*models.Token, error) {
	form := url.Values{"username": {username}, "password": {password}}
	var tok models.Token
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/login",
		body:        bytes.NewBufferString(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &tok)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (c *Client) Me(ctx context.Context) (*models.CurrentUser, error) {
	var u models.CurrentUser
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ── Demonstrations ────────────────────────────────────────────────────────────

// Demos lists demonstrations. Hidden ones are only returned when
// visibleOnly is false.
func (c *Client) Demos(ctx context.Context, visibleOnly bool) ([]models.Demonstration, error) {
	var out []models.Demonstration
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/demos/",
		query:  url.Values{"visible_only": {strconv.FormatBool(visibleOnly)}},
	}, &out)
	return out, err
}

func (c *Client) Demo(ctx context.Context, demoID int64) (*models.Demonstration, error) {
	var d models.Demonstration
	if err := c.doJSON(ctx, http.MethodGet, "/demos/"+id(demoID), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) CreateDemo(ctx context.Context, in models.DemonstrationCreate) (*models.Demonstration, error) {
	var d models.Demonstration
	if err := c.doJSON(ctx, http.MethodPost, "/demos/", in, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) UpdateDemo(ctx context.Context, demoID int64, in models.DemonstrationUpdate) (*models.Demonstration, error) {
	var d models.Demonstration
	if err := c.doJSON(ctx, http.MethodPut, "/demos/"+id(demoID), in, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) DeleteDemo(ctx context.Context, demoID int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/demos/"+id(demoID), nil, nil)
}

// ── Comments ──────────────────────────────────────────────────────────────────

func (c *Client) Comments(ctx context.Context, demoID int64) ([]models.Comment, error) {
	var out []models.Comment
	err := c.doJSON(ctx, http.MethodGet, "/comments/"+id(demoID), nil, &out)
	return out, err
}

func (c *Client) CreateComment(ctx context.Context, demoID int64, text string) (*models.Comment, error) {
	var out models.Comment
	in := models.CommentCreate{DemoID: demoID, Content: text}
	if err := c.doJSON(ctx, http.MethodPost, "/comments/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Demo manager ──────────────────────────────────────────────────────────────

func (c *Client) StartDemo(ctx context.Context, demoID int64) (*models.ControlResult, error) {
	var out models.ControlResult
	if err := c.doJSON(ctx, http.MethodPost, "/demo-manager/start/"+id(demoID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StopDemo(ctx context.Context, demoID int64) (*models.ControlResult, error) {
	var out models.ControlResult
	if err := c.doJSON(ctx, http.MethodPost, "/demo-manager/stop/"+id(demoID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DemoStatus(ctx context.Context, demoID int64) (*models.DemoStatus, error) {
	var out models.DemoStatus
	if err := c.doJSON(ctx, http.MethodGet, "/demo-manager/status/"+id(demoID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DemoRedirect(ctx context.Context, demoID int64) (*models.Redirect, error) {
	var out models.Redirect
	if err := c.doJSON(ctx, http.MethodGet, "/demo-manager/redirect/"+id(demoID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Processes maps project folders to the state of their dev server.
func (c *Client) Processes(ctx context.Context) (map[string]models.DemoStatus, error) {
	out := map[string]models.DemoStatus{}
	err := c.doJSON(ctx, http.MethodGet, "/demo-manager/all", nil, &out)
	return out, err
}

// ── Extensions ────────────────────────────────────────────────────────────────

func (c *Client) Extensions(ctx context.Context) ([]models.Extension, error) {
	var out []models.Extension
	err := c.doJSON(ctx, http.MethodGet, "/extensions/list", nil, &out)
	return out, err
}

func (c *Client) ExtensionInfo(ctx context.Context, name string) (*models.ExtensionInfo, error) {
	var out models.ExtensionInfo
	if err := c.doJSON(ctx, http.MethodGet, "/extensions/"+url.PathEscape(name)+"/info", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ExtensionFile(ctx context.Context, name, rel string) (string, error) {
	var out models.PageContent
	if err := c.doJSON(ctx, http.MethodGet, "/extensions/"+url.PathEscape(name)+"/content/"+rel, nil, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

func (c *Client) CreateFromExtension(ctx context.Context, extension string, in models.CreateFromExtensionRequest) (*models.CreateFromExtensionResponse, error) {
	body, err := jsonBody(in)
	if err != nil {
		return nil, err
	}
	var out models.CreateFromExtensionResponse
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/extensions/create-from-extension",
		query:       url.Values{"extension_name": {extension}},
		body:        body,
		contentType: "application/json",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ProjectExtension returns the extension a demo was scaffolded from, or nil
// when it is unknown.
func (c *Client) ProjectExtension(ctx context.Context, demoID int64) (*string, error) {
	var out models.ProjectExtension
	if err := c.doJSON(ctx, http.MethodGet, "/extensions/project-extension/"+id(demoID), nil, &out); err != nil {
		return nil, err
	}
	return out.ExtensionName, nil
}

// ── Content editor ────────────────────────────────────────────────────────────

func editorPath(demoID int64, rest string) string {
	return "/content-editor/" + id(demoID) + rest
}

func (c *Client) Pages(ctx context.Context, demoID int64) ([]models.Page, error) {
	var out models.PageList
	if err := c.doJSON(ctx, http.MethodGet, editorPath(demoID, "/pages"), nil, &out); err != nil {
		return nil, err
	}
	return out.Pages, nil
}

func (c *Client) PageContent(ctx context.Context, demoID int64, page int, ct models.ContentType) (string, error) {
	var out models.PageContent
	p := editorPath(demoID, fmt.Sprintf("/page/%d/%s", page, ct))
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

func (c *Client) UpdatePageContent(ctx context.Context, demoID int64, page int, ct models.ContentType, text string) error {
	in := models.PageContentUpdate{PageIndex: page, ContentType: ct, Content: text}
	p := editorPath(demoID, fmt.Sprintf("/page/%d/%s", page, ct))
	return c.doJSON(ctx, http.MethodPut, p, in, nil)
}

func (c *Client) AddPage(ctx context.Context, demoID int64, style models.PageStyle) (*models.AddPageResponse, error) {
	var out models.AddPageResponse
	in := models.AddPageRequest{BasePageIndex: style, PageData: map[string]any{}}
	if err := c.doJSON(ctx, http.MethodPost, editorPath(demoID, "/add-page"), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePage(ctx context.Context, demoID int64, page int) error {
	return c.doJSON(ctx, http.MethodDelete, editorPath(demoID, fmt.Sprintf("/page/%d", page)), nil, nil)
}

// Publish promotes draft edits to the live content tree. A nil page
// publishes every page with unpublished changes.
func (c *Client) Publish(ctx context.Context, demoID int64, page *int) (*models.PublishResponse, error) {
	var out models.PublishResponse
	in := models.PublishRequest{PageIndex: page}
	if err := c.doJSON(ctx, http.MethodPost, editorPath(demoID, "/publish"), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Layout(ctx context.Context, demoID int64, page int) (*models.Layout, error) {
	var out models.Layout
	if err := c.doJSON(ctx, http.MethodGet, editorPath(demoID, fmt.Sprintf("/page/%d/layout", page)), nil, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []models.LayoutItem{}
	}
	return &out, nil
}

func (c *Client) SaveLayout(ctx context.Context, demoID int64, page int, layout models.Layout) error {
	return c.doJSON(ctx, http.MethodPut, editorPath(demoID, fmt.Sprintf("/page/%d/layout", page)), layout, nil)
}

// UploadAsset sends one image as multipart field "file" and returns the
// demo-relative path it was stored under.
func (c *Client) UploadAsset(ctx context.Context, demoID int64, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var out models.UploadResult
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        editorPath(demoID, "/upload"),
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Path, nil
}

// ── Export ────────────────────────────────────────────────────────────────────

type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (c *Client) Export(ctx context.Context, demoID int64, format models.ExportFormat) (*Download, error) {
	resp, err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/export/" + id(demoID),
		query:  url.Values{"format": {string(format)}},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	dl := &Download{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		dl.Filename = params["filename"]
	}
	if dl.Filename == "" {
		dl.Filename = fmt.Sprintf("demo-%d-%s", demoID, format)
	}
	return dl, nil
}

// ── Preview ───────────────────────────────────────────────────────────────────

// PreviewEndpoint is the websocket URL editors and previews of demoID share.
func (c *Client) PreviewEndpoint(ctx context.Context, demoID int64) (string, error) {
	return preview.Endpoint(c.BaseURL(ctx), demoID)
}

// PreviewHeader carries the bearer token for the websocket handshake.
func (c *Client) PreviewHeader() http.Header {
	h := http.Header{}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			h.Set("Authorization", "Bearer "+tok)
		}
	}
	return h
}
