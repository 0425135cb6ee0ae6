// Package extension manages the catalog of project templates and scaffolds
// new demo projects from them.
package extension

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"central-illustration/internal/models"

	"gopkg.in/yaml.v3"
)

var (
	ErrExtensionNotFound = errors.New("extension not found")
	ErrDestinationExists = errors.New("destination directory already exists")
	ErrFileNotFound      = errors.New("file not found")
)

const (
	markerFile     = ".extension.json"
	defaultDescrip = "Template extension"
	manifestJSON   = "template.json"
	manifestYAML   = "template.yaml"
)

// scaffold copies skip these names at any depth
var ignoredNames = map[string]bool{
	"node_modules": true,
	".next":        true,
	"__pycache__":  true,
	".git":         true,
}

var hardcodedPorts = []string{"3001", "3002", "3003", "3004"}

// Installer installs a scaffolded project's dependencies in the background.
type Installer interface {
	Install(dir string) error
}

type Catalog struct {
	Dir              string
	ProjectsDir      string
	DefaultExtension string
	Installer        Installer
}

type manifest struct {
	Name        string  `json:"name" yaml:"name"`
	Description *string `json:"description" yaml:"description"`
	Icon        *string `json:"icon" yaml:"icon"`
}

// readManifest loads template.json, or template.yaml when there is no JSON
// manifest. The raw map is returned alongside for the info endpoint.
func readManifest(dir string) (*manifest, map[string]any, bool, error) {
	if data, err := os.ReadFile(filepath.Join(dir, manifestJSON)); err == nil {
		var m manifest
		raw := map[string]any{}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, nil, true, err
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, nil, true, err
		}
		return &m, raw, true, nil
	}
	if data, err := os.ReadFile(filepath.Join(dir, manifestYAML)); err == nil {
		var m manifest
		raw := map[string]any{}
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, nil, true, err
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, nil, true, err
		}
		return &m, raw, true, nil
	}
	return nil, nil, false, nil
}

func (c *Catalog) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", ErrExtensionNotFound
	}
	dir := filepath.Join(c.Dir, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", ErrExtensionNotFound
	}
	return dir, nil
}

// List returns every template directory in the catalog, sorted by path.
func (c *Catalog) List() ([]models.Extension, error) {
	entries, err := os.ReadDir(c.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Extension{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := []models.Extension{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ext := models.Extension{Name: e.Name(), Description: defaultDescrip, Path: e.Name()}
		m, _, found, err := readManifest(filepath.Join(c.Dir, e.Name()))
		if found && err == nil {
			if m.Name != "" {
				ext.Name = m.Name
			}
			ext.Description = ""
			if m.Description != nil {
				ext.Description = *m.Description
			}
			ext.Icon = m.Icon
		}
		out = append(out, ext)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (c *Catalog) Info(name string) (*models.ExtensionInfo, error) {
	dir, err := c.path(name)
	if err != nil {
		return nil, err
	}

	info := &models.ExtensionInfo{Name: name, Path: dir}
	_, raw, found, err := readManifest(dir)
	info.HasTemplate = found
	if found && err == nil {
		info.TemplateData = raw
	}

	contentDir := filepath.Join(dir, "public", "content")
	if st, err := os.Stat(contentDir); err == nil && st.IsDir() {
		tree, err := directoryTree(contentDir, "")
		if err != nil {
			return nil, err
		}
		info.ContentStructure = tree
	}
	return info, nil
}

func directoryTree(root, rel string) (map[string]models.FileNode, error) {
	entries, err := os.ReadDir(filepath.Join(root, rel))
	if err != nil {
		return nil, err
	}
	out := map[string]models.FileNode{}
	for _, e := range entries {
		key := filepath.ToSlash(filepath.Join(rel, e.Name()))
		if e.IsDir() {
			children, err := directoryTree(root, key)
			if err != nil {
				return nil, err
			}
			out[key] = models.FileNode{Type: "directory", Children: children}
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return nil, err
		}
		out[key] = models.FileNode{Type: "file", Size: fi.Size()}
	}
	return out, nil
}

// ContentFile reads a file under the template's public directory.
func (c *Catalog) ContentFile(name, rel string) (string, error) {
	dir, err := c.path(name)
	if err != nil {
		return "", err
	}
	public := filepath.Join(dir, "public")
	target := filepath.Join(public, filepath.FromSlash(rel))
	if target != public && !strings.HasPrefix(target, public+string(filepath.Separator)) {
		return "", ErrFileNotFound
	}
	data, err := os.ReadFile(target)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrFileNotFound
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Scaffold copies the named template into ProjectsDir/folder, records the
// provenance marker and strips hardcoded dev-server ports from package.json.
// Any failure removes the partial copy.
func (c *Catalog) Scaffold(name, folder string) (err error) {
	src, err := c.path(name)
	if err != nil {
		return err
	}
	dst := filepath.Join(c.ProjectsDir, folder)
	if _, err := os.Stat(dst); err == nil {
		return ErrDestinationExists
	}

	defer func() {
		if err != nil {
			os.RemoveAll(dst)
		}
	}()

	if err := copyTree(src, dst); err != nil {
		return fmt.Errorf("copy template: %w", err)
	}

	marker, err := json.Marshal(map[string]string{"extension_name": name})
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dst, markerFile), marker, 0o644); err != nil {
		return err
	}

	if err := stripPorts(filepath.Join(dst, "package.json")); err != nil {
		return fmt.Errorf("rewrite package.json: %w", err)
	}

	if c.Installer != nil {
		// best effort, the project is usable without it
		_ = c.Installer.Install(dst)
	}
	return nil
}

// Remove deletes a scaffolded project directory.
func (c *Catalog) Remove(folder string) error {
	if folder == "" || folder != filepath.Base(folder) {
		return fmt.Errorf("invalid folder %q", folder)
	}
	return os.RemoveAll(filepath.Join(c.ProjectsDir, folder))
}

func skip(name string) bool {
	return ignoredNames[name] || strings.HasSuffix(name, ".log")
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel != "." && skip(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func stripPorts(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var pkg map[string]any
	if err := json.Unmarshal(data, &pkg); err != nil {
		return err
	}
	scripts, ok := pkg["scripts"].(map[string]any)
	if !ok {
		return nil
	}
	for key, v := range scripts {
		s, ok := v.(string)
		if !ok {
			continue
		}
		for _, port := range hardcodedPorts {
			s = strings.ReplaceAll(s, " -p "+port, "")
			s = strings.ReplaceAll(s, " --port "+port, "")
		}
		scripts[key] = s
	}

	out, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// ProjectExtension names the template a project was created from: the
// provenance marker first, then the project's own manifest. nil when unknown.
func (c *Catalog) ProjectExtension(folder string) *string {
	dir := filepath.Join(c.ProjectsDir, folder)
	if data, err := os.ReadFile(filepath.Join(dir, markerFile)); err == nil {
		var marker struct {
			ExtensionName *string `json:"extension_name"`
		}
		if json.Unmarshal(data, &marker) == nil {
			return marker.ExtensionName
		}
		return nil
	}
	m, _, found, err := readManifest(dir)
	if !found || err != nil || m.Name == "" {
		return nil
	}
	return &m.Name
}

// PageTemplateDir resolves the template page a new page of the given style is
// seeded from. Projects without a known extension use DefaultExtension.
// It returns "" when neither exists.
func (c *Catalog) PageTemplateDir(folder string, style models.PageStyle) string {
	page := fmt.Sprintf("page-%d", int(style)+1)
	var candidates []string
	if name := c.ProjectExtension(folder); name != nil {
		candidates = append(candidates, *name)
	}
	if c.DefaultExtension != "" {
		candidates = append(candidates, c.DefaultExtension)
	}
	for _, name := range candidates {
		dir, err := c.path(name)
		if err != nil {
			continue
		}
		pageDir := filepath.Join(dir, "public", "content", page)
		if st, err := os.Stat(pageDir); err == nil && st.IsDir() {
			return pageDir
		}
	}
	return ""
}
