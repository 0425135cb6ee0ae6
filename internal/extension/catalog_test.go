package extension

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"central-illustration/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInstaller struct {
	dirs []string
	err  error
}

func (r *recordingInstaller) Install(dir string) error {
	r.dirs = append(r.dirs, dir)
	return r.err
}

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	exts := t.TempDir()

	write(t, filepath.Join(exts, "orange-template", "template.json"),
		`{"name":"Orange","description":"Orange hero","icon":"🍊"}`)
	write(t, filepath.Join(exts, "orange-template", "public", "content", "page-1", "title.md"), "# Style one")
	write(t, filepath.Join(exts, "orange-template", "public", "content", "page-2", "title.md"), "# Style two")
	write(t, filepath.Join(exts, "orange-template", "package.json"),
		`{"name":"orange","scripts":{"dev":"next dev -p 3001","start":"next start --port 3002"}}`)
	write(t, filepath.Join(exts, "orange-template", "node_modules", "x", "index.js"), "x")
	write(t, filepath.Join(exts, "orange-template", "debug.log"), "noise")

	write(t, filepath.Join(exts, "blue", "template.yaml"), "name: Blue\ndescription: Blue deck\n")
	write(t, filepath.Join(exts, "plain", "README.md"), "nothing")
	write(t, filepath.Join(exts, "broken", "template.json"), "{not json")

	return &Catalog{
		Dir:              exts,
		ProjectsDir:      t.TempDir(),
		DefaultExtension: "orange-template",
	}
}

func TestListReadsManifests(t *testing.T) {
	c := newCatalog(t)

	list, err := c.List()
	require.NoError(t, err)
	require.Len(t, list, 4)

	byPath := map[string]models.Extension{}
	for _, e := range list {
		byPath[e.Path] = e
	}
	assert.Equal(t, "Orange", byPath["orange-template"].Name)
	assert.Equal(t, "Orange hero", byPath["orange-template"].Description)
	require.NotNil(t, byPath["orange-template"].Icon)
	assert.Equal(t, "Blue", byPath["blue"].Name)
	assert.Equal(t, "Blue deck", byPath["blue"].Description)
	assert.Equal(t, "plain", byPath["plain"].Name)
	assert.Equal(t, "Template extension", byPath["plain"].Description)
	assert.Equal(t, "broken", byPath["broken"].Name)
	assert.Equal(t, "Template extension", byPath["broken"].Description)
}

func TestListMissingDirIsEmpty(t *testing.T) {
	c := &Catalog{Dir: filepath.Join(t.TempDir(), "none")}
	list, err := c.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInfoAndContentFile(t *testing.T) {
	c := newCatalog(t)

	info, err := c.Info("orange-template")
	require.NoError(t, err)
	assert.True(t, info.HasTemplate)
	assert.Equal(t, "Orange", info.TemplateData["name"])
	require.Contains(t, info.ContentStructure, "page-1")
	assert.Equal(t, "directory", info.ContentStructure["page-1"].Type)
	assert.Equal(t, "file", info.ContentStructure["page-1"].Children["page-1/title.md"].Type)

	_, err = c.Info("nope")
	assert.ErrorIs(t, err, ErrExtensionNotFound)
	_, err = c.Info("../etc")
	assert.ErrorIs(t, err, ErrExtensionNotFound)

	body, err := c.ContentFile("orange-template", "content/page-2/title.md")
	require.NoError(t, err)
	assert.Equal(t, "# Style two", body)

	_, err = c.ContentFile("orange-template", "../package.json")
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = c.ContentFile("orange-template", "content/page-9/title.md")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestScaffoldCopiesAndRewrites(t *testing.T) {
	c := newCatalog(t)
	inst := &recordingInstaller{err: errors.New("npm missing")}
	c.Installer = inst

	require.NoError(t, c.Scaffold("orange-template", "my-demo"))
	dst := filepath.Join(c.ProjectsDir, "my-demo")

	_, err := os.Stat(filepath.Join(dst, "public", "content", "page-1", "title.md"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dst, "node_modules"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dst, "debug.log"))
	assert.True(t, os.IsNotExist(err))

	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	data, err := os.ReadFile(filepath.Join(dst, "package.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &pkg))
	assert.Equal(t, "next dev", pkg.Scripts["dev"])
	assert.Equal(t, "next start", pkg.Scripts["start"])

	assert.Equal(t, []string{dst}, inst.dirs)

	name := c.ProjectExtension("my-demo")
	require.NotNil(t, name)
	assert.Equal(t, "orange-template", *name)

	assert.ErrorIs(t, c.Scaffold("orange-template", "my-demo"), ErrDestinationExists)
	assert.ErrorIs(t, c.Scaffold("missing", "other"), ErrExtensionNotFound)

	require.NoError(t, c.Remove("my-demo"))
	_, err = os.Stat(dst)
	assert.True(t, os.IsNotExist(err))
}

func TestScaffoldCleansUpOnFailure(t *testing.T) {
	c := newCatalog(t)
	write(t, filepath.Join(c.Dir, "bad-pkg", "package.json"), "{oops")

	err := c.Scaffold("bad-pkg", "bad")
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(c.ProjectsDir, "bad"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestProjectExtensionFallbacks(t *testing.T) {
	c := newCatalog(t)

	write(t, filepath.Join(c.ProjectsDir, "legacy", "template.json"), `{"name":"Legacy"}`)
	name := c.ProjectExtension("legacy")
	require.NotNil(t, name)
	assert.Equal(t, "Legacy", *name)

	require.NoError(t, os.MkdirAll(filepath.Join(c.ProjectsDir, "bare"), 0o755))
	assert.Nil(t, c.ProjectExtension("bare"))
}

func TestPageTemplateDirFallsBackToDefault(t *testing.T) {
	c := newCatalog(t)
	require.NoError(t, os.MkdirAll(filepath.Join(c.ProjectsDir, "bare"), 0o755))

	dir := c.PageTemplateDir("bare", models.PageStyle2)
	assert.Equal(t, filepath.Join(c.Dir, "orange-template", "public", "content", "page-2"), dir)

	c.DefaultExtension = "blue"
	assert.Empty(t, c.PageTemplateDir("bare", models.PageStyle1))
}
