package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageUpload(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStorage(root)

	path, err := s.Upload("demo-a", strings.NewReader("png-bytes"), "../../Hero.PNG")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "/uploads/"))
	assert.True(t, strings.HasSuffix(path, ".png"))
	assert.NotContains(t, path, "Hero")

	data, err := os.ReadFile(filepath.Join(root, "demo-a", "public", filepath.FromSlash(strings.TrimPrefix(path, "/"))))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestLocalStorageUniqueNames(t *testing.T) {
	s := NewLocalStorage(t.TempDir())
	a, err := s.Upload("demo-a", strings.NewReader("a"), "x.png")
	require.NoError(t, err)
	b, err := s.Upload("demo-a", strings.NewReader("b"), "x.png")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
