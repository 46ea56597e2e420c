package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveScreenshot(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	data := []byte{0x89, 'P', 'N', 'G'}
	path, err := store.Save("screenshot", data)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(path, ".png"), "путь: %s", path)
	assert.Contains(t, filepath.Base(path), "screenshot_")

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, saved)
}

func TestSaveExtensionsByKind(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	video, err := store.Save("video", []byte("v"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(video, ".webm"))

	other, err := store.Save("trace", []byte("t"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(other, ".bin"))
}

func TestSaveUniqueNames(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	first, err := store.Save("screenshot", []byte("a"))
	require.NoError(t, err)
	second, err := store.Save("screenshot", []byte("b"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestNewStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "artifacts")
	_, err := NewStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
