package loader

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vincent-petithory/dataurl"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newLoader(t *testing.T, options Options) *Loader {
	t.Helper()
	if options.TempDir == "" {
		options.TempDir = t.TempDir()
	}
	loader := New(context.Background(), options)
	t.Cleanup(func() { _ = loader.Close() })
	return loader
}

func TestImageFromDataURI(t *testing.T) {
	loader := newLoader(t, Options{})
	ref := dataurl.New(pngBytes(t), "image/png").String()

	img, err := loader.Image(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
}

func TestImageFromFilePathAndURI(t *testing.T) {
	loader := newLoader(t, Options{})
	filePath := filepath.Join(t.TempDir(), "slide one.png")
	require.NoError(t, os.WriteFile(filePath, pngBytes(t), 0o600))

	img, err := loader.Image(context.Background(), filePath)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())

	uri := (&url.URL{Scheme: "file", Path: filepath.ToSlash(filePath)}).String()
	img, err = loader.Image(context.Background(), uri)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dy())

	_, contentType, err := loader.Read(context.Background(), filePath)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
}

func TestImageFromHTTP(t *testing.T) {
	payload := pngBytes(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)

	loader := newLoader(t, Options{Client: server.Client()})
	img, err := loader.Image(context.Background(), server.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())

	_, err = loader.Image(context.Background(), server.URL+"/missing.png")
	assert.ErrorContains(t, err, "404")
}

func TestImageErrors(t *testing.T) {
	loader := newLoader(t, Options{})

	_, err := loader.Image(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyReference)

	_, err = loader.Image(context.Background(), dataurl.New([]byte("not an image"), "image/png").String())
	assert.ErrorContains(t, err, "decode image")

	_, err = loader.Image(context.Background(), filepath.Join(t.TempDir(), "absent.jpg"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadEnforcesMaxBytes(t *testing.T) {
	loader := newLoader(t, Options{MaxBytes: 4})
	filePath := filepath.Join(t.TempDir(), "big.bin")
	require.NoError(t, os.WriteFile(filePath, []byte("0123456789"), 0o600))

	_, _, err := loader.Read(context.Background(), filePath)
	assert.ErrorContains(t, err, "larger than 4 bytes")
}

func TestPlayableURIForLocalFile(t *testing.T) {
	loader := newLoader(t, Options{})
	filePath := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(filePath, []byte("mp4"), 0o600))

	uri, err := loader.PlayableURI(context.Background(), filePath)
	require.NoError(t, err)

	parsed, err := url.Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, "file", parsed.Scheme)
	assert.Equal(t, filepath.Base(filePath), filepath.Base(filepath.FromSlash(parsed.Path)))
}

func TestPlayableURISpillsDataVideosOnce(t *testing.T) {
	tempRoot := t.TempDir()
	loader := New(context.Background(), Options{TempDir: tempRoot})
	ref := dataurl.New([]byte("fake-webm"), "video/webm").String()

	first, err := loader.PlayableURI(context.Background(), ref)
	require.NoError(t, err)
	second, err := loader.PlayableURI(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	parsed, err := url.Parse(first)
	require.NoError(t, err)
	spilled := filepath.FromSlash(parsed.Path)
	assert.Equal(t, ".webm", filepath.Ext(spilled))
	content, err := os.ReadFile(spilled)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-webm"), content)

	require.NoError(t, loader.Close())
	_, err = os.Stat(spilled)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".mp4", extensionFor("data:video/mp4;base64,AA==", "video/mp4"))
	assert.Equal(t, ".mov", extensionFor("https://cdn.example.com/x/Clip.MOV?sig=1", ""))
	assert.Equal(t, ".bin", extensionFor("https://cdn.example.com/stream", "application/octet-stream"))
}
