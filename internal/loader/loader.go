// Package loader turns media references into bytes, decoded images and
// URIs a video decoder can open.
package loader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"slidewake/internal/logging"

	"github.com/rs/zerolog"
	"github.com/vincent-petithory/dataurl"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxBytes caps a single reference read into memory.
const DefaultMaxBytes = 512 << 20

// ErrEmptyReference is returned for the empty media reference.
var ErrEmptyReference = errors.New("empty media reference")

// Options contains runtime options for Loader.
type Options struct {
	// Client fetches http(s) references; wrap it with the cache transport
	// for offline operation.
	Client   *http.Client
	TempDir  string
	MaxBytes int64
}

// Loader resolves media references. It is safe for concurrent use.
type Loader struct {
	client   *http.Client
	tempRoot string
	maxBytes int64
	log      zerolog.Logger

	mu      sync.Mutex
	tempDir string
	spilled map[string]string
}

// New creates a Loader.
func New(ctx context.Context, options Options) *Loader {
	if options.Client == nil {
		options.Client = http.DefaultClient
	}
	if options.MaxBytes <= 0 {
		options.MaxBytes = DefaultMaxBytes
	}
	return &Loader{
		client:   options.Client,
		tempRoot: options.TempDir,
		maxBytes: options.MaxBytes,
		log:      logging.FromContext(ctx).With().Str("component", "loader").Logger(),
		spilled:  make(map[string]string),
	}
}

// Read returns the bytes behind ref and its content type when known.
func (loader *Loader) Read(ctx context.Context, ref string) ([]byte, string, error) {
	switch {
	case ref == "":
		return nil, "", ErrEmptyReference
	case strings.HasPrefix(ref, "data:"):
		decoded, err := dataurl.DecodeString(ref)
		if err != nil {
			return nil, "", fmt.Errorf("decode data uri: %w", err)
		}
		return decoded.Data, decoded.MediaType.ContentType(), nil
	case isRemote(ref):
		return loader.fetch(ctx, ref)
	default:
		filePath, err := localPath(ref)
		if err != nil {
			return nil, "", err
		}
		data, err := loader.readFile(filePath)
		if err != nil {
			return nil, "", err
		}
		return data, mime.TypeByExtension(strings.ToLower(filepath.Ext(filePath))), nil
	}
}

// Image decodes ref as JPEG, PNG, GIF, WebP, BMP or TIFF.
func (loader *Loader) Image(ctx context.Context, ref string) (image.Image, error) {
	data, _, err := loader.Read(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	loader.log.Trace().Str("format", format).Int("bytes", len(data)).Msg("image decoded")
	return img, nil
}

// PlayableURI returns a URI for ref that a local decoder can open. Local
// files map to file:// URIs; remote and data: references are written to a
// temporary file once and reused.
func (loader *Loader) PlayableURI(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", ErrEmptyReference
	}
	if !isRemote(ref) && !strings.HasPrefix(ref, "data:") {
		filePath, err := localPath(ref)
		if err != nil {
			return "", err
		}
		absolute, err := filepath.Abs(filePath)
		if err != nil {
			return "", fmt.Errorf("resolve media path: %w", err)
		}
		return fileURI(absolute), nil
	}

	key := hashRef(ref)
	loader.mu.Lock()
	spilled, ok := loader.spilled[key]
	loader.mu.Unlock()
	if ok {
		return fileURI(spilled), nil
	}

	data, contentType, err := loader.Read(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("load video: %w", err)
	}
	spilled, err = loader.spill(key, extensionFor(ref, contentType), data)
	if err != nil {
		return "", err
	}
	return fileURI(spilled), nil
}

// Close removes every temporary file the loader created.
func (loader *Loader) Close() error {
	loader.mu.Lock()
	defer loader.mu.Unlock()
	loader.spilled = make(map[string]string)
	if loader.tempDir == "" {
		return nil
	}
	dir := loader.tempDir
	loader.tempDir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove media temp dir: %w", err)
	}
	return nil
}

func (loader *Loader) fetch(ctx context.Context, ref string) ([]byte, string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	response, err := loader.client.Do(request)
	if err != nil {
		return nil, "", fmt.Errorf("fetch media: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch media: unexpected status %s", response.Status)
	}
	data, err := loader.readLimited(response.Body)
	if err != nil {
		return nil, "", fmt.Errorf("fetch media: %w", err)
	}
	return data, response.Header.Get("Content-Type"), nil
}

func (loader *Loader) readFile(filePath string) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open media file: %w", err)
	}
	defer file.Close()
	data, err := loader.readLimited(file)
	if err != nil {
		return nil, fmt.Errorf("read media file: %w", err)
	}
	return data, nil
}

func (loader *Loader) readLimited(reader io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(reader, loader.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > loader.maxBytes {
		return nil, fmt.Errorf("media larger than %d bytes", loader.maxBytes)
	}
	return data, nil
}

func (loader *Loader) spill(key, extension string, data []byte) (string, error) {
	loader.mu.Lock()
	defer loader.mu.Unlock()

	if existing, ok := loader.spilled[key]; ok {
		return existing, nil
	}
	if loader.tempDir == "" {
		dir, err := os.MkdirTemp(loader.tempRoot, "slidewake-media-")
		if err != nil {
			return "", fmt.Errorf("create media temp dir: %w", err)
		}
		loader.tempDir = dir
	}

	filePath := filepath.Join(loader.tempDir, key+extension)
	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		return "", fmt.Errorf("write media temp file: %w", err)
	}
	loader.spilled[key] = filePath
	loader.log.Debug().Str("path", filePath).Int("bytes", len(data)).Msg("media spilled to disk")
	return filePath, nil
}

func isRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func localPath(ref string) (string, error) {
	if !strings.HasPrefix(ref, "file:") {
		return ref, nil
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse file uri: %w", err)
	}
	return filepath.FromSlash(parsed.Path), nil
}

func fileURI(filePath string) string {
	slashed := filepath.ToSlash(filePath)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	return (&url.URL{Scheme: "file", Path: slashed}).String()
}

func hashRef(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	return hex.EncodeToString(sum[:12])
}

func extensionFor(ref, contentType string) string {
	if contentType != "" {
		mediaType, _, _ := mime.ParseMediaType(contentType)
		switch mediaType {
		case "video/mp4":
			return ".mp4"
		case "video/webm":
			return ".webm"
		case "video/ogg":
			return ".ogg"
		case "video/quicktime":
			return ".mov"
		}
	}
	if isRemote(ref) {
		if parsed, err := url.Parse(ref); err == nil {
			if ext := path.Ext(parsed.Path); ext != "" && len(ext) <= 6 {
				return strings.ToLower(ext)
			}
		}
	}
	return ".bin"
}
