package slideshow

import (
	"context"
	"image"
	"sync"

	"slidewake/internal/ui/animation"
	"slidewake/internal/video"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"github.com/rs/zerolog"
)

const (
	backdropZoom   = float32(1.1)
	foregroundZoom = float32(1.02)
)

// Loader resolves media references for rendering.
type Loader interface {
	Image(ctx context.Context, ref string) (image.Image, error)
	PlayableURI(ctx context.Context, ref string) (string, error)
}

// VideoPlayer is a looping, muted decoder.
type VideoPlayer interface {
	Play() error
	Pause() error
	Close() error
}

// VideoOpener starts a paused decoder for uri.
type VideoOpener func(ctx context.Context, uri string, onFrame video.FrameFunc) (VideoPlayer, error)

func openVideo(ctx context.Context, uri string, onFrame video.FrameFunc) (VideoPlayer, error) {
	player, err := video.Open(ctx, uri, onFrame, video.Options{})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// layer renders one playlist entry. Methods other than load and close run on
// the UI goroutine.
type layer interface {
	object() fyne.CanvasObject
	opacity() float32
	setOpacity(value float32)
	setZoom(progress float32)
	activate()
	deactivate()
	load(ctx context.Context)
	close()
}

type imageLayer struct {
	ref             string
	log             zerolog.Logger
	loader          Loader
	backdropOpacity float32

	root           *fyne.Container
	backdropBox    *fyne.Container
	foregroundBox  *fyne.Container
	backdrop       *canvas.Image
	foreground     *canvas.Image
	backdropZoom   *zoomLayout
	foregroundZoom *zoomLayout
	alpha          float32
}

func newImageLayer(ref string, loader Loader, backdropOpacity float32, log zerolog.Logger) *imageLayer {
	backdrop := canvas.NewImageFromImage(nil)
	backdrop.FillMode = canvas.ImageFillCover
	backdrop.ScaleMode = canvas.ImageScaleFastest

	foreground := canvas.NewImageFromImage(nil)
	foreground.FillMode = canvas.ImageFillContain

	layer := &imageLayer{
		ref:             ref,
		log:             log,
		loader:          loader,
		backdropOpacity: backdropOpacity,
		backdrop:        backdrop,
		foreground:      foreground,
		backdropZoom:    &zoomLayout{scale: 1},
		foregroundZoom:  &zoomLayout{scale: 1},
	}
	layer.backdropBox = container.New(layer.backdropZoom, backdrop)
	layer.foregroundBox = container.New(layer.foregroundZoom, foreground)
	layer.root = container.NewStack(layer.backdropBox, layer.foregroundBox)
	return layer
}

func (layer *imageLayer) object() fyne.CanvasObject { return layer.root }

func (layer *imageLayer) opacity() float32 { return layer.alpha }

func (layer *imageLayer) setOpacity(value float32) {
	layer.alpha = value
	layer.backdrop.Translucency = float64(1 - layer.backdropOpacity*value)
	layer.foreground.Translucency = float64(1 - value)
	if value <= 0 {
		layer.root.Hide()
		layer.setZoom(0)
		return
	}
	layer.root.Show()
	layer.backdrop.Refresh()
	layer.foreground.Refresh()
}

func (layer *imageLayer) setZoom(progress float32) {
	layer.backdropZoom.scale = animation.Lerp(1, backdropZoom, progress)
	layer.foregroundZoom.scale = animation.Lerp(1, foregroundZoom, progress)
	layer.backdropBox.Refresh()
	layer.foregroundBox.Refresh()
}

func (layer *imageLayer) activate()   {}
func (layer *imageLayer) deactivate() {}

func (layer *imageLayer) load(ctx context.Context) {
	decoded, err := layer.loader.Image(ctx, layer.ref)
	if ctx.Err() != nil {
		return
	}
	fyne.Do(func() {
		if err != nil {
			layer.log.Error().Err(err).Str("ref", layer.ref).Msg("image failed to load")
			layer.foreground.Hide()
			return
		}
		layer.backdrop.Image = decoded
		layer.foreground.Image = decoded
		layer.backdrop.Refresh()
		layer.foreground.Refresh()
	})
}

func (layer *imageLayer) close() {}

type videoLayer struct {
	ref    string
	log    zerolog.Logger
	loader Loader
	open   VideoOpener
	frame  *canvas.Image
	alpha  float32

	mu     sync.Mutex
	player VideoPlayer
	active bool
	closed bool
}

func newVideoLayer(ref string, loader Loader, open VideoOpener, log zerolog.Logger) *videoLayer {
	frame := canvas.NewImageFromImage(nil)
	frame.FillMode = canvas.ImageFillContain
	return &videoLayer{
		ref:    ref,
		log:    log,
		loader: loader,
		open:   open,
		frame:  frame,
	}
}

func (layer *videoLayer) object() fyne.CanvasObject { return layer.frame }

func (layer *videoLayer) opacity() float32 { return layer.alpha }

func (layer *videoLayer) setOpacity(value float32) {
	layer.alpha = value
	layer.frame.Translucency = float64(1 - value)
	if value <= 0 {
		layer.frame.Hide()
		return
	}
	layer.frame.Show()
	layer.frame.Refresh()
}

func (layer *videoLayer) setZoom(float32) {}

func (layer *videoLayer) activate() {
	layer.mu.Lock()
	layer.active = true
	player := layer.player
	layer.mu.Unlock()
	if player == nil {
		return
	}
	if err := player.Play(); err != nil {
		layer.log.Warn().Err(err).Str("ref", layer.ref).Msg("video playback failed")
	}
}

func (layer *videoLayer) deactivate() {
	layer.mu.Lock()
	layer.active = false
	player := layer.player
	layer.mu.Unlock()
	if player == nil {
		return
	}
	if err := player.Pause(); err != nil {
		layer.log.Debug().Err(err).Str("ref", layer.ref).Msg("video pause failed")
	}
}

func (layer *videoLayer) load(ctx context.Context) {
	uri, err := layer.loader.PlayableURI(ctx, layer.ref)
	if err != nil {
		layer.log.Error().Err(err).Str("ref", layer.ref).Msg("video failed to load")
		return
	}
	player, err := layer.open(ctx, uri, layer.show)
	if err != nil {
		layer.log.Error().Err(err).Str("ref", layer.ref).Msg("video decoder failed")
		return
	}

	layer.mu.Lock()
	if layer.closed || ctx.Err() != nil {
		layer.mu.Unlock()
		_ = player.Close()
		return
	}
	layer.player = player
	active := layer.active
	layer.mu.Unlock()

	if active {
		if err := player.Play(); err != nil {
			layer.log.Warn().Err(err).Str("ref", layer.ref).Msg("video playback failed")
		}
	}
}

func (layer *videoLayer) show(frame *image.RGBA) {
	fyne.Do(func() {
		layer.frame.Image = frame
		layer.frame.Refresh()
	})
}

func (layer *videoLayer) close() {
	layer.mu.Lock()
	layer.closed = true
	player := layer.player
	layer.player = nil
	layer.mu.Unlock()
	if player == nil {
		return
	}
	if err := player.Close(); err != nil {
		layer.log.Debug().Err(err).Str("ref", layer.ref).Msg("video close failed")
	}
}
