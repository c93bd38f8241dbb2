// Package slideshow renders the rotator's playlist: one layer per entry,
// cross-faded on every advance, with an optional title pill.
package slideshow

import (
	"context"
	"image/color"

	"slidewake/internal/core/media"
	"slidewake/internal/core/model"
	"slidewake/internal/core/rotator"
	"slidewake/internal/logging"
	"slidewake/internal/ui/animation"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"
)

const (
	placeholderText = "No Images Loaded"
	windowedWidth   = float32(1280)
	windowedHeight  = float32(720)
)

// Options configures the slideshow window.
type Options struct {
	Config    model.PresentationConfig
	Loader    Loader
	OpenVideo VideoOpener
	Engine    *animation.Engine
	// KeepAlive is placed in the top-left corner when set.
	KeepAlive fyne.CanvasObject
	// OnInteraction fires on every tap, after fullscreen has been requested.
	OnInteraction func()
}

// Window is the fullscreen presentation surface.
type Window struct {
	ctx       context.Context
	log       zerolog.Logger
	app       fyne.App
	window    fyne.Window
	config    model.PresentationConfig
	loader    Loader
	openVideo VideoOpener
	engine    *animation.Engine

	stack       *fyne.Container
	placeholder *canvas.Text
	title       *fyne.Container
	titleText   *canvas.Text
	catcher     *tapCatcher

	playlist   *media.Playlist
	layers     []layer
	active     int
	loadCancel context.CancelFunc

	onInteraction func()
}

// New creates the slideshow window. It starts empty.
func New(ctx context.Context, app fyne.App, options Options) *Window {
	if options.OpenVideo == nil {
		options.OpenVideo = openVideo
	}
	if options.Engine == nil {
		options.Engine = animation.New(animation.DefaultConfig(), nil)
	}

	window := app.NewWindow("Slidewake")
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}
	window.SetPadded(false)
	window.SetMaster()

	background := canvas.NewRectangle(color.Black)

	placeholder := canvas.NewText(placeholderText, color.White)
	placeholder.Alignment = fyne.TextAlignCenter
	placeholder.TextSize = 28

	titleText := canvas.NewText("", color.White)
	titleText.Alignment = fyne.TextAlignCenter
	titleBackground := canvas.NewRectangle(color.NRGBA{R: 0, G: 0, B: 0, A: 179})
	titleBackground.CornerRadius = 50
	title := container.New(&titleLayout{text: titleText}, titleBackground, titleText)
	title.Hide()

	stack := container.NewStack()

	slideshow := &Window{
		ctx:           ctx,
		log:           logging.FromContext(ctx).With().Str("component", "slideshow").Logger(),
		app:           app,
		window:        window,
		config:        options.Config,
		loader:        options.Loader,
		openVideo:     options.OpenVideo,
		engine:        options.Engine,
		stack:         stack,
		placeholder:   placeholder,
		title:         title,
		titleText:     titleText,
		onInteraction: options.OnInteraction,
	}

	objects := []fyne.CanvasObject{background, stack, container.NewCenter(placeholder), title}
	if options.KeepAlive != nil {
		objects = append(objects, container.NewWithoutLayout(options.KeepAlive))
	}
	slideshow.catcher = newTapCatcher(slideshow.handleTap)
	objects = append(objects, slideshow.catcher)
	window.SetContent(container.NewStack(objects...))
	window.Resize(fyne.NewSize(windowedWidth, windowedHeight))

	return slideshow
}

// Window returns the underlying Fyne window.
func (slideshow *Window) Window() fyne.Window {
	return slideshow.window
}

// Show displays the window, fullscreen when configured.
func (slideshow *Window) Show() {
	slideshow.window.Show()
	if slideshow.config.Fullscreen {
		slideshow.window.SetFullScreen(true)
	}
	slideshow.window.RequestFocus()
}

// SetFullScreen switches between fullscreen and windowed mode.
func (slideshow *Window) SetFullScreen(fullscreen bool) {
	slideshow.window.SetFullScreen(fullscreen)
}

// Run renders rotator events until ctx ends or events is closed.
func (slideshow *Window) Run(ctx context.Context, events <-chan rotator.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			fyne.Do(func() {
				slideshow.Handle(event)
			})
		}
	}
}

// Handle applies one rotator event. It must run on the UI goroutine.
func (slideshow *Window) Handle(event rotator.Event) {
	switch event.Type {
	case rotator.EventMounted:
		slideshow.mount(event.Playlist)
	case rotator.EventAdvanced:
		if event.Playlist != slideshow.playlist {
			return
		}
		slideshow.advance(event.Previous, event.Index)
	case rotator.EventUnmounted:
		slideshow.unmount()
	}
}

// Close stops animations and releases every decoder.
func (slideshow *Window) Close() {
	if slideshow.loadCancel != nil {
		slideshow.loadCancel()
		slideshow.loadCancel = nil
	}
	slideshow.engine.Stop(animation.KeyFade)
	slideshow.engine.Stop(animation.KeyZoom)
	closeLayers(slideshow.layers)
	slideshow.layers = nil
}

func (slideshow *Window) mount(playlist *media.Playlist) {
	if slideshow.loadCancel != nil {
		slideshow.loadCancel()
	}
	slideshow.engine.Stop(animation.KeyFade)
	slideshow.engine.Stop(animation.KeyZoom)
	go closeLayers(slideshow.layers)

	loadCtx, cancel := context.WithCancel(slideshow.ctx)
	slideshow.loadCancel = cancel
	slideshow.playlist = playlist
	slideshow.active = 0

	entries := playlist.Entries()
	slideshow.layers = make([]layer, 0, len(entries))
	objects := make([]fyne.CanvasObject, 0, len(entries))
	for _, ref := range entries {
		layer := slideshow.newLayer(ref)
		layer.setOpacity(0)
		slideshow.layers = append(slideshow.layers, layer)
		objects = append(objects, layer.object())
		go layer.load(loadCtx)
	}
	slideshow.stack.Objects = objects
	slideshow.stack.Refresh()

	if len(entries) == 0 {
		slideshow.placeholder.Show()
		slideshow.title.Hide()
		slideshow.log.Info().Msg("no media loaded")
		return
	}
	slideshow.placeholder.Hide()
	slideshow.setTitle(playlist.Title())

	slideshow.layers[0].setOpacity(1)
	slideshow.activate(0)
}

func (slideshow *Window) advance(previous, index int) {
	if index < 0 || index >= len(slideshow.layers) {
		return
	}
	if previous < 0 || previous >= len(slideshow.layers) {
		previous = slideshow.active
	}
	outgoing := slideshow.layers[previous]
	incoming := slideshow.layers[index]

	for position, layer := range slideshow.layers {
		if position != previous && position != index && layer.opacity() > 0 {
			layer.deactivate()
			layer.setOpacity(0)
		}
	}

	slideshow.active = index
	outgoing.deactivate()
	slideshow.activate(index)
	if outgoing == incoming {
		incoming.setOpacity(1)
		return
	}

	slideshow.engine.Start(slideshow.ctx, animation.KeyFade, animation.Spec{
		Duration: slideshow.config.FadeDuration,
		Curve:    animation.EaseInOut,
		Update: func(progress float32) {
			fyne.Do(func() {
				outgoing.setOpacity(1 - progress)
				incoming.setOpacity(progress)
			})
		},
	})
}

func (slideshow *Window) unmount() {
	slideshow.engine.Stop(animation.KeyFade)
	slideshow.engine.Stop(animation.KeyZoom)
	for _, layer := range slideshow.layers {
		layer.deactivate()
	}
	slideshow.playlist = nil
}

func (slideshow *Window) activate(index int) {
	layer := slideshow.layers[index]
	layer.activate()
	slideshow.engine.Start(slideshow.ctx, animation.KeyZoom, animation.Spec{
		Duration: slideshow.config.ZoomDuration,
		Update: func(progress float32) {
			fyne.Do(func() {
				if layer.opacity() > 0 {
					layer.setZoom(progress)
				}
			})
		},
	})
}

func (slideshow *Window) newLayer(ref string) layer {
	kind := media.Classify(ref)
	log := slideshow.log.With().Str("kind", string(kind)).Logger()
	if kind == media.KindVideo {
		return newVideoLayer(ref, slideshow.loader, slideshow.openVideo, log)
	}
	return newImageLayer(ref, slideshow.loader, slideshow.config.BackdropOpacity, log)
}

func (slideshow *Window) setTitle(title string) {
	slideshow.titleText.Text = title
	if title == "" {
		slideshow.title.Hide()
		return
	}
	slideshow.title.Show()
	slideshow.title.Refresh()
}

func (slideshow *Window) handleTap() {
	if !slideshow.window.FullScreen() {
		slideshow.window.SetFullScreen(true)
	}
	if slideshow.onInteraction != nil {
		slideshow.onInteraction()
	}
}

func closeLayers(layers []layer) {
	for _, layer := range layers {
		layer.close()
	}
}

// tapCatcher covers the window so no layer receives input.
type tapCatcher struct {
	widget.BaseWidget
	onTap func()
}

func newTapCatcher(onTap func()) *tapCatcher {
	catcher := &tapCatcher{onTap: onTap}
	catcher.ExtendBaseWidget(catcher)
	return catcher
}

func (catcher *tapCatcher) Tapped(*fyne.PointEvent) {
	if catcher.onTap != nil {
		catcher.onTap()
	}
}

func (catcher *tapCatcher) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(canvas.NewRectangle(color.Transparent))
}
