// Package keepalive renders the near-invisible looping element the display
// guard keeps playing.
package keepalive

import (
	"context"
	"errors"
	"image/color"
	"sync"

	"slidewake/internal/ui/animation"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

// Size is the edge length of the element.
const Size = 10

// ErrNotShown is returned by Play before the element is attached to a visible window.
var ErrNotShown = errors.New("keep-alive element not shown")

// baseAlpha is roughly 1% opacity.
const baseAlpha = 3

// Element is a 10x10, 1% opacity rectangle that pulses while playing.
type Element struct {
	mu     sync.Mutex
	ctx    context.Context
	engine *animation.Engine
	rect   *canvas.Rectangle
	shown  bool
}

// New creates a hidden element driven by engine.
func New(ctx context.Context, engine *animation.Engine) *Element {
	rect := canvas.NewRectangle(color.NRGBA{R: 255, G: 255, B: 255, A: baseAlpha})
	rect.SetMinSize(fyne.NewSize(Size, Size))
	rect.Resize(fyne.NewSize(Size, Size))
	rect.Hide()
	return &Element{ctx: ctx, engine: engine, rect: rect}
}

// Object is the canvas object to place in a window corner.
func (element *Element) Object() fyne.CanvasObject {
	return element.rect
}

// Attach marks the element as placed in a shown window.
func (element *Element) Attach() {
	element.mu.Lock()
	defer element.mu.Unlock()
	element.shown = true
}

// Paused reports whether the loop is not running.
func (element *Element) Paused() bool {
	return !element.engine.Running(animation.KeyKeepAlive)
}

// Play starts the loop if it is not already running.
func (element *Element) Play() error {
	element.mu.Lock()
	shown := element.shown
	element.mu.Unlock()
	if !shown {
		return ErrNotShown
	}
	if !element.Paused() {
		return nil
	}

	fyne.Do(element.rect.Show)
	element.engine.Start(element.ctx, animation.KeyKeepAlive, animation.Spec{
		Duration: element.engine.Config().KeepAlivePeriod,
		Curve:    animation.EaseInOut,
		Repeat:   true,
		Update:   element.pulse,
	})
	return nil
}

// Stop halts the loop and removes the element from view.
func (element *Element) Stop() {
	element.engine.Stop(animation.KeyKeepAlive)
	fyne.Do(element.rect.Hide)
}

func (element *Element) pulse(progress float32) {
	// Alpha swings 2..4 and back once per period.
	triangle := 1 - abs(2*progress-1)
	alpha := uint8(baseAlpha - 1 + int(2*triangle+0.5))
	fyne.Do(func() {
		element.rect.FillColor = color.NRGBA{R: 255, G: 255, B: 255, A: alpha}
		element.rect.Refresh()
	})
}

func abs(value float32) float32 {
	if value < 0 {
		return -value
	}
	return value
}
