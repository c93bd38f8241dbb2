// Package video decodes looping, muted video into RGBA frames with GStreamer.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"slidewake/internal/logging"

	"github.com/rs/zerolog"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

const (
	DefaultWidth  = 1280
	DefaultHeight = 720

	busPollInterval = 100 * time.Millisecond
)

// ErrClosed is returned by operations on a closed Player.
var ErrClosed = errors.New("video player closed")

var initOnce sync.Once

// FrameFunc receives every decoded frame. The image is owned by the callee.
type FrameFunc func(*image.RGBA)

// Options contains runtime options for Player.
type Options struct {
	Width  int
	Height int
}

// Player plays one URI in a loop. Decoder failures are logged and leave the
// player silent; they never surface as panics.
type Player struct {
	uri      string
	width    int
	height   int
	onFrame  FrameFunc
	log      zerolog.Logger
	pipeline *gst.Pipeline
	sink     *app.Sink

	mu      sync.Mutex
	playing bool
	closed  bool
	failed  atomic.Bool
	frames  atomic.Uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// Open builds a paused pipeline for uri.
func Open(ctx context.Context, uri string, onFrame FrameFunc, options Options) (*Player, error) {
	initOnce.Do(func() { gst.Init(nil) })

	if options.Width <= 0 {
		options.Width = DefaultWidth
	}
	if options.Height <= 0 {
		options.Height = DefaultHeight
	}

	pipeline, err := gst.NewPipelineFromString(launchDescription(uri, options.Width, options.Height))
	if err != nil {
		return nil, fmt.Errorf("create video pipeline: %w", err)
	}
	element, err := pipeline.GetElementByName("sink")
	if err != nil {
		return nil, abandon(pipeline, fmt.Errorf("find video sink: %w", err))
	}

	monitorCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	player := &Player{
		uri:      uri,
		width:    options.Width,
		height:   options.Height,
		onFrame:  onFrame,
		log:      logging.FromContext(ctx).With().Str("component", "video").Str("uri", uri).Logger(),
		pipeline: pipeline,
		sink:     app.SinkFromElement(element),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	player.sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: player.onSample,
	})

	if err := pipeline.SetState(gst.StatePaused); err != nil {
		cancel()
		return nil, abandon(pipeline, fmt.Errorf("preroll video: %w", err))
	}

	go player.monitor(monitorCtx)
	player.log.Debug().Int("width", options.Width).Int("height", options.Height).Msg("video pipeline ready")
	return player, nil
}

type stateSetter interface {
	SetState(state gst.State) error
}

// abandon frees a pipeline that never became a Player and returns err.
func abandon(pipeline stateSetter, err error) error {
	_ = pipeline.SetState(gst.StateNull)
	return err
}

// Play starts or resumes playback.
func (player *Player) Play() error {
	return player.setPlaying(true)
}

// Pause pauses playback and keeps the current frame.
func (player *Player) Pause() error {
	return player.setPlaying(false)
}

// Paused reports whether the player is not currently playing.
func (player *Player) Paused() bool {
	player.mu.Lock()
	defer player.mu.Unlock()
	return !player.playing
}

// Failed reports whether the decoder hit an unrecoverable error.
func (player *Player) Failed() bool {
	return player.failed.Load()
}

// Frames returns how many frames were delivered.
func (player *Player) Frames() uint64 {
	return player.frames.Load()
}

// Close stops the pipeline and releases it. It is safe to call more than once.
func (player *Player) Close() error {
	player.mu.Lock()
	if player.closed {
		player.mu.Unlock()
		return nil
	}
	player.closed = true
	player.playing = false
	player.mu.Unlock()

	player.cancel()
	<-player.done
	if err := player.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("stop video: %w", err)
	}
	return nil
}

func (player *Player) setPlaying(playing bool) error {
	player.mu.Lock()
	defer player.mu.Unlock()
	if player.closed {
		return ErrClosed
	}
	if player.playing == playing {
		return nil
	}

	state := gst.StatePaused
	if playing {
		state = gst.StatePlaying
	}
	if err := player.pipeline.SetState(state); err != nil {
		return fmt.Errorf("set video state %s: %w", state, err)
	}
	player.playing = playing
	return nil
}

func (player *Player) onSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	expected := player.width * player.height * 4
	if len(data) < expected {
		buffer.Unmap()
		player.log.Trace().Int("bytes", len(data)).Msg("short video frame skipped")
		return gst.FlowOK
	}

	frame := image.NewRGBA(image.Rect(0, 0, player.width, player.height))
	copy(frame.Pix, data[:expected])
	buffer.Unmap()

	player.frames.Add(1)
	if player.onFrame != nil {
		player.onFrame(frame)
	}
	return gst.FlowOK
}

// monitor loops the video on end of stream and records decoder errors.
func (player *Player) monitor(ctx context.Context) {
	defer close(player.done)
	bus := player.pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			if !player.pipeline.SeekSimple(0, gst.FormatTime, gst.SeekFlagFlush|gst.SeekFlagKeyUnit) {
				player.log.Warn().Msg("video loop seek failed")
			}
		case gst.MessageError:
			gerr := msg.ParseError()
			player.failed.Store(true)
			player.log.Warn().
				Str("error", gerr.Error()).
				Str("debug", gerr.DebugString()).
				Msg("video decoder error, layer stays blank")
			return
		}
	}
}
