package animation

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Config contains animation timing values. Slide transition timings come
// from the presentation settings instead.
type Config struct {
	FrameInterval   time.Duration
	KeepAlivePeriod time.Duration
}

// Engine runs keyed tweens. Starting a key cancels whatever ran under it.
type Engine struct {
	mu     sync.Mutex
	config Config
	clock  clockwork.Clock
	runs   map[string]*run
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new animation engine. A nil clock means the real clock.
func New(config Config, clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.FrameInterval <= 0 {
		config.FrameInterval = DefaultConfig().FrameInterval
	}
	return &Engine{
		config: config,
		clock:  clock,
		runs:   make(map[string]*run),
	}
}

// Config returns the timing values the engine was built with.
func (engine *Engine) Config() Config {
	return engine.config
}

// Start runs spec under key until it completes, is replaced, or ctx ends.
func (engine *Engine) Start(ctx context.Context, key string, spec Spec) {
	runCtx, cancel := context.WithCancel(ctx)
	current := &run{cancel: cancel, done: make(chan struct{})}

	engine.mu.Lock()
	previous := engine.runs[key]
	engine.runs[key] = current
	engine.mu.Unlock()

	if previous != nil {
		previous.cancel()
	}

	go func() {
		defer close(current.done)
		defer engine.forget(key, current)
		if previous != nil {
			<-previous.done
		}
		engine.run(runCtx, spec)
	}()
}

// Running reports whether a tween is active under key.
func (engine *Engine) Running(key string) bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	_, ok := engine.runs[key]
	return ok
}

// Stop cancels the tween under key and waits for it to exit.
func (engine *Engine) Stop(key string) {
	engine.mu.Lock()
	current := engine.runs[key]
	delete(engine.runs, key)
	engine.mu.Unlock()

	if current != nil {
		current.cancel()
		<-current.done
	}
}

// StopAll terminates every active tween.
func (engine *Engine) StopAll() {
	engine.mu.Lock()
	runs := engine.runs
	engine.runs = make(map[string]*run)
	engine.mu.Unlock()

	for _, current := range runs {
		current.cancel()
	}
	for _, current := range runs {
		<-current.done
	}
}

func (engine *Engine) forget(key string, current *run) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.runs[key] == current {
		delete(engine.runs, key)
	}
}

func (engine *Engine) run(ctx context.Context, spec Spec) {
	repeat := spec.Repeat && spec.Duration > 0
	started := engine.clock.Now()
	for {
		if ctx.Err() != nil {
			return
		}
		progress := spec.progress(engine.clock.Since(started))
		if spec.Update != nil {
			spec.Update(spec.curve()(progress))
		}
		if progress >= 1 {
			if !repeat {
				if spec.Done != nil {
					spec.Done()
				}
				return
			}
			started = engine.clock.Now()
		}
		if !sleepWithContext(ctx, engine.clock, engine.config.FrameInterval) {
			return
		}
	}
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, duration time.Duration) bool {
	timer := clock.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
