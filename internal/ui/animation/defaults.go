package animation

import "time"

// Tween keys shared by the slideshow.
const (
	KeyFade      = "fade"
	KeyZoom      = "zoom"
	KeyKeepAlive = "keepalive"
)

// DefaultConfig returns roughly 30 frames per second and a 2 s keep-alive pulse.
func DefaultConfig() Config {
	return Config{
		FrameInterval:   33 * time.Millisecond,
		KeepAlivePeriod: 2 * time.Second,
	}
}
