// Package media holds playlist and media reference types shared by the rotator and the UI.
package media

import (
	"regexp"
	"strings"
)

// Kind is the presentation class of a media reference.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

var videoExtension = regexp.MustCompile(`(?i)\.(mp4|webm|ogg|mov)$`)

// Classify reports whether ref should be shown as a video or an image.
// It only looks at the string; anything ambiguous is an image.
func Classify(ref string) Kind {
	if ref == "" {
		return KindImage
	}
	if videoExtension.MatchString(ref) || strings.Contains(ref, "video") {
		return KindVideo
	}
	return KindImage
}

// Playlist is an ordered, immutable list of media references.
// Two playlists are the same only if they are the same pointer.
type Playlist struct {
	entries []string
	title   string
}

// NewPlaylist copies refs into a new playlist.
func NewPlaylist(title string, refs ...string) *Playlist {
	entries := make([]string, len(refs))
	copy(entries, refs)
	return &Playlist{entries: entries, title: title}
}

// Len returns the number of entries. A nil playlist is empty.
func (playlist *Playlist) Len() int {
	if playlist == nil {
		return 0
	}
	return len(playlist.entries)
}

// At returns the entry at index.
func (playlist *Playlist) At(index int) string {
	return playlist.entries[index]
}

// Title returns the caption shown over the active slide.
func (playlist *Playlist) Title() string {
	if playlist == nil {
		return ""
	}
	return playlist.title
}

// Entries returns a copy of the references in display order.
func (playlist *Playlist) Entries() []string {
	if playlist == nil {
		return nil
	}
	out := make([]string, len(playlist.entries))
	copy(out, playlist.entries)
	return out
}
