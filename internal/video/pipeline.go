package video

import (
	"fmt"
	"strings"
)

// launchDescription builds a decode pipeline that exposes only the video
// stream, letterboxes it into width x height and hands RGBA frames to an
// appsink named "sink". Audio is never decoded, so playback is muted.
func launchDescription(uri string, width, height int) string {
	return fmt.Sprintf(
		`uridecodebin uri="%s" caps="video/x-raw(ANY)" expose-all-streams=false `+
			`! queue `+
			`! videoconvert n-threads=0 `+
			`! videoscale add-borders=true `+
			`! video/x-raw,format=RGBA,width=%d,height=%d,pixel-aspect-ratio=1/1 `+
			`! appsink name=sink sync=true max-buffers=2 drop=true`,
		escapeLaunchValue(uri), width, height,
	)
}

func escapeLaunchValue(value string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
}
