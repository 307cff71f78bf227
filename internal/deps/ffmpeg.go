package deps

import "strings"

// CheckFFmpeg reports the ffmpeg binary used for ugoira encoding. An empty
// configured value means "ffmpeg" from PATH. required marks whether any
// encoding output is enabled.
func CheckFFmpeg(configured string, required bool) Status {
	bin := strings.TrimSpace(configured)
	if bin == "" {
		bin = "ffmpeg"
	}
	return Check("FFmpeg", bin, "Encodes ugoira bundles into animated formats", required)
}
