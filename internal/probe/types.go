package probe

import (
	"strconv"

	"github.com/backmassage/vidsqueeze/internal/media"
)

// FormatInfo holds container-level metadata.
type FormatInfo struct {
	Filename  string
	NbStreams int
	Duration  float64 // Seconds.
	Size      int64   // Bytes on disk.
}

// VideoStream holds the properties of the selected video stream.
type VideoStream struct {
	Index     int
	Codec     string
	PixFmt    string
	Width     int
	Height    int
	BitRate   int64
	TimeBase  media.Rational
	FrameRate media.Rational
}

// ProbeResult is the summary of one opened input.
// PrimaryVideo is the first video stream in file order (nil if none).
type ProbeResult struct {
	Format       FormatInfo
	PrimaryVideo *VideoStream
	Streams      []media.StreamInfo
}

// VideoBitRate returns the primary video stream bitrate in bits/sec,
// falling back to the container average when the stream value is
// unavailable or zero.
func (p *ProbeResult) VideoBitRate() int64 {
	if p.PrimaryVideo != nil && p.PrimaryVideo.BitRate > 0 {
		return p.PrimaryVideo.BitRate
	}
	if p.Format.Duration > 0 && p.Format.Size > 0 {
		return int64(float64(p.Format.Size*8) / p.Format.Duration)
	}
	return 0
}

// Resolution returns "WxH" for the primary video stream, or "unknown".
func (p *ProbeResult) Resolution() string {
	if p.PrimaryVideo == nil || p.PrimaryVideo.Width <= 0 || p.PrimaryVideo.Height <= 0 {
		return "unknown"
	}
	return strconv.Itoa(p.PrimaryVideo.Width) + "x" + strconv.Itoa(p.PrimaryVideo.Height)
}

// DroppedStreams counts the streams that will not reach the output.
func (p *ProbeResult) DroppedStreams() int {
	if p.PrimaryVideo == nil {
		return len(p.Streams)
	}
	return len(p.Streams) - 1
}
