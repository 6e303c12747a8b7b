// Package media defines the container and codec abstractions the transcode
// pipeline is written against. The libav package implements them on top of
// FFmpeg's libraries; tests implement them in memory.
//
// Nothing here needs cgo, so timestamp math and pipeline control flow can be
// tested without libav installed.
package media

import "context"

// MediaType is the kind of elementary stream.
type MediaType string

const (
	MediaVideo    MediaType = "video"
	MediaAudio    MediaType = "audio"
	MediaSubtitle MediaType = "subtitle"
	MediaData     MediaType = "data"
	MediaUnknown  MediaType = "unknown"
)

// StreamInfo describes one stream of an opened container.
type StreamInfo struct {
	Index       int
	Type        MediaType
	Codec       string
	TimeBase    Rational
	FrameRate   Rational // Real base frame rate; zero when unknown.
	Width       int
	Height      int
	BitRate     int64
	PixelFormat string
}

// Packet is one unit of encoded data. *astiav.Packet satisfies it.
//
// A packet returned by a Demuxer or handed to an emit callback is only valid
// until it is unreferenced or the callback returns.
type Packet interface {
	StreamIndex() int
	SetStreamIndex(int)
	Pts() int64
	SetPts(int64)
	Dts() int64
	SetDts(int64)
	Duration() int64
	SetDuration(int64)
	Pos() int64
	SetPos(int64)
	Size() int
	Unref()
}

// StreamParams is a backend-owned set of codec parameters that an output
// stream can be created from. Backends only accept their own values.
type StreamParams interface {
	Info() StreamInfo
}

// Declared is a StreamParams whose output stream records BitRate in its
// codec parameters. The packets themselves are not touched.
type Declared struct {
	StreamParams
	BitRate int64
}

func (d Declared) Info() StreamInfo {
	info := d.StreamParams.Info()
	info.BitRate = d.BitRate
	return info
}

// Demuxer reads packets from an input container.
type Demuxer interface {
	Streams() []StreamInfo
	// Params returns the codec parameters of stream index.
	Params(index int) (StreamParams, error)
	// Duration is the container duration in seconds, 0 when unknown.
	Duration() float64
	// ReadPacket returns the next packet in file order, or io.EOF.
	ReadPacket(ctx context.Context) (Packet, error)
	Close() error
}

// Muxer writes a single-stream output container.
//
// Calls must follow AddStream → WriteHeader → WritePacket* → WriteTrailer.
type Muxer interface {
	// GlobalHeader reports whether the output format wants codec extradata
	// in the stream header rather than in-band.
	GlobalHeader() bool
	AddStream(params StreamParams) error
	// WriteHeader opens the output file (unless the format owns its own
	// I/O) and writes the container header.
	WriteHeader(ctx context.Context) error
	// TimeBase is the output stream time base. The header may change it,
	// so it is only final after WriteHeader.
	TimeBase() Rational
	WritePacket(ctx context.Context, pkt Packet) error
	WriteTrailer(ctx context.Context) error
	Close() error
}

// EncoderConfig configures a video encoder seeded from a source stream.
type EncoderConfig struct {
	Codec        string // Encoder implementation name, e.g. "libx265".
	BitRate      int64  // Target bits per second.
	Source       StreamParams
	FrameRate    Rational // Overrides the source rate when valid.
	GlobalHeader bool
}

// Encoder re-encodes compressed packets of one source stream. It decodes
// internally, so callers feed it demuxed packets directly.
type Encoder interface {
	Name() string
	BitRate() int64
	// TimeBase of emitted packets. Equal to the source stream time base.
	TimeBase() Rational
	// Params describes the opened encoder for creating the output stream.
	Params() StreamParams
	// Encode consumes pkt and calls emit for every packet produced.
	Encode(ctx context.Context, pkt Packet, emit func(Packet) error) error
	// Flush drains buffered frames through emit.
	Flush(ctx context.Context, emit func(Packet) error) error
	Close() error
}

// Backend opens inputs, outputs, and encoders.
type Backend interface {
	Opener
	CreateOutput(ctx context.Context, path string) (Muxer, error)
	OpenEncoder(ctx context.Context, cfg EncoderConfig) (Encoder, error)
}

// Opener opens input containers. It is the only part of Backend the
// duration prober needs.
type Opener interface {
	OpenInput(ctx context.Context, path string) (Demuxer, error)
}

// FirstVideo returns the first video stream in original order.
func FirstVideo(streams []StreamInfo) (StreamInfo, bool) {
	for _, s := range streams {
		if s.Type == MediaVideo {
			return s, true
		}
	}
	return StreamInfo{}, false
}
