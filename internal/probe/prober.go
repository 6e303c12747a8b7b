package probe

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"

	"github.com/backmassage/vidsqueeze/internal/failure"
	"github.com/backmassage/vidsqueeze/internal/media"
)

// Probe opens path through opener, reads its duration and streams, and
// closes it before returning. A missing or unreadable file is an I/O
// failure wrapping failure.ErrOpenInput.
func Probe(ctx context.Context, opener media.Opener, path string) (pr *ProbeResult, err error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, failure.WithPath(failure.KindIO, "open input", path,
			fmt.Errorf("%w: %w", failure.ErrOpenInput, err))
	}
	if fi.IsDir() {
		return nil, failure.WithPath(failure.KindIO, "open input", path,
			fmt.Errorf("%w: is a directory", failure.ErrOpenInput))
	}

	d, err := opener.OpenInput(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil && err == nil {
			err = failure.WithPath(failure.KindIO, "close input", path, cerr)
		}
	}()

	return Summarize(path, fi.Size(), d), nil
}

// Summarize builds a ProbeResult from an already opened demuxer.
func Summarize(path string, size int64, d media.Demuxer) *ProbeResult {
	streams := d.Streams()
	pr := &ProbeResult{
		Format: FormatInfo{
			Filename:  path,
			NbStreams: len(streams),
			Duration:  d.Duration(),
			Size:      size,
		},
		Streams: streams,
	}
	if v, ok := media.FirstVideo(streams); ok {
		pr.PrimaryVideo = &VideoStream{
			Index:     v.Index,
			Codec:     v.Codec,
			PixFmt:    v.PixelFormat,
			Width:     v.Width,
			Height:    v.Height,
			BitRate:   v.BitRate,
			TimeBase:  v.TimeBase,
			FrameRate: v.FrameRate,
		}
	}
	return pr
}

// RequireVideo returns the primary video stream or a capability failure
// wrapping failure.ErrNoVideoStream.
func (p *ProbeResult) RequireVideo() (*VideoStream, error) {
	if p.PrimaryVideo == nil {
		return nil, failure.WithPath(failure.KindCapability, "select stream", p.Format.Filename,
			failure.ErrNoVideoStream)
	}
	return p.PrimaryVideo, nil
}

var dumpConfig = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}

// Dump renders the result for --verbose output.
func (p *ProbeResult) Dump() string {
	return dumpConfig.Sdump(p)
}

// IsNotExist reports whether err came from a missing input file.
func IsNotExist(err error) bool {
	return errors.Is(err, failure.ErrOpenInput) && errors.Is(err, os.ErrNotExist)
}
