package libav

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"

	"github.com/backmassage/vidsqueeze/internal/failure"
	"github.com/backmassage/vidsqueeze/internal/media"
)

// Output is a single-stream output container. It implements media.Muxer.
type Output struct {
	*astikit.Closer
	fc     *astiav.FormatContext
	stream *astiav.Stream
	path   string

	headerWritten  bool
	trailerWritten bool
	once           sync.Once
}

var (
	_ media.Muxer  = (*Output)(nil)
	_ media.Packet = (*astiav.Packet)(nil)
)

// CreateOutput allocates an output context for path with the container
// format guessed from its extension. No file is touched until WriteHeader.
func (b *Backend) CreateOutput(ctx context.Context, path string) (media.Muxer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fc, err := astiav.AllocOutputFormatContext(nil, "", path)
	if err != nil {
		return nil, failure.WithPath(failure.KindIO, "create output", path,
			fmt.Errorf("%w: %w", failure.ErrOutputFormat, err))
	}
	if fc == nil {
		return nil, failure.WithPath(failure.KindIO, "create output", path, failure.ErrOutputFormat)
	}
	out := &Output{Closer: astikit.NewCloser(), fc: fc, path: path}
	out.Closer.Add(fc.Free)
	return out, nil
}

// GlobalHeader reports whether the container wants codec extradata in the
// stream header (mp4, mkv) rather than repeated in-band.
func (o *Output) GlobalHeader() bool {
	return o.fc.OutputFormat().Flags().Has(astiav.IOFormatFlagGlobalheader)
}

// AddStream creates the output stream. Encoder params are taken from the
// opened codec context; input params are copied with their codec tag
// cleared so the muxer picks one valid for its container. A media.Declared
// wrapper overrides the bit rate written to the stream parameters.
func (o *Output) AddStream(params media.StreamParams) error {
	if o.stream != nil {
		return failure.WithPath(failure.KindCapability, "add stream", o.path,
			errors.New("output already has a stream"))
	}
	s := o.fc.NewStream(nil)
	if s == nil {
		return failure.WithPath(failure.KindCapability, "add stream", o.path,
			errors.New("unable to create output stream"))
	}

	var declared int64
	if d, ok := params.(media.Declared); ok {
		params, declared = d.StreamParams, d.BitRate
	}

	switch p := params.(type) {
	case *encoderParams:
		if err := s.CodecParameters().FromCodecContext(p.cc); err != nil {
			return failure.WithPath(failure.KindCapability, "add stream", o.path, err)
		}
		s.SetTimeBase(p.cc.TimeBase())
	case *inputParams:
		if err := p.stream.CodecParameters().Copy(s.CodecParameters()); err != nil {
			return failure.WithPath(failure.KindCapability, "add stream", o.path, err)
		}
		s.CodecParameters().SetCodecTag(0)
		s.SetTimeBase(p.stream.TimeBase())
	default:
		return failure.WithPath(failure.KindCapability, "add stream", o.path,
			fmt.Errorf("unsupported stream params %T", params))
	}
	if declared > 0 {
		s.CodecParameters().SetBitRate(declared)
	}
	o.stream = s
	return nil
}

// WriteHeader opens the output file unless the format does its own I/O,
// then writes the container header.
func (o *Output) WriteHeader(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.stream == nil {
		return failure.WithPath(failure.KindCapability, "write header", o.path, errors.New("no output stream"))
	}
	if o.headerWritten {
		return nil
	}

	if !o.fc.OutputFormat().Flags().Has(astiav.IOFormatFlagNofile) {
		ioContext, err := astiav.OpenIOContext(o.path, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
		if err != nil {
			return failure.WithPath(failure.KindIO, "open output", o.path,
				fmt.Errorf("%w: %w", failure.ErrOpenOutput, err))
		}
		o.Closer.AddWithError(ioContext.Close)
		o.fc.SetPb(ioContext)
	}

	if err := o.fc.WriteHeader(nil); err != nil {
		return failure.WithPath(failure.KindIO, "write header", o.path, err)
	}
	o.headerWritten = true
	return nil
}

func (o *Output) TimeBase() media.Rational {
	if o.stream == nil {
		return media.Rational{}
	}
	return fromRational(o.stream.TimeBase())
}

// WritePacket hands pkt to the interleaving muxer, which takes ownership
// of its payload.
func (o *Output) WritePacket(ctx context.Context, pkt media.Packet) error {
	if !o.headerWritten {
		return failure.WithPath(failure.KindIO, "write packet", o.path, failure.ErrHeaderNotWritten)
	}
	if o.trailerWritten {
		return failure.WithPath(failure.KindIO, "write packet", o.path, failure.ErrTrailerWritten)
	}
	p, ok := pkt.(*astiav.Packet)
	if !ok {
		return fmt.Errorf("write packet: unsupported packet %T", pkt)
	}
	if err := o.fc.WriteInterleavedFrame(p); err != nil {
		return failure.WithPath(failure.KindIO, "write packet", o.path, err)
	}
	return nil
}

func (o *Output) WriteTrailer(ctx context.Context) error {
	if !o.headerWritten {
		return failure.WithPath(failure.KindIO, "write trailer", o.path, failure.ErrHeaderNotWritten)
	}
	if o.trailerWritten {
		return failure.WithPath(failure.KindIO, "write trailer", o.path, failure.ErrTrailerWritten)
	}
	if err := o.fc.WriteTrailer(); err != nil {
		return failure.WithPath(failure.KindIO, "write trailer", o.path, err)
	}
	o.trailerWritten = true
	return nil
}

// Close closes the output file and frees the container, in that order.
func (o *Output) Close() error {
	var err error
	o.once.Do(func() { err = o.Closer.Close() })
	return err
}
