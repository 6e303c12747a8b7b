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

// Encoder decodes packets of one input stream and re-encodes the frames.
// It implements media.Encoder.
type Encoder struct {
	*astikit.Closer
	name    string
	dec     *astiav.CodecContext
	enc     *astiav.CodecContext
	frame   *astiav.Frame
	pkt     *astiav.Packet
	flushed bool
	once    sync.Once
}

var _ media.Encoder = (*Encoder)(nil)

// OpenEncoder resolves cfg.Codec, opens a decoder for the source stream and
// configures the encoder from it: picture size, pixel format and aspect
// ratio come from the source, time base is the source stream's, frame rate
// is cfg.FrameRate or the source's real rate, and bit rate is cfg.BitRate.
func (b *Backend) OpenEncoder(ctx context.Context, cfg media.EncoderConfig) (_ media.Encoder, _err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, ok := cfg.Source.(*inputParams)
	if !ok {
		return nil, fmt.Errorf("open encoder: unsupported source %T", cfg.Source)
	}

	codec := astiav.FindEncoderByName(cfg.Codec)
	if codec == nil {
		return nil, failure.New(failure.KindCapability, "find encoder "+cfg.Codec, failure.ErrEncoderNotFound)
	}

	e := &Encoder{Closer: astikit.NewCloser(), name: cfg.Codec}
	defer func() {
		if _err != nil {
			_ = e.Close()
		}
	}()

	if err := e.openDecoder(src); err != nil {
		return nil, err
	}

	e.enc = astiav.AllocCodecContext(codec)
	if e.enc == nil {
		return nil, failure.New(failure.KindCapability, "open encoder "+cfg.Codec, errors.New("unable to allocate codec context"))
	}
	e.Closer.Add(e.enc.Free)

	e.enc.SetWidth(e.dec.Width())
	e.enc.SetHeight(e.dec.Height())
	e.enc.SetPixelFormat(e.dec.PixelFormat())
	e.enc.SetSampleAspectRatio(e.dec.SampleAspectRatio())
	e.enc.SetTimeBase(src.stream.TimeBase())
	if cfg.FrameRate.Valid() {
		e.enc.SetFramerate(toRational(cfg.FrameRate))
	} else {
		e.enc.SetFramerate(src.stream.RFrameRate())
	}
	e.enc.SetBitRate(cfg.BitRate)
	if cfg.GlobalHeader {
		e.enc.SetFlags(e.enc.Flags().Add(astiav.CodecContextFlagGlobalHeader))
	}

	if err := e.enc.Open(codec, nil); err != nil {
		return nil, failure.New(failure.KindCapability, "open encoder "+cfg.Codec,
			fmt.Errorf("%w (pixel format %s, %dx%d, %d bps): %w", failure.ErrEncoderRejected,
				e.dec.PixelFormat().Name(), e.dec.Width(), e.dec.Height(), cfg.BitRate, err))
	}

	e.frame = astiav.AllocFrame()
	e.Closer.Add(e.frame.Free)
	e.pkt = astiav.AllocPacket()
	e.Closer.Add(e.pkt.Free)
	return e, nil
}

func (e *Encoder) openDecoder(src *inputParams) error {
	cp := src.stream.CodecParameters()
	codec := astiav.FindDecoder(cp.CodecID())
	if codec == nil {
		return failure.New(failure.KindCapability, "find decoder "+cp.CodecID().Name(), failure.ErrDecoderNotFound)
	}
	e.dec = astiav.AllocCodecContext(codec)
	if e.dec == nil {
		return failure.New(failure.KindCapability, "open decoder", errors.New("unable to allocate codec context"))
	}
	e.Closer.Add(e.dec.Free)

	if err := cp.ToCodecContext(e.dec); err != nil {
		return failure.New(failure.KindCapability, "open decoder", err)
	}
	e.dec.SetFramerate(src.fc.GuessFrameRate(src.stream, nil))
	if err := e.dec.Open(codec, nil); err != nil {
		return failure.New(failure.KindCapability, "open decoder", err)
	}
	return nil
}

func (e *Encoder) Name() string { return e.name }

func (e *Encoder) BitRate() int64 { return e.enc.BitRate() }

func (e *Encoder) TimeBase() media.Rational { return fromRational(e.enc.TimeBase()) }

func (e *Encoder) Params() media.StreamParams { return &encoderParams{cc: e.enc, name: e.name} }

// Encode decodes pkt and encodes every frame it yields.
func (e *Encoder) Encode(ctx context.Context, pkt media.Packet, emit func(media.Packet) error) error {
	p, ok := pkt.(*astiav.Packet)
	if !ok {
		return fmt.Errorf("encode: unsupported packet %T", pkt)
	}
	if err := e.dec.SendPacket(p); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return failure.New(failure.KindIO, "decode", err)
	}
	return e.drainDecoder(ctx, emit)
}

// Flush drains the decoder, then the encoder. Further calls are no-ops.
func (e *Encoder) Flush(ctx context.Context, emit func(media.Packet) error) error {
	if e.flushed {
		return nil
	}
	e.flushed = true
	if err := e.dec.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		return failure.New(failure.KindIO, "flush decoder", err)
	}
	if err := e.drainDecoder(ctx, emit); err != nil {
		return err
	}
	return e.encodeFrame(nil, emit)
}

func (e *Encoder) drainDecoder(ctx context.Context, emit func(media.Packet) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.dec.ReceiveFrame(e.frame); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return failure.New(failure.KindIO, "decode", err)
		}
		// Let the encoder pick its own frame types.
		e.frame.SetPictureType(astiav.PictureTypeNone)
		err := e.encodeFrame(e.frame, emit)
		e.frame.Unref()
		if err != nil {
			return err
		}
	}
}

// encodeFrame sends f (nil to flush) and emits every packet produced.
func (e *Encoder) encodeFrame(f *astiav.Frame, emit func(media.Packet) error) error {
	if err := e.enc.SendFrame(f); err != nil {
		if f == nil && errors.Is(err, astiav.ErrEof) {
			return nil
		}
		return failure.New(failure.KindIO, "encode", err)
	}
	for {
		if err := e.enc.ReceivePacket(e.pkt); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return failure.New(failure.KindIO, "encode", err)
		}
		err := emit(e.pkt)
		e.pkt.Unref()
		if err != nil {
			return err
		}
	}
}

// Close frees the packet, frame, encoder and decoder. Safe to call more than once.
func (e *Encoder) Close() error {
	var err error
	e.once.Do(func() { err = e.Closer.Close() })
	return err
}
