// Package mediatest provides in-memory implementations of the media
// interfaces for tests that must run without libav.
package mediatest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/backmassage/vidsqueeze/internal/failure"
	"github.com/backmassage/vidsqueeze/internal/media"
)

// Packet is a plain media.Packet.
type Packet struct {
	Stream   int
	PTS      int64
	DTS      int64
	Dur      int64
	Position int64
	Bytes    int
	Unrefs   int
}

func (p *Packet) StreamIndex() int { return p.Stream }
func (p *Packet) SetStreamIndex(i int) { p.Stream = i }
func (p *Packet) Pts() int64 { return p.PTS }
func (p *Packet) SetPts(v int64) { p.PTS = v }
func (p *Packet) Dts() int64 { return p.DTS }
func (p *Packet) SetDts(v int64) { p.DTS = v }
func (p *Packet) Duration() int64 { return p.Dur }
func (p *Packet) SetDuration(v int64) { p.Dur = v }
func (p *Packet) Pos() int64 { return p.Position }
func (p *Packet) SetPos(v int64) { p.Position = v }
func (p *Packet) Size() int { return p.Bytes }
func (p *Packet) Unref() { p.Unrefs++ }

// Params is the fake backend's media.StreamParams.
type Params struct{ Stream media.StreamInfo }

func (p Params) Info() media.StreamInfo { return p.Stream }

// Input describes a file the fake backend can open.
type Input struct {
	Streams  []media.StreamInfo
	Duration float64
	Packets  []Packet
	// ReadErrAt makes ReadPacket fail with ReadErr after that many packets.
	ReadErrAt int
	ReadErr   error
}

// Demuxer replays an Input.
type Demuxer struct {
	in     Input
	next   int
	read   []*Packet
	Closed int
}

func (d *Demuxer) Streams() []media.StreamInfo { return d.in.Streams }

func (d *Demuxer) Params(index int) (media.StreamParams, error) {
	for _, s := range d.in.Streams {
		if s.Index == index {
			return Params{Stream: s}, nil
		}
	}
	return nil, fmt.Errorf("no stream %d", index)
}

func (d *Demuxer) Duration() float64 { return d.in.Duration }

func (d *Demuxer) ReadPacket(ctx context.Context) (media.Packet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.in.ReadErr != nil && d.next == d.in.ReadErrAt {
		return nil, d.in.ReadErr
	}
	if d.next >= len(d.in.Packets) {
		return nil, io.EOF
	}
	p := d.in.Packets[d.next]
	d.next++
	d.read = append(d.read, &p)
	return &p, nil
}

// Read returns every packet handed out so far.
func (d *Demuxer) Read() []*Packet { return d.read }

func (d *Demuxer) Close() error {
	d.Closed++
	return nil
}

// Muxer records what a pipeline writes. WriteHeader creates the output file
// so callers can observe cleanup on disk.
type Muxer struct {
	Path string
	// HeaderTimeBase, when valid, replaces the stream time base at
	// WriteHeader like real muxers do.
	HeaderTimeBase media.Rational
	WriteErrAt     int
	WriteErr       error

	Params        []media.StreamParams
	HeaderWritten bool
	TrailerCount  int
	Packets       []Packet
	Closed        int
	timeBase      media.Rational
}

func (m *Muxer) GlobalHeader() bool { return strings.EqualFold(filepath.Ext(m.Path), ".mp4") }

func (m *Muxer) AddStream(p media.StreamParams) error {
	if len(m.Params) > 0 {
		return fmt.Errorf("only one output stream supported")
	}
	m.Params = append(m.Params, p)
	m.timeBase = p.Info().TimeBase
	return nil
}

func (m *Muxer) WriteHeader(context.Context) error {
	if len(m.Params) == 0 {
		return fmt.Errorf("no streams")
	}
	if err := os.WriteFile(m.Path, []byte("header"), 0o644); err != nil {
		return failure.WithPath(failure.KindIO, "open output", m.Path, err)
	}
	if m.HeaderTimeBase.Valid() {
		m.timeBase = m.HeaderTimeBase
	}
	m.HeaderWritten = true
	return nil
}

func (m *Muxer) TimeBase() media.Rational { return m.timeBase }

func (m *Muxer) WritePacket(_ context.Context, p media.Packet) error {
	if !m.HeaderWritten {
		return failure.ErrHeaderNotWritten
	}
	if m.TrailerCount > 0 {
		return failure.ErrTrailerWritten
	}
	if m.WriteErr != nil && len(m.Packets) == m.WriteErrAt {
		return m.WriteErr
	}
	m.Packets = append(m.Packets, Packet{
		Stream: p.StreamIndex(), PTS: p.Pts(), DTS: p.Dts(),
		Dur: p.Duration(), Position: p.Pos(), Bytes: p.Size(),
	})
	return nil
}

func (m *Muxer) WriteTrailer(context.Context) error {
	if !m.HeaderWritten {
		return failure.ErrHeaderNotWritten
	}
	m.TrailerCount++
	return nil
}

func (m *Muxer) Close() error {
	m.Closed++
	return nil
}

// Encoder halves packet sizes and holds back Delay packets until Flush,
// like an encoder with lookahead.
type Encoder struct {
	Cfg     media.EncoderConfig
	Delay   int
	pending []Packet
	Closed  int
}

func (e *Encoder) Name() string { return e.Cfg.Codec }
func (e *Encoder) BitRate() int64 { return e.Cfg.BitRate }
func (e *Encoder) TimeBase() media.Rational { return e.Cfg.Source.Info().TimeBase }

func (e *Encoder) Params() media.StreamParams {
	info := e.Cfg.Source.Info()
	info.Codec = e.Cfg.Codec
	info.BitRate = e.Cfg.BitRate
	return Params{Stream: info}
}

func (e *Encoder) Encode(ctx context.Context, p media.Packet, emit func(media.Packet) error) error {
	e.pending = append(e.pending, Packet{
		Stream: p.StreamIndex(), PTS: p.Pts(), DTS: p.Dts(),
		Dur: p.Duration(), Position: p.Pos(), Bytes: p.Size() / 2,
	})
	for len(e.pending) > e.Delay {
		out := e.pending[0]
		e.pending = e.pending[1:]
		if err := emit(&out); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) Flush(ctx context.Context, emit func(media.Packet) error) error {
	for len(e.pending) > 0 {
		out := e.pending[0]
		e.pending = e.pending[1:]
		if err := emit(&out); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) Close() error {
	e.Closed++
	return nil
}

// Backend serves Inputs by path and records every object it creates.
type Backend struct {
	mu       sync.Mutex
	Inputs   map[string]Input
	Encoders map[string]bool // Available encoder names.
	// OutputTimeBase is applied to each created muxer's HeaderTimeBase.
	OutputTimeBase media.Rational
	EncoderDelay   int
	// WriteErr is returned by every created muxer's WritePacket after
	// WriteErrAt packets.
	WriteErrAt int
	WriteErr   error

	Demuxers     []*Demuxer
	Muxers       []*Muxer
	OpenEncoders []*Encoder
}

// NewBackend returns a backend knowing the given encoders.
func NewBackend(encoders ...string) *Backend {
	b := &Backend{Inputs: map[string]Input{}, Encoders: map[string]bool{}}
	for _, e := range encoders {
		b.Encoders[e] = true
	}
	return b
}

// Add registers in under path and creates a placeholder file there so
// callers that stat the input see it.
func (b *Backend) Add(path string, in Input) error {
	b.mu.Lock()
	b.Inputs[path] = in
	b.mu.Unlock()
	return os.WriteFile(path, make([]byte, 2048), 0o644)
}

func (b *Backend) OpenInput(ctx context.Context, path string) (media.Demuxer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	in, ok := b.Inputs[path]
	if !ok {
		return nil, failure.WithPath(failure.KindIO, "open input", path, failure.ErrOpenInput)
	}
	in.Packets = append([]Packet(nil), in.Packets...)
	d := &Demuxer{in: in}
	b.Demuxers = append(b.Demuxers, d)
	return d, nil
}

func (b *Backend) CreateOutput(ctx context.Context, path string) (media.Muxer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mkv", ".mp4":
	default:
		return nil, failure.WithPath(failure.KindIO, "create output", path, failure.ErrOutputFormat)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m := &Muxer{Path: path, HeaderTimeBase: b.OutputTimeBase, WriteErrAt: b.WriteErrAt, WriteErr: b.WriteErr}
	b.Muxers = append(b.Muxers, m)
	return m, nil
}

func (b *Backend) OpenEncoder(ctx context.Context, cfg media.EncoderConfig) (media.Encoder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.Encoders[cfg.Codec] {
		return nil, failure.New(failure.KindCapability, "find encoder "+cfg.Codec, failure.ErrEncoderNotFound)
	}
	e := &Encoder{Cfg: cfg, Delay: b.EncoderDelay}
	b.OpenEncoders = append(b.OpenEncoders, e)
	return e, nil
}

// VideoPackets returns n video packets on stream index with pts = dts = i*step.
func VideoPackets(index, n int, step int64) []Packet {
	out := make([]Packet, n)
	for i := range out {
		out[i] = Packet{Stream: index, PTS: int64(i) * step, DTS: int64(i) * step, Dur: step, Position: int64(i * 1000), Bytes: 1000}
	}
	return out
}

// Interleave merges packet lists round-robin, like a demuxer reading an
// interleaved file.
func Interleave(lists ...[]Packet) []Packet {
	var out []Packet
	for i := 0; ; i++ {
		added := false
		for _, l := range lists {
			if i < len(l) {
				out = append(out, l[i])
				added = true
			}
		}
		if !added {
			return out
		}
	}
}
