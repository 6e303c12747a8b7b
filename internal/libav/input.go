package libav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"

	"github.com/backmassage/vidsqueeze/internal/failure"
	"github.com/backmassage/vidsqueeze/internal/media"
)

// Input is an opened input container. It implements media.Demuxer.
type Input struct {
	*astikit.Closer
	fc   *astiav.FormatContext
	pkt  *astiav.Packet
	path string
	once sync.Once
}

var _ media.Demuxer = (*Input)(nil)

// OpenInput opens path, reads stream info and allocates the read packet.
func (b *Backend) OpenInput(ctx context.Context, path string) (_ media.Demuxer, _err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in := &Input{Closer: astikit.NewCloser(), path: path}
	defer func() {
		if _err != nil {
			_ = in.Close()
		}
	}()

	in.fc = astiav.AllocFormatContext()
	if in.fc == nil {
		return nil, failure.WithPath(failure.KindIO, "open input", path,
			fmt.Errorf("%w: unable to allocate a format context", failure.ErrOpenInput))
	}
	in.Closer.Add(in.fc.Free)

	if err := in.fc.OpenInput(path, nil, nil); err != nil {
		return nil, failure.WithPath(failure.KindIO, "open input", path,
			fmt.Errorf("%w: %w", failure.ErrOpenInput, err))
	}
	in.Closer.Add(in.fc.CloseInput)

	if err := in.fc.FindStreamInfo(nil); err != nil {
		return nil, failure.WithPath(failure.KindIO, "find stream info", path,
			fmt.Errorf("%w: %w", failure.ErrStreamInfo, err))
	}

	in.pkt = astiav.AllocPacket()
	if in.pkt == nil {
		return nil, failure.WithPath(failure.KindIO, "open input", path, errors.New("unable to allocate a packet"))
	}
	in.Closer.Add(in.pkt.Free)
	return in, nil
}

func (in *Input) Streams() []media.StreamInfo {
	streams := in.fc.Streams()
	out := make([]media.StreamInfo, 0, len(streams))
	for _, s := range streams {
		out = append(out, streamInfo(s))
	}
	return out
}

func (in *Input) Params(index int) (media.StreamParams, error) {
	for _, s := range in.fc.Streams() {
		if s.Index() == index {
			return &inputParams{fc: in.fc, stream: s}, nil
		}
	}
	return nil, failure.WithPath(failure.KindCapability, fmt.Sprintf("select stream %d", index), in.path,
		errors.New("no such stream"))
}

// Duration is the container duration in seconds, or 0 when the container
// does not declare one.
func (in *Input) Duration() float64 {
	d := in.fc.Duration()
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(astiav.TimeBase)
}

// ReadPacket reads the next packet into the input's reusable packet. The
// previous packet is unreferenced first.
func (in *Input) ReadPacket(ctx context.Context) (media.Packet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in.pkt.Unref()
	if err := in.fc.ReadFrame(in.pkt); err != nil {
		if errors.Is(err, astiav.ErrEof) {
			return nil, io.EOF
		}
		return nil, failure.WithPath(failure.KindIO, "read packet", in.path, err)
	}
	return in.pkt, nil
}

// Close releases the packet and the container. Safe to call more than once.
func (in *Input) Close() error {
	var err error
	in.once.Do(func() { err = in.Closer.Close() })
	return err
}
