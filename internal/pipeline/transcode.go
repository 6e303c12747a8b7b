package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/backmassage/vidsqueeze/internal/display"
	"github.com/backmassage/vidsqueeze/internal/failure"
	"github.com/backmassage/vidsqueeze/internal/logging"
	"github.com/backmassage/vidsqueeze/internal/media"
	"github.com/backmassage/vidsqueeze/internal/planner"
)

// Result describes a finished transcode.
type Result struct {
	PacketsRead    int
	PacketsWritten int
	PacketsDropped int
	OutputBytes    int64
	Encoder        string
	TimeBase       media.Rational // Output stream time base.
}

// Transcode writes the first video stream of plan.InputPath to
// plan.OutputPath. In transcode mode the stream is decoded and re-encoded
// at plan.BitRate; in passthrough mode the original packets are copied and
// the planned bit rate is only reported. Every other stream is dropped.
//
// A missing input fails before the output path is touched. Any failure
// after the output file was opened removes it.
func Transcode(ctx context.Context, backend media.Backend, plan *planner.JobPlan, log *logging.Logger) (res Result, err error) {
	if !plan.Overwrite {
		if _, statErr := os.Stat(plan.OutputPath); statErr == nil {
			return res, failure.WithPath(failure.KindValidation, "create output", plan.OutputPath, failure.ErrOutputExists)
		}
	}

	in, err := backend.OpenInput(ctx, plan.InputPath)
	if err != nil {
		return res, err
	}
	defer func() { err = closeInto(err, in) }()

	mux, err := backend.CreateOutput(ctx, plan.OutputPath)
	if err != nil {
		return res, err
	}
	var (
		headerTried bool
		madeDirs    []string
	)
	defer func() {
		err = closeInto(err, mux)
		if err == nil {
			return
		}
		if headerTried {
			if rmErr := os.Remove(plan.OutputPath); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warn("Could not remove partial output %s: %v", plan.OutputPath, rmErr)
			}
		}
		for _, dir := range madeDirs {
			if rmErr := os.Remove(dir); rmErr != nil {
				break
			}
		}
	}()

	video, ok := media.FirstVideo(in.Streams())
	if !ok {
		return res, failure.WithPath(failure.KindCapability, "select stream", plan.InputPath, failure.ErrNoVideoStream)
	}
	src, err := in.Params(video.Index)
	if err != nil {
		return res, err
	}

	var (
		enc  media.Encoder
		from media.Rational
	)
	if plan.Passthrough() {
		log.Info("Passthrough: packets are copied, planned %s is declared only", display.FormatBitrate(plan.BitRate))
		if err := mux.AddStream(media.Declared{StreamParams: src, BitRate: plan.BitRate}); err != nil {
			return res, err
		}
		from = video.TimeBase
	} else {
		enc, err = backend.OpenEncoder(ctx, media.EncoderConfig{
			Codec:        plan.Encoder,
			BitRate:      plan.BitRate,
			Source:       src,
			FrameRate:    video.FrameRate,
			GlobalHeader: mux.GlobalHeader(),
		})
		if err != nil {
			return res, err
		}
		defer func() { err = closeInto(err, enc) }()

		if err := mux.AddStream(enc.Params()); err != nil {
			return res, err
		}
		res.Encoder = enc.Name()
		from = enc.TimeBase()
		log.Info("Encoding with %s at %s", enc.Name(), display.FormatBitrate(enc.BitRate()))
	}

	dir := filepath.Dir(plan.OutputPath)
	if madeDirs, err = makeParents(dir); err != nil {
		return res, failure.WithPath(failure.KindIO, "create output directory", dir, err)
	}
	headerTried = true
	if err := mux.WriteHeader(ctx); err != nil {
		return res, err
	}

	res.TimeBase = mux.TimeBase()
	w := &packetWriter{mux: mux, from: from, to: res.TimeBase, res: &res}
	log.Debug("Rescaling %s -> %s", w.from, w.to)

	for {
		if err := ctx.Err(); err != nil {
			return res, failure.New(failure.KindCanceled, "read packet", err)
		}
		pkt, err := in.ReadPacket(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}
		res.PacketsRead++

		if pkt.StreamIndex() != video.Index {
			pkt.Unref()
			res.PacketsDropped++
			continue
		}
		if enc == nil {
			err = w.write(ctx, pkt)
		} else {
			err = enc.Encode(ctx, pkt, func(p media.Packet) error { return w.write(ctx, p) })
			pkt.Unref()
		}
		if err != nil {
			return res, err
		}
	}

	if enc != nil {
		if err := enc.Flush(ctx, func(p media.Packet) error { return w.write(ctx, p) }); err != nil {
			return res, err
		}
	}
	if err := mux.WriteTrailer(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// packetWriter relabels packets onto output stream 0 in the output time base.
type packetWriter struct {
	mux      media.Muxer
	from, to media.Rational
	res      *Result
}

func (w *packetWriter) write(ctx context.Context, pkt media.Packet) error {
	pkt.SetPts(media.RescaleTS(pkt.Pts(), w.from, w.to))
	pkt.SetDts(media.RescaleTS(pkt.Dts(), w.from, w.to))
	pkt.SetDuration(media.Rescale(pkt.Duration(), w.from, w.to))
	pkt.SetPos(-1)
	pkt.SetStreamIndex(0)
	size := pkt.Size()
	if err := w.mux.WritePacket(ctx, pkt); err != nil {
		return err
	}
	pkt.Unref()
	w.res.PacketsWritten++
	w.res.OutputBytes += int64(size)
	return nil
}

// makeParents creates dir and its missing parents and returns the
// directories it created, deepest first.
func makeParents(dir string) ([]string, error) {
	var missing []string
	for d := dir; ; d = filepath.Dir(d) {
		_, err := os.Stat(d)
		if err == nil {
			break
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
		missing = append(missing, d)
		if filepath.Dir(d) == d {
			break
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return missing, nil
}

// closeInto closes c and appends its error to err without masking it.
func closeInto(err error, c io.Closer) error {
	if cerr := c.Close(); cerr != nil {
		if err == nil {
			return cerr
		}
		return multierror.Append(err, cerr)
	}
	return err
}
