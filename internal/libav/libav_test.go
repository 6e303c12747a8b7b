package libav_test

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/vidsqueeze/internal/config"
	"github.com/backmassage/vidsqueeze/internal/failure"
	"github.com/backmassage/vidsqueeze/internal/libav"
	"github.com/backmassage/vidsqueeze/internal/logging"
	"github.com/backmassage/vidsqueeze/internal/media"
	"github.com/backmassage/vidsqueeze/internal/media/mediatest"
	"github.com/backmassage/vidsqueeze/internal/pipeline"
	"github.com/backmassage/vidsqueeze/internal/planner"
	"github.com/backmassage/vidsqueeze/internal/probe"
)

// fixture renders a lavfi source with the ffmpeg binary.
func fixture(t *testing.T, name string, args ...string) string {
	t.Helper()
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	path := filepath.Join(t.TempDir(), name)
	cmd := exec.Command(bin, append(append([]string{"-hide_banner", "-loglevel", "error", "-y"}, args...), path)...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return path
}

func movie(t *testing.T) string {
	return fixture(t, "movie.mkv",
		"-f", "lavfi", "-i", "testsrc=duration=2:size=320x240:rate=25",
		"-f", "lavfi", "-i", "sine=duration=2",
		"-c:v", "mpeg4", "-c:a", "aac")
}

func quiet() *logging.Logger { return logging.New(io.Discard, io.Discard, false) }

func plan(t *testing.T, b *libav.Backend, in, out string, mode config.Mode) *planner.JobPlan {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Encoder = "mpeg4"
	cfg.Mode = mode
	cfg.TargetSizeMB = 1
	pr, err := probe.Probe(context.Background(), b, in)
	require.NoError(t, err)
	p, err := planner.BuildPlan(&cfg, pr, in, out)
	require.NoError(t, err)
	return p
}

func TestProbe(t *testing.T) {
	in := movie(t)
	b := libav.New()

	first, err := probe.Probe(context.Background(), b, in)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, first.Format.Duration, 0.2)
	assert.Equal(t, 2, first.Format.NbStreams)
	require.NotNil(t, first.PrimaryVideo)
	assert.Equal(t, "320x240", first.Resolution())
	assert.Equal(t, 1, first.DroppedStreams())

	again, err := probe.Probe(context.Background(), b, in)
	require.NoError(t, err)
	assert.Equal(t, first.Format.Duration, again.Format.Duration)
}

func TestTranscode(t *testing.T) {
	b := libav.New()
	if !b.HasEncoder("mpeg4") {
		t.Skip("mpeg4 encoder not available")
	}
	in := movie(t)

	for _, mode := range []config.Mode{config.ModeTranscode, config.ModePassthrough} {
		t.Run(string(mode), func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out.mkv")
			res, err := pipeline.Transcode(context.Background(), b, plan(t, b, in, out, mode), quiet())
			require.NoError(t, err)
			assert.Positive(t, res.PacketsWritten)
			assert.Positive(t, res.PacketsDropped, "audio packets are dropped")

			d, err := b.OpenInput(context.Background(), out)
			require.NoError(t, err)
			defer d.Close()
			streams := d.Streams()
			require.Len(t, streams, 1)
			assert.Equal(t, media.MediaVideo, streams[0].Type)
			assert.Equal(t, 320, streams[0].Width)
			assert.InDelta(t, 2.0, d.Duration(), 0.3)
		})
	}
}

func TestTranscode_AudioOnly(t *testing.T) {
	in := fixture(t, "song.wav", "-f", "lavfi", "-i", "sine=duration=2")
	out := filepath.Join(t.TempDir(), "out.mkv")

	cfg := config.DefaultConfig()
	cfg.InputPath, cfg.OutputPath, cfg.TargetSizeMB = in, out, 1
	_, err := (&pipeline.Runner{Backend: libav.New(), Log: quiet()}).Run(context.Background(), &cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrNoVideoStream)
	assert.NoFileExists(t, out)
}

func TestOpenInput_NotMedia(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.mkv")
	require.NoError(t, os.WriteFile(path, []byte("definitely not matroska"), 0o644))

	_, err := libav.New().OpenInput(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, failure.KindIO, failure.KindOf(err))
}

func TestCapabilities(t *testing.T) {
	b := libav.New()
	assert.True(t, b.HasMuxer("mkv"))
	assert.True(t, b.HasMuxer(".mp4"))
	assert.False(t, b.HasMuxer("notacontainer"))
	assert.False(t, b.HasEncoder("no-such-encoder"))
	assert.False(t, b.HasDecoder("no-such-decoder"))
}

func TestOutput_PacketBeforeHeader(t *testing.T) {
	b := libav.New()
	path := filepath.Join(t.TempDir(), "out.mkv")

	mux, err := b.CreateOutput(context.Background(), path)
	require.NoError(t, err)
	defer mux.Close()

	err = mux.WritePacket(context.Background(), &mediatest.Packet{})
	assert.ErrorIs(t, err, failure.ErrHeaderNotWritten)
	assert.ErrorIs(t, mux.WriteTrailer(context.Background()), failure.ErrHeaderNotWritten)
	assert.NoFileExists(t, path)

	_, err = b.CreateOutput(context.Background(), filepath.Join(t.TempDir(), "out.notacontainer"))
	assert.ErrorIs(t, err, failure.ErrOutputFormat)
}
