package planner

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/vidsqueeze/internal/config"
	"github.com/backmassage/vidsqueeze/internal/failure"
	"github.com/backmassage/vidsqueeze/internal/media"
	"github.com/backmassage/vidsqueeze/internal/probe"
)

func TestPlanBitrate_TenMegabytesOverAMinute(t *testing.T) {
	bps, err := PlanBitrate(10, 60)
	require.NoError(t, err)
	// (10*8*1024*1024 - 128000*60) / 60 = 1270101.33
	assert.Equal(t, int64(1270101), bps)
}

func TestPlanBitrate_MatchesFormula(t *testing.T) {
	sizes := []float64{0.5, 1, 2.5, 10, 50, 700, 4096}
	durations := []float64{0.04, 1, 12.5, 60, 600, 5400}
	for _, size := range sizes {
		for _, dur := range durations {
			want := math.Round((size*8*1024*1024 - 128000*dur) / dur)
			got, err := PlanBitrate(size, dur)
			if want <= 0 {
				assert.ErrorIsf(t, err, failure.ErrBitrateTooLow, "size=%v dur=%v", size, dur)
				continue
			}
			require.NoErrorf(t, err, "size=%v dur=%v", size, dur)
			assert.Equalf(t, int64(want), got, "size=%v dur=%v", size, dur)
		}
	}
}

func TestPlanBitrate_TooSmallTarget(t *testing.T) {
	_, err := PlanBitrate(1, 120)
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrBitrateTooLow)
	assert.Equal(t, failure.KindValidation, failure.KindOf(err))
	assert.Equal(t, 2, failure.ExitCode(err))
}

func TestPlanBitrate_InvalidInputs(t *testing.T) {
	tests := []struct {
		name     string
		size     float64
		duration float64
		want     error
	}{
		{"zero duration", 10, 0, failure.ErrInvalidDuration},
		{"negative duration", 10, -5, failure.ErrInvalidDuration},
		{"NaN duration", 10, math.NaN(), failure.ErrInvalidDuration},
		{"infinite duration", 10, math.Inf(1), failure.ErrInvalidDuration},
		{"zero size", 0, 60, failure.ErrInvalidTarget},
		{"negative size", -1, 60, failure.ErrInvalidTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanBitrate(tt.size, tt.duration)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, failure.KindValidation, failure.KindOf(err))
		})
	}
}

func TestMinTargetMB_IsTheBoundary(t *testing.T) {
	min := MinTargetMB(60)
	assert.InDelta(t, 0.9155, min, 0.0001)

	_, err := PlanBitrate(min, 60)
	assert.ErrorIs(t, err, failure.ErrBitrateTooLow)

	bps, err := PlanBitrate(min+0.01, 60)
	require.NoError(t, err)
	assert.Positive(t, bps)
}

func TestEstimateOutput(t *testing.T) {
	bps, err := PlanBitrate(10, 60)
	require.NoError(t, err)

	est := EstimateOutput(bps, 60)
	assert.Equal(t, int64(960000), est.ReservedBytes)
	assert.InDelta(t, 10*1024*1024, est.TotalBytes(), 8)

	assert.Equal(t, SizeEstimate{}, EstimateOutput(0, 60))
	assert.Equal(t, SizeEstimate{}, EstimateOutput(1000, 0))
}

func probeWithVideo(duration float64) *probe.ProbeResult {
	return &probe.ProbeResult{
		Format: probe.FormatInfo{Filename: "in.mp4", NbStreams: 2, Duration: duration},
		PrimaryVideo: &probe.VideoStream{
			Index: 1, Codec: "h264", Width: 1280, Height: 720,
			TimeBase: media.Rational{Num: 1, Den: 30},
		},
		Streams: []media.StreamInfo{
			{Index: 0, Type: media.MediaAudio},
			{Index: 1, Type: media.MediaVideo},
		},
	}
}

func TestBuildPlan(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TargetSizeMB = 10

	plan, err := BuildPlan(&cfg, probeWithVideo(60), "in.mp4", "out.mkv")
	require.NoError(t, err)

	assert.Equal(t, int64(1270101), plan.BitRate)
	assert.Equal(t, 60.0, plan.Duration)
	assert.Equal(t, "libx265", plan.Encoder)
	assert.Equal(t, 1, plan.Video.Index)
	assert.Equal(t, 1, plan.DroppedStreams)
	assert.False(t, plan.Passthrough())
	_, err = uuid.Parse(plan.ID)
	assert.NoError(t, err)
	assert.Len(t, plan.ShortID(), 8)
}

func TestBuildPlan_NoVideo(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TargetSizeMB = 10
	pr := &probe.ProbeResult{
		Format:  probe.FormatInfo{Filename: "song.m4a", Duration: 60},
		Streams: []media.StreamInfo{{Index: 0, Type: media.MediaAudio}},
	}

	_, err := BuildPlan(&cfg, pr, "song.m4a", "out.mkv")
	assert.ErrorIs(t, err, failure.ErrNoVideoStream)
	assert.Equal(t, failure.KindCapability, failure.KindOf(err))
}

func TestBuildPlan_PassthroughAndBadDuration(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TargetSizeMB = 10
	cfg.Mode = config.ModePassthrough

	plan, err := BuildPlan(&cfg, probeWithVideo(60), "in.mp4", "out.mkv")
	require.NoError(t, err)
	assert.True(t, plan.Passthrough())

	_, err = BuildPlan(&cfg, probeWithVideo(0), "in.mp4", "out.mkv")
	assert.ErrorIs(t, err, failure.ErrInvalidDuration)
}
