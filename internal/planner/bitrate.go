package planner

import (
	"math"

	"github.com/backmassage/vidsqueeze/internal/failure"
)

const (
	// AudioReserveBps is reserved from the size budget for an audio track
	// at 128 kbps, whether or not the output carries audio.
	AudioReserveBps = 128000

	bytesPerMB = 1024 * 1024
)

// PlanBitrate returns the video bit rate in bits per second that fills
// targetMB over durationSec:
//
//	(targetMB*8*1024*1024 - AudioReserveBps*duration) / duration
//
// rounded to the nearest integer. Non-positive or non-finite inputs, and a
// budget that leaves no room for video, are validation failures.
func PlanBitrate(targetMB, durationSec float64) (int64, error) {
	if math.IsNaN(durationSec) || math.IsInf(durationSec, 0) || durationSec <= 0 {
		return 0, failure.Validation(failure.ErrInvalidDuration, "got %v s", durationSec)
	}
	if math.IsNaN(targetMB) || math.IsInf(targetMB, 0) || targetMB <= 0 {
		return 0, failure.Validation(failure.ErrInvalidTarget, "got %v MB", targetMB)
	}

	bits := targetMB * 8 * bytesPerMB
	reserve := AudioReserveBps * durationSec
	bps := math.Round((bits - reserve) / durationSec)
	if bps <= 0 {
		return 0, failure.Validation(failure.ErrBitrateTooLow,
			"%.2f MB over %.2f s leaves %.0f bps for video; need at least %.2f MB",
			targetMB, durationSec, bps, MinTargetMB(durationSec))
	}
	if bps > math.MaxInt64 {
		return 0, failure.Validation(failure.ErrInvalidTarget, "bit rate overflows for %v MB", targetMB)
	}
	return int64(bps), nil
}

// MinTargetMB is the size below which PlanBitrate rejects durationSec.
func MinTargetMB(durationSec float64) float64 {
	return AudioReserveBps * durationSec / 8 / bytesPerMB
}

// SizeEstimate is the expected output size split by purpose.
type SizeEstimate struct {
	VideoBytes    int64
	ReservedBytes int64 // Audio reservation, unused because audio is dropped.
}

// TotalBytes is the size budget the estimate was planned against.
func (e SizeEstimate) TotalBytes() int64 { return e.VideoBytes + e.ReservedBytes }

// EstimateOutput returns the expected video payload for bps over
// durationSec, ignoring container overhead.
func EstimateOutput(bps int64, durationSec float64) SizeEstimate {
	if bps <= 0 || durationSec <= 0 {
		return SizeEstimate{}
	}
	return SizeEstimate{
		VideoBytes:    int64(math.Round(float64(bps) * durationSec / 8)),
		ReservedBytes: int64(math.Round(AudioReserveBps * durationSec / 8)),
	}
}
