package planner

import (
	"github.com/backmassage/vidsqueeze/internal/config"
	"github.com/backmassage/vidsqueeze/internal/probe"
)

// JobPlan holds every decision for one transcode job. It is produced by
// BuildPlan before any output resource exists and consumed by the pipeline.
type JobPlan struct {
	ID string // Random job id used in log lines.

	InputPath  string
	OutputPath string

	Mode    config.Mode
	Encoder string // Encoder implementation name; unused in passthrough.

	TargetSizeMB float64
	Duration     float64 // Seconds, probed once.
	BitRate      int64   // Planned video bit rate, bits/sec.
	Estimate     SizeEstimate

	Video          probe.VideoStream // Selected input stream.
	DroppedStreams int
	Overwrite      bool
}

// Passthrough reports whether packets are copied instead of re-encoded.
func (p *JobPlan) Passthrough() bool { return p.Mode == config.ModePassthrough }
