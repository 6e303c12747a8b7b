package planner

import (
	"github.com/google/uuid"

	"github.com/backmassage/vidsqueeze/internal/config"
	"github.com/backmassage/vidsqueeze/internal/probe"
)

// BuildPlan produces a JobPlan from config and probe data. This is the
// decision point the pipeline calls for every file.
//
// Flow:
//  1. Require a video stream (first video stream in file order)
//  2. Plan the bit rate from the target size and the probed duration
//  3. Record mode, encoder and paths
func BuildPlan(cfg *config.Config, pr *probe.ProbeResult, inputPath, outputPath string) (*JobPlan, error) {
	v, err := pr.RequireVideo()
	if err != nil {
		return nil, err
	}

	bps, err := PlanBitrate(cfg.TargetSizeMB, pr.Format.Duration)
	if err != nil {
		return nil, err
	}

	return &JobPlan{
		ID:             uuid.NewString(),
		InputPath:      inputPath,
		OutputPath:     outputPath,
		Mode:           cfg.Mode,
		Encoder:        cfg.Encoder,
		TargetSizeMB:   cfg.TargetSizeMB,
		Duration:       pr.Format.Duration,
		BitRate:        bps,
		Estimate:       EstimateOutput(bps, pr.Format.Duration),
		Video:          *v,
		DroppedStreams: pr.DroppedStreams(),
		Overwrite:      cfg.Overwrite,
	}, nil
}

// ShortID returns the first block of the job id for log lines.
func (p *JobPlan) ShortID() string {
	if len(p.ID) >= 8 {
		return p.ID[:8]
	}
	return p.ID
}
