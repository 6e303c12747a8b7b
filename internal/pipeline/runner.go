package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/backmassage/vidsqueeze/internal/config"
	"github.com/backmassage/vidsqueeze/internal/display"
	"github.com/backmassage/vidsqueeze/internal/failure"
	"github.com/backmassage/vidsqueeze/internal/logging"
	"github.com/backmassage/vidsqueeze/internal/media"
	"github.com/backmassage/vidsqueeze/internal/metrics"
	"github.com/backmassage/vidsqueeze/internal/planner"
	"github.com/backmassage/vidsqueeze/internal/probe"
)

const minFileSize = 1000

// Runner runs jobs against a media backend. Metrics is optional.
type Runner struct {
	Backend media.Backend
	Log     *logging.Logger
	Metrics *metrics.Metrics
}

// JobResult is the outcome of one job that got as far as planning.
type JobResult struct {
	Plan       *planner.JobPlan
	Transcode  Result
	InputSize  int64
	OutputSize int64 // Bytes on disk after the trailer.
	Elapsed    time.Duration
	DryRun     bool
}

// Run processes the single job described by cfg.InputPath, cfg.OutputPath
// and cfg.TargetSizeMB.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*JobResult, error) {
	if err := config.ValidateFilePaths(cfg.InputPath, cfg.OutputPath); err != nil {
		return nil, err
	}
	return r.runJob(ctx, cfg, cfg.InputPath, cfg.OutputPath, r.Log)
}

// runJob is probe → plan → transcode for one file. The duration is probed
// once and handed to the planner.
func (r *Runner) runJob(ctx context.Context, cfg *config.Config, input, output string, log *logging.Logger) (jr *JobResult, err error) {
	start := time.Now()
	var plan *planner.JobPlan
	defer func() {
		r.observe(plan, jr, err, time.Since(start))
	}()

	pr, err := probe.Probe(ctx, r.Backend, input)
	if err != nil {
		if probe.IsNotExist(err) {
			log.Error("File not found: %s", input)
		}
		return nil, err
	}
	if log.Verbose() {
		log.Debug("Probe result:\n%s", pr.Dump())
	}

	plan, err = planner.BuildPlan(cfg, pr, input, output)
	if err != nil {
		return nil, err
	}
	log = log.With("job", plan.ShortID())
	jr = &JobResult{Plan: plan, InputSize: pr.Format.Size}

	codec := plan.Video.Codec
	if codec == "" {
		codec = "unknown"
	}
	log.Info("  Video: %s | %s | %s | %s", pr.Resolution(), codec,
		display.FormatBitrate(pr.VideoBitRate()), display.FormatDuration(plan.Duration))
	if plan.DroppedStreams > 0 {
		log.Info("  Dropping %d non-video stream(s)", plan.DroppedStreams)
	}
	log.Info("  Target: %.2f MB -> video %s (+%s reserved for audio)",
		plan.TargetSizeMB, display.FormatBitrate(plan.BitRate), display.FormatBitrate(planner.AudioReserveBps))

	if cfg.DryRun {
		jr.DryRun = true
		if plan.Passthrough() {
			log.Success("[DRY] Would copy to %s", output)
		} else {
			log.Success("[DRY] Would encode with %s to %s (about %s)", plan.Encoder, output,
				display.FormatBytes(plan.Estimate.TotalBytes()))
		}
		return jr, nil
	}

	res, err := Transcode(ctx, r.Backend, plan, log)
	jr.Transcode = res
	jr.Elapsed = time.Since(start)
	if err != nil {
		return jr, err
	}
	if fi, statErr := os.Stat(output); statErr == nil {
		jr.OutputSize = fi.Size()
	}

	target := int64(plan.TargetSizeMB * 1024 * 1024)
	log.Success("Wrote %d packets (%d dropped) in %ds: %s, %s of target",
		res.PacketsWritten, res.PacketsDropped, int(jr.Elapsed.Seconds()),
		display.FormatBytes(jr.OutputSize), display.FormatPercent(jr.OutputSize, target))
	return jr, nil
}

func (r *Runner) observe(plan *planner.JobPlan, jr *JobResult, err error, elapsed time.Duration) {
	job := metrics.Job{Result: metrics.ResultSuccess, Elapsed: elapsed}
	if plan != nil {
		job.PlannedBitrate = plan.BitRate
	}
	if jr != nil {
		job.PacketsWritten = jr.Transcode.PacketsWritten
		job.PacketsDropped = jr.Transcode.PacketsDropped
		job.OutputBytes = jr.OutputSize
		if jr.DryRun {
			job.Result = metrics.ResultDryRun
		}
	}
	if err != nil {
		job.Result = metrics.ResultFailed
	}
	r.Metrics.ObserveJob(job)
}

// OutputPathFor maps a discovered input to <outputDir>/<rel dir>/<stem>.<container>.
func OutputPathFor(inputDir, outputDir, path string, container config.Container) (string, error) {
	rel, err := filepath.Rel(inputDir, path)
	if err != nil {
		return "", err
	}
	if rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("%s is not inside %s", path, inputDir)
	}
	stem := strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.Join(outputDir, stem+"."+string(container)), nil
}

type batchItem struct {
	n      int
	input  string
	output string
}

// RunBatch discovers media under cfg.InputDir and runs one job per file
// with cfg.Jobs workers. The returned error aggregates every failed job.
func (r *Runner) RunBatch(ctx context.Context, cfg *config.Config) (RunStats, error) {
	var stats RunStats

	inAbs, err := filepath.Abs(cfg.InputDir)
	if err != nil {
		return stats, failure.WithPath(failure.KindValidation, "resolve input directory", cfg.InputDir, err)
	}
	outAbs, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return stats, failure.WithPath(failure.KindValidation, "resolve output directory", cfg.OutputDir, err)
	}
	if err := cfg.ValidatePaths(inAbs, outAbs); err != nil {
		return stats, err
	}

	files, err := Discover(inAbs)
	if err != nil {
		return stats, failure.WithPath(failure.KindIO, "discover", cfg.InputDir, err)
	}
	stats.Total = len(files)
	logBatchHeader(cfg, r.Log, &stats)

	items := make(chan batchItem)
	var (
		mu   sync.Mutex
		errs *multierror.Error
		wg   sync.WaitGroup
	)
	workers := cfg.Jobs
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range items {
				outcome, err := r.processFile(ctx, cfg, it, stats.Total)
				mu.Lock()
				stats.record(outcome)
				if err != nil {
					errs = multierror.Append(errs, err)
				}
				mu.Unlock()
			}
		}()
	}

	interrupted := false
	for i, path := range files {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		output, err := OutputPathFor(inAbs, outAbs, path, cfg.OutputContainer)
		if err != nil {
			mu.Lock()
			stats.Failed++
			errs = multierror.Append(errs, failure.WithPath(failure.KindIO, "map output", path, err))
			mu.Unlock()
			continue
		}
		select {
		case items <- batchItem{n: i + 1, input: path, output: output}:
		case <-ctx.Done():
			interrupted = true
		}
		if interrupted {
			break
		}
	}
	close(items)
	wg.Wait()

	if interrupted {
		r.Log.Warn("Interrupted")
		errs = multierror.Append(errs, failure.New(failure.KindCanceled, "batch", ctx.Err()))
	}
	logSummary(cfg, r.Log, &stats)
	return stats, errs.ErrorOrNil()
}

// jobOutcome feeds RunStats.record.
type jobOutcome struct {
	status     jobStatus
	inputSize  int64
	outputSize int64
}

type jobStatus int

const (
	statusFailed jobStatus = iota
	statusEncoded
	statusSkipped
)

// processFile validates one discovered file, skips existing outputs unless
// --force, and runs the job.
func (r *Runner) processFile(ctx context.Context, cfg *config.Config, it batchItem, total int) (jobOutcome, error) {
	log := r.Log
	log.Info("[%d/%d] %s", it.n, total, filepath.Base(it.input))

	fi, err := os.Stat(it.input)
	if err != nil {
		log.Error("File not found: %s", it.input)
		return jobOutcome{}, failure.WithPath(failure.KindIO, "open input", it.input,
			fmt.Errorf("%w: %w", failure.ErrOpenInput, err))
	}
	if fi.Size() < minFileSize {
		log.Error("File too small (possibly corrupt): %s", it.input)
		return jobOutcome{}, failure.WithPath(failure.KindIO, "open input", it.input,
			fmt.Errorf("%w: file too small", failure.ErrOpenInput))
	}

	if !cfg.Overwrite {
		if _, err := os.Stat(it.output); err == nil {
			log.Warn("Skip (exists): %s", filepath.Base(it.output))
			r.Metrics.ObserveJob(metrics.Job{Result: metrics.ResultSkipped})
			return jobOutcome{status: statusSkipped}, nil
		}
	}

	jr, err := r.runJob(ctx, cfg, it.input, it.output, log)
	if err != nil {
		if errors.Is(err, failure.ErrNoVideoStream) {
			log.Warn("No video stream found, skipping")
			return jobOutcome{status: statusSkipped}, nil
		}
		log.Error("%s: %v", filepath.Base(it.input), err)
		return jobOutcome{}, err
	}
	out := jobOutcome{status: statusEncoded}
	if !jr.DryRun {
		out.inputSize, out.outputSize = fi.Size(), jr.OutputSize
	}
	return out, nil
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	log.Info("Found %d files", stats.Total)
	if cfg.Mode == config.ModePassthrough {
		log.Info("Mode: passthrough (packets copied, bit rate advisory)")
	} else {
		log.Info("Mode: transcode with %s", cfg.Encoder)
	}
	log.Info("Target: %.2f MB per file, container %s, %d job(s)",
		cfg.TargetSizeMB, strings.ToUpper(string(cfg.OutputContainer)), cfg.Jobs)
	if cfg.Overwrite {
		log.Info("Existing outputs: overwrite")
	}
}

func logSummary(cfg *config.Config, log *logging.Logger, stats *RunStats) {
	log.Info("==============================")
	log.Info("Done: %d encoded, %d skipped, %d failed", stats.Encoded, stats.Skipped, stats.Failed)
	log.Info("Summary report:")
	log.Info("  Total files processed: %d", stats.Current)

	if cfg.DryRun {
		log.Info("  Total space saved: n/a (dry run)")
		return
	}

	saved := stats.SpaceSaved()
	if saved >= 0 {
		log.Success("  Total space saved: %s (input %s -> output %s)",
			display.FormatBytes(saved),
			display.FormatBytes(stats.TotalInputBytes),
			display.FormatBytes(stats.TotalOutputBytes))
	} else {
		log.Warn("  Total space saved: -%s (overall output is larger)",
			display.FormatBytes(-saved))
	}
}
