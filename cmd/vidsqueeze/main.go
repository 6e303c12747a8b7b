// Command vidsqueeze re-encodes the first video stream of a file so the
// result lands near a target size in megabytes.
//
// It reads flags, an optional config file and positional arguments (or
// prompts for them), validates everything before touching any file, and
// runs a single job, a batch over a directory tree, or a system check.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backmassage/vidsqueeze/internal/check"
	"github.com/backmassage/vidsqueeze/internal/config"
	"github.com/backmassage/vidsqueeze/internal/display"
	"github.com/backmassage/vidsqueeze/internal/failure"
	"github.com/backmassage/vidsqueeze/internal/libav"
	"github.com/backmassage/vidsqueeze/internal/logging"
	"github.com/backmassage/vidsqueeze/internal/metrics"
	"github.com/backmassage/vidsqueeze/internal/pipeline"
	"github.com/backmassage/vidsqueeze/internal/prompt"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	a := &app{cfg: config.DefaultConfig(), stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	root := a.rootCommand()
	root.SetArgs(os.Args[1:])

	err := root.Execute()
	if a.log != nil {
		if err != nil {
			a.log.Error("%v", err)
		}
		a.finish()
	} else if err != nil {
		// Bootstrap failure: the logger doesn't exist yet.
		fmt.Fprintf(a.stderr, "vidsqueeze: %v\n", err)
	}
	return failure.ExitCode(err)
}

// app carries the state shared by the commands of one process run.
type app struct {
	cfg   config.Config
	flags *config.Flags

	stdin          *os.File
	stdout, stderr io.Writer

	log     *logging.Logger
	metrics *metrics.Metrics
	stop    context.CancelFunc
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "vidsqueeze [flags] [input output size_mb]",
		Short:         "Re-encode a video to fit a target file size",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		Args:          validationArgs(cobra.MaximumNArgs(3)),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
		RunE: a.runSingle,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return failure.New(failure.KindValidation, "flags", err)
	})
	a.flags = config.BindFlags(root.PersistentFlags(), &a.cfg)

	batch := &cobra.Command{
		Use:   "batch [flags] input_dir output_dir",
		Short: "Re-encode every media file under a directory",
		Args:  validationArgs(cobra.ExactArgs(2)),
		RunE:  a.runBatch,
	}
	config.BindBatchFlags(batch.Flags(), &a.cfg)

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Report muxer, encoder and decoder availability",
		Args:  validationArgs(cobra.NoArgs),
		RunE:  a.runCheck,
	}

	root.AddCommand(batch, checkCmd)
	return root
}

func validationArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return failure.New(failure.KindValidation, "arguments", err)
		}
		return nil
	}
}

// loadConfig applies the config file under the explicit flags, then the
// negated flags.
func (a *app) loadConfig(cmd *cobra.Command) error {
	if a.cfg.ConfigFile != "" {
		if err := config.LoadFile(a.cfg.ConfigFile, &a.cfg, cmd.Flags().Changed); err != nil {
			return err
		}
	}
	a.flags.Apply(&a.cfg)
	return nil
}

// begin validates the config, then brings up the logger, the banner, the
// libav log bridge, metrics and signal handling. It returns the context
// that SIGINT/SIGTERM cancel.
func (a *app) begin(validate bool) (context.Context, error) {
	if validate {
		if err := a.cfg.Validate(); err != nil {
			return nil, err
		}
	}

	log, err := logging.NewLogger(&a.cfg)
	if err != nil {
		return nil, failure.WithPath(failure.KindIO, "open log", a.cfg.LogFile, err)
	}
	a.log = log
	display.PrintBanner(a.stdout, version)
	libav.SetLogger(log, a.cfg.Verbose)
	if a.cfg.MetricsFile != "" {
		a.metrics = metrics.New()
	}

	// Cancel on SIGINT/SIGTERM so the pipeline stops between packets and
	// removes the partial output.
	ctx, cancel := context.WithCancel(context.Background())
	a.stop = cancel
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Received interrupt, stopping…")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, nil
}

func (a *app) finish() {
	if a.stop != nil {
		a.stop()
	}
	if err := a.metrics.WriteFile(a.cfg.MetricsFile); err != nil {
		a.log.Warn("Could not write metrics to %s: %v", a.cfg.MetricsFile, err)
	}
	libav.SetLogger(nil, false)
	a.log.Close()
}

func (a *app) runSingle(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		a.cfg.InputPath = args[0]
	}
	if len(args) > 1 {
		a.cfg.OutputPath = args[1]
	}
	if len(args) > 2 {
		v, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return failure.Validation(failure.ErrInvalidTarget, "%q is not a number", args[2])
		}
		a.cfg.TargetSizeMB = v
	}
	if !a.cfg.NoPrompt {
		if err := a.prompter().Fill(&a.cfg); err != nil {
			return err
		}
	}

	ctx, err := a.begin(true)
	if err != nil {
		return err
	}
	a.log.Info("=== vidsqueeze v%s (%s) ===", version, commit)
	a.log.Info("In:  %s", a.cfg.InputPath)
	a.log.Info("Out: %s", a.cfg.OutputPath)
	if a.cfg.DryRun {
		a.log.Warn("DRY RUN: no files will be written")
	}

	backend := libav.New()
	if err := check.CheckDeps(&a.cfg, backend); err != nil {
		return err
	}
	r := &pipeline.Runner{Backend: backend, Log: a.log, Metrics: a.metrics}
	_, err = r.Run(ctx, &a.cfg)
	return err
}

// prompter asks on stderr when stdin is a terminal and reads silently
// from piped input otherwise.
func (a *app) prompter() *prompt.Prompter {
	var w io.Writer = io.Discard
	if prompt.Interactive(a.stdin) {
		w = a.stderr
	}
	return prompt.New(a.stdin, w)
}

func (a *app) runBatch(cmd *cobra.Command, args []string) error {
	a.cfg.Batch = true
	a.cfg.InputDir = config.NormalizeDirArg(args[0])
	a.cfg.OutputDir = config.NormalizeDirArg(args[1])

	ctx, err := a.begin(true)
	if err != nil {
		return err
	}

	// Resolve and validate paths: input must exist, output is created if
	// needed, and output must not be inside input.
	inputAbs, err := absPath(a.cfg.InputDir)
	if err != nil {
		return failure.WithPath(failure.KindIO, "open input directory", a.cfg.InputDir, err)
	}
	if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
		return failure.WithPath(failure.KindIO, "create output directory", a.cfg.OutputDir, err)
	}
	outputAbs, err := absPath(a.cfg.OutputDir)
	if err != nil {
		return failure.WithPath(failure.KindIO, "resolve output directory", a.cfg.OutputDir, err)
	}
	if err := a.cfg.ValidatePaths(inputAbs, outputAbs); err != nil {
		a.log.Error("Choose an output path outside: %s", a.cfg.InputDir)
		return err
	}
	a.cfg.InputDir, a.cfg.OutputDir = inputAbs, outputAbs

	a.log.Info("=== vidsqueeze v%s (%s) ===", version, commit)
	a.log.Info("In:  %s", a.cfg.InputDir)
	a.log.Info("Out: %s", a.cfg.OutputDir)
	if a.cfg.DryRun {
		a.log.Warn("DRY RUN: no files will be written")
	}

	backend := libav.New()
	if err := check.CheckDeps(&a.cfg, backend); err != nil {
		return err
	}
	r := &pipeline.Runner{Backend: backend, Log: a.log, Metrics: a.metrics}
	_, err = r.RunBatch(ctx, &a.cfg)
	return err
}

func (a *app) runCheck(cmd *cobra.Command, _ []string) error {
	if _, err := a.begin(false); err != nil {
		return err
	}
	if !check.RunCheck(&a.cfg, libav.New(), a.log) {
		return failure.New(failure.KindCapability, "check", errors.New("required muxer or encoder missing"))
	}
	return nil
}

// absPath returns the absolute, symlink-resolved path for safe comparison
// of input vs output directory hierarchies.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
