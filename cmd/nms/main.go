// Package main is the nms command: it decodes raw detector output stored on
// disk and prints the boxes that survive non-maximum suppression.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-nms/models/model"
	"github.com/nvr-ai/go-nms/pipeline"
	"github.com/nvr-ai/go-nms/util"
)

const (
	// Flags.
	flagConfig    = "config"
	flagInput     = "input"
	flagThreshold = "threshold"
	flagWorkers   = "workers"
	flagSentinel  = "truncate-at-sentinel"
	flagDebug     = "debug"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "nms",
		Usage:     "decode raw detector boxes and suppress overlapping duplicates",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "process a directory of frame-<N>.json samples",
				UsageText: "nms run --input <dir> [--config <file>] [--threshold <t>]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagInput,
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "directory of frame-<N>.json samples",
					},
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "YAML config file",
					},
					&cli.Float64Flag{
						Name:    flagThreshold,
						Aliases: []string{"t"},
						Usage:   "IoU threshold in [0,1], overrides the config",
					},
					&cli.IntFlag{
						Name:  flagWorkers,
						Usage: "samples processed concurrently, overrides the config",
					},
					&cli.BoolFlag{
						Name:  flagSentinel,
						Usage: "drop boxes from the first non-positive score onward",
					},
				},
				Action: runAction,
			},
		},
	}
}

// newLogger writes JSON at info level to w, or console output at debug level
// when debug is set. Logs never share the report writer.
func newLogger(debug bool, w io.Writer) *zap.Logger {
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	level := zapcore.InfoLevel
	if debug {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		level = zapcore.DebugLevel
	}
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), level))
}

func runAction(c *cli.Context) error {
	logger := newLogger(c.Bool(flagDebug), c.App.ErrWriter)
	//nolint:errcheck
	defer logger.Sync()

	var err error
	cfg := model.DefaultConfig()
	if path := c.String(flagConfig); path != "" {
		if cfg, err = model.LoadConfig(path); err != nil {
			return err
		}
	}
	if c.IsSet(flagThreshold) {
		cfg.NMS.Threshold = float32(c.Float64(flagThreshold))
	}
	if c.IsSet(flagWorkers) {
		cfg.NMS.Workers = c.Int(flagWorkers)
	}
	if c.Bool(flagSentinel) {
		cfg.Filter.TruncateAtSentinel = true
	}

	samples, err := util.LoadDirectorySamples(c.String(flagInput))
	if err != nil {
		return errors.Wrap(err, "loading samples")
	}

	p, err := pipeline.New(cfg, pipeline.WithLogger(logger.Sugar()))
	if err != nil {
		return err
	}

	logger.Info("processing samples",
		zap.Int("samples", len(samples)),
		zap.Float32("threshold", cfg.NMS.Threshold),
		zap.Int("workers", p.Workers()),
	)

	results, err := p.Process(c.Context, samples)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, renderResults(results))

	if err := pipeline.Errors(results); err != nil {
		logger.Warn("some samples were skipped", zap.Error(err))
	}

	return nil
}
