// Package main provides riskctl, a command-line client for the token risk classifier:
// - classify: score one request file
// - batch: score every request file in a directory
// - model: show the active scorer
// - check-collapse: probe a model for quantization collapse
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"token-risk-lab/internal/classifier"
	"token-risk-lab/internal/config"
	"token-risk-lab/internal/model"
	"token-risk-lab/internal/observability"
)

const (
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

var (
	version = "v0.0.1-default"

	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to YAML config file (optional)",
		Sources: cli.EnvVars("RISK_CONFIG"),
	}

	modelFlag = &cli.StringFlag{
		Name:  "model",
		Usage: "Path to the model artifact (overrides config)",
	}

	ruleBasedFlag = &cli.BoolFlag{
		Name:  "rule-based",
		Usage: "Skip the model and use the rule-based scorer",
	}

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [json, markdown]",
		Value: formatJSON,
	}
)

// app holds what every command needs once flags are parsed.
type app struct {
	engine *classifier.Engine
	logger *zap.Logger
	out    io.Writer
	format string
}

func main() {
	a := &app{out: os.Stdout}
	if err := newCommand(a).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "riskctl: %v\n", err)
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			os.Exit(exit.ExitCode())
		}
		os.Exit(1)
	}
}

func newCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:    "riskctl",
		Version: version,
		Usage:   "Classify Solana tokens by rug-pull risk",
		Flags: []cli.Flag{
			configFlag,
			modelFlag,
			ruleBasedFlag,
			debugFlag,
			formatFlag,
		},
		Commands: []*cli.Command{
			classifyCmd(a),
			batchCmd(a),
			modelCmd(a),
			checkCollapseCmd(a),
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, a.setup(cmd)
		},
		// main maps ExitCoder errors to exit codes itself.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		After: func(ctx context.Context, cmd *cli.Command) error {
			if a.engine != nil {
				a.engine.Close()
			}
			if a.logger != nil {
				_ = a.logger.Sync()
			}
			return nil
		},
	}
}

func (a *app) setup(cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String(configFlag.Name))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if cmd.Bool(debugFlag.Name) {
		level = "debug"
	}
	a.logger, err = observability.NewLogger(level, "console")
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	a.format = cmd.String(formatFlag.Name)
	if a.format != formatJSON && a.format != formatMarkdown {
		return fmt.Errorf("unknown format %q", a.format)
	}

	path := cfg.Model.Path
	fallbacks := cfg.Model.FallbackPaths
	if p := cmd.String(modelFlag.Name); p != "" {
		path = p
		fallbacks = []string{}
	}

	a.engine = classifier.New(classifier.Options{
		Loader: model.NewLoader(model.LoaderOptions{
			Path:          path,
			FallbackPaths: fallbacks,
			Logger:        a.logger,
		}),
		DisableModel: cfg.Model.Disabled || cmd.Bool(ruleBasedFlag.Name),
		Logger:       a.logger,
	})
	return nil
}
