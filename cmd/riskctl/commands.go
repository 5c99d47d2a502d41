package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"token-risk-lab/internal/report"
)

// exitCollapsed is returned by check-collapse when the model is collapsed.
const exitCollapsed = 2

func classifyCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Classify one request file (.json or .yaml)",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("classify expects exactly one file")
			}
			in, err := readInput(cmd.Args().First())
			if err != nil {
				return err
			}
			out, err := in.classify(ctx, a.engine)
			if err != nil {
				return fmt.Errorf("classify: %w", err)
			}

			if a.format == formatMarkdown {
				_, err = io.WriteString(a.out, report.RenderVerdictMarkdown(in.mint(), out))
				return err
			}
			return writeJSON(a.out, out)
		},
	}
}

func batchCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "Classify every request file in a directory and print CSV",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Maximum files classified at once",
				Value: 8,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("batch expects exactly one directory")
			}
			files, err := listInputs(cmd.Args().First())
			if err != nil {
				return err
			}

			rows, err := a.runBatch(ctx, files, int(cmd.Int("concurrency")))
			if err != nil {
				return err
			}
			_, err = io.WriteString(a.out, report.RenderCSV(rows))
			return err
		},
	}
}

// runBatch classifies files with bounded concurrency. Per-file failures are
// reported in their row; only context cancellation aborts the run.
func (a *app) runBatch(ctx context.Context, files []string, concurrency int) ([]report.BatchRow, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	// Load once up front so workers never race on a cold engine.
	if err := a.engine.Init(ctx); err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}

	rows := make([]report.BatchRow, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows[i] = report.BatchRow{Source: path}

			in, err := readInput(path)
			if err != nil {
				rows[i].Err = err
				return nil
			}
			rows[i].Mint = in.mint()
			rows[i].Output, rows[i].Err = in.classify(gctx, a.engine)
			if rows[i].Err != nil {
				a.logger.Debug("batch item failed", zap.String("file", path), zap.Error(rows[i].Err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func modelCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "model",
		Usage: "Load the model and show the active scorer",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.engine.Init(ctx); err != nil {
				return err
			}
			return writeJSON(a.out, a.engine.ModelInfo())
		},
	}
}

func checkCollapseCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "check-collapse",
		Usage: "Probe the model for quantization collapse (exit code 2 when collapsed)",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := a.engine.Init(ctx); err != nil {
				return err
			}
			rep := a.engine.CollapseReport()
			info := a.engine.ModelInfo()

			if a.format == formatJSON {
				if err := writeJSON(a.out, map[string]interface{}{"model": info, "report": rep}); err != nil {
					return err
				}
			} else if _, err := io.WriteString(a.out, report.RenderCollapseMarkdown(info, rep)); err != nil {
				return err
			}

			if rep != nil && rep.Collapsed {
				return cli.Exit("quantization collapse detected", exitCollapsed)
			}
			return nil
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
