package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/infracollect/xlunlock/internal/runner"
)

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Unlock every workbook of a job file",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "allowed-env",
			Usage: "Environment variables allowed in job configuration (can be repeated)",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "job",
			UsageText: "The job file to run, or - for standard input",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)
		start := time.Now()

		jobFilename := command.StringArg("job")
		if jobFilename == "" {
			return fmt.Errorf("no job file provided")
		}

		job, err := loadJob(jobFilename, start, command.StringSlice("allowed-env"))
		if err != nil {
			return err
		}

		logger = logger.With(zap.String("job_name", job.Metadata.Name))

		registry := runner.NewRegistry(logger.Named("registry"), afero.NewOsFs(), afero.NewOsFs(), os.Stdout)
		r, err := runner.New(ctx, logger.Named("runner"), registry, job, start)
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		results, err := r.Run(ctx)
		if err != nil {
			return fmt.Errorf("failed to run job: %w", err)
		}

		logger.Info("process finished", zap.Int("workbooks", len(results)), zap.Duration("elapsed", time.Since(start)))

		// stdout carries the workbook itself when streaming
		if streamsToStdout(job) {
			return nil
		}

		if isInteractive(ctx) {
			printResults(results)
		}
		fmt.Printf("Process Finished (%s)\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}
