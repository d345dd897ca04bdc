package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/infracollect/xlunlock/internal/runner"
)

var validateCommand = &cli.Command{
	Name:  "validate",
	Usage: "Validate a job file",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "allowed-env",
			Usage: "Environment variables allowed in job configuration (can be repeated)",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "job",
			UsageText: "The job file to validate",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		jobFilename := command.StringArg("job")
		if jobFilename == "" {
			return fmt.Errorf("no job file provided")
		}

		logger = logger.With(zap.String("job_filename", jobFilename))
		logger.Debug("validating job file")

		job, err := loadJob(jobFilename, time.Now(), command.StringSlice("allowed-env"))
		if err != nil {
			fmt.Println(err)
			return fmt.Errorf("job file '%s' is invalid", jobFilename)
		}

		for _, source := range job.Spec.Sources {
			if _, err := runner.ResolveSourceSpec(source); err != nil {
				return err
			}
		}
		if _, err := runner.ResolveSinkSpec(job.Spec.Output); err != nil {
			return err
		}

		fmt.Printf("✓ Job file '%s' is valid (%d sources)\n", jobFilename, len(job.Spec.Sources))
		return nil
	},
}
