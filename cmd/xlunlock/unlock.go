package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	v1 "github.com/infracollect/xlunlock/apis/v1"
	"github.com/infracollect/xlunlock/internal/runner"
	"github.com/infracollect/xlunlock/internal/transcode"
)

// workbookExtensions are the extensions accepted by the unlock command.
var workbookExtensions = []string{".xlsx", ".xlsm"}

var unlockCommand = &cli.Command{
	Name:  "unlock",
	Usage: "Remove protection from a single workbook",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "encoding-policy",
			Value: string(transcode.EncodingPolicySkip),
			Usage: "What to do with a protected part that is not valid UTF-8 (skip, fail)",
			Action: func(ctx context.Context, command *cli.Command, s string) error {
				_, err := transcode.ParseEncodingPolicy(s)
				return err
			},
		},
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "Overwrite the destination if it exists",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "source",
			UsageText: "The workbook to unlock (.xlsx or .xlsm)",
		},
		&cli.StringArg{
			Name:      "destination",
			UsageText: "The output file, or an existing directory",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)
		start := time.Now()

		source := command.StringArg("source")
		destination := command.StringArg("destination")
		if source == "" || destination == "" {
			return fmt.Errorf("source and destination are required")
		}

		if err := checkWorkbook(source); err != nil {
			return err
		}

		outDir, outName, err := resolveDestination(source, destination)
		if err != nil {
			return err
		}

		job := unlockJob(source, outDir, outName, command.String("encoding-policy"), command.Bool("force"))
		if err := runner.ValidateUnlockJob(job); err != nil {
			return err
		}

		registry := runner.NewRegistry(logger.Named("registry"), afero.NewOsFs(), afero.NewOsFs(), os.Stdout)
		r, err := runner.New(ctx, logger.Named("runner"), registry, job, start)
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		results, err := r.Run(ctx)
		if err != nil {
			return fmt.Errorf("failed to unlock %s: %w", source, err)
		}

		if isInteractive(ctx) {
			printResults(results)
		}
		logger.Info("process finished", zap.Duration("elapsed", time.Since(start)))
		fmt.Printf("Process Finished (%s)\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

// checkWorkbook verifies that path is an existing file with a workbook extension.
func checkWorkbook(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !lo.Contains(workbookExtensions, ext) {
		return fmt.Errorf("unsupported file extension %q for %s (expected %s)", filepath.Ext(path), path, strings.Join(workbookExtensions, ", "))
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("source %s is a directory", path)
	}
	return nil
}

// resolveDestination splits destination into the output directory and file
// name. An existing directory keeps the source's base name; otherwise the
// destination's parent directory must exist.
func resolveDestination(source, destination string) (dir, name string, err error) {
	info, err := os.Stat(destination)
	switch {
	case err == nil && info.IsDir():
		return destination, filepath.Base(source), nil
	case err == nil:
		return filepath.Dir(destination), filepath.Base(destination), nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", "", fmt.Errorf("failed to read destination: %w", err)
	}

	parent := filepath.Dir(destination)
	parentInfo, err := os.Stat(parent)
	if err != nil {
		return "", "", fmt.Errorf("destination directory %s does not exist: %w", parent, err)
	}
	if !parentInfo.IsDir() {
		return "", "", fmt.Errorf("destination parent %s is not a directory", parent)
	}

	return parent, filepath.Base(destination), nil
}

// unlockJob describes a single-workbook unlock as a job so that it runs
// through the same staging, sniffing and atomic write as batch jobs.
func unlockJob(source, outDir, outName, encodingPolicy string, force bool) v1.UnlockJob {
	return v1.UnlockJob{
		Kind:     v1.UnlockJobKind,
		Metadata: v1.Metadata{Name: strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))},
		Spec: v1.UnlockJobSpec{
			Policy: &v1.PolicySpec{Encoding: encodingPolicy},
			Sources: []v1.Source{{
				ID:     "workbook",
				Output: outName,
				File:   &v1.FileSource{Path: source},
			}},
			Output: &v1.OutputSpec{
				Sink: &v1.SinkSpec{
					Filesystem: &v1.FilesystemSinkSpec{Path: &outDir, Overwrite: force},
				},
			},
		},
	}
}
