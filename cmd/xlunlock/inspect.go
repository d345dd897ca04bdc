package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/infracollect/xlunlock/internal/transcode"
)

var inspectCommand = &cli.Command{
	Name:  "inspect",
	Usage: "List the parts of a workbook and whether they are protected",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "source",
			UsageText: "The workbook to inspect",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		source := command.StringArg("source")
		if source == "" {
			return fmt.Errorf("no source provided")
		}

		f, err := os.Open(source)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", source, err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", source, err)
		}

		if err := transcode.Sniff(f); err != nil {
			return err
		}

		transcoder := transcode.New(logger.Named("transcoder"))
		reports, err := transcoder.Inspect(f, info.Size())
		if err != nil {
			return err
		}

		protected := printReports(reports)
		logger.Debug("inspected workbook", zap.String("source", source), zap.Int("entries", len(reports)), zap.Int("protected", protected))
		fmt.Printf("%d of %d parts protected (%s)\n", protected, len(reports), strings.Join(transcoder.Rules().Tags(), ", "))
		return nil
	},
}
