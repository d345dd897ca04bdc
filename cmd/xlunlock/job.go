package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	v1 "github.com/infracollect/xlunlock/apis/v1"
	"github.com/infracollect/xlunlock/internal/runner"
)

// readJobFile reads a job file, or standard input when filename is "-".
func readJobFile(filename string) ([]byte, error) {
	if filename == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(filepath.Clean(filename))
}

// loadJob parses and validates a job file and expands its templates with
// the variables available at date.
func loadJob(filename string, date time.Time, allowedEnv []string) (v1.UnlockJob, error) {
	data, err := readJobFile(filename)
	if err != nil {
		return v1.UnlockJob{}, fmt.Errorf("failed to read job file '%s': %w", filename, err)
	}

	job, err := runner.ParseUnlockJob(data)
	if err != nil {
		return v1.UnlockJob{}, formatValidationError(err)
	}

	variables, err := runner.BuildVariables(job, date, allowedEnv)
	if err != nil {
		return v1.UnlockJob{}, fmt.Errorf("failed to build variables: %w", err)
	}

	if err := runner.ExpandTemplates(&job, variables); err != nil {
		return v1.UnlockJob{}, fmt.Errorf("failed to expand templates: %w", err)
	}

	return job, nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("job file has %d validation error(s):", len(validationErrs)))
		for _, fe := range validationErrs {
			sb.WriteString(fmt.Sprintf("\n  • %s: failed '%s' validation", fe.Namespace(), fe.Tag()))
			if fe.Param() != "" {
				sb.WriteString(fmt.Sprintf(" (param: %s)", fe.Param()))
			}
		}
		return errors.New(sb.String())
	}
	return err
}

func streamsToStdout(job v1.UnlockJob) bool {
	return job.Spec.Output != nil && job.Spec.Output.Sink != nil && job.Spec.Output.Sink.Stdout != nil
}
