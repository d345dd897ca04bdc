package runner

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	v1 "github.com/infracollect/xlunlock/apis/v1"
	"github.com/infracollect/xlunlock/internal/engine"
)

var (
	defaultValidator = validator.New(validator.WithRequiredStructEnabled())
)

// ParseUnlockJob parses a YAML or JSON job file and validates it against the
// `validate` tags of v1.UnlockJob.
func ParseUnlockJob(data []byte) (v1.UnlockJob, error) {
	var job v1.UnlockJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return v1.UnlockJob{}, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	if err := ValidateUnlockJob(job); err != nil {
		return v1.UnlockJob{}, err
	}

	return job, nil
}

// ValidateUnlockJob checks job against the `validate` tags of v1.UnlockJob.
func ValidateUnlockJob(job v1.UnlockJob) error {
	if err := defaultValidator.Struct(job); err != nil {
		return fmt.Errorf("failed to validate job: %w", err)
	}
	return nil
}

// BuildVariables returns the variables available to ${VAR} references: the
// built-in JOB_* variables for date, plus every allowed environment variable.
// An allowed variable that is not set is an error.
func BuildVariables(job v1.UnlockJob, date time.Time, allowedEnv []string) (map[string]string, error) {
	date = date.UTC()
	variables := map[string]string{
		"JOB_NAME":         job.Metadata.Name,
		"JOB_DATE_ISO8601": date.Format(engine.ISO8601Basic),
		"JOB_DATE_RFC3339": date.Format(time.RFC3339),
	}

	var errs error
	for _, envName := range allowedEnv {
		val, ok := os.LookupEnv(envName)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("environment variable %q is not set", envName))
			continue
		}
		variables[envName] = val
	}

	if errs != nil {
		return nil, errs
	}

	return variables, nil
}
