package v1

const UnlockJobKind = "UnlockJob"

// UnlockJob describes a batch of workbooks to unlock and where to write them.
type UnlockJob struct {
	Kind     string        `yaml:"kind" json:"kind" validate:"required,eq=UnlockJob"`
	Metadata Metadata      `yaml:"metadata" json:"metadata"`
	Spec     UnlockJobSpec `yaml:"spec" json:"spec"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

type UnlockJobSpec struct {
	Policy  *PolicySpec `yaml:"policy,omitempty" json:"policy,omitempty"`
	Sources []Source    `yaml:"sources" json:"sources" validate:"min=1,dive"`
	Output  *OutputSpec `yaml:"output,omitempty" json:"output,omitempty"`
}

// PolicySpec controls how the transcoder treats recoverable entry failures.
type PolicySpec struct {
	// Encoding is what happens to a targeted entry that is not valid UTF-8:
	// "skip" drops the entry with a warning, "fail" aborts the workbook.
	Encoding string `yaml:"encoding,omitempty" json:"encoding,omitempty" validate:"omitempty,oneof=skip fail"`
}

// Source is one workbook to unlock. Exactly one of File, HTTP or S3 must be set.
type Source struct {
	ID string `yaml:"id" json:"id" validate:"required"`
	// Output is the name of the unlocked workbook in the sink (default: the source's base name).
	Output string      `yaml:"output,omitempty" json:"output,omitempty" template:""`
	File   *FileSource `yaml:"file,omitempty" json:"file,omitempty"`
	HTTP   *HTTPSource `yaml:"http,omitempty" json:"http,omitempty"`
	S3     *S3Source   `yaml:"s3,omitempty" json:"s3,omitempty"`
}

type FileSource struct {
	Path string `yaml:"path" json:"path" validate:"required" template:""`
}

type HTTPSource struct {
	URL     string            `yaml:"url" json:"url" validate:"required,url" template:""`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	// Timeout in seconds.
	Timeout  *int `yaml:"timeout,omitempty" json:"timeout,omitempty" validate:"omitempty,gt=0"`
	Insecure bool `yaml:"insecure,omitempty" json:"insecure,omitempty"`
}

type S3Source struct {
	Bucket         string         `yaml:"bucket" json:"bucket" validate:"required" template:""`
	Key            string         `yaml:"key" json:"key" validate:"required" template:""`
	Region         *string        `yaml:"region,omitempty" json:"region,omitempty" template:""`
	Endpoint       *string        `yaml:"endpoint,omitempty" json:"endpoint,omitempty" template:""`
	ForcePathStyle bool           `yaml:"force_path_style,omitempty" json:"force_path_style,omitempty"`
	Credentials    *S3Credentials `yaml:"credentials,omitempty" json:"credentials,omitempty"`
}

type S3Credentials struct {
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id" validate:"required" template:""`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key" validate:"required" template:""`
}

// OutputSpec configures where unlocked workbooks are written.
type OutputSpec struct {
	// Archive bundles every workbook into a single tar file.
	Archive *ArchiveSpec `yaml:"archive,omitempty" json:"archive,omitempty"`
	// Sink is the destination (default: filesystem in the working directory).
	Sink *SinkSpec `yaml:"sink,omitempty" json:"sink,omitempty"`
}

type ArchiveSpec struct {
	// Name of the bundle (default: the job name). The extension is appended when missing.
	Name        string `yaml:"name,omitempty" json:"name,omitempty" template:""`
	Compression string `yaml:"compression,omitempty" json:"compression,omitempty" validate:"omitempty,oneof=gzip zstd none"`
}

// SinkSpec configures the destination. At most one of the fields may be set.
type SinkSpec struct {
	Stdout     *StdoutSinkSpec     `yaml:"stdout,omitempty" json:"stdout,omitempty"`
	Filesystem *FilesystemSinkSpec `yaml:"filesystem,omitempty" json:"filesystem,omitempty"`
	S3         *S3SinkSpec         `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// StdoutSinkSpec streams a single workbook to standard output.
type StdoutSinkSpec struct{}

type FilesystemSinkSpec struct {
	Path      *string `yaml:"path,omitempty" json:"path,omitempty" template:""`
	Prefix    *string `yaml:"prefix,omitempty" json:"prefix,omitempty" template:""`
	Overwrite bool    `yaml:"overwrite,omitempty" json:"overwrite,omitempty"`
}

type S3SinkSpec struct {
	Bucket         string         `yaml:"bucket" json:"bucket" validate:"required" template:""`
	Prefix         *string        `yaml:"prefix,omitempty" json:"prefix,omitempty" template:""`
	Region         *string        `yaml:"region,omitempty" json:"region,omitempty" template:""`
	Endpoint       *string        `yaml:"endpoint,omitempty" json:"endpoint,omitempty" template:""`
	ForcePathStyle bool           `yaml:"force_path_style,omitempty" json:"force_path_style,omitempty"`
	Credentials    *S3Credentials `yaml:"credentials,omitempty" json:"credentials,omitempty"`
}
