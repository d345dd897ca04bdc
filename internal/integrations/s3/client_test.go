package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"

	v1 "github.com/infracollect/xlunlock/apis/v1"
)

func TestConfigFromSpec(t *testing.T) {
	region := "eu-west-1"
	endpoint := "http://localhost:9000"

	tests := []struct {
		name           string
		region         *string
		endpoint       *string
		forcePathStyle bool
		creds          *v1.S3Credentials
		want           Config
	}{
		{
			name: "empty",
			want: Config{},
		},
		{
			name:           "all fields",
			region:         &region,
			endpoint:       &endpoint,
			forcePathStyle: true,
			creds:          &v1.S3Credentials{AccessKeyID: "AKIA", SecretAccessKey: "secret"},
			want: Config{
				Region:          "eu-west-1",
				Endpoint:        "http://localhost:9000",
				AccessKeyID:     "AKIA",
				SecretAccessKey: "secret",
				ForcePathStyle:  true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigFromSpec(tt.region, tt.endpoint, tt.forcePathStyle, tt.creds))
		})
	}
}
