package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    *Config
		wantErr bool
	}{
		{
			name: "all flags",
			args: []string{"export",
				"-d", "db", "-o", "minio", "-u", "user", "-p", "password",
				"-b", "bucket", "-x", "exports", "-g", "us-west-1", "-e", "http://endpoint",
				"-r", "registry:5000", "-k", "-t", "60", "-i", "instance-b", "-l", "mirror.log", "-s", "/tmp/spool",
				"--model", "m1",
			},
			want: &Config{
				DatabaseDSN:      "db",
				BlobDriver:       "minio",
				S3RootUser:       "user",
				S3RootPassword:   "password",
				S3Bucket:         "bucket",
				S3ExportBucket:   "exports",
				S3Region:         "us-west-1",
				S3BaseEndpoint:   "http://endpoint",
				RegistryHost:     "registry:5000",
				RegistryInsecure: true,
				RegistryTimeout:  time.Minute,
				InstanceID:       "instance-b",
				LogFile:          "mirror.log",
				SpoolDir:         "/tmp/spool",
			},
		},
		{
			name:    "non numeric timeout",
			args:    []string{"-t", "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.want, cfg))
		})
	}
}
