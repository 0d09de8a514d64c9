package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/modelmirror/internal/flagx"
	"github.com/dmitrijs2005/modelmirror/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Pointer fields
// distinguish "absent" from "zero" so that only present keys override.
type JsonConfig struct {
	DatabaseDSN      *string         `json:"database_dsn"`
	BlobDriver       *string         `json:"blob_driver"`
	S3RootUser       *string         `json:"s3_root_user"`
	S3RootPassword   *string         `json:"s3_root_password"`
	S3Bucket         *string         `json:"s3_bucket"`
	S3ExportBucket   *string         `json:"s3_export_bucket"`
	S3Region         *string         `json:"s3_region"`
	S3BaseEndpoint   *string         `json:"s3_base_endpoint"`
	RegistryHost     *string         `json:"registry_host"`
	RegistryInsecure *bool           `json:"registry_insecure"`
	RegistryTimeout  *timex.Duration `json:"registry_timeout"`
	InstanceID       *string         `json:"instance_id"`
	LogFile          *string         `json:"log_file"`
	SpoolDir         *string         `json:"spool_dir"`
}

// parseJson overlays values from the JSON file named by -c/-config.
// Without that flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	jsonConfigFile := flagx.ConfigFile(args)
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config %s: %w", jsonConfigFile, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", jsonConfigFile, err)
	}

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.BlobDriver, c.BlobDriver)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3ExportBucket, c.S3ExportBucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.RegistryHost, c.RegistryHost)
	setString(&config.InstanceID, c.InstanceID)
	setString(&config.LogFile, c.LogFile)
	setString(&config.SpoolDir, c.SpoolDir)
	if c.RegistryInsecure != nil {
		config.RegistryInsecure = *c.RegistryInsecure
	}
	if c.RegistryTimeout != nil {
		config.RegistryTimeout = c.RegistryTimeout.Duration
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
