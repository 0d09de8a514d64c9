package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/dmitrijs2005/modelmirror/internal/flagx"
)

var valueFlags = []string{"-d", "-o", "-u", "-p", "-b", "-x", "-g", "-e", "-r", "-t", "-i", "-l", "-s"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-o string   blob driver ("s3" or "minio")
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   files bucket
//	-x string   export bucket
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-r string   registry host (e.g., "registry:5000")
//	-k          registry speaks plain HTTP
//	-t int      registry timeout, seconds
//	-i string   instance identity used as exporter
//	-l string   log file (rotated)
//	-s string   spool directory for export staging
//
// Only these flags are picked out of args, so the caller may mix them with
// its own subcommands and flags.
func parseFlags(config *Config, args []string) error {
	filtered := flagx.FilterArgs(args, valueFlags, "-k")

	fs := flag.NewFlagSet("config", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BlobDriver, "o", config.BlobDriver, "blob driver: s3 or minio")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "files bucket")
	fs.StringVar(&config.S3ExportBucket, "x", config.S3ExportBucket, "export bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.RegistryHost, "r", config.RegistryHost, "registry host")
	fs.BoolVar(&config.RegistryInsecure, "k", config.RegistryInsecure, "registry over plain HTTP")
	fs.StringVar(&config.InstanceID, "i", config.InstanceID, "instance identity")
	fs.StringVar(&config.LogFile, "l", config.LogFile, "log file")
	fs.StringVar(&config.SpoolDir, "s", config.SpoolDir, "spool directory")

	registryTimeout := fs.Int("t", int(config.RegistryTimeout.Seconds()), "registry timeout (in seconds)")

	if err := fs.Parse(filtered); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	config.RegistryTimeout = time.Duration(*registryTimeout) * time.Second
	return nil
}
