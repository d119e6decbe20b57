package server

import "github.com/codepod-dev/codepod/internal/blob"

const DefaultAddr = "127.0.0.1:8080"

type Config struct {
	HTTP   HTTPConfig
	Blob   blob.S3Config
	DBPath string

	// DevMode swaps the S3 backend for an in-process blob store.
	DevMode bool
}

type HTTPConfig struct {
	Addr     string
	CertFile string
	KeyFile  string
}
