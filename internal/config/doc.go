// Package config loads BuildTrack configuration.
//
// Values are layered in this order, later sources winning:
//
//  1. Default()
//  2. a YAML file (config.yaml, configs/config.yaml) when present
//  3. BUILDTRACK_* environment variables
//
// Environment variables mirror the struct nesting:
//
//	BUILDTRACK_SERVER_PORT=8080
//	BUILDTRACK_DATABASE_DRIVER=postgres
//	BUILDTRACK_DATABASE_DSN=postgres://...
//	BUILDTRACK_AUTH_JWT_SECRET=...
//	BUILDTRACK_STORAGE_PHOTO_SOURCE=s3
//	BUILDTRACK_EXPORT_CHART_RENDERER=browser
//
// Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	paths, err := config.ResolvePaths(cfg.Paths)
package config
