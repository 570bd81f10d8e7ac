// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	LibraryPath  string
	DBPath       string
	ListenAddr   string
	TagAuthority string
	RescanCron   string

	// ComicRack import settings, read only by the comicimport tool.
	ImportStripPrefix string
	ImportReadUser    string
}

// Load reads configuration from environment variables and returns a
// validated Config. COMICSERVE_LIBRARY_PATH is required and must name an
// existing directory. Optional variables with defaults:
// COMICSERVE_DB_PATH (comicserve.db), COMICSERVE_LISTEN_ADDR
// (127.0.0.1:8080), COMICSERVE_TAG_AUTHORITY (comicserve.local).
// COMICSERVE_RESCAN_CRON is an optional cron expression; when set, the
// library is rescanned on that schedule in addition to the startup pass.
// COMICSERVE_IMPORT_STRIP_PREFIX and COMICSERVE_IMPORT_READ_USER apply
// only to the comicimport tool: the path prefix to strip from ComicRack
// file records, and the username whose read progress is seeded.
func Load() (*Config, error) {
	libraryPath := os.Getenv("COMICSERVE_LIBRARY_PATH")
	if libraryPath == "" {
		return nil, fmt.Errorf("COMICSERVE_LIBRARY_PATH is required")
	}
	info, err := os.Stat(libraryPath)
	if err != nil {
		return nil, fmt.Errorf("COMICSERVE_LIBRARY_PATH: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("COMICSERVE_LIBRARY_PATH %q is not a directory", libraryPath)
	}

	dbPath := "comicserve.db"
	if v, ok := os.LookupEnv("COMICSERVE_DB_PATH"); ok {
		dbPath = v
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("COMICSERVE_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	tagAuthority := "comicserve.local"
	if v, ok := os.LookupEnv("COMICSERVE_TAG_AUTHORITY"); ok {
		tagAuthority = v
	}

	return &Config{
		LibraryPath:       libraryPath,
		DBPath:            dbPath,
		ListenAddr:        listenAddr,
		TagAuthority:      tagAuthority,
		RescanCron:        os.Getenv("COMICSERVE_RESCAN_CRON"),
		ImportStripPrefix: os.Getenv("COMICSERVE_IMPORT_STRIP_PREFIX"),
		ImportReadUser:    os.Getenv("COMICSERVE_IMPORT_READ_USER"),
	}, nil
}
