// Command comicimport seeds the catalog from a ComicRack library
// database (ComicDb.xml): metadata for every book whose archive exists
// under the library root, plus read marks for a configured user. Meant
// to run once, right after the catalog database is created; it
// overwrites metadata for every file it finds.
//
// Usage: comicimport <path to ComicDb.xml>
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/comicserve/comicserve/internal/adapter/driven/archive"
	sqliteadapter "github.com/comicserve/comicserve/internal/adapter/driven/sqlite"
	"github.com/comicserve/comicserve/internal/application"
	"github.com/comicserve/comicserve/internal/config"
	"github.com/comicserve/comicserve/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) != 2 {
		return fmt.Errorf("usage: %s <path to ComicDb.xml>", os.Args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	issueStore := sqliteadapter.NewIssueRepo(db)
	userStore := sqliteadapter.NewUserRepo(db)

	ctx := context.Background()

	// Read marks can only be seeded for an account that already exists;
	// the importer never provisions one.
	readUserID := driven.NoUser
	if cfg.ImportReadUser != "" {
		readUserID, err = userStore.Lookup(ctx, cfg.ImportReadUser)
		if err != nil {
			return err
		}
		if readUserID == driven.NoUser {
			return fmt.Errorf("read user %q does not exist", cfg.ImportReadUser)
		}
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		return fmt.Errorf("open comicrack database: %w", err)
	}
	defer f.Close()

	svc := application.NewImportService(
		issueStore, userStore, archive.NewReader(),
		cfg.LibraryPath, cfg.ImportStripPrefix, readUserID,
	)

	return svc.Run(ctx, f)
}
