package main

import (
	"context"
	"fmt"
	"os"

	"facecam/internal/config"
	"facecam/internal/logger"
	"facecam/internal/repository/sqlite"
	"facecam/internal/service/storage"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var imagesDir, dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Record existing face images in the database",
		Long: `Scans the image directory and adds a database record for every image file
that has none yet, so frames saved before the database existed show up in the gallery.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if imagesDir != "" {
				cfg.ImageDirectory = imagesDir
			}
			if dbPath != "" {
				cfg.DatabasePath = dbPath
			}

			fmt.Printf("Migrating images from %s to database %s\n", cfg.ImageDirectory, cfg.DatabasePath)

			log, err := logger.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			db, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			frames := storage.NewFrameStore(cfg, log, sqlite.NewImageRepository(db), sqlite.NewDetectionRepository(db))
			inserted, skipped, err := frames.Backfill()
			if err != nil {
				return err
			}

			if inserted == 0 {
				fmt.Printf("No new images found (%d already recorded)\n", skipped)
				return nil
			}
			fmt.Printf("✅ Successfully migrated %d images (%d skipped)\n", inserted, skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&imagesDir, "images", "", "Directory containing images (default from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database path (default from config)")

	return cmd
}

func main() {
	if err := fang.Execute(context.Background(), newMigrateCmd()); err != nil {
		os.Exit(1)
	}
}
