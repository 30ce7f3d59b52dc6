package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/waynecorp/project-registry/internal/storage"
	"github.com/waynecorp/project-registry/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the starter registry data",
	Long:  `Create the registry tables if needed and insert the starter projects and users. Safe to run repeatedly; existing rows are left alone.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		logger.Init(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)
		lg := logger.LoggerWrapper()

		db, sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		store := storage.New(db, cfg.Security.BCryptCost, lg)
		if err := store.Initialize(context.Background()); err != nil {
			log.Fatalf("failed to seed: %v", err)
		}

		projects, users, err := store.Counts()
		if err != nil {
			log.Fatalf("failed to count rows: %v", err)
		}
		fmt.Printf("Registry ready: %d projects, %d users\n", projects, users)
	},
}
