package cmd

import (
	"fmt"

	"classportal/config"
	"classportal/db"
	"classportal/storage"

	"github.com/spf13/cobra"
)

// portal bundles what every subcommand opens.
type portal struct {
	cfg      *config.Config
	database *db.Database
	files    *storage.Storage
}

// openPortal loads the configuration from the command flags and opens the store.
func openPortal(cmd *cobra.Command) (*portal, error) {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	config.ConfigureLogging(cfg)

	store, err := db.OpenStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}
	files := storage.New(cfg.UploadsDir, cfg.MaxUploadMB)
	return &portal{cfg: cfg, database: db.NewDatabase(cfg, store, files), files: files}, nil
}

func (p *portal) Close() error {
	return p.database.Close()
}
