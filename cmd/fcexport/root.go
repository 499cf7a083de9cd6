package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fcexport/internal/config"
	"fcexport/internal/service"
	"fcexport/internal/storage"
)

var (
	// Global flags
	cfgFile string
	verbose bool

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "fcexport",
	Short: "Export feature classes to CSV, JSON, or GeoJSON",
	Long: `fcexport reads a feature class from a geospatial source, reprojects
its geometry to EPSG:4326, and writes a portable interchange file.

Supported sources:
  - GeoPackage / SQLite files (.gpkg, .sqlite, .db)
  - PostGIS (postgres:// URLs)
  - MySQL spatial tables (mysql:// URLs)
  - MongoDB collections with GeoJSON documents (mongodb:// URLs)`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetOutput(os.Stderr)
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		} else {
			log.SetLevel(logrus.InfoLevel)
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ~/.fcexport/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func loadConfig() (config.Config, error) {
	return config.Load(cfgFile)
}

// newService builds an ExportService. withStore controls whether the
// job database is opened; ad-hoc commands run without it.
func newService(withStore bool) (*service.ExportService, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	var store *storage.ExportStore
	cleanup := func() {}
	if withStore {
		db, err := storage.New(cfg.DBPath())
		if err != nil {
			return nil, nil, fmt.Errorf("open job store: %w", err)
		}
		store = storage.NewExportStore(db)
		cleanup = func() { db.Close() }
	}

	return service.NewExportService(store, logEmitter{}, log), cleanup, nil
}
