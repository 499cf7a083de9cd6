package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var previewFlags struct {
	source string
	layer  string
	rows   int
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show a layer's schema and first records without exporting",
	RunE:  runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().StringVar(&previewFlags.source, "source", "", "source location or configured source name")
	previewCmd.Flags().StringVar(&previewFlags.layer, "layer", "", "feature class name")
	previewCmd.Flags().IntVar(&previewFlags.rows, "rows", 10, "maximum records to read")
}

func runPreview(cmd *cobra.Command, args []string) error {
	if previewFlags.source == "" || previewFlags.layer == "" {
		return fmt.Errorf("--source and --layer are required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, cleanup, err := newService(false)
	if err != nil {
		return err
	}
	defer cleanup()

	records, schema, err := svc.Preview(context.Background(),
		cfg.Resolve(previewFlags.source), previewFlags.layer, previewFlags.rows)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"schema":  schema,
		"records": records,
	})
}
