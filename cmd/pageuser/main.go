package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	pageuser "github.com/BouoniManar/Exportation-Template"
	"github.com/BouoniManar/Exportation-Template/export"
)

// version is set at build time via ldflags.
var version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:     "pageuser",
	Short:   "Template-builder backend with a static-site export pipeline",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pageuser.LoadConfig(configFile)
		if err != nil {
			return err
		}
		if secret := os.Getenv("PAGEUSER_SESSION_SECRET"); secret != "" {
			cfg.SessionSecret = secret
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		app := pageuser.New(cfg, pageuser.WithLogger(logger))
		defer app.Close()
		return app.Start()
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <config.json>",
	Short: "Generate a site archive from a configuration file without starting the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pageuser.LoadConfig(configFile)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var envelope map[string]any
		if err := json.Unmarshal(data, &envelope); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		exporter := export.New(cfg.Export, logger)
		zipPath, report, err := exporter.Generate(envelope)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s (images: %d added, %d reused, %d errored)\n",
			zipPath, report.ImagesAdded, report.ImagesReused, report.ImagesErrored)
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "pageuser.yaml", "Path to the YAML configuration file")
	rootCmd.AddCommand(serveCmd, exportCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
