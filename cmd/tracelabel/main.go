// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command tracelabel runs the reasoning-trace labeling service.
//
// The server scans a directory tree of puzzle analysis files, caches
// their metadata, and serves a JSON API for reviewing generated
// reasoning traces and recording human labels.
//
// Usage:
//
//	tracelabel serve --traces-dir data/analysis
//	tracelabel cache rebuild --traces-dir data/analysis
//	tracelabel stats
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gridbench/tracelabel/pkg/logging"
	"github.com/gridbench/tracelabel/services/labeler/config"
)

var (
	cfg        config.Config
	configPath string
	closeLogs  = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "tracelabel",
	Short: "Human labeling service for puzzle reasoning traces",
	Long: `tracelabel serves a JSON API for reviewing machine-generated
reasoning traces over visual puzzle datasets and recording human
verdicts (correct / incorrect / skipped) with failure-mode tags.`,
	SilenceUsage: true,
}

func main() {
	err := rootCmd.Execute()
	_ = closeLogs()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().String("traces-dir", "", "Override the analysis directory")
	rootCmd.PersistentFlags().String("labels-file", "", "Override the label store path")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		closeFn, err := logging.Setup(logging.Config{
			Level:  cfg.LogLevel,
			LogDir: cfg.LogDir,
		})
		if err != nil {
			return err
		}
		closeLogs = closeFn

		if dir, _ := cmd.Flags().GetString("traces-dir"); dir != "" {
			cfg.TracesDir = dir
		}
		if path, _ := cmd.Flags().GetString("labels-file"); path != "" {
			cfg.LabelsFile = path
		}
		return nil
	}
}
