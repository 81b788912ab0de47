package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/framealloc/internal/config"
	"github.com/joshuapare/framealloc/internal/logger"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	configPath string

	// conf is loaded on first use by loadConfig.
	conf *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "framectl",
	Short: "Exercise and inspect the frame allocator",
	Long: `framectl drives the frame-scoped pool allocator outside of a renderer.
It can simulate frames of draw batches, run random workloads against a single
page and print the configuration assembled from defaults, a YAML file and
FRAMEALLOC_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := loadConfig()
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration once and sets up logging from it.
func loadConfig() (*config.Config, error) {
	if conf != nil {
		return conf, nil
	}

	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := c.LogLevel
	if verbose {
		level = "debug"
	}
	if err := logger.Init(logger.Options{Level: level, Out: os.Stderr}); err != nil {
		return nil, err
	}
	if quiet {
		logger.Discard()
	}

	conf = c
	return conf, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
