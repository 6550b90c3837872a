package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rezonia/pohoda-xml/internal/config"
	"github.com/rezonia/pohoda-xml/internal/logger"
	"github.com/rezonia/pohoda-xml/internal/settings"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	logLevel     string
	dbPath       string
	settingsFile string

	appConfig *config.App
)

var rootCmd = &cobra.Command{
	Use:   "pohoda-xml",
	Short: "Transform Pohoda XML exports",
	Long: `pohoda-xml rewrites Pohoda accounting XML documents.

Supports:
  - Invoices: combo expansion from the shop product feed, price
    normalization, store injection, EUR bank account headers
  - Receipts: conversion of stock receipts (prijemka) to a SHOP stock feed

Settings come from a YAML file (--settings) or from the settings
database (--db, env: DATABASE_PATH).

Examples:
  # Transform an invoice export
  pohoda-xml transform faktury.xml -o out/

  # Convert a stock receipt
  pohoda-xml receipt prijemka.xml > shop.xml

  # Configure the bank account used for EUR invoices
  pohoda-xml settings set bank_id=2 account_no=2900000000 bank_code=2010

  # Start the HTTP API
  pohoda-xml serve --address :8080`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command. SIGINT and SIGTERM cancel its context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Settings database path (env: DATABASE_PATH)")
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "YAML settings file, used instead of the database")
}

// initConfig loads the environment and lets flags override it
func initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	appConfig = cfg
	return nil
}

func newLogger(format logger.Format) *slog.Logger {
	return logger.New(appConfig.LogLevel, format, os.Stderr)
}

// openSettings opens the settings database and wraps it in a service
func openSettings(l *slog.Logger) (*settings.Store, *settings.Service, error) {
	store, err := settings.Open(appConfig.DatabasePath, l)
	if err != nil {
		return nil, nil, err
	}
	return store, settings.NewService(store, settings.DefaultCacheTTL, l), nil
}

// loadSettings returns the transform settings from --settings or the database
func loadSettings(ctx context.Context, l *slog.Logger) (*config.Settings, error) {
	if settingsFile != "" {
		printVerbose("Using settings file %s\n", settingsFile)
		return config.LoadSettingsFile(settingsFile)
	}

	store, service, err := openSettings(l)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	printVerbose("Using settings database %s\n", appConfig.DatabasePath)
	return service.Settings(ctx)
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err != nil {
				return nil, fmt.Errorf("file not found: %s", arg)
			}
			matches = []string{arg}
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			if !info.IsDir() {
				// named files are taken as is, globs only pick .xml
				if match == arg || isXMLFile(match) {
					files = append(files, match)
				}
				continue
			}
			err = filepath.Walk(match, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isXMLFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	return files, nil
}

func isXMLFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
