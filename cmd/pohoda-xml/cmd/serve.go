package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/pohoda-xml/internal/logger"
	"github.com/rezonia/pohoda-xml/internal/processor"
	"github.com/rezonia/pohoda-xml/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for transforming documents.

The API provides endpoints for:
  - POST /api/v1/invoices/transform - Transform an invoice (xml_file upload or raw body)
  - POST /api/v1/receipts/convert   - Convert a stock receipt to the SHOP feed
  - POST /api/v1/detect             - Report the document kind and item counts
  - GET  /api/v1/settings           - List transform settings
  - PUT  /api/v1/settings           - Update transform settings
  - GET  /health                    - Health check

Examples:
  # Start server on the address from ADDRESS (default :8080)
  pohoda-xml serve

  # Start on a custom port with a separate database
  pohoda-xml serve --address :9000 --db /var/lib/pohoda/settings.db

  # Start in debug mode
  pohoda-xml serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (env: ADDRESS)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode (env: DEBUG)")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 5*time.Minute, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serverAddr != "" {
		appConfig.Address = serverAddr
	}
	if serverDebug {
		appConfig.Debug = true
	}

	l := newLogger(logger.FormatJSON)

	store, service, err := openSettings(l)
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline := processor.NewPipeline(
		processor.WithFeedTimeout(appConfig.FeedTimeout),
		processor.WithLogger(l),
	)

	srv := server.NewServer(&server.Config{
		Address:        appConfig.Address,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		MaxUploadSize:  appConfig.MaxUploadSizeBytes,
		RateLimitRPS:   appConfig.RateLimitRPS,
		RateLimitBurst: appConfig.RateLimitBurst,
		Debug:          appConfig.Debug,
	}, pipeline, service, l)

	l.Info("starting server",
		"address", appConfig.Address,
		"database", appConfig.DatabasePath,
		"rate_limit_rps", appConfig.RateLimitRPS,
	)
	if err := srv.Run(cmd.Context()); err != nil {
		return err
	}
	l.Info("server stopped")
	return nil
}
