package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dgnsrekt/plurk-comet/internal/api"
	"github.com/dgnsrekt/plurk-comet/internal/config"
	"github.com/dgnsrekt/plurk-comet/internal/credential"
)

var (
	cfgFile string
	keyFile string
	verbose bool
	logger  *zap.Logger
	cfg     *config.Config
)

func setupLogger(verbose bool, logCfg *config.LoggingConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if verbose {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.DisableStacktrace = true
	}

	// Set log level from config
	if logCfg != nil && logCfg.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(logCfg.Level)); err == nil {
			zapConfig.Level = zap.NewAtomicLevelAt(level)
		}
	}
	if verbose {
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	// Add file output if enabled
	if logCfg != nil && logCfg.Enabled {
		if err := os.MkdirAll(logCfg.Directory, 0755); err != nil {
			return nil, fmt.Errorf("creating logs directory: %w", err)
		}
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		logFile := filepath.Join(logCfg.Directory, fmt.Sprintf("plurk_%s.log", timestamp))
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, logFile)
	}

	return zapConfig.Build()
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "plurk",
		Short:         "Read Plurk from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip config loading for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				// Use basic logger for help commands
				var err error
				logger, err = setupLogger(verbose, nil)
				return err
			}

			// Load config
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return err
			}

			// Setup logger with config
			logger, err = setupLogger(verbose, &cfg.Logging)
			if err != nil {
				return err
			}

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("PLURK_CONFIG"), "config file path (or set PLURK_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&keyFile, "key-file", "k", "", "OAuth key file (default: keys.file from config, then the user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(meCmd())
	rootCmd.AddCommand(timelineCmd())
	rootCmd.AddCommand(cometCmd())

	// Setup signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// keyPath resolves the key file: flag, then config, then the default.
func keyPath() string {
	if keyFile != "" {
		return keyFile
	}
	if cfg != nil && cfg.Keys.File != "" {
		return cfg.Keys.File
	}
	return credential.DefaultPath()
}

// authorizedKeys loads the key file and runs the PIN flow first when it has
// no access token yet.
func authorizedKeys(cmd *cobra.Command) (*credential.Keys, error) {
	path := keyPath()
	keys, err := credential.Load(path)
	if err != nil {
		return nil, err
	}
	if keys.HasToken() {
		return keys, nil
	}

	logger.Info("key file has no access token, starting authorization", zap.String("path", path))
	if err := authorize(cmd, keys); err != nil {
		return nil, err
	}
	if err := keys.Save(path); err != nil {
		return nil, err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Saved access token to %s\n", path)
	return keys, nil
}

func newAPIClient(keys *credential.Keys) *api.HTTPClient {
	return api.NewClient(
		cfg.API.BaseURL,
		keys.Credentials(),
		cfg.API.RatePerSecond,
		cfg.API.Timeout(),
		cfg.API.RetryInterval(),
		cfg.API.RetryCount,
		logger,
	)
}

// newCometHTTPClient is the unsigned client for the comet host. Request
// deadlines come from the poller and knocker.
func newCometHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Transport: gzhttp.Transport(transport)}
}
