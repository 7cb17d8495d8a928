package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/footprint/internal/config"
	"github.com/MeKo-Tech/footprint/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// skipValidation marks commands that must run with an invalid configuration.
const skipValidation = "skip-validation"

var (
	// Configuration loader of the current invocation.
	configLoader *config.Loader
	// Configuration of the current invocation.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// flagKeys maps command-line flags onto configuration keys. A flag only
// takes part when the running command defines it.
var flagKeys = map[string]string{
	"log-level":            "log_level",
	"verbose":              "verbose",
	"edge-threshold":       "refine.edge_threshold",
	"area-threshold":       "refine.area_threshold",
	"allow-color":          "input.allow_color",
	"format":               "output.format",
	"host":                 "server.host",
	"port":                 "server.port",
	"cors-origin":          "server.cors_origin",
	"max-upload-size":      "server.max_upload_mb",
	"timeout":              "server.timeout_sec",
	"shutdown-timeout":     "server.shutdown_timeout",
	"rate-limit-enabled":   "server.rate_limit_enabled",
	"requests-per-minute":  "server.requests_per_minute",
	"requests-per-hour":    "server.requests_per_hour",
	"max-requests-per-day": "server.max_requests_per_day",
	"max-data-per-day":     "server.max_data_per_day",
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "footprint",
	Short: "Building footprint mask refinement",
	Long: `footprint fuses a region mask and an edge mask produced by a segmentation
model into one clean binary building footprint mask.

The edge mask is thinned to one-pixel lines and combined with the region mask.
Holes are filled, boundary pixels lost to the fill are recovered from the
region outline, and connected regions whose area does not exceed the area
threshold are removed.

Examples:
  footprint refine --region region.png --edge edge.png --output mask.png
  footprint refine --region r.png --edge e.png --output m.webp --format json
  footprint serve --port 8080`,
	Version:           version.String(),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

// GetConfig returns the configuration resolved for the running command.
func GetConfig() *config.Config {
	if globalConfig == nil {
		cfg := config.DefaultConfig()
		return &cfg
	}
	return globalConfig
}

// ResetFlags restores every flag of the command tree to its default, so the
// root command can be executed repeatedly in one process.
func ResetFlags() {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		reset(c.PersistentFlags())
		reset(c.Flags())
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
	cfgFile = ""
	globalConfig = nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/footprint, /etc/footprint)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.SetVersionTemplate("footprint version {{.Version}}\n")
}

// setup loads the configuration for the running command on a fresh viper
// instance and installs the JSON logger.
func setup(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	configLoader = config.NewLoaderWith(v)
	var err error
	if _, skip := cmd.Annotations[skipValidation]; skip {
		globalConfig, err = configLoader.LoadWithFileWithoutValidation(cfgFile)
	} else {
		globalConfig, err = configLoader.LoadWithFile(cfgFile)
	}
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel(globalConfig),
	}))
	slog.SetDefault(logger)
	return nil
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.Verbose {
		return slog.LevelDebug
	}
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
