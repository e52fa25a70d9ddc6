package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/screencap/internal/backend"
	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/bryanchriswhite/screencap/internal/config"
	"github.com/bryanchriswhite/screencap/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "screencap",
		Short: "screencap - list and capture monitors and windows",
		Long: `screencap enumerates the monitors and top-level windows of the current
desktop session and captures them to image files.

Features:
  • Monitor geometry, primary flag and DPI scale
  • Capturable window listing with cloaked, tool and system windows filtered out
  • Region, monitor and window capture with a render fallback chain
  • PNG, JPEG and BMP output
  • REST and websocket API for integration
  • Persistent configuration`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/screencap/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("output-dir", "", "directory for captured images (default is ./output)")
	rootCmd.PersistentFlags().String("image-format", "", "image format (png, jpeg or bmp)")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("output_dir", rootCmd.PersistentFlags().Lookup("output-dir"))
	viper.BindPFlag("image_format", rootCmd.PersistentFlags().Lookup("image-format"))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig opens the config file and applies any global flags that were
// given on the command line.
func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	for _, key := range []string{"log_level", "output_dir", "image_format"} {
		if v := viper.GetString(key); v != "" {
			if err := configMgr.Set(key, v); err != nil {
				return nil, err
			}
		}
	}
	return configMgr, nil
}

func setupLogging(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	return nil
}

// openEngine connects to the native backend with the filter policy and
// limits from cfg.
func openEngine(cfg *config.Config) (*capture.Engine, error) {
	return backend.Open(
		capture.WithFilterPolicy(capture.NewFilterPolicy(cfg.Filter.ToolWindowAllowClasses, cfg.Filter.DenyClasses)),
		capture.WithMaxRecords(cfg.Limits.MaxRecords),
		capture.WithMaxBufferBytes(cfg.Limits.MaxBufferBytes),
	)
}
