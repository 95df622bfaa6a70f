package main

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "sitesync",
	Short: "Deploy static site files to S3 with CloudFront invalidation",
	Long: `Sitesync uploads a local directory to an S3 bucket, skipping unchanged
files, optionally deleting remote files that no longer exist locally, and
invalidating the CloudFront cache for exactly the paths that changed.

Re-running against an already-synced bucket is a no-op.

Examples:
  sitesync sync ./public my-site-bucket
  sitesync sync ./public my-site-bucket/www --delete
  sitesync sync ./public my-site-bucket --dry-run
  SITESYNC_DISTRIBUTION=E2EXAMPLE sitesync sync ./public my-site-bucket --delete --json`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().String("region", "", "AWS region (default: credential chain)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))

	// SITESYNC_BUCKET and SITESYNC_DISTRIBUTION come from the environment in
	// CI; flags override them.
	viper.SetEnvPrefix("SITESYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		return err
	}
	return nil
}

// newLogger builds the CLI logger per verbosity flags.
func newLogger() *log.Logger {
	logger := log.New(os.Stderr)
	switch {
	case viper.GetBool("verbose"):
		logger.SetLevel(log.DebugLevel)
	case viper.GetBool("quiet"):
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}
