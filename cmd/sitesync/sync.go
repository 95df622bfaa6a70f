package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forgeops/sitesync"
	"github.com/forgeops/sitesync/errors"
	"github.com/forgeops/sitesync/synctypes"
)

var syncCmd = &cobra.Command{
	Use:   "sync <local-dir> [bucket[/prefix]]",
	Short: "Synchronize a local directory with a bucket prefix",
	Long: `Sync uploads new and changed files from <local-dir> to the bucket,
optionally deletes remote objects that no longer exist locally, and issues a
CloudFront invalidation covering the changed paths.

The bucket argument may be omitted when SITESYNC_BUCKET is set. A prefix may
be appended after a slash: my-bucket/www.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Bool("delete", false, "delete remote objects absent locally")
	syncCmd.Flags().Bool("dry-run", false, "print the plan without executing it")
	syncCmd.Flags().BoolP("json", "j", false, "print a machine-readable summary")
	syncCmd.Flags().IntP("concurrency", "c", 8, "upload worker count")
	syncCmd.Flags().String("distribution", "", "CloudFront distribution ID to invalidate")
	syncCmd.Flags().StringSliceP("exclude", "e", nil, "exclude patterns (repeatable)")
	syncCmd.Flags().StringSliceP("include", "i", nil, "include patterns (repeatable)")
	syncCmd.Flags().String("cache-control", "", "Cache-Control header for uploads")
	syncCmd.Flags().Int("invalidation-threshold", 0, "changed-path count above which /* is invalidated instead")

	_ = viper.BindPFlag("distribution", syncCmd.Flags().Lookup("distribution"))
	_ = viper.BindPFlag("concurrency", syncCmd.Flags().Lookup("concurrency"))

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	localDir := args[0]

	var bucketArg string
	if len(args) == 2 {
		bucketArg = args[1]
	} else {
		bucketArg = viper.GetString("bucket")
	}
	if bucketArg == "" {
		return fmt.Errorf("no bucket given and SITESYNC_BUCKET not set")
	}
	bucket, prefix, _ := strings.Cut(bucketArg, "/")

	logger := newLogger()

	client, err := sitesync.New(
		sitesync.WithRegion(viper.GetString("region")),
		sitesync.WithConcurrency(viper.GetInt("concurrency")),
		sitesync.WithDistribution(viper.GetString("distribution")),
		sitesync.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	opts := buildSyncOptions(cmd)
	result, err := client.Sync(cmd.Context(), localDir, bucket, prefix, opts...)
	if err != nil && !errors.IsPartialSync(err) {
		return err
	}

	if ok, _ := cmd.Flags().GetBool("json"); ok {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encodeErr := enc.Encode(result); encodeErr != nil {
			return encodeErr
		}
	} else {
		printSummary(result)
	}

	// A partial failure still printed its summary; the non-zero exit is what
	// halts a CI pipeline.
	return err
}

// buildSyncOptions converts CLI flags into sync options.
func buildSyncOptions(cmd *cobra.Command) []synctypes.SyncOption {
	var opts []synctypes.SyncOption

	if ok, _ := cmd.Flags().GetBool("delete"); ok {
		opts = append(opts, sitesync.WithSyncDelete(true))
	}
	if ok, _ := cmd.Flags().GetBool("dry-run"); ok {
		opts = append(opts, sitesync.WithSyncDryRun(true))
	}
	if cc, _ := cmd.Flags().GetString("cache-control"); cc != "" {
		opts = append(opts, sitesync.WithSyncCacheControl(cc))
	}
	if n, _ := cmd.Flags().GetInt("invalidation-threshold"); n > 0 {
		opts = append(opts, sitesync.WithSyncInvalidationThreshold(n))
	}
	includes, _ := cmd.Flags().GetStringSlice("include")
	for _, p := range includes {
		opts = append(opts, sitesync.WithSyncIncludePattern(p))
	}
	excludes, _ := cmd.Flags().GetStringSlice("exclude")
	for _, p := range excludes {
		opts = append(opts, sitesync.WithSyncExcludePattern(p))
	}

	return opts
}

// printSummary writes the human-readable run report.
func printSummary(result *synctypes.SyncResult) {
	if result.DryRun {
		fmt.Println("dry run: nothing executed")
	}
	fmt.Printf("uploaded %d (%s), deleted %d, unchanged %d\n",
		result.Uploaded, humanize.Bytes(uint64(result.BytesUploaded)), result.Deleted, result.Skipped)
	if result.Invalidation != nil {
		fmt.Printf("invalidation %s covering %d paths\n",
			result.Invalidation.ID, len(result.Invalidation.Paths))
	}
	if result.Failed > 0 {
		fmt.Fprintf(os.Stderr, "%d keys failed:\n", result.Failed)
		for _, key := range result.FailedKeys {
			fmt.Fprintf(os.Stderr, "  %s\n", key)
		}
	}
}
