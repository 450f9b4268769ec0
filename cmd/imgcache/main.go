package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	internalcache "github.com/shmocker/imgcache/internal/cache"
	"github.com/shmocker/imgcache/internal/config"
	"github.com/shmocker/imgcache/pkg/cache"
	"github.com/shmocker/imgcache/pkg/image"
)

var (
	// Version information (set by build)
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	// Global flags
	cfgFile string

	// Loaded in PersistentPreRunE
	cfg *config.Config
)

// errNotCached is returned by get on a miss so the process exits non-zero.
var errNotCached = errors.New("not cached")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imgcache",
	Short: "Inspect and maintain the container image build cache",
	Long: `imgcache manages the on-disk cache that lets a build pipeline skip
rebuilding a container image it has already produced.

Each cache key maps to one JSON record in the cache directory holding the
image digest and name.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadWith(viper.GetViper(), cfgFile)
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}
		cfg = loaded

		log.SetHandler(cli.New(os.Stderr))
		log.SetLevel(cfg.Level())
		return nil
	},
}

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print the cached image for a key",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetCommand,
}

// putCmd represents the put command
var putCmd = &cobra.Command{
	Use:   "put KEY",
	Short: "Record a built image under a key",
	Args:  cobra.ExactArgs(1),
	RunE:  runPutCommand,
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List cached keys",
	Args:    cobra.NoArgs,
	RunE:    runListCommand,
}

// rmCmd represents the rm command
var rmCmd = &cobra.Command{
	Use:   "rm KEY...",
	Short: "Remove cached records",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRmCommand,
}

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every cached record can be decoded",
	Args:  cobra.NoArgs,
	RunE:  runVerifyCommand,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "imgcache version: %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "Git commit: %s\n", commit)
		fmt.Fprintf(cmd.OutOrStdout(), "Build time: %s\n", buildTime)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.imgcache.yaml)")
	rootCmd.PersistentFlags().String("cache-dir", "", "cache root directory (its parent must exist)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (text, json, yaml)")

	putCmd.Flags().String("digest", "", "image content digest")
	putCmd.Flags().String("name", "", "image name")
	_ = putCmd.MarkFlagRequired("digest")
	_ = putCmd.MarkFlagRequired("name")

	verifyCmd.Flags().Bool("strict", false, "also require digests to be valid OCI digests")

	// Add subcommands
	rootCmd.AddCommand(getCmd, putCmd, listCmd, rmCmd, verifyCmd, versionCmd)

	// Bind flags to viper
	_ = viper.BindPFlag("cache_dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
}

// openStore opens the configured cache root. Failure here is fatal for every
// command.
func openStore() (*image.Store, error) {
	store, err := image.NewCache(cfg.CacheDir)
	if err != nil {
		return nil, errors.Wrap(err, "cache unavailable")
	}
	return store, nil
}

func runGetCommand(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	manager := internalcache.New(store)
	manager.CorruptAsMiss = cfg.CorruptAsMiss

	key := cache.Key(args[0])
	img, ok, err := manager.Lookup(cmd.Context(), key)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(errNotCached, "key %s", key)
	}

	return writeImage(cmd.OutOrStdout(), cfg.Output, img)
}

func runPutCommand(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	digest, _ := cmd.Flags().GetString("digest")
	name, _ := cmd.Flags().GetString("name")

	key := cache.Key(args[0])
	img := image.CachedImage{Digest: digest, Name: name}
	if err := internalcache.New(store).Record(cmd.Context(), key, img); err != nil {
		return err
	}

	log.WithField("key", key).Infof("cached %s", img.Name)
	return nil
}

func runListCommand(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	keys, err := store.Keys(cmd.Context())
	if err != nil {
		return err
	}
	return writeKeys(cmd.OutOrStdout(), cfg.Output, keys)
}

func runRmCommand(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	for _, arg := range args {
		if err := store.Delete(cmd.Context(), cache.Key(arg)); err != nil {
			return err
		}
		log.WithField("key", arg).Debug("removed cache record")
	}
	return nil
}

func runVerifyCommand(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	strict, _ := cmd.Flags().GetBool("strict")
	report, err := internalcache.Verify(cmd.Context(), store, internalcache.VerifyOptions{
		Concurrency: cfg.Concurrency,
		Strict:      strict,
	})
	if err != nil {
		return err
	}

	if err := writeReport(cmd.OutOrStdout(), cfg.Output, report); err != nil {
		return err
	}
	if failed := report.Failed(); len(failed) > 0 {
		return errors.Errorf("%d of %d cache records failed verification", len(failed), len(report.Results))
	}
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
