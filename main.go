package main

import (
	"context"
	"errors"
	"fmt"
	"imagio/internal/adapters/catalog"
	"imagio/internal/adapters/rest"
	"imagio/internal/adapters/storage"
	"imagio/internal/adapters/transform"
	"imagio/internal/core/port"
	"imagio/internal/core/service"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	root := &cobra.Command{
		Use:           "imagio",
		Short:         "on-demand image transform and cache server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", ".", "directory containing imagio.toml")

	root.AddCommand(newServeCmd(), newInitCmd(), newRefreshCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("imagio failed")
	}
}

func loadConfig(cmd *cobra.Command) error {
	dir, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	viper.AddConfigPath(dir)
	viper.SetConfigName("imagio")
	viper.SetConfigType("toml")

	viper.SetDefault("server.bind", ":8000")
	viper.SetDefault("server.timeout", "30s")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("catalog.path", "data/imagio.db")
	viper.SetDefault("storage.backend", "filesystem")
	viper.SetDefault("storage.filesystem.source_root", "data/images")
	viper.SetDefault("storage.filesystem.cache_root", "data/cache")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("could not read config file: %w", err)
		}
		log.Warn().Msg("no config file found, using defaults")
	}

	switch viper.GetString("log.level") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return nil
}

// buildStores constructs the source and cache blob stores for the configured
// backend. Both roles always use the same backend kind.
func buildStores() (source, cache port.BlobStore, err error) {
	switch backend := viper.GetString("storage.backend"); backend {
	case "filesystem":
		source, err = storage.NewFilesystem(viper.GetString("storage.filesystem.source_root"))
		if err != nil {
			return nil, nil, err
		}
		cache, err = storage.NewFilesystem(viper.GetString("storage.filesystem.cache_root"))
		if err != nil {
			return nil, nil, err
		}
		return source, cache, nil

	case "s3":
		cfg := storage.S3Config{
			Endpoint:        viper.GetString("storage.s3.endpoint"),
			Region:          viper.GetString("storage.s3.region"),
			AccessKeyID:     viper.GetString("storage.s3.access_key_id"),
			SecretAccessKey: viper.GetString("storage.s3.secret_access_key"),
			UseSSL:          viper.GetBool("storage.s3.use_ssl"),
		}

		cfg.Bucket = viper.GetString("storage.s3.source_bucket")
		source, err = storage.NewS3(cfg)
		if err != nil {
			return nil, nil, err
		}

		cfg.Bucket = viper.GetString("storage.s3.cache_bucket")
		cache, err = storage.NewS3(cfg)
		if err != nil {
			return nil, nil, err
		}
		return source, cache, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "start the image server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cat, err := catalog.NewSQLite(viper.GetString("catalog.path"))
			if err != nil {
				return err
			}
			defer cat.Close()

			if err := cat.InitSchema(ctx, false); err != nil {
				return err
			}

			source, cache, err := buildStores()
			if err != nil {
				return err
			}

			timeout, err := time.ParseDuration(viper.GetString("server.timeout"))
			if err != nil {
				return fmt.Errorf("invalid server timeout in config: %w", err)
			}

			pipeline := service.NewPipeline(cat, source, cache, transform.NewEngine())
			ingest := service.NewIngest(cat, source)
			server := rest.NewServer(pipeline, ingest, cat, viper.GetString("server.bind"), timeout)

			log.Info().Msg("starting imagio")
			return server.Run(ctx)
		},
	}
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "create the catalog schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}

			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}

			cat, err := catalog.NewSQLite(viper.GetString("catalog.path"))
			if err != nil {
				return err
			}
			defer cat.Close()

			return cat.InitSchema(cmd.Context(), force)
		},
	}

	cmd.Flags().Bool("force", false, "drop and recreate an existing catalog")
	return cmd
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [dir]",
		Short: "re-index a directory of category/image files into the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}

			root := viper.GetString("storage.filesystem.source_root")
			if len(args) == 1 {
				root = args[0]
			}

			cat, err := catalog.NewSQLite(viper.GetString("catalog.path"))
			if err != nil {
				return err
			}
			defer cat.Close()

			if err := cat.InitSchema(cmd.Context(), false); err != nil {
				return err
			}

			source, _, err := buildStores()
			if err != nil {
				return err
			}

			count, err := service.NewIngest(cat, source).Refresh(cmd.Context(), root)
			if err != nil {
				return err
			}

			log.Info().Int("images", count).Msg("catalog refreshed")
			return nil
		},
	}
}
