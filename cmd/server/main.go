package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codepod-dev/codepod/internal/blob"
	"github.com/codepod-dev/codepod/internal/server"
	"github.com/codepod-dev/codepod/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "codepod-server",
	Short:   "Codepod workspace server",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		config := &server.Config{
			HTTP: server.HTTPConfig{
				Addr:     viper.GetString("addr"),
				CertFile: viper.GetString("cert_file"),
				KeyFile:  viper.GetString("key_file"),
			},
			Blob: blob.S3Config{
				BucketName: viper.GetString("bucket_name"),
				Region:     viper.GetString("region"),
				Endpoint:   viper.GetString("endpoint"),
				AccessKey:  viper.GetString("access_key"),
				SecretKey:  viper.GetString("secret_key"),
			},
			DBPath:  viper.GetString("db_path"),
			DevMode: viper.GetBool("dev"),
		}

		s, err := server.New(config)
		if err != nil {
			return err
		}

		defer slog.Info("Bye!")
		return s.Start(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("bind", "b", server.DefaultAddr, "Address to bind the server")
	rootCmd.Flags().String("cert", "", "Path to the TLS certificate file")
	rootCmd.Flags().String("key", "", "Path to the TLS key file")
	rootCmd.Flags().String("db", "codepod.db", "Path to the metadata database")
	rootCmd.Flags().Bool("dev", false, "Use an in-process blob store instead of S3")
	rootCmd.Flags().String("bucket", "codepod", "S3 bucket name")
	rootCmd.Flags().String("region", "us-east-1", "S3 region")
	rootCmd.Flags().String("endpoint", "", "S3 endpoint override")
}

func loadConfig(cmd *cobra.Command) error {
	viper.BindPFlag("addr", cmd.Flags().Lookup("bind"))
	viper.BindPFlag("cert_file", cmd.Flags().Lookup("cert"))
	viper.BindPFlag("key_file", cmd.Flags().Lookup("key"))
	viper.BindPFlag("db_path", cmd.Flags().Lookup("db"))
	viper.BindPFlag("dev", cmd.Flags().Lookup("dev"))
	viper.BindPFlag("bucket_name", cmd.Flags().Lookup("bucket"))
	viper.BindPFlag("region", cmd.Flags().Lookup("region"))
	viper.BindPFlag("endpoint", cmd.Flags().Lookup("endpoint"))

	// credentials come from CODEPOD_ACCESS_KEY / CODEPOD_SECRET_KEY
	viper.SetEnvPrefix("CODEPOD")
	viper.AutomaticEnv()

	return nil
}

func main() {
	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
