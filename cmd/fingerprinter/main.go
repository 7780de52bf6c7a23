package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fiapx/fiapx-fingerprint-service/internal/app"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/config"
	"github.com/fiapx/fiapx-fingerprint-service/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cli carries what PersistentPreRunE builds for the subcommands.
type cli struct {
	envFile  string
	logLevel string

	cfg *config.Config
	log *zap.Logger
	app *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "fingerprinter",
		Short:         "fingerprinter - discover videos and store per-frame feature fingerprints",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override LOG_LEVEL")

	root.AddCommand(
		newRunCmd(c),
		newProcessCmd(c),
		newShowCmd(c),
		newEnqueueCmd(c),
	)
	return root
}

func (c *cli) setup() error {
	cfg, err := config.LoadFiles(c.envFile)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}

	var opts []logger.Option
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithFile(cfg.LogFile))
	}
	log, err := logger.New(cfg.LogLevel, opts...)
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.log = log
	c.app = app.New(cfg, log)
	return nil
}

// runE releases everything the command opened, whether it fails or not.
func (c *cli) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := c.teardown(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

func (c *cli) teardown() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	_ = c.log.Sync()
	c.app = nil
	return err
}
