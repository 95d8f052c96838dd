// Package cli implements the cosmic command line.
package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/deepkalilabs/marimo-cosmic/internal/config"
	"github.com/deepkalilabs/marimo-cosmic/internal/infrastructure/logging"
	"github.com/deepkalilabs/marimo-cosmic/internal/usecases/endpoint"
)

type app struct {
	envFiles []string
	cfg      *config.Config
	logger   *logging.Logger

	baseURI     string
	devMode     string
	devEndpoint string
	logLevel    string
}

// NewRootCommand builds the cosmic command tree writing results to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "cosmic",
		Short:         "Resolve and exercise notebook session endpoints",
		Long:          `Derives session channel and API URLs from a page base URI, runs the local kernel endpoint and renames notebooks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringSliceVar(&a.envFiles, "env-file", nil, "env files to load (default ./.env when present)")
	flags.StringVar(&a.baseURI, "base-uri", "", "page base URI (env "+config.EnvBaseURI+")")
	flags.StringVar(&a.devMode, "dev-mode", "", "development endpoint override: auto, on or off (env "+config.EnvDevMode+")")
	flags.StringVar(&a.devEndpoint, "dev-endpoint", "", "host:port of the development endpoint (env "+config.EnvDevEndpoint+")")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (env "+config.EnvLogLevel+")")

	root.AddCommand(
		a.wsURLCommand(),
		a.resolveCommand(),
		a.httpURLCommand(),
		a.serveCommand(),
		a.renameCommand(),
	)

	return root
}

// Execute runs the command line against os.Args.
func Execute() error {
	return NewRootCommand(os.Stdout).Execute()
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFiles...)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("base-uri") {
		cfg.BaseURI = a.baseURI
	}
	if flags.Changed("dev-mode") {
		cfg.DevMode = a.devMode
	}
	if flags.Changed("dev-endpoint") {
		cfg.DevEndpoint = a.devEndpoint
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging())
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) resolver() (*endpoint.Resolver, error) {
	opts := append(a.cfg.ResolverOptions(), endpoint.WithLogger(a.logger.Named("endpoint")))
	return endpoint.NewFromURI(a.cfg.BaseURI, opts...)
}
