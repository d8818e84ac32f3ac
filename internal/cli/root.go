// Package cli wires configuration, logging and the session together behind
// the xplore commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"xplore/internal/config"
	"xplore/internal/httpclient"
	"xplore/internal/logging"
	"xplore/internal/openapi"
	"xplore/internal/session"
	"xplore/internal/ui"
)

// Execute runs the xplore CLI.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

var tuiRunner = runTUI

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xplore",
		Short: "Explore and call the endpoints of an OpenAPI service",
		Long: "xplore loads a service's OpenAPI document, lists its endpoints and lets you " +
			"fill in, send and inspect requests from the terminal.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			return tuiRunner(cmd.Context(), rt)
		},
	}

	cmd.SetFlagErrorFunc(flagError)

	flags := cmd.PersistentFlags()
	flags.StringP("config", "c", "", "Config file path (YAML)")
	flags.String("base-url", "", "Base URL of the target server (e.g. http://127.0.0.1:5000)")
	flags.String("service", "", "Service whose document is loaded (e.g. Service1)")
	flags.String("token", "", "Auth token sent with every request")
	flags.String("partition", "", "Data partition ID")
	flags.String("spec-file", "", "Load the OpenAPI document from a local file instead of the server")
	flags.Bool("debug", false, "Write a debug log file")

	for _, sub := range []*cobra.Command{newEndpointsCmd(), newCallCmd()} {
		sub.SetFlagErrorFunc(flagError)
		cmd.AddCommand(sub)
	}
	return cmd
}

// flagError turns cobra flag errors (like unknown flags) into usage errors
// that also show the command's help text.
func flagError(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}

// resolveConfig merges defaults, the config file, the environment and the
// flags the user actually set, in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(strings.TrimSpace(configPath))
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		name string
		dst  *string
	}{
		{"base-url", &cfg.BaseURL},
		{"service", &cfg.Service},
		{"token", &cfg.Auth.Token},
		{"partition", &cfg.Partition},
		{"spec-file", &cfg.SpecFile},
	}
	for _, o := range overrides {
		if err := overrideString(flags, o.name, o.dst); err != nil {
			return nil, err
		}
	}
	if flags.Changed("debug") {
		if cfg.Debug, err = flags.GetBool("debug"); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// overrideString copies a flag into dst only when the user set it.
func overrideString(flags *pflag.FlagSet, name string, dst *string) error {
	if !flags.Changed(name) {
		return nil
	}
	v, err := flags.GetString(name)
	if err != nil {
		return err
	}
	*dst = strings.TrimSpace(v)
	return nil
}

// runtime is everything a command needs once configuration is resolved.
type runtime struct {
	cfg    *config.Config
	logger hclog.Logger
	closer io.Closer
	ctrl   *session.Controller
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, closer, err := logging.New(logging.Options{Debug: cfg.Debug, File: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		return nil, err
	}
	cache, err := openapi.NewCache(cfg.CacheSize)
	if err != nil {
		closer.Close()
		return nil, err
	}

	ctrl := session.NewController(session.New(cfg), session.Deps{
		Fetcher:  openapi.NewFetcher(cfg.FetchTimeout, cache, logger),
		Cache:    cache,
		Executor: httpclient.NewClient(cfg.RequestTimeout, logger),
		Logger:   logger,
	})
	logger.Info("session started", "service", cfg.Service, "base_url", cfg.BaseURL, "spec_file", cfg.SpecFile)
	return &runtime{cfg: cfg, logger: logger, closer: closer, ctrl: ctrl}, nil
}

func (r *runtime) Close() error {
	return r.closer.Close()
}

func runTUI(ctx context.Context, rt *runtime) error {
	app := ui.NewApp(rt.ctrl, ui.Options{Editor: rt.cfg.Editor, Logger: rt.logger})
	app.Init(ctx)
	return app.Run(ctx)
}
