package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/unlearnai/dagster/bootstrap"
	"github.com/unlearnai/dagster/component"
	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/logger"
	"github.com/unlearnai/dagster/manifest"
	"github.com/unlearnai/dagster/runconfig"
	"github.com/unlearnai/dagster/schema"
	"github.com/unlearnai/dagster/server"
)

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Run config schemas for manifest-defined jobs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.serviceConfig, "service-config", "", "service configuration file")
	root.PersistentFlags().StringSliceVar(&flags.manifestDirs, "manifests", nil, "manifest directories (overrides configuration)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (overrides configuration)")

	root.AddCommand(
		serveCmd(flags),
		schemaCmd(flags),
		validateCmd(flags),
		scaffoldCmd(flags),
	)
	return root
}

// selectionFlags are shared by the commands that build one schema.
type selectionFlags struct {
	mode      string
	selection []string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", "", "mode name (default: the job's first mode)")
	cmd.Flags().StringSliceVar(&f.selection, "select", nil, "node selection queries, e.g. A*,+B")
}

func serveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the introspection API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			return a.serve(cmd.Context())
		},
	}
}

// serve runs the HTTP API until SIGINT or SIGTERM. SIGHUP reloads the
// manifests and drops every cached schema.
func (a *app) serve(ctx context.Context) error {
	if err := a.initTelemetry(ctx); err != nil {
		return err
	}
	// Telemetry is flushed after the components stop so spans of drained
	// requests are exported.
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.close(flushCtx); err != nil {
			a.log.Warn("Telemetry shutdown failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	catalog := manifest.NewCatalogFrom(a.resolver)
	cache, err := runconfig.NewCache(a.cfg.Cache.Size, a.schemaOptions()...)
	if err != nil {
		return err
	}
	srv := server.New(server.Options{
		Service: a.cfg.Name,
		Version: a.cfg.Version,
		Config:  a.cfg.Server,
		Catalog: catalog,
		Cache:   cache,
		Logger:  a.log,
		Metrics: a.metrics,
	})

	svc := bootstrap.New(a.cfg.Name, a.cfg.Version,
		bootstrap.WithLogger(a.log),
		bootstrap.WithGracefulTimeout(a.cfg.Server.ShutdownTimeout),
	)
	for _, c := range []component.Component{catalog, srv} {
		if err := svc.RegisterComponent(c); err != nil {
			return err
		}
	}
	svc.OnStart(func(ctx context.Context) error {
		go a.reloadOnHangup(ctx, catalog, cache)
		return nil
	})
	svc.OnStop(func(context.Context) error {
		a.log.Info("Serving stopped", logger.Fields("jobs", catalog.Len(), "cached_schemas", cache.Len()))
		return nil
	})
	return svc.Run(ctx)
}

// reloadOnHangup reloads the catalog on every SIGHUP until ctx ends. A
// failed reload keeps the current jobs.
func (a *app) reloadOnHangup(ctx context.Context, catalog *manifest.Catalog, cache *runconfig.Cache) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-hup:
			if err := catalog.Reload(ctx); err != nil {
				a.log.Error("Manifest reload failed, keeping the current jobs", logger.ErrorFields("reload", err))
				continue
			}
			cache.Purge()
			a.log.Info("Manifests reloaded", logger.Fields("jobs", catalog.Len()))
		case <-ctx.Done():
			return
		}
	}
}

func schemaCmd(flags *globalFlags) *cobra.Command {
	var (
		sel   selectionFlags
		types bool
	)
	cmd := &cobra.Command{
		Use:   "schema <job>",
		Short: "Print the JSON Schema of a job's run config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			rcs, err := a.buildSchema(cmd.Context(), args[0], sel.mode, sel.selection)
			if err != nil {
				return err
			}
			if types {
				for _, s := range rcs.Types.Summaries(false) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.Name, s.Shape)
				}
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), rcs.JSONSchema())
		},
	}
	sel.register(cmd)
	cmd.Flags().BoolVar(&types, "types", false, "list the named config types instead")
	return cmd
}

func validateCmd(flags *globalFlags) *cobra.Command {
	var (
		sel   selectionFlags
		files []string
	)
	cmd := &cobra.Command{
		Use:   "validate <job> -c file...",
		Short: "Validate run config files against a job and print the normalized config",
		Long: "Validate merges the run config files in order, later files overriding earlier ones, " +
			"validates the result and prints it normalized, with defaults and config mappings applied.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			rcs, err := a.buildSchema(cmd.Context(), args[0], sel.mode, sel.selection)
			if err != nil {
				return err
			}
			doc, err := runconfig.LoadDocuments(files...)
			if err != nil {
				return err
			}
			resolved, err := rcs.Resolve(cmd.Context(), doc)
			if err != nil {
				reportValidationErrors(cmd.ErrOrStderr(), err)
				return err
			}
			return writeYAML(cmd.OutOrStdout(), resolved.Raw)
		},
	}
	sel.register(cmd)
	cmd.Flags().StringSliceVarP(&files, "config", "c", nil, "run config files (YAML or JSON)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func scaffoldCmd(flags *globalFlags) *cobra.Command {
	var (
		sel      selectionFlags
		optional bool
	)
	cmd := &cobra.Command{
		Use:   "scaffold <job>",
		Short: "Print a default-filled run config for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			rcs, err := a.buildSchema(cmd.Context(), args[0], sel.mode, sel.selection)
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), rcs.Scaffold(optional))
		},
	}
	sel.register(cmd)
	cmd.Flags().BoolVar(&optional, "optional", false, "include optional fields")
	return cmd
}

// reportValidationErrors prints one line per validation error of an
// INVALID_RUN_CONFIG error.
func reportValidationErrors(w io.Writer, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeInvalidRunConfig {
		return
	}
	verrs, _ := appErr.Details["errors"].([]*schema.ValidationError)
	for _, e := range verrs {
		fmt.Fprintf(w, "%s: %s\n", e.Path, e.Message)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
