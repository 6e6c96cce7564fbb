package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	formflow "github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/pkg/endpoint"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/metrics"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/notify"
	"github.com/goliatone/go-formflow/pkg/renderers/tui"
	"github.com/goliatone/go-formflow/pkg/submit"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/wizard"
)

var errInvalidValues = errors.New("values do not satisfy the form")

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available form definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTEPS\tFIELDS")
			for _, def := range a.catalog.List() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", def.ID, def.Title, len(def.Steps), len(def.Fields))
			}
			return w.Flush()
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <form-id>",
		Short: "Print a form definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := a.catalog.Get(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(def)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(def); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of YAML")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var valuesPath string
	cmd := &cobra.Command{
		Use:   "validate <form-id>",
		Short: "Check a values file against a form without submitting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := a.catalog.Get(args[0])
			if err != nil {
				return err
			}
			values, err := loadValues(valuesPath)
			if err != nil {
				return err
			}
			v, err := validation.New(def)
			if err != nil {
				return err
			}
			store, err := form.NewStore(def, v, values)
			if err != nil {
				return err
			}

			current, errs := store.Snapshot()
			out := cmd.OutOrStdout()
			ok := true
			for i, step := range def.Steps {
				blockers := wizard.Blockers(def, i, current, errs, v.IsRequired)
				if len(blockers) == 0 {
					fmt.Fprintf(out, "ok    %s\n", step.ID)
					continue
				}
				ok = false
				fmt.Fprintf(out, "FAIL  %s\n", step.ID)
				for _, name := range blockers {
					msg := errs[name]
					if msg == "" {
						msg = "required"
					}
					fmt.Fprintf(out, "      %s: %s\n", name, msg)
				}
			}
			if !ok {
				return errInvalidValues
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&valuesPath, "values", "", "YAML or JSON file with field values")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var (
		recordID   string
		valuesPath string
		noFlush    bool
	)
	cmd := &cobra.Command{
		Use:   "run <form-id>",
		Short: "Fill in and submit a form interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := a.catalog.Get(args[0])
			if err != nil {
				return err
			}
			prefill, err := loadValues(valuesPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			registry := prometheus.NewRegistry()
			m, err := metrics.New(registry)
			if err != nil {
				return err
			}
			if addr := a.cfg.Metrics.Addr; addr != "" {
				stop := serveMetrics(a.logger, addr, registry)
				defer stop()
			}

			logNotifier := notify.NewLogNotifier(a.logger)
			terminal := notify.NewWriterNotifier(cmd.OutOrStdout(), notify.DefaultTheme)
			gateway, err := a.gateway(ctx, m, notify.Multi(logNotifier, notify.OnlyLevels(terminal, notify.LevelSuccess)))
			if err != nil {
				return err
			}

			sess, err := formflow.New(def,
				formflow.WithGateway(gateway),
				formflow.WithLogger(a.logger),
				formflow.WithNotifier(logNotifier),
				formflow.WithMetrics(m),
				formflow.WithRecordID(recordID),
				formflow.WithPrefill(prefill),
				formflow.WithAutosaveDelay(a.cfg.Autosave.Delay),
				formflow.WithFlushOnClose(a.cfg.Autosave.FlushOnClose && !noFlush),
			)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), a.cfg.API.Timeout)
				defer cancel()
				if err := sess.Close(closeCtx); err != nil {
					a.logger.Warn("closing session", zap.Error(err))
				}
			}()

			runner, err := tui.New(tui.WithLogger(a.logger))
			if err != nil {
				return err
			}
			_, err = runner.Run(ctx, sess)
			return err
		},
	}
	cmd.Flags().StringVar(&recordID, "edit", "", "edit the record with this id (PUT instead of POST)")
	cmd.Flags().StringVar(&valuesPath, "values", "", "YAML or JSON file used to prefill the form")
	cmd.Flags().BoolVar(&noFlush, "discard-drafts", false, "drop pending autosave drafts on exit")
	return cmd
}

func (a *app) gateway(ctx context.Context, m *metrics.Metrics, n notify.Notifier) (*submit.Gateway, error) {
	opts := []submit.Option{
		submit.WithHTTPClient(&http.Client{Timeout: a.cfg.API.Timeout}),
		submit.WithLogger(a.logger),
		submit.WithNotifier(n),
		submit.WithMetrics(m),
	}
	if a.cfg.API.Token != "" {
		opts = append(opts, submit.WithBearerToken(a.cfg.API.Token))
	}
	for name, value := range a.cfg.API.Headers {
		opts = append(opts, submit.WithHeader(name, value))
	}
	if a.cfg.API.OpenAPI != "" {
		resolver, err := endpoint.LoadFile(ctx, a.cfg.API.OpenAPI)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("openapi operations loaded", zap.Int("count", resolver.Len()))
		opts = append(opts, submit.WithResolver(resolver))
	}
	return submit.New(a.cfg.API.BaseURL, opts...)
}

func serveMetrics(logger *zap.Logger, addr string, registry *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func loadValues(path string) (model.Values, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse values %s: %w", path, err)
	}
	return model.Values(raw), nil
}
