package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gluonch/carrot2/config"
	"github.com/gluonch/carrot2/descriptor"
	"github.com/gluonch/carrot2/errors"
	"github.com/gluonch/carrot2/health"
)

// cliState is shared by all commands of one invocation
type cliState struct {
	configPath string
	logLevel   string
	logFormat  string
	jsonOutput bool

	stdout io.Writer
	stderr io.Writer

	cfg *config.Config
	app *app
}

func (s *cliState) out() *output {
	return &output{jsonMode: s.jsonOutput, w: s.stdout}
}

// loadConfig reads the configuration and applies the logging flags
func (s *cliState) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = s.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = s.logFormat
	}
	s.cfg = cfg
	return nil
}

// controllerApp assembles the controller on first use
func (s *cliState) controllerApp(ctx context.Context) (*app, error) {
	if s.app != nil {
		return s.app, nil
	}
	logger := setupLogger(s.stderr, s.cfg.Log.Level, s.cfg.Log.Format)
	a, err := newApp(ctx, s.cfg, logger)
	if err != nil {
		return nil, err
	}
	s.app = a
	return a, nil
}

func (s *cliState) shutdown(ctx context.Context) {
	if s.app != nil {
		s.app.close(ctx)
		s.app = nil
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	state := &cliState{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "carrot2 runs query pipelines built from pooled components",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return state.loadConfig(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			state.shutdown(cmd.Context())
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&state.configPath, "config", "c", "", "Configuration file (JSON, YAML or TOML)")
	flags.StringVar(&state.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&state.logFormat, "log-format", "text", "Log format (json, text)")
	flags.BoolVar(&state.jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(
		newKindsCmd(state),
		newComponentsCmd(state),
		newProcessesCmd(state),
		newCheckCmd(state),
		newQueryCmd(state),
		newPublishCmd(state),
		newHealthCmd(state),
	)
	return rootCmd
}

func newKindsCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List component kinds descriptors can refer to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := state.controllerApp(cmd.Context())
			if err != nil {
				return err
			}

			type kindInfo struct {
				Name        string `json:"name"`
				Version     string `json:"version"`
				Description string `json:"description"`
			}
			var infos []kindInfo
			var rows [][]string
			for _, name := range a.kinds.Names() {
				kind, _ := a.kinds.Lookup(name)
				infos = append(infos, kindInfo{Name: name, Version: kind.Version, Description: kind.Description})
				rows = append(rows, []string{name, kind.Version, kind.Description})
			}
			return state.out().print([]string{"KIND", "VERSION", "DESCRIPTION"}, rows, infos)
		},
	}
}

func newComponentsCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "components",
		Short: "List registered component factories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := state.controllerApp(cmd.Context())
			if err != nil {
				return err
			}

			type componentInfo struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			}
			var infos []componentInfo
			var rows [][]string
			for _, id := range a.ctrl.FactoryIDs() {
				name, err := a.ctrl.ComponentName(id)
				if err != nil {
					return err
				}
				infos = append(infos, componentInfo{ID: id, Name: name})
				rows = append(rows, []string{id, name})
			}
			return state.out().print([]string{"ID", "NAME"}, rows, infos)
		},
	}
}

func newProcessesCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "processes",
		Short: "List registered processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := state.controllerApp(cmd.Context())
			if err != nil {
				return err
			}

			type processInfo struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			}
			var infos []processInfo
			var rows [][]string
			for _, id := range a.ctrl.ProcessIDs() {
				name, err := a.ctrl.ProcessName(id)
				if err != nil {
					return err
				}
				infos = append(infos, processInfo{ID: id, Name: name})
				rows = append(rows, []string{id, name})
			}
			return state.out().print([]string{"ID", "NAME"}, rows, infos)
		},
	}
}

func newCheckCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "check FROM TO",
		Short: "Check whether FROM's outputs satisfy TO's inputs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := state.controllerApp(cmd.Context())
			if err != nil {
				return err
			}

			explanation, err := a.ctrl.Explain(args[0], args[1])
			if err != nil {
				return err
			}

			result := struct {
				From        string `json:"from"`
				To          string `json:"to"`
				Compatible  bool   `json:"compatible"`
				Explanation string `json:"explanation,omitempty"`
			}{args[0], args[1], explanation == "", explanation}

			if state.jsonOutput {
				return state.out().json(result)
			}
			if result.Compatible {
				fmt.Fprintf(state.stdout, "%s -> %s: compatible\n", args[0], args[1])
				return nil
			}
			fmt.Fprintln(state.stdout, explanation)
			return nil
		},
	}
}

func newQueryCmd(state *cliState) *cobra.Command {
	var params []string
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "query PROCESS TEXT...",
		Short: "Run a query through a registered process",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseParams(params)
			if err != nil {
				return err
			}

			if showMetrics {
				state.cfg.Metrics.Enabled = true
			}
			a, err := state.controllerApp(cmd.Context())
			if err != nil {
				return err
			}

			result, err := a.ctrl.Query(cmd.Context(), args[0], strings.Join(args[1:], " "), parsed)
			if err != nil {
				return err
			}

			report := struct {
				RequestID  string         `json:"request_id"`
				Result     any            `json:"result"`
				Attributes map[string]any `json:"attributes,omitempty"`
				Metrics    []metricSample `json:"metrics,omitempty"`
			}{
				RequestID:  result.Context().ID(),
				Result:     result.Result(),
				Attributes: result.Context().Attributes(),
			}
			if showMetrics && a.metrics != nil {
				report.Metrics, err = gatherMetrics(a)
				if err != nil {
					return err
				}
			}
			return state.out().json(report)
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Request parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Include controller metrics in the output")
	return cmd
}

func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, errors.WrapInvalid(errors.Errorf(errors.ErrInvalidData, "parameter %q is not key=value", pair),
				"cli", "query", "parameter parsing")
		}
		params[key] = value
	}
	return params, nil
}

// metricSample is one sample of a gathered metric family
type metricSample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

func gatherMetrics(a *app) ([]metricSample, error) {
	families, err := a.metrics.PrometheusRegistry().Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var samples []metricSample
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "carrot2_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			s := metricSample{Name: mf.GetName()}
			for _, lp := range m.GetLabel() {
				if s.Labels == nil {
					s.Labels = make(map[string]string)
				}
				s.Labels[lp.GetName()] = lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				s.Value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				s.Value = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				s.Name += "_count"
				s.Value = float64(m.GetHistogram().GetSampleCount())
			}
			samples = append(samples, s)
		}
	}
	return samples, nil
}

func newPublishCmd(state *cliState) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "publish FILE",
		Short: "Validate a descriptor file and store it in the NATS descriptor bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if state.cfg.NATS.URL == "" {
				return errors.WrapInvalid(errors.Errorf(errors.ErrMissingConfig, "nats.url is not configured"),
					"cli", "publish", "nats check")
			}

			a, err := state.controllerApp(cmd.Context())
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read descriptor: %w", err)
			}
			if name == "" {
				name = filepath.Base(args[0])
			}
			if err := validateDescriptor(a.kinds, name, data); err != nil {
				return err
			}

			if err := a.kvLocator.Publish(cmd.Context(), name, data); err != nil {
				return err
			}
			fmt.Fprintf(state.stdout, "published %s to %s\n", name, state.cfg.NATS.Bucket)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Key to store the descriptor under (default: file name)")
	return cmd
}

// validateDescriptor decodes data with the loader matching name's extension
// and checks the kind and its config.
func validateDescriptor(kinds *descriptor.Kinds, name string, data []byte) error {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	loaders, err := descriptor.LoadersFor(ext)
	if err != nil {
		return err
	}

	doc, err := loaders[0].Decode(strings.NewReader(string(data)))
	if err != nil {
		return errors.WrapInvalid(err, "cli", "publish", "descriptor decode")
	}
	d, err := descriptor.Decode(doc)
	if err != nil {
		return err
	}
	kind, ok := kinds.Lookup(d.Kind)
	if !ok {
		return errors.WrapInvalid(errors.Errorf(errors.ErrInvalidConfig, "unknown kind %q, known: %v", d.Kind, kinds.Names()),
			"cli", "publish", "kind lookup")
	}
	if _, err := kind.Factory(d.Config); err != nil {
		return err
	}
	return nil
}

func newHealthCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report controller health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := state.controllerApp(cmd.Context())
			if err != nil {
				return err
			}

			statuses := []health.Status{a.ctrl.Health()}
			if a.nats != nil {
				statuses = append(statuses, a.nats.Health())
			}
			status := health.Aggregate(appName, statuses)

			if state.jsonOutput {
				return state.out().json(status)
			}
			rows := [][]string{{status.Component, status.Status, status.Message}}
			for _, sub := range statuses {
				rows = append(rows, []string{sub.Component, sub.Status, sub.Message})
				for _, nested := range sub.SubStatuses {
					rows = append(rows, []string{"  " + nested.Component, nested.Status, nested.Message})
				}
			}
			state.out().table([]string{"COMPONENT", "STATUS", "MESSAGE"}, rows)
			return nil
		},
	}
}
