// Command rowfsm-demo replays an event script against a transition table and
// reports where the machine ends up.
//
// The table is either a built-in scenario (ROWFSM_SCENARIO) or a YAML document
// (ROWFSM_TABLE) whose hook names resolve against the scenario hooks.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/anggasct/rowfsm"
	"github.com/anggasct/rowfsm/internal/config"
	"github.com/anggasct/rowfsm/internal/scenarios"
	"github.com/anggasct/rowfsm/pkg/observers"
	"github.com/anggasct/rowfsm/pkg/tabledef"
	"github.com/anggasct/rowfsm/visualization"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := cfg.Logger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(cfg, log, os.Stdout); err != nil {
		log.Error("run failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// run executes one scenario and writes the summary to out
func run(cfg config.Config, log *slog.Logger, out io.Writer) error {
	s, err := loadScenario(cfg)
	if err != nil {
		return err
	}
	if len(cfg.Events) > 0 {
		s.Events = eventTags(cfg.Events)
	}

	if cfg.DOT != "" {
		if err := visualization.NewDOTGenerator(s.Table).GenerateToFile(cfg.DOT); err != nil {
			return fmt.Errorf("writing %s: %w", cfg.DOT, err)
		}
		log.Info("table written", slog.String("path", cfg.DOT))
	}

	validation := observers.NewTableValidationObserver(s.Table)
	opts := []rowfsm.MachineOption[scenarios.Data]{
		rowfsm.WithName[scenarios.Data](s.Name),
		rowfsm.WithLogger[scenarios.Data](log),
		rowfsm.WithObserver[scenarios.Data](observers.NewLoggingObserver(log, slog.LevelDebug)),
		rowfsm.WithObserver[scenarios.Data](validation),
	}

	var registry *prometheus.Registry
	if cfg.Metrics {
		metrics := observers.NewMetricsObserver("rowfsm")
		registry = prometheus.NewRegistry()
		if err := registry.Register(metrics); err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
		opts = append(opts, rowfsm.WithObserver[scenarios.Data](metrics))
	}

	m, results, err := scenarios.Run(s, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "scenario %s\n", s.Name)
	for _, r := range results {
		fmt.Fprintf(out, "  %-8s %-13s %s -> %s", r.Event.Tag, r.Outcome, r.PreviousState, r.CurrentState)
		if r.Automatic > 0 {
			fmt.Fprintf(out, " (+%d automatic)", r.Automatic)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "final state %s (terminated=%t, val=%d)\n", m.CurrentState(), m.IsTerminated(), m.Data().Val)

	if s.Final != rowfsm.NoState && m.CurrentState() != s.Final {
		log.Warn("unexpected final state",
			slog.String("want", string(s.Final)),
			slog.String("got", string(m.CurrentState())))
	}
	for _, v := range validation.Violations() {
		fmt.Fprintf(out, "violation: %s\n", v)
	}

	if registry != nil {
		return writeMetrics(registry, out)
	}
	return nil
}

func loadScenario(cfg config.Config) (scenarios.Scenario, error) {
	if cfg.Table == "" {
		return scenarios.ByName(cfg.Scenario)
	}

	doc, err := tabledef.Load(cfg.Table)
	if err != nil {
		return scenarios.Scenario{}, err
	}
	table, err := tabledef.Build(doc, scenarios.Registry())
	if err != nil {
		return scenarios.Scenario{}, err
	}

	name := doc.Name
	if name == "" {
		name = cfg.Table
	}
	return scenarios.Scenario{Name: name, Table: table, Events: doc.EventTags()}, nil
}

func eventTags(names []string) []rowfsm.EventTag {
	tags := make([]rowfsm.EventTag, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			tags = append(tags, rowfsm.EventTag(n))
		}
	}
	return tags
}

// writeMetrics prints every gathered sample as name{labels} value
func writeMetrics(g prometheus.Gatherer, out io.Writer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	fmt.Fprintln(out, "metrics")
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			fmt.Fprintf(out, "  %s%s %s\n", mf.GetName(), formatLabels(metric.GetLabel()), sampleValue(mf.GetType(), metric))
		}
	}
	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s=%q", p.GetName(), p.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func sampleValue(t dto.MetricType, metric *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", metric.GetCounter().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := metric.GetHistogram()
		return fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum())
	default:
		return "-"
	}
}
