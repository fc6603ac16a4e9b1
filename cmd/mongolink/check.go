package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/mongolink"
	"github.com/sagarc03/mongolink/config"
	"github.com/sagarc03/mongolink/report"
	"github.com/sagarc03/mongolink/settings"
)

var checkTimeout time.Duration

var checkCmd = &cobra.Command{
	Use:   "check [alias...]",
	Short: "Connect to and ping configured aliases",
	Long: `Resolve the configured connection settings, connect every alias (or
only the ones named) and ping it. Exits non-zero when any alias fails.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 5*time.Second, "per-alias connect and ping timeout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	descs, err := fetchDescriptors(cfg.App)
	if err != nil {
		return err
	}
	descs, err = selectAliases(descs, args)
	if err != nil {
		return err
	}

	m, err := newManager(cfg, cfg.App)
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}
	defer closeManager(cmd.Context(), m)

	for _, d := range descs {
		m.Registry().Define(d)
	}

	results := make([]report.CheckResult, 0, len(descs))
	failed := 0
	for _, d := range descs {
		r := checkAlias(cmd.Context(), m, d)
		if r.Err != nil {
			failed++
		}
		results = append(results, r)
	}

	shared := make(map[string]bool)
	for _, s := range m.Status() {
		shared[s.Alias] = s.Shared
	}
	for i := range results {
		results[i].Shared = shared[results[i].Alias]
	}

	if err := getFormatter().FormatCheck(os.Stdout, results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d connection(s) failed", failed, len(results))
	}
	return nil
}

func checkAlias(ctx context.Context, m *mongolink.Manager, d settings.Descriptor) report.CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	r := report.CheckResult{Alias: d.Alias, Host: d.Host, DB: d.Name}
	start := time.Now()
	h, err := m.Get(ctx, d.Alias)
	if err == nil {
		err = h.Ping(ctx)
	}
	r.Latency = time.Since(start)
	r.Err = err
	return r
}

// fetchDescriptors resolves app with passwords kept. A non-mapping
// mongodb_settings value is rejected since nothing can connect with it.
func fetchDescriptors(app map[string]any) ([]settings.Descriptor, error) {
	res, err := settings.Fetch(app, settings.KeepPassword())
	if err != nil {
		return nil, fmt.Errorf("resolve settings: %w", err)
	}
	if _, ok := res.Passthrough(); ok {
		return nil, fmt.Errorf("%s must be a mapping or a list of mappings", settings.SettingsKey)
	}
	return res.Descriptors, nil
}

func selectAliases(descs []settings.Descriptor, aliases []string) ([]settings.Descriptor, error) {
	if len(aliases) == 0 {
		return descs, nil
	}

	byAlias := make(map[string]settings.Descriptor, len(descs))
	for _, d := range descs {
		byAlias[d.Alias] = d
	}

	out := make([]settings.Descriptor, 0, len(aliases))
	for _, a := range aliases {
		d, ok := byAlias[a]
		if !ok {
			return nil, fmt.Errorf("alias %q is not configured", a)
		}
		out = append(out, d)
	}
	return out, nil
}
