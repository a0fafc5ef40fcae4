package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cloudgovern/cloudgovern/pkg/compliance"
	"github.com/cloudgovern/cloudgovern/pkg/condition"
	"github.com/cloudgovern/cloudgovern/pkg/config"
	"github.com/cloudgovern/cloudgovern/pkg/engine"
	"github.com/cloudgovern/cloudgovern/pkg/policy"
	"github.com/cloudgovern/cloudgovern/pkg/resource"
	"github.com/cloudgovern/cloudgovern/pkg/stores"
	"github.com/cloudgovern/cloudgovern/pkg/telemetry"
)

// app bundles everything a command needs after setup.
type app struct {
	cfg      *config.Config
	tel      *telemetry.Telemetry
	store    *stores.SQLiteStore
	governor *engine.Governor
	loader   *policy.Loader
}

// setup loads configuration, initializes telemetry and the store, and
// builds the governor with the built-in compliance framework registered.
func setup(ctx context.Context) (*app, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	telCfg := telemetry.DefaultConfig()
	telCfg.Logging.Level = cfg.Logging.Level
	telCfg.Logging.Format = cfg.Logging.Format
	telCfg.Logging.Output = cfg.Logging.Output
	telCfg.Tracing.Enabled = cfg.Tracing.Enabled
	telCfg.Tracing.Exporter = cfg.Tracing.Exporter
	telCfg.Tracing.Endpoint = cfg.Tracing.Endpoint
	telCfg.Tracing.SamplingRate = cfg.Tracing.SamplingRate
	telCfg.Metrics.Enabled = cfg.Metrics.Enabled
	telCfg.Metrics.ListenAddress = cfg.Metrics.ListenAddress
	telCfg.Metrics.Path = cfg.Metrics.Path

	tel, err := telemetry.NewTelemetry(telCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if err := tel.Metrics.StartMetricsServer(); err != nil {
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}

	registry, err := buildConditionRegistry(ctx, cfg.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to build condition registry: %w", err)
	}

	store, err := stores.NewSQLiteStore(stores.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	opts := []engine.GovernorOption{
		engine.WithWaiverStore(store),
		engine.WithReportStore(store),
		engine.WithMetrics(tel.Metrics),
		engine.WithTracer(tel.Tracer),
		engine.WithEvents(tel.Events),
	}
	if registry != nil {
		opts = append(opts, engine.WithConditionRegistry(registry))
	}
	governor := engine.NewGovernor(tel.Logger, store, opts...)

	if err := governor.RegisterFramework(compliance.BaselineFramework()); err != nil {
		_ = store.Close()
		return nil, err
	}

	loader, err := loadPolicies(ctx, cfg, tel, governor)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{cfg: cfg, tel: tel, store: store, governor: governor, loader: loader}, nil
}

// close releases the app's resources.
func (a *app) close(ctx context.Context) {
	if a.loader != nil {
		_ = a.loader.StopWatching()
	}
	_ = a.store.Close()
	_ = a.tel.Shutdown(ctx)
}

// buildConditionRegistry assembles the custom-condition registry from the
// configured expr and rego sources. Nil when none are configured.
func buildConditionRegistry(ctx context.Context, cfg config.ConditionsConfig) (condition.Registry, error) {
	var registries condition.MultiRegistry

	if len(cfg.Expr) > 0 {
		r, err := condition.NewExprRegistry(cfg.Expr)
		if err != nil {
			return nil, err
		}
		registries = append(registries, r)
	}
	if len(cfg.Rego) > 0 {
		r, err := condition.NewRegoRegistry(ctx, cfg.Rego)
		if err != nil {
			return nil, err
		}
		registries = append(registries, r)
	}

	switch len(registries) {
	case 0:
		return nil, nil
	case 1:
		return registries[0], nil
	default:
		return registries, nil
	}
}

// loadPolicies seeds the store from the built-in policy set and the
// configured policy directory. Every document passes governor validation,
// so uncompilable patterns are rejected before evaluation can see them.
// When watching is configured, directory changes re-save through the same
// validation path for the lifetime of the command.
func loadPolicies(ctx context.Context, cfg *config.Config, tel *telemetry.Telemetry, governor *engine.Governor) (*policy.Loader, error) {
	if cfg.Policies.IncludeBuiltin {
		builtin := policy.GetBuiltinPolicies()
		for i := range builtin {
			if err := governor.SavePolicy(ctx, &builtin[i]); err != nil {
				return nil, err
			}
		}
	}

	if cfg.Policies.Dir == "" {
		return nil, nil
	}

	loader := policy.NewLoader(tel.Logger)
	save := func(policies []policy.Policy) error {
		for i := range policies {
			if err := governor.SavePolicy(ctx, &policies[i]); err != nil {
				return err
			}
		}
		return nil
	}

	loaded, err := loader.LoadFromPaths(ctx, []string{cfg.Policies.Dir})
	if err != nil {
		return nil, err
	}
	if err := save(loaded); err != nil {
		return nil, err
	}

	if cfg.Policies.Watch {
		if err := loader.Watch(ctx, []string{cfg.Policies.Dir}, save); err != nil {
			return nil, err
		}
	}

	return loader, nil
}

// readEvaluationInput parses an evaluation input document (YAML or JSON).
func readEvaluationInput(path string) (*resource.EvaluationInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input %s: %w", path, err)
	}

	input := &resource.EvaluationInput{}
	if err := yaml.Unmarshal(data, input); err != nil {
		return nil, fmt.Errorf("failed to parse input %s: %w", path, err)
	}
	if input.Resource == nil {
		return nil, fmt.Errorf("input %s has no resource", path)
	}

	return input, nil
}

// readResources parses a resource inventory document (YAML or JSON).
func readResources(path string) ([]resource.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory %s: %w", path, err)
	}

	var resources []resource.Resource
	if err := yaml.Unmarshal(data, &resources); err != nil {
		return nil, fmt.Errorf("failed to parse inventory %s: %w", path, err)
	}

	return resources, nil
}

// printJSON writes a value as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
