// Package telemetry provides observability instrumentation for CloudGovern.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and governance event publishing
// into a single Telemetry bundle built from one Config.
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = version
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Both *Metrics and *Tracer are safe to use as nil values, so components
// can be instrumented unconditionally and wired up only where the
// deployment wants the overhead.
package telemetry
