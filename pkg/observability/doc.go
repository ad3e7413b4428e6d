/*
Package observability turns workflow lifecycle hooks into Prometheus metrics
and structured log lines.

	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	...
	hooks := m.Hooks().Merge(observability.LogHooks(logger))
	engine := clarify.NewEngine(gen, clarify.WithLifecycleHooks(hooks))
*/
package observability
