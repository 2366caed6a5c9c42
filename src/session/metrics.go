package session

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/grafeo-db/grafeo/src/session")

// registerGauges wires detailed_stats()'s counters as OTel observable
// gauges, the in-process analogue of the teacher's gRPC-era metrics
// export. No exporter is configured here; a caller that wants the
// readings to leave the process installs one on the global
// MeterProvider before calling Open.
func (db *Database) registerGauges() (metric.Registration, error) {
	nodeGauge, err := meter.Int64ObservableGauge("grafeo.graph.nodes")
	if err != nil {
		return nil, err
	}
	edgeGauge, err := meter.Int64ObservableGauge("grafeo.graph.edges")
	if err != nil {
		return nil, err
	}
	dictGauge, err := meter.Int64ObservableGauge("grafeo.dictionary.entries")
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(nodeGauge, int64(db.store.NodeCount()))
		o.ObserveInt64(edgeGauge, int64(db.store.EdgeCount()))
		o.ObserveInt64(dictGauge, int64(db.store.Dict.Len()))
		return nil
	}, nodeGauge, edgeGauge, dictGauge)
}
