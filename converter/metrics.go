package converter

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	entityCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ptaccess",
		Name:      "entities_total",
		Help:      "OSM entities seen by the converter",
	}, []string{"type"})
	zoneCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ptaccess",
		Name:      "transfer_zones_total",
		Help:      "Transfer zone decisions (created, placeholder, unmapped)",
	}, []string{"outcome"})
	connectoidCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ptaccess",
		Name:      "connectoids_total",
		Help:      "Directed connectoids created",
	})
	splitCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ptaccess",
		Name:      "link_splits_total",
		Help:      "Network links split to create access nodes",
	})
	errorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ptaccess",
		Name:      "entity_errors_total",
		Help:      "Entity scoped conversion failures",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(entityCount, zoneCount, connectoidCount, splitCount, errorCount)
}

// Stats are the final counts of one conversion.
type Stats struct {
	Nodes     int
	Ways      int
	Relations int

	Zones         int
	Placeholders  int
	UnmappedZones int
	DanglingZones int
	Groups        int
	Connectoids   int
	SplitLinks    int

	Errors int
}
