package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector turns bus and registry snapshots into metrics at scrape time, so
// that the bus layer never touches prometheus types.
type Collector struct {
	source Source

	slot           *prometheus.Desc
	heartbeatsSent *prometheus.Desc
	collisions     *prometheus.Desc
	anomalies      *prometheus.Desc
	peerReceived   *prometheus.Desc
	peerLost       *prometheus.Desc
	peerLossRate   *prometheus.Desc
	peerAge        *prometheus.Desc
	variableValid  *prometheus.Desc
	variableAge    *prometheus.Desc
}

// NewCollector ...
func NewCollector(source Source) *Collector {
	slot := []string{"slot"}
	variable := []string{"index", "name", "packet_id", "entry_type"}

	return &Collector{
		source: source,

		slot: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "slot"),
			"Slot currently occupied by this node.", []string{"unique"}, nil),
		heartbeatsSent: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "heartbeats_sent_total"),
			"Heartbeats sent by this node.", nil, nil),
		collisions: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "collisions_total"),
			"Slot conflicts detected.", nil, nil),
		anomalies: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "anomalies_total"),
			"Anomalies raised, by category and info.", []string{"anomaly"}, nil),
		peerReceived: prometheus.NewDesc(prometheus.BuildFQName(namespace, "peer", "received"),
			"Heartbeats received per slot since the slot's tracker was last reset.", slot, nil),
		peerLost: prometheus.NewDesc(prometheus.BuildFQName(namespace, "peer", "lost"),
			"Heartbeats inferred lost per slot since the slot's tracker was last reset.", slot, nil),
		peerLossRate: prometheus.NewDesc(prometheus.BuildFQName(namespace, "peer", "loss_ratio"),
			"Lost over received plus lost, per slot.", slot, nil),
		peerAge: prometheus.NewDesc(prometheus.BuildFQName(namespace, "peer", "age_seconds"),
			"Time since the last new heartbeat, per slot.", slot, nil),
		variableValid: prometheus.NewDesc(prometheus.BuildFQName(namespace, "variable", "valid"),
			"1 when the shared variable is valid.", variable, nil),
		variableAge: prometheus.NewDesc(prometheus.BuildFQName(namespace, "variable", "age_seconds"),
			"Time since the last update of the shared variable.", variable, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.slot
	ch <- c.heartbeatsSent
	ch <- c.collisions
	ch <- c.anomalies
	ch <- c.peerReceived
	ch <- c.peerLost
	ch <- c.peerLossRate
	ch <- c.peerAge
	ch <- c.variableValid
	ch <- c.variableAge
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.BusStats()

	ch <- prometheus.MustNewConstMetric(c.slot, prometheus.GaugeValue,
		float64(stats.Slot), strconv.FormatUint(uint64(stats.Unique), 10))
	ch <- prometheus.MustNewConstMetric(c.heartbeatsSent, prometheus.CounterValue,
		float64(stats.HeartbeatsSent))
	ch <- prometheus.MustNewConstMetric(c.collisions, prometheus.CounterValue,
		float64(stats.Collisions))

	for anomaly, n := range stats.Anomalies {
		ch <- prometheus.MustNewConstMetric(c.anomalies, prometheus.CounterValue,
			float64(n), anomaly)
	}

	for _, p := range stats.Peers {
		slot := strconv.Itoa(p.Slot)
		ch <- prometheus.MustNewConstMetric(c.peerReceived, prometheus.GaugeValue, float64(p.Received), slot)
		ch <- prometheus.MustNewConstMetric(c.peerLost, prometheus.GaugeValue, float64(p.Lost), slot)
		ch <- prometheus.MustNewConstMetric(c.peerLossRate, prometheus.GaugeValue, p.LossRate, slot)
		ch <- prometheus.MustNewConstMetric(c.peerAge, prometheus.GaugeValue, p.Age.Seconds(), slot)
	}

	for i, v := range c.source.Variables() {
		index := strconv.Itoa(i)
		valid := 0.0
		if v.Valid {
			valid = 1
		}
		ch <- prometheus.MustNewConstMetric(c.variableValid, prometheus.GaugeValue, valid,
			index, v.Name, v.PacketID, v.EntryType)
		ch <- prometheus.MustNewConstMetric(c.variableAge, prometheus.GaugeValue, v.Age.Seconds(),
			index, v.Name, v.PacketID, v.EntryType)
	}
}
