package lib

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

/* This file implements dev-ops telemetry for the node in the form of prometheus metrics */

const metricsPattern = "/metrics"

// Metrics represents a server that exposes Prometheus metrics
// CONTRACT: every method is safe to call on a nil *Metrics
type Metrics struct {
	server   *http.Server         // the http prometheus server
	config   MetricsConfig        // the configuration
	registry *prometheus.Registry // the collectors of this instance
	log      LoggerI              // the logger

	NodeMetrics   // general telemetry about the node
	QuorumMetrics // commitment engine telemetry
	GossipMetrics // commitment gossip telemetry
}

// NodeMetrics represents general telemetry for the node's health
type NodeMetrics struct {
	NodeStatus          prometheus.Gauge     // is the node alive?
	ChainHeight         prometheus.Gauge     // the height of the active chain tip
	BlockProcessingTime prometheus.Histogram // how long does it take for this node to connect a block?
}

// QuorumMetrics represents the telemetry of mined and minable commitments
type QuorumMetrics struct {
	CommitmentsMined   *prometheus.CounterVec // commitments connected per quorum type
	CommitmentsUndone  *prometheus.CounterVec // commitments disconnected per quorum type
	BlocksRejected     *prometheus.CounterVec // blocks rejected per error class
	MinableCommitments prometheus.Gauge       // the size of the minable cache
}

// GossipMetrics represents the telemetry of the commitment message handler
type GossipMetrics struct {
	GossipReceived *prometheus.CounterVec // gossiped commitments per handling result
}

// NewMetricsServer() creates a new telemetry server
func NewMetricsServer(config MetricsConfig, logger LoggerI) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	mux := http.NewServeMux()
	mux.Handle(metricsPattern, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &Metrics{
		server:   &http.Server{Addr: config.PrometheusAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		config:   config,
		registry: registry,
		log:      logger,
		NodeMetrics: NodeMetrics{
			NodeStatus: factory.NewGauge(prometheus.GaugeOpts{
				Name: "llmq_node_status",
				Help: "The node is alive and processing blocks",
			}),
			ChainHeight: factory.NewGauge(prometheus.GaugeOpts{
				Name: "llmq_chain_height",
				Help: "Height of the active chain tip",
			}),
			BlockProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
				Name: "llmq_block_processing_time",
				Help: "Time to connect a block in seconds",
			}),
		},
		QuorumMetrics: QuorumMetrics{
			CommitmentsMined: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "llmq_commitments_mined_total",
				Help: "Final commitments connected to the active chain",
			}, []string{"type"}),
			CommitmentsUndone: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "llmq_commitments_undone_total",
				Help: "Final commitments removed by disconnected blocks",
			}, []string{"type"}),
			BlocksRejected: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "llmq_blocks_rejected_total",
				Help: "Blocks rejected by the commitment rules",
			}, []string{"class"}),
			MinableCommitments: factory.NewGauge(prometheus.GaugeOpts{
				Name: "llmq_minable_commitments",
				Help: "Commitments held in the minable cache",
			}),
		},
		GossipMetrics: GossipMetrics{
			GossipReceived: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "llmq_gossip_received_total",
				Help: "Gossiped commitments received by handling result",
			}, []string{"result"}),
		},
	}
}

// Start() starts the telemetry server
func (m *Metrics) Start() {
	// exit if empty
	if m == nil {
		return
	}
	m.NodeStatus.Set(1)
	// if the metrics server is enabled
	if m.config.MetricsEnabled {
		go func() {
			m.log.Infof("Starting metrics server on %s", m.config.PrometheusAddress)
			// run the server
			if err := m.server.ListenAndServe(); err != nil {
				if err != http.ErrServerClosed {
					m.log.Errorf("Metrics server failed with err: %s", err.Error())
				}
			}
		}()
	}
}

// Stop() gracefully stops the telemetry server
func (m *Metrics) Stop() {
	// exit if empty
	if m == nil {
		return
	}
	// if the metrics server is enabled
	if m.config.MetricsEnabled {
		// shutdown the server
		if err := m.server.Shutdown(context.Background()); err != nil {
			m.log.Error(err.Error())
		}
	}
}

// Registry() exposes the collectors, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// UpdateChainMetrics() records the new tip height and how long the block took to apply
func (m *Metrics) UpdateChainMetrics(height uint64, duration time.Duration) {
	// exit if empty
	if m == nil {
		return
	}
	m.ChainHeight.Set(float64(height))
	if duration > 0 {
		m.BlockProcessingTime.Observe(duration.Seconds())
	}
}

// CommitmentMined() counts a connected commitment
func (m *Metrics) CommitmentMined(quorumType string) {
	if m == nil {
		return
	}
	m.CommitmentsMined.WithLabelValues(quorumType).Inc()
}

// CommitmentUndone() counts a disconnected commitment
func (m *Metrics) CommitmentUndone(quorumType string) {
	if m == nil {
		return
	}
	m.CommitmentsUndone.WithLabelValues(quorumType).Inc()
}

// BlockRejected() counts a rejected block by error class
func (m *Metrics) BlockRejected(class string) {
	if m == nil {
		return
	}
	m.BlocksRejected.WithLabelValues(class).Inc()
}

// SetMinableCommitments() records the size of the minable cache
func (m *Metrics) SetMinableCommitments(count int) {
	if m == nil {
		return
	}
	m.MinableCommitments.Set(float64(count))
}

// GossipResult() counts a gossiped commitment by handling result
func (m *Metrics) GossipResult(result string) {
	if m == nil {
		return
	}
	m.GossipReceived.WithLabelValues(result).Inc()
}
