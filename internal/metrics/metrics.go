// Package metrics exposes Prometheus collectors for RPC traffic and auction settlement.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

const namespace = "chitfund"

// Settlement triggers.
const (
	TriggerManual   = "manual"
	TriggerDeadline = "deadline"
	TriggerSweeper  = "sweeper"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	rpcRequests     *prometheus.CounterVec
	rpcDuration     *prometheus.HistogramVec
	bidsPlaced      prometheus.Counter
	auctionsSettled *prometheus.CounterVec
	payouts         prometheus.Counter
	payoutAmount    prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		rpcRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and outcome.",
		}, []string{"procedure", "outcome"}),
		rpcDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		bidsPlaced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_placed_total",
			Help:      "Bids accepted.",
		}),
		auctionsSettled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auctions_settled_total",
			Help:      "Auctions closed, by what triggered the close.",
		}, []string{"trigger"}),
		payouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_total",
			Help:      "Auction payouts recorded.",
		}),
		payoutAmount: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payout_amount_total",
			Help:      "Sum of recorded payouts in the configured currency.",
		}),
	}
}

// ObserveRPC records one call. outcome is "ok" or the error code.
func (m *Metrics) ObserveRPC(procedure, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(procedure, outcome).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(d.Seconds())
}

func (m *Metrics) BidPlaced() {
	if m == nil {
		return
	}
	m.bidsPlaced.Inc()
}

func (m *Metrics) AuctionSettled(trigger string) {
	if m == nil {
		return
	}
	m.auctionsSettled.WithLabelValues(trigger).Inc()
}

func (m *Metrics) PayoutRecorded(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.payouts.Inc()
	m.payoutAmount.Add(amount.InexactFloat64())
}
