package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "engine_cycles_total", Help: "Unit cycles run, by outcome"},
		[]string{"strategy", "outcome"},
	)
	OrdersPlacedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_placed_total", Help: "Quotes placed on the venue"},
		[]string{"strategy", "side"},
	)
	OrdersCancelledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_cancelled_total", Help: "Resting orders cancelled"},
		[]string{"strategy"},
	)
	ExecutionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "execution_errors_total", Help: "Classified execution failures"},
		[]string{"strategy", "kind"},
	)
	ProposalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "proposals_total", Help: "Advisor proposals, by validation outcome"},
		[]string{"strategy", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, OrdersPlacedTotal, OrdersCancelledTotal, ExecutionErrorsTotal, ProposalsTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
