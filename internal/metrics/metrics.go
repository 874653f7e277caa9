// Package metrics exposes Prometheus counters for the IRC session and the
// bot commands running on it.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qaix/qaixbot/internal/irc"
)

// Collector implements irc.Observer on its own registry.
type Collector struct {
	Registry *prometheus.Registry

	linesReceived prometheus.Counter
	linesSent     prometheus.Counter
	reconnects    prometheus.Counter
	events        *prometheus.CounterVec
	commands      *prometheus.CounterVec
}

var _ irc.Observer = (*Collector)(nil)

func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)
	return &Collector{
		Registry: reg,

		linesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "qaixbot_irc_lines_received_total",
			Help: "Protocol lines read from the server",
		}),
		linesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "qaixbot_irc_lines_sent_total",
			Help: "Protocol lines written to the server",
		}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Name: "qaixbot_irc_reconnects_total",
			Help: "Reconnect attempts after an unexpected disconnect",
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qaixbot_irc_events_total",
			Help: "Session events by kind",
		}, []string{"kind"}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qaixbot_commands_total",
			Help: "Bot commands handled, by command name",
		}, []string{"command"}),
	}
}

func (c *Collector) LineReceived() { c.linesReceived.Inc() }
func (c *Collector) LineSent()     { c.linesSent.Inc() }
func (c *Collector) Reconnect()    { c.reconnects.Inc() }

func (c *Collector) Event(kind irc.EventKind) {
	c.events.WithLabelValues(kind.String()).Inc()
}

// Command counts one handled bot command.
func (c *Collector) Command(name string) {
	c.commands.WithLabelValues(name).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
