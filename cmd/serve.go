package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/courtsim/courtsim/sim/live"
	"github.com/courtsim/courtsim/sim/telemetry"
)

// serveOptions holds the flags of `courtsim serve`.
type serveOptions struct {
	engineOptions
	leaguePath string
	dbPath     string
	addr       string
	seed       int64
	interval   time.Duration
}

var serveOpts serveOptions

// serveCmd streams live games over websockets
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve live games over websocket with Prometheus metrics",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runServer(ctx, serveOpts); err != nil {
			logrus.Fatalf("serve: %v", err)
		}
	},
}

// newServeMux routes /ws to the gateway, /metrics to reg and /health to a
// liveness probe.
func newServeMux(gw *live.Gateway, reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", gw)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "ok %d live\n", gw.Running())
	})
	return mux
}

func runServer(ctx context.Context, o serveOptions) error {
	b, err := openBackend(ctx, o.leaguePath, o.dbPath)
	if err != nil {
		return err
	}
	defer b.Close()
	engine, tree, err := o.load()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := telemetry.NewRecorder(reg)
	if err != nil {
		return err
	}
	gw := &live.Gateway{
		Store:    b,
		Engine:   engine,
		Tree:     tree,
		Seed:     o.seed,
		Interval: o.interval,
		Recorder: rec,
	}
	srv := &http.Server{
		Addr:              o.addr,
		Handler:           newServeMux(gw, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logrus.Infof("Listening on %s", o.addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logrus.Info("Shutting down")
	gw.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func init() {
	serveCmd.Flags().StringVar(&serveOpts.leaguePath, "league", "", "League YAML file (teams, ratings, schedule)")
	serveCmd.Flags().StringVar(&serveOpts.dbPath, "db", "", "SQLite database file to read rosters from")
	serveCmd.Flags().StringVar(&serveOpts.addr, "addr", ":8080", "Listen address")
	serveCmd.Flags().Int64Var(&serveOpts.seed, "seed", 42, "Master seed; each live game derives its own unless ?seed= is given")
	serveCmd.Flags().DurationVar(&serveOpts.interval, "interval", 100*time.Millisecond, "Wall-clock period between game updates")
	serveCmd.Flags().StringVar(&serveOpts.configPath, "config", "", "Engine config YAML overriding the defaults")
	serveCmd.Flags().StringVar(&serveOpts.treePath, "tree", "", "Behavior tree YAML (default: built-in tree)")

	rootCmd.AddCommand(serveCmd)
}
