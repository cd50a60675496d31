// Command gossiprouter runs the rendezvous-and-relay server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/ocx/gossiprouter/internal/config"
	"github.com/ocx/gossiprouter/internal/metrics"
	"github.com/ocx/gossiprouter/internal/rendezvous"
	"github.com/ocx/gossiprouter/internal/rendezvous/mirror"
)

var opt struct {
	ConfigPath string
	BindAddr   string
	Port       uint16
	Backlog    uint32
	ExpiryMs   int64
	SOLingerMs int64
	SOTimeout  int64
	JMX        bool
	Help       bool
}

func init() {
	pflag.StringVar(&opt.ConfigPath, "config", "", "Path to a YAML config file")
	pflag.StringVar(&opt.BindAddr, "bind_addr", "", "Address to bind the listener to")
	pflag.Uint16Var(&opt.Port, "port", 0, "TCP port to listen on")
	pflag.Uint32Var(&opt.Backlog, "backlog", 0, "Listen backlog hint")
	pflag.Int64Var(&opt.ExpiryMs, "expiry", -1, "Idle-session sweeper TTL in milliseconds")
	pflag.Int64Var(&opt.SOLingerMs, "solinger", -1, "SO_LINGER duration in milliseconds")
	pflag.Int64Var(&opt.SOTimeout, "sotimeout", -1, "SO_TIMEOUT (read deadline) in milliseconds")
	pflag.BoolVar(&opt.JMX, "jmx", false, "Reserved for parity with the original CLI surface; no-op here")
	pflag.BoolVarP(&opt.Help, "help", "h", false, "Show this help text")
}

func main() {
	// The spec's documented flags (-port, -bind_addr, …) are single-dash
	// long names, but pflag only recognizes those as shorthand clusters
	// unless spelled with two dashes. Rewrite single-dash multi-letter
	// args to double-dash before handing them to pflag so both spellings
	// work; "-h" (a real one-letter shorthand) passes through untouched.
	pflag.CommandLine.Parse(normalizeSingleDashFlags(os.Args[1:]))

	if opt.Help || pflag.NArg() > 0 {
		printUsage()
		if opt.Help {
			os.Exit(0)
		}
		os.Exit(2)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(opt.ConfigPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	server := rendezvous.NewServer(rendezvous.Config{
		BindAddr:              cfg.Server.BindAddr,
		Port:                  cfg.Server.Port,
		Backlog:               cfg.Server.Backlog,
		ExpiryMillis:          cfg.Server.ExpiryMillis,
		LingerMillis:          cfg.Server.LingerMillis,
		ReadTimeoutMillis:     cfg.Server.ReadTimeoutMillis,
		MaxConcurrentSessions: cfg.Server.MaxConcurrentSessions,
	}, collector, log)

	if cfg.Mirror.Enabled {
		wireMirror(server, cfg.Mirror, log)
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, cfg.Metrics.Path, registry, log)
	}

	if err := server.Start(); err != nil {
		log.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	server.Stop()
}

// normalizeSingleDashFlags rewrites "-name" to "--name" for any arg whose
// name is more than one character, so pflag treats it as a long flag
// instead of a shorthand cluster. Already-double-dash args and genuine
// one-letter shorthands ("-h") are left alone.
func normalizeSingleDashFlags(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if len(a) > 2 && a[0] == '-' && a[1] != '-' {
			out[i] = "-" + a
		} else {
			out[i] = a
		}
	}
	return out
}

func applyFlagOverrides(cfg *config.Config) {
	if opt.BindAddr != "" {
		cfg.Server.BindAddr = opt.BindAddr
	}
	if opt.Port != 0 {
		cfg.Server.Port = opt.Port
	}
	if opt.Backlog != 0 {
		cfg.Server.Backlog = int(opt.Backlog)
	}
	if opt.ExpiryMs >= 0 {
		cfg.Server.ExpiryMillis = opt.ExpiryMs
	}
	if opt.SOLingerMs >= 0 {
		cfg.Server.LingerMillis = opt.SOLingerMs
	}
	if opt.SOTimeout >= 0 {
		cfg.Server.ReadTimeoutMillis = opt.SOTimeout
	}
}

func wireMirror(server *rendezvous.Server, cfg config.MirrorConfig, log *slog.Logger) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	m := mirror.New(redisAdapter{rdb}, cfg.KeyPrefix, time.Duration(cfg.TTLMillis)*time.Millisecond, log)
	server.SetConnectObserver(m)
	server.RegisterFailureListener(rendezvous.FailureListenerFunc(func(s *rendezvous.Session, _ error) {
		m.RecordTermination(s.LogicalAddresses())
	}))
}

// redisAdapter narrows *redis.Client down to mirror.Client.
type redisAdapter struct {
	client *redis.Client
}

func (a redisAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return a.client.Set(ctx, key, value, ttl).Err()
}

func (a redisAdapter) Del(ctx context.Context, keys ...string) error {
	return a.client.Del(ctx, keys...).Err()
}

func serveMetrics(addr, path string, registry *prometheus.Registry, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics server exited", "error", err)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "usage: %s [options]\n\noptions:\n%s", os.Args[0], pflag.CommandLine.FlagUsages())
}
