package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rtype-net/rtgp/internal/telemetry"
	"github.com/rtype-net/rtgp/internal/transport"
	rtgpserver "github.com/rtype-net/rtgp/server"
)

const version = "1.0.0"

type config struct {
	ListenAddr string
	MetricsAddr string
	MaxPlayers int
	LogFile    string
}

func loadConfig() config {
	cfg := config{
		ListenAddr:  "0.0.0.0:4242",
		MetricsAddr: "127.0.0.1:9090",
		MaxPlayers:  16,
	}
	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "UDP address to bind")
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "HTTP address to serve /metrics on")
	flag.IntVar(&cfg.MaxPlayers, "max-players", cfg.MaxPlayers, "maximum concurrent peers")
	flag.StringVar(&cfg.LogFile, "log-file", "", "rotating log file path (empty disables file logging)")
	flag.Parse()
	return cfg
}

func main() {
	cfg := loadConfig()

	log := telemetry.NewSink(cfg.LogFile, 100, 5, 28)
	defer log.Sync()

	collector := telemetry.NewCollector(func(err error) {
		log.Errorw("metrics collection error", "err", err)
	})
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		log.Errorw("register collector", "err", err)
		os.Exit(1)
	}

	socket, err := transport.ListenUDP(cfg.ListenAddr)
	if err != nil {
		log.Errorw("bind failed", "addr", cfg.ListenAddr, "err", err)
		os.Exit(1)
	}
	defer socket.Close()

	srv := rtgpserver.New(socket,
		rtgpserver.WithLogger(log),
		rtgpserver.WithCollector(collector),
		rtgpserver.WithMaxPlayers(cfg.MaxPlayers),
	)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		log.Infow("metrics endpoint listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			log.Warnw("metrics server stopped", "err", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
	}()

	log.Infow("server started", "version", version, "listen", cfg.ListenAddr, "max_players", cfg.MaxPlayers)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			ev, ok := srv.Poll()
			if !ok {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			switch ev.Kind {
			case rtgpserver.EventPeerConnected:
				log.Infow("peer connected", "user_id", ev.UserID)
			case rtgpserver.EventPeerDisconnected:
				log.Infow("peer disconnected", "user_id", ev.UserID, "reason", ev.Reason.String())
			case rtgpserver.EventMessage:
				// Domain-specific message handling (lobby/match logic) lives
				// above this entry point; this loop only logs traffic.
			}
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Errorw("server exited with error", "err", err)
		}
	case sig := <-sigCh:
		log.Infow("received signal, shutting down", "signal", sig.String())
		cancel()
		<-errCh
	}

	fmt.Println("rtgp-server stopped")
}
