package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	rtgpclient "github.com/rtype-net/rtgp/client"
	"github.com/rtype-net/rtgp/internal/connstate"
	"github.com/rtype-net/rtgp/internal/telemetry"
	"github.com/rtype-net/rtgp/internal/transport"
	"github.com/rtype-net/rtgp/internal/wire"
)

const version = "1.0.0"

type config struct {
	ServerAddr string
	LogFile    string
}

func loadConfig() config {
	cfg := config{ServerAddr: "127.0.0.1:4242"}
	flag.StringVar(&cfg.ServerAddr, "server", cfg.ServerAddr, "RTGP server address to connect to")
	flag.StringVar(&cfg.LogFile, "log-file", "", "rotating log file path (empty disables file logging)")
	flag.Parse()
	return cfg
}

func main() {
	cfg := loadConfig()

	log := telemetry.NewSink(cfg.LogFile, 50, 3, 14)
	defer log.Sync()

	socket, err := transport.DialUDP(cfg.ServerAddr)
	if err != nil {
		log.Errorw("dial failed", "addr", cfg.ServerAddr, "err", err)
		os.Exit(1)
	}
	defer socket.Close()

	c := rtgpclient.New(socket, cfg.ServerAddr, rtgpclient.WithLogger(log))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Run(ctx)
	}()

	if err := c.Connect(ctx); err != nil {
		log.Errorw("connect failed", "err", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go pollLoop(c, log)
	go chatInputLoop(ctx, c)

	fmt.Printf("rtgp-client %s connecting to %s — type a message and press enter to chat, Ctrl+C to quit\n", version, cfg.ServerAddr)

	select {
	case err := <-errCh:
		if err != nil {
			log.Errorw("client exited with error", "err", err)
		}
	case sig := <-sigCh:
		log.Infow("received signal, disconnecting", "signal", sig.String())
		_ = c.Disconnect(ctx, wire.ReasonLocalRequest)
		time.Sleep(200 * time.Millisecond)
		cancel()
		<-errCh
	}
}

func pollLoop(c *rtgpclient.Client, log telemetry.Sink) {
	for {
		ev, ok := c.Poll()
		if !ok {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		switch ev.Kind {
		case rtgpclient.EventConnected:
			log.Infow("connected", "user_id", c.UserID())
		case rtgpclient.EventDisconnected:
			log.Infow("disconnected", "reason", ev.Reason.String())
			if c.State() == connstate.StateDisconnected {
				return
			}
		case rtgpclient.EventMessage:
			if chat, ok := ev.Payload.(wire.ChatPayload); ok && ev.Opcode == wire.OpServerChat {
				fmt.Printf("[user %d] %s\n", chat.UserID, chat.Text())
			}
		}
	}
}

func chatInputLoop(ctx context.Context, c *rtgpclient.Client) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		_ = c.SendChat(ctx, line)
	}
}
