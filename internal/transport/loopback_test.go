package transport

import (
	"context"
	"testing"
	"time"
)

func TestLoopbackSendRecvRoundTrip(t *testing.T) {
	net := NewLoopbackNetwork("client", "server")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := net["client"].Send(ctx, "server", []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	dg, err := net["server"].Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(dg.Data) != "hello" {
		t.Errorf("Data = %q, want %q", dg.Data, "hello")
	}
	if dg.From != "client" {
		t.Errorf("From = %q, want %q", dg.From, "client")
	}
}

func TestLoopbackSendToUnknownEndpointFails(t *testing.T) {
	net := NewLoopbackNetwork("client")
	ctx := context.Background()
	if err := net["client"].Send(ctx, "ghost", []byte("x")); err != ErrClosed {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestLoopbackCloseStopsRecv(t *testing.T) {
	net := NewLoopbackNetwork("client", "server")
	if err := net["server"].Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	ctx := context.Background()
	if _, err := net["server"].Recv(ctx); err != ErrClosed {
		t.Errorf("Recv after close: err = %v, want ErrClosed", err)
	}
}

func TestLoopbackDropRateDropsDatagrams(t *testing.T) {
	net := NewLoopbackNetwork("client", "server")
	net["server"].SetDropRate(1.0)

	ctx := context.Background()
	if err := net["client"].Send(ctx, "server", []byte("dropped")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	recvCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := net["server"].Recv(recvCtx); err == nil {
		t.Error("expected Recv to time out because the datagram was dropped")
	}
}

func TestLoopbackRecvRespectsContextCancellation(t *testing.T) {
	net := NewLoopbackNetwork("client")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := net["client"].Recv(ctx); err == nil {
		t.Error("expected Recv to return an error for a cancelled context")
	}
}
