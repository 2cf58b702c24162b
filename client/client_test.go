package rtgpclient

import (
	"context"
	"testing"
	"time"

	"github.com/rtype-net/rtgp/internal/transport"
	"github.com/rtype-net/rtgp/internal/wire"
)

// fakeServerAccept reads one datagram off net["server"] and, if it is
// C_CONNECT, replies with S_ACCEPT carrying assignedID.
func fakeServerAccept(t *testing.T, net map[string]*transport.LoopbackSocket, assignedID uint32) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	dg, err := net["server"].Recv(ctx)
	if err != nil {
		t.Fatalf("server Recv: %v", err)
	}
	h, err := wire.Validate(dg.Data, false)
	if err != nil {
		t.Fatalf("server Validate: %v", err)
	}
	if h.Opcode != wire.OpConnect {
		t.Fatalf("opcode = %v, want OpConnect", h.Opcode)
	}
	payload := wire.AcceptPayload{AssignedUserID: assignedID}.Encode()
	resp := wire.NewHeader(wire.OpAccept, wire.ServerUserID, 0, len(payload))
	buf := make([]byte, wire.HeaderSize+len(payload))
	resp.Encode(buf)
	copy(buf[wire.HeaderSize:], payload)
	if err := net["server"].Send(ctx, "client", buf); err != nil {
		t.Fatalf("server Send: %v", err)
	}
}

func TestClientConnectReceivesAccept(t *testing.T) {
	netw := transport.NewLoopbackNetwork("client", "server")
	c := New(netw["client"], "server")

	go fakeServerAccept(t, netw, 99)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	runCtx, runCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer runCancel()
	go c.Run(runCtx)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ev, ok := c.Poll(); ok {
			if ev.Kind == EventConnected {
				if c.UserID() != 99 {
					t.Errorf("UserID = %d, want 99", c.UserID())
				}
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("never observed EventConnected")
}

func TestClientSendInputEncodesFrame(t *testing.T) {
	netw := transport.NewLoopbackNetwork("client", "server")
	c := New(netw["client"], "server")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.SendInput(ctx, wire.InputLeft|wire.InputFire); err != nil {
		t.Fatalf("SendInput: %v", err)
	}

	dg, err := netw["server"].Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	h, err := wire.Validate(dg.Data, false)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if h.Opcode != wire.OpInput {
		t.Fatalf("Opcode = %v, want OpInput", h.Opcode)
	}
	p, err := wire.DecodeInputPayload(dg.Data[wire.HeaderSize:])
	if err != nil {
		t.Fatalf("DecodeInputPayload: %v", err)
	}
	if p.Buttons != wire.InputLeft|wire.InputFire {
		t.Errorf("Buttons = %b, want %b", p.Buttons, wire.InputLeft|wire.InputFire)
	}
}

func TestClientRejectsOversizedPayload(t *testing.T) {
	netw := transport.NewLoopbackNetwork("client", "server")
	c := New(netw["client"], "server")

	huge := make([]byte, wire.MaxPayloadSize+1)
	ctx := context.Background()
	if err := c.sendFrame(ctx, wire.OpInput, huge); err != wire.ErrPacketTooLarge {
		t.Errorf("err = %v, want ErrPacketTooLarge", err)
	}
}

func TestClientDisconnectRequiresConnectedOrConnecting(t *testing.T) {
	netw := transport.NewLoopbackNetwork("client", "server")
	c := New(netw["client"], "server")

	ctx := context.Background()
	if err := c.Disconnect(ctx, wire.ReasonLocalRequest); err != wire.ErrInvalidStateTransition {
		t.Errorf("err = %v, want ErrInvalidStateTransition", err)
	}
}
