package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/buildtool-accel/buildc/internal/proto"
)

// pipeConn adapts a net.Conn half to io.ReadWriteCloser (already satisfied).

func TestPeerDeliversInboundInOrder(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	server := NewPeer(serverConn, WithKeepAliveInterval(time.Hour))
	client := NewPeer(clientConn, WithKeepAliveInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Run(ctx)
	go client.Run(ctx)

	go func() {
		client.Send(ctx, proto.NewProjectStarted("a"))
		client.Send(ctx, proto.NewProjectLogMessage("a", "line one"))
		client.Send(ctx, proto.NewProjectStopped("a"))
	}()

	want := []proto.Tag{proto.TagProjectStarted, proto.TagProjectLogMessage, proto.TagProjectStopped}
	for _, w := range want {
		select {
		case msg := <-server.Inbound():
			if msg.Tag() != w {
				t.Fatalf("got tag %v want %v", msg.Tag(), w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for tag %v", w)
		}
	}
}

func TestPeerSendsKeepAliveWhenIdle(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	server := NewPeer(serverConn, WithKeepAliveInterval(20*time.Millisecond))
	client := NewPeer(clientConn, WithKeepAliveInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Run(ctx)
	go client.Run(ctx)

	select {
	case msg := <-client.Inbound():
		if msg.Tag() != proto.TagKeepAlive {
			t.Fatalf("expected KeepAlive, got %v", msg.Tag())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for keep-alive")
	}
}

func TestPeerWatchdogKillsDeadConnection(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	// Server never writes (very long keep-alive), so the client's
	// watchdog should fire once idleTimeout elapses.
	server := NewPeer(serverConn, WithKeepAliveInterval(time.Hour))
	client := NewPeer(clientConn, WithKeepAliveInterval(20*time.Millisecond), WithIdleTimeout(60*time.Millisecond))

	ctx := context.Background()
	go server.Run(ctx)

	done := make(chan struct{})
	go func() {
		client.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected watchdog to terminate the peer")
	}
}
