package main

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/buildtool-accel/buildc/internal/config"
	"github.com/buildtool-accel/buildc/internal/obslog"
	"github.com/buildtool-accel/buildc/internal/proto"
)

func TestHandleConnRunsABuildAgainstTheStubEngine(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	cfg := config.Defaults()
	log := obslog.New(io.Discard, obslog.LevelInfo)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handleConn(ctx, serverConn, cfg, log)
	}()

	w := proto.NewWriter(clientConn)
	if err := w.WriteMessage(proto.NewBuildRequest([]string{"install"}, "/work", t.TempDir(), nil, nil)); err != nil {
		t.Fatalf("writing build request: %v", err)
	}

	r := proto.NewReader(clientConn)
	var sawFinished bool
	for i := 0; i < 8; i++ {
		msg, err := r.ReadMessage()
		if err != nil {
			break
		}
		if _, ok := msg.(*proto.BuildFinished); ok {
			sawFinished = true
			break
		}
	}
	if !sawFinished {
		t.Fatal("expected a BuildFinished message from the stub engine")
	}

	clientConn.Close()
	<-done
}
