package daemon

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/buildtool-accel/buildc/internal/obslog"
	"github.com/buildtool-accel/buildc/internal/proto"
	"github.com/buildtool-accel/buildc/internal/resume"
)

type fakePeer struct {
	inbound chan proto.Message
	sent    []proto.Message
}

func newFakePeer() *fakePeer {
	return &fakePeer{inbound: make(chan proto.Message, 16)}
}

func (p *fakePeer) Inbound() <-chan proto.Message { return p.inbound }
func (p *fakePeer) Send(_ context.Context, m proto.Message) error {
	p.sent = append(p.sent, m)
	return nil
}

func TestSessionRelaysEngineEventsAndPersistsNothingOnCleanFinish(t *testing.T) {
	dir := t.TempDir()
	engine := NewFakeEngine(
		proto.NewProjectStarted("mod-a"),
		proto.NewProjectStopped("mod-a"),
		proto.NewBuildFinished(0),
	)
	peer := newFakePeer()
	peer.inbound <- proto.NewBuildRequest([]string{"install"}, "/work", dir, nil, nil)

	s := NewSession(peer, engine, obslog.New(io.Discard, obslog.LevelInfo))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(peer.sent) != 3 {
		t.Fatalf("expected all 3 engine events relayed, got %d", len(peer.sent))
	}
	if _, present, _ := resume.Read(dir); present {
		t.Fatalf("expected no resumption file after a clean finish")
	}
}

func TestSessionPersistsRemainingProjectsOnFailure(t *testing.T) {
	dir := t.TempDir()
	reason := "boom"
	engine := NewFakeEngine(
		proto.NewProjectStarted("mod-a"),
		proto.NewProjectStarted("mod-b"),
		proto.NewProjectStopped("mod-a"),
		proto.NewExecutionFailure("mod-b", true, &reason),
		proto.NewBuildException("build failed", "", ""),
	)
	peer := newFakePeer()
	peer.inbound <- proto.NewBuildRequest([]string{"install"}, "/work", dir, nil, nil)

	s := NewSession(peer, engine, obslog.New(io.Discard, obslog.LevelInfo))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	ids, present, err := resume.Read(dir)
	if err != nil || !present {
		t.Fatalf("expected a resumption record, present=%v err=%v", present, err)
	}
	if len(ids) != 1 || ids[0] != "mod-b" {
		t.Fatalf("got %v, want [mod-b]", ids)
	}
}

func TestSessionForwardsCancelBuildToEngine(t *testing.T) {
	dir := t.TempDir()
	engine := NewFakeEngine(proto.NewBuildFinished(0))
	peer := newFakePeer()
	peer.inbound <- proto.NewBuildRequest([]string{"install"}, "/work", dir, nil, nil)
	peer.inbound <- proto.NewCancelBuild()

	s := NewSession(peer, engine, obslog.New(io.Discard, obslog.LevelInfo))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestSessionForwardsPromptResponseToEngine(t *testing.T) {
	dir := t.TempDir()
	engine := NewFakeEngine(proto.NewBuildFinished(0))
	peer := newFakePeer()
	peer.inbound <- proto.NewBuildRequest([]string{"install"}, "/work", dir, nil, nil)
	peer.inbound <- proto.NewPromptResponse("mod-a", "uid-1", "yes")

	s := NewSession(peer, engine, obslog.New(io.Discard, obslog.LevelInfo))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(engine.Responses()) != 1 {
		t.Fatalf("expected the PromptResponse to reach the engine")
	}
}
