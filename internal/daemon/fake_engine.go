package daemon

import (
	"context"
	"sync"

	"github.com/buildtool-accel/buildc/internal/proto"
)

// FakeEngine is a deterministic scripted test double for Engine, used by
// this package's and internal/transport's tests in place of a real
// embedded build tool.
type FakeEngine struct {
	// Script is replayed verbatim on the channel Run returns.
	Script []proto.Message

	mu        sync.Mutex
	canceled  bool
	responses []proto.Message
}

func NewFakeEngine(script ...proto.Message) *FakeEngine {
	return &FakeEngine{Script: script}
}

func (f *FakeEngine) Run(ctx context.Context, req *proto.BuildRequest) (<-chan proto.Message, error) {
	ch := make(chan proto.Message, len(f.Script))
	for _, m := range f.Script {
		ch <- m
	}
	close(ch)
	return ch, nil
}

func (f *FakeEngine) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = true
}

func (f *FakeEngine) Canceled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canceled
}

func (f *FakeEngine) Respond(msg proto.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, msg)
	return nil
}

func (f *FakeEngine) Responses() []proto.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]proto.Message(nil), f.responses...)
}
