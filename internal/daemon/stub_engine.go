package daemon

import (
	"context"

	"github.com/buildtool-accel/buildc/internal/proto"
)

// StubEngine is the Engine buildd runs against until a real build tool is
// embedded (spec §1 Non-goal: project-graph resolution and plugin
// execution are out of scope for this module). It accepts a request,
// announces a single synthetic project, and finishes immediately — enough
// to exercise the whole wire/render pipeline end to end without a real
// build behind it.
type StubEngine struct{}

func (StubEngine) Run(ctx context.Context, req *proto.BuildRequest) (<-chan proto.Message, error) {
	ch := make(chan proto.Message, 4)
	ch <- proto.NewBuildStarted(req.ProjectDir, 1, 1, 20)
	ch <- proto.NewProjectStarted(req.ProjectDir)
	ch <- proto.NewProjectStopped(req.ProjectDir)
	ch <- proto.NewBuildFinished(0)
	close(ch)
	return ch, nil
}

func (StubEngine) Cancel() {}

func (StubEngine) Respond(msg proto.Message) error { return nil }
