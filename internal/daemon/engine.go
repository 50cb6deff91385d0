// Package daemon implements the daemon-side session loop (SPEC_FULL §5,
// §6.5): the per-connection goroutine group that drives one client's build
// request against an embedded build engine, and the Engine interface that
// engine must satisfy.
package daemon

import (
	"context"

	"github.com/buildtool-accel/buildc/internal/proto"
)

// Engine is the external collaborator interface a real embedded build tool
// implements (SPEC_FULL §6.5). This module ships only the interface and a
// scripted test double — project-graph resolution and plugin execution are
// out of scope (spec §1 Non-goal).
type Engine interface {
	// Run starts executing req and streams D→C messages until the build
	// concludes (a BuildFinished or BuildException is always the final
	// event) or ctx is canceled.
	Run(ctx context.Context, req *proto.BuildRequest) (<-chan proto.Message, error)
	// Cancel signals the currently running build to stop, mirroring a
	// CancelBuild arriving from the client.
	Cancel()
	// Respond feeds a PromptResponse or InputData back into the running
	// build, the C→D half of an interactive exchange the engine initiated
	// with a Prompt or RequestInput.
	Respond(msg proto.Message) error
}
