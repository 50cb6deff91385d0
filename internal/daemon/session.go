package daemon

import (
	"context"

	"github.com/buildtool-accel/buildc/internal/obslog"
	"github.com/buildtool-accel/buildc/internal/proto"
	"github.com/buildtool-accel/buildc/internal/resume"
)

// Peer is the narrow slice of transport.Peer a Session needs: the inbound
// frame queue and the outbound send. Declared here (rather than importing
// *transport.Peer directly) so a Session can be driven in tests without a
// real socket.
type Peer interface {
	Inbound() <-chan proto.Message
	Send(ctx context.Context, m proto.Message) error
}

// Session is the daemon's per-connection goroutine group (SPEC_FULL §5):
// it drives exactly one client's build request against an Engine, relays
// the engine's event stream back over peer, and folds interactive
// PromptResponse/InputData/CancelBuild frames from the client into the
// engine.
type Session struct {
	peer   Peer
	engine Engine
	log    obslog.Logger
}

func NewSession(peer Peer, engine Engine, log obslog.Logger) *Session {
	return &Session{peer: peer, engine: engine, log: log}
}

// Run blocks until the peer's inbound queue closes or ctx is canceled. The
// first frame it expects is a BuildRequest; anything else arriving before
// one is ignored (a session drives exactly one build).
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-s.peer.Inbound():
			if !ok {
				return nil
			}
			if req, isReq := msg.(*proto.BuildRequest); isReq {
				return s.runBuild(ctx, req)
			}
		}
	}
}

func (s *Session) runBuild(ctx context.Context, req *proto.BuildRequest) error {
	args, err := resume.Apply(req.Args, req.ProjectDir)
	if err != nil {
		s.log.Warn("resume apply failed, continuing without resume-from", obslog.F("err", err))
		args = req.Args
	}
	resolved := proto.NewBuildRequest(args, req.WorkingDir, req.ProjectDir, req.Env, req.EnvOrder)

	events, err := s.engine.Run(ctx, resolved)
	if err != nil {
		return s.peer.Send(ctx, proto.NewBuildException(err.Error(), "", ""))
	}

	active := make(map[string]struct{})
	var failedProjects []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if sendErr := s.peer.Send(ctx, ev); sendErr != nil {
				return sendErr
			}
			switch m := ev.(type) {
			case *proto.ProjectStarted:
				active[m.ProjectID] = struct{}{}
			case *proto.ProjectStopped:
				delete(active, m.ProjectID)
			case *proto.ExecutionFailure:
				failedProjects = append(failedProjects, m.ProjectID)
			case *proto.BuildFinished:
				return s.concludeBuild(req.ProjectDir, active, failedProjects)
			case *proto.BuildException:
				return s.concludeBuild(req.ProjectDir, active, failedProjects)
			}

		case inbound, ok := <-s.peer.Inbound():
			if !ok {
				return nil
			}
			s.relayInbound(inbound)
		}
	}
}

func (s *Session) relayInbound(msg proto.Message) {
	switch msg.Tag() {
	case proto.TagCancelBuild:
		s.engine.Cancel()
	case proto.TagPromptResponse, proto.TagInputData:
		if err := s.engine.Respond(msg); err != nil {
			s.log.Warn("engine rejected interactive response", obslog.F("err", err))
		}
	}
}

// concludeBuild persists or clears the resumption file depending on
// whether any projects remain unfinished or failed (SPEC_FULL §4.9).
func (s *Session) concludeBuild(projectDir string, active map[string]struct{}, failed []string) error {
	remaining := make([]string, 0, len(active)+len(failed))
	seen := make(map[string]struct{}, len(active)+len(failed))
	for id := range active {
		remaining = append(remaining, id)
		seen[id] = struct{}{}
	}
	for _, id := range failed {
		if _, dup := seen[id]; !dup {
			remaining = append(remaining, id)
			seen[id] = struct{}{}
		}
	}

	var err error
	if len(remaining) > 0 {
		err = resume.Persist(projectDir, remaining)
	} else {
		err = resume.Remove(projectDir)
	}
	if err != nil {
		s.log.Warn("resumption persistence failed", obslog.F("err", err))
	}
	return nil
}
