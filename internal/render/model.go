// Package render implements the client-side render model, render loop,
// layout, and input handler of spec §3.2-§3.4 and §4.4-§4.5: the
// single-threaded consumer of the daemon's event stream that maintains an
// in-memory model of projects, transfers, and failures and drives a
// redrawable TUI.
//
// All of render.Model's fields are touched only by the render loop's
// goroutine (thread M, spec §5) — ownership is encoded as an ordinary
// struct rather than enforced with runtime thread-name assertions, per
// spec §9.
package render

import (
	"fmt"
	"time"

	"github.com/buildtool-accel/buildc/internal/logsink"
	"github.com/buildtool-accel/buildc/internal/proto"
)

// unrecognizedOptionClass is the one class name spec §4.4/§9 special-cases
// when rendering a BuildException. No other class names are recognized —
// this is an explicit Open Question decision (see DESIGN.md), not an
// oversight.
const unrecognizedOptionClass = "org.apache.commons.cli.UnrecognizedOptionException"

// Stream selects which OS stream an immediate write targets.
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

// ActionKind discriminates the side effects Model.Apply asks its caller to
// perform. Model itself never touches a terminal, a socket, or the sink
// directly — that keeps the state machine synchronously testable, mirroring
// how the teacher's bubbletea Update returns tea.Cmd values describing
// deferred I/O instead of performing it inline.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionWrite
	ActionClearDisplay
	ActionFlushSink
	ActionCloseSink
	ActionForwardToDaemon
	ActionHandPrompt
	ActionHandRequestInput
	ActionRedraw
	ActionStop
)

// Action is one deferred side effect produced by Model.Apply.
type Action struct {
	Kind         ActionKind
	Stream       Stream
	Text         string
	Forward      proto.Message
	Prompt       *proto.Prompt
	RequestInput *proto.RequestInput
}

func writeAction(stream Stream, text string) Action { return Action{Kind: ActionWrite, Stream: stream, Text: text} }

// Model is the render-side state machine. Construct with NewModel and
// drive it exclusively from the render loop goroutine via Apply.
type Model struct {
	// Build identity / progress
	Name                    string
	DaemonID                string
	TotalProjects           int32
	DoneProjects            int32
	MaxThreads              int32
	ArtifactIDDisplayLength int32
	BuildActive             bool
	BuildStatus             string

	// Modes
	NoBuffering     bool
	DumbTerminal    bool
	DisplayDone     bool
	LinesPerProject int

	// Terminal geometry, updated on resize.
	Width, Height int

	projects     map[string]*Project
	projectOrder []string
	nextOrder    int

	Transfers *TransferTable
	Failures  []Failure

	StartTime time.Time

	sink logsink.Sink

	closed bool
}

// NewModel constructs a fresh render model. sink may be nil until the
// first BuildStarted if the caller wires it up lazily; most callers pass a
// concrete logsink.Sink from construction.
func NewModel(sink logsink.Sink) *Model {
	return &Model{
		projects:        make(map[string]*Project),
		Transfers:       newTransferTable(),
		LinesPerProject: 0,
		StartTime:       time.Now(),
		sink:            sink,
	}
}

// Projects returns the active projects in insertion (start) order.
func (m *Model) Projects() []*Project {
	out := make([]*Project, 0, len(m.projectOrder))
	for _, id := range m.projectOrder {
		if p, ok := m.projects[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (m *Model) findOrCreateProject(id string) *Project {
	if p, ok := m.projects[id]; ok {
		return p
	}
	p := newProject(id, m.nextOrder)
	m.nextOrder++
	m.projects[id] = p
	m.projectOrder = append(m.projectOrder, id)
	return p
}

func (m *Model) removeProject(id string) (*Project, bool) {
	p, ok := m.projects[id]
	if !ok {
		return nil, false
	}
	delete(m.projects, id)
	for i, pid := range m.projectOrder {
		if pid == id {
			m.projectOrder = append(m.projectOrder[:i], m.projectOrder[i+1:]...)
			break
		}
	}
	return p, true
}

// Apply advances the state machine by one message (spec §4.4's dispatch
// table) and returns the side effects the caller must perform, in order.
func (m *Model) Apply(msg proto.Message) []Action {
	switch msg := msg.(type) {

	case *proto.BuildStarted:
		m.Name = msg.ProjectID
		m.TotalProjects = msg.ProjectCount
		m.MaxThreads = msg.MaxThreads
		m.ArtifactIDDisplayLength = msg.ArtifactIDDisplayLength
		m.BuildActive = true
		m.DoneProjects = 0
		var actions []Action
		if msg.MaxThreads <= 1 || msg.ProjectCount <= 1 {
			m.NoBuffering = true
			m.projects = make(map[string]*Project)
			m.projectOrder = nil
			actions = append(actions, Action{Kind: ActionClearDisplay})
		}
		return append(actions, Action{Kind: ActionRedraw})

	case *proto.ProjectStarted:
		m.findOrCreateProject(msg.ProjectID)
		return m.redraw()

	case *proto.MojoStarted:
		p := m.findOrCreateProject(msg.ArtifactID)
		p.RunningExecution = msg
		return m.redraw()

	case *proto.ProjectStopped:
		var actions []Action
		if p, ok := m.removeProject(msg.ProjectID); ok {
			for _, line := range p.Log {
				actions = append(actions, m.writeToSink(line)...)
			}
		}
		m.DoneProjects++
		if m.DisplayDone {
			actions = append(actions, Action{Kind: ActionFlushSink})
		}
		return append(actions, m.redraw()...)

	case *proto.ProjectLogMessage:
		p, known := m.projects[msg.ProjectID]
		if !known || m.NoBuffering || m.DumbTerminal {
			text := msg.Message
			if m.MaxThreads > 1 {
				text = fmt.Sprintf("[%s] %s", msg.ProjectID, msg.Message)
			}
			return m.writeToSink(text)
		}
		p.appendLog(msg.Message)
		return m.redraw()

	case *proto.BuildLogMessage:
		return m.writeToSink(msg.Message)

	case *proto.PrintOut:
		return m.printDirect(StreamStdout, msg.Message)

	case *proto.PrintErr:
		return m.printDirect(StreamStderr, msg.Message)

	case *proto.Display:
		return []Action{
			{Kind: ActionClearDisplay},
			writeAction(StreamStdout, fmt.Sprintf("[%s] %s", msg.ProjectID, msg.Message)),
		}

	case *proto.Prompt:
		if m.DumbTerminal {
			return []Action{writeAction(StreamStdout, "")}
		}
		return []Action{
			{Kind: ActionClearDisplay},
			{Kind: ActionHandPrompt, Prompt: msg},
		}

	case *proto.RequestInput:
		return []Action{{Kind: ActionHandRequestInput, RequestInput: msg}}

	case *proto.InputData:
		return []Action{{Kind: ActionForwardToDaemon, Forward: msg}}

	case *proto.BuildStatus:
		m.BuildStatus = msg.Message
		return m.redraw()

	case *proto.BuildFinished:
		return m.finish()

	case *proto.BuildException:
		actions := m.finish()
		text := msg.Message
		if msg.ClassName == unrecognizedOptionClass {
			text = "Unable to parse command line options: " + text
		}
		return append([]Action{{Kind: ActionWrite, Stream: StreamStderr, Text: failureStyle.Render(text)}}, actions...)

	case *proto.TransferEvent:
		return m.applyTransfer(msg)

	case *proto.ExecutionFailure:
		f := Failure{ProjectID: msg.ProjectID, Halted: msg.Halted}
		if msg.Exception != nil {
			f.Exception = *msg.Exception
		}
		m.Failures = append(m.Failures, f)
		return m.redraw()

	default:
		switch msg.Tag() {
		case proto.TagKeepAlive:
			return nil
		case proto.TagCancelBuild:
			actions := m.finish()
			return append([]Action{{Kind: ActionWrite, Stream: StreamStderr, Text: failureStyle.Render("The build was canceled")}}, actions...)
		}
		return nil
	}
}

func (m *Model) applyTransfer(e *proto.TransferEvent) []Action {
	switch e.Tag() {
	case proto.TagTransferInitiated, proto.TagTransferStarted, proto.TagTransferProgress:
		m.Transfers.upsert(e)
	case proto.TagTransferCorrupted, proto.TagTransferSucceeded, proto.TagTransferFailed:
		m.Transfers.remove(e)
	}
	return m.redraw()
}

func (m *Model) writeToSink(line string) []Action {
	if m.sink == nil {
		return []Action{writeAction(StreamStdout, line)}
	}
	_ = m.sink.WriteLine(line)
	return nil
}

// FlushSink makes any buffered sink output visible (spec §4.5: a
// DisplayDone on a project flushes what's been written so far). A nil sink
// is a no-op, matching writeToSink's fallback-to-stdout posture.
func (m *Model) FlushSink() error {
	if m.sink == nil {
		return nil
	}
	return m.sink.Flush()
}

// CloseSink flushes and releases the sink (spec §4.4: a terminal
// BuildFinished/BuildException/CancelBuild closes it).
func (m *Model) CloseSink() error {
	if m.sink == nil {
		return nil
	}
	return m.sink.Close()
}

func (m *Model) printDirect(stream Stream, message string) []Action {
	if _, fileBacked := m.sink.(*logsink.FileLog); fileBacked {
		return m.writeToSink(message)
	}
	return []Action{
		{Kind: ActionClearDisplay},
		writeAction(stream, message),
	}
}

func (m *Model) redraw() []Action {
	if m.NoBuffering || m.DumbTerminal {
		return nil
	}
	return []Action{{Kind: ActionRedraw}}
}

// finish implements the common BuildFinished/BuildException/CancelBuild
// tail: flush every project's buffered log to the sink, clear the display,
// close the sink, and stop the render loop.
func (m *Model) finish() []Action {
	var actions []Action
	for _, id := range append([]string(nil), m.projectOrder...) {
		if p, ok := m.projects[id]; ok {
			for _, line := range p.Log {
				actions = append(actions, m.writeToSink(line)...)
			}
		}
	}
	m.projects = make(map[string]*Project)
	m.projectOrder = nil
	m.BuildActive = false
	m.closed = true
	actions = append(actions,
		Action{Kind: ActionClearDisplay},
		Action{Kind: ActionCloseSink},
		Action{Kind: ActionStop},
	)
	return actions
}

// Closed reports whether the loop has reached a terminal state.
func (m *Model) Closed() bool { return m.closed }
