package render

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/buildtool-accel/buildc/internal/proto"
)

// inputChunkSize bounds how many bytes a single InputData carries while
// servicing a RequestInput (spec §4.5: "chunks bytes into one or more
// InputData messages").
const inputChunkSize = 4096

// Dispatcher is the narrow daemon-facing sink the input handler writes
// InputData, PromptResponse and CancelBuild through.
type Dispatcher interface {
	Send(ctx context.Context, m proto.Message) error
}

// KeyAction is what one interpreted keystroke (spec §4.5) asks the render
// loop to do.
type KeyAction int

const (
	KeyActionNone KeyAction = iota
	KeyActionMoreLines
	KeyActionFewerLines
	KeyActionToggleBuffering
	KeyActionForceRedraw
	KeyActionToggleDisplayDone
)

// interpretKey maps the five recognized raw-mode keystrokes to an action;
// anything else is ignored.
func interpretKey(r rune) KeyAction {
	switch r {
	case '+':
		return KeyActionMoreLines
	case '-':
		return KeyActionFewerLines
	case 0x02: // Ctrl-B
		return KeyActionToggleBuffering
	case 0x0c: // Ctrl-L
		return KeyActionForceRedraw
	case 0x0d: // Ctrl-M
		return KeyActionToggleDisplayDone
	default:
		return KeyActionNone
	}
}

// ApplyKeyAction mutates Model per spec §4.5 and returns the matching
// deferred side effects, using the same Action vocabulary as Apply so a
// single render-loop driver can execute either.
func (m *Model) ApplyKeyAction(a KeyAction) []Action {
	switch a {
	case KeyActionMoreLines:
		if m.LinesPerProject < 10 {
			m.LinesPerProject++
		}
		return m.redraw()

	case KeyActionFewerLines:
		if m.LinesPerProject > 0 {
			m.LinesPerProject--
		}
		return m.redraw()

	case KeyActionToggleBuffering:
		m.NoBuffering = !m.NoBuffering
		if !m.NoBuffering {
			return []Action{{Kind: ActionRedraw}}
		}
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
		return append(actions, Action{Kind: ActionClearDisplay}, Action{Kind: ActionRedraw})

	case KeyActionForceRedraw:
		return []Action{{Kind: ActionClearDisplay}, {Kind: ActionRedraw}}

	case KeyActionToggleDisplayDone:
		m.DisplayDone = !m.DisplayDone
		return nil

	default:
		return nil
	}
}

// InputHandler owns the terminal's raw-mode read side — thread I of spec
// §5. It is built over a plain io.Reader rather than a live tty directly so
// its keystroke and modal-read logic can be exercised in tests with an
// in-memory pipe; cmd/buildc is responsible for putting the real stdin fd
// into raw (and, for password prompts, no-echo) mode via golang.org/x/term
// before wiring an InputHandler to it.
type InputHandler struct {
	r            *bufio.Reader
	dispatch     Dispatcher
	keyboard     chan<- proto.Message
	dumbTerminal bool
}

// NewInputHandler constructs a handler reading from r. keyboard is the
// render loop's inbound queue (spec §4.5: keystrokes arrive there as
// internal KeyboardInput messages).
func NewInputHandler(r io.Reader, dispatch Dispatcher, keyboard chan<- proto.Message, dumbTerminal bool) *InputHandler {
	return &InputHandler{r: bufio.NewReader(r), dispatch: dispatch, keyboard: keyboard, dumbTerminal: dumbTerminal}
}

// Run reads single characters and enqueues each as a KeyboardInput until ctx
// is canceled or the reader reaches EOF. In dumb-terminal mode it is inert,
// per spec §4.5, and simply waits for cancellation.
func (h *InputHandler) Run(ctx context.Context) error {
	if h.dumbTerminal {
		<-ctx.Done()
		return ctx.Err()
	}
	for {
		r, _, err := h.r.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		select {
		case h.keyboard <- proto.NewKeyboardInput(r):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// HandlePrompt services a Prompt by reading one line (masking, when
// Password is set, is the caller's responsibility via terminal echo
// control) and sending back a PromptResponse.
func (h *InputHandler) HandlePrompt(ctx context.Context, p *proto.Prompt) error {
	line, err := h.readLine()
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return h.dispatch.Send(ctx, proto.NewPromptResponse(p.ProjectID, p.UID, line))
}

func (h *InputHandler) readLine() (string, error) {
	line, err := h.r.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

// HandleRequestInput services a RequestInput by reading up to BytesToRead
// bytes, chunking them into InputData messages, and terminating the
// exchange with a null-data EOF InputData.
func (h *InputHandler) HandleRequestInput(ctx context.Context, req *proto.RequestInput) error {
	remaining := int(req.BytesToRead)
	for remaining > 0 {
		size := remaining
		if size > inputChunkSize {
			size = inputChunkSize
		}
		chunk := make([]byte, size)
		n, err := h.r.Read(chunk)
		if n > 0 {
			s := string(chunk[:n])
			if sendErr := h.dispatch.Send(ctx, proto.NewInputData(&s)); sendErr != nil {
				return sendErr
			}
			remaining -= n
		}
		if err != nil {
			break
		}
	}
	return h.dispatch.Send(ctx, proto.NewInputData(nil))
}

// WatchSignals enqueues CancelBuild and cancels ctx on SIGINT/SIGTERM, so
// every other blocking read (wire, tty) unblocks promptly.
func (h *InputHandler) WatchSignals(ctx context.Context, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case <-sigCh:
		_ = h.dispatch.Send(ctx, proto.NewCancelBuild())
		cancel()
	case <-ctx.Done():
	}
}
