package render

import (
	"context"
	"fmt"
	"io"

	"github.com/buildtool-accel/buildc/internal/proto"
)

// Display is what the render loop draws composed frames through. cmd/buildc
// wires a terminal-backed implementation; tests can supply an in-memory
// recorder instead.
type Display interface {
	Clear()
	Draw(f Frame)
	Size() (rows, cols int)
}

// Loop is the thread-M driver of spec §5: it owns Model, consumes both the
// wire-inbound queue and the keystroke queue the input handler (thread I)
// feeds, and executes the Actions Apply/ApplyKeyAction describe. It never
// reads the network or the tty itself.
type Loop struct {
	Model    *Model
	Display  Display
	Input    *InputHandler
	Dispatch Dispatcher

	stdout io.Writer
	stderr io.Writer

	onHandlerErr func(error)
}

// NewLoop constructs a driver. stdout/stderr receive ActionWrite output;
// onHandlerErr, if non-nil, is called with errors from the asynchronous
// Prompt/RequestInput hand-off (a nil func silently drops them, matching
// the teacher's best-effort logging posture for non-fatal I/O).
func NewLoop(model *Model, display Display, input *InputHandler, dispatch Dispatcher, stdout, stderr io.Writer, onHandlerErr func(error)) *Loop {
	return &Loop{Model: model, Display: display, Input: input, Dispatch: dispatch, stdout: stdout, stderr: stderr, onHandlerErr: onHandlerErr}
}

// Run consumes wireInbound and keyboardInbound until the model reaches a
// terminal state, ctx is canceled, or wireInbound closes.
func (l *Loop) Run(ctx context.Context, wireInbound <-chan proto.Message, keyboardInbound <-chan proto.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-wireInbound:
			if !ok {
				return nil
			}
			l.execute(ctx, l.Model.Apply(msg))
			if l.Model.Closed() {
				return nil
			}

		case msg, ok := <-keyboardInbound:
			if !ok {
				keyboardInbound = nil
				continue
			}
			ki, isKey := msg.(*proto.KeyboardInput)
			if !isKey {
				continue
			}
			l.execute(ctx, l.Model.ApplyKeyAction(interpretKey(ki.KeyStroke)))
		}
	}
}

func (l *Loop) execute(ctx context.Context, actions []Action) {
	for _, a := range actions {
		switch a.Kind {
		case ActionWrite:
			w := l.stdout
			if a.Stream == StreamStderr {
				w = l.stderr
			}
			fmt.Fprintln(w, a.Text)

		case ActionClearDisplay:
			if l.Display != nil {
				l.Display.Clear()
			}

		case ActionFlushSink:
			if err := l.Model.FlushSink(); err != nil && l.onHandlerErr != nil {
				l.onHandlerErr(err)
			}

		case ActionCloseSink:
			if err := l.Model.CloseSink(); err != nil && l.onHandlerErr != nil {
				l.onHandlerErr(err)
			}

		case ActionRedraw:
			if l.Display != nil {
				rows, cols := l.Display.Size()
				l.Display.Draw(l.Model.Layout(rows, cols))
			}

		case ActionForwardToDaemon:
			if l.Dispatch != nil {
				if err := l.Dispatch.Send(ctx, a.Forward); err != nil && l.onHandlerErr != nil {
					l.onHandlerErr(err)
				}
			}

		case ActionHandPrompt:
			p := a.Prompt
			go func() {
				if err := l.Input.HandlePrompt(ctx, p); err != nil && l.onHandlerErr != nil {
					l.onHandlerErr(err)
				}
			}()

		case ActionHandRequestInput:
			req := a.RequestInput
			go func() {
				if err := l.Input.HandleRequestInput(ctx, req); err != nil && l.onHandlerErr != nil {
					l.onHandlerErr(err)
				}
			}()

		case ActionStop:
			// the enclosing Run loop checks Model.Closed() after each
			// batch and exits; nothing further to do here.
		}
	}
}
