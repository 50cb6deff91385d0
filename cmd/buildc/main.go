// Command buildc is the thin foreground client: it forwards the target
// build tool's argument vector to a resident buildd over its unix socket
// and renders the daemon's event stream to the terminal (spec §6.2).
//
// Usage:
//
//	buildc [buildc flags] -- <build tool args...>
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/buildtool-accel/buildc/internal/config"
	"github.com/buildtool-accel/buildc/internal/logsink"
	"github.com/buildtool-accel/buildc/internal/proto"
	"github.com/buildtool-accel/buildc/internal/registry"
	"github.com/buildtool-accel/buildc/internal/render"
	"github.com/buildtool-accel/buildc/internal/transport"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "buildc [flags] -- <build tool args...>",
		Short:        "Thin client for the resident build daemon",
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a TOML config file (overrides XDG discovery)")
	cmd.Flags().SetInterspersed(false)
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "buildc: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// exitCode is set by run before it returns, per spec §6.2: the exitCode of
// the final BuildFinished, or 1 on BuildException/CancelBuild. It cannot be
// threaded back through cobra's RunE (a nil error there must still leave a
// nonzero process exit code on build failure).
var exitCode int

func run(cmd *cobra.Command, buildArgs []string) error {
	cfg, err := config.Load("BUILDC", cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}
	projectDir := findProjectRoot(workingDir)

	record, err := discoverDaemon(cfg.RegistryDir, workingDir)
	if err != nil {
		return err
	}

	conn, err := net.Dial("unix", record.SocketPath)
	if err != nil {
		return fmt.Errorf("connecting to daemon at %s: %w", record.SocketPath, err)
	}
	defer conn.Close()

	peer := transport.NewPeer(conn,
		transport.WithKeepAliveInterval(cfg.KeepAliveInterval),
		transport.WithIdleTimeout(cfg.IdleTimeout),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = peer.Run(ctx)
	}()

	env, envOrder := captureEnv()
	req := proto.NewBuildRequest(buildArgs, workingDir, projectDir, env, envOrder)
	if err := peer.Send(ctx, req); err != nil {
		cancel()
		wg.Wait()
		return fmt.Errorf("sending build request: %w", err)
	}

	dumbTerminal := !term.IsTerminal(int(os.Stdin.Fd())) || cfg.ColorMode == config.ColorNever

	display, restoreTerm := newTerminalDisplay(dumbTerminal)
	defer restoreTerm()

	sink := logsink.NewMessageCollector(os.Stdout, func() { display.Clear() })
	defer sink.Close()
	model := render.NewModel(sink)
	model.DumbTerminal = dumbTerminal
	model.LinesPerProject = cfg.LinesPerProject

	keyboard := make(chan proto.Message, 16)
	input := render.NewInputHandler(os.Stdin, peer, keyboard, dumbTerminal)
	loop := render.NewLoop(model, display, input, peer, os.Stdout, os.Stderr, func(err error) {
		fmt.Fprintf(os.Stderr, "buildc: input handler error: %v\n", err)
	})

	inputCtx, inputCancel := context.WithCancel(ctx)
	defer inputCancel()
	go func() { _ = input.Run(inputCtx) }()
	go input.WatchSignals(inputCtx, cancel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			_ = peer.Send(ctx, proto.NewCancelBuild())
		case <-ctx.Done():
		}
	}()

	wireInbound, finalCode := trackExitCode(peer.Inbound())
	loopErr := loop.Run(ctx, wireInbound, keyboard)

	cancel()
	wg.Wait()

	exitCode = <-finalCode
	if loopErr != nil && !errors.Is(loopErr, context.Canceled) {
		return loopErr
	}
	return nil
}

// trackExitCode tees in onto a new channel, recording the exit code implied
// by the terminal message (spec §6.2) before forwarding it unchanged so the
// render loop still sees every message.
func trackExitCode(in <-chan proto.Message) (<-chan proto.Message, <-chan int) {
	out := make(chan proto.Message)
	code := make(chan int, 1)
	go func() {
		defer close(out)
		result := 1
		for msg := range in {
			switch m := msg.(type) {
			case *proto.BuildFinished:
				result = int(m.ExitCode)
			case *proto.BuildException:
				result = 1
			default:
				if msg.Tag() == proto.TagCancelBuild {
					result = 1
				}
			}
			out <- msg
		}
		code <- result
	}()
	return out, code
}

// discoverDaemon retries registry lookup with a bounded backoff (spec_full
// §4.8: "registry record format, the matching predicate, and the retry
// loop — not process-spawning mechanics"). It never spawns a daemon itself.
func discoverDaemon(registryDir, workingDir string) (registry.Record, error) {
	backoff := 100 * time.Millisecond
	const maxAttempts = 5
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		record, ok, err := registry.FindCompatible(registryDir, proto.ProtocolToken, workingDir)
		if err != nil {
			lastErr = err
		} else if ok {
			return record, nil
		}
		if attempt < maxAttempts-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	if lastErr != nil {
		return registry.Record{}, fmt.Errorf("discovering a compatible daemon: %w", lastErr)
	}
	return registry.Record{}, fmt.Errorf("no compatible daemon resident for %s (start one with buildd)", workingDir)
}

// findProjectRoot walks up from dir looking for a .buildroot marker,
// falling back to dir itself when none is found.
func findProjectRoot(dir string) string {
	cur := dir
	for {
		if _, err := os.Stat(filepath.Join(cur, ".buildroot")); err == nil {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir
		}
		cur = parent
	}
}

func captureEnv() (map[string]string, []string) {
	entries := os.Environ()
	env := make(map[string]string, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		k, v, found := strings.Cut(e, "=")
		if !found {
			continue
		}
		env[k] = v
		order = append(order, k)
	}
	return env, order
}
