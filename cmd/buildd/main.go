// Command buildd is the resident build daemon: it keeps the embedded build
// engine warm across invocations and speaks the framed binary protocol
// (internal/proto, internal/transport) to one buildc client connection at a
// time per socket.
//
// Usage:
//
//	buildd [flags]
//
// Flags mirror internal/config's layered resolution (defaults, TOML config
// file, BUILDD_* environment variables, then these flags), see
// internal/config.RegisterFlags.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/buildtool-accel/buildc/internal/config"
	"github.com/buildtool-accel/buildc/internal/daemon"
	"github.com/buildtool-accel/buildc/internal/obslog"
	"github.com/buildtool-accel/buildc/internal/proto"
	"github.com/buildtool-accel/buildc/internal/registry"
	"github.com/buildtool-accel/buildc/internal/transport"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "buildd",
		Short:        "Resident build daemon",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a TOML config file (overrides XDG discovery)")
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "buildd: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command) error {
	cfg, err := config.Load("BUILDD", cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := obslog.NewStderr(obslog.ParseLevel(cfg.LogLevel))

	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0o755); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}
	// A socket left behind by a daemon that died without cleaning up its
	// own listener would otherwise make bind fail with "address in use".
	_ = os.Remove(cfg.SocketPath)

	listener, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.SocketPath, err)
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	record := registry.Record{
		PID:           os.Getpid(),
		SocketPath:    cfg.SocketPath,
		StartedAt:     time.Now(),
		ProtocolToken: proto.ProtocolToken,
		JavaHome:      os.Getenv("JAVA_HOME"),
		WorkingDir:    workingDir,
	}
	if err := registry.Write(cfg.RegistryDir, record); err != nil {
		_ = listener.Close()
		return fmt.Errorf("registering daemon: %w", err)
	}

	fmt.Println()
	fmt.Println("  BUILDD")
	fmt.Println("  resident build daemon")
	fmt.Println()
	fmt.Printf("  socket:   %s\n", cfg.SocketPath)
	fmt.Printf("  registry: %s\n", cfg.RegistryDir)
	fmt.Printf("  pid:      %d\n", record.PID)
	fmt.Println()
	fmt.Println("  press Ctrl+C to stop.")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		acceptLoop(ctx, listener, cfg, log)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\n  shutting down gracefully...")
	cancel()
	_ = listener.Close()
	wg.Wait()

	var result *multierror.Error
	if err := registry.Remove(cfg.RegistryDir, record.PID); err != nil {
		result = multierror.Append(result, err)
	}
	if result != nil {
		log.Error("errors during shutdown", obslog.F("err", result))
		return result
	}
	fmt.Println("  done.")
	return nil
}

// acceptLoop accepts connections until ctx is canceled, handling each one in
// its own goroutine (a daemon serves one build at a time per connection, but
// nothing here forbids several clients discovering and dialing it at once).
func acceptLoop(ctx context.Context, listener net.Listener, cfg config.Snapshot, log obslog.Logger) {
	var wg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				return
			default:
				log.Warn("accept failed", obslog.F("err", err))
				wg.Wait()
				return
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			handleConn(ctx, conn, cfg, log)
		}()
	}
}

func handleConn(ctx context.Context, conn net.Conn, cfg config.Snapshot, log obslog.Logger) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer conn.Close()

	peer := transport.NewPeer(conn,
		transport.WithKeepAliveInterval(cfg.KeepAliveInterval),
		transport.WithIdleTimeout(cfg.IdleTimeout),
	)
	session := daemon.NewSession(peer, daemon.StubEngine{}, log)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := peer.Run(connCtx); err != nil {
			log.Warn("connection ended with error", obslog.F("err", err))
		}
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		if err := session.Run(connCtx); err != nil {
			log.Warn("session ended with error", obslog.F("err", err))
		}
	}()
	wg.Wait()
}
