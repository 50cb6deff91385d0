// Package config implements the layered configuration resolution of
// SPEC_FULL §3.6/§4.7: compiled-in defaults, an optional TOML config file,
// environment variables, and CLI flags, each layer overriding the one
// before it. Wiring follows the teacher pack's own cobra/viper convention
// (madstone-tech-loko's cmd/root.go) generalized from a single global
// viper instance to one scoped per Load call, so daemon and client
// configuration never interfere and tests don't leak global state.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ColorMode controls whether render output uses ANSI styling.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Snapshot is the fully-resolved, immutable configuration for one process
// invocation (SPEC_FULL §3.6).
type Snapshot struct {
	SocketPath        string
	RegistryDir       string
	KeepAliveInterval time.Duration
	IdleTimeout       time.Duration
	LogLevel          string
	ColorMode         ColorMode
	LinesPerProject   int
	MaxIdleDaemonAge  time.Duration
}

// Defaults returns the compiled-in base layer (SPEC_FULL §4.7 step 1).
func Defaults() Snapshot {
	return Snapshot{
		SocketPath:        defaultSocketPath(),
		RegistryDir:       defaultRegistryDir(),
		KeepAliveInterval: 1 * time.Second,
		IdleTimeout:       10 * time.Second,
		LogLevel:          "info",
		ColorMode:         ColorAuto,
		LinesPerProject:   0,
		MaxIdleDaemonAge:  24 * time.Hour,
	}
}

func defaultSocketPath() string {
	return filepath.Join(stateDir(), "buildd.sock")
}

func defaultRegistryDir() string {
	return filepath.Join(stateDir(), "registry")
}

func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "buildtool-accel")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "buildtool-accel")
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "buildtool-accel")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "buildtool-accel")
}

// Load resolves the four precedence layers of SPEC_FULL §4.7.
// envPrefix is "BUILDD" or "BUILDC"; configFile overrides XDG discovery when
// non-empty (mirrors the teacher's "--config flag overrides all path
// resolution" rule); flags, if non-nil, is a cobra command's already-parsed
// flag set bound last so CLI flags win over everything else.
func Load(envPrefix, configFile string, flags *pflag.FlagSet) (Snapshot, error) {
	v := viper.New()
	applyDefaults(v, Defaults())

	v.SetConfigType("toml")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Snapshot{}, err
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(configDir())
		_ = v.ReadInConfig() // absent config file is not an error
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		_ = v.BindPFlags(flags)
	}

	return snapshotFromViper(v), nil
}

func applyDefaults(v *viper.Viper, d Snapshot) {
	v.SetDefault("socket_path", d.SocketPath)
	v.SetDefault("registry_dir", d.RegistryDir)
	v.SetDefault("keep_alive_interval", d.KeepAliveInterval.String())
	v.SetDefault("idle_timeout", d.IdleTimeout.String())
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("color_mode", string(d.ColorMode))
	v.SetDefault("lines_per_project", d.LinesPerProject)
	v.SetDefault("max_idle_daemon_age", d.MaxIdleDaemonAge.String())
}

func snapshotFromViper(v *viper.Viper) Snapshot {
	return Snapshot{
		SocketPath:        v.GetString("socket_path"),
		RegistryDir:       v.GetString("registry_dir"),
		KeepAliveInterval: v.GetDuration("keep_alive_interval"),
		IdleTimeout:       v.GetDuration("idle_timeout"),
		LogLevel:          v.GetString("log_level"),
		ColorMode:         ColorMode(v.GetString("color_mode")),
		LinesPerProject:   v.GetInt("lines_per_project"),
		MaxIdleDaemonAge:  v.GetDuration("max_idle_daemon_age"),
	}
}

// RegisterFlags attaches the CLI flags Load expects to bind, matching the
// teacher's persistent-flag convention (one place that declares names,
// shorthands and help text for every subcommand to share).
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("socket-path", "", "path to the daemon's unix socket")
	flags.String("registry-dir", "", "daemon registry directory")
	flags.Duration("keep-alive-interval", 0, "keep-alive interval (K)")
	flags.Duration("idle-timeout", 0, "idle connection timeout (T)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("color-mode", "", "color mode: auto, always, never")
	flags.Int("lines-per-project", -1, "initial log lines shown per project")
}
