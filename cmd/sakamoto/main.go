package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/sakamoto/internal/cliconfig"
	"github.com/bft-labs/sakamoto/internal/scene"
	"github.com/bft-labs/sakamoto/pkg/driver"
	"github.com/bft-labs/sakamoto/pkg/entity"
	"github.com/bft-labs/sakamoto/pkg/log"
	"github.com/bft-labs/sakamoto/plugins/scenewatcher"
	"github.com/bft-labs/sakamoto/plugins/statusserver"
)

const helpDescription = `
Drive an entity tree described by a scene file.

The tree is set up once, updated on every tick and torn down on exit
(SIGINT/SIGTERM or --max-ticks). Scene files are TOML or YAML; with
--watch the tree is rebuilt whenever the file changes.
`

var exampleUsage = strings.TrimSpace(`
  sakamoto --scene worlds/demo.toml --tick 50ms
  sakamoto --scene worlds/demo.yaml --watch --status-addr 127.0.0.1:9464
  sakamoto tree --scene worlds/demo.toml
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger, _ := log.New("info", log.FormatConsole, os.Stderr)
		logger.Error("sakamoto", log.Err(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "sakamoto",
		Short:         "Drive an entity tree through setup, update and teardown",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			logger, err := log.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			logger.Info("configuration", log.Any("config", cfg))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, logger)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.sakamoto/config.toml)")
	pf.StringVar(&cfg.ScenePath, "scene", cfg.ScenePath, "scene file (.toml, .yaml or .yml)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")

	f := root.Flags()
	f.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "time between tree-wide updates")
	f.Uint64Var(&cfg.MaxTicks, "max-ticks", cfg.MaxTicks, "tear down and exit after this many updates (0: run until signaled)")
	f.BoolVar(&cfg.Watch, "watch", cfg.Watch, "rebuild the tree when the scene file changes")
	f.DurationVar(&cfg.DebounceDelay, "debounce", cfg.DebounceDelay, "delay between a scene change and the reload")
	f.StringVar(&cfg.StatusAddr, "status-addr", cfg.StatusAddr, "serve /healthz, /status and /metrics on this address")
	f.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "how long to wait for teardown on stop")

	root.AddCommand(newTreeCmd(&cfg, &cfgPath))
	return root
}

func newTreeCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the entity tree of a scene file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveConfig(cmd, cfg, *cfgPath); err != nil {
				return err
			}
			f, err := scene.Load(cfg.ScenePath)
			if err != nil {
				return err
			}
			return scene.Print(cmd.OutOrStdout(), scene.Build(f, nil))
		},
	}
}

// resolveConfig layers the config file, then SAKAMOTO_* variables, under the
// flags set on the command line.
func resolveConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	} else if cfgPath != "" {
		return fmt.Errorf("config file %s not found", cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

func run(ctx context.Context, cfg cliconfig.Config, logger log.Logger) error {
	load := func(path string) (entity.Node, error) {
		f, err := scene.Load(path)
		if err != nil {
			return nil, err
		}
		return scene.Build(f, logger), nil
	}

	root, err := load(cfg.ScenePath)
	if err != nil {
		return err
	}

	opts := []driver.Option{
		driver.WithTickInterval(cfg.TickInterval),
		driver.WithMaxTicks(cfg.MaxTicks),
		driver.WithShutdownTimeout(cfg.ShutdownTimeout),
		driver.WithLogger(logger),
	}
	if cfg.StatusAddr != "" {
		opts = append(opts, statusserver.WithStatusServer(statusserver.Config{Addr: cfg.StatusAddr}))
	}
	if cfg.Watch {
		opts = append(opts, scenewatcher.WithSceneWatcher(cfg.ScenePath, load, scenewatcher.Config{
			DebounceDelay: cfg.DebounceDelay,
		}))
	}

	d, err := driver.New(root, opts...)
	if err != nil {
		return fmt.Errorf("create driver: %w", err)
	}
	if err := d.Run(ctx); err != nil {
		return err
	}
	logger.Info("stopped", log.Uint64("ticks", d.Ticks()))
	return nil
}
