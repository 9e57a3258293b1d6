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

	"github.com/logship/logship/internal/cliconfig"
	"github.com/logship/logship/internal/server"
	"github.com/logship/logship/internal/sink"
	"github.com/logship/logship/pkg/log"
)

const longHelp = `
logshipd is the logship collector: it accepts stream-socket connections,
negotiates log level and formatting with each client, and writes the
received records to per-connection rotating files.

Configuration is layered from defaults, a TOML config file
(default ~/.logship/config.toml), LOGSHIP_* environment variables, and
flags, in increasing order of precedence. Log level and formatter
defaults are re-applied live when the config file changes.
`

var exampleUsage = strings.TrimSpace(`
  logshipd --addr /tmp/logship.sock --sink-dir /var/log/logship
  logshipd --network tcp --addr 127.0.0.1:9440
  logshipd --config $HOME/.logship/config.toml
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "logshipd",
		Short:   "Collect structured log records shipped over a stream socket",
		Long:    strings.TrimSpace(longHelp),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
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
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger := log.NewZerolog(cfg.LogLevel)

			factory := &sink.Factory{Dir: cfg.SinkDir}
			if err := factory.SetFormatDefaults(cfg.Format, cfg.DateFormat, cfg.Style); err != nil {
				return fmt.Errorf("invalid format defaults: %w", err)
			}

			srv, err := server.New(server.Config{
				Network:        cfg.Network,
				Addr:           cfg.Addr,
				SinkDir:        cfg.SinkDir,
				MaxLineBytes:   cfg.MaxLineBytes,
				MaxRecordBytes: cfg.MaxRecordBytes,
			}, server.WithLogger(logger), server.WithSinkFactory(factory))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfgFile != "" {
				watcher := cliconfig.NewWatcher(cfgFile, cfg, changed, logger, func(next cliconfig.Config) {
					logger.SetLevel(next.LogLevel)
					if err := factory.SetFormatDefaults(next.Format, next.DateFormat, next.Style); err != nil {
						logger.Warn("reloaded format defaults rejected", log.Err(err))
					}
				})
				go watcher.Run(ctx)
			}

			if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfgPath, "config", "", "path to TOML config file (default ~/.logship/config.toml)")
	flags.StringVar(&cfg.Network, "network", cfg.Network, "listener network: unix or tcp")
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "socket path (unix) or host:port (tcp)")
	flags.StringVar(&cfg.SinkDir, "sink-dir", cfg.SinkDir, "directory holding the record sink files")
	flags.IntVar(&cfg.MaxLineBytes, "max-line-bytes", cfg.MaxLineBytes, "maximum protocol line length")
	flags.IntVar(&cfg.MaxRecordBytes, "max-record-bytes", cfg.MaxRecordBytes, "maximum record payload length")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "daemon log level: debug, info, warn, error")
	flags.StringVar(&cfg.Format, "format", cfg.Format, "default sink format string")
	flags.StringVar(&cfg.DateFormat, "date-format", cfg.DateFormat, "default sink date layout")
	flags.StringVar(&cfg.Style, "style", cfg.Style, "default sink format style: %, { or $")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
