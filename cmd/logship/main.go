package main

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/logship/logship/pkg/client"
)

var exampleUsage = strings.TrimSpace(`
  tail -f app.log | logship --addr /tmp/logship.sock --filename shipped.log
  logship --network tcp --addr 127.0.0.1:9440 --name web --level warning < errors.txt
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	var (
		network     string
		addr        string
		name        string
		level       string
		filename    string
		maxBytes    int
		backupCount int
		timeout     time.Duration
		format      string
		dateFormat  string
		style       string
	)

	root := &cobra.Command{
		Use:     "logship",
		Short:   "Ship lines from stdin to a logship collector as log records",
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl := client.ParseLevel(level)
			opts := []client.Option{
				client.WithTimeout(timeout),
				client.WithLevel(lvl),
				client.WithSinkParam("filename", filename),
			}
			if maxBytes > 0 {
				opts = append(opts, client.WithSinkParam("max_bytes", maxBytes))
			}
			if backupCount > 0 {
				opts = append(opts, client.WithSinkParam("backup_count", backupCount))
			}

			c, err := client.Dial(network, addr, opts...)
			if err != nil {
				return err
			}
			defer c.Close()

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				rec := client.Record{
					Name:    name,
					Level:   lvl,
					Message: scanner.Text(),
					Time:    time.Now(),
				}
				if err := c.Send(rec); err != nil {
					return err
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			if format != "" || dateFormat != "" || style != "" {
				if err := c.SetFormat(format, dateFormat, style); err != nil {
					return err
				}
				return c.QuitAfterFormat()
			}
			return c.Quit()
		},
	}

	flags := root.Flags()
	flags.StringVar(&network, "network", "unix", "collector network: unix or tcp")
	flags.StringVar(&addr, "addr", "/tmp/logship.sock", "collector socket path or host:port")
	flags.StringVar(&name, "name", "logship", "logger name stamped on each record")
	flags.StringVar(&level, "level", "info", "record level: debug, info, warning, error, critical")
	flags.StringVar(&filename, "filename", "logship.log", "sink file name on the collector")
	flags.IntVar(&maxBytes, "max-bytes", 0, "sink rotation size in bytes (0 = collector default)")
	flags.IntVar(&backupCount, "backup-count", 0, "rotated files to keep (0 = collector default)")
	flags.DurationVar(&timeout, "timeout", 5*time.Second, "per-reply read timeout")
	flags.StringVar(&format, "format", "", "set the sink format string before quitting")
	flags.StringVar(&dateFormat, "date-format", "", "set the sink date layout before quitting")
	flags.StringVar(&style, "style", "", "set the sink format style before quitting: %, { or $")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
