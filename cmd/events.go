package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/surveyor/internal/config"
	"github.com/papapumpkin/surveyor/internal/telemetry"
	"github.com/papapumpkin/surveyor/internal/ui"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "View the JSONL telemetry event log",
	Long: `Reads and formats the telemetry file at telemetry_path.

With --kind, only events of that kind are shown.
With --follow (-f), watches the file for new events (like tail -f).`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().String("kind", "", "only show events of this kind")
	eventsCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, _ []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	follow, _ := cmd.Flags().GetBool("follow")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	path := cfg.TelemetryPath
	printer := ui.New(cmd.OutOrStdout())

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("events: open %s: %w", path, err)
	}
	defer f.Close()

	events, err := telemetry.Decode(f)
	if err != nil {
		return err
	}
	printer.Events(filterKind(events, kind))

	if !follow {
		return nil
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return tailFollow(ctx, printer, f, path, kind)
}

func filterKind(events []telemetry.Event, kind string) []telemetry.Event {
	if kind == "" {
		return events
	}
	var out []telemetry.Event
	for _, evt := range events {
		if evt.Kind == kind {
			out = append(out, evt)
		}
	}
	return out
}

// tailFollow watches the file for new data using fsnotify and prints new events.
func tailFollow(ctx context.Context, p *ui.Printer, f *os.File, path, kind string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("events: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("events: watch %s: %w", path, err)
	}

	reader := bufio.NewReader(f)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == 0 {
				continue
			}
			// Read all new lines available.
			for {
				line, err := reader.ReadString('\n')
				if line = strings.TrimSpace(line); line != "" {
					var evt telemetry.Event
					if jerr := json.Unmarshal([]byte(line), &evt); jerr != nil {
						p.Error(fmt.Sprintf("malformed event: %s", line))
					} else {
						p.Events(filterKind([]telemetry.Event{evt}, kind))
					}
				}
				if err != nil {
					break
				}
			}
		}
	}
}
