package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"

	"github.com/taskdeck/core/cli"
	"github.com/taskdeck/core/pkg/logging/logutil"
)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display taskdeck's own log output",
		Long: `Shows the most recent taskdeck log file. The file is located the same
way the logging sink chooses it: an explicit path in the logging section
of taskdeck.yml wins, otherwise the newest file under the default logs
directory is picked.

Examples:
  # Print the latest log file
  taskdeck logs

  # Print the last 50 lines and keep following
  taskdeck logs -f --tail 50

  # Raw JSON lines for piping into jq
  taskdeck logs --json
`,
		RunE: runLogsE,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().Int("tail", -1, "Number of lines to show from the end of the log (default: all)")

	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	opts := cli.GetOptions(cmd)
	follow, _ := cmd.Flags().GetBool("follow")
	tailLines, _ := cmd.Flags().GetInt("tail")

	emit := printLogText
	if opts.JSONOutput {
		emit = printLogJSON
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	logFile, logsDir, err := logutil.ResolveLogFile()
	if err != nil {
		if !follow {
			fmt.Printf("No log files found under %s.\n", logsDir)
			return nil
		}
		logFile, err = waitForLogFile(ctx, logsDir)
		if err != nil {
			return nil
		}
		tailLines = 0
	}

	if err := printTail(logFile, tailLines, emit); err != nil {
		return fmt.Errorf("failed to read log file %s: %w", logFile, err)
	}
	if !follow {
		return nil
	}

	return followLog(ctx, logFile, logsDir, emit)
}

// waitForLogFile polls the logs directory until a file shows up or the
// context is cancelled.
func waitForLogFile(ctx context.Context, logsDir string) (string, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			if logFile, err := logutil.FindLatestLogFile(logsDir); err == nil {
				return logFile, nil
			}
		}
	}
}

// printTail prints the last n lines of the file, or the whole file when
// n is negative.
func printTail(path string, n int, emit func(string)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if n >= 0 && n < len(lines) {
		lines = lines[len(lines)-n:]
	}
	for _, line := range lines {
		if line != "" {
			emit(line)
		}
	}
	return nil
}

// followLog tails the active log file and switches over when a newer file
// appears in the directory, which happens when the date-stamped sink rolls.
func followLog(ctx context.Context, logFile, logsDir string, emit func(string)) error {
	current := logFile
	// The first file was already printed up to its end; newer files are
	// read from the start.
	location := &tail.SeekInfo{Whence: io.SeekEnd}

	for {
		t, err := tail.TailFile(current, tail.Config{
			Follow:    true,
			ReOpen:    true,
			MustExist: true,
			Location:  location,
			Logger:    stdlog.New(io.Discard, "", 0),
		})
		if err != nil {
			return fmt.Errorf("failed to follow log file %s: %w", current, err)
		}

		rotation := time.NewTicker(2 * time.Second)
		next := ""
	lines:
		for {
			select {
			case <-ctx.Done():
				rotation.Stop()
				t.Stop()
				t.Cleanup()
				return nil
			case line, ok := <-t.Lines:
				if !ok {
					break lines
				}
				if line.Err == nil && line.Text != "" {
					emit(line.Text)
				}
			case <-rotation.C:
				if latest, err := logutil.FindLatestLogFile(logsDir); err == nil && latest != current {
					next = latest
					break lines
				}
			}
		}
		rotation.Stop()
		t.Stop()
		t.Cleanup()

		if next == "" {
			return nil
		}
		current = next
		location = &tail.SeekInfo{Offset: 0, Whence: io.SeekStart}
	}
}

// printLogJSON prints a log line as a JSON object, wrapping lines that are
// not already JSON.
func printLogJSON(line string) {
	var logMap map[string]interface{}
	if err := json.Unmarshal([]byte(line), &logMap); err != nil {
		fallback := map[string]interface{}{"raw_line": line}
		jsonData, _ := json.Marshal(fallback)
		fmt.Println(string(jsonData))
		return
	}
	jsonData, _ := json.Marshal(logMap)
	fmt.Println(string(jsonData))
}

// printLogText pretty-prints a structured log line for human consumption.
// Lines that do not parse as JSON are printed verbatim.
func printLogText(line string) {
	var logMap map[string]interface{}
	if err := json.Unmarshal([]byte(line), &logMap); err != nil {
		fmt.Println(line)
		return
	}

	ts, _ := logMap["time"].(string)
	level, _ := logMap["level"].(string)
	msg, _ := logMap["msg"].(string)
	component, _ := logMap["component"].(string)

	parsedTime, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		parsedTime, _ = time.Parse(time.RFC3339, ts)
	}
	timeStr := parsedTime.Format("15:04:05")

	var sortedKeys []string
	for k := range logMap {
		switch k {
		case "time", "level", "msg", "component":
		default:
			sortedKeys = append(sortedKeys, k)
		}
	}
	sort.Strings(sortedKeys)

	var otherFields []string
	for _, k := range sortedKeys {
		otherFields = append(otherFields, fmt.Sprintf("%s=%v", k, logMap[k]))
	}

	out := fmt.Sprintf("%s %s %s", timeStr, strings.ToUpper(level), msg)
	if component != "" {
		out += fmt.Sprintf(" [%s]", component)
	}
	if len(otherFields) > 0 {
		out += " " + strings.Join(otherFields, " ")
	}
	fmt.Println(out)
}
