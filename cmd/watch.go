package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskdeck/core/cli"
)

// NewWatchCmd creates the `watch` command.
func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch provider directories and print a line per change",
		Long: `Watches every enabled provider's session directories and prints one
line per debounced change until interrupted. Useful for checking that
filesystem events reach taskdeck at all.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			handler := cli.NewErrorHandler(opts.Verbose)
			logger := cli.GetLogger(cmd)

			agg, registry, err := buildAggregator(cmd)
			if err != nil {
				return handler.Handle(err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-stop
				logger.Info("Received stop signal")
				cancel()
			}()

			if !opts.JSONOutput {
				fmt.Printf("Watching %d provider(s). Press Ctrl-C to stop.\n", registry.Len())
			}

			err = agg.Watch(ctx, func() {
				now := time.Now().Format(time.RFC3339)
				if opts.JSONOutput {
					line, _ := json.Marshal(map[string]string{"time": now, "event": "change"})
					fmt.Println(string(line))
					return
				}
				fmt.Printf("%s change detected\n", now)
			})
			if err != nil && ctx.Err() == nil {
				return handler.Handle(err)
			}
			return nil
		},
	}
}
