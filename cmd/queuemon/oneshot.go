package main

import (
	"fmt"
	"io"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"ticket-queue-monitor/internal/action"
	"ticket-queue-monitor/internal/board"
	"ticket-queue-monitor/internal/health"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newBoard builds a board for a single command. Auto-refresh stays off.
func (o *rootOptions) newBoard(cmd *cobra.Command) (*board.Board, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	client, _ := o.newClient(cmd.Context(), cfg)
	return board.New(client, board.WithLogger(o.logger)), nil
}

func newActionCmds(opts *rootOptions) []*cobra.Command {
	commands := []struct {
		use   string
		name  action.Name
		short string
	}{
		{"create", action.Create, "Create a ticket"},
		{"call [ticket]", action.Call, "Call the given ticket, or the next waiting one"},
		{"serve-ticket [ticket]", action.Serve, "Serve the given ticket, or the next called one"},
		{"enqueue", action.Enqueue, "Add a ticket to the queue"},
		{"dequeue", action.Dequeue, "Take the head of the queue"},
		{"peek", action.Peek, "Show the head of the queue without removing it"},
	}

	cmds := make([]*cobra.Command, 0, len(commands))
	for _, s := range commands {
		name := s.name
		takesNumber := name == action.Call || name == action.Serve
		args := cobra.NoArgs
		if takesNumber {
			args = cobra.MaximumNArgs(1)
		}

		cmds = append(cmds, &cobra.Command{
			Use:   s.use,
			Short: s.short,
			Args:  args,
			RunE: func(cmd *cobra.Command, args []string) error {
				var ticketNumber *int
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil {
						return fmt.Errorf("invalid ticket number %q", args[0])
					}
					ticketNumber = &n
				}

				b, err := opts.newBoard(cmd)
				if err != nil {
					return err
				}
				res, ok := b.Run(cmd.Context(), name, ticketNumber)
				if !ok {
					return b.Dispatcher().ActionError()
				}
				return printJSON(cmd.OutOrStdout(), res)
			},
		})
	}
	return cmds
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Fetch every channel once and print the aggregate view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.newBoard(cmd)
			if err != nil {
				return err
			}
			b.RefreshAll(cmd.Context())
			return printJSON(cmd.OutOrStdout(), b.Stats())
		},
	}
}

func newBoardCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Fetch every channel once and print the full board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.newBoard(cmd)
			if err != nil {
				return err
			}
			b.RefreshAll(cmd.Context())
			return printJSON(cmd.OutOrStdout(), b.View())
		},
	}
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the queue service once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			client, _ := opts.newClient(cmd.Context(), cfg)
			monitor := health.NewMonitor(client, health.WithLogger(opts.logger))
			return printJSON(cmd.OutOrStdout(), monitor.CheckOnce(cmd.Context()))
		},
	}
}
