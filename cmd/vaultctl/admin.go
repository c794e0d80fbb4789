package main

import (
	"context"

	"github.com/spf13/cobra"

	"EpochVault/client"
)

func newWhitelistCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Manage settlement recipients",
	}

	member := func(use, short string, fn func(*client.Client, context.Context, string, string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <asset> <member>",
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return g.run(cmd, func(ctx context.Context, c *client.Client) (any, error) {
					return nil, fn(c, ctx, args[0], args[1])
				})
			},
		}
	}

	show := &cobra.Command{
		Use:   "show <asset>",
		Short: "Show the whitelist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.read(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Whitelist(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(
		member("add", "Allow a market maker to receive settlements", (*client.Client).AddToWhitelist),
		member("remove", "Revoke a market maker", (*client.Client).RemoveFromWhitelist),
		show,
	)

	return cmd
}

func newPauseCmd(g *globals, paused bool) *cobra.Command {
	use, short := "pause", "Stop deposits and withdrawals"
	if !paused {
		use, short = "unpause", "Resume deposits and withdrawals"
	}

	return &cobra.Command{
		Use:   use + " <asset>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return nil, c.SetPaused(ctx, args[0], paused)
			})
		},
	}
}

func newParamsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Timelocked parameter changes",
	}

	var (
		duration int64
		capBps   uint16
	)

	queue := &cobra.Command{
		Use:   "queue <asset>",
		Short: "Stage new parameters behind the timelock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.QueueParamChange(ctx, args[0], duration, capBps)
			})
		},
	}
	queue.Flags().Int64Var(&duration, "min-epoch-duration", 86400, "New minimum epoch duration in seconds")
	queue.Flags().Uint16Var(&capBps, "cap-bps", 5000, "New utilization cap in basis points")

	execute := &cobra.Command{
		Use:   "execute <asset>",
		Short: "Apply the staged change once unlocked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return nil, c.ExecuteParamChange(ctx, args[0])
			})
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel <asset>",
		Short: "Drop the staged change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return nil, c.CancelParamChange(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(queue, execute, cancel)

	return cmd
}

func newReconcileCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <asset>",
		Short: "Align the recorded premium balance with holdings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				before, after, err := c.ReconcilePremium(ctx, args[0])
				if err != nil {
					return nil, err
				}
				return map[string]uint64{"before": before, "after": after}, nil
			})
		},
	}
}
