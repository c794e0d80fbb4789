package main

import (
	"context"

	"github.com/spf13/cobra"

	"EpochVault/client"
)

func newStatusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show node status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.read(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Status(ctx)
			})
		},
	}
}

func newEventsCmd(g *globals) *cobra.Command {
	var (
		from  uint64
		limit int
	)

	cmd := &cobra.Command{
		Use:   "events <asset>",
		Short: "Page through a vault's event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.read(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Events(ctx, args[0], from, limit)
			})
		},
	}
	cmd.Flags().Uint64Var(&from, "from", 0, "First sequence number")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum events to return")

	return cmd
}

func newSolvencyCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "solvency <asset>",
		Short: "Compare recorded balances with bank holdings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.read(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Solvency(ctx, args[0])
			})
		},
	}
}

func newBalanceCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <asset> [owner]",
		Short: "Show a bank balance, the --key identity's by default",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner := ""
			if len(args) == 2 {
				owner = args[1]
			} else {
				c, err := g.client()
				if err != nil {
					return err
				}
				owner = c.Identity()
			}

			return g.read(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				b, err := c.Balance(ctx, owner, args[0])
				if err != nil {
					return nil, err
				}
				return map[string]any{"owner": owner, "asset": args[0], "balance": b}, nil
			})
		},
	}
}

func newPreviewCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Quote conversions at the current share price",
	}

	deposit := &cobra.Command{
		Use:   "deposit <asset> <amount>",
		Short: "Shares a deposit would mint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseU64("amount", args[1])
			if err != nil {
				return err
			}

			return g.read(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.PreviewDeposit(ctx, args[0], amount)
			})
		},
	}

	redeem := &cobra.Command{
		Use:   "redeem <asset> <shares>",
		Short: "Collateral a redemption would pay",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := parseU64("shares", args[1])
			if err != nil {
				return err
			}

			return g.read(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.PreviewRedeem(ctx, args[0], shares)
			})
		},
	}

	cmd.AddCommand(deposit, redeem)

	return cmd
}

func newPriceCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "price <asset>",
		Short: "Collateral per million shares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.read(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				p, err := c.SharePrice(ctx, args[0])
				if err != nil {
					return nil, err
				}
				return map[string]uint64{"assets_per_million_shares": p}, nil
			})
		},
	}
}

func newFaucetCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "faucet <asset> <amount>",
		Short: "Mint dev balances to the signer (faucet-enabled nodes only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseU64("amount", args[1])
			if err != nil {
				return err
			}

			return g.run(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				b, err := c.Faucet(ctx, args[0], amount)
				if err != nil {
					return nil, err
				}
				return map[string]uint64{"balance": b}, nil
			})
		},
	}
}
