package main

import (
	"context"

	"github.com/spf13/cobra"

	"EpochVault/client"
	"EpochVault/internal/ledger"
)

func newVaultCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Create and inspect vaults",
	}

	var p ledger.VaultParams

	create := &cobra.Command{
		Use:   "create <asset> <premium-asset>",
		Short: "Create a vault with the signer as authority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.AssetID, p.PremiumAsset = args[0], args[1]
			return g.run(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.CreateVault(ctx, p)
			})
		},
	}
	create.Flags().Uint16Var(&p.UtilizationCapBps, "cap-bps", 5000, "Utilization cap in basis points")
	create.Flags().Int64Var(&p.MinEpochDuration, "min-epoch-duration", 86400, "Minimum seconds between epoch rolls")

	show := &cobra.Command{
		Use:   "show <asset>",
		Short: "Show one vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.read(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Vault(ctx, args[0])
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.read(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Vaults(ctx)
			})
		},
	}

	cmd.AddCommand(create, show, list)

	return cmd
}

func newDepositCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <asset> <amount>",
		Short: "Deposit collateral and mint shares",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseU64("amount", args[1])
			if err != nil {
				return err
			}

			return g.run(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				shares, err := c.Deposit(ctx, args[0], amount)
				if err != nil {
					return nil, err
				}
				return map[string]uint64{"shares": shares}, nil
			})
		},
	}
}

func newWithdrawCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Queue, settle and inspect withdrawals",
	}

	request := &cobra.Command{
		Use:   "request <asset> <shares>",
		Short: "Escrow shares for redemption at the current epoch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := parseU64("shares", args[1])
			if err != nil {
				return err
			}

			return g.run(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.RequestWithdrawal(ctx, args[0], shares)
			})
		},
	}

	var minExpected uint64

	process := &cobra.Command{
		Use:   "process <asset> <request-epoch>",
		Short: "Redeem a request once its epoch has settled",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			epoch, err := parseU64("request epoch", args[1])
			if err != nil {
				return err
			}

			return g.run(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.ProcessWithdrawal(ctx, args[0], epoch, minExpected)
			})
		},
	}
	process.Flags().Uint64Var(&minExpected, "min-expected", 0, "Reject if fewer collateral units would be paid")

	var pending bool

	list := &cobra.Command{
		Use:   "list <asset>",
		Short: "List withdrawal requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.read(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Withdrawals(ctx, args[0], pending)
			})
		},
	}
	list.Flags().BoolVar(&pending, "pending", false, "Only unprocessed requests")

	show := &cobra.Command{
		Use:   "show <asset> <user> <request-epoch>",
		Short: "Show one withdrawal request",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			epoch, err := parseU64("request epoch", args[2])
			if err != nil {
				return err
			}

			return g.read(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Withdrawal(ctx, args[0], args[1], epoch)
			})
		},
	}

	cmd.AddCommand(request, process, list, show)

	return cmd
}

func newEpochCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epoch",
		Short: "Epoch settlement",
	}

	advance := &cobra.Command{
		Use:   "advance <asset> <premium>",
		Short: "Settle the current epoch with the premium earned and roll to the next",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			premium, err := parseU64("premium", args[1])
			if err != nil {
				return err
			}

			return g.run(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				epoch, err := c.AdvanceEpoch(ctx, args[0], premium)
				if err != nil {
					return nil, err
				}
				return map[string]uint64{"epoch": epoch}, nil
			})
		},
	}

	cmd.AddCommand(advance)

	return cmd
}

func newExposureCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "exposure <asset> <notional> <premium>",
		Short: "Record notional exposure over HTTP",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseU64s(args[1:], "notional", "premium")
			if err != nil {
				return err
			}

			return g.run(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.RecordExposure(ctx, args[0], v[0], v[1])
			})
		},
	}
}

func newPremiumCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "premium",
		Short: "Premium custody",
	}

	collect := &cobra.Command{
		Use:   "collect <asset> <amount>",
		Short: "Move premium from the signer into the vault",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseU64("amount", args[1])
			if err != nil {
				return err
			}

			return g.run(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return nil, c.CollectPremium(ctx, args[0], amount)
			})
		},
	}

	cmd.AddCommand(collect)

	return cmd
}

func newSettleCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "settle <asset> <recipient> <amount>",
		Short: "Pay a whitelisted market maker from collateral",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseU64("amount", args[2])
			if err != nil {
				return err
			}

			return g.run(cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return nil, c.PaySettlement(ctx, args[0], args[1], amount)
			})
		},
	}
}
