package main

import (
	"context"
	"crypto/rand"

	"github.com/spf13/cobra"

	"EpochVault/internal/feed"
)

func newFeedCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Pricing agent reports over QUIC",
	}

	var addr string

	report := &cobra.Command{
		Use:   "report <asset> <notional> <premium>",
		Short: "Send one exposure report as the --key agent",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseU64s(args[1:], "notional", "premium")
			if err != nil {
				return err
			}

			key, err := loadKey(g.keyPath)
			if err != nil {
				return err
			}

			nonce := make([]byte, 16)
			if _, err := rand.Read(nonce); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()

			agent, err := feed.Dial(ctx, addr, key)
			if err != nil {
				return err
			}
			defer agent.Close()

			ack, err := agent.Report(ctx, feed.Report{
				AssetID:  args[0],
				Notional: v[0],
				Premium:  v[1],
				Nonce:    nonce,
			})
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), ack)
		},
	}
	report.Flags().StringVar(&addr, "feed", "localhost:7400", "vaultd QUIC feed address")

	cmd.AddCommand(report)

	return cmd
}
