// Command vaultctl drives a vaultd node: vault administration, deposits and
// withdrawals, epoch settlement, pricing reports and offline snapshots.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"EpochVault/client"
)

// globals holds the persistent flags shared by every command.
type globals struct {
	node    string
	keyPath string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "vaultctl",
		Short:         "Operate epoch-settled option vaults",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.node, "node", "localhost:8080", "vaultd HTTP address")
	root.PersistentFlags().StringVar(&g.keyPath, "key", "vault.key", "Ed25519 private key file")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 10*time.Second, "Request timeout")

	root.AddCommand(
		newKeygenCmd(),
		newWhoamiCmd(g),
		newVaultCmd(g),
		newDepositCmd(g),
		newWithdrawCmd(g),
		newEpochCmd(g),
		newExposureCmd(g),
		newPremiumCmd(g),
		newSettleCmd(g),
		newWhitelistCmd(g),
		newPauseCmd(g, true),
		newPauseCmd(g, false),
		newParamsCmd(g),
		newReconcileCmd(g),
		newStatusCmd(g),
		newEventsCmd(g),
		newSolvencyCmd(g),
		newBalanceCmd(g),
		newPreviewCmd(g),
		newPriceCmd(g),
		newFaucetCmd(g),
		newFeedCmd(g),
		newSnapshotCmd(),
	)

	return root
}

// loadKey reads a raw 64-byte Ed25519 private key.
func loadKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(data), nil
}

// client builds a node client signing with the --key file.
func (g *globals) client() (*client.Client, error) {
	key, err := loadKey(g.keyPath)
	if err != nil {
		return nil, err
	}

	return client.New(g.node, key), nil
}

// run executes fn with a signing client and a context bounded by --timeout.
func (g *globals) run(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) (any, error)) error {
	c, err := g.client()
	if err != nil {
		return err
	}

	return g.exec(cmd, c, fn)
}

// read is run for unauthenticated views; no key file is needed.
func (g *globals) read(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) (any, error)) error {
	return g.exec(cmd, client.New(g.node, nil), fn)
}

func (g *globals) exec(cmd *cobra.Command, c *client.Client, fn func(ctx context.Context, c *client.Client) (any, error)) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
	defer cancel()

	out, err := fn(ctx, c)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	return printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func parseU64(name, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an unsigned integer", name, s)
	}

	return v, nil
}

// parseU64s parses positional arguments in order, naming each for errors.
func parseU64s(args []string, names ...string) ([]uint64, error) {
	out := make([]uint64, len(names))

	for i, name := range names {
		v, err := parseU64(name, args[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}

	return out, nil
}
