package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newKeygenCmd() *cobra.Command {
	var (
		out   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 key and print its identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(out); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", out)
			}

			pub, priv, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return fmt.Errorf("generate key:\n%w", err)
			}

			if err := os.WriteFile(out, priv, 0600); err != nil {
				return fmt.Errorf("save key:\n%w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(pub))

			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "vault.key", "Output key file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing key file")

	return cmd
}

func newWhoamiCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the identity of the --key file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := loadKey(g.keyPath)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(key.Public().(ed25519.PublicKey)))

			return nil
		},
	}
}
