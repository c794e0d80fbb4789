package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"EpochVault/internal/snapshot"
	"EpochVault/internal/storage"
)

// snapshotInfo is the printed form of snapshot.Info.
type snapshotInfo struct {
	Entries  uint64 `json:"entries"`
	Checksum string `json:"checksum"`
}

func printInfo(cmd *cobra.Command, info snapshot.Info) error {
	return printJSON(cmd.OutOrStdout(), snapshotInfo{
		Entries:  info.Entries,
		Checksum: fmt.Sprintf("%x", info.Checksum),
	})
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Offline export and restore of a stopped node's database",
	}

	var dataPath string
	cmd.PersistentFlags().StringVar(&dataPath, "data", "./data", "vaultd data directory")

	open := func() (*storage.Storage, error) {
		if err := os.MkdirAll(dataPath, 0755); err != nil {
			return nil, fmt.Errorf("create data dir:\n%w", err)
		}
		return storage.New(dataPath + "/db")
	}

	export := &cobra.Command{
		Use:   "export <file>",
		Short: "Write a compressed, checksummed copy of the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}

			info, err := snapshot.Export(db, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			return printInfo(cmd, info)
		},
	}

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore a snapshot into an empty data directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			info, err := snapshot.Import(db, f)
			if err != nil {
				return err
			}

			return printInfo(cmd, info)
		},
	}

	verify := &cobra.Command{
		Use:   "verify <file>",
		Short: "Check a snapshot's framing and checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := snapshot.Verify(f)
			if err != nil {
				return err
			}

			return printInfo(cmd, info)
		},
	}

	cmd.AddCommand(export, imp, verify)

	return cmd
}
