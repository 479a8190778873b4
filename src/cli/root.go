package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd returns the root cobra command for the btrsnap CLI.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:           "btrsnap",
		Short:         "Create, prune, and replicate btrfs snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	addConfigFlag(cmd.PersistentFlags(), v)
	addLogLevelFlag(cmd.PersistentFlags(), v)
	addLogFormatFlag(cmd.PersistentFlags(), v)
	addSafetyFlags(cmd)

	cmd.AddCommand(newSnapshotCmd(v, stdout, stderr))
	cmd.AddCommand(newRetentionCmd(v, stdout, stderr))
	cmd.AddCommand(newSyncCmd(v, stdout, stderr))
	cmd.AddCommand(newRunCmd(v, stdout, stderr))
	cmd.AddCommand(newDaemonCmd(v, stdout, stderr))
	cmd.AddCommand(newListCmd(v, stdout))
	cmd.AddCommand(newVersionCmd(stdout))

	return cmd
}

// Execute runs the CLI with the process stdio.
func Execute() int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}
