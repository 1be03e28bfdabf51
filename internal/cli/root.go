package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "presetmd",
		Short: "Manage preset imports in your project memory file",
		Long: `Presetmd keeps one managed import line at the bottom of your project's
memory file (CLAUDE.md by default). The line points at a generated
merged-preset file that imports the preset fragments selected for the
project, either tracking the collection head or pinned to one commit.`,
	}

	syncCmd := &cobra.Command{
		Use:   "sync [path]",
		Short: "Regenerate the merged preset and rewrite the managed line",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunSync,
	}
	syncCmd.Flags().String("at", "", "Version token to sync at (default: HEAD)")

	lockCmd := &cobra.Command{
		Use:   "lock [path]",
		Short: "Pin the project's presets to one collection version",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunLock,
	}
	lockCmd.Flags().String("at", "", "Version token to pin (default: current collection head)")

	unlockCmd := &cobra.Command{
		Use:   "unlock [path]",
		Short: "Return a pinned project to tracking the collection head",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunUnlock,
	}

	selectCmd := &cobra.Command{
		Use:   "select [path]",
		Short: "Replace the project's preset selection",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunSelect,
	}
	selectCmd.Flags().StringSlice("member", nil, "Fragment to select as host/owner/collection:name (repeatable)")
	selectCmd.Flags().Bool("defaults", false, "Derive the selection from the configured default collections")

	statusCmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Show the project's identity, lock state, and selection",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunStatus,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("presetmd %s\n", version)
		},
	}

	rootCmd.AddCommand(
		syncCmd,
		lockCmd,
		unlockCmd,
		selectCmd,
		statusCmd,
		versionCmd,
	)

	return rootCmd
}
