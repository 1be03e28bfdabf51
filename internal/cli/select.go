package cli

import (
	"fmt"

	"github.com/presetmd-dev/presetmd/internal/registry"
	"github.com/spf13/cobra"
)

func RunSelect(cmd *cobra.Command, args []string) error {
	projectRoot, err := resolveProjectRoot(args)
	if err != nil {
		return err
	}

	raw, err := cmd.Flags().GetStringSlice("member")
	if err != nil {
		return fmt.Errorf("failed to read --member flag: %w", err)
	}
	fromDefaults, err := cmd.Flags().GetBool("defaults")
	if err != nil {
		return fmt.Errorf("failed to read --defaults flag: %w", err)
	}
	if fromDefaults && len(raw) > 0 {
		return fmt.Errorf("--defaults and --member are mutually exclusive")
	}

	members := make([]registry.Member, 0, len(raw))
	for _, r := range raw {
		m, err := parseMemberFlag(r)
		if err != nil {
			return err
		}
		members = append(members, m)
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}

	res, err := eng.Select(cmd.Context(), projectRoot, members, fromDefaults)
	if err != nil {
		return err
	}
	fmt.Printf("Selected %d presets for project %s\n", res.Members, res.ProjectKey)
	return nil
}
