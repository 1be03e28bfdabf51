package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func RunLock(cmd *cobra.Command, args []string) error {
	projectRoot, err := resolveProjectRoot(args)
	if err != nil {
		return err
	}
	version, err := cmd.Flags().GetString("at")
	if err != nil {
		return fmt.Errorf("failed to read --at flag: %w", err)
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}

	res, err := eng.Lock(cmd.Context(), projectRoot, version)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func RunUnlock(cmd *cobra.Command, args []string) error {
	projectRoot, err := resolveProjectRoot(args)
	if err != nil {
		return err
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}

	res, err := eng.Unlock(cmd.Context(), projectRoot)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}
