package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func RunStatus(cmd *cobra.Command, args []string) error {
	projectRoot, err := resolveProjectRoot(args)
	if err != nil {
		return err
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}

	st, err := eng.Status(projectRoot)
	if err != nil {
		return err
	}

	fmt.Printf("Project:   %s\n", st.ProjectKey)
	fmt.Printf("Document:  %s\n", st.RootDocument)
	fmt.Printf("State:     %s\n", st.State)
	if st.AggregatePath != "" {
		fmt.Printf("Aggregate: %s\n", st.AggregatePath)
	}
	fmt.Printf("Presets:   %d\n", st.Members)
	return nil
}
