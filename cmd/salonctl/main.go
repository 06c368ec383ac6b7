// Command salonctl is the operator CLI: it applies migrations, provisions salons, issues session
// tokens and fires dispatch triggers either inline or through the worker queue.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "salonctl",
		Short:        "Operate the salon CRM",
		SilenceUsage: true,
	}

	root.AddCommand(
		newMigrateCmd(),
		newSalonCmd(),
		newTokenCmd(),
		newTriggerCmd(),
	)
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
