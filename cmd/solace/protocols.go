package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"solace/internal/protocol"
	"solace/internal/therapy"
)

var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "Inspect and validate the protocol catalog",
}

var protocolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog methods and their variations",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := protocol.NewStore(cfg.Protocols.Path)
		if err != nil {
			return err
		}
		for _, method := range store.Methods() {
			fmt.Println(method)
			for _, name := range store.VariationNames(therapy.Method(method)) {
				v := store.Variation(therapy.Method(method), name)
				fmt.Printf("  %s (%d steps)\n", name, len(v.Steps))
			}
		}
		return nil
	},
}

var protocolsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the catalog beyond its schema",
	Long: `Loads the configured catalog (or the embedded one) and runs the
semantic checks: step ordering, reachable completion, usable adaptive
responses, known method names. Exits non-zero when issues are found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := protocol.NewStore(cfg.Protocols.Path)
		if err != nil {
			return err
		}

		issues, err := store.Lint(cmd.Context())
		if err != nil {
			return err
		}
		if len(issues) == 0 {
			fmt.Printf("catalog ok: %d methods\n", len(store.Methods()))
			return nil
		}
		for _, issue := range issues {
			fmt.Println(issue)
		}
		return fmt.Errorf("%d catalog issue(s)", len(issues))
	},
}
