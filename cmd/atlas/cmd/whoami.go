package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atlashq/atlas-go/session"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := newEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close(ctx)

		snap := e.store.Settle(ctx)
		switch snap.Status {
		case session.StatusAuthenticated:
			fmt.Printf("Signed in as %s (id %d)\n", snap.Identity.Name, snap.Identity.ID)
		default:
			fmt.Println("Not signed in")
			if snap.Err != "" {
				fmt.Printf("  %s\n", snap.Err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
