package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dealsuite/modtrack/internal/models"
	"github.com/dealsuite/modtrack/internal/tui"
)

var editRole string

var editCmd = &cobra.Command{
	Use:   "edit [deal-id]",
	Short: "Edit a deal's module statuses interactively",
	Long: `Opens the interactive module editor for one deal. Edits are buffered
locally and written back in a single commit; quitting without committing
discards them.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editRole, "role", "employee", "Acting role (employee, admin)")
}

func runEdit(cmd *cobra.Command, args []string) error {
	role := models.Role(editRole)
	if role != models.RoleAdmin && role != models.RoleEmployee {
		return fmt.Errorf("unknown role %q (want employee or admin)", editRole)
	}

	return tui.New(apiAddr, args[0], role).Run()
}
