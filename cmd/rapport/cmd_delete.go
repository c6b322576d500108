package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func deleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete [contact-id]",
		Short: "Delete a contact, its meetings, and its playbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("delete: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			c, err := st.GetContact(ctx, cfg.API.Owner, args[0])
			if err != nil {
				return fmt.Errorf("delete: %w", err)
			}

			if !yes {
				return fmt.Errorf("delete: refusing to delete %q without --yes", c.Name)
			}

			if err := st.DeleteContact(ctx, cfg.API.Owner, c.ID); err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			fmt.Printf("Deleted contact %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
