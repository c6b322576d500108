package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rapportlabs/rapport/internal/export"
	"github.com/rapportlabs/rapport/internal/metrics"
	"github.com/rapportlabs/rapport/internal/store"
)

func exportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export [contact-id]",
		Short: "Export a contact's full profile as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("export: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			c, err := st.GetContact(ctx, cfg.API.Owner, args[0])
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			meetings, err := st.ListMeetings(ctx, c.ID)
			if err != nil {
				return fmt.Errorf("export: listing meetings: %w", err)
			}

			playbook, err := st.GetPlaybook(ctx, c.ID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("export: loading playbook: %w", err)
			}

			md := export.Markdown(c, meetings, playbook, time.Now())
			metrics.Inc(metrics.ExportsTotal)

			if outPath == "" || outPath == "-" {
				fmt.Print(md)
				return nil
			}
			if err := os.WriteFile(outPath, []byte(md), 0o644); err != nil {
				return fmt.Errorf("export: writing %s: %w", outPath, err)
			}
			fmt.Printf("Exported %s to %s\n", c.Name, outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "-", "output file (- for stdout)")
	return cmd
}
