package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("stats: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			stats, err := st.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: fetching statistics: %w", err)
			}

			fmt.Printf("Contacts:  %d\n", stats.Contacts)
			fmt.Printf("Meetings:  %d\n", stats.Meetings)
			fmt.Printf("Playbooks: %d\n", stats.Playbooks)

			if len(stats.MeetingsByStatus) > 0 {
				fmt.Println("\nMeetings by status:")
				for s, c := range stats.MeetingsByStatus {
					fmt.Printf("  %-12s %d\n", s, c)
				}
			}
			return nil
		},
	}
}
