package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func meetingsCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "meetings [contact-id]",
		Short: "List a contact's meetings, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("meetings: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if _, err := st.GetContact(ctx, cfg.API.Owner, args[0]); err != nil {
				return fmt.Errorf("meetings: %w", err)
			}

			meetings, err := st.ListMeetings(ctx, args[0])
			if err != nil {
				return fmt.Errorf("meetings: listing: %w", err)
			}

			if outputJSON {
				out, err := json.MarshalIndent(meetings, "", "  ")
				if err != nil {
					return fmt.Errorf("meetings: marshaling JSON: %w", err)
				}
				fmt.Println(string(out))
				return nil
			}

			if len(meetings) == 0 {
				fmt.Println("No meetings recorded")
				return nil
			}
			for i := range meetings {
				m := &meetings[i]
				fmt.Printf("%-36s  %s  %-10s  %s\n",
					m.ID, m.MeetingDate.Format("2006-01-02"), m.Status, truncate(m.RawText, 60))
			}
			fmt.Printf("\n%d meetings\n", len(meetings))
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	return cmd
}
