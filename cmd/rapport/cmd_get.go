package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func getCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "get [contact-id]",
		Short: "Show a single contact's identity and status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("get: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			c, err := st.GetContact(ctx, cfg.API.Owner, args[0])
			if err != nil {
				return fmt.Errorf("get: %w", err)
			}

			if outputJSON {
				out, err := json.MarshalIndent(c, "", "  ")
				if err != nil {
					return fmt.Errorf("get: marshaling JSON: %w", err)
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("ID:       %s\n", c.ID)
			fmt.Printf("Name:     %s\n", c.Name)
			if c.City != "" {
				fmt.Printf("City:     %s\n", c.City)
			}
			if c.CurrentCompany != "" {
				fmt.Printf("Company:  %s\n", c.CurrentCompany)
			}
			if c.CurrentPosition != "" {
				fmt.Printf("Position: %s\n", c.CurrentPosition)
			}
			if c.CareerSummary != "" {
				fmt.Printf("Career:   %s\n", truncate(c.CareerSummary, 100))
			}
			if len(c.FocusTopics) > 0 {
				fmt.Printf("Focus:    %s\n", strings.Join(c.FocusTopics, ", "))
			}
			if c.LastMeetingDate != nil {
				fmt.Printf("Last met: %s\n", c.LastMeetingDate.Format("2006-01-02"))
			}
			fmt.Printf("Created:  %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	return cmd
}
