package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func contactsCmd() *cobra.Command {
	var (
		query      string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List contacts, most recently met first",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("contacts: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			contacts, err := st.ListContacts(ctx, cfg.API.Owner)
			if err != nil {
				return fmt.Errorf("contacts: listing: %w", err)
			}

			if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
				filtered := contacts[:0]
				for i := range contacts {
					c := &contacts[i]
					if strings.Contains(strings.ToLower(c.Name), q) ||
						strings.Contains(strings.ToLower(c.CurrentCompany), q) ||
						strings.Contains(strings.ToLower(c.CurrentPosition), q) {
						filtered = append(filtered, *c)
					}
				}
				contacts = filtered
			}

			if outputJSON {
				out, err := json.MarshalIndent(contacts, "", "  ")
				if err != nil {
					return fmt.Errorf("contacts: marshaling JSON: %w", err)
				}
				fmt.Println(string(out))
				return nil
			}

			if len(contacts) == 0 {
				fmt.Println("No contacts found")
				return nil
			}
			for i := range contacts {
				c := &contacts[i]
				lastMet := "never"
				if c.LastMeetingDate != nil {
					lastMet = c.LastMeetingDate.Format("2006-01-02")
				}
				line := c.Name
				if c.CurrentCompany != "" || c.CurrentPosition != "" {
					line += fmt.Sprintf(" (%s)", strings.TrimSpace(c.CurrentCompany+" "+c.CurrentPosition))
				}
				fmt.Printf("%-36s  last met %-10s  %s\n", c.ID, lastMet, line)
			}
			fmt.Printf("\n%d contacts\n", len(contacts))
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by name, company, or position")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	return cmd
}
