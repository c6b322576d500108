package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rapportlabs/rapport/internal/models"
	"github.com/rapportlabs/rapport/internal/pipeline"
)

func logCmd() *cobra.Command {
	var (
		contactName string
		meetingDate string
		location    string
		scenario    string
		filePath    string
	)

	cmd := &cobra.Command{
		Use:   "log [notes]",
		Short: "Log free-text meeting notes and merge them into a contact's profile",
		Long: `Log a meeting. The notes are sent to the extraction service, the contact is
resolved (or created) from --contact, and the extracted knowledge is merged
into the contact's profile and action playbook.

Notes come from the argument, --file, or stdin (use --file -).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			if cfg.Claude.APIKey == "" {
				return fmt.Errorf("log: ANTHROPIC_API_KEY is not set")
			}

			rawText, err := readNotes(args, filePath)
			if err != nil {
				return fmt.Errorf("log: %w", err)
			}
			if strings.TrimSpace(rawText) == "" {
				return fmt.Errorf("log: meeting notes must not be empty")
			}

			var date time.Time
			if meetingDate != "" {
				date, err = time.Parse("2006-01-02", meetingDate)
				if err != nil {
					return fmt.Errorf("log: parsing --date (want YYYY-MM-DD): %w", err)
				}
			}

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("log: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			pl := newPipeline(st, logger)
			meeting, err := pl.LogMeeting(ctx, cfg.API.Owner, pipeline.Request{
				ContactName: contactName,
				RawText:     rawText,
				MeetingDate: date,
				Location:    location,
				Scenario:    scenario,
			})
			if err != nil {
				return fmt.Errorf("log: %w", err)
			}

			switch meeting.Status {
			case models.MeetingCompleted:
				fmt.Printf("Meeting %s logged for contact %s\n", meeting.ID, meeting.ContactID)
				if len(meeting.Topics) > 0 {
					fmt.Printf("Topics: %s\n", strings.Join(meeting.Topics, ", "))
				}
				fmt.Printf("Extracted %d key facts\n", len(meeting.KeyFacts))
			case models.MeetingFailed:
				fmt.Printf("Meeting %s recorded, but extraction failed: %s\n", meeting.ID, meeting.ErrorMessage)
				fmt.Println("The raw notes are preserved; the profile was not changed.")
			default:
				fmt.Printf("Meeting %s is %s\n", meeting.ID, meeting.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&contactName, "contact", "c", "", "name of the contact the meeting was with")
	cmd.Flags().StringVar(&meetingDate, "date", "", "meeting date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&location, "location", "", "where the meeting took place")
	cmd.Flags().StringVar(&scenario, "scenario", "", "meeting scenario, e.g. dinner, conference")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "read notes from a file (- for stdin)")
	return cmd
}

// readNotes returns the meeting notes from the positional argument, a file,
// or stdin.
func readNotes(args []string, filePath string) (string, error) {
	if len(args) == 1 && args[0] != "" {
		return args[0], nil
	}
	if filePath == "" {
		return "", fmt.Errorf("provide notes as an argument or via --file")
	}
	if filePath == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(b), nil
}
