package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rapportlabs/rapport/internal/models"
	"github.com/rapportlabs/rapport/internal/pipeline"
)

func importCmd() *cobra.Command {
	var (
		filePath    string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import meeting notes from a JSONL file",
		Long: `Import meetings from a JSONL (JSON Lines) file, one request object per line:

  {"contact_name": "...", "raw_text": "...", "meeting_date": "...", "location": "...", "scenario": "..."}

Each line runs through the full extraction pipeline. Meetings for different
contacts are processed concurrently; merges onto the same contact are
serialized internally.

Use - as the file path to read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			if cfg.Claude.APIKey == "" {
				return fmt.Errorf("import: ANTHROPIC_API_KEY is not set")
			}

			var r io.Reader
			if filePath == "" || filePath == "-" {
				r = os.Stdin
			} else {
				f, openErr := os.Open(filePath)
				if openErr != nil {
					return fmt.Errorf("import: opening file: %w", openErr)
				}
				defer func() { _ = f.Close() }()
				r = f
			}

			var requests []pipeline.Request
			scanner := bufio.NewScanner(r)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				var req pipeline.Request
				if unmarshalErr := json.Unmarshal([]byte(line), &req); unmarshalErr != nil {
					return fmt.Errorf("import: decoding JSONL line: %w", unmarshalErr)
				}
				requests = append(requests, req)
			}
			if scanErr := scanner.Err(); scanErr != nil {
				return fmt.Errorf("import: reading JSONL: %w", scanErr)
			}

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("import: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			pl := newPipeline(st, logger)

			if concurrency < 1 {
				concurrency = 1
			}
			var completed, failed, skipped atomic.Int64

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(concurrency)
			for i := range requests {
				req := requests[i]
				if strings.TrimSpace(req.RawText) == "" {
					skipped.Add(1)
					continue
				}
				g.Go(func() error {
					meeting, logErr := pl.LogMeeting(gctx, cfg.API.Owner, req)
					if logErr != nil {
						return fmt.Errorf("logging meeting for %q: %w", req.ContactName, logErr)
					}
					if meeting.Status == models.MeetingFailed {
						failed.Add(1)
						logger.Warn("imported meeting failed extraction",
							"meeting_id", meeting.ID, "contact", req.ContactName, "error", meeting.ErrorMessage)
						return nil
					}
					completed.Add(1)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return fmt.Errorf("import: %w", err)
			}

			fmt.Printf("Imported %d meetings (%d failed extraction, %d skipped)\n",
				completed.Load(), failed.Load(), skipped.Load())
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "-", "path to JSONL input file (- for stdin)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "maximum meetings processed in parallel")
	return cmd
}
