package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/port"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/rabbitmq"
	"github.com/fiapx/fiapx-fingerprint-service/internal/infra/ytdlp"
	"github.com/fiapx/fiapx-fingerprint-service/internal/usecase"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run [queries file]",
		Short: "Search every query in the file and fingerprint the results",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := c.cfg.QueriesFile
			if len(args) == 1 {
				path = args[0]
			}
			queries, err := readQueriesFile(path)
			if err != nil {
				return err
			}
			if len(queries) == 0 {
				c.log.Warn("no queries to run", zap.String("file", path))
				return nil
			}

			c.app.InitTracing(ctx, "fingerprinter")
			store, err := c.app.OpenStore(ctx)
			if err != nil {
				return err
			}
			fingerprinter, err := c.app.NewFingerprinter(ctx, store, nil)
			if err != nil {
				return err
			}

			run := usecase.NewRunQueriesUseCase(c.app.YTDLP(), fingerprinter, c.app.Reporter(), c.log)
			summary, err := run.Run(ctx, queries)
			printSummary(cmd, summary)
			return err
		}),
	}
}

func newProcessCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "process <url>...",
		Short: "Fingerprint the given video urls",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			urls := make([]string, 0, len(args))
			for _, a := range args {
				if u := ytdlp.NormalizeURL(a); u != "" {
					urls = append(urls, u)
				}
			}

			c.app.InitTracing(ctx, "fingerprinter")
			store, err := c.app.OpenStore(ctx)
			if err != nil {
				return err
			}
			fingerprinter, err := c.app.NewFingerprinter(ctx, store, nil)
			if err != nil {
				return err
			}

			summary := entity.NewRunSummary(uuid.NewString())
			summary.Discovered = len(urls)
			run := usecase.NewRunQueriesUseCase(c.app.YTDLP(), fingerprinter, nil, c.log)
			err = run.ProcessURLs(ctx, urls, summary, c.log.With(zap.String("run_id", summary.RunID)))
			summary.Finish()
			printSummary(cmd, summary)
			return err
		}),
	}
}

type shownRecord struct {
	URL           string                 `json:"url"`
	Title         string                 `json:"title"`
	LengthSeconds int                    `json:"length"`
	ViewCount     int64                  `json:"views"`
	Rating        *float64               `json:"rating"`
	ThumbnailURL  string                 `json:"thumbnail_url"`
	Description   string                 `json:"description"`
	WatchURL      string                 `json:"watch_url"`
	FrameCount    int                    `json:"frame_count"`
	Dimension     int                    `json:"dimension"`
	Features      []entity.FeatureVector `json:"features,omitempty"`
}

func newShowCmd(c *cli) *cobra.Command {
	var withFeatures bool
	cmd := &cobra.Command{
		Use:   "show <url>",
		Short: "Print a stored fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: c.runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.app.OpenStore(ctx)
			if err != nil {
				return err
			}

			rec, err := store.Get(ctx, ytdlp.NormalizeURL(args[0]))
			if errors.Is(err, entity.ErrNotFound) {
				return fmt.Errorf("no fingerprint stored for %s", args[0])
			}
			if err != nil {
				return err
			}

			out := shownRecord{
				URL:           rec.URL,
				Title:         rec.Title,
				LengthSeconds: rec.LengthSeconds,
				ViewCount:     rec.ViewCount,
				Rating:        rec.Rating,
				ThumbnailURL:  rec.ThumbnailURL,
				Description:   rec.Description,
				WatchURL:      rec.WatchURL,
				FrameCount:    len(rec.Embeddings),
			}
			if len(rec.Embeddings) > 0 {
				out.Dimension = len(rec.Embeddings[0])
			}
			if withFeatures {
				out.Features = rec.Embeddings
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}),
	}
	cmd.Flags().BoolVar(&withFeatures, "features", false, "include the feature vectors")
	return cmd
}

func newEnqueueCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue [queries file]",
		Short: "Search every query and publish the results for the worker",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := c.cfg.QueriesFile
			if len(args) == 1 {
				path = args[0]
			}
			queries, err := readQueriesFile(path)
			if err != nil {
				return err
			}

			pub, err := c.app.ConnectBroker()
			if err != nil {
				return err
			}
			seen, err := c.app.SeenSet(ctx)
			if err != nil {
				return err
			}

			var candidates port.CandidatePublisher = rabbitmq.NewCandidatePublisher(pub)
			enqueue := usecase.NewEnqueueCandidatesUseCase(c.app.YTDLP(), candidates, seen, c.log)
			n, err := enqueue.Enqueue(ctx, queries)
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %d candidates\n", n)
			return err
		}),
	}
}

func readQueriesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open queries file: %w", err)
	}
	defer f.Close()
	return usecase.ReadQueries(f)
}

func printSummary(cmd *cobra.Command, s *entity.RunSummary) {
	if s == nil {
		return
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "run %s: %d queries, %d discovered, %d stored, %d skipped, %d failed\n",
		s.RunID, s.Queries, s.Discovered, s.Stored, s.SkippedTotal(), s.Failed)
	reasons := make([]string, 0, len(s.Skipped))
	for reason := range s.Skipped {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(w, "  skipped %s: %d\n", reason, s.Skipped[entity.SkipReason(reason)])
	}
}
