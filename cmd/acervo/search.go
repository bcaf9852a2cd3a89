package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/acervolabs/acervo"
	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/domain/search"
	"github.com/acervolabs/acervo/internal/config"
)

func searchCmd() *cobra.Command {
	var (
		entityType string
		parentID   int64
		count      int
		threshold  float64
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Semantic search across the indexed records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), entityType, parentID, count, threshold)
		},
	}

	cmd.Flags().StringVar(&entityType, "entity-type", "", "Restrict to one entity type")
	cmd.Flags().Int64Var(&parentID, "parent-id", 0, "Restrict to records owned by this parent")
	cmd.Flags().IntVar(&count, "count", search.DefaultMatchCount, "Maximum number of results")
	cmd.Flags().Float64Var(&threshold, "threshold", search.DefaultMatchThreshold, "Minimum cosine similarity")

	return cmd
}

func runSearch(cmd *cobra.Command, query, rawType string, parentID int64, count int, threshold float64) error {
	opts := []search.RequestOption{
		search.WithMatchCount(count),
		search.WithMatchThreshold(threshold),
	}
	if rawType != "" {
		entityType, err := embedding.ParseEntityType(rawType)
		if err != nil {
			return err
		}
		opts = append(opts, search.WithEntityType(entityType))
	}
	if parentID != 0 {
		opts = append(opts, search.WithParentID(parentID))
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client, err := acervo.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("create acervo client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			client.Logger().Error("failed to close acervo client", slog.Any("error", err))
		}
	}()

	matches, err := client.Search.Search(cmd.Context(), search.NewRequest(query, opts...))
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		fmt.Println("no matches")
		return nil
	}

	for i, m := range matches {
		rec := m.Record()
		fmt.Printf("%d. [%.3f] %s/%d\n", i+1, m.Similarity(), rec.EntityType(), rec.EntityID())
		fmt.Printf("   %s\n", snippet(rec.Content(), 200))
	}
	return nil
}

// snippet flattens content to one line truncated to at most n runes.
func snippet(content string, n int) string {
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n]) + "..."
}
