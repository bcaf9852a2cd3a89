package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/acervolabs/acervo"
	"github.com/acervolabs/acervo/application/service"
	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/infrastructure/storage"
	"github.com/acervolabs/acervo/internal/config"
)

// backfillItem is one entry of the backfill manifest file.
type backfillItem struct {
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	ParentID   int64          `json:"parent_id,omitempty"`
	IndexedBy  int64          `json:"indexed_by,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Provider   string         `json:"provider"`
	Key        string         `json:"key"`
	MimeType   string         `json:"mime_type,omitempty"`
}

func backfillCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Bulk index documents from a JSON manifest",
		Long: `Bulk index documents from a JSON manifest.

The manifest is a JSON array of items:

  [{"entity_type": "document", "entity_id": 42, "provider": "supabase",
    "key": "cases/42/contract.pdf"}]

Entities are indexed one at a time with a pause between them so the
embedding API stays under its rate limits. A failing entity is counted
and skipped, never aborting the batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd, file)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the JSON manifest")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runBackfill(cmd *cobra.Command, file string) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	var entries []backfillItem
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	items := make([]service.BackfillItem, 0, len(entries))
	for i, e := range entries {
		entityType, err := embedding.ParseEntityType(e.EntityType)
		if err != nil {
			return fmt.Errorf("manifest item %d: %w", i, err)
		}
		prov, err := storage.ParseProvider(e.Provider)
		if err != nil {
			return fmt.Errorf("manifest item %d: %w", i, err)
		}
		req := service.NewIndexRequest(entityType, e.EntityID,
			service.WithParent(e.ParentID),
			service.WithIndexedBy(e.IndexedBy),
			service.WithTags(e.Metadata),
		)
		items = append(items, service.NewBackfillItem(req, service.NewDocumentSource(prov, e.Key, e.MimeType)))
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

	report, err := client.Indexer.Backfill(cmd.Context(), items)
	if err != nil {
		return err
	}

	fmt.Printf("backfill: %d indexed, %d skipped, %d failed (%d total)\n",
		report.Indexed(), report.Skipped(), report.Failed(), report.Total())
	return nil
}
