package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/acervolabs/acervo"
	"github.com/acervolabs/acervo/application/service"
	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/infrastructure/storage"
	"github.com/acervolabs/acervo/internal/config"
)

func indexCmd() *cobra.Command {
	var (
		entityType string
		entityID   int64
		parentID   int64
		provider   string
		key        string
		mimeType   string
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index one document from object storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, entityType, entityID, parentID, provider, key, mimeType)
		},
	}

	cmd.Flags().StringVar(&entityType, "entity-type", "document", "Entity type (document, case, contract, clause, docket_entry)")
	cmd.Flags().Int64Var(&entityID, "entity-id", 0, "Entity identifier")
	cmd.Flags().Int64Var(&parentID, "parent-id", 0, "Owning parent identifier")
	cmd.Flags().StringVar(&provider, "provider", "supabase", "Storage provider (backblaze, supabase, google_drive)")
	cmd.Flags().StringVar(&key, "key", "", "Object key or storage URL")
	cmd.Flags().StringVar(&mimeType, "mime-type", "", "MIME type (detected from the download when empty)")
	_ = cmd.MarkFlagRequired("entity-id")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func runIndex(cmd *cobra.Command, rawType string, entityID, parentID int64, rawProvider, key, mimeType string) error {
	entityType, err := embedding.ParseEntityType(rawType)
	if err != nil {
		return err
	}
	prov, err := storage.ParseProvider(rawProvider)
	if err != nil {
		return err
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

	req := service.NewIndexRequest(entityType, entityID, service.WithParent(parentID))
	src := service.NewDocumentSource(prov, key, mimeType)

	result, err := client.Indexer.IndexDocument(cmd.Context(), req, src)
	if err != nil {
		return err
	}

	switch {
	case result.Indexed():
		fmt.Printf("indexed %s/%d: %d chunks (generation %s)\n", entityType, entityID, result.Chunks(), result.Generation())
	default:
		fmt.Printf("skipped %s/%d: %s\n", entityType, entityID, result.Outcome())
	}
	return nil
}
