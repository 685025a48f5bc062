/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/articlehub/apiserver/internal/db"
	"github.com/articlehub/apiserver/internal/exports"
	"github.com/articlehub/apiserver/internal/query"
	"github.com/articlehub/apiserver/internal/storage"
	"github.com/articlehub/apiserver/internal/store"
)

var exportQuery string

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export users|articles",
	Short: "Dump users or articles as NDJSON into object storage",
	Long: `Streams every matching record into a new object in the configured bucket.
--query takes the same parameters as the list endpoints, for example:

	articlehub export articles --query "published=true&sort=-views&fields=title,views"
`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{exports.ResourceUsers, exports.ResourceArticles},
	RunE: func(cmd *cobra.Command, args []string) error {
		resource := args[0]
		schema := query.UserSchema
		switch resource {
		case exports.ResourceUsers:
		case exports.ResourceArticles:
			schema = query.ArticleSchema
		default:
			return fmt.Errorf("unknown resource %q", resource)
		}

		values, err := url.ParseQuery(exportQuery)
		if err != nil {
			return fmt.Errorf("parse --query: %w", err)
		}

		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx := cmd.Context()
		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer dbConn.Close()

		bucket, err := storage.Open(ctx, cfg.Export)
		if err != nil {
			return fmt.Errorf("open bucket: %w", err)
		}
		defer bucket.Close()

		exporter := exports.NewExporter(
			store.NewUserRepository(dbConn, cfg.Database.QueryTimeout),
			store.NewArticleRepository(dbConn, cfg.Database.QueryTimeout),
			bucket,
			cfg.Export.Prefix,
			logger.Named("export"),
		)
		result, err := exporter.Export(ctx, resource, query.Shape(schema, values))
		if err != nil {
			logger.Error("export failed", zap.String("resource", resource), zap.Error(err))
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d %s to %s/%s\n", result.Count, resource, result.Bucket, result.Key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportQuery, "query", "", "list parameters in URL query form")
}
