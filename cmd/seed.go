/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/articlehub/apiserver/internal/db"
	"github.com/articlehub/apiserver/internal/seed"
	"github.com/articlehub/apiserver/internal/services"
	"github.com/articlehub/apiserver/internal/store"
)

var seedOpts = seed.DefaultOptions()

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill empty tables with demo users and articles",
	Long: `Inserts demo users and articles. A table that already holds rows is left
untouched, so running the command twice is harmless. Every demo account
uses the password "` + seed.DemoPassword + `".`,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		seeder := seed.NewSeeder(
			services.NewUserService(store.NewUserRepository(dbConn, cfg.Database.QueryTimeout), nil),
			services.NewArticleService(store.NewArticleRepository(dbConn, cfg.Database.QueryTimeout), nil),
			logger.Named("seed"),
		)
		report, err := seeder.Run(ctx, seedOpts)
		if err != nil {
			return err
		}
		for _, failure := range report.Failures {
			logger.Warn("seed record rejected", zap.Int("index", failure.Index), zap.String("error", failure.Error))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users and %d articles\n", report.Users, report.Articles)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntVar(&seedOpts.ExtraUsers, "users", seedOpts.ExtraUsers, "generated users on top of the fixed accounts")
	seedCmd.Flags().IntVar(&seedOpts.ExtraArticles, "articles", seedOpts.ExtraArticles, "generated articles on top of the fixed ones")
	seedCmd.Flags().Uint64Var(&seedOpts.Seed, "rand-seed", seedOpts.Seed, "seed for the generated records")
}
