/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/docgen"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/articlehub/apiserver/internal/auth"
	"github.com/articlehub/apiserver/internal/server"
	"github.com/articlehub/apiserver/internal/store"
)

var routesJSON bool

// routesCmd represents the routes command
var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the route table",
	Long: `Prints every registered route as Markdown, or as JSON with --json.
No database connection is made.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		router := server.NewRouter(server.Dependencies{
			Users:    store.NewUserRepository(nil, 0),
			Articles: store.NewArticleRepository(nil, 0),
			Sessions: scs.New(),
			Tokens:   auth.NewTokenIssuer("routes", time.Hour),
			Logger:   zap.NewNop(),
		})

		if routesJSON {
			fmt.Fprintln(cmd.OutOrStdout(), docgen.JSONRoutesDoc(router))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), docgen.MarkdownRoutesDoc(router, docgen.MarkdownOpts{
			ProjectPath: "github.com/articlehub/apiserver",
			Intro:       "Routes served by articlehub.",
		}))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.Flags().BoolVar(&routesJSON, "json", false, "print JSON instead of Markdown")
}
