package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiagozs/go-llmchat/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Search the web and chat about the chosen results",
	Long: `search queries Google Custom Search (GOOGLE_API_KEY and GOOGLE_CSE_ID)
and shows the results in a picker. Each chosen page is loaded into a chat
session; when the session ends the picker comes back.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, err := joinArgs(args, "query string")
		if err != nil {
			return err
		}
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		s, ok := a.proc.Searcher.(*search.Searcher)
		if !ok || s == nil {
			return search.ErrNotConfigured
		}
		ctx := cmd.Context()
		err = s.Run(ctx, query, func(url string) bool {
			if !a.proc.Process(ctx, url, readAll) {
				// o seletor limpa a tela; segura o erro até o usuário ver
				_, _ = a.console.ReadLine("Press the enter key to continue. ")
			}
			return ctx.Err() == nil
		})
		if errors.Is(err, search.ErrNoResults) {
			fmt.Fprintln(cmd.OutOrStdout(), "No results.")
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
