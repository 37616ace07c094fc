package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/thiagozs/go-llmchat/internal/llm"
)

var imageCmd = &cobra.Command{
	Use:   "image PROMPT...",
	Short: "Generate an image from a prompt and print its URL",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := joinArgs(args, "prompt")
		if err != nil {
			return err
		}
		log := newLogger(os.Stderr, verbose)
		defer func() { _ = log.Sync() }()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		gen, err := llm.NewImages(cfg, cmd.OutOrStdout(), log)
		if err != nil {
			return err
		}
		if _, err := gen.Generate(cmd.Context(), text); err != nil {
			cmd.PrintErrln(err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(imageCmd)
}
