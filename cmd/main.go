package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/deepgram/voxchat/internal/config"
	"github.com/deepgram/voxchat/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "voxchat",
	Short: "Voice and text chat with a hosted language model",
	Long: `voxchat serves a chat route backed by an OpenAI-compatible model and
runs an interactive chat session against it.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadEnvFiles(".env.local", ".env")
		logger.Init(cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(newServeCmd(), newChatCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
