package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-session/internal/config"
	"github.com/kozaktomas/face-session/internal/session"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the model from the corpus and save it",
	Long: `Train the recognizer on every image in the corpus and save the model.

When a model already exists it is loaded and checked against the corpus
instead. Use --reset to retrain from scratch.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().Bool("reset", false, "Remove the saved model and retrain from the corpus")
}

func runTrain(cmd *cobra.Command, args []string) error {
	reset := mustGetBool(cmd, "reset")

	cfg := config.Load()

	s, err := openSession(cfg, reset, false)
	if err != nil {
		return err
	}
	if s.Mode() == session.Resumed {
		fmt.Println("Model is up to date, use --reset to retrain.")
	}

	if err := s.Finalize(); err != nil {
		return err
	}
	fmt.Printf("Model saved to %s\n", cfg.Model.Path)
	return nil
}
