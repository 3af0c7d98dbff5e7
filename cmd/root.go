package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-session",
	Short: "Recognize faces and learn the ones nobody has named yet",
	Long: `Face Session keeps a corpus of face images, one directory per person,
and an LBPH recognizer trained on it. Recognized faces are named, unknown
ones are learned after the operator names them. The trained model is saved
on exit so the next run resumes instead of retraining.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
