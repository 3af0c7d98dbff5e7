package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-session/internal/config"
	"github.com/spf13/cobra"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "List known identities and their labels",
	Args:  cobra.NoArgs,
	RunE:  runIdentities,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
}

func runIdentities(cmd *cobra.Command, args []string) error {
	return printIdentities(config.Load(), os.Stdout)
}

// printIdentities writes the identity table of the session built from cfg.
func printIdentities(cfg *config.Config, out io.Writer) error {
	// Listing never writes the model; a missing one is trained in memory only.
	s, err := openSession(cfg, false, true)
	if err != nil {
		return err
	}
	defer func() { _ = s.Finalize() }()

	identities := s.Identities()

	if len(identities) == 0 {
		fmt.Fprintln(out, "No identities yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tNAME")
	for _, id := range identities {
		fmt.Fprintf(w, "%d\t%s\n", id.Label, id.Name)
	}
	w.Flush()
	fmt.Fprintf(out, "\nHighest label: %d\n", s.HighestLabel())
	return nil
}
