package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kozaktomas/face-session/internal/config"
	"github.com/kozaktomas/face-session/internal/constants"
	"github.com/kozaktomas/face-session/internal/corpus"
	"github.com/kozaktomas/face-session/internal/session"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Recognize faces interactively",
	Long: `Start an interactive session. Enter the path of a face image and the
session tells who it is. When the face is unknown you are asked for a name
and the image is learned and stored in the corpus.

Enter Stop to end the session. The model is saved on exit unless
--dont-save is given.

Examples:
  face-session session
  face-session session --reset`,
	Args: cobra.NoArgs,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.Flags().Bool("reset", false, "Remove the saved model and retrain from the corpus")
	sessionCmd.Flags().Bool("dont-save", false, "Do not save the model on exit")
}

// linePrompter reads names from the same input as the image paths.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *linePrompter) PromptName() (string, error) {
	fmt.Fprintf(p.out, "%s: ", constants.UnknownFacePrompt)
	return readLine(p.in)
}

// readLine returns the next line without its line ending. A final line
// without a newline is returned before io.EOF.
func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// runLoop reads image paths until Stop or end of input.
func runLoop(s *session.Session, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	prompter := &linePrompter{in: reader, out: out}

	for {
		fmt.Fprint(out, "Enter a path: ")
		line, err := readLine(reader)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		path := strings.TrimSpace(line)
		if path == constants.StopCommand {
			return nil
		}
		if path == "" {
			continue
		}

		img, err := corpus.DecodeFile(path)
		if err != nil {
			fmt.Fprintf(out, "Cannot read %s: %v\n", path, err)
			continue
		}

		outcome, err := s.RecognizeOrLearn(img, prompter)
		switch {
		case errors.Is(err, session.ErrInvalidName):
			fmt.Fprintf(out, "Not learned: %v\n", err)
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(out)
			return nil
		case err != nil:
			return err
		}

		if outcome.Learned != nil {
			if outcome.Learned.Created {
				fmt.Fprintf(out, "Nice to meet you, %s (label %d)\n", outcome.Learned.Name, outcome.Learned.Label)
			} else {
				fmt.Fprintf(out, "Learned a new image of %s\n", outcome.Learned.Name)
			}
			continue
		}
		fmt.Fprintf(out, "This is %s\n", outcome.Name)
	}
}

func runSession(cmd *cobra.Command, args []string) error {
	reset := mustGetBool(cmd, "reset")
	noSave := mustGetBool(cmd, "dont-save")

	cfg := config.Load()

	s, err := openSession(cfg, reset, noSave)
	if err != nil {
		return err
	}

	loopErr := runLoop(s, os.Stdin, os.Stdout)

	if err := s.Finalize(); err != nil {
		return errors.Join(loopErr, err)
	}
	if !noSave {
		fmt.Printf("Model saved to %s\n", cfg.Model.Path)
	}
	return loopErr
}
