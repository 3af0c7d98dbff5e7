package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-session/internal/config"
	"github.com/kozaktomas/face-session/internal/corpus"
	"github.com/kozaktomas/face-session/internal/lbph"
	"github.com/kozaktomas/face-session/internal/session"
	"github.com/schollz/progressbar/v3"
)

// recognizerParams maps the LBPH config onto recognizer parameters.
func recognizerParams(cfg config.LBPHConfig) lbph.Params {
	return lbph.Params{
		Radius:    cfg.Radius,
		GridX:     cfg.GridX,
		GridY:     cfg.GridY,
		FaceSize:  cfg.FaceSize,
		Threshold: cfg.Threshold,
		Neighbors: cfg.Neighbors,
		EfSearch:  cfg.EfSearch,
	}
}

// newBootstrapProgress returns a progress callback that draws a bar once the
// number of identities is known.
func newBootstrapProgress() session.ProgressFunc {
	var bar *progressbar.ProgressBar
	return func(name string, done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Loading identities"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionFullWidth(),
			)
		}
		bar.Describe(fmt.Sprintf("Loading %s", name))
		bar.Add(1)
		if done == total {
			bar.Finish()
			fmt.Println()
		}
	}
}

// openSession builds the recognizer and corpus from cfg and starts a
// session. With reset the existing model is removed first.
func openSession(cfg *config.Config, reset, noSave bool) (*session.Session, error) {
	if reset {
		fmt.Printf("Removing model %s\n", cfg.Model.Path)
		if err := session.Reset(cfg.Model.Path); err != nil {
			return nil, err
		}
	}

	recognizer, err := lbph.New(recognizerParams(cfg.LBPH))
	if err != nil {
		return nil, err
	}

	store, err := corpus.Open(cfg.Corpus.Dir)
	if err != nil {
		return nil, err
	}

	s := session.New(recognizer, store, session.Options{
		ModelPath: cfg.Model.Path,
		NoSave:    noSave,
		Progress:  newBootstrapProgress(),
	})
	if err := s.Start(); err != nil {
		return nil, err
	}

	switch s.Mode() {
	case session.Resumed:
		fmt.Printf("Resumed model from %s\n", cfg.Model.Path)
	default:
		fmt.Printf("Trained on %d sample(s) from %s\n", recognizer.SampleCount(), cfg.Corpus.Dir)
	}
	fmt.Printf("Known identities: %d\n", len(s.Identities()))
	return s, nil
}
