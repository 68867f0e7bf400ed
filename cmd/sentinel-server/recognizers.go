package main

import (
	"log/slog"

	"github.com/BrandonDHaskell/sentinel/internal/config"
	"github.com/BrandonDHaskell/sentinel/internal/preprocess"
	"github.com/BrandonDHaskell/sentinel/internal/preprocess/cvstages"
	"github.com/BrandonDHaskell/sentinel/internal/recognize"
	"github.com/BrandonDHaskell/sentinel/internal/recognize/face"
	"github.com/BrandonDHaskell/sentinel/internal/recognize/face/cvface"
	"github.com/BrandonDHaskell/sentinel/internal/recognize/plate"
)

type recognizers struct {
	plate      recognize.Recognizer
	face       recognize.Recognizer
	faceLabels []string
	detector   *cvface.Detector
}

// newRecognizers builds both frame channels. Missing models or binaries
// disable the affected channel only.
func newRecognizers(cfg config.Config, logger *slog.Logger) *recognizers {
	out := &recognizers{}

	plateCfg := plate.Config{
		Binary:        cfg.Plate.Binary,
		ConfigPath:    cfg.Plate.ConfigPath,
		Country:       cfg.Plate.Country,
		TopN:          cfg.Plate.TopN,
		MinConfidence: cfg.Plate.MinConfidence,
		Timeout:       cfg.Plate.Timeout,
		Logger:        logger,
	}
	if cfg.Plate.Enhance {
		plateCfg.Enhance = preprocess.New(logger, cvstages.Plate()...).Enhance
	}
	out.plate = plate.New(plateCfg)

	detector, err := cvface.OpenDetector(cfg.Face.CascadePath)
	if err != nil {
		logger.Error("face channel disabled", "cascade", cfg.Face.CascadePath, "error", err)
		out.face = recognize.Disabled{}
		return out
	}
	out.detector = detector

	classifiers, err := cvface.LoadClassifiers(cfg.Face.ClassifierDir)
	if err != nil {
		logger.Error("face classifiers unavailable", "dir", cfg.Face.ClassifierDir, "error", err)
	}
	if len(classifiers) == 0 {
		logger.Warn("no face classifiers loaded, every face will be unrecognised", "dir", cfg.Face.ClassifierDir)
	}

	fr := face.New(face.Config{
		Detector:    detector,
		Classifiers: classifiers,
		Logger:      logger,
	})
	out.face = fr
	out.faceLabels = fr.Labels()
	logger.Info("face channel ready", "labels", out.faceLabels)
	return out
}

func (r *recognizers) Close() {
	if r.detector != nil {
		_ = r.detector.Close()
	}
}
