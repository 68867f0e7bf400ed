// Package plate recognizes vehicle plates by running the OpenALPR command
// line tool over an enhanced copy of each frame.
package plate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/BrandonDHaskell/sentinel/internal/recognize"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

const (
	DefaultBinary        = "alpr"
	DefaultCountry       = "us"
	DefaultTopN          = 10
	DefaultMinConfidence = 65
	DefaultTimeout       = 20 * time.Second
)

// Runner executes the OCR tool and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

type Config struct {
	Binary        string
	ConfigPath    string // optional openalpr.conf
	Country       string
	TopN          int
	MinConfidence float64
	Timeout       time.Duration
	TempDir       string

	// Enhance prepares the frame before OCR. Nil leaves it untouched.
	Enhance func(image.Image) image.Image
	// Runner overrides process execution; nil uses os/exec.
	Runner Runner
	Logger *slog.Logger
}

type Recognizer struct {
	cfg    Config
	run    Runner
	logger *slog.Logger
	err    error // non-nil when the binary could not be found
}

// New builds the plate recognizer. A missing binary is logged once and
// leaves the recognizer permanently returning no candidates.
func New(cfg Config) *Recognizer {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Country == "" {
		cfg.Country = DefaultCountry
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Recognizer{cfg: cfg, run: cfg.Runner, logger: cfg.Logger}
	if r.run == nil {
		r.run = execRunner
		if _, err := exec.LookPath(cfg.Binary); err != nil {
			r.err = fmt.Errorf("%w: %s not found: %v", recognize.ErrUnavailable, cfg.Binary, err)
			r.logger.Error("plate recognizer disabled", "binary", cfg.Binary, "error", err)
		}
	}
	return r
}

// Available reports whether the OCR tool was found at startup.
func (r *Recognizer) Available() bool { return r.err == nil }

func (r *Recognizer) Recognize(ctx context.Context, frame types.Frame) ([]types.Candidate, error) {
	if r.err != nil || frame.Image == nil {
		return nil, nil
	}

	img := frame.Image
	if r.cfg.Enhance != nil {
		img = r.cfg.Enhance(img)
	}

	path, err := r.writeTemp(img)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	out, err := r.run(ctx, r.cfg.Binary, r.args(path)...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("alpr: %w", ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("alpr: %w: %s", err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("alpr: %w", err)
	}

	cands, err := Parse(out)
	if err != nil {
		return nil, err
	}
	return Classify(cands, r.cfg.MinConfidence), nil
}

func (r *Recognizer) args(path string) []string {
	args := []string{"-j", "-n", strconv.Itoa(r.cfg.TopN), "-c", r.cfg.Country}
	if r.cfg.ConfigPath != "" {
		args = append(args, "--config", r.cfg.ConfigPath)
	}
	return append(args, path)
}

// writeTemp encodes img as a JPEG under a collision-free name.
func (r *Recognizer) writeTemp(img image.Image) (string, error) {
	path := filepath.Join(r.cfg.TempDir, "plate_"+uuid.NewString()+".jpg")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create plate temp file: %w", err)
	}
	if err := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode plate frame: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close plate temp file: %w", err)
	}
	return path, nil
}
