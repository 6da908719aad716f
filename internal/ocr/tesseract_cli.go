//go:build !cgo || tesseract_cli

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"bptracker/internal/apperr"
)

// Tesseract runs the tesseract binary once per image. It is used when the
// binary is built without cgo or with the tesseract_cli tag.
type Tesseract struct {
	path        string
	language    string
	pageSegMode string
	logger      *zap.Logger
}

// NewTesseract creates a tesseract engine. Empty fields fall back to
// "tesseract" on PATH and the "eng" language.
func NewTesseract(cfg Config, logger *zap.Logger) *Tesseract {
	path := cfg.TesseractPath
	if path == "" {
		path = "tesseract"
	}

	return &Tesseract{
		path:        path,
		language:    tesseractLanguage(cfg),
		pageSegMode: cfg.PageSegMode,
		logger:      logger.With(zap.String("component", "ocr.tesseract")),
	}
}

func (t *Tesseract) Name() string { return EngineTesseract }

func (t *Tesseract) args() []string {
	args := []string{"stdin", "stdout", "-l", t.language}
	if t.pageSegMode != "" {
		args = append(args, "--psm", t.pageSegMode)
	}
	return args
}

// Recognize pipes the image to tesseract and returns its stdout.
func (t *Tesseract) Recognize(ctx context.Context, png []byte) (*Result, error) {
	const op = "Tesseract.Recognize"
	start := time.Now()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.path, t.args()...)
	cmd.Stdin = bytes.NewReader(png)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		details := strings.TrimSpace(stderr.String())
		t.logger.Error("tesseract failed", zap.Error(err), zap.String("stderr", details))
		return nil, apperr.New(apperr.KindOCR, op, fmt.Errorf("%w: %w", ErrEngineFailed, err), "")
	}

	done := time.Now()
	t.logger.Debug("tesseract completed",
		zap.Int("text_length", stdout.Len()),
		zap.Duration("duration", done.Sub(start)),
	)

	return &Result{
		Text:               stdout.String(),
		Engine:             EngineTesseract,
		ProcessedAt:        done,
		ProcessingDuration: done.Sub(start),
	}, nil
}

func (t *Tesseract) Close() error { return nil }
