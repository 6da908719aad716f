//go:build cgo && !tesseract_cli

package ocr

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	"bptracker/internal/apperr"
)

// Tesseract recognizes text with libtesseract. A client is created per
// image; gosseract clients are not safe for concurrent use.
type Tesseract struct {
	language    string
	pageSegMode string
	logger      *zap.Logger
}

// NewTesseract creates a tesseract engine. An empty language means "eng".
func NewTesseract(cfg Config, logger *zap.Logger) *Tesseract {
	return &Tesseract{
		language:    tesseractLanguage(cfg),
		pageSegMode: cfg.PageSegMode,
		logger:      logger.With(zap.String("component", "ocr.tesseract")),
	}
}

func (t *Tesseract) Name() string { return EngineTesseract }

func parsePageSegMode(s string) (gosseract.PageSegMode, bool, error) {
	if s == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 13 {
		return 0, false, fmt.Errorf("invalid page segmentation mode %q", s)
	}
	return gosseract.PageSegMode(n), true, nil
}

type tesseractOutput struct {
	text       string
	confidence float32
	err        error
}

// Recognize runs libtesseract on the image. The call returns when ctx is
// done; the recognition itself finishes in the background.
func (t *Tesseract) Recognize(ctx context.Context, png []byte) (*Result, error) {
	const op = "Tesseract.Recognize"

	if err := ctx.Err(); err != nil {
		return nil, apperr.New(apperr.KindOCR, op, fmt.Errorf("%w: %w", ErrEngineFailed, err), "")
	}

	psm, setPSM, err := parsePageSegMode(t.pageSegMode)
	if err != nil {
		return nil, apperr.New(apperr.KindOCR, op, fmt.Errorf("%w: %w", ErrEngineFailed, err), "")
	}

	start := time.Now()
	done := make(chan tesseractOutput, 1)
	go func() {
		done <- t.run(png, psm, setPSM)
	}()

	var out tesseractOutput
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}

	if out.err != nil {
		t.logger.Error("tesseract failed", zap.Error(out.err))
		return nil, apperr.New(apperr.KindOCR, op, fmt.Errorf("%w: %w", ErrEngineFailed, out.err), "")
	}

	finished := time.Now()
	t.logger.Debug("tesseract completed",
		zap.Int("text_length", len(out.text)),
		zap.Float32("confidence", out.confidence),
		zap.Duration("duration", finished.Sub(start)),
	)

	return &Result{
		Text:               out.text,
		Confidence:         out.confidence,
		Engine:             EngineTesseract,
		ProcessedAt:        finished,
		ProcessingDuration: finished.Sub(start),
	}, nil
}

func (t *Tesseract) run(png []byte, psm gosseract.PageSegMode, setPSM bool) tesseractOutput {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return tesseractOutput{err: err}
	}
	if setPSM {
		if err := client.SetPageSegMode(psm); err != nil {
			return tesseractOutput{err: err}
		}
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return tesseractOutput{err: err}
	}

	text, err := client.Text()
	if err != nil {
		return tesseractOutput{err: err}
	}

	// Word boxes only feed the confidence; text is returned without them.
	var confidence float32
	if boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil && len(boxes) > 0 {
		var sum float64
		for _, b := range boxes {
			sum += b.Confidence
		}
		confidence = float32(sum / float64(len(boxes)) / 100)
	}

	return tesseractOutput{text: text, confidence: confidence}
}

func (t *Tesseract) Close() error { return nil }
