// Package ocr provides text recognition for photographs of monitor displays.
//
// Two engines are available:
//   - tesseract: libtesseract through gosseract. Builds without cgo, or
//     with the tesseract_cli tag, run the tesseract command line tool
//     instead (image on stdin, text on stdout; TesseractPath selects the
//     binary).
//   - vision: Google Cloud Vision TEXT_DETECTION. Credentials come from
//     GOOGLE_CREDENTIALS (inline JSON), GOOGLE_APPLICATION_CREDENTIALS (file)
//     or application default credentials.
//
// Engines receive PNG bytes; callers normalize uploads with package imaging.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	EngineTesseract = "tesseract"
	EngineVision    = "vision"
)

var (
	// ErrEngineFailed is returned when the engine could not process the image.
	ErrEngineFailed = errors.New("OCR engine failed")

	// ErrMissingCredentials is returned when the vision engine has no usable credentials.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS")

	// ErrUnknownEngine is returned by New for an unsupported engine name.
	ErrUnknownEngine = errors.New("unknown OCR engine")
)

// Engine recognizes text in an image.
type Engine interface {
	// Name identifies the engine in logs and scan records.
	Name() string

	// Recognize extracts text from PNG image data.
	Recognize(ctx context.Context, png []byte) (*Result, error)

	// Close releases any resources held by the engine.
	Close() error
}

// Result contains recognized text with metadata.
type Result struct {
	// Text is the raw recognized text.
	Text string `json:"text"`

	// Confidence is the engine's average confidence (0.0 to 1.0), 0 when unknown.
	Confidence float32 `json:"confidence,omitempty"`

	// Engine is the name of the engine that produced the text.
	Engine string `json:"engine"`

	// ProcessedAt is when recognition completed.
	ProcessedAt time.Time `json:"processed_at"`

	// ProcessingDuration is how long recognition took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// Config selects and configures an engine.
type Config struct {
	Engine string

	// Tesseract
	TesseractPath string
	Language      string
	PageSegMode   string

	// Vision
	CredentialsJSON string
	CredentialsFile string
}

// New creates the engine named in cfg.Engine.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Engine, error) {
	switch cfg.Engine {
	case "", EngineTesseract:
		return NewTesseract(cfg, logger), nil
	case EngineVision:
		return NewVision(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Engine)
	}
}

func tesseractLanguage(cfg Config) string {
	if cfg.Language == "" {
		return "eng"
	}
	return cfg.Language
}
