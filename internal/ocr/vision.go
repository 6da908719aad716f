package ocr

import (
	"context"
	"fmt"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"bptracker/internal/apperr"
)

// Vision implements Engine using Google Cloud Vision API.
type Vision struct {
	client *vision.ImageAnnotatorClient
	logger *zap.Logger
}

// NewVision creates a Vision engine. Inline credentials take precedence
// over a credentials file; without either it tries default credentials.
func NewVision(ctx context.Context, cfg Config, logger *zap.Logger) (*Vision, error) {
	const op = "NewVision"

	var (
		client *vision.ImageAnnotatorClient
		err    error
	)

	switch {
	case cfg.CredentialsJSON != "":
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
		if err != nil {
			return nil, apperr.New(apperr.KindOCR, op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	case cfg.CredentialsFile != "":
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
		if err != nil {
			return nil, apperr.New(apperr.KindOCR, op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	default:
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, apperr.New(apperr.KindOCR, op, ErrMissingCredentials, "")
		}
	}

	return &Vision{
		client: client,
		logger: logger.With(zap.String("component", "ocr.vision")),
	}, nil
}

func (v *Vision) Name() string { return EngineVision }

// Recognize sends the image inline with TEXT_DETECTION.
func (v *Vision) Recognize(ctx context.Context, png []byte) (*Result, error) {
	const op = "Vision.Recognize"
	start := time.Now()

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: png},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		v.logger.Error("vision api call failed", zap.Error(err))
		return nil, apperr.New(apperr.KindOCR, op, fmt.Errorf("%w: %w", ErrEngineFailed, err), "")
	}
	if len(resp.GetResponses()) == 0 {
		return nil, apperr.New(apperr.KindOCR, op, ErrEngineFailed, "no response from Vision API")
	}

	imgResp := resp.GetResponses()[0]
	if imgResp.GetError() != nil {
		return nil, apperr.New(apperr.KindOCR, op,
			fmt.Errorf("%w: %s", ErrEngineFailed, imgResp.GetError().GetMessage()), "")
	}

	var text string
	if full := imgResp.GetFullTextAnnotation(); full != nil {
		text = full.GetText()
	} else if anns := imgResp.GetTextAnnotations(); len(anns) > 0 {
		// The first annotation holds the whole detected text.
		text = anns[0].GetDescription()
	}

	var confidenceSum float32
	var confidenceCount int
	for _, ann := range imgResp.GetTextAnnotations() {
		if ann.GetConfidence() > 0 {
			confidenceSum += ann.GetConfidence()
			confidenceCount++
		}
	}
	var confidence float32
	if confidenceCount > 0 {
		confidence = confidenceSum / float32(confidenceCount)
	}

	done := time.Now()
	return &Result{
		Text:               text,
		Confidence:         confidence,
		Engine:             EngineVision,
		ProcessedAt:        done,
		ProcessingDuration: done.Sub(start),
	}, nil
}

// Close closes the underlying Vision client.
func (v *Vision) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
