package moderation

import (
	"context"

	"github.com/vietcms/moderation/internal/models"
)

// NSFWClassifier scores an image for explicit content.
type NSFWClassifier interface {
	Classify(ctx context.Context, image []byte) (float64, error)
}

// OCREngine extracts text from an image. Implementations should try several
// preprocessing variants (original, high-contrast, sharpened, upscaled,
// inverted) and return the union of extracted texts.
type OCREngine interface {
	ExtractText(ctx context.Context, image []byte) ([]string, error)
}

// ImagePipeline moderates images: an NSFW pass first, then OCR feeding the
// text pipeline so embedded text is held to the same rules.
type ImagePipeline struct {
	nsfw          NSFWClassifier
	ocr           OCREngine
	text          *Pipeline
	nsfwThreshold float64
}

// NewImagePipeline wires the image path onto a text pipeline. Either
// classifier may be nil; the corresponding step is skipped.
func NewImagePipeline(nsfw NSFWClassifier, ocr OCREngine, text *Pipeline) *ImagePipeline {
	return &ImagePipeline{
		nsfw:          nsfw,
		ocr:           ocr,
		text:          text,
		nsfwThreshold: 0.85,
	}
}

// ClassifyImage runs NSFW detection and OCR over an image. An OCR-triggered
// reject wins over an NSFW review.
func (p *ImagePipeline) ClassifyImage(ctx context.Context, image []byte) (Result, error) {
	result := Result{
		Action:     models.ActionAllowed,
		Labels:     []string{},
		Confidence: 0.9,
		Reasoning:  "Clean content, no violation",
	}

	if p.nsfw != nil {
		prob, err := p.nsfw.Classify(ctx, image)
		if err != nil {
			return Result{}, err
		}
		if prob >= p.nsfwThreshold {
			return Result{
				Action:     models.ActionReject,
				Labels:     []string{LabelSexual},
				Confidence: prob,
				Reasoning:  "NSFW image content",
				Severity:   2,
			}, nil
		}
		if prob >= 0.5 {
			result = Result{
				Action:     models.ActionReview,
				Labels:     []string{LabelSexual},
				Confidence: prob,
				Reasoning:  "Possible NSFW image content",
				Severity:   1,
			}
		}
	}

	if p.ocr == nil {
		return result, nil
	}

	texts, err := p.ocr.ExtractText(ctx, image)
	if err != nil {
		return Result{}, err
	}
	for _, text := range texts {
		if text == "" {
			continue
		}
		textResult := p.text.ClassifyText(ctx, text)
		textResult.ExtractedText = text
		if worseAction(textResult.Action, result.Action) {
			result = textResult
		} else if result.ExtractedText == "" {
			result.ExtractedText = text
		}
	}
	return result, nil
}

// worseAction reports whether a is more severe than b.
func worseAction(a, b models.ModerationAction) bool {
	return actionRank(a) > actionRank(b)
}

func actionRank(a models.ModerationAction) int {
	switch a {
	case models.ActionReject:
		return 2
	case models.ActionReview:
		return 1
	default:
		return 0
	}
}
