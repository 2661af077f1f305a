package moderation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/vietcms/moderation/internal/models"
)

func newTestPipeline() *Pipeline {
	return NewPipeline(NewLexiconModel(), DefaultThresholds(), slog.Default())
}

func TestPipelineEndToEnd(t *testing.T) {
	p := newTestPipeline()
	ctx := context.Background()

	tests := []struct {
		text   string
		action models.ModerationAction
	}{
		{"Sản phẩm rất tốt", models.ActionAllowed},
		{"Giao hàng đúng hẹn, hài lòng!", models.ActionAllowed},
		{"Lon bia này ngon", models.ActionAllowed},
		{"người", models.ActionAllowed},
		{"d:m,m", models.ActionReject},
		{"đm mày", models.ActionReject},
		{"Bọn da đen bẩn thỉu cút về nước đi", models.ActionReject},
		{"n.g.u", models.ActionReview},
		{"đồ ngu ngốc", models.ActionReview},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			r := p.ClassifyText(ctx, tt.text)
			if r.Action != tt.action {
				t.Errorf("ClassifyText(%q) = %s (%s), want %s",
					tt.text, r.Action, r.Reasoning, tt.action)
			}
		})
	}
}

func TestPipelineObfuscatedRejectShortCircuits(t *testing.T) {
	p := newTestPipeline()

	r := p.ClassifyText(context.Background(), "d:m,m")
	if r.Action != models.ActionReject {
		t.Fatalf("action = %s, want reject", r.Action)
	}
	if !r.ObfuscationDetected {
		t.Error("obfuscation flag not set")
	}
	if !strings.Contains(r.Reasoning, "obfuscation") {
		t.Errorf("reasoning %q does not mention obfuscation", r.Reasoning)
	}
	if r.Severity != 2 {
		t.Errorf("severity = %d, want 2", r.Severity)
	}
}

func TestPipelineHateReject(t *testing.T) {
	p := newTestPipeline()

	r := p.ClassifyText(context.Background(), "Bọn da đen bẩn thỉu cút về nước đi")
	if r.Action != models.ActionReject {
		t.Fatalf("action = %s, want reject", r.Action)
	}
	if !containsString(r.Labels, LabelHate) {
		t.Errorf("labels = %v, want hate", r.Labels)
	}
	if r.Confidence < 0.95 {
		t.Errorf("confidence = %v, want >= 0.95", r.Confidence)
	}
}

func TestPipelineCleanContent(t *testing.T) {
	p := newTestPipeline()

	r := p.ClassifyText(context.Background(), "Giao hàng đúng hẹn")
	if r.Action != models.ActionAllowed {
		t.Fatalf("action = %s (%s), want allowed", r.Action, r.Reasoning)
	}
	if r.Severity != 0 {
		t.Errorf("severity = %d, want 0", r.Severity)
	}
	if r.Confidence < 0.8 {
		t.Errorf("confidence = %v", r.Confidence)
	}
}

func TestPipelineModelReject(t *testing.T) {
	p := newTestPipeline()

	// No rule matches this, the lexicon model catches it.
	r := p.ClassifyText(context.Background(), "bọn biến thái đáng sợ")
	if r.Action != models.ActionReject {
		t.Fatalf("action = %s (%s), want reject", r.Action, r.Reasoning)
	}
	if !containsString(r.Labels, LabelHate) {
		t.Errorf("labels = %v, want hate", r.Labels)
	}
}

func TestPipelineDeterministicReasoning(t *testing.T) {
	p := newTestPipeline()
	ctx := context.Background()

	for _, text := range []string{"d:m,m", "đồ ngu ngốc", "Sản phẩm rất tốt"} {
		first := p.ClassifyText(ctx, text)
		second := p.ClassifyText(ctx, text)
		if first.Reasoning != second.Reasoning {
			t.Errorf("reasoning for %q differs: %q vs %q", text, first.Reasoning, second.Reasoning)
		}
		if first.Action != second.Action {
			t.Errorf("action for %q differs", text)
		}
	}
}

// batchCountingModel tracks model invocations and their batch widths.
type batchCountingModel struct {
	calls int
	sizes []int
	inner TextModel
}

func (m *batchCountingModel) PredictBatch(ctx context.Context, texts []string) ([]Prediction, error) {
	m.calls++
	m.sizes = append(m.sizes, len(texts))
	return m.inner.PredictBatch(ctx, texts)
}

func TestClassifyBatchSingleModelCall(t *testing.T) {
	model := &batchCountingModel{inner: NewLexiconModel()}
	p := NewPipeline(model, DefaultThresholds(), slog.Default())
	ctx := context.Background()

	texts := []string{
		"Sản phẩm rất tốt",
		"đồ ngu ngốc",
		"d:m,m",
		"bọn biến thái đáng sợ",
	}
	results := p.ClassifyBatch(ctx, texts)
	if len(results) != len(texts) {
		t.Fatalf("got %d results, want %d", len(results), len(texts))
	}
	if model.calls != 1 {
		t.Errorf("model invoked %d times for the batch, want 1", model.calls)
	}

	// Batch decisions match the one-at-a-time path. The obfuscated reject
	// is settled by rules and never reaches the model.
	single := newTestPipeline()
	for i, text := range texts {
		want := single.ClassifyText(ctx, text)
		if results[i].Action != want.Action {
			t.Errorf("batch result for %q = %s (%s), want %s",
				text, results[i].Action, results[i].Reasoning, want.Action)
		}
	}
}

func TestClassifyBatchModelFailureFallsBackToRules(t *testing.T) {
	p := NewPipeline(failingModel{}, DefaultThresholds(), slog.Default())

	results := p.ClassifyBatch(context.Background(), []string{"đm mày", "Sản phẩm rất tốt"})
	if results[0].Action != models.ActionReject {
		t.Errorf("action = %s, want reject", results[0].Action)
	}
	if results[1].Action != models.ActionAllowed {
		t.Errorf("action = %s, want allowed", results[1].Action)
	}
}

type failingModel struct{}

func (failingModel) PredictBatch(ctx context.Context, texts []string) ([]Prediction, error) {
	return nil, errors.New("model unavailable")
}

func TestPipelineModelFailureFallsBackToRules(t *testing.T) {
	p := NewPipeline(failingModel{}, DefaultThresholds(), slog.Default())
	ctx := context.Background()

	// Rules still decide.
	if r := p.ClassifyText(ctx, "đm mày"); r.Action != models.ActionReject {
		t.Errorf("action = %s, want reject", r.Action)
	}
	// Without rules or model, the text is allowed.
	r := p.ClassifyText(ctx, "Sản phẩm rất tốt")
	if r.Action != models.ActionAllowed {
		t.Errorf("action = %s, want allowed", r.Action)
	}
	if r.Reasoning != "Clean content, no violation" {
		t.Errorf("reasoning = %q", r.Reasoning)
	}
}

type stubNSFW struct{ prob float64 }

func (s stubNSFW) Classify(ctx context.Context, image []byte) (float64, error) {
	return s.prob, nil
}

type stubOCR struct{ texts []string }

func (s stubOCR) ExtractText(ctx context.Context, image []byte) ([]string, error) {
	return s.texts, nil
}

func TestImagePipeline(t *testing.T) {
	text := newTestPipeline()
	ctx := context.Background()

	// High NSFW probability rejects without OCR.
	p := NewImagePipeline(stubNSFW{prob: 0.95}, stubOCR{}, text)
	r, err := p.ClassifyImage(ctx, []byte("img"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Action != models.ActionReject {
		t.Errorf("action = %s, want reject", r.Action)
	}
	if !containsString(r.Labels, LabelSexual) {
		t.Errorf("labels = %v", r.Labels)
	}

	// OCR-extracted profanity rejects a visually clean image.
	p = NewImagePipeline(stubNSFW{prob: 0.1}, stubOCR{texts: []string{"đm mày"}}, text)
	r, err = p.ClassifyImage(ctx, []byte("img"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Action != models.ActionReject {
		t.Errorf("action = %s, want reject", r.Action)
	}
	if r.ExtractedText != "đm mày" {
		t.Errorf("extracted text = %q", r.ExtractedText)
	}

	// Clean image with clean text passes.
	p = NewImagePipeline(stubNSFW{prob: 0.1}, stubOCR{texts: []string{"xin chào"}}, text)
	r, err = p.ClassifyImage(ctx, []byte("img"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Action != models.ActionAllowed {
		t.Errorf("action = %s, want allowed", r.Action)
	}
}

type stubTranscriber struct{ text string }

func (s stubTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return s.text, nil
}

func TestAudioPipeline(t *testing.T) {
	text := newTestPipeline()

	p := NewAudioPipeline(stubTranscriber{text: "đm mày"}, text)
	r, err := p.ClassifyAudio(context.Background(), []byte("wav"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Action != models.ActionReject {
		t.Errorf("action = %s, want reject", r.Action)
	}
	if r.TranscribedText != "đm mày" {
		t.Errorf("transcribed text = %q", r.TranscribedText)
	}
}

func TestCorrectTranscript(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"xin chào mọi người", "xin chào mọi người"},
		{"Mấy ngù thế", "Mày ngu thế"},
		{"ngưu quá", "ngu quá"},
		{"đụ má thằng này", "địt mẹ thằng này"},
		{"sau mấy chưa làm", "sao mày chưa làm"},
	}
	for _, tt := range tests {
		if got := correctTranscript(tt.in); got != tt.want {
			t.Errorf("correctTranscript(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAudioPipelineCorrectsTranscript(t *testing.T) {
	text := newTestPipeline()

	// The raw transcript carries a tone error on "ngu"; the corrected form
	// is what gets classified and reported back.
	p := NewAudioPipeline(stubTranscriber{text: "Mấy ngù thế"}, text)
	r, err := p.ClassifyAudio(context.Background(), []byte("wav"))
	if err != nil {
		t.Fatal(err)
	}
	if r.TranscribedText != "Mày ngu thế" {
		t.Errorf("transcribed text = %q, want corrected form", r.TranscribedText)
	}
	if r.Action == models.ActionAllowed {
		t.Errorf("action = %s (%s), insult passed uncorrected", r.Action, r.Reasoning)
	}
}
