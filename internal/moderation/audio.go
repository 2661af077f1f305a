package moderation

import (
	"context"
	"regexp"
	"strings"
	"unicode"
)

// Transcriber converts speech audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Speech models make recurring mistakes on Vietnamese insult words, mostly
// tone and diacritic confusions. The tables below map the frequent
// mistranscriptions back to the intended word so the text rules see what
// was actually said. Phrases run first so "đụ má" is not half-corrected
// word by word.
var transcriptPhraseCorrections = buildPhraseCorrections([]struct{ wrong, right string }{
	{"đụ má", "địt mẹ"},
	{"đù má", "địt mẹ"},
	{"sau mấy", "sao mày"},
})

var transcriptWordCorrections = map[string]string{
	"ngù":  "ngu",
	"ngú":  "ngu",
	"ngủ":  "ngu",
	"ngư":  "ngu",
	"ngưu": "ngu",
	"ngừ":  "ngu",
	"ngốc": "ngu",
	"mấy":  "mày",
	"mẩy":  "mày",
	"mảy":  "mày",
	"sau":  "sao",
	"đụ":   "địt",
	"đù":   "địt",
}

var transcriptWordRe = regexp.MustCompile(`\p{L}+`)

type transcriptCorrection struct {
	re    *regexp.Regexp
	right string
}

// buildPhraseCorrections compiles each phrase with explicit letter
// boundaries, since \b is ASCII-only and misses Vietnamese letters.
func buildPhraseCorrections(pairs []struct{ wrong, right string }) []transcriptCorrection {
	out := make([]transcriptCorrection, 0, len(pairs))
	for _, p := range pairs {
		re := regexp.MustCompile(`(^|[^\p{L}])` + regexp.QuoteMeta(p.wrong) + `($|[^\p{L}])`)
		out = append(out, transcriptCorrection{re: re, right: "${1}" + p.right + "${2}"})
	}
	return out
}

// correctTranscript applies the correction tables to a lowercased copy of
// the transcript, keeping the original's leading capitalization.
func correctTranscript(text string) string {
	if text == "" {
		return text
	}
	corrected := strings.ToLower(text)
	for _, c := range transcriptPhraseCorrections {
		corrected = c.re.ReplaceAllString(corrected, c.right)
	}
	corrected = transcriptWordRe.ReplaceAllStringFunc(corrected, func(word string) string {
		if right, ok := transcriptWordCorrections[word]; ok {
			return right
		}
		return word
	})
	if first := []rune(text)[0]; unicode.IsUpper(first) {
		runes := []rune(corrected)
		runes[0] = unicode.ToUpper(runes[0])
		corrected = string(runes)
	}
	return corrected
}

// AudioPipeline moderates audio by transcribing it and holding the
// transcript to the text rules.
type AudioPipeline struct {
	transcriber Transcriber
	text        *Pipeline
}

// NewAudioPipeline wires a transcriber onto a text pipeline. The
// transcriber may be nil; audio then passes with an empty transcript.
func NewAudioPipeline(t Transcriber, text *Pipeline) *AudioPipeline {
	return &AudioPipeline{transcriber: t, text: text}
}

// ClassifyAudio transcribes the audio, fixes known transcription errors
// and classifies the corrected transcript.
func (p *AudioPipeline) ClassifyAudio(ctx context.Context, audio []byte) (Result, error) {
	if p.transcriber == nil {
		return p.text.ClassifyText(ctx, ""), nil
	}
	transcript, err := p.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return Result{}, err
	}
	transcript = correctTranscript(transcript)
	result := p.text.ClassifyText(ctx, transcript)
	result.TranscribedText = transcript
	return result, nil
}
