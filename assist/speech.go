package assist

import (
	"context"
	"strings"

	internalstrings "github.com/intorma/torma/internal/strings"
)

// Speech is spoken audio as a data URI.
type Speech struct {
	Media string `json:"media"`
}

// SpeechInput is the request body for Speak.
type SpeechInput struct {
	Text string `json:"text" binding:"required"`
}

// Speaker reads text aloud with a single voice.
type Speaker struct {
	flow
}

// NewSpeaker builds a Speaker.
func NewSpeaker(opts Options) *Speaker {
	return &Speaker{flow: newFlow(opts)}
}

// Speak synthesizes text.
func (s *Speaker) Speak(ctx context.Context, text string) (*Speech, error) {
	if internalstrings.IsBlank(text) {
		return nil, ErrEmptyInput
	}
	resp, err := s.generate(ctx, Request{
		Flow:       FlowSpeech,
		Model:      s.opts.SpeechModel,
		Prompt:     strings.TrimSpace(text),
		Modalities: []Modality{ModalityAudio},
		Voices:     []Voice{{Name: s.opts.NarratorVoice}},
	})
	if err != nil {
		return nil, err
	}
	media, ok := firstMedia(resp, "audio/")
	if !ok {
		return nil, s.fail(FlowSpeech, ErrEmptyOutput)
	}
	audio, err := audioWAV(media)
	if err != nil {
		return nil, s.fail(FlowSpeech, err)
	}
	return &Speech{Media: DataURI("audio/wav", audio)}, nil
}
