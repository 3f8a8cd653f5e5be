// Package assist holds the AI flows behind the board: turning free text into
// a task draft, the spoken daily briefing, reading a description aloud and
// concept art for a task.
//
// The flows talk to a generative model through the Model interface so they
// can be tested without a network. internal/gemini provides the production
// implementation.
package assist

import "context"

// Modality is a kind of output requested from the model.
type Modality string

const (
	ModalityText  Modality = "TEXT"
	ModalityImage Modality = "IMAGE"
	ModalityAudio Modality = "AUDIO"
)

// Voice assigns a prebuilt voice to a speaker. Speaker is empty for
// single-voice speech.
type Voice struct {
	Speaker string
	Name    string
}

// Request is one generation call.
type Request struct {
	// Flow names the calling flow for logs and traces.
	Flow  string
	Model string
	// Prompt is the full user prompt.
	Prompt string
	// JSON asks for an application/json response.
	JSON       bool
	Modalities []Modality
	// Voices configures speech output. More than one voice selects
	// multi-speaker synthesis.
	Voices []Voice
	// RelaxSafety disables blocking for the harm categories that trip on
	// harmless design briefs.
	RelaxSafety bool
	// Search enables grounding with web search.
	Search bool
}

// Media is an inline binary part of a response.
type Media struct {
	MIMEType string
	Data     []byte
}

// Response is the concatenated text and the media parts of the first
// candidate.
type Response struct {
	Text  string
	Media []Media
}

// Model generates content.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, req Request) (*Response, error)

// Generate calls f.
func (f ModelFunc) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

func firstMedia(resp *Response, prefix string) (Media, bool) {
	for _, media := range resp.Media {
		if len(media.Data) > 0 && hasMIMEPrefix(media.MIMEType, prefix) {
			return media, true
		}
	}
	return Media{}, false
}
