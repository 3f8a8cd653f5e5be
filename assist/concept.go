package assist

import (
	"context"
	"strings"

	internalstrings "github.com/intorma/torma/internal/strings"
)

// Concept is a generated image as a data URI.
type Concept struct {
	ImageURL string `json:"imageUrl"`
}

// ConceptInput is the request body for Illustrate.
type ConceptInput struct {
	Description string `json:"description" binding:"required"`
}

// Illustrator draws concept art from a task description.
type Illustrator struct {
	flow
}

// NewIllustrator builds an Illustrator.
func NewIllustrator(opts Options) *Illustrator {
	return &Illustrator{flow: newFlow(opts)}
}

// Illustrate returns the first image the model produced.
func (il *Illustrator) Illustrate(ctx context.Context, description string) (*Concept, error) {
	if internalstrings.IsBlank(description) {
		return nil, ErrEmptyInput
	}
	prompt, err := il.prompt(conceptTemplateName, ConceptInput{Description: strings.TrimSpace(description)})
	if err != nil {
		return nil, il.fail(FlowConcept, err)
	}
	resp, err := il.generate(ctx, Request{
		Flow:        FlowConcept,
		Model:       il.opts.ImageModel,
		Prompt:      prompt,
		Modalities:  []Modality{ModalityText, ModalityImage},
		RelaxSafety: true,
	})
	if err != nil {
		return nil, err
	}
	media, ok := firstMedia(resp, "image/")
	if !ok {
		return nil, il.fail(FlowConcept, ErrEmptyOutput)
	}
	return &Concept{ImageURL: DataURI(media.MIMEType, media.Data)}, nil
}
