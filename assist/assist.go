package assist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/intorma/torma/internal/logging"
	"github.com/intorma/torma/task"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTextModel   = "gemini-1.5-flash-latest"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultImageModel  = "gemini-2.0-flash-preview-image-generation"
	DefaultTimeout     = 60 * time.Second

	DefaultManagerVoice   = "Algenib"
	DefaultAssistantVoice = "Achernar"
	DefaultNarratorVoice  = "Algenib"
)

// Flow names, used in errors, logs and traces.
const (
	FlowExtract = "extract-task"
	FlowAnswer  = "answer-question"
	FlowSummary = "daily-summary"
	FlowSpeech  = "speech"
	FlowConcept = "concept-image"
)

// Options configures the flows. Zero values fall back to the defaults above.
type Options struct {
	Model Model

	TextModel   string
	SpeechModel string
	ImageModel  string

	// Timeout bounds each model call. Zero means DefaultTimeout; negative
	// disables it.
	Timeout time.Duration

	// Location and Now define "today" for relative dates.
	Location *time.Location
	Now      func() time.Time

	// WebSearch answers general questions with a second, grounded call.
	WebSearch bool

	ManagerVoice   string
	AssistantVoice string
	NarratorVoice  string

	// TemplatesDir overrides the embedded prompt templates file by file.
	TemplatesDir string

	Logger logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.TextModel == "" {
		o.TextModel = DefaultTextModel
	}
	if o.SpeechModel == "" {
		o.SpeechModel = DefaultSpeechModel
	}
	if o.ImageModel == "" {
		o.ImageModel = DefaultImageModel
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.ManagerVoice == "" {
		o.ManagerVoice = DefaultManagerVoice
	}
	if o.AssistantVoice == "" {
		o.AssistantVoice = DefaultAssistantVoice
	}
	if o.NarratorVoice == "" {
		o.NarratorVoice = DefaultNarratorVoice
	}
	o.Logger = logging.OrDiscard(o.Logger)
	return o
}

type flow struct {
	opts Options
}

func newFlow(opts Options) flow {
	return flow{opts: opts.withDefaults()}
}

func (f flow) today() task.Date {
	return task.DateOf(f.opts.Now().In(f.opts.Location))
}

// generate runs one model call under the flow timeout. When the caller's
// context ends first its error is returned as is, and any late result is
// dropped. Every other failure is a *GenerationError.
func (f flow) generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.opts.Model == nil {
		return nil, &GenerationError{Flow: req.Flow, Err: ErrNoModel}
	}

	callCtx := ctx
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	logger := f.opts.Logger.WithFields(logrus.Fields{"flow": req.Flow, "model": req.Model})
	start := time.Now()
	resp, err := f.opts.Model.Generate(callCtx, req)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		logger.WithError(err).Warn("model call failed")
		return nil, &GenerationError{Flow: req.Flow, Err: err}
	}
	if resp == nil || (resp.Text == "" && len(resp.Media) == 0) {
		logger.Warn("model returned nothing")
		return nil, &GenerationError{Flow: req.Flow, Err: ErrEmptyOutput}
	}
	logger.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Debug("model call finished")
	return resp, nil
}

func (f flow) fail(name string, err error) error {
	return &GenerationError{Flow: name, Err: err}
}
