// Package gemini implements assist.Model over the Gemini generateContent
// API.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/intorma/torma/assist"
	"github.com/intorma/torma/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"
)

var (
	// ErrMissingAPIKey is returned by New without an API key or HTTP client.
	ErrMissingAPIKey = errors.New("gemini API key is not set")

	// ErrBlocked is returned when the prompt or every candidate was blocked.
	ErrBlocked = errors.New("response blocked")

	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("model temporarily unavailable")
)

const tracerName = "github.com/intorma/torma/internal/gemini"

// relaxedCategories are the harm categories set to BLOCK_NONE for
// RelaxSafety requests.
var relaxedCategories = []string{
	"HARM_CATEGORY_DANGEROUS_CONTENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
}

// Options configures a Client.
type Options struct {
	APIKey string
	// Endpoint overrides the API base URL.
	Endpoint string
	// HTTPClient replaces the default transport. The API key is not added
	// to requests made through it.
	HTTPClient *http.Client

	// BreakerTimeout is how long the breaker stays open. Zero means 30s.
	BreakerTimeout time.Duration

	Logger logrus.FieldLogger
	Tracer trace.Tracer
}

// Client is an assist.Model backed by Gemini.
type Client struct {
	svc     *generativelanguage.Service
	breaker *gobreaker.CircuitBreaker
	logger  logrus.FieldLogger
	tracer  trace.Tracer
}

var _ assist.Model = (*Client)(nil)

// New builds a Client.
func New(ctx context.Context, opts Options) (*Client, error) {
	var clientOpts []option.ClientOption
	switch {
	case opts.HTTPClient != nil:
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	case opts.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	default:
		return nil, ErrMissingAPIKey
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := generativelanguage.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini service: %w", err)
	}

	logger := logging.OrDiscard(opts.Logger)
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	breakerTimeout := opts.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// the caller giving up or a blocked prompt says nothing about
			// the health of the API
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrBlocked)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
		},
	})

	return &Client{svc: svc, breaker: breaker, logger: logger, tracer: tracer}, nil
}

// Generate sends one generateContent request.
func (c *Client) Generate(ctx context.Context, req assist.Request) (*assist.Response, error) {
	ctx, span := c.tracer.Start(ctx, "gemini.generateContent", trace.WithAttributes(
		attribute.String("gemini.model", req.Model),
		attribute.String("assist.flow", req.Flow),
		attribute.Bool("gemini.search", req.Search),
	))
	defer span.End()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.call(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	resp := result.(*assist.Response)
	span.SetAttributes(
		attribute.Int("gemini.text_bytes", len(resp.Text)),
		attribute.Int("gemini.media_parts", len(resp.Media)),
	)
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

func (c *Client) call(ctx context.Context, req assist.Request) (*assist.Response, error) {
	out, err := c.svc.Models.GenerateContent(modelName(req.Model), buildRequest(req)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"flow":    req.Flow,
		"model":   req.Model,
		"version": out.ModelVersion,
	}).Debug("gemini response")
	return parseResponse(out)
}

func modelName(model string) string {
	if strings.HasPrefix(model, "models/") || strings.HasPrefix(model, "tunedModels/") {
		return model
	}
	return "models/" + model
}

func buildRequest(req assist.Request) *generativelanguage.GenerateContentRequest {
	out := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{
			Role:  "user",
			Parts: []*generativelanguage.Part{{Text: req.Prompt}},
		}},
	}

	config := &generativelanguage.GenerationConfig{}
	hasConfig := false
	if req.JSON {
		config.ResponseMimeType = "application/json"
		hasConfig = true
	}
	if len(req.Modalities) > 0 {
		for _, modality := range req.Modalities {
			config.ResponseModalities = append(config.ResponseModalities, string(modality))
		}
		hasConfig = true
	}
	if speech := speechConfig(req.Voices); speech != nil {
		config.SpeechConfig = speech
		hasConfig = true
	}
	if hasConfig {
		out.GenerationConfig = config
	}

	if req.RelaxSafety {
		for _, category := range relaxedCategories {
			out.SafetySettings = append(out.SafetySettings, &generativelanguage.SafetySetting{
				Category:  category,
				Threshold: "BLOCK_NONE",
			})
		}
	}
	if req.Search {
		out.Tools = []*generativelanguage.Tool{{GoogleSearch: &generativelanguage.GoogleSearch{}}}
	}
	return out
}

func speechConfig(voices []assist.Voice) *generativelanguage.SpeechConfig {
	switch len(voices) {
	case 0:
		return nil
	case 1:
		return &generativelanguage.SpeechConfig{VoiceConfig: prebuiltVoice(voices[0].Name)}
	}
	speakers := make([]*generativelanguage.SpeakerVoiceConfig, 0, len(voices))
	for _, voice := range voices {
		speakers = append(speakers, &generativelanguage.SpeakerVoiceConfig{
			Speaker:     voice.Speaker,
			VoiceConfig: prebuiltVoice(voice.Name),
		})
	}
	return &generativelanguage.SpeechConfig{
		MultiSpeakerVoiceConfig: &generativelanguage.MultiSpeakerVoiceConfig{SpeakerVoiceConfigs: speakers},
	}
}

func prebuiltVoice(name string) *generativelanguage.VoiceConfig {
	return &generativelanguage.VoiceConfig{
		PrebuiltVoiceConfig: &generativelanguage.PrebuiltVoiceConfig{VoiceName: name},
	}
}

// parseResponse flattens the first candidate.
func parseResponse(resp *generativelanguage.GenerateContentResponse) (*assist.Response, error) {
	if resp == nil {
		return nil, assist.ErrEmptyOutput
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, assist.ErrEmptyOutput
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		if candidate.FinishReason == "SAFETY" || candidate.FinishReason == "PROHIBITED_CONTENT" || candidate.FinishReason == "BLOCKLIST" {
			return nil, fmt.Errorf("%w: %s", ErrBlocked, candidate.FinishReason)
		}
		return nil, assist.ErrEmptyOutput
	}

	out := &assist.Response{}
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		text.WriteString(part.Text)
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		data, err := decodeBase64(part.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("decode %s part: %w", part.InlineData.MimeType, err)
		}
		out.Media = append(out.Media, assist.Media{MIMEType: part.InlineData.MimeType, Data: data})
	}
	out.Text = text.String()
	return out, nil
}

func decodeBase64(value string) ([]byte, error) {
	if data, err := base64.StdEncoding.DecodeString(value); err == nil {
		return data, nil
	}
	return base64.URLEncoding.DecodeString(value)
}
