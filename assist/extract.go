package assist

import (
	"context"
	"strings"

	internalstrings "github.com/intorma/torma/internal/strings"
	"github.com/intorma/torma/task"
)

// ExtractInput is free text typed by the user.
type ExtractInput struct {
	UserInput string `json:"userInput" binding:"required"`
}

// TaskDetails are the task fields the model pulled out of the input.
type TaskDetails struct {
	CustomerName string `json:"customerName,omitempty"`
	Description  string `json:"description,omitempty"`
	DueDate      string `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Extraction is either a task draft or an answer to a question.
type Extraction struct {
	IsTask      bool         `json:"isTask"`
	TaskDetails *TaskDetails `json:"taskDetails,omitempty"`
	Answer      string       `json:"answer,omitempty" validate:"required_if=IsTask false"`
}

// Draft converts the task details into form fields. Status and source come
// from defaults, falling back to the task defaults. ok is false when the
// extraction is not a task.
func (e *Extraction) Draft(defaults task.Fields) (fields task.Fields, ok bool) {
	if e == nil || !e.IsTask || e.TaskDetails == nil {
		return task.Fields{}, false
	}
	fields = task.Fields{
		CustomerName: strings.TrimSpace(e.TaskDetails.CustomerName),
		Description:  strings.TrimSpace(e.TaskDetails.Description),
		Status:       defaults.Status,
		Source:       defaults.Source,
		DueDate:      defaults.DueDate,
	}
	if fields.Status == "" {
		fields.Status = task.DefaultStatus
	}
	if fields.Source == "" {
		fields.Source = task.DefaultSource
	}
	if e.TaskDetails.DueDate != "" {
		if due, err := task.ParseDate(e.TaskDetails.DueDate); err == nil {
			fields.DueDate = &due
		}
	}
	return fields, true
}

// Extractor turns free text into a task draft or answers a question.
type Extractor struct {
	flow
}

// NewExtractor builds an Extractor.
func NewExtractor(opts Options) *Extractor {
	return &Extractor{flow: newFlow(opts)}
}

type extractPromptData struct {
	UserInput        string
	CurrentDate      task.Date
	Tomorrow         task.Date
	DayAfterTomorrow task.Date
	NextWeek         task.Date
	Mentions         []Mention
}

// Extract classifies the input and returns the validated result.
func (x *Extractor) Extract(ctx context.Context, in ExtractInput) (*Extraction, error) {
	if internalstrings.IsBlank(in.UserInput) {
		return nil, ErrEmptyInput
	}
	input := strings.TrimSpace(in.UserInput)
	today := x.today()
	anchors := NewRelativeDates(today)
	mentions := ResolveRelativeDates(input, today)

	prompt, err := x.prompt(extractTemplateName, extractPromptData{
		UserInput:        input,
		CurrentDate:      anchors.CurrentDate,
		Tomorrow:         anchors.Tomorrow,
		DayAfterTomorrow: anchors.DayAfterTomorrow,
		NextWeek:         anchors.NextWeek,
		Mentions:         mentions,
	})
	if err != nil {
		return nil, x.fail(FlowExtract, err)
	}

	resp, err := x.generate(ctx, Request{
		Flow:   FlowExtract,
		Model:  x.opts.TextModel,
		Prompt: prompt,
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}

	var out Extraction
	if err := decodeJSON(resp.Text, &out); err != nil {
		return nil, x.fail(FlowExtract, err)
	}

	if out.IsTask {
		if out.TaskDetails == nil {
			return nil, x.fail(FlowExtract, schemaError("taskDetails is required when isTask is true"))
		}
		out.Answer = ""
		normalizeDueDate(out.TaskDetails, anchors, mentions)
		if err := checkSchema(out.TaskDetails); err != nil {
			return nil, x.fail(FlowExtract, err)
		}
		return &out, nil
	}

	out.TaskDetails = nil
	if x.opts.WebSearch {
		answer, err := x.answer(ctx, input)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			x.opts.Logger.WithError(err).Warn("grounded answer failed, keeping first answer")
		} else {
			out.Answer = answer
		}
	}
	out.Answer = strings.TrimSpace(out.Answer)
	if err := checkSchema(&out); err != nil {
		return nil, x.fail(FlowExtract, err)
	}
	return &out, nil
}

// normalizeDueDate settles the draft's due date. The model's date is kept
// when it is one of the dates offered in the prompt. A deadline phrase in
// the input replaces a date the model made up, and fills a missing or
// unreadable one. "Today" phrases never replace a readable date. An
// unreadable date with no phrase to fall back on is left for schema
// validation to reject.
func normalizeDueDate(details *TaskDetails, anchors RelativeDates, mentions []Mention) {
	deadline, hasDeadline := deadlineMention(mentions)

	details.DueDate = strings.TrimSpace(details.DueDate)
	due, err := task.ParseDate(details.DueDate)
	if err != nil {
		if hasDeadline {
			details.DueDate = deadline.Date.String()
		}
		return
	}
	details.DueDate = due.String()
	if hasDeadline && deadline.Offset > 0 && !offered(due, anchors, mentions) {
		details.DueDate = deadline.Date.String()
	}
}

// deadlineMention picks the first future mention, falling back to the first
// mention of today.
func deadlineMention(mentions []Mention) (Mention, bool) {
	for _, m := range mentions {
		if m.Offset > 0 {
			return m, true
		}
	}
	if len(mentions) > 0 {
		return mentions[0], true
	}
	return Mention{}, false
}

func offered(due task.Date, anchors RelativeDates, mentions []Mention) bool {
	for _, d := range []task.Date{anchors.CurrentDate, anchors.Tomorrow, anchors.DayAfterTomorrow, anchors.NextWeek} {
		if due == d {
			return true
		}
	}
	for _, m := range mentions {
		if due == m.Date {
			return true
		}
	}
	return false
}

func (x *Extractor) answer(ctx context.Context, question string) (string, error) {
	prompt, err := x.prompt(answerTemplateName, struct{ UserInput string }{question})
	if err != nil {
		return "", x.fail(FlowAnswer, err)
	}
	resp, err := x.generate(ctx, Request{
		Flow:   FlowAnswer,
		Model:  x.opts.TextModel,
		Prompt: prompt,
		Search: true,
	})
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(resp.Text)
	if answer == "" {
		return "", x.fail(FlowAnswer, ErrEmptyOutput)
	}
	return answer, nil
}
