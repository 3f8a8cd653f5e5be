package assist

import (
	"context"
	"strings"
	"time"

	"github.com/intorma/torma/task"
)

// Speaker names used in briefing scripts and the multi-speaker voice setup.
const (
	SpeakerManager   = "Manager"
	SpeakerAssistant = "Asisten"
)

// CannedTranscript is the briefing for a day with no active tasks.
const CannedTranscript = "Manager: Selamat pagi. Apakah ada tugas yang perlu kita periksa hari ini?\n" +
	"Asisten: Selamat pagi! Sepertinya semua tugas sudah selesai. Hari ini kita bisa sedikit bersantai!"

const silenceFallback = time.Second

// Summary is a spoken briefing.
type Summary struct {
	// AudioURI is a data:audio/wav;base64 URI.
	AudioURI   string `json:"audioUri"`
	Transcript string `json:"transcript"`
}

// Lines parses the transcript.
func (s *Summary) Lines() []Line {
	return ParseTranscript(s.Transcript)
}

// SummaryInput is the request body of a briefing. Nil Tasks means "the
// active tasks on the board".
type SummaryInput struct {
	Tasks []task.Task `json:"tasks"`
}

// Briefer produces the daily briefing.
type Briefer struct {
	flow
}

// NewBriefer builds a Briefer.
func NewBriefer(opts Options) *Briefer {
	return &Briefer{flow: newFlow(opts)}
}

type summaryTask struct {
	CustomerName string
	Description  string
	Status       task.Status
	Due          string
}

type summaryPromptData struct {
	Today     task.Date
	TaskCount int
	Tasks     []summaryTask
}

type summaryResponse struct {
	Summary string `json:"summary" validate:"required"`
}

// Summarize scripts and voices a briefing for the active tasks among tasks.
// With no active tasks the canned script is spoken instead, and if that
// speech fails a short silence stands in so the caller still gets audio.
func (b *Briefer) Summarize(ctx context.Context, tasks []task.Task) (*Summary, error) {
	active := task.Active(tasks)
	if len(active) == 0 {
		return b.canned(ctx)
	}

	script, err := b.script(ctx, active)
	if err != nil {
		return nil, err
	}
	audio, err := b.voice(ctx, script)
	if err != nil {
		return nil, err
	}
	return &Summary{AudioURI: DataURI("audio/wav", audio), Transcript: script}, nil
}

func (b *Briefer) canned(ctx context.Context) (*Summary, error) {
	audio, err := b.voice(ctx, CannedTranscript)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		b.opts.Logger.WithError(err).Warn("briefing speech failed, returning silence")
		audio, err = SilentWAV(silenceFallback)
		if err != nil {
			return nil, b.fail(FlowSummary, err)
		}
	}
	return &Summary{AudioURI: DataURI("audio/wav", audio), Transcript: CannedTranscript}, nil
}

func (b *Briefer) script(ctx context.Context, active []task.Task) (string, error) {
	data := summaryPromptData{
		Today:     b.today(),
		TaskCount: len(active),
		Tasks:     make([]summaryTask, 0, len(active)),
	}
	for _, t := range active {
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.String()
		}
		data.Tasks = append(data.Tasks, summaryTask{
			CustomerName: t.CustomerName,
			Description:  t.Description,
			Status:       t.Status,
			Due:          due,
		})
	}

	prompt, err := b.prompt(summaryTemplateName, data)
	if err != nil {
		return "", b.fail(FlowSummary, err)
	}
	resp, err := b.generate(ctx, Request{
		Flow:   FlowSummary,
		Model:  b.opts.TextModel,
		Prompt: prompt,
		JSON:   true,
	})
	if err != nil {
		return "", err
	}

	var out summaryResponse
	if err := decodeJSON(resp.Text, &out); err != nil {
		return "", b.fail(FlowSummary, err)
	}
	out.Summary = strings.TrimSpace(out.Summary)
	if err := checkSchema(&out); err != nil {
		return "", b.fail(FlowSummary, err)
	}
	if !hasSpeakerLine(ParseTranscript(out.Summary)) {
		return "", b.fail(FlowSummary, schemaError("summary has no %q lines", "Speaker: Text"))
	}
	return out.Summary, nil
}

func (b *Briefer) voice(ctx context.Context, script string) ([]byte, error) {
	resp, err := b.generate(ctx, Request{
		Flow:       FlowSummary,
		Model:      b.opts.SpeechModel,
		Prompt:     script,
		Modalities: []Modality{ModalityAudio},
		Voices: []Voice{
			{Speaker: SpeakerManager, Name: b.opts.ManagerVoice},
			{Speaker: SpeakerAssistant, Name: b.opts.AssistantVoice},
		},
	})
	if err != nil {
		return nil, err
	}
	media, ok := firstMedia(resp, "audio/")
	if !ok {
		return nil, b.fail(FlowSummary, ErrEmptyOutput)
	}
	audio, err := audioWAV(media)
	if err != nil {
		return nil, b.fail(FlowSummary, err)
	}
	return audio, nil
}
