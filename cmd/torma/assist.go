package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/intorma/torma/assist"
	"github.com/intorma/torma/internal/editor"
	"github.com/intorma/torma/internal/ui"
	"github.com/intorma/torma/task"
)

var askCmd = &cobra.Command{
	Use:   "ask <text>...",
	Short: "Turn a message into a task, or answer a question",
	Long: `Send free text to the assistant.

When the text describes a design order, the assistant drafts a task from
it. Relative dates such as "besok" or "minggu depan" are resolved against
today. The draft opens in $EDITOR when running interactively; --yes
creates it directly. Anything else is answered as a question.

Use "-" as the only argument to read the text from stdin.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var (
	askYes    bool
	askSource string
	askJSON   bool
)

var briefingCmd = &cobra.Command{
	Use:   "briefing",
	Short: "Generate the spoken daily briefing for active tasks",
	Args:  cobra.NoArgs,
	RunE:  runBriefing,
}

var briefingOut string

var speakCmd = &cobra.Command{
	Use:   "speak <id>",
	Short: "Read a task description aloud into a WAV file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpeak,
}

var speakOut string

var conceptCmd = &cobra.Command{
	Use:   "concept <id>",
	Short: "Generate concept art for a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runConcept,
}

var conceptOut string

func init() {
	rootCmd.AddCommand(askCmd, briefingCmd, speakCmd, conceptCmd)

	askCmd.Flags().BoolVarP(&askYes, "yes", "y", false, "Create the drafted task without opening $EDITOR")
	askCmd.Flags().StringVar(&askSource, "source", string(task.DefaultSource), "Source for the drafted task (N, CS, Admin, G)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the raw extraction as JSON instead of acting on it")

	briefingCmd.Flags().StringVarP(&briefingOut, "out", "o", "", "Write the briefing audio to this WAV file")
	speakCmd.Flags().StringVarP(&speakOut, "out", "o", "", "Output file (default <id>.wav)")
	conceptCmd.Flags().StringVarP(&conceptOut, "out", "o", "", "Output file (default <id> with the image extension)")
}

func askInput(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		input, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSpace(string(input)), nil
	}
	return strings.TrimSpace(strings.Join(args, " ")), nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	input, err := askInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	source, err := task.ParseSource(askSource)
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	opts, err := a.assistOptions(ctx)
	if err != nil {
		return err
	}

	extraction, err := assist.NewExtractor(opts).Extract(ctx, assist.ExtractInput{UserInput: input})
	if err != nil {
		return err
	}
	if askJSON {
		return encodeJSON(cmd.OutOrStdout(), extraction)
	}

	draft, ok := extraction.Draft(task.Fields{Source: source})
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderMarkdown(extraction.Answer, ui.LineWidth))
		return nil
	}

	store, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}

	switch {
	case askYes:
	case editor.IsInteractive():
		data := editor.DataFromFields(draft)
		data.Heading = input
		parsed, err := editor.EditTask(data)
		if err != nil {
			return err
		}
		draft = parsed.Fields()
	default:
		printDraft(cmd.OutOrStdout(), draft, a.today())
		fmt.Fprintln(cmd.OutOrStdout(), "\nNot created. Run again with --yes to create it.")
		return nil
	}

	id, err := store.Create(draft)
	if err := persisted(store, err); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %s\n", a.highlight(store, id), draft.CustomerName)
	return nil
}

func printDraft(w io.Writer, draft task.Fields, today task.Date) {
	fmt.Fprintf(w, "Customer: %s\n", draft.CustomerName)
	fmt.Fprintf(w, "Status:   %s\n", draft.Status)
	fmt.Fprintf(w, "Source:   %s\n", draft.Source)
	fmt.Fprintf(w, "Due:      %s\n", ui.FormatDue(draft.DueDate, today))
	if draft.Description != "" {
		fmt.Fprintf(w, "\nDescription:\n%s\n", ui.IndentBlock(ui.ReflowParagraphs(draft.Description, ui.LineWidth-ui.DocumentIndent), ui.DocumentIndent))
	}
}

func runBriefing(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, store, err := openStoreCmd(ctx)
	if err != nil {
		return err
	}
	opts, err := a.assistOptions(ctx)
	if err != nil {
		return err
	}

	summary, err := assist.NewBriefer(opts).Summarize(ctx, store.List())
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTranscript(transcriptLines(summary.Lines()), ui.ViewportWidth()))
	if briefingOut == "" {
		return nil
	}
	return writeDataURI(cmd.OutOrStdout(), briefingOut, summary.AudioURI)
}

func transcriptLines(lines []assist.Line) []ui.TranscriptLine {
	out := make([]ui.TranscriptLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, ui.TranscriptLine{Speaker: line.Speaker, Text: line.Text})
	}
	return out
}

func runSpeak(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, store, err := openStoreCmd(ctx)
	if err != nil {
		return err
	}
	t, err := resolveTask(store, args[0])
	if err != nil {
		return err
	}
	opts, err := a.assistOptions(ctx)
	if err != nil {
		return err
	}

	speech, err := assist.NewSpeaker(opts).Speak(ctx, t.Description)
	if err != nil {
		return err
	}
	out := speakOut
	if out == "" {
		out = t.ID + ".wav"
	}
	return writeDataURI(cmd.OutOrStdout(), out, speech.Media)
}

func runConcept(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, store, err := openStoreCmd(ctx)
	if err != nil {
		return err
	}
	t, err := resolveTask(store, args[0])
	if err != nil {
		return err
	}
	opts, err := a.assistOptions(ctx)
	if err != nil {
		return err
	}

	concept, err := assist.NewIllustrator(opts).Illustrate(ctx, t.Description)
	if err != nil {
		return err
	}
	out := conceptOut
	if out == "" {
		mimeType, _, err := assist.DecodeDataURI(concept.ImageURL)
		if err != nil {
			return err
		}
		out = t.ID + imageExtension(mimeType)
	}
	return writeDataURI(cmd.OutOrStdout(), out, concept.ImageURL)
}

func imageExtension(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".img"
	}
}

func writeDataURI(w io.Writer, path, uri string) error {
	_, data, err := assist.DecodeDataURI(uri)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("model returned no data")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(w, "Wrote %s (%d bytes)\n", path, len(data))
	return nil
}
