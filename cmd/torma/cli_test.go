package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/intorma/torma/assist"
	"github.com/intorma/torma/internal/kv"
	"github.com/intorma/torma/internal/testsupport"
	"github.com/intorma/torma/task"
)

// setupCLI isolates HOME, the working directory and storage, and replaces
// the model and the clock.
func setupCLI(t *testing.T, model assist.ModelFunc) string {
	t.Helper()

	testsupport.SetupTestHome(t)
	t.Chdir(t.TempDir())
	dataDir := filepath.Join(t.TempDir(), "data")
	t.Setenv("TORMA_STORAGE_BACKEND", "file")
	t.Setenv("TORMA_STORAGE_PATH", dataDir)
	t.Setenv("TORMA_LOG_LEVEL", "error")
	t.Setenv("NO_COLOR", "1")

	jakarta, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	prevNow, prevModel := nowFunc, newModel
	nowFunc = func() time.Time { return time.Date(2024, 1, 10, 9, 0, 0, 0, jakarta) }
	newModel = func(context.Context, *app) (assist.Model, error) { return model, nil }
	t.Cleanup(func() {
		nowFunc, newModel = prevNow, prevModel
		closeApp()
	})
	return dataDir
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func storedTasks(t *testing.T, dataDir string) []task.Task {
	t.Helper()

	backend, err := kv.NewFile(dataDir, nil)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	defer backend.Close()
	store, err := task.Open(backend, task.Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	return store.List()
}

func TestAskCreatesDraftedTask(t *testing.T) {
	var prompts []string
	dataDir := setupCLI(t, func(_ context.Context, req assist.Request) (*assist.Response, error) {
		prompts = append(prompts, req.Prompt)
		return &assist.Response{Text: `{"isTask": true, "taskDetails": {"customerName": "Rinan Corp", "description": "Spanduk 3x1 meter"}}`}, nil
	})

	out, err := runCLI(t, "ask", "--yes", "--source", "g", "spanduk", "Rinan", "Corp", "besok")
	if err != nil {
		t.Fatalf("ask: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Created task") {
		t.Fatalf("unexpected output %q", out)
	}
	if len(prompts) != 1 || !strings.Contains(prompts[0], "spanduk Rinan Corp besok") {
		t.Fatalf("unexpected prompts %q", prompts)
	}

	tasks := storedTasks(t, dataDir)
	if len(tasks) != 1 {
		t.Fatalf("expected one stored task, got %+v", tasks)
	}
	got := tasks[0]
	if got.CustomerName != "Rinan Corp" || got.Source != task.SourceGroup || got.Status != task.StatusDesign {
		t.Fatalf("unexpected task %+v", got)
	}
	if got.DueDate == nil || got.DueDate.String() != "2024-01-11" {
		t.Fatalf("expected besok to resolve to 2024-01-11, got %v", got.DueDate)
	}
}

func TestAskAnswersQuestion(t *testing.T) {
	dataDir := setupCLI(t, func(_ context.Context, req assist.Request) (*assist.Response, error) {
		if req.Search {
			return &assist.Response{Text: "Resolusi **300 DPI** cukup untuk cetak."}, nil
		}
		return &assist.Response{Text: `{"isTask": false, "answer": "Gunakan 300 DPI."}`}, nil
	})

	out, err := runCLI(t, "ask", "berapa DPI untuk spanduk?")
	if err != nil {
		t.Fatalf("ask: %v\n%s", err, out)
	}
	if !strings.Contains(out, "300 DPI") || !strings.Contains(out, "cukup untuk cetak") {
		t.Fatalf("expected grounded answer, got %q", out)
	}
	if tasks := storedTasks(t, dataDir); len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %+v", tasks)
	}
}

func TestAskPropagatesModelErrors(t *testing.T) {
	setupCLI(t, func(context.Context, assist.Request) (*assist.Response, error) {
		return &assist.Response{Text: "bukan json"}, nil
	})

	_, err := runCLI(t, "ask", "--yes", "halo")
	var genErr *assist.GenerationError
	if err == nil || !errors.As(err, &genErr) {
		t.Fatalf("expected generation error, got %v", err)
	}
}

func TestBriefingWritesAudio(t *testing.T) {
	setupCLI(t, func(_ context.Context, req assist.Request) (*assist.Response, error) {
		if len(req.Voices) > 0 {
			return &assist.Response{Media: []assist.Media{{MIMEType: "audio/L16;codec=pcm;rate=24000", Data: []byte{0, 0, 0, 0}}}}, nil
		}
		return &assist.Response{Text: `{"summary": "Manager: Ada satu tugas untuk Rinan Corp.\nAsisten: Siap, segera dikerjakan!"}`}, nil
	})

	if out, err := runCLI(t, "task", "add", "--no-edit", "-c", "Rinan Corp", "-d", "Spanduk"); err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	out, err := runCLI(t, "briefing", "--out", "briefing.wav")
	if err != nil {
		t.Fatalf("briefing: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Manager:") || !strings.Contains(out, "Siap, segera dikerjakan!") {
		t.Fatalf("expected transcript, got %q", out)
	}

	data, err := os.ReadFile("briefing.wav")
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) || len(data) != 44+4 {
		t.Fatalf("expected a wav file with the PCM payload, got %d bytes", len(data))
	}
}

func TestConceptUsesImageExtension(t *testing.T) {
	dataDir := setupCLI(t, func(context.Context, assist.Request) (*assist.Response, error) {
		return &assist.Response{Media: []assist.Media{{MIMEType: "image/jpeg", Data: []byte("jpeg")}}}, nil
	})

	if out, err := runCLI(t, "task", "add", "--no-edit", "-c", "Rinan Corp", "-d", "Logo kopi"); err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	id := storedTasks(t, dataDir)[0].ID

	out, err := runCLI(t, "concept", id[:4])
	if err != nil {
		t.Fatalf("concept: %v\n%s", err, out)
	}
	data, err := os.ReadFile(id + ".jpg")
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if string(data) != "jpeg" {
		t.Fatalf("unexpected image %q", data)
	}
}
