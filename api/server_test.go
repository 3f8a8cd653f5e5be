package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/intorma/torma/assist"
	"github.com/intorma/torma/board"
	"github.com/intorma/torma/internal/kv"
	"github.com/intorma/torma/task"
)

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("t%02d", n)
	}
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
}

func newTestServer(t *testing.T, model assist.Model) (*Server, *task.Store) {
	t.Helper()
	store, err := task.Open(kv.NewMemory(), task.Options{NewID: sequentialIDs()})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	opts := Options{
		Store:     store,
		Location:  time.UTC,
		Now:       fixedNow,
		Heartbeat: time.Hour,
	}
	if model != nil {
		aiOpts := assist.Options{Model: model, Location: time.UTC, Now: fixedNow, Timeout: time.Second}
		opts.Extractor = assist.NewExtractor(aiOpts)
		opts.Briefer = assist.NewBriefer(aiOpts)
		opts.Speaker = assist.NewSpeaker(aiOpts)
		opts.Illustrator = assist.NewIllustrator(aiOpts)
	}
	return New(opts), store
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func seed(t *testing.T, store *task.Store, customer string, status task.Status) string {
	t.Helper()
	id, err := store.Create(task.Fields{
		CustomerName: customer,
		Description:  "Desain " + customer,
		Status:       status,
		Source:       task.SourceCS,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return id
}

func TestCreateAndListTasks(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/api/tasks", `{"customerName": "Rinan Corp", "description": "Spanduk", "dueDate": "2024-01-11"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body)
	}
	created := decode[map[string]string](t, rec)
	if created["id"] != "t01" {
		t.Fatalf("unexpected id %v", created)
	}

	rec = do(t, srv, http.MethodGet, "/api/tasks", "")
	tasks := decode[[]task.Task](t, rec)
	if len(tasks) != 1 {
		t.Fatalf("expected one task, got %d", len(tasks))
	}
	got := tasks[0]
	if got.Status != task.StatusDesign || got.Source != task.SourceCS || got.DueDate == nil || got.DueDate.String() != "2024-01-11" {
		t.Fatalf("expected defaults and due date, got %+v", got)
	}
}

func TestListTasksEmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/api/tasks", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", rec.Body.String())
	}
}

func TestListTasksSearchAndStatus(t *testing.T) {
	srv, store := newTestServer(t, nil)
	seed(t, store, "Rinan Corp", task.StatusDesign)
	seed(t, store, "PT Sejahtera", task.StatusApproval)
	seed(t, store, "Rinan Studio", task.StatusDone)

	tasks := decode[[]task.Task](t, do(t, srv, http.MethodGet, "/api/tasks?q=rinan", ""))
	if len(tasks) != 2 {
		t.Fatalf("expected 2 matches, got %+v", tasks)
	}
	tasks = decode[[]task.Task](t, do(t, srv, http.MethodGet, "/api/tasks?q=rinan&status=selesai", ""))
	if len(tasks) != 1 || tasks[0].CustomerName != "Rinan Studio" {
		t.Fatalf("unexpected filtered tasks %+v", tasks)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "missing customer", body: `{"description": "x"}`, field: "customerName"},
		{name: "bad status", body: `{"customerName": "a", "description": "x", "status": "nope"}`, field: "status"},
		{name: "bad source", body: `{"customerName": "a", "description": "x", "source": "email"}`, field: "source"},
		{name: "bad date", body: `{"customerName": "a", "description": "x", "dueDate": "11/01/2024"}`, field: "dueDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/tasks", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body)
			}
			body := decode[errorBody](t, rec)
			if body.Field != tt.field || body.Error == "" {
				t.Fatalf("unexpected error body %+v", body)
			}
		})
	}

	rec := do(t, srv, http.MethodPost, "/api/tasks", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestGetUpdateDeleteTask(t *testing.T) {
	srv, store := newTestServer(t, nil)
	id := seed(t, store, "Rinan Corp", task.StatusDesign)

	rec := do(t, srv, http.MethodGet, "/api/tasks/"+id, "")
	if rec.Code != http.StatusOK || decode[task.Task](t, rec).ID != id {
		t.Fatalf("get: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, srv, http.MethodPatch, "/api/tasks/"+id, `{"description": "Spanduk baru", "dueDate": "2024-02-01"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body)
	}
	updated := decode[task.Task](t, rec)
	if updated.Description != "Spanduk baru" || updated.DueDate.String() != "2024-02-01" {
		t.Fatalf("unexpected update %+v", updated)
	}

	rec = do(t, srv, http.MethodPatch, "/api/tasks/"+id, `{"clearDueDate": true}`)
	if decode[task.Task](t, rec).DueDate != nil {
		t.Fatal("expected due date cleared")
	}

	rec = do(t, srv, http.MethodDelete, "/api/tasks/"+id, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	if len(store.List()) != 0 {
		t.Fatal("expected task deleted")
	}
}

func TestUnknownTaskIs404(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, req := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/tasks/nope", ""},
		{http.MethodPatch, "/api/tasks/nope", `{"description": "x"}`},
		{http.MethodPut, "/api/tasks/nope/status", `{"status": "Selesai"}`},
		{http.MethodDelete, "/api/tasks/nope", ""},
	} {
		rec := do(t, srv, req.method, req.path, req.body)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", req.method, req.path, rec.Code)
		}
	}
}

func TestUpdateStatusMovesToEnd(t *testing.T) {
	srv, store := newTestServer(t, nil)
	a := seed(t, store, "A", task.StatusDesign)
	b := seed(t, store, "B", task.StatusApproval)

	rec := do(t, srv, http.MethodPut, "/api/tasks/"+a+"/status", `{"status": "acc"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d %s", rec.Code, rec.Body)
	}
	approval := task.WithStatus(store.List(), task.StatusApproval)
	if len(approval) != 2 || approval[0].ID != b || approval[1].ID != a {
		t.Fatalf("expected %s appended after %s, got %+v", a, b, approval)
	}

	rec = do(t, srv, http.MethodPut, "/api/tasks/"+a+"/status", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing status, got %d", rec.Code)
	}
}

func TestBoardReorderAndDrag(t *testing.T) {
	srv, store := newTestServer(t, nil)
	a := seed(t, store, "A", task.StatusDesign)
	b := seed(t, store, "B", task.StatusDesign)
	c := seed(t, store, "C", task.StatusDesign)

	columns := decode[[]board.Column](t, do(t, srv, http.MethodGet, "/api/board", ""))
	if len(columns) != 3 || len(columns[0].Tasks) != 3 || len(columns[1].Tasks) != 0 {
		t.Fatalf("unexpected columns %+v", columns)
	}

	rec := do(t, srv, http.MethodPut, "/api/board/desain/order", fmt.Sprintf(`{"ids": [%q, %q]}`, c, a))
	if rec.Code != http.StatusOK {
		t.Fatalf("reorder: %d %s", rec.Code, rec.Body)
	}
	if got := taskIDs(task.WithStatus(store.List(), task.StatusDesign)); got != strings.Join([]string{c, a, b}, ",") {
		t.Fatalf("unexpected order %s", got)
	}

	rec = do(t, srv, http.MethodPost, "/api/board/drag", fmt.Sprintf(`{"id": %q, "status": "Selesai"}`, b))
	if rec.Code != http.StatusOK {
		t.Fatalf("drag: %d %s", rec.Code, rec.Body)
	}
	columns = decode[[]board.Column](t, rec)
	if len(columns[2].Tasks) != 1 || columns[2].Tasks[0].ID != b {
		t.Fatalf("expected %s in done column, got %+v", b, columns[2])
	}

	rec = do(t, srv, http.MethodPost, "/api/board/drag", fmt.Sprintf(`{"id": %q, "overId": %q}`, a, c))
	if rec.Code != http.StatusOK {
		t.Fatalf("drag within: %d %s", rec.Code, rec.Body)
	}
	if got := taskIDs(task.WithStatus(store.List(), task.StatusDesign)); got != strings.Join([]string{a, c}, ",") {
		t.Fatalf("unexpected order after drag %s", got)
	}

	rec = do(t, srv, http.MethodPost, "/api/board/drag", `{"id": "nope", "status": "Selesai"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown drag, got %d", rec.Code)
	}
}

func taskIDs(tasks []task.Task) string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return strings.Join(ids, ",")
}

func TestStats(t *testing.T) {
	srv, store := newTestServer(t, nil)
	seed(t, store, "A", task.StatusDesign)
	seed(t, store, "B", task.StatusDone)

	stats := decode[task.Stats](t, do(t, srv, http.MethodGet, "/api/stats", ""))
	if stats.Total != 2 || stats.Active != 1 || stats.Completed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestAssistNotConfigured(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, path := range []string{"/api/assist/extract", "/api/assist/summary", "/api/assist/speech", "/api/assist/concept"} {
		rec := do(t, srv, http.MethodPost, path, `{}`)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503, got %d", path, rec.Code)
		}
	}
}

func TestAssistExtract(t *testing.T) {
	model := assist.ModelFunc(func(context.Context, assist.Request) (*assist.Response, error) {
		return &assist.Response{Text: `{"isTask": true, "taskDetails": {"customerName": "Rinan Corp", "description": "Spanduk"}}`}, nil
	})
	srv, _ := newTestServer(t, model)

	rec := do(t, srv, http.MethodPost, "/api/assist/extract", `{"userInput": "spanduk Rinan Corp besok"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("extract: %d %s", rec.Code, rec.Body)
	}
	out := decode[assist.Extraction](t, rec)
	if !out.IsTask || out.TaskDetails.DueDate != "2024-01-11" {
		t.Fatalf("unexpected extraction %+v", out)
	}

	rec = do(t, srv, http.MethodPost, "/api/assist/extract", `{}`)
	if rec.Code != http.StatusBadRequest || decode[errorBody](t, rec).Field != "userInput" {
		t.Fatalf("expected userInput error, got %d %s", rec.Code, rec.Body)
	}
}

func TestAssistErrorsMapToGatewayStatus(t *testing.T) {
	tests := []struct {
		name   string
		model  assist.ModelFunc
		status int
	}{
		{
			name: "bad output",
			model: func(context.Context, assist.Request) (*assist.Response, error) {
				return &assist.Response{Text: "bukan json"}, nil
			},
			status: http.StatusBadGateway,
		},
		{
			name: "timeout",
			model: func(ctx context.Context, _ assist.Request) (*assist.Response, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			status: http.StatusGatewayTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.model)
			rec := do(t, srv, http.MethodPost, "/api/assist/extract", `{"userInput": "apa itu DPI?"}`)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body)
			}
		})
	}
}

func TestAssistSummaryDefaultsToActiveTasks(t *testing.T) {
	var prompts []string
	var mu sync.Mutex
	model := assist.ModelFunc(func(_ context.Context, req assist.Request) (*assist.Response, error) {
		mu.Lock()
		prompts = append(prompts, req.Prompt)
		mu.Unlock()
		if len(req.Voices) > 0 {
			return &assist.Response{Media: []assist.Media{{MIMEType: "audio/L16;rate=24000", Data: []byte{0, 0}}}}, nil
		}
		return &assist.Response{Text: `{"summary": "Manager: Ada satu tugas.\nAsisten: Semangat!"}`}, nil
	})
	srv, store := newTestServer(t, model)
	seed(t, store, "Rinan Corp", task.StatusDesign)
	seed(t, store, "Toko Maju", task.StatusDone)

	rec := do(t, srv, http.MethodPost, "/api/assist/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: %d %s", rec.Code, rec.Body)
	}
	out := decode[assist.Summary](t, rec)
	if !strings.HasPrefix(out.AudioURI, "data:audio/wav;base64,") || !strings.HasPrefix(out.Transcript, "Manager:") {
		t.Fatalf("unexpected summary %+v", out)
	}
	if !strings.Contains(prompts[0], "Rinan Corp") || strings.Contains(prompts[0], "Toko Maju") {
		t.Fatalf("expected only active tasks in prompt:\n%s", prompts[0])
	}

	rec = do(t, srv, http.MethodPost, "/api/assist/summary", `{"tasks": []}`)
	if decode[assist.Summary](t, rec).Transcript != assist.CannedTranscript {
		t.Fatalf("expected canned transcript for an explicit empty list: %s", rec.Body)
	}
}

func TestAssistSpeechAndConcept(t *testing.T) {
	model := assist.ModelFunc(func(_ context.Context, req assist.Request) (*assist.Response, error) {
		if req.RelaxSafety {
			return &assist.Response{Media: []assist.Media{{MIMEType: "image/png", Data: []byte("png")}}}, nil
		}
		return &assist.Response{Media: []assist.Media{{MIMEType: "audio/L16;rate=24000", Data: []byte{0, 0}}}}, nil
	})
	srv, _ := newTestServer(t, model)

	rec := do(t, srv, http.MethodPost, "/api/assist/speech", `{"text": "Spanduk Rinan Corp"}`)
	if rec.Code != http.StatusOK || !strings.HasPrefix(decode[assist.Speech](t, rec).Media, "data:audio/wav;base64,") {
		t.Fatalf("speech: %d %s", rec.Code, rec.Body)
	}
	rec = do(t, srv, http.MethodPost, "/api/assist/speech", `{"text": "   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank text, got %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/api/assist/concept", `{"description": "Spanduk kopi"}`)
	if rec.Code != http.StatusOK || decode[assist.Concept](t, rec).ImageURL != "data:image/png;base64,cG5n" {
		t.Fatalf("concept: %d %s", rec.Code, rec.Body)
	}
}

func TestEventsStreamTaskLists(t *testing.T) {
	srv, store := newTestServer(t, nil)
	seed(t, store, "A", task.StatusDesign)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	if len(first) != 1 {
		t.Fatalf("expected initial list of 1, got %+v", first)
	}

	seed(t, store, "B", task.StatusDesign)
	second := readEvent(t, reader)
	if len(second) != 2 {
		t.Fatalf("expected list of 2 after create, got %+v", second)
	}
}

func readEvent(t *testing.T, reader *bufio.Reader) []task.Task {
	t.Helper()
	var event string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:") && event == "tasks":
			var tasks []task.Task
			data := bytes.TrimSpace([]byte(strings.TrimPrefix(line, "data:")))
			if err := json.Unmarshal(data, &tasks); err != nil {
				t.Fatalf("decode event %q: %v", data, err)
			}
			return tasks
		}
	}
}
