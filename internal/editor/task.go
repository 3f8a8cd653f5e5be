package editor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"
	"github.com/intorma/torma/internal/validation"
	"github.com/intorma/torma/task"
)

// ErrAborted is returned when the edited form comes back without a
// customer or description, which is how a user cancels.
var ErrAborted = errors.New("edit aborted: empty form")

// TaskData represents the data used to render the form.
type TaskData struct {
	// IsUpdate is true when editing an existing task.
	IsUpdate bool
	// ID is the task ID (only for updates).
	ID string
	// Heading is an optional comment shown above the form, e.g. the text an
	// AI draft was made from.
	Heading      string
	CustomerName string
	Status       task.Status
	Source       task.Source
	DueDate      string
	Description  string
}

// DefaultCreateData returns TaskData with the form defaults.
func DefaultCreateData() TaskData {
	return TaskData{
		Status: task.DefaultStatus,
		Source: task.DefaultSource,
	}
}

// DataFromTask creates TaskData from an existing task for editing.
func DataFromTask(t task.Task) TaskData {
	data := DataFromFields(t.Fields())
	data.IsUpdate = true
	data.ID = t.ID
	return data
}

// DataFromFields prefills the form, falling back to the form defaults for
// empty status and source.
func DataFromFields(f task.Fields) TaskData {
	data := DefaultCreateData()
	data.CustomerName = f.CustomerName
	data.Description = f.Description
	if f.Status != "" {
		data.Status = f.Status
	}
	if f.Source != "" {
		data.Source = f.Source
	}
	if f.DueDate != nil {
		data.DueDate = f.DueDate.String()
	}
	return data
}

var taskTemplate = template.Must(template.New("task").Funcs(template.FuncMap{
	"comment": func(s string) string {
		lines := strings.Split(strings.TrimSpace(s), "\n")
		for i, line := range lines {
			lines[i] = "# " + line
		}
		return strings.Join(lines, "\n")
	},
	"statuses": func() string { return validation.FormatValidValues(task.ValidStatuses()) },
	"sources":  func() string { return validation.FormatValidValues(task.ValidSources()) },
}).Parse(`{{- if .Heading }}{{ comment .Heading }}
{{ end -}}
{{- if .IsUpdate }}# task {{ .ID }}
{{ end -}}
customer = {{ printf "%q" .CustomerName }}
status = {{ printf "%q" .Status }} # {{ statuses }}
source = {{ printf "%q" .Source }} # {{ sources }}
due = {{ printf "%q" .DueDate }} # YYYY-MM-DD, empty for none
---
{{ .Description }}
`))

// RenderTaskTOML renders the task data as a TOML form for editing.
func RenderTaskTOML(data TaskData) (string, error) {
	var buf bytes.Buffer
	if err := taskTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}

// ParsedTask represents the parsed result from the editor.
type ParsedTask struct {
	CustomerName string `toml:"customer"`
	Status       string `toml:"status"`
	Source       string `toml:"source"`
	Due          string `toml:"due"`
	Description  string `toml:"-"`

	fields task.Fields
}

// ParseTaskTOML parses and validates the form content from the editor.
func ParseTaskTOML(content string) (*ParsedTask, error) {
	frontmatter, body := splitFrontmatter(content)

	var parsed ParsedTask
	if _, err := toml.Decode(frontmatter, &parsed); err != nil {
		return nil, fmt.Errorf("parse TOML: %w", err)
	}
	parsed.Description = strings.TrimSpace(body)
	parsed.CustomerName = strings.TrimSpace(parsed.CustomerName)
	if parsed.CustomerName == "" && parsed.Description == "" {
		return nil, ErrAborted
	}

	fields := task.Fields{
		CustomerName: parsed.CustomerName,
		Description:  parsed.Description,
	}
	status, err := task.ParseStatus(parsed.Status)
	if err != nil {
		return nil, &task.ValidationError{Field: "status", Err: err}
	}
	fields.Status = status
	source, err := task.ParseSource(parsed.Source)
	if err != nil {
		return nil, &task.ValidationError{Field: "source", Err: err}
	}
	fields.Source = source
	if due := strings.TrimSpace(parsed.Due); due != "" {
		date, err := task.ParseDate(due)
		if err != nil {
			return nil, &task.ValidationError{Field: "dueDate", Err: err}
		}
		fields.DueDate = &date
	}
	if err := task.ValidateFields(fields); err != nil {
		return nil, err
	}
	parsed.fields = fields
	return &parsed, nil
}

// Fields returns the validated task fields.
func (p *ParsedTask) Fields() task.Fields {
	return p.fields
}

// Patch returns an update that sets every form field. An empty due date
// clears the stored one.
func (p *ParsedTask) Patch() task.Patch {
	f := p.fields
	patch := task.Patch{
		CustomerName: task.StringPtr(f.CustomerName),
		Description:  task.StringPtr(f.Description),
		Status:       task.StatusPtr(f.Status),
		Source:       task.SourcePtr(f.Source),
	}
	if f.DueDate == nil {
		patch.ClearDueDate = true
	} else {
		due := *f.DueDate
		patch.DueDate = &due
	}
	return patch
}

func splitFrontmatter(content string) (string, string) {
	content = strings.TrimLeft(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if content == "" {
		return "", ""
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "---" {
			return strings.Join(lines[:i], "\n"), strings.Join(lines[i+1:], "\n")
		}
	}
	return content, ""
}

// EditTask opens the editor prefilled with data and returns the parsed
// result.
func EditTask(data TaskData) (*ParsedTask, error) {
	content, err := RenderTaskTOML(data)
	if err != nil {
		return nil, err
	}

	tmpfile, err := os.CreateTemp("", "torma-task-*.toml")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpfile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpfile.WriteString(content); err != nil {
		tmpfile.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpfile.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	if err := Edit(tmpPath); err != nil {
		return nil, err
	}

	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("read edited file: %w", err)
	}

	return ParseTaskTOML(string(edited))
}
