package assist

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"text/template"

	internalstrings "github.com/intorma/torma/internal/strings"
)

const (
	extractTemplateName = "extract-task.tmpl"
	answerTemplateName  = "answer-question.tmpl"
	summaryTemplateName = "daily-summary.tmpl"
	conceptTemplateName = "concept-image.tmpl"
)

//go:embed templates/*.tmpl
var defaultTemplates embed.FS

// TemplateNames lists the prompt templates a project may override.
func TemplateNames() []string {
	return []string{extractTemplateName, answerTemplateName, summaryTemplateName, conceptTemplateName}
}

// LoadPrompt returns the template called name, preferring a file of that
// name in dir over the embedded default.
func LoadPrompt(dir, name string) (string, error) {
	if internalstrings.IsBlank(name) {
		return "", fmt.Errorf("prompt name is required")
	}

	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("read prompt override: %w", err)
		}
	}

	data, err := defaultTemplates.ReadFile(path.Join("templates", name))
	if err != nil {
		return "", fmt.Errorf("read default prompt: %w", err)
	}
	return string(data), nil
}

// RenderPrompt executes a prompt template. Missing keys are errors.
func RenderPrompt(contents string, data any) (string, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(contents)
	if err != nil {
		return "", fmt.Errorf("parse prompt: %w", err)
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out.String(), nil
}

func (f flow) prompt(name string, data any) (string, error) {
	contents, err := LoadPrompt(f.opts.TemplatesDir, name)
	if err != nil {
		return "", err
	}
	return RenderPrompt(contents, data)
}
