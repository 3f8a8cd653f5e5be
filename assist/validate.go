package assist

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkSchema validates v and reports the first failing field.
func checkSchema(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return schemaError("%s failed %q", first.Namespace(), first.Tag())
	}
	return fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
}

// decodeJSON parses model text as JSON into v. Models sometimes wrap JSON
// in a markdown code fence even when asked for application/json.
func decodeJSON(text string, v any) error {
	text = stripCodeFence(text)
	if text == "" {
		return ErrEmptyOutput
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return schemaError("%v", err)
	}
	return nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if newline := strings.IndexByte(text, '\n'); newline >= 0 {
		text = text[newline+1:]
	} else {
		text = ""
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
