// Package validation rejects malformed request payloads before they reach
// any network call.
//
// Payloads are checked with go-playground/validator struct tags (the same
// engine Gin uses for binding) plus a custom `utf16max` rule, because prompt
// limits are expressed in UTF-16 code units the way browser clients count
// them. Every violated constraint becomes one human-readable message; the
// resulting *Error joins them with ", " and is always client-attributable.
//
// The package has no side effects: Parse* and Validate* only inspect their
// input and return a normalized, typed value.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-image-studio/internal/domain"
	"github.com/tbourn/go-image-studio/internal/utils"
)

// Error lists every constraint a payload violated.
type Error struct {
	Violations []string
}

// Error joins the violations with ", ".
func (e *Error) Error() string { return strings.Join(e.Violations, ", ") }

// IsValidationError reports whether err carries a *Error.
func IsValidationError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

// Messages for prompt constraints. Enumeration messages are derived from the
// `oneof` parameter so they always list the accepted values.
const (
	MsgPromptRequired = "Prompt is required"
	MsgInvalidBody    = "invalid JSON body"
	MsgNotObject      = "request body must be a JSON object"
)

// MsgPromptTooLong is reported when the prompt exceeds domain.MaxPromptLength.
var MsgPromptTooLong = fmt.Sprintf("Prompt must be %d characters or less", domain.MaxPromptLength)

// generateInput mirrors the generation payload for tag validation. Field order
// is the order violations are reported in.
type generateInput struct {
	Prompt  string `json:"prompt"  validate:"required,utf16max=4000"`
	Size    string `json:"size"    validate:"oneof=1024x1024 1024x1792 1792x1024"`
	Quality string `json:"quality" validate:"oneof=standard hd"`
	Style   string `json:"style"   validate:"oneof=vivid natural"`
}

type enhanceInput struct {
	Prompt string `json:"prompt" validate:"required,utf16max=4000"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("utf16max", func(fl validator.FieldLevel) bool {
		max, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utils.UTF16Len(fl.Field().String()) <= max
	})
	return v
}

// ParseGenerate decodes and validates a raw generation payload.
//
// Malformed JSON or a non-object body yields a single-violation *Error.
// Fields of the wrong JSON type are reported as "<field> must be a string"
// alongside the other fields' violations.
func ParseGenerate(body []byte) (domain.GenerationRequest, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return domain.GenerationRequest{}, err
	}

	var in generateInput
	typeErrs := map[string]string{}
	in.Prompt = stringField(fields, "prompt", typeErrs)
	in.Size = stringField(fields, "size", typeErrs)
	in.Quality = stringField(fields, "quality", typeErrs)
	in.Style = stringField(fields, "style", typeErrs)

	if err := check(in, []string{"prompt", "size", "quality", "style"}, typeErrs); err != nil {
		return domain.GenerationRequest{}, err
	}
	return domain.GenerationRequest{
		Prompt:  in.Prompt,
		Size:    domain.Size(in.Size),
		Quality: domain.Quality(in.Quality),
		Style:   domain.Style(in.Style),
	}, nil
}

// ParseEnhance decodes and validates a raw enhancement payload, returning the
// prompt unchanged (no trimming) when it is acceptable.
func ParseEnhance(body []byte) (string, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return "", err
	}
	typeErrs := map[string]string{}
	in := enhanceInput{Prompt: stringField(fields, "prompt", typeErrs)}
	if err := check(in, []string{"prompt"}, typeErrs); err != nil {
		return "", err
	}
	return in.Prompt, nil
}

// ValidateGenerate checks an already-typed request.
func ValidateGenerate(req domain.GenerationRequest) error {
	in := generateInput{
		Prompt:  req.Prompt,
		Size:    string(req.Size),
		Quality: string(req.Quality),
		Style:   string(req.Style),
	}
	return check(in, []string{"prompt", "size", "quality", "style"}, nil)
}

// ValidatePrompt checks a bare prompt against the length constraints.
func ValidatePrompt(prompt string) error {
	return check(enhanceInput{Prompt: prompt}, []string{"prompt"}, nil)
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, &Error{Violations: []string{MsgInvalidBody}}
	}
	if trimmed[0] != '{' {
		return nil, &Error{Violations: []string{MsgNotObject}}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, &Error{Violations: []string{MsgInvalidBody}}
	}
	return fields, nil
}

// stringField extracts name from fields. Absent fields yield "" (left to the
// tag rules); present non-string values, null included, record a type error.
func stringField(fields map[string]json.RawMessage, name string, typeErrs map[string]string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}
	var s string
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) || json.Unmarshal(raw, &s) != nil {
		typeErrs[name] = name + " must be a string"
		return ""
	}
	return s
}

// check runs the tag rules and merges the results with type errors, in the
// given field order. A field with a type error reports only that.
func check(in any, order []string, typeErrs map[string]string) error {
	byField := map[string]string{}
	if err := validate.Struct(in); err != nil {
		var fes validator.ValidationErrors
		if !errors.As(err, &fes) {
			return &Error{Violations: []string{err.Error()}}
		}
		for _, fe := range fes {
			if _, seen := byField[fe.Field()]; !seen {
				byField[fe.Field()] = message(fe)
			}
		}
	}

	var out []string
	for _, f := range order {
		if msg, ok := typeErrs[f]; ok {
			out = append(out, msg)
			continue
		}
		if msg, ok := byField[f]; ok {
			out = append(out, msg)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return &Error{Violations: out}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "prompt" {
			return MsgPromptRequired
		}
		return fe.Field() + " is required"
	case "utf16max":
		if fe.Field() == "prompt" {
			return MsgPromptTooLong
		}
		return fmt.Sprintf("%s must be %s characters or less", fe.Field(), fe.Param())
	case "oneof":
		return fe.Field() + " must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	}
	return fe.Field() + " is invalid"
}
