package task

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultDateLayout is the due date format, YYYY/MM/DD.
const DefaultDateLayout = "2006/01/02"

// ValidationError reports a single field that fails the record constraints.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Validator checks records against the title, subject and due date
// constraints. It is safe to share between the store and its adapters.
type Validator struct {
	layout   string
	validate *validator.Validate
}

// NewValidator creates a Validator for the given due date layout. An empty
// layout selects DefaultDateLayout.
func NewValidator(layout string) *Validator {
	if layout == "" {
		layout = DefaultDateLayout
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	err := v.RegisterValidation("duedate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(layout, fl.Field().String())
		return err == nil
	})
	if err != nil {
		panic(fmt.Sprintf("task: registering duedate validation: %v", err))
	}

	return &Validator{layout: layout, validate: v}
}

// Layout returns the due date layout in Go reference-time form.
func (v *Validator) Layout() string {
	return v.layout
}

// ParseDate parses a due date under the configured layout.
func (v *Validator) ParseDate(s string) (time.Time, error) {
	return time.Parse(v.layout, s)
}

// FormatDate renders t in the configured layout.
func (v *Validator) FormatDate(t time.Time) string {
	return t.Format(v.layout)
}

// Validate checks an already-normalized task. The first failing field is
// reported in title, subject, due_date order.
func (v *Validator) Validate(t Task) error {
	err := v.validate.Struct(t)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validating task: %w", err)
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: fe.Field(), Reason: "is required"}
	case "duedate":
		return &ValidationError{
			Field:  fe.Field(),
			Reason: fmt.Sprintf("must be a valid date in %s format", HumanLayout(v.layout)),
		}
	default:
		return &ValidationError{Field: fe.Field(), Reason: fmt.Sprintf("failed %q check", fe.Tag())}
	}
}

// Clean normalizes t and validates the result. Every ingress path (add,
// edit, load, import, restore) goes through here.
func (v *Validator) Clean(t Task) (Task, error) {
	n := Normalize(t)
	if err := v.Validate(n); err != nil {
		return Task{}, err
	}
	return n, nil
}

// HumanLayout renders a Go date layout with YYYY/MM/DD placeholders.
func HumanLayout(layout string) string {
	return strings.NewReplacer("2006", "YYYY", "01", "MM", "02", "DD").Replace(layout)
}
