package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrDuplicateID is returned when two entries share a numeric id.
var ErrDuplicateID = errors.New("duplicate id")

// Validate checks field ranges and cross-entry constraints.
//
// Files and dialogs share one id namespace because play-id resolves both;
// waveforms have their own.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s %s", e.Namespace(), formatValidationMessage(e)))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	playIDs := make(map[uint32]string)
	for path, f := range c.Files {
		if f.ID == nil {
			continue
		}
		if prev, ok := playIDs[*f.ID]; ok {
			return fmt.Errorf("%w %d: %s and %s", ErrDuplicateID, *f.ID, prev, path)
		}
		playIDs[*f.ID] = path
	}
	for _, d := range c.Dialogs {
		if d.ID == nil {
			continue
		}
		if prev, ok := playIDs[*d.ID]; ok {
			return fmt.Errorf("%w %d: %s and dialog %q", ErrDuplicateID, *d.ID, prev, d.Label)
		}
		playIDs[*d.ID] = "dialog " + d.Label
	}

	waveIDs := make(map[uint32]string)
	for _, w := range c.Waveforms {
		if w.ID == nil {
			continue
		}
		if prev, ok := waveIDs[*w.ID]; ok {
			return fmt.Errorf("%w %d: waveforms %q and %q", ErrDuplicateID, *w.ID, prev, w.Label)
		}
		waveIDs[*w.ID] = w.Label
	}

	return nil
}

// formatValidationMessage creates a human-readable message from a validator error.
func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
