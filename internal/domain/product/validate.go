package product

import (
	"fmt"
	"strings"
)

// FieldViolation describes one failed field constraint. The json tags match
// the violation entries clients already parse.
type FieldViolation struct {
	Field   string `json:"param"`
	Message string `json:"msg"`
}

// ValidationError carries every field-level violation found in a payload.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Field + ": " + v.Message
	}
	return fmt.Sprintf("invalid product fields: %s", strings.Join(msgs, "; "))
}

// Validate checks the field constraints shared by create and update:
// non-empty title and description, non-negative value and stock.
func Validate(f Fields) error {
	var violations []FieldViolation
	if strings.TrimSpace(f.Title) == "" {
		violations = append(violations, FieldViolation{Field: "title", Message: "El titulo es obligatorio."})
	}
	if strings.TrimSpace(f.Description) == "" {
		violations = append(violations, FieldViolation{Field: "description", Message: "La descripcion es obligatoria."})
	}
	if f.Value < 0 {
		violations = append(violations, FieldViolation{Field: "value", Message: "El precio debe ser un numero positivo."})
	}
	if f.Stock < 0 {
		violations = append(violations, FieldViolation{Field: "stock", Message: "El stock debe ser un entero positivo."})
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
