package filtering

import (
	"strings"

	"go.uber.org/zap"
)

// Group represents a single condition of the store filter formula.
type Group interface {
	Name() string
	IsEnabled() bool
	Formula(lit LiteralFunc) string
}

// LiteralFunc renders a user supplied value as a formula string literal.
type LiteralFunc func(value string) string

// Builder joins the enabled groups into one Airtable formula.
type Builder struct {
	literal LiteralFunc
	logger  *zap.Logger
}

// New creates a Builder. When escape is false values are interpolated
// verbatim, so a double quote inside a value breaks out of the literal.
func New(escape bool, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}

	literal := Literal
	if escape {
		literal = EscapedLiteral
	}

	return &Builder{literal: literal, logger: logger}
}

// Build returns the formula for the provided groups. A single group is
// returned as is, several groups are combined with AND, and no enabled group
// yields an empty formula which means "no filtering".
func (b *Builder) Build(groups ...Group) string {
	parts := make([]string, 0, len(groups))
	for _, group := range groups {
		if group == nil {
			continue
		}

		if !group.IsEnabled() {
			b.logger.Debug("filter group disabled", zap.String("name", group.Name()))
			continue
		}

		formula := group.Formula(b.literal)
		if formula == "" {
			continue
		}

		b.logger.Debug("filter group", zap.String("name", group.Name()), zap.String("formula", formula))
		parts = append(parts, formula)
	}

	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return "AND(" + strings.Join(parts, ", ") + ")"
	}
}

// Literal wraps the value in double quotes without escaping anything.
func Literal(value string) string {
	return `"` + value + `"`
}

var formulaEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// EscapedLiteral wraps the value in double quotes, escaping backslashes and
// quotes so the value cannot terminate the literal.
func EscapedLiteral(value string) string {
	return `"` + formulaEscaper.Replace(value) + `"`
}
