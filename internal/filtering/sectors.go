package filtering

import (
	"fmt"
	"strings"
)

const (
	// SectorField is the table column holding the sectors of a resource.
	SectorField = "Sector"
	// AllSectors marks resources relevant to every sector.
	AllSectors = "All sectors"
)

type sectorsGroup struct {
	sectors []string
}

// NewSectors creates a group matching rows whose Sector column contains any
// of the provided sectors or the "All sectors" marker.
func NewSectors(sectors []string) Group {
	return &sectorsGroup{sectors: sectors}
}

func (g *sectorsGroup) Name() string { return "sectors" }

func (g *sectorsGroup) IsEnabled() bool { return len(g.sectors) > 0 }

func (g *sectorsGroup) Formula(lit LiteralFunc) string {
	if !g.IsEnabled() {
		return ""
	}

	predicates := make([]string, 0, len(g.sectors)+1)
	for _, sector := range g.sectors {
		predicates = append(predicates, contains(lit, sector, SectorField))
	}
	predicates = append(predicates, contains(lit, AllSectors, SectorField))

	return "OR(" + strings.Join(predicates, ", ") + ")"
}

func contains(lit LiteralFunc, value, field string) string {
	return fmt.Sprintf("FIND(%s, {%s})", lit(value), field)
}

// ForSectors is a shortcut building the formula for a sector selection with
// the default, non-escaping literal.
func ForSectors(sectors []string) string {
	return New(false, nil).Build(NewSectors(sectors))
}
