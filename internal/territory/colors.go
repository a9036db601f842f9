package territory

import (
	"fmt"
	"slices"
	"time"
)

// Palette is the fixed set of location colors, assigned in order.
var Palette = []string{
	"#E63946", "#457B9D", "#2A9D8F", "#E9C46A", "#F4A261",
	"#9B5DE5", "#00BBF9", "#F15BB5", "#00F5D4", "#FEE440",
	"#8338EC", "#3A86FF", "#FF006E", "#FB5607", "#38B000",
	"#7209B7", "#4CC9F0", "#B5179E", "#560BAD", "#480CA8",
}

// NextColor returns the first palette color not in used. Once the palette is
// exhausted it cycles by the number of colors already in use.
func NextColor(used []string) string {
	for _, c := range Palette {
		if !slices.Contains(used, c) {
			return c
		}
	}
	return Palette[len(used)%len(Palette)]
}

const (
	UnassignedFill = "#D4D4D4"
	UnassignedLine = "#888888"
)

// Style is how a region should be drawn.
type Style struct {
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
	Color       string  `json:"color"`
	Weight      float64 `json:"weight"`
	Opacity     float64 `json:"opacity"`
}

// StyleFor returns the style of region given the current ownership.
func (s *Store) StyleFor(region string) Style {
	if owner, ok := s.index[region]; ok {
		if e, ok := s.locations[owner]; ok {
			return Style{FillColor: e.loc.Color, FillOpacity: 0.45, Color: e.loc.Color, Weight: 1.5, Opacity: 0.8}
		}
	}
	return Style{FillColor: UnassignedFill, FillOpacity: 0.3, Color: UnassignedLine, Weight: 1, Opacity: 0.6}
}

// ExportFilename builds territories_YYYY-MM-DD_HHMMSS.<ext> for t.
func ExportFilename(t time.Time, ext string) string {
	return fmt.Sprintf("territories_%s.%s", t.Format("2006-01-02_150405"), ext)
}
