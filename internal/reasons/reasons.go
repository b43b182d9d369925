// Package reasons turns the backend's free-text decision rationale into
// supporting and opposing bullet lists.
//
// The backend emits a single string shaped like
//
//	Reasons for: - first - second Reasons against: - third
//
// and marks emphasis with **double asterisks**. Parsing is coupled to that
// exact format: a hyphen inside a sentence starts a new bullet, and a missing
// "Reasons against:" marker leaves the opposing list empty. Backends that
// send reasons_for/reasons_against arrays should be read with FromStructured
// instead.
package reasons

import "strings"

const (
	forMarker     = "Reasons for:"
	againstMarker = "Reasons against:"
	bulletSep     = "-"
	emphasisMark  = "**"
)

// Segment is a run of bullet text, optionally emphasized.
type Segment struct {
	Text     string `json:"text"`
	Emphasis bool   `json:"emphasis"`
}

// Bullet is one reason with its rendered segments.
type Bullet struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Reasons holds both sides of a decision rationale.
type Reasons struct {
	Supporting []Bullet `json:"supporting"`
	Opposing   []Bullet `json:"opposing"`
}

// Empty reports whether there are no reasons on either side.
func (r Reasons) Empty() bool {
	return len(r.Supporting) == 0 && len(r.Opposing) == 0
}

// Parser converts rationale text into Reasons.
type Parser interface {
	Parse(text string) Reasons
}

// TextParser parses the backend's "Reasons for / Reasons against" format.
type TextParser struct{}

// NewTextParser returns the default free-text parser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse implements Parser.
func (TextParser) Parse(text string) Reasons {
	return Parse(text)
}

// Parse splits text once on the against-marker and turns each half into
// bullets. It never fails; malformed input yields fewer bullets.
func Parse(text string) Reasons {
	forPart, againstPart, found := strings.Cut(text, againstMarker)
	forPart = strings.TrimSpace(strings.Replace(forPart, forMarker, "", 1))

	r := Reasons{
		Supporting: splitBullets(forPart),
		Opposing:   []Bullet{},
	}
	if found {
		r.Opposing = splitBullets(strings.TrimSpace(againstPart))
	}
	return r
}

// FromStructured builds Reasons from pre-split lists. Items still honour
// emphasis markers.
func FromStructured(supporting, opposing []string) Reasons {
	return Reasons{
		Supporting: toBullets(supporting),
		Opposing:   toBullets(opposing),
	}
}

func splitBullets(section string) []Bullet {
	return toBullets(strings.Split(section, bulletSep))
}

func toBullets(items []string) []Bullet {
	bullets := make([]Bullet, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		bullets = append(bullets, Bullet{Text: item, Segments: Segments(item)})
	}
	return bullets
}

// Segments splits a bullet on emphasis markers. Parts at odd positions are
// emphasized. Text without markers, or with an unpaired marker, is returned
// as a single plain segment.
func Segments(text string) []Segment {
	parts := strings.Split(text, emphasisMark)
	if len(parts) == 1 || len(parts)%2 == 0 {
		return []Segment{{Text: text}}
	}

	segs := make([]Segment, 0, len(parts))
	for i, p := range parts {
		if p == "" {
			continue
		}
		segs = append(segs, Segment{Text: p, Emphasis: i%2 == 1})
	}
	if len(segs) == 0 {
		return []Segment{{Text: text}}
	}
	return segs
}
