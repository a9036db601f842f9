// Package paint turns one continuous pointer gesture into single-region
// assignment operations, touching each region at most once per gesture.
package paint

import (
	"log"

	"github.com/EmpoweredVote/territory-backend/internal/metrics"
	"github.com/EmpoweredVote/territory-backend/internal/territory"
)

type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

const (
	EraserTrailColor  = "#EC7B57"
	DefaultTrailColor = "#8C2433"
)

// Resolver maps a coordinate to the rendered regions whose true geometry
// contains it.
type Resolver interface {
	At(lat, lng float64) []string
}

// Assigner is the part of the assignment store a gesture writes to.
type Assigner interface {
	Selection() territory.Selection
	Location(id string) (territory.Location, bool)
	Owner(region string) (string, bool)
	AssignRegion(region, locationID string) (territory.Outcome, error)
	UnassignRegion(region string) territory.Outcome
}

// Op is one operation emitted by a sample.
type Op struct {
	Kind       string `json:"kind"` // "assign" or "unassign"
	Region     string `json:"region"`
	LocationID string `json:"locationId,omitempty"`
}

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Session is the Idle/Active gesture controller. It is not safe for
// concurrent use.
type Session struct {
	store   Assigner
	state   State
	touched map[string]struct{}
	trail   []Point
	color   string
}

func NewSession(store Assigner) *Session {
	return &Session{store: store}
}

func (p *Session) State() State { return p.state }

// Begin starts a gesture. It needs the modifier held and either an active
// location or eraser mode; otherwise the session stays Idle and Begin
// returns false. Beginning while Active discards the previous gesture.
func (p *Session) Begin(modifier bool) bool {
	if !modifier {
		return false
	}
	sel := p.store.Selection()
	if sel.ActiveLocationID == "" && !sel.Eraser {
		return false
	}

	p.state = Active
	p.touched = make(map[string]struct{})
	p.trail = p.trail[:0]
	switch {
	case sel.Eraser:
		p.color = EraserTrailColor
	default:
		p.color = DefaultTrailColor
		if loc, ok := p.store.Location(sel.ActiveLocationID); ok && loc.Color != "" {
			p.color = loc.Color
		}
	}
	return true
}

// Sample processes one pointer position. Regions already touched in this
// gesture are skipped. In eraser mode owned regions are freed; otherwise
// regions go to the active location. If the active location has gone away
// the sample is a no-op.
func (p *Session) Sample(lat, lng float64, rendered Resolver) []Op {
	if p.state != Active {
		metrics.PaintSamplesTotal.WithLabelValues("idle").Inc()
		return nil
	}
	p.trail = append(p.trail, Point{Lat: lat, Lng: lng})

	hits := rendered.At(lat, lng)
	if len(hits) == 0 {
		metrics.PaintSamplesTotal.WithLabelValues("miss").Inc()
		return nil
	}

	var ops []Op
	for _, region := range hits {
		if _, seen := p.touched[region]; seen {
			continue
		}
		p.touched[region] = struct{}{}

		sel := p.store.Selection()
		switch {
		case sel.Eraser:
			if _, owned := p.store.Owner(region); owned {
				p.store.UnassignRegion(region)
				ops = append(ops, Op{Kind: "unassign", Region: region})
			}
		case sel.ActiveLocationID != "":
			if _, err := p.store.AssignRegion(region, sel.ActiveLocationID); err != nil {
				log.Printf("[Paint] region=%s location=%s assign skipped: %v", region, sel.ActiveLocationID, err)
				continue
			}
			ops = append(ops, Op{Kind: "assign", Region: region, LocationID: sel.ActiveLocationID})
		}
	}

	if len(ops) == 0 {
		metrics.PaintSamplesTotal.WithLabelValues("seen").Inc()
	} else {
		metrics.PaintSamplesTotal.WithLabelValues("hit").Inc()
	}
	return ops
}

// End finishes the gesture, clearing the touched set and the trail. It
// returns how many regions the gesture touched.
func (p *Session) End() int {
	if p.state != Active {
		return 0
	}
	n := len(p.touched)
	p.state = Idle
	p.touched = nil
	p.trail = nil
	p.color = ""
	return n
}

// Trail is the pointer path of the current gesture.
func (p *Session) Trail() []Point {
	return append([]Point(nil), p.trail...)
}

func (p *Session) TrailColor() string { return p.color }

// Touched reports whether region was already handled in this gesture.
func (p *Session) Touched(region string) bool {
	_, ok := p.touched[region]
	return ok
}
