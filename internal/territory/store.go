package territory

import (
	"fmt"
	"slices"
	"time"

	"github.com/EmpoweredVote/territory-backend/internal/metrics"
	"github.com/google/uuid"
)

// Store is the assignment state container. It has a single logical owner and
// does no locking of its own; callers serialise access. Every mutation
// updates both directions of the index before returning, and a failed
// mutation leaves the state untouched.
type Store struct {
	order     []string
	locations map[string]*entry
	index     map[string]string // region id -> location id
	sel       Selection

	listeners []func(Change)

	now   func() time.Time
	newID func() string
}

type entry struct {
	loc     Location // loc.Regions is unused; regions is authoritative
	regions regionList
}

func NewStore() *Store {
	return &Store{
		locations: make(map[string]*entry),
		index:     make(map[string]string),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// OnChange registers fn to be called after every mutation that had an effect.
func (s *Store) OnChange(fn func(Change)) {
	s.listeners = append(s.listeners, fn)
}

func (s *Store) emit(c Change) {
	for _, fn := range s.listeners {
		fn(c)
	}
}

func (s *Store) record(op string, out Outcome) {
	effect := "changed"
	if out.NoOp() {
		effect = "noop"
	}
	metrics.AssignmentOpsTotal.WithLabelValues(op, effect).Inc()
	metrics.AssignedRegions.Set(float64(len(s.index)))
}

func (s *Store) lookup(id string) (*entry, error) {
	e, ok := s.locations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLocationNotFound, id)
	}
	return e, nil
}

// ---- Locations ----

// AddLocation appends one location. See AddLocations.
func (s *Store) AddLocation(loc Location) (Location, error) {
	added, err := s.AddLocations([]Location{loc})
	if err != nil {
		return Location{}, err
	}
	return added[0], nil
}

// AddLocations appends locations. Missing ids, colors and timestamps are
// filled in. Any region list on the input is ignored: new locations own
// nothing. The batch is rejected as a whole if an id collides.
func (s *Store) AddLocations(locs []Location) ([]Location, error) {
	batch := make(map[string]bool, len(locs))
	prepared := make([]Location, len(locs))
	used := s.usedColors()

	for i, loc := range locs {
		if loc.ID == "" {
			loc.ID = s.newID()
		}
		if _, exists := s.locations[loc.ID]; exists || batch[loc.ID] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLocation, loc.ID)
		}
		batch[loc.ID] = true

		if loc.Color == "" {
			loc.Color = NextColor(used)
		}
		used = append(used, loc.Color)
		if loc.FormattedAddress == "" {
			loc.FormattedAddress = loc.Address
		}
		if loc.CreatedAt.IsZero() {
			loc.CreatedAt = s.now().UTC()
		}
		loc.Regions = nil
		prepared[i] = loc
	}

	out := make([]Location, 0, len(prepared))
	for _, loc := range prepared {
		s.locations[loc.ID] = &entry{loc: loc, regions: newRegionList()}
		s.order = append(s.order, loc.ID)
		out = append(out, s.snapshot(s.locations[loc.ID]))
		s.emit(Change{Kind: ChangeLocations, Op: "add", LocationID: loc.ID})
	}
	metrics.AssignmentOpsTotal.WithLabelValues("add_location", "changed").Add(float64(len(out)))
	return out, nil
}

// UpdateLocation merges patch into the location. Ownership is untouched.
func (s *Store) UpdateLocation(id string, patch LocationPatch) (Location, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Location{}, err
	}
	if patch.Name != nil {
		e.loc.Name = *patch.Name
	}
	if patch.Address != nil {
		e.loc.Address = *patch.Address
	}
	if patch.FormattedAddress != nil {
		e.loc.FormattedAddress = *patch.FormattedAddress
	}
	if patch.Lat != nil {
		e.loc.Lat = *patch.Lat
	}
	if patch.Lng != nil {
		e.loc.Lng = *patch.Lng
	}
	if patch.Color != nil {
		e.loc.Color = *patch.Color
	}
	s.emit(Change{Kind: ChangeLocations, Op: "update", LocationID: id})
	return s.snapshot(e), nil
}

// DeleteLocation removes a location and frees every region it owned. If it
// was the active location the active selection is cleared.
func (s *Store) DeleteLocation(id string) (Outcome, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Outcome{}, err
	}

	freed := e.regions.ids()
	for _, r := range freed {
		delete(s.index, r)
	}
	delete(s.locations, id)
	s.order = slices.DeleteFunc(s.order, func(x string) bool { return x == id })
	if s.sel.ActiveLocationID == id {
		s.sel.ActiveLocationID = ""
	}

	out := Outcome{Changed: freed}
	s.record("delete_location", out)
	s.emit(Change{Kind: ChangeLocations, Op: "delete", LocationID: id, Regions: freed})
	return out, nil
}

// ---- Assignments ----

// assign moves region to e. It reports false when e already owns it.
func (s *Store) assign(region string, e *entry) bool {
	prev, owned := s.index[region]
	if owned && prev == e.loc.ID {
		return false
	}
	if owned {
		if old, ok := s.locations[prev]; ok {
			old.regions.remove(region)
		}
	}
	s.index[region] = e.loc.ID
	e.regions.add(region)
	return true
}

func (s *Store) unassign(region string) bool {
	prev, owned := s.index[region]
	if !owned {
		return false
	}
	delete(s.index, region)
	if old, ok := s.locations[prev]; ok {
		old.regions.remove(region)
	}
	return true
}

// AssignRegion gives region to locationID, taking it from any previous
// owner. Assigning to the current owner is a no-op.
func (s *Store) AssignRegion(region, locationID string) (Outcome, error) {
	e, err := s.lookup(locationID)
	if err != nil {
		return Outcome{}, err
	}
	var out Outcome
	if s.assign(region, e) {
		out.Changed = []string{region}
		s.emit(Change{Kind: ChangeAssignments, Op: "assign", LocationID: locationID, Regions: out.Changed})
	}
	s.record("assign", out)
	return out, nil
}

// UnassignRegion frees region. Unowned regions are a no-op.
func (s *Store) UnassignRegion(region string) Outcome {
	var out Outcome
	if s.unassign(region) {
		out.Changed = []string{region}
		s.emit(Change{Kind: ChangeAssignments, Op: "unassign", Regions: out.Changed})
	}
	s.record("unassign", out)
	return out
}

// BulkAssign applies AssignRegion to every region, overwriting other owners.
func (s *Store) BulkAssign(regions []string, locationID string) (Outcome, error) {
	e, err := s.lookup(locationID)
	if err != nil {
		return Outcome{}, err
	}
	var out Outcome
	for _, r := range regions {
		if s.assign(r, e) {
			out.Changed = append(out.Changed, r)
		}
	}
	if !out.NoOp() {
		s.emit(Change{Kind: ChangeAssignments, Op: "bulk_assign", LocationID: locationID, Regions: out.Changed})
	}
	s.record("bulk_assign", out)
	return out, nil
}

// BulkAssignUnassignedOnly claims only regions with no current owner.
func (s *Store) BulkAssignUnassignedOnly(regions []string, locationID string) (Outcome, error) {
	e, err := s.lookup(locationID)
	if err != nil {
		return Outcome{}, err
	}
	var out Outcome
	for _, r := range regions {
		if _, owned := s.index[r]; owned {
			continue
		}
		s.assign(r, e)
		out.Changed = append(out.Changed, r)
	}
	if !out.NoOp() {
		s.emit(Change{Kind: ChangeAssignments, Op: "fill", LocationID: locationID, Regions: out.Changed})
	}
	s.record("fill", out)
	return out, nil
}

// ClickRegion applies a single click on region using the current selection.
// In eraser mode an owned region is freed. Otherwise, with an active
// location, an unowned region is claimed, one owned by the active location
// is freed, and one owned by another location is taken over. With neither
// eraser nor active location the click does nothing.
func (s *Store) ClickRegion(region string) Outcome {
	if s.sel.Eraser {
		return s.UnassignRegion(region)
	}
	active := s.sel.ActiveLocationID
	if active == "" {
		return Outcome{}
	}
	if s.index[region] == active {
		return s.UnassignRegion(region)
	}
	out, err := s.AssignRegion(region, active)
	if err != nil {
		// active always names an existing location; DeleteLocation clears it.
		return Outcome{}
	}
	return out
}

// ---- Selection ----

// SetActiveLocation selects the location that receives click and paint
// assignments. An empty id clears it. Eraser mode is switched off.
func (s *Store) SetActiveLocation(id string) error {
	if id != "" {
		if _, err := s.lookup(id); err != nil {
			return err
		}
	}
	s.sel.ActiveLocationID = id
	s.sel.Eraser = false
	s.emit(Change{Kind: ChangeSelection, Op: "active", LocationID: id})
	return nil
}

func (s *Store) ToggleEraser() bool {
	s.sel.Eraser = !s.sel.Eraser
	s.emit(Change{Kind: ChangeSelection, Op: "eraser"})
	return s.sel.Eraser
}

// SetRadiusPreview sets or, with nil, clears the preview circle.
func (s *Store) SetRadiusPreview(p *RadiusPreview) {
	if p != nil {
		cp := *p
		p = &cp
	}
	s.sel.RadiusPreview = p
	s.emit(Change{Kind: ChangeSelection, Op: "radius_preview"})
}

func (s *Store) ToggleShowUnassignedOnly() bool {
	s.sel.ShowUnassignedOnly = !s.sel.ShowUnassignedOnly
	s.emit(Change{Kind: ChangeSelection, Op: "unassigned_only"})
	return s.sel.ShowUnassignedOnly
}

func (s *Store) Selection() Selection {
	sel := s.sel
	if sel.RadiusPreview != nil {
		cp := *sel.RadiusPreview
		sel.RadiusPreview = &cp
	}
	return sel
}

// ---- Whole-state operations ----

// Import replaces every location and rebuilds the index from each location's
// region list. A region listed by more than one location goes to the last
// one listing it. Selection is cleared. On error nothing changes.
func (s *Store) Import(locs []Location) error {
	seen := make(map[string]bool, len(locs))
	for _, loc := range locs {
		if loc.ID == "" {
			return fmt.Errorf("%w: location without id", ErrInvalidSnapshot)
		}
		if seen[loc.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateLocation, loc.ID)
		}
		seen[loc.ID] = true
	}

	index := RebuildIndex(locs)
	locations := make(map[string]*entry, len(locs))
	order := make([]string, 0, len(locs))
	for _, loc := range locs {
		e := &entry{loc: loc, regions: newRegionList()}
		e.loc.Regions = nil
		for _, r := range loc.Regions {
			// Earlier listers lose the region to the owner the index chose.
			if index[r] == loc.ID {
				e.regions.add(r)
			}
		}
		locations[loc.ID] = e
		order = append(order, loc.ID)
	}

	s.locations = locations
	s.order = order
	s.index = index
	s.sel = Selection{}
	metrics.AssignmentOpsTotal.WithLabelValues("import", "changed").Inc()
	metrics.AssignedRegions.Set(float64(len(s.index)))
	s.emit(Change{Kind: ChangeReplaced, Op: "import"})
	return nil
}

// Reset returns the store to its empty initial state.
func (s *Store) Reset() {
	s.locations = make(map[string]*entry)
	s.order = nil
	s.index = make(map[string]string)
	s.sel = Selection{}
	metrics.AssignedRegions.Set(0)
	s.emit(Change{Kind: ChangeReplaced, Op: "reset"})
}

// ---- Reads ----

func (s *Store) snapshot(e *entry) Location {
	loc := e.loc
	loc.Regions = e.regions.ids()
	return loc
}

func (s *Store) Location(id string) (Location, bool) {
	e, ok := s.locations[id]
	if !ok {
		return Location{}, false
	}
	return s.snapshot(e), true
}

// Locations returns every location in insertion order.
func (s *Store) Locations() []Location {
	out := make([]Location, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.snapshot(s.locations[id]))
	}
	return out
}

// Owner returns the location owning region.
func (s *Store) Owner(region string) (string, bool) {
	id, ok := s.index[region]
	return id, ok
}

func (s *Store) AssignedCount() int { return len(s.index) }

func (s *Store) State() State {
	assignments := make(map[string]string, len(s.index))
	for r, l := range s.index {
		assignments[r] = l
	}
	return State{
		Locations:   s.Locations(),
		Assignments: assignments,
		Selection:   s.Selection(),
	}
}

func (s *Store) usedColors() []string {
	used := make([]string, 0, len(s.order))
	for _, id := range s.order {
		used = append(used, s.locations[id].loc.Color)
	}
	return used
}

// RebuildIndex derives region→location from the locations' region lists.
func RebuildIndex(locs []Location) map[string]string {
	index := make(map[string]string)
	for _, loc := range locs {
		for _, r := range loc.Regions {
			index[r] = loc.ID
		}
	}
	return index
}

// CheckConsistency verifies both directions of the index agree and that no
// region is listed by two locations.
func (s *Store) CheckConsistency() error {
	listed := 0
	for _, id := range s.order {
		e := s.locations[id]
		for _, r := range e.regions.ids() {
			listed++
			if owner, ok := s.index[r]; !ok || owner != id {
				return fmt.Errorf("%w: %s listed by %s but indexed to %q", ErrInconsistentIndex, r, id, owner)
			}
		}
	}
	if listed != len(s.index) {
		return fmt.Errorf("%w: %d listed regions, %d indexed", ErrInconsistentIndex, listed, len(s.index))
	}
	for r, owner := range s.index {
		e, ok := s.locations[owner]
		if !ok || !e.regions.has(r) {
			return fmt.Errorf("%w: %s indexed to missing owner %q", ErrInconsistentIndex, r, owner)
		}
	}
	return nil
}
