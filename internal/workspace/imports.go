package workspace

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/EmpoweredVote/territory-backend/internal/geocoding"
	"github.com/EmpoweredVote/territory-backend/internal/territory"
	"github.com/google/uuid"
)

// ImportJob tracks a tabular location upload while its addresses are
// geocoded.
type ImportJob struct {
	ID          string               `json:"id"`
	Status      string               `json:"status"` // "running", "completed", "completed_with_errors"
	Total       int                  `json:"total"`
	Current     int                  `json:"current"`
	CurrentName string               `json:"current_name,omitempty"`
	Added       int                  `json:"added"`
	Failed      int                  `json:"failed"`
	RowErrors   []territory.RowError `json:"row_errors,omitempty"`
	Failures    []ImportFailure      `json:"failures,omitempty"`
	Locations   []territory.Location `json:"locations,omitempty"`
	StartedAt   time.Time            `json:"started_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

type ImportFailure struct {
	Line    int    `json:"line"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (j *ImportJob) copy() ImportJob {
	c := *j
	c.RowErrors = append([]territory.RowError(nil), j.RowErrors...)
	c.Failures = append([]ImportFailure(nil), j.Failures...)
	c.Locations = append([]territory.Location(nil), j.Locations...)
	return c
}

func (ws *Workspace) startImport(rows []territory.Row, rowErrs []territory.RowError) *ImportJob {
	job := &ImportJob{
		ID:        uuid.New().String(),
		Status:    "running",
		Total:     len(rows),
		RowErrors: rowErrs,
		StartedAt: ws.now(),
	}
	ws.jobsMu.Lock()
	ws.jobs[job.ID] = job
	ws.jobsMu.Unlock()

	go ws.runImport(context.Background(), job, rows)
	return job
}

func (ws *Workspace) job(id string) (ImportJob, bool) {
	ws.jobsMu.Lock()
	defer ws.jobsMu.Unlock()
	job, ok := ws.jobs[id]
	if !ok {
		return ImportJob{}, false
	}
	return job.copy(), true
}

// runImport adds every row that has, or can be given, coordinates. Rows
// with both lat and lng are taken as given; the rest go through the
// geocoder one at a time. All successful rows are added in one batch at the
// end.
func (ws *Workspace) runImport(ctx context.Context, job *ImportJob, rows []territory.Row) {
	log.Printf("[LocationImport] job=%s starting rows=%d skipped=%d", job.ID, len(rows), len(job.RowErrors))

	var (
		ready    []territory.Location
		pending  []territory.Row
		items    []geocoding.Item
		failures []ImportFailure
	)
	for _, row := range rows {
		if lat, lng, ok := coordinates(row); ok {
			ready = append(ready, territory.Location{
				Name:    row.Name,
				Address: row.Address,
				Lat:     lat,
				Lng:     lng,
				Color:   row.Color,
			})
			continue
		}
		pending = append(pending, row)
		items = append(items, geocoding.Item{Name: row.Name, Address: row.Address})
	}

	if len(pending) > 0 && ws.geocoder == nil {
		for _, row := range pending {
			failures = append(failures, ImportFailure{Line: row.Line, Name: row.Name, Message: "Geocoding is not configured"})
		}
		pending = nil
	}

	if len(pending) > 0 {
		offset := len(ready)
		progress := func(current, total int, name string) {
			ws.jobsMu.Lock()
			job.Current = offset + current
			job.CurrentName = name
			ws.jobsMu.Unlock()
		}
		results := geocoding.Batch(ctx, ws.geocoder, items, ws.geocodeDelay, progress)
		for i, res := range results {
			row := pending[i]
			if !res.Result.Success {
				failures = append(failures, ImportFailure{Line: row.Line, Name: row.Name, Message: res.Result.Error})
				continue
			}
			ready = append(ready, territory.Location{
				Name:             row.Name,
				Address:          row.Address,
				FormattedAddress: res.Result.FormattedAddress,
				Lat:              res.Result.Lat,
				Lng:              res.Result.Lng,
				Color:            row.Color,
			})
		}
	}

	var added []territory.Location
	if len(ready) > 0 {
		err := ws.with(func(s *territory.Store) error {
			var err error
			added, err = s.AddLocations(ready)
			return err
		})
		if err != nil {
			log.Printf("[LocationImport] job=%s add failed: %v", job.ID, err)
			for _, loc := range ready {
				failures = append(failures, ImportFailure{Name: loc.Name, Message: err.Error()})
			}
			added = nil
		}
	}

	now := ws.now()
	ws.jobsMu.Lock()
	job.Current = job.Total
	job.CurrentName = ""
	job.Added = len(added)
	job.Failed = len(failures)
	job.Failures = failures
	job.Locations = added
	job.CompletedAt = &now
	if job.Failed > 0 {
		job.Status = "completed_with_errors"
	} else {
		job.Status = "completed"
	}
	ws.jobsMu.Unlock()

	log.Printf("[LocationImport] job=%s finished added=%d failed=%d", job.ID, len(added), len(failures))
}

func coordinates(row territory.Row) (float64, float64, bool) {
	if !row.HasCoordinates() {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(row.Lat, 64)
	lng, err2 := strconv.ParseFloat(row.Lng, 64)
	if err1 != nil || err2 != nil || lat == 0 || lng == 0 {
		return 0, 0, false
	}
	return lat, lng, true
}
