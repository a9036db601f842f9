package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/EmpoweredVote/territory-backend/internal/geocoding"
	"github.com/EmpoweredVote/territory-backend/internal/geometry"
	"github.com/EmpoweredVote/territory-backend/internal/mapview"
	"github.com/EmpoweredVote/territory-backend/internal/paint"
	"github.com/EmpoweredVote/territory-backend/internal/radius"
	"github.com/EmpoweredVote/territory-backend/internal/snapshots"
	"github.com/EmpoweredVote/territory-backend/internal/territory"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxUploadBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps package errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, territory.ErrLocationNotFound), errors.Is(err, snapshots.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, territory.ErrDuplicateLocation):
		status = http.StatusConflict
	case errors.Is(err, territory.ErrInvalidSnapshot),
		errors.Is(err, territory.ErrMissingColumn),
		errors.Is(err, radius.ErrInvalidRequest),
		errors.Is(err, radius.ErrUnknownMode):
		status = http.StatusBadRequest
	case errors.Is(err, geometry.ErrPartitionUnavailable):
		w.Header().Set("Retry-After", "5")
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		log.Printf("[Workspace] internal error: %v", err)
	}
	http.Error(w, err.Error(), status)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// ---- State ----

// GetState handles GET /state
func (ws *Workspace) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ws.State())
}

// GetStats handles GET /stats
func (ws *Workspace) GetStats(w http.ResponseWriter, r *http.Request) {
	var st territory.Stats
	ws.with(func(s *territory.Store) error {
		st = s.Stats()
		return nil
	})
	writeJSON(w, http.StatusOK, st)
}

// ---- Locations ----

// ListLocations handles GET /locations
func (ws *Workspace) ListLocations(w http.ResponseWriter, r *http.Request) {
	var locs []territory.Location
	ws.with(func(s *territory.Store) error {
		locs = s.Locations()
		return nil
	})
	if locs == nil {
		locs = []territory.Location{}
	}
	writeJSON(w, http.StatusOK, locs)
}

// CreateLocation handles POST /locations. Without lat/lng the address is
// geocoded first.
func (ws *Workspace) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string   `json:"name"`
		Address string   `json:"address"`
		Lat     *float64 `json:"lat"`
		Lng     *float64 `json:"lng"`
		Color   string   `json:"color"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.Name == "" || body.Address == "" {
		http.Error(w, "Name and address are required", http.StatusBadRequest)
		return
	}

	loc := territory.Location{Name: body.Name, Address: body.Address, Color: body.Color}
	if body.Lat != nil && body.Lng != nil {
		loc.Lat, loc.Lng = *body.Lat, *body.Lng
	} else {
		if ws.geocoder == nil {
			http.Error(w, "Geocoding is not configured; provide lat and lng", http.StatusBadRequest)
			return
		}
		res := geocoding.Observe(r.Context(), ws.geocoder, body.Address)
		if !res.Success {
			http.Error(w, res.Error, http.StatusUnprocessableEntity)
			return
		}
		loc.Lat, loc.Lng, loc.FormattedAddress = res.Lat, res.Lng, res.FormattedAddress
	}

	var added territory.Location
	err := ws.with(func(s *territory.Store) error {
		var err error
		added, err = s.AddLocation(loc)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// UpdateLocation handles PATCH /locations/{id}
func (ws *Workspace) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var patch territory.LocationPatch
	if !decode(w, r, &patch) {
		return
	}
	var updated territory.Location
	err := ws.with(func(s *territory.Store) error {
		var err error
		updated, err = s.UpdateLocation(chi.URLParam(r, "id"), patch)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteLocation handles DELETE /locations/{id}. Owned regions are freed.
func (ws *Workspace) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	var out territory.Outcome
	err := ws.with(func(s *territory.Store) error {
		var err error
		out, err = s.DeleteLocation(chi.URLParam(r, "id"))
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ImportLocations handles POST /locations/import with a CSV body. Rows are
// geocoded in the background; poll GET /import/jobs/{jobID}.
func (ws *Workspace) ImportLocations(w http.ResponseWriter, r *http.Request) {
	rows, rowErrs, err := territory.ParseCSV(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, err)
		return
	}
	if len(rows) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":      "No valid rows found",
			"row_errors": rowErrs,
		})
		return
	}

	job := ws.startImport(rows, rowErrs)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":     job.ID,
		"status":     "running",
		"total":      len(rows),
		"row_errors": rowErrs,
	})
}

// GetImportJob handles GET /import/jobs/{jobID}
func (ws *Workspace) GetImportJob(w http.ResponseWriter, r *http.Request) {
	job, ok := ws.job(chi.URLParam(r, "jobID"))
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ImportTemplate handles GET /import/template
func (ws *Workspace) ImportTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="locations_template.csv"`)
	io.WriteString(w, territory.TemplateCSV)
}

// ---- Regions ----

// ClickRegion handles POST /regions/{regionID}/click
func (ws *Workspace) ClickRegion(w http.ResponseWriter, r *http.Request) {
	var out territory.Outcome
	ws.with(func(s *territory.Store) error {
		out = s.ClickRegion(chi.URLParam(r, "regionID"))
		return nil
	})
	writeJSON(w, http.StatusOK, out)
}

// AssignRegion handles PUT /regions/{regionID} with {"locationId": "..."}
func (ws *Workspace) AssignRegion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LocationID string `json:"locationId"`
	}
	if !decode(w, r, &body) {
		return
	}
	var out territory.Outcome
	err := ws.with(func(s *territory.Store) error {
		var err error
		out, err = s.AssignRegion(chi.URLParam(r, "regionID"), body.LocationID)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// UnassignRegion handles DELETE /regions/{regionID}
func (ws *Workspace) UnassignRegion(w http.ResponseWriter, r *http.Request) {
	var out territory.Outcome
	ws.with(func(s *territory.Store) error {
		out = s.UnassignRegion(chi.URLParam(r, "regionID"))
		return nil
	})
	writeJSON(w, http.StatusOK, out)
}

// ---- Selection ----

func (ws *Workspace) writeSelection(w http.ResponseWriter) {
	var sel territory.Selection
	ws.with(func(s *territory.Store) error {
		sel = s.Selection()
		return nil
	})
	writeJSON(w, http.StatusOK, sel)
}

// SetActiveLocation handles PUT /selection/active. An empty id clears it.
func (ws *Workspace) SetActiveLocation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LocationID string `json:"locationId"`
	}
	if !decode(w, r, &body) {
		return
	}
	err := ws.with(func(s *territory.Store) error {
		return s.SetActiveLocation(body.LocationID)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	ws.writeSelection(w)
}

// ToggleEraser handles POST /selection/eraser
func (ws *Workspace) ToggleEraser(w http.ResponseWriter, r *http.Request) {
	ws.with(func(s *territory.Store) error {
		s.ToggleEraser()
		return nil
	})
	ws.writeSelection(w)
}

// SetRadiusPreview handles PUT /selection/radius-preview
func (ws *Workspace) SetRadiusPreview(w http.ResponseWriter, r *http.Request) {
	var p territory.RadiusPreview
	if !decode(w, r, &p) {
		return
	}
	if p.RadiusMiles <= 0 {
		http.Error(w, "radiusMiles must be positive", http.StatusBadRequest)
		return
	}
	ws.with(func(s *territory.Store) error {
		s.SetRadiusPreview(&p)
		return nil
	})
	ws.writeSelection(w)
}

// ClearRadiusPreview handles DELETE /selection/radius-preview
func (ws *Workspace) ClearRadiusPreview(w http.ResponseWriter, r *http.Request) {
	ws.with(func(s *territory.Store) error {
		s.SetRadiusPreview(nil)
		return nil
	})
	ws.writeSelection(w)
}

// ToggleUnassignedOnly handles POST /selection/unassigned-only
func (ws *Workspace) ToggleUnassignedOnly(w http.ResponseWriter, r *http.Request) {
	ws.with(func(s *territory.Store) error {
		s.ToggleShowUnassignedOnly()
		return nil
	})
	ws.writeSelection(w)
}

// ---- Map view and paint ----

// viewportFrame is a refreshed frame with the style of each rendered region.
type viewportFrame struct {
	mapview.Frame
	Styles map[string]territory.Style `json:"styles,omitempty"`
}

// SetViewport handles POST /viewport. Geometry loading happens outside the
// workspace lock.
func (ws *Workspace) SetViewport(w http.ResponseWriter, r *http.Request) {
	var vp mapview.Viewport
	if !decode(w, r, &vp) {
		return
	}
	frame, err := ws.view.Refresh(r.Context(), vp)
	if err != nil {
		writeError(w, err)
		return
	}

	out := viewportFrame{Frame: frame}
	if len(frame.Regions) > 0 {
		out.Styles = make(map[string]territory.Style, len(frame.Regions))
		ws.with(func(s *territory.Store) error {
			for _, id := range frame.Regions {
				out.Styles[id] = s.StyleFor(id)
			}
			return nil
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// BeginPaint handles POST /paint/begin with {"modifier": true}
func (ws *Workspace) BeginPaint(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Modifier bool `json:"modifier"`
	}
	if !decode(w, r, &body) {
		return
	}
	var active bool
	var color string
	ws.with(func(*territory.Store) error {
		active = ws.paint.Begin(body.Modifier)
		color = ws.paint.TrailColor()
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]any{"active": active, "trailColor": color})
}

// PaintSample handles POST /paint/sample with {"lat": .., "lng": ..}
func (ws *Workspace) PaintSample(w http.ResponseWriter, r *http.Request) {
	var p paint.Point
	if !decode(w, r, &p) {
		return
	}
	var ops []paint.Op
	ws.with(func(*territory.Store) error {
		ops = ws.paint.Sample(p.Lat, p.Lng, ws.view)
		return nil
	})
	if ops == nil {
		ops = []paint.Op{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ops": ops})
}

// EndPaint handles POST /paint/end
func (ws *Workspace) EndPaint(w http.ResponseWriter, r *http.Request) {
	var n int
	ws.with(func(*territory.Store) error {
		n = ws.paint.End()
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]int{"touched": n})
}

// ---- Radius ----

// RadiusAssign handles POST /radius. Membership is computed without the
// workspace lock; only the commit holds it.
func (ws *Workspace) RadiusAssign(w http.ResponseWriter, r *http.Request) {
	var req radius.Request
	if !decode(w, r, &req) {
		return
	}
	res, err := radius.Assign(r.Context(), ws.geo, ws.assignGuard, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (ws *Workspace) assignGuard(fn func(radius.Assigner) error) error {
	return ws.with(func(s *territory.Store) error { return fn(s) })
}

// RadiusMembers handles GET /radius/members?lat=..&lng=..&radius=..
func (ws *Workspace) RadiusMembers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
	miles, err3 := strconv.ParseFloat(q.Get("radius"), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		http.Error(w, "lat, lng and radius are required numbers", http.StatusBadRequest)
		return
	}
	members, err := radius.Membership(r.Context(), ws.geo, lat, lng, miles)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// ---- Export / import ----

func (ws *Workspace) export() territory.Document {
	var doc territory.Document
	ws.with(func(s *territory.Store) error {
		doc = s.Export(ws.now())
		return nil
	})
	return doc
}

// ExportJSON handles GET /export/json
func (ws *Workspace) ExportJSON(w http.ResponseWriter, r *http.Request) {
	doc := ws.export()
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, territory.ExportFilename(doc.ExportedAt, "json")))
	writeJSON(w, http.StatusOK, doc)
}

// ExportCSV handles GET /export/csv
func (ws *Workspace) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var locs []territory.Location
	ws.with(func(s *territory.Store) error {
		locs = s.Locations()
		return nil
	})
	var buf bytes.Buffer
	if err := territory.WriteCSV(&buf, locs); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, territory.ExportFilename(ws.now(), "csv")))
	w.Write(buf.Bytes())
}

// ImportState handles POST /import. The body replaces the whole plan.
func (ws *Workspace) ImportState(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	doc, err := territory.ParseDocument(data)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := ws.replace(doc); err != nil {
		writeError(w, err)
		return
	}
	log.Printf("[Workspace] imported locations=%d", len(doc.Locations))
	writeJSON(w, http.StatusOK, ws.State())
}

// Reset handles POST /reset. With ?geometry=1 the cached partitions and
// the rendered set are evicted too, so the next viewport refetches.
func (ws *Workspace) Reset(w http.ResponseWriter, r *http.Request) {
	dropGeometry, _ := strconv.ParseBool(r.URL.Query().Get("geometry"))
	ws.reset()
	if dropGeometry {
		ws.geo.Reset()
		ws.view.Clear()
	}
	log.Printf("[Workspace] reset geometry=%t", dropGeometry)
	writeJSON(w, http.StatusOK, ws.State())
}

// ---- Snapshots ----

func (ws *Workspace) requireSnapshots(w http.ResponseWriter) bool {
	if ws.snaps == nil {
		http.Error(w, "Snapshots are not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// SaveSnapshot handles POST /snapshots with an optional {"label": "..."}
func (ws *Workspace) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if !ws.requireSnapshots(w) {
		return
	}
	var body struct {
		Label string `json:"label"`
	}
	if r.ContentLength != 0 && !decode(w, r, &body) {
		return
	}
	snap, err := ws.snaps.Save(r.Context(), body.Label, ws.export())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// ListSnapshots handles GET /snapshots?limit=N
func (ws *Workspace) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if !ws.requireSnapshots(w) {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := ws.snaps.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []snapshots.Snapshot{}
	}
	writeJSON(w, http.StatusOK, list)
}

// RestoreSnapshot handles POST /snapshots/{id}/restore
func (ws *Workspace) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	if !ws.requireSnapshots(w) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid snapshot id", http.StatusBadRequest)
		return
	}
	doc, err := ws.snaps.Load(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := ws.replace(doc); err != nil {
		writeError(w, err)
		return
	}
	log.Printf("[Workspace] restored snapshot=%s locations=%d", id, len(doc.Locations))
	writeJSON(w, http.StatusOK, ws.State())
}

// ---- Feed ----

// Subscribe handles GET /ws
func (ws *Workspace) Subscribe(w http.ResponseWriter, r *http.Request) {
	if ws.feed == nil {
		http.Error(w, "Change feed is not configured", http.StatusServiceUnavailable)
		return
	}
	ws.feed.ServeWS(w, r)
}
