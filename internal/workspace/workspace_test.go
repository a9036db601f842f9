package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/EmpoweredVote/territory-backend/internal/geocoding"
	"github.com/EmpoweredVote/territory-backend/internal/geometry"
	"github.com/EmpoweredVote/territory-backend/internal/snapshots"
	"github.com/EmpoweredVote/territory-backend/internal/spatial"
	"github.com/EmpoweredVote/territory-backend/internal/territory"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const adminToken = "let-me-in"

// ---- fakes ----

type fakeGeocoder map[string]geocoding.Result

func (f fakeGeocoder) Geocode(ctx context.Context, address string) geocoding.Result {
	if res, ok := f[address]; ok {
		return res
	}
	return geocoding.Result{Error: "Address not found"}
}

type fakeFeed struct {
	mu   sync.Mutex
	msgs []territory.Change
}

func (f *fakeFeed) Publish(typ string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := v.(territory.Change); ok {
		f.msgs = append(f.msgs, c)
	}
}

func (f *fakeFeed) ServeWS(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func (f *fakeFeed) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.msgs {
		out = append(out, c.Kind)
	}
	return out
}

type memSnapshots struct {
	docs map[uuid.UUID]territory.Document
}

func (m *memSnapshots) Save(ctx context.Context, label string, doc territory.Document) (snapshots.Snapshot, error) {
	id := uuid.New()
	m.docs[id] = doc
	return snapshots.Snapshot{ID: id, Label: label, Version: doc.Version, TotalLocations: len(doc.Locations)}, nil
}

func (m *memSnapshots) List(ctx context.Context, limit int) ([]snapshots.Snapshot, error) {
	var out []snapshots.Snapshot
	for id, doc := range m.docs {
		out = append(out, snapshots.Snapshot{ID: id, Version: doc.Version})
	}
	return out, nil
}

func (m *memSnapshots) Load(ctx context.Context, id uuid.UUID) (territory.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return territory.Document{}, fmt.Errorf("%w: %s", snapshots.ErrNotFound, id)
	}
	return doc, nil
}

// ---- fixture ----

// 1/69 of a degree of latitude is about one mile.
const mile = 1.0 / 69.0

func square(zip string, lat, lng float64) string {
	const d = 0.01
	return fmt.Sprintf(`{"type":"Feature","properties":{"ZCTA5CE10":%q},"geometry":{"type":"Polygon","coordinates":[[[%[3]g,%[2]g],[%[4]g,%[2]g],[%[4]g,%[5]g],[%[3]g,%[5]g],[%[3]g,%[2]g]]]}}`,
		zip, lat-d, lng-d, lng+d, lat+d)
}

var vaBounds = spatial.BBox{North: 39.47, South: 36.54, East: -75.24, West: -83.68}

type fixture struct {
	ws     *Workspace
	srv    *httptest.Server
	feed   *fakeFeed
	failVA atomic.Bool
}

func newFixture(t *testing.T, configure ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{feed: &fakeFeed{}}

	doc := []byte(`{"type":"FeatureCollection","features":[` + strings.Join([]string{
		square("23220", 37.50, -77.50),
		square("23221", 37.50+3*mile, -77.50),
		square("23510", 37.50+60*mile, -77.50),
	}, ",") + `]}`)
	fetch := geometry.FetcherFunc(func(ctx context.Context, p geometry.Partition) ([]byte, error) {
		if f.failVA.Load() {
			return nil, errors.New("connection refused")
		}
		return doc, nil
	})
	geo := geometry.NewStore(fetch, geometry.PartitionTable{
		"va": {ID: "va", Source: "va.json", Bounds: vaBounds},
	}, "")

	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	opts := Options{
		Geometry: geo,
		Geocoder: fakeGeocoder{
			"1 Main St": {Success: true, Lat: 37.5, Lng: -77.5, FormattedAddress: "1 Main St, Richmond, VA"},
		},
		GeocodeDelay: time.Millisecond,
		Feed:         f.feed,
		AdminHash:    string(hash),
	}
	for _, fn := range configure {
		fn(&opts)
	}
	f.ws = New(opts)
	f.ws.now = func() time.Time { return time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC) }
	f.srv = httptest.NewServer(f.ws.SetupRoutes())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers ...string) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v", v, err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status %d, want %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want)
	}
}

func (f *fixture) addLocation(t *testing.T, name string) territory.Location {
	t.Helper()
	resp := f.do(t, "POST", "/locations", map[string]any{"name": name, "address": name + " address", "lat": 37.5, "lng": -77.5})
	expectStatus(t, resp, http.StatusCreated)
	return decodeBody[territory.Location](t, resp)
}

// ---- tests ----

func TestLocationsCRUD(t *testing.T) {
	f := newFixture(t)

	loc := f.addLocation(t, "Richmond")
	if loc.ID == "" || loc.Color != territory.Palette[0] {
		t.Fatalf("created = %+v", loc)
	}

	resp := f.do(t, "PATCH", "/locations/"+loc.ID, map[string]any{"name": "Richmond HQ"})
	expectStatus(t, resp, http.StatusOK)
	if got := decodeBody[territory.Location](t, resp); got.Name != "Richmond HQ" {
		t.Errorf("patched name = %q", got.Name)
	}

	expectStatus(t, f.do(t, "PATCH", "/locations/nope", map[string]any{"name": "x"}), http.StatusNotFound)
	expectStatus(t, f.do(t, "DELETE", "/locations/nope", nil), http.StatusNotFound)
	expectStatus(t, f.do(t, "POST", "/locations", map[string]any{"name": "no address"}), http.StatusBadRequest)

	expectStatus(t, f.do(t, "DELETE", "/locations/"+loc.ID, nil), http.StatusOK)
	resp = f.do(t, "GET", "/locations", nil)
	if locs := decodeBody[[]territory.Location](t, resp); len(locs) != 0 {
		t.Errorf("locations after delete = %+v", locs)
	}
}

func TestCreateLocation_Geocodes(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "POST", "/locations", map[string]any{"name": "HQ", "address": "1 Main St"})
	expectStatus(t, resp, http.StatusCreated)
	loc := decodeBody[territory.Location](t, resp)
	if loc.Lat != 37.5 || loc.FormattedAddress != "1 Main St, Richmond, VA" {
		t.Errorf("geocoded = %+v", loc)
	}

	resp = f.do(t, "POST", "/locations", map[string]any{"name": "Lost", "address": "nowhere"})
	expectStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestRegionOperationsPublishChanges(t *testing.T) {
	f := newFixture(t)
	a := f.addLocation(t, "Alpha")

	resp := f.do(t, "PUT", "/regions/23220", map[string]string{"locationId": a.ID})
	expectStatus(t, resp, http.StatusOK)
	if out := decodeBody[territory.Outcome](t, resp); len(out.Changed) != 1 {
		t.Errorf("assign outcome = %+v", out)
	}

	// Second assign to the same owner is a no-op, not an error.
	resp = f.do(t, "PUT", "/regions/23220", map[string]string{"locationId": a.ID})
	expectStatus(t, resp, http.StatusOK)
	if out := decodeBody[territory.Outcome](t, resp); !out.NoOp() {
		t.Errorf("repeat assign = %+v", out)
	}

	expectStatus(t, f.do(t, "PUT", "/regions/23221", map[string]string{"locationId": "ghost"}), http.StatusNotFound)

	// Click with no active location does nothing; with one it toggles.
	resp = f.do(t, "POST", "/regions/23221/click", nil)
	if out := decodeBody[territory.Outcome](t, resp); !out.NoOp() {
		t.Errorf("click without active = %+v", out)
	}
	expectStatus(t, f.do(t, "PUT", "/selection/active", map[string]string{"locationId": a.ID}), http.StatusOK)
	resp = f.do(t, "POST", "/regions/23221/click", nil)
	if out := decodeBody[territory.Outcome](t, resp); len(out.Changed) != 1 {
		t.Errorf("click with active = %+v", out)
	}

	expectStatus(t, f.do(t, "DELETE", "/regions/23220", nil), http.StatusOK)

	st := decodeBody[State](t, f.do(t, "GET", "/state", nil))
	if len(st.Assignments) != 1 || st.Assignments["23221"] != a.ID {
		t.Errorf("assignments = %v", st.Assignments)
	}

	kinds := f.feed.kinds()
	if len(kinds) == 0 || kinds[0] != territory.ChangeLocations {
		t.Errorf("feed kinds = %v", kinds)
	}
	var assignments int
	for _, k := range kinds {
		if k == territory.ChangeAssignments {
			assignments++
		}
	}
	if assignments != 3 {
		t.Errorf("assignment changes published = %d, want 3 (%v)", assignments, kinds)
	}
}

func TestSelectionRoutes(t *testing.T) {
	f := newFixture(t)
	a := f.addLocation(t, "Alpha")

	expectStatus(t, f.do(t, "PUT", "/selection/active", map[string]string{"locationId": "ghost"}), http.StatusNotFound)
	expectStatus(t, f.do(t, "PUT", "/selection/active", map[string]string{"locationId": a.ID}), http.StatusOK)

	sel := decodeBody[territory.Selection](t, f.do(t, "POST", "/selection/eraser", nil))
	if !sel.Eraser || sel.ActiveLocationID != a.ID {
		t.Errorf("after eraser toggle = %+v", sel)
	}

	sel = decodeBody[territory.Selection](t, f.do(t, "PUT", "/selection/radius-preview",
		territory.RadiusPreview{Lat: 37.5, Lng: -77.5, RadiusMiles: 10}))
	if sel.RadiusPreview == nil || sel.RadiusPreview.RadiusMiles != 10 {
		t.Errorf("preview = %+v", sel.RadiusPreview)
	}
	sel = decodeBody[territory.Selection](t, f.do(t, "DELETE", "/selection/radius-preview", nil))
	if sel.RadiusPreview != nil {
		t.Error("preview not cleared")
	}
	expectStatus(t, f.do(t, "PUT", "/selection/radius-preview", territory.RadiusPreview{Lat: 1, Lng: 1}), http.StatusBadRequest)

	sel = decodeBody[territory.Selection](t, f.do(t, "POST", "/selection/unassigned-only", nil))
	if !sel.ShowUnassignedOnly {
		t.Error("unassigned-only not toggled")
	}
}

func TestViewportAndPaint(t *testing.T) {
	f := newFixture(t)
	a := f.addLocation(t, "Alpha")

	view := map[string]any{
		"bounds": spatial.BBox{North: 37.6, South: 37.4, East: -77.4, West: -77.6},
		"zoom":   11,
	}
	resp := f.do(t, "POST", "/viewport", view)
	expectStatus(t, resp, http.StatusOK)
	frame := decodeBody[viewportFrame](t, resp)
	if len(frame.Regions) != 2 || frame.Styles["23220"].FillColor != territory.UnassignedFill {
		t.Fatalf("frame = %+v", frame)
	}

	// No active location: the gesture does not start.
	begin := decodeBody[map[string]any](t, f.do(t, "POST", "/paint/begin", map[string]bool{"modifier": true}))
	if begin["active"] != false {
		t.Fatalf("begin without active = %v", begin)
	}

	f.do(t, "PUT", "/selection/active", map[string]string{"locationId": a.ID})
	begin = decodeBody[map[string]any](t, f.do(t, "POST", "/paint/begin", map[string]bool{"modifier": true}))
	if begin["active"] != true || begin["trailColor"] != a.Color {
		t.Fatalf("begin = %v", begin)
	}

	for range 3 {
		f.do(t, "POST", "/paint/sample", map[string]float64{"lat": 37.5, "lng": -77.5})
	}
	f.do(t, "POST", "/paint/sample", map[string]float64{"lat": 37.5 + 3*mile, "lng": -77.5})
	f.do(t, "POST", "/paint/sample", map[string]float64{"lat": 38.5, "lng": -77.5})

	end := decodeBody[map[string]int](t, f.do(t, "POST", "/paint/end", nil))
	if end["touched"] != 2 {
		t.Errorf("touched = %d", end["touched"])
	}

	st := decodeBody[State](t, f.do(t, "GET", "/state", nil))
	if st.Assignments["23220"] != a.ID || st.Assignments["23221"] != a.ID || st.Painting {
		t.Errorf("state after paint = %+v", st)
	}
	if len(st.LoadedPartitions) != 1 || st.LoadedPartitions[0] != "va" {
		t.Errorf("loaded partitions = %v", st.LoadedPartitions)
	}
}

func TestResetGeometry(t *testing.T) {
	f := newFixture(t)
	view := map[string]any{
		"bounds": spatial.BBox{North: 37.6, South: 37.4, East: -77.4, West: -77.6},
		"zoom":   11,
	}
	f.do(t, "POST", "/viewport", view)
	auth := []string{"Authorization", "Bearer " + adminToken}

	st := decodeBody[State](t, f.do(t, "POST", "/reset", nil, auth...))
	if len(st.LoadedPartitions) != 1 {
		t.Fatalf("plain reset evicted geometry: %v", st.LoadedPartitions)
	}
	st = decodeBody[State](t, f.do(t, "POST", "/reset?geometry=1", nil, auth...))
	if len(st.LoadedPartitions) != 0 {
		t.Fatalf("loaded partitions after geometry reset = %v", st.LoadedPartitions)
	}

	// Nothing is rendered until the next viewport, so painting hits nothing.
	a := f.addLocation(t, "Alpha")
	f.do(t, "PUT", "/selection/active", map[string]string{"locationId": a.ID})
	f.do(t, "POST", "/paint/begin", map[string]bool{"modifier": true})
	f.do(t, "POST", "/paint/sample", map[string]float64{"lat": 37.5, "lng": -77.5})
	if end := decodeBody[map[string]int](t, f.do(t, "POST", "/paint/end", nil)); end["touched"] != 0 {
		t.Errorf("touched = %d after geometry reset", end["touched"])
	}

	frame := decodeBody[viewportFrame](t, f.do(t, "POST", "/viewport", view))
	if len(frame.Regions) != 2 {
		t.Errorf("refetched frame = %+v", frame)
	}
}

func TestViewportTooFar(t *testing.T) {
	f := newFixture(t)
	frame := decodeBody[viewportFrame](t, f.do(t, "POST", "/viewport", map[string]any{"bounds": vaBounds, "zoom": 5}))
	if !frame.TooFar || len(frame.Regions) != 0 {
		t.Errorf("frame = %+v", frame)
	}
}

func TestRadiusRoutes(t *testing.T) {
	f := newFixture(t)
	a := f.addLocation(t, "Alpha")
	b := f.addLocation(t, "Bravo")
	f.do(t, "PUT", "/regions/23221", map[string]string{"locationId": b.ID})

	members := decodeBody[[]map[string]any](t, f.do(t, "GET", "/radius/members?lat=37.5&lng=-77.5&radius=5", nil))
	if len(members) != 2 || members[0]["regionId"] != "23220" {
		t.Fatalf("members = %v", members)
	}

	resp := f.do(t, "POST", "/radius", map[string]any{"lat": 37.5, "lng": -77.5, "radiusMiles": 5, "locationId": a.ID, "mode": "fill"})
	expectStatus(t, resp, http.StatusOK)
	st := decodeBody[State](t, f.do(t, "GET", "/state", nil))
	if st.Assignments["23220"] != a.ID || st.Assignments["23221"] != b.ID {
		t.Errorf("fill assignments = %v", st.Assignments)
	}

	f.do(t, "POST", "/radius", map[string]any{"lat": 37.5, "lng": -77.5, "radiusMiles": 5, "locationId": a.ID, "mode": "overwrite"})
	st = decodeBody[State](t, f.do(t, "GET", "/state", nil))
	if st.Assignments["23221"] != a.ID {
		t.Errorf("overwrite assignments = %v", st.Assignments)
	}
	if _, ok := st.Assignments["23510"]; ok {
		t.Error("region 60 miles out should not be assigned")
	}

	expectStatus(t, f.do(t, "POST", "/radius", map[string]any{"lat": 37.5, "lng": -77.5, "radiusMiles": 5, "locationId": a.ID, "mode": "sideways"}), http.StatusBadRequest)
	expectStatus(t, f.do(t, "POST", "/radius", map[string]any{"lat": 37.5, "lng": -77.5, "radiusMiles": -1, "locationId": a.ID}), http.StatusBadRequest)
	expectStatus(t, f.do(t, "POST", "/radius", map[string]any{"lat": 37.5, "lng": -77.5, "radiusMiles": 5, "locationId": "ghost"}), http.StatusNotFound)
	expectStatus(t, f.do(t, "GET", "/radius/members?lat=x", nil), http.StatusBadRequest)
}

func TestRadius_GeometryUnavailable(t *testing.T) {
	f := newFixture(t)
	a := f.addLocation(t, "Alpha")
	f.failVA.Store(true)

	resp := f.do(t, "POST", "/radius", map[string]any{"lat": 37.5, "lng": -77.5, "radiusMiles": 5, "locationId": a.ID})
	expectStatus(t, resp, http.StatusBadGateway)
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	f := newFixture(t)
	a := f.addLocation(t, "Alpha")
	f.do(t, "PUT", "/regions/23220", map[string]string{"locationId": a.ID})

	resp := f.do(t, "GET", "/export/json", nil)
	expectStatus(t, resp, http.StatusOK)
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "territories_2026-03-01_150405.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	doc := decodeBody[territory.Document](t, resp)

	resp = f.do(t, "GET", "/export/csv", nil)
	expectStatus(t, resp, http.StatusOK)
	var csvBody bytes.Buffer
	if _, err := csvBody.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(csvBody.String(), "23220,Alpha,Alpha address") {
		t.Errorf("csv = %q", csvBody.String())
	}

	expectStatus(t, f.do(t, "POST", "/reset", nil), http.StatusUnauthorized)
	expectStatus(t, f.do(t, "POST", "/reset", nil, "Authorization", "Bearer wrong"), http.StatusForbidden)
	expectStatus(t, f.do(t, "POST", "/reset", nil, "Authorization", "Bearer "+adminToken), http.StatusOK)

	st := decodeBody[State](t, f.do(t, "GET", "/state", nil))
	if len(st.Locations) != 0 || len(st.Assignments) != 0 {
		t.Fatalf("state after reset = %+v", st)
	}

	expectStatus(t, f.do(t, "POST", "/import", `{"locations":[]}`, "Authorization", "Bearer "+adminToken), http.StatusBadRequest)

	resp = f.do(t, "POST", "/import", doc, "Authorization", "Bearer "+adminToken)
	expectStatus(t, resp, http.StatusOK)
	st = decodeBody[State](t, resp)
	if st.Assignments["23220"] != a.ID {
		t.Errorf("assignments after import = %v", st.Assignments)
	}
}

func TestImportLocationsJob(t *testing.T) {
	f := newFixture(t)

	body := "name,address,lat,lng\n" +
		"Given,2 Oak Ave,37.6,-77.4\n" +
		"Looked Up,1 Main St,,\n" +
		"Missing,nowhere,,\n" +
		",no name,,\n"
	resp := f.do(t, "POST", "/locations/import", body)
	expectStatus(t, resp, http.StatusAccepted)
	started := decodeBody[map[string]any](t, resp)
	jobID, _ := started["job_id"].(string)
	if jobID == "" {
		t.Fatalf("start = %v", started)
	}

	var job ImportJob
	deadline := time.Now().Add(5 * time.Second)
	for {
		job = decodeBody[ImportJob](t, f.do(t, "GET", "/import/jobs/"+jobID, nil))
		if job.Status != "running" || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if job.Status != "completed_with_errors" || job.Added != 2 || job.Failed != 1 {
		t.Fatalf("job = %+v", job)
	}
	if len(job.RowErrors) != 1 || job.RowErrors[0].Line != 5 {
		t.Errorf("row errors = %+v", job.RowErrors)
	}
	if job.Failures[0].Name != "Missing" || job.Failures[0].Message != "Address not found" {
		t.Errorf("failures = %+v", job.Failures)
	}
	if job.Current != job.Total {
		t.Errorf("progress %d/%d", job.Current, job.Total)
	}

	locs := decodeBody[[]territory.Location](t, f.do(t, "GET", "/locations", nil))
	if len(locs) != 2 || locs[0].Name != "Given" || locs[1].FormattedAddress != "1 Main St, Richmond, VA" {
		t.Errorf("locations = %+v", locs)
	}
	if locs[0].Color == locs[1].Color {
		t.Error("imported locations should get distinct colors")
	}

	expectStatus(t, f.do(t, "GET", "/import/jobs/nope", nil), http.StatusNotFound)
	expectStatus(t, f.do(t, "POST", "/locations/import", "city\nx\n"), http.StatusBadRequest)
}

func TestImportTemplate(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, "GET", "/import/template", nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q", ct)
	}
}

func TestSnapshots(t *testing.T) {
	bare := newFixture(t)
	expectStatus(t, bare.do(t, "GET", "/snapshots", nil), http.StatusServiceUnavailable)

	f := newFixture(t, func(o *Options) {
		o.Snapshots = &memSnapshots{docs: make(map[uuid.UUID]territory.Document)}
	})
	a := f.addLocation(t, "Alpha")
	f.do(t, "PUT", "/regions/23220", map[string]string{"locationId": a.ID})

	resp := f.do(t, "POST", "/snapshots", map[string]string{"label": "before"})
	expectStatus(t, resp, http.StatusCreated)
	snap := decodeBody[snapshots.Snapshot](t, resp)

	if list := decodeBody[[]snapshots.Snapshot](t, f.do(t, "GET", "/snapshots", nil)); len(list) != 1 {
		t.Errorf("list = %+v", list)
	}

	f.do(t, "POST", "/reset", nil, "Authorization", "Bearer "+adminToken)
	resp = f.do(t, "POST", "/snapshots/"+snap.ID.String()+"/restore", nil, "Authorization", "Bearer "+adminToken)
	expectStatus(t, resp, http.StatusOK)
	if st := decodeBody[State](t, resp); st.Assignments["23220"] != a.ID {
		t.Errorf("restored assignments = %v", st.Assignments)
	}

	expectStatus(t, f.do(t, "POST", "/snapshots/"+uuid.NewString()+"/restore", nil, "Authorization", "Bearer "+adminToken), http.StatusNotFound)
	expectStatus(t, f.do(t, "POST", "/snapshots/bad/restore", nil, "Authorization", "Bearer "+adminToken), http.StatusBadRequest)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	a := f.addLocation(t, "Alpha")
	f.do(t, "PUT", "/regions/23220", map[string]string{"locationId": a.ID})

	st := decodeBody[territory.Stats](t, f.do(t, "GET", "/stats", nil))
	if st.TotalLocations != 1 || st.AssignedRegions != 1 {
		t.Errorf("stats = %+v", st)
	}
}
