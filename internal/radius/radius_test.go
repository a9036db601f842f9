package radius

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/EmpoweredVote/territory-backend/internal/geometry"
	"github.com/EmpoweredVote/territory-backend/internal/spatial"
	"github.com/EmpoweredVote/territory-backend/internal/territory"
)

func square(zip string, lat, lng float64) string {
	const d = 0.01
	return fmt.Sprintf(`{"type":"Feature","properties":{"ZCTA5CE10":%q},"geometry":{"type":"Polygon","coordinates":[[[%[3]g,%[2]g],[%[4]g,%[2]g],[%[4]g,%[5]g],[%[3]g,%[5]g],[%[3]g,%[2]g]]]}}`,
		zip, lat-d, lng-d, lng+d, lat+d)
}

func vaStore(t *testing.T, features ...string) *geometry.Store {
	t.Helper()
	doc := []byte(`{"type":"FeatureCollection","features":[` + strings.Join(features, ",") + `]}`)
	fetch := geometry.FetcherFunc(func(ctx context.Context, p geometry.Partition) ([]byte, error) {
		return doc, nil
	})
	table := geometry.PartitionTable{
		"va": {ID: "va", Source: "va.json", Bounds: spatial.BBox{North: 39.47, South: 36.54, East: -75.24, West: -83.68}},
	}
	return geometry.NewStore(fetch, table, "")
}

// 1/69 of a degree of latitude is about one mile.
const mile = 1.0 / 69.0

func TestMembership_CentroidDistance(t *testing.T) {
	store := vaStore(t,
		square("near", 37.5+5*mile, -77.5),
		square("far", 37.5+50*mile, -77.5),
	)

	members, err := Membership(context.Background(), store, 37.5, -77.5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got := IDs(members); !reflect.DeepEqual(got, []string{"near"}) {
		t.Fatalf("members = %v", got)
	}
	if d := members[0].DistanceMiles; d < 4.9 || d > 5.1 {
		t.Errorf("distance = %v", d)
	}
}

func TestMembership_SortedByDistance(t *testing.T) {
	store := vaStore(t,
		square("b", 37.5+3*mile, -77.5),
		square("a", 37.5+1*mile, -77.5),
		square("c", 37.5-2*mile, -77.5),
	)
	members, err := Membership(context.Background(), store, 37.5, -77.5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if got := IDs(members); !reflect.DeepEqual(got, []string{"a", "c", "b"}) {
		t.Errorf("order = %v", got)
	}
}

func TestMembership_EmptyVersusFailure(t *testing.T) {
	store := vaStore(t, square("far", 38.5, -79.0))
	members, err := Membership(context.Background(), store, 37.5, -77.5, 5)
	if err != nil || len(members) != 0 || members == nil {
		t.Fatalf("expected empty non-nil result, got %v, %v", members, err)
	}

	// Outside every partition: nothing to load, still a clean empty result.
	members, err = Membership(context.Background(), store, 0, 0, 5)
	if err != nil || len(members) != 0 {
		t.Fatalf("ocean: %v, %v", members, err)
	}

	failing := geometry.NewStore(geometry.FetcherFunc(func(ctx context.Context, p geometry.Partition) ([]byte, error) {
		return nil, errors.New("503")
	}), store.Partitions(), "")
	members, err = Membership(context.Background(), failing, 37.5, -77.5, 5)
	if !errors.Is(err, geometry.ErrPartitionUnavailable) {
		t.Fatalf("expected ErrPartitionUnavailable, got %v", err)
	}
	if members != nil {
		t.Errorf("failure returned members %v", members)
	}
}

func TestMembership_RejectsBadInput(t *testing.T) {
	store := vaStore(t)
	for _, c := range [][3]float64{{37.5, -77.5, 0}, {37.5, -77.5, -1}, {91, 0, 5}, {0, 181, 5}} {
		if _, err := Membership(context.Background(), store, c[0], c[1], c[2]); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("%v: expected ErrInvalidRequest, got %v", c, err)
		}
	}
}

func direct(store Assigner) Guard {
	return func(fn func(Assigner) error) error { return fn(store) }
}

func TestAssign_Modes(t *testing.T) {
	geo := vaStore(t,
		square("23220", 37.5+1*mile, -77.5),
		square("23221", 37.5+2*mile, -77.5),
	)
	ts := territory.NewStore()
	ts.AddLocation(territory.Location{ID: "A", Name: "A"})
	ts.AddLocation(territory.Location{ID: "B", Name: "B"})
	ts.AssignRegion("23221", "B")

	res, err := Assign(context.Background(), geo, direct(ts), Request{Lat: 37.5, Lng: -77.5, RadiusMiles: 10, LocationID: "A", Mode: Fill})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Outcome.Changed, []string{"23220"}) {
		t.Errorf("fill changed %v", res.Outcome.Changed)
	}
	if owner, _ := ts.Owner("23221"); owner != "B" {
		t.Errorf("fill stole 23221: owner=%s", owner)
	}

	res, err = Assign(context.Background(), geo, direct(ts), Request{Lat: 37.5, Lng: -77.5, RadiusMiles: 10, LocationID: "A"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Outcome.Changed, []string{"23221"}) {
		t.Errorf("overwrite changed %v", res.Outcome.Changed)
	}

	if _, err := Assign(context.Background(), geo, direct(ts), Request{Lat: 37.5, Lng: -77.5, RadiusMiles: 10, LocationID: "A", Mode: "paint"}); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
	if _, err := Assign(context.Background(), geo, direct(ts), Request{Lat: 37.5, Lng: -77.5, RadiusMiles: 10, LocationID: "ghost"}); !errors.Is(err, territory.ErrLocationNotFound) {
		t.Errorf("expected ErrLocationNotFound, got %v", err)
	}
	if err := ts.CheckConsistency(); err != nil {
		t.Fatal(err)
	}
}

func TestAssign_GuardOnlyWrapsCommit(t *testing.T) {
	geo := vaStore(t, square("23220", 37.5+1*mile, -77.5))
	ts := territory.NewStore()
	ts.AddLocation(territory.Location{ID: "A", Name: "A"})

	calls := 0
	guard := func(fn func(Assigner) error) error {
		calls++
		if len(geo.LoadedPartitions()) == 0 {
			t.Error("geometry should be loaded before the guard is taken")
		}
		return fn(ts)
	}
	if _, err := Assign(context.Background(), geo, guard, Request{Lat: 37.5, Lng: -77.5, RadiusMiles: 10, LocationID: "A"}); err != nil {
		t.Fatal(err)
	}
	if _, err := Assign(context.Background(), geo, guard, Request{Lat: 37.5, Lng: -77.5, RadiusMiles: 0, LocationID: "A"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	if calls != 1 {
		t.Errorf("guard taken %d times, want 1", calls)
	}
}
