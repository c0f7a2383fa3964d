package profile

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/datastore"
	"github.com/rushteam/svcrec/feature"
)

func newFixture(t *testing.T) (*datastore.Memory, *feature.CatalogFeatures) {
	t.Helper()
	ds := datastore.NewMemory()
	ds.AddCategory(core.Category{ID: "C1", Name: "Beauty"})
	ds.AddCategory(core.Category{ID: "C2", Name: "Fitness"})
	ds.AddService(core.Service{ID: "S1", CategoryID: "C1", Title: "Massage", Tags: []string{"spa", "massage"}, Location: "Paris", Views: 100, Price: 80})
	ds.AddService(core.Service{ID: "S2", CategoryID: "C1", Title: "Sauna", Tags: []string{"spa"}, Location: "Lyon", Views: 50, Price: 30})
	ds.AddService(core.Service{ID: "S3", CategoryID: "C2", Title: "Yoga", Tags: []string{"yoga"}, Location: "Lyon", Views: 70, Price: 20})

	categories, _ := ds.ListCategories(context.Background())
	services, _ := ds.ListServices(context.Background())
	f, err := feature.Vectorize(categories, services)
	if err != nil {
		t.Fatalf("Vectorize() error = %v", err)
	}
	return ds, f
}

func TestBuilderSingleBooking(t *testing.T) {
	ds := datastore.NewMemory()
	ds.AddCategory(core.Category{ID: "C1"})
	ds.AddService(core.Service{ID: "S1", CategoryID: "C1", Tags: []string{"x"}, Views: 100})
	ds.AddService(core.Service{ID: "S2", CategoryID: "C1", Tags: []string{"x", "y"}, Views: 50})
	ds.AddInteraction(core.Interaction{ID: "i1", UserID: "U", ServiceID: "S1", ActionType: core.ActionBook})

	categories, _ := ds.ListCategories(context.Background())
	services, _ := ds.ListServices(context.Background())
	f, err := feature.Vectorize(categories, services)
	if err != nil {
		t.Fatal(err)
	}

	p, err := NewBuilder(ds, f).Build(context.Background(), "U")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if p.GetCategoryWeight("C1") <= 0 {
		t.Errorf("category C1 weight = %v, want > 0", p.GetCategoryWeight("C1"))
	}
	if p.TagWeights["x"] <= 0 {
		t.Errorf("tag x weight = %v, want > 0", p.TagWeights["x"])
	}
	if len(p.Vector) != f.Dimension() {
		t.Fatalf("len(Vector) = %d, want %d", len(p.Vector), f.Dimension())
	}
	if f.Tags.Size() != 2 {
		t.Fatalf("vocabulary size = %d, want 2 (x, y)", f.Tags.Size())
	}
	x := f.TagOffset() + f.Tags.Index("x")
	if p.RawVector[x] <= 0 {
		t.Errorf("RawVector[x] = %v, want > 0", p.RawVector[x])
	}
	if p.Vector[x] <= 0 {
		t.Errorf("Vector[x] = %v, want > 0", p.Vector[x])
	}
}

func TestBuilderWeights(t *testing.T) {
	ds, f := newFixture(t)
	ds.AddInteraction(core.Interaction{UserID: "u1", ServiceID: "S1", ActionType: core.ActionBook})
	ds.AddInteraction(core.Interaction{UserID: "u1", ServiceID: "S3", ActionType: core.ActionView})
	ds.AddInteraction(core.Interaction{UserID: "u1", ServiceID: "missing", ActionType: core.ActionBook})

	p, err := NewBuilder(ds, f).Build(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if p.Interactions != 2 {
		t.Errorf("Interactions = %d, want 2 (missing service skipped)", p.Interactions)
	}
	if math.Abs(p.TotalWeight-1.4) > 1e-9 {
		t.Errorf("TotalWeight = %v, want 1.4", p.TotalWeight)
	}
	if got := p.GetCategoryWeight("C1"); math.Abs(got-1/1.4) > 1e-9 {
		t.Errorf("C1 weight = %v, want %v", got, 1/1.4)
	}
	if p.PreferredLocation != "Paris" {
		t.Errorf("PreferredLocation = %q, want Paris", p.PreferredLocation)
	}
	if p.LocationIndex != f.Locations.Index("Paris") {
		t.Errorf("LocationIndex = %d, want %d", p.LocationIndex, f.Locations.Index("Paris"))
	}

	// 原始向量：类目块按总权重归一
	if got := p.RawVector[f.Categories.Index("C2")]; math.Abs(got-0.4/1.4) > 1e-9 {
		t.Errorf("raw C2 = %v, want %v", got, 0.4/1.4)
	}
	spa := f.TagOffset() + f.Tags.Index("spa")
	if p.RawVector[spa] <= 0 {
		t.Errorf("raw spa weight = %v, want > 0", p.RawVector[spa])
	}
	for i, v := range p.Vector {
		if v < 0 || v > 1 {
			t.Errorf("Vector[%d] = %v outside [0, 1]", i, v)
		}
	}
	// 浏览量、价格槽位保持为 0
	n := f.NumericOffset()
	if p.Vector[n+1] != 0 || p.Vector[n+2] != 0 {
		t.Errorf("views/price slots = %v, %v, want 0", p.Vector[n+1], p.Vector[n+2])
	}
}

func TestBuilderNoProfile(t *testing.T) {
	ds, f := newFixture(t)
	ds.AddInteraction(core.Interaction{UserID: "ghost", ServiceID: "missing", ActionType: core.ActionBook})

	tests := []struct {
		name   string
		userID string
	}{
		{"no interactions", "nobody"},
		{"only unresolvable services", "ghost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(ds, f).Build(context.Background(), tt.userID)
			if !errors.Is(err, core.ErrNoProfile) {
				t.Fatalf("error = %v, want ErrNoProfile", err)
			}
		})
	}
}

func TestBuilderNotTrained(t *testing.T) {
	_, err := NewBuilder(datastore.NewMemory(), nil).Build(context.Background(), "u1")
	if !errors.Is(err, core.ErrNotTrained) {
		t.Fatalf("error = %v, want ErrNotTrained", err)
	}
}

func TestTopWeights(t *testing.T) {
	got := topWeights(map[string]float64{"b": 1, "a": 1, "c": 2, "d": 0.5}, 3)
	want := []string{"c", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].key != want[i] {
			t.Errorf("[%d] = %s, want %s", i, got[i].key, want[i])
		}
	}
}

func TestCache(t *testing.T) {
	ds, f := newFixture(t)
	ds.AddInteraction(core.Interaction{UserID: "u1", ServiceID: "S1", ActionType: core.ActionBook})
	cache := NewCache(NewBuilder(ds, f))
	ctx := context.Background()

	p1, err := cache.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	ds.AddInteraction(core.Interaction{UserID: "u1", ServiceID: "S3", ActionType: core.ActionBook})

	p2, _ := cache.Get(ctx, "u1")
	if p1 != p2 {
		t.Error("Get() rebuilt a cached profile")
	}
	if _, err := cache.Get(ctx, "nobody"); !errors.Is(err, core.ErrNoProfile) {
		t.Errorf("Get(nobody) error = %v, want ErrNoProfile", err)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}

	p3, err := cache.Rebuild(ctx, "u1")
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if p3.Interactions != 2 {
		t.Errorf("rebuilt Interactions = %d, want 2", p3.Interactions)
	}
}
