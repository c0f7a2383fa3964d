package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rushteam/svcrec/core"
)

func TestMemoryStoreGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, core.ErrStoreNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrStoreNotFound", err)
	}
	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Fatalf("Get(deleted) error = %v, want not found", err)
	}
}

func TestMemoryStoreZRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	for member, score := range map[string]float64{"a": 10, "b": 30, "c": 20, "d": 20} {
		if err := s.ZAdd(ctx, "hot", score, member); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name        string
		start, stop int64
		want        []string
	}{
		{"all", 0, -1, []string{"b", "d", "c", "a"}},
		{"top two", 0, 1, []string{"b", "d"}},
		{"stop beyond size", 2, 100, []string{"c", "a"}},
		{"start after stop", 3, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ZRange(ctx, "hot", tt.start, tt.stop)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ZRange() = %v, want %v", got, tt.want)
			}
		})
	}

	if err := s.Delete(ctx, "hot"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.ZRange(ctx, "hot", 0, -1); len(got) != 0 {
		t.Errorf("ZRange after Delete = %v, want empty", got)
	}
}

func TestMemoryStoreZReplace(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_ = s.ZAdd(ctx, "hot", 99, "stale")
	err := s.ZReplace(ctx, "hot", []core.ScoredMember{{Member: "a", Score: 1}, {Member: "b", Score: 3}})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := s.ZRange(ctx, "hot", 0, -1); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("ZRange() = %v, want [b a]", got)
	}

	if err := s.ZReplace(ctx, "hot", nil); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.ZRange(ctx, "hot", 0, -1); len(got) != 0 {
		t.Errorf("ZRange after empty replace = %v, want empty", got)
	}
}

func TestNeighborIndexEmpty(t *testing.T) {
	_, err := NewNeighborIndex(context.Background(), nil, nil)
	if !errors.Is(err, core.ErrEmptyIndex) {
		t.Fatalf("error = %v, want ErrEmptyIndex", err)
	}
}

func TestNeighborIndexSearch(t *testing.T) {
	ctx := context.Background()
	ids := []string{"s1", "s2", "s3", "s4"}
	vectors := [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{1, 1, 0},
		{1, 0, 0}, // 与 s1 相同，距离相同时保持插入顺序
	}
	idx, err := NewNeighborIndex(ctx, ids, vectors)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Size(DefaultCollection) != 4 {
		t.Fatalf("Size() = %d, want 4", idx.Size(DefaultCollection))
	}

	req := &core.VectorSearchRequest{Collection: DefaultCollection, Vector: []float64{1, 0, 0}, TopK: 3}
	first, err := idx.Search(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	gotIDs := make([]string, 0, len(first.Items))
	for _, it := range first.Items {
		gotIDs = append(gotIDs, it.ID)
	}
	if want := []string{"s1", "s4", "s3"}; !reflect.DeepEqual(gotIDs, want) {
		t.Errorf("ids = %v, want %v", gotIDs, want)
	}
	if first.Items[0].Distance > 1e-9 {
		t.Errorf("distance to identical vector = %v, want 0", first.Items[0].Distance)
	}

	// 同一查询两次结果一致
	second, err := idx.Search(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Items, second.Items) {
		t.Errorf("repeated search differs: %v vs %v", first.Items, second.Items)
	}
}

func TestNeighborIndexZeroQuery(t *testing.T) {
	ctx := context.Background()
	idx, err := NewNeighborIndex(ctx, []string{"s1", "s2"}, [][]float64{{1, 0}, {0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	res, err := idx.Search(ctx, &core.VectorSearchRequest{Collection: DefaultCollection, Vector: []float64{0, 0}, TopK: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 2 || res.Items[0].ID != "s1" || res.Items[0].Distance != 1 {
		t.Errorf("zero query = %+v, want both items at distance 1 in insertion order", res.Items)
	}
}

func TestNeighborIndexDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx, err := NewNeighborIndex(ctx, []string{"s1"}, [][]float64{{1, 0}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = idx.Search(ctx, &core.VectorSearchRequest{Collection: DefaultCollection, Vector: []float64{1}})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
