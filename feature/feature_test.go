package feature

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/rushteam/svcrec/core"
)

const eps = 1e-6

func almostEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func TestOneHotEncoder(t *testing.T) {
	enc := NewOneHotEncoder([]string{"c1", "c2", "c1", "c3"})
	if enc.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", enc.Size())
	}
	tests := []struct {
		value string
		want  []float64
	}{
		{"c1", []float64{1, 0, 0}},
		{"c3", []float64{0, 0, 1}},
		{"unknown", []float64{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := enc.Encode(tt.value); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Encode(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestMinMaxScaler(t *testing.T) {
	rows := [][]float64{
		{1, 5, -2},
		{3, 5, 0},
		{2, 5, 2},
	}
	scaler, out := FitTransform(rows)
	want := [][]float64{
		{0, 0, 0},
		{1, 0, 0.5},
		{0.5, 0, 1},
	}
	for i := range want {
		if !almostEqual(out[i], want[i]) {
			t.Errorf("row %d = %v, want %v", i, out[i], want[i])
		}
	}
	if scaler.Dimension() != 3 {
		t.Errorf("Dimension() = %d, want 3", scaler.Dimension())
	}
	// 常数列（max == min）映射为 0
	if got := scaler.NormalizeValue(1, 99); got != 0 {
		t.Errorf("degenerate column = %v, want 0", got)
	}
	// 超出拟合范围不截断
	if got := scaler.NormalizeValue(0, 5); math.Abs(got-2) > eps {
		t.Errorf("NormalizeValue(0, 5) = %v, want 2", got)
	}
}

func TestAnalyze(t *testing.T) {
	got := Analyze("Hair-Cut, a B2 spa")
	want := []string{"hair", "cut", "a", "b2", "spa"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Analyze() = %v, want %v", got, want)
	}
}

func TestFitTFIDF(t *testing.T) {
	model, weights := FitTFIDF([]string{"spa massage", "spa", ""})

	if !reflect.DeepEqual(model.Terms, []string{"massage", "spa"}) {
		t.Fatalf("Terms = %v", model.Terms)
	}
	// idf(massage) = ln(4/2) + 1, idf(spa) = ln(4/3) + 1
	idfM := math.Log(2) + 1
	idfS := math.Log(4.0/3.0) + 1
	if !almostEqual(model.IDF, []float64{idfM, idfS}) {
		t.Errorf("IDF = %v", model.IDF)
	}

	norm := math.Sqrt(idfM*idfM + idfS*idfS)
	tests := []struct {
		name string
		got  []float64
		want []float64
	}{
		{"two terms", weights[0], []float64{idfM / norm, idfS / norm}},
		{"single term", weights[1], []float64{0, 1}},
		{"empty doc", weights[2], []float64{0, 0}},
		{"transform unseen", model.Transform("yoga"), []float64{0, 0}},
		{"transform repeated", model.Transform("spa spa"), []float64{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !almostEqual(tt.got, tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func testCatalog() ([]core.Category, []core.Service) {
	categories := []core.Category{{ID: "c1", Name: "Beauty"}, {ID: "c2", Name: "Health"}}
	services := []core.Service{
		{ID: "s1", CategoryID: "c1", Title: "Massage", Tags: []string{"spa", "massage"}, Location: "Paris", Views: 10, Price: 100},
		{ID: "s2", CategoryID: "c2", Title: "Sauna", Tags: []string{"spa"}, Location: "Lyon", Views: 30, Price: 50},
	}
	return categories, services
}

func TestVectorize(t *testing.T) {
	categories, services := testCatalog()
	f, err := Vectorize(categories, services)
	if err != nil {
		t.Fatalf("Vectorize() error = %v", err)
	}

	if f.Dimension() != 7 {
		t.Fatalf("Dimension() = %d, want 7", f.Dimension())
	}
	if got := f.LocationMap(); !reflect.DeepEqual(got, map[string]int{"Lyon": 0, "Paris": 1}) {
		t.Errorf("LocationMap() = %v", got)
	}
	if got := f.CategoryMap(); !reflect.DeepEqual(got, map[string]int{"c1": 0, "c2": 1}) {
		t.Errorf("CategoryMap() = %v", got)
	}

	// [c1, c2, massage, spa, location, views, price]
	v1, ok := f.Vector("s1")
	if !ok {
		t.Fatal("s1 has no vector")
	}
	if want := []float64{1, 0, 1, 0, 1, 0, 1}; !almostEqual(v1, want) {
		t.Errorf("s1 = %v, want %v", v1, want)
	}
	v2, _ := f.Vector("s2")
	if want := []float64{0, 1, 0, 1, 0, 1, 0}; !almostEqual(v2, want) {
		t.Errorf("s2 = %v, want %v", v2, want)
	}
	for _, vec := range f.Vectors {
		for _, x := range vec {
			if x < 0 || x > 1 {
				t.Fatalf("value %v outside [0, 1]", x)
			}
		}
	}
}

func TestVectorizeEmptyCatalog(t *testing.T) {
	_, err := Vectorize([]core.Category{{ID: "c1"}}, nil)
	if !errors.Is(err, core.ErrEmptyCatalog) {
		t.Fatalf("error = %v, want ErrEmptyCatalog", err)
	}
}

func TestScaleUserVector(t *testing.T) {
	categories, services := testCatalog()
	f, err := Vectorize(categories, services)
	if err != nil {
		t.Fatal(err)
	}
	raw := []float64{0.5, 0.5, 1, 0, -1, 0, 0}
	got := f.ScaleUserVector(raw)
	// massage 列最大值约 0.81，1 被截断到 1；未见过的地点 -1 截断到 0
	want := []float64{0.5, 0.5, 1, 0, 0, 0, 0}
	if !almostEqual(got, want) {
		t.Errorf("ScaleUserVector() = %v, want %v", got, want)
	}
}
