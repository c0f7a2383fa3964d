package builders

import (
	"context"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/svcrec/config"
	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/datastore"
	"github.com/rushteam/svcrec/filter"
	"github.com/rushteam/svcrec/pipeline"
	"github.com/rushteam/svcrec/recall"
	"github.com/rushteam/svcrec/store"
)

func testDeps(t *testing.T) *pipeline.Dependencies {
	t.Helper()
	ctx := context.Background()
	ds := datastore.NewMemory()
	ds.AddService(core.Service{ID: "s1", CategoryID: "c1", Location: "NY", Price: 50, Views: 10})
	ds.AddService(core.Service{ID: "s2", CategoryID: "c1", Location: "LA", Price: 300, Views: 40})
	ds.AddService(core.Service{ID: "s3", CategoryID: "c2", Location: "NY", Price: 90, Views: 20})

	idx, err := store.NewNeighborIndex(ctx, []string{"s1", "s2", "s3", "gone"}, [][]float64{{1, 0}, {0, 1}, {1, 1}, {1, 0.1}})
	if err != nil {
		t.Fatal(err)
	}
	kv := store.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })
	return &pipeline.Dependencies{Index: idx, Collection: store.DefaultCollection, Store: kv, Catalog: ds}
}

func TestSupportedTypes(t *testing.T) {
	want := map[string]bool{"recall.profile": true, "recall.hot": true, "feature.enrich": true, "filter": true, "rerank.topn": true, "rerank.diversity": true}
	for _, typ := range config.SupportedTypes() {
		delete(want, typ)
	}
	if len(want) != 0 {
		t.Errorf("not registered: %v", want)
	}
}

func TestDefaultPipeline(t *testing.T) {
	deps := testDeps(t)
	p, err := config.DefaultPipelineConfig().BuildPipeline(config.DefaultFactory(), deps)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Nodes) != 3 {
		t.Fatalf("len(Nodes) = %d, want 3", len(p.Nodes))
	}
	if _, ok := p.Nodes[0].(*recall.Fallback); !ok {
		t.Errorf("first node = %T, want *recall.Fallback", p.Nodes[0])
	}

	ctx := context.Background()
	tests := []struct {
		name string
		rctx *core.RecommendContext
		want []string
	}{
		{
			// "gone" 不在目录中，被跳过
			name: "profile",
			rctx: &core.RecommendContext{UserID: "u1", Limit: 2, User: &core.UserProfile{Vector: []float64{1, 0}}},
			want: []string{"s1"},
		},
		{
			name: "popularity fallback",
			rctx: &core.RecommendContext{UserID: "u2", Limit: 2},
			want: []string{"s2", "s3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := p.Run(ctx, tt.rctx, nil)
			if err != nil {
				t.Fatal(err)
			}
			if len(items) != len(tt.want) {
				t.Fatalf("got %d items, want %v", len(items), tt.want)
			}
			for i, it := range items {
				if it.ID != tt.want[i] {
					t.Errorf("[%d] = %s, want %s", i, it.ID, tt.want[i])
				}
				if it.Meta["service"] == nil {
					t.Errorf("[%d] not enriched", i)
				}
			}
		})
	}
}

func TestFilterPipelineFromYAML(t *testing.T) {
	data := `
pipeline:
  name: filtered
  nodes:
    - type: recall.hot
      config:
        limit: 10
    - type: feature.enrich
    - type: filter
      config:
        filters:
          - type: blacklist
            item_ids: ["s3"]
          - type: expr
            expr: "item.meta.price <= rctx.params.max_price"
            keep: true
    - type: rerank.topn
      config:
        n: 5
`
	var cfg pipeline.Config
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatal(err)
	}
	if err := config.ValidatePipelineConfig(&cfg); err != nil {
		t.Fatal(err)
	}
	p, err := cfg.BuildPipeline(config.DefaultFactory(), testDeps(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Nodes[2].(*filter.FilterNode); !ok {
		t.Fatalf("node 2 = %T", p.Nodes[2])
	}

	rctx := &core.RecommendContext{Params: map[string]any{"max_price": 100.0}}
	items, err := p.Run(context.Background(), rctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != "s1" {
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ID)
		}
		t.Errorf("items = %v, want [s1]", ids)
	}
}

func TestBuilderErrors(t *testing.T) {
	tests := []struct {
		name string
		typ  string
		cfg  map[string]interface{}
		deps *pipeline.Dependencies
	}{
		{"bad metric", "recall.profile", map[string]interface{}{"metric": "manhattan"}, &pipeline.Dependencies{}},
		{"euclidean metric", "recall.profile", map[string]interface{}{"metric": "euclidean"}, &pipeline.Dependencies{}},
		{"inner product metric", "recall.profile", map[string]interface{}{"metric": "inner_product"}, &pipeline.Dependencies{}},
		{"enrich without catalog", "feature.enrich", nil, &pipeline.Dependencies{}},
		{"filter without filters", "filter", map[string]interface{}{}, &pipeline.Dependencies{}},
		{"unknown filter", "filter", map[string]interface{}{"filters": []interface{}{map[string]interface{}{"type": "exposed"}}}, &pipeline.Dependencies{}},
		{"empty expr", "filter", map[string]interface{}{"filters": []interface{}{map[string]interface{}{"type": "expr"}}}, &pipeline.Dependencies{}},
		{"unknown node", "rank.lr", nil, nil},
	}
	factory := config.DefaultFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := factory.Build(tt.typ, tt.cfg, tt.deps); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestProfileNodeWithoutFallback(t *testing.T) {
	node, err := BuildProfileNode(map[string]interface{}{"fallback": false, "top_k": 3}, testDeps(t))
	if err != nil {
		t.Fatal(err)
	}
	ann, ok := node.(*recall.ANN)
	if !ok {
		t.Fatalf("node = %T, want *recall.ANN", node)
	}
	if ann.TopK != 3 {
		t.Errorf("TopK = %d, want 3", ann.TopK)
	}
}
