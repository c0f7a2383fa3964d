package recommender

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/datastore"
	"github.com/rushteam/svcrec/store"
)

// flakyStore 在 fail 为 true 时让目录读取失败。
type flakyStore struct {
	*datastore.Memory
	fail bool
}

func (s *flakyStore) ListServices(ctx context.Context) ([]core.Service, error) {
	if s.fail {
		return nil, errors.New("connection reset")
	}
	return s.Memory.ListServices(ctx)
}

// brokenCache 在 fail 为 true 时让热门集合的写入失败。
type brokenCache struct {
	*store.MemoryStore
	fail bool
}

func (c *brokenCache) ZReplace(ctx context.Context, key string, members []core.ScoredMember) error {
	if c.fail {
		return errors.New("connection reset")
	}
	return c.MemoryStore.ZReplace(ctx, key, members)
}

func marketplace() *datastore.Memory {
	ds := datastore.NewMemory()
	ds.AddCategory(core.Category{ID: "home", Name: "Home"})
	ds.AddCategory(core.Category{ID: "beauty", Name: "Beauty"})
	ds.AddService(core.Service{ID: "plumb", CategoryID: "home", Title: "Plumbing", Tags: []string{"plumbing", "repair"}, Location: "NY", Views: 120, Price: 90})
	ds.AddService(core.Service{ID: "elec", CategoryID: "home", Title: "Electrician", Tags: []string{"electric", "repair"}, Location: "NY", Views: 80, Price: 110})
	ds.AddService(core.Service{ID: "clean", CategoryID: "home", Title: "Cleaning", Tags: []string{"cleaning"}, Location: "LA", Views: 300, Price: 60})
	ds.AddService(core.Service{ID: "hair", CategoryID: "beauty", Title: "Haircut", Tags: []string{"hair", "salon"}, Location: "LA", Views: 200, Price: 40})
	ds.AddService(core.Service{ID: "nails", CategoryID: "beauty", Title: "Manicure", Tags: []string{"nails", "salon"}, Location: "NY", Views: 50, Price: 30})

	ds.AddInteraction(core.Interaction{UserID: "u1", ServiceID: "plumb", ActionType: core.ActionBook})
	ds.AddInteraction(core.Interaction{UserID: "u1", ServiceID: "elec", ActionType: core.ActionView})
	ds.AddInteraction(core.Interaction{UserID: "u2", ServiceID: "hair", ActionType: core.ActionReview})
	ds.AddInteraction(core.Interaction{UserID: "u3", ServiceID: "deleted", ActionType: core.ActionBook})
	ds.AddUser("u4")
	return ds
}

func newEngine(t *testing.T, ds core.DataStore) *Engine {
	t.Helper()
	kv := store.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })
	e, err := New(Options{Store: ds, Cache: kv})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without data store")
	}
}

func TestRecommendBeforeTrain(t *testing.T) {
	e := newEngine(t, marketplace())
	ctx := context.Background()
	if _, err := e.RecommendForUser(ctx, "u1", 3); !errors.Is(err, core.ErrNotTrained) {
		t.Fatalf("error = %v, want ErrNotTrained", err)
	}
	if _, err := e.BuildUserProfile(ctx, "u1"); !errors.Is(err, core.ErrNotTrained) {
		t.Fatalf("BuildUserProfile error = %v, want ErrNotTrained", err)
	}
	if err := e.FitNeighborIndex(ctx, 5); !errors.Is(err, core.ErrNotTrained) {
		t.Fatalf("FitNeighborIndex error = %v, want ErrNotTrained", err)
	}
	if got := e.RelatedItems("plumbing"); len(got) != 0 {
		t.Errorf("RelatedItems() = %v, want empty", got)
	}
}

func TestEndToEndSingleBooking(t *testing.T) {
	ds := datastore.NewMemory()
	ds.AddCategory(core.Category{ID: "C1"})
	ds.AddService(core.Service{ID: "S1", CategoryID: "C1", Tags: []string{"x"}, Views: 100})
	ds.AddService(core.Service{ID: "S2", CategoryID: "C1", Tags: []string{"x", "y"}, Views: 50})
	ds.AddInteraction(core.Interaction{UserID: "U", ServiceID: "S1", ActionType: core.ActionBook})

	e := newEngine(t, ds)
	ctx := context.Background()
	if err := e.Train(ctx, 0); err != nil {
		t.Fatal(err)
	}

	p, err := e.BuildUserProfile(ctx, "U")
	if err != nil {
		t.Fatal(err)
	}
	if p.GetCategoryWeight("C1") <= 0 || p.TagWeights["x"] <= 0 {
		t.Errorf("profile = %+v", p)
	}
	f := e.snap.Load().features
	x := f.TagOffset() + f.Tags.Index("x")
	if f.Tags.Index("x") < 0 || p.RawVector[x] <= 0 || p.Vector[x] <= 0 {
		t.Errorf("tag x not in query vector: raw=%v vector=%v", p.RawVector, p.Vector)
	}

	got, err := e.RecommendForUser(ctx, "U", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "S1" {
		t.Fatalf("got %+v, want [S1]", got)
	}
}

func TestRecommendForUser(t *testing.T) {
	e := newEngine(t, marketplace())
	ctx := context.Background()
	if err := e.Train(ctx, 5); err != nil {
		t.Fatal(err)
	}

	got, err := e.RecommendForUser(ctx, "u1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// u1 偏好 home 类目下的维修服务
	if got[0].CategoryID != "home" {
		t.Errorf("top recommendation = %+v, want a home service", got[0])
	}
	seen := map[string]bool{}
	for _, s := range got {
		if seen[s.ID] {
			t.Errorf("duplicate %s", s.ID)
		}
		seen[s.ID] = true
	}

	// 默认数量取配置值
	got, err = e.RecommendForUser(ctx, "u2", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Errorf("default n: len = %d, want 5", len(got))
	}
}

func TestPopularityFallback(t *testing.T) {
	e := newEngine(t, marketplace())
	ctx := context.Background()
	if err := e.Train(ctx, 5); err != nil {
		t.Fatal(err)
	}

	for _, user := range []string{"u4", "u3", "stranger"} {
		t.Run(user, func(t *testing.T) {
			got, err := e.RecommendForUser(ctx, user, 4)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 4 {
				t.Fatalf("len = %d, want 4", len(got))
			}
			if got[0].ID != "clean" {
				t.Errorf("first = %s, want clean", got[0].ID)
			}
			for i := 1; i < len(got); i++ {
				if got[i].Views > got[i-1].Views {
					t.Errorf("views increase at %d: %v > %v", i, got[i].Views, got[i-1].Views)
				}
			}
		})
	}

	popular, err := e.PopularServices(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(popular) != 2 || popular[0].ID != "clean" || popular[1].ID != "hair" {
		t.Errorf("PopularServices() = %+v", popular)
	}
}

func TestFailedRebuildKeepsSnapshot(t *testing.T) {
	ds := &flakyStore{Memory: marketplace()}
	e := newEngine(t, ds)
	ctx := context.Background()
	if err := e.Train(ctx, 5); err != nil {
		t.Fatal(err)
	}
	before := e.Status()

	ds.fail = true
	if err := e.Train(ctx, 5); err == nil {
		t.Fatal("expected Train error")
	}
	if err := e.RebuildCatalogVectors(ctx); err == nil {
		t.Fatal("expected RebuildCatalogVectors error")
	}
	ds.fail = false

	after := e.Status()
	if after.SnapshotID != before.SnapshotID || !after.Trained {
		t.Errorf("snapshot replaced: before %+v, after %+v", before, after)
	}
	if _, err := e.RecommendForUser(ctx, "u1", 2); err != nil {
		t.Errorf("recommend after failed rebuild: %v", err)
	}
}

func TestFailedPublishKeepsPopularity(t *testing.T) {
	ds := marketplace()
	kv := &brokenCache{MemoryStore: store.NewMemoryStore()}
	t.Cleanup(func() { kv.Close() })
	e, err := New(Options{Store: ds, Cache: kv})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := e.Train(ctx, 5); err != nil {
		t.Fatal(err)
	}
	before := e.Status().SnapshotID

	// 浏览量变化后重建，但热门集合写入失败
	ds.AddService(core.Service{ID: "garden", CategoryID: "home", Title: "Gardening", Tags: []string{"garden"}, Location: "LA", Views: 1000})
	kv.fail = true
	if err := e.RebuildCatalogVectors(ctx); err == nil {
		t.Fatal("expected publish error")
	}
	if err := e.Train(ctx, 5); err == nil {
		t.Fatal("expected publish error from Train")
	}
	if e.Status().SnapshotID != before || !e.Status().Trained {
		t.Fatalf("status = %+v, want previous snapshot %s", e.Status(), before)
	}

	want := []string{"clean", "hair", "plumb"}
	popular, err := e.PopularServices(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.RecommendForUser(ctx, "u4", 3)
	if err != nil {
		t.Fatal(err)
	}
	for name, list := range map[string][]core.Service{"popular": popular, "fallback": got} {
		if len(list) != len(want) {
			t.Fatalf("%s = %+v, want %v", name, list, want)
		}
		for i := range want {
			if list[i].ID != want[i] {
				t.Errorf("%s[%d] = %s, want %s", name, i, list[i].ID, want[i])
			}
		}
	}

	kv.fail = false
	if err := e.Train(ctx, 5); err != nil {
		t.Fatal(err)
	}
	popular, _ = e.PopularServices(ctx, 1)
	if len(popular) != 1 || popular[0].ID != "garden" {
		t.Errorf("after recovery popular = %+v, want [garden]", popular)
	}
}

func TestCustomHotKey(t *testing.T) {
	kv := store.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })
	e, err := New(Options{Store: marketplace(), Cache: kv, HotKey: "hot:marketplace"})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := e.Train(ctx, 5); err != nil {
		t.Fatal(err)
	}

	members, _ := kv.ZRange(ctx, "hot:marketplace", 0, 1)
	if len(members) != 2 || members[0] != "clean" || members[1] != "hair" {
		t.Errorf("hot:marketplace = %v, want [clean hair]", members)
	}
	if def, _ := kv.ZRange(ctx, "hot:services", 0, -1); len(def) != 0 {
		t.Errorf("default key written: %v", def)
	}

	// 只有自定义 key 中的成员会被兜底返回
	_ = kv.ZReplace(ctx, "hot:marketplace", []core.ScoredMember{{Member: "nails", Score: 1}})
	got, err := e.RecommendForUser(ctx, "u4", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "nails" {
		t.Errorf("fallback = %+v, want [nails]", got)
	}
}

func TestEmptyCatalog(t *testing.T) {
	e := newEngine(t, datastore.NewMemory())
	err := e.Train(context.Background(), 5)
	if !errors.Is(err, core.ErrEmptyCatalog) {
		t.Fatalf("error = %v, want ErrEmptyCatalog", err)
	}
	if e.Status().Trained {
		t.Error("engine trained on empty catalog")
	}
}

func TestRebuildThenFit(t *testing.T) {
	e := newEngine(t, marketplace())
	ctx := context.Background()
	if err := e.Train(ctx, 5); err != nil {
		t.Fatal(err)
	}
	if err := e.RebuildCatalogVectors(ctx); err != nil {
		t.Fatal(err)
	}
	// 向量重建后旧索引失效
	if _, err := e.RecommendForUser(ctx, "u1", 2); !errors.Is(err, core.ErrNotTrained) {
		t.Fatalf("error = %v, want ErrNotTrained", err)
	}
	if err := e.FitNeighborIndex(ctx, 3); err != nil {
		t.Fatal(err)
	}
	st := e.Status()
	if !st.Trained || st.Neighbors != 3 || st.Services != 5 {
		t.Errorf("Status() = %+v", st)
	}
}

func TestRebuildUserProfile(t *testing.T) {
	ds := marketplace()
	e := newEngine(t, ds)
	ctx := context.Background()
	if err := e.Train(ctx, 5); err != nil {
		t.Fatal(err)
	}
	if _, err := e.BuildUserProfile(ctx, "u4"); !errors.Is(err, core.ErrNoProfile) {
		t.Fatalf("error = %v, want ErrNoProfile", err)
	}

	ds.AddInteraction(core.Interaction{UserID: "u4", ServiceID: "nails", ActionType: core.ActionBook})
	p, err := e.RebuildUserProfile(ctx, "u4")
	if err != nil {
		t.Fatal(err)
	}
	if p.PreferredLocation != "NY" {
		t.Errorf("PreferredLocation = %q, want NY", p.PreferredLocation)
	}
}

func TestAssociationRules(t *testing.T) {
	ds := datastore.NewMemory()
	ds.AddService(core.Service{ID: "a", Title: "A"})
	ds.AddService(core.Service{ID: "b", Title: "B"})
	ds.AddService(core.Service{ID: "c", Title: "C"})
	for _, line := range []core.OrderLine{
		{OrderID: "o1", ServiceID: "a"}, {OrderID: "o1", ServiceID: "b"},
		{OrderID: "o2", ServiceID: "a"}, {OrderID: "o2", ServiceID: "b"},
		{OrderID: "o3", ServiceID: "a"}, {OrderID: "o3", ServiceID: "c"},
	} {
		ds.AddOrderLine(line)
	}

	kv := store.NewMemoryStore()
	defer kv.Close()
	e, err := New(Options{Store: ds, Cache: kv})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	stats, err := e.MineAssociationRules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Baskets != 3 {
		t.Errorf("Baskets = %d, want 3", stats.Baskets)
	}
	if !contains(e.RelatedItems("a"), "b") || !contains(e.RelatedItems("B "), "a") {
		t.Errorf("related a = %v, b = %v", e.RelatedItems("a"), e.RelatedItems("b"))
	}

	// 新引擎从缓存加载持久化的规则表
	other, err := New(Options{Store: ds, Cache: kv})
	if err != nil {
		t.Fatal(err)
	}
	if err := other.LoadAssociationRules(ctx); err != nil {
		t.Fatal(err)
	}
	if !contains(other.RelatedItems("a"), "b") {
		t.Errorf("loaded related a = %v", other.RelatedItems("a"))
	}

	empty := newEngine(t, ds)
	if err := empty.LoadAssociationRules(ctx); !errors.Is(err, core.ErrStoreNotFound) {
		t.Errorf("LoadAssociationRules() error = %v, want ErrStoreNotFound", err)
	}
}

func TestEvaluate(t *testing.T) {
	e := newEngine(t, marketplace())
	ctx := context.Background()
	if err := e.Train(ctx, 5); err != nil {
		t.Fatal(err)
	}

	score, err := e.EvaluateSample(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if score < 0 || score > 1 {
		t.Errorf("score = %v outside [0, 1]", score)
	}

	report, err := e.EvaluateReport(ctx, []string{"u1", "u2", "u4"}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != "u4" {
		t.Errorf("Skipped = %v, want [u4]", report.Skipped)
	}
	if _, err := e.Evaluate(ctx, []string{"u1"}, 0); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("k=0 error = %v, want ErrInvalidInput", err)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
