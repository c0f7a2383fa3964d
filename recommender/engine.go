// Package recommender 组装向量化、近邻索引、用户画像、关联规则与评估，对外提供推荐操作。
//
// 派生状态（服务向量、近邻索引、画像缓存、规则表、Pipeline）保存在一个快照中。
// 重建总是先构建新快照，成功后原子替换；失败时保留旧快照，读请求不会看到中间状态。
package recommender

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/svcrec/association"
	"github.com/rushteam/svcrec/config"
	_ "github.com/rushteam/svcrec/config/builders"
	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/evaluate"
	"github.com/rushteam/svcrec/feature"
	"github.com/rushteam/svcrec/pipeline"
	"github.com/rushteam/svcrec/pkg/logging"
	"github.com/rushteam/svcrec/pkg/metrics"
	"github.com/rushteam/svcrec/profile"
	"github.com/rushteam/svcrec/recall"
	"github.com/rushteam/svcrec/store"
)

// Options 引擎依赖。
type Options struct {
	// Store 只读数据网关（必填）
	Store core.DataStore

	// Cache 热门有序集合与规则表持久化；为空时使用 store.NewMemoryStore()
	Cache core.KeyValueStore

	// Config 默认参数；为空时使用 core.DefaultRecommendConfig
	Config core.RecommendConfig

	// Pipeline 推荐链路配置；为空时使用 config.DefaultPipelineConfig()
	Pipeline *pipeline.Config

	// Factory Node 工厂；为空时使用 config.DefaultFactory()
	Factory *pipeline.NodeFactory

	// RulesKey 规则表在 Cache 中的 key，默认 association.DefaultTableKey
	RulesKey string

	// HotKey 热门有序集合在 Cache 中的 key，默认 recall.DefaultHotKey
	HotKey string

	// Logger 为空时使用 logging.Component("engine")
	Logger *zerolog.Logger
}

type snapshot struct {
	id        uuid.UUID
	builtAt   time.Time
	features  *feature.CatalogFeatures
	index     *store.MemoryVectorService
	neighbors int
	profiles  *profile.Cache
	pipeline  *pipeline.Pipeline
	rules     *association.RuleTable
}

// Engine 是推荐核心。所有读操作并发安全；重建操作之间互斥。
type Engine struct {
	store    core.DataStore
	cache    core.KeyValueStore
	cfg      core.RecommendConfig
	pipeCfg  *pipeline.Config
	factory  *pipeline.NodeFactory
	rulesKey string
	hotKey   string
	log      zerolog.Logger

	mu   sync.Mutex // 串行化重建
	snap atomic.Pointer[snapshot]
}

// New 创建引擎。此时还没有可用快照，需要先 Train（或 RebuildCatalogVectors + FitNeighborIndex）。
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("recommender: data store is required")
	}
	e := &Engine{
		store:    opts.Store,
		cache:    opts.Cache,
		cfg:      opts.Config,
		pipeCfg:  opts.Pipeline,
		factory:  opts.Factory,
		rulesKey: opts.RulesKey,
		hotKey:   opts.HotKey,
	}
	if e.cache == nil {
		e.cache = store.NewMemoryStore()
	}
	if e.cfg == nil {
		e.cfg = &core.DefaultRecommendConfig{}
	}
	if e.pipeCfg == nil {
		e.pipeCfg = config.DefaultPipelineConfig()
	}
	if e.factory == nil {
		e.factory = config.DefaultFactory()
	}
	if e.rulesKey == "" {
		e.rulesKey = association.DefaultTableKey
	}
	if e.hotKey == "" {
		e.hotKey = recall.DefaultHotKey
	}
	if opts.Logger != nil {
		e.log = *opts.Logger
	} else {
		e.log = logging.Component("engine")
	}
	e.snap.Store(&snapshot{})
	return e, nil
}

// RebuildCatalogVectors 重新向量化整个目录，并刷新热门有序集合。
// 旧的近邻索引与画像缓存随之失效，需要再次 FitNeighborIndex。
func (e *Engine) RebuildCatalogVectors(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := *e.snap.Load()
	services, err := e.vectorize(ctx, &next)
	if err != nil {
		return err
	}
	next.index, next.pipeline, next.neighbors = nil, nil, 0
	if err := e.publishHot(ctx, services); err != nil {
		return err
	}
	e.swap(&next)
	return nil
}

// FitNeighborIndex 在当前服务向量上构建近邻索引；k 为默认近邻数（<= 0 使用配置值）。
func (e *Engine) FitNeighborIndex(ctx context.Context, k int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := *e.snap.Load()
	if next.features == nil {
		return core.ErrNotTrained
	}
	if err := e.fit(ctx, &next, k); err != nil {
		return err
	}
	e.swap(&next)
	return nil
}

// Train 向量化并构建索引，整体一次替换。
func (e *Engine) Train(ctx context.Context, k int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := *e.snap.Load()
	services, err := e.vectorize(ctx, &next)
	if err != nil {
		return err
	}
	if err := e.fit(ctx, &next, k); err != nil {
		return err
	}
	if err := e.publishHot(ctx, services); err != nil {
		return err
	}
	e.swap(&next)
	return nil
}

// vectorize 只构建 next，不触碰任何共享状态；返回目录供发布热门集合。
func (e *Engine) vectorize(ctx context.Context, next *snapshot) ([]core.Service, error) {
	start := time.Now()
	categories, err := e.store.ListCategories(ctx)
	if err != nil {
		metrics.RebuildErrors.WithLabelValues("vectorize").Inc()
		return nil, fmt.Errorf("list categories: %w", err)
	}
	services, err := e.store.ListServices(ctx)
	if err != nil {
		metrics.RebuildErrors.WithLabelValues("vectorize").Inc()
		return nil, fmt.Errorf("list services: %w", err)
	}
	features, err := feature.Vectorize(categories, services)
	if err != nil {
		metrics.RebuildErrors.WithLabelValues("vectorize").Inc()
		e.log.Warn().Err(err).Msg("vectorize failed, keeping previous snapshot")
		return nil, err
	}

	builder := profile.NewBuilder(e.store, features)
	builder.TopTags = e.cfg.DefaultTopTags()
	next.features = features
	next.profiles = profile.NewCache(builder)
	metrics.ObserveStage("vectorize", start)
	e.log.Info().
		Int("services", features.Len()).
		Int("categories", features.Categories.Size()).
		Int("vocabulary", features.Tags.Size()).
		Int("locations", features.Locations.Size()).
		Dur("cost", time.Since(start)).
		Msg("catalog vectorized")
	return services, nil
}

// publishHot 在快照替换前整体替换热门有序集合；失败时不替换快照，旧集合保持不变。
func (e *Engine) publishHot(ctx context.Context, services []core.Service) error {
	if err := recall.PublishHot(ctx, e.cache, e.hotKey, services); err != nil {
		metrics.RebuildErrors.WithLabelValues("hot").Inc()
		e.log.Warn().Err(err).Str("key", e.hotKey).Msg("publish popular services failed, keeping previous snapshot")
		return fmt.Errorf("publish popular services: %w", err)
	}
	return nil
}

func (e *Engine) fit(ctx context.Context, next *snapshot, k int) error {
	start := time.Now()
	if k <= 0 {
		k = e.cfg.DefaultNeighbors()
	}
	index, err := store.NewNeighborIndex(ctx, next.features.ServiceIDs, next.features.Vectors)
	if err != nil {
		metrics.RebuildErrors.WithLabelValues("index").Inc()
		return err
	}
	p, err := e.pipeCfg.BuildPipeline(e.factory, &pipeline.Dependencies{
		Index:      index,
		Collection: store.DefaultCollection,
		Store:      e.cache,
		HotKey:     e.hotKey,
		Catalog:    e.store,
	})
	if err != nil {
		metrics.RebuildErrors.WithLabelValues("index").Inc()
		return fmt.Errorf("build pipeline: %w", err)
	}
	p.Observer = observeNode

	next.index = index
	next.neighbors = k
	next.pipeline = p
	metrics.ObserveStage("index", start)
	e.log.Info().Int("vectors", index.Size(store.DefaultCollection)).Int("k", k).Msg("neighbor index fitted")
	return nil
}

func (e *Engine) swap(next *snapshot) {
	next.id = uuid.New()
	next.builtAt = time.Now()
	e.snap.Store(next)
	if next.features != nil {
		metrics.CatalogServices.Set(float64(next.features.Len()))
	}
	metrics.AssociationRules.Set(float64(next.rules.Len()))
	e.log.Debug().Str("snapshot", next.id.String()).Msg("snapshot swapped")
}

func observeNode(node pipeline.Node, _, _ int, cost time.Duration, _ error) {
	metrics.NodeDuration.WithLabelValues(node.Name(), string(node.Kind())).Observe(cost.Seconds())
}

// RecommendForUser 为用户推荐 n 个服务（<= 0 使用配置值）。
// 没有画像的用户走热门兜底；解析不到的服务被跳过，因此结果可能少于 n。
func (e *Engine) RecommendForUser(ctx context.Context, userID string, n int) ([]core.Service, error) {
	items, err := e.recommend(ctx, userID, n)
	if err != nil {
		metrics.Recommendations.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.Recommendations.WithLabelValues("ok").Inc()

	out := make([]core.Service, 0, len(items))
	for _, it := range items {
		svc, ok := feature.ServiceOf(it)
		if !ok {
			svc, err = e.store.FindService(ctx, it.ID)
			if err != nil {
				return nil, fmt.Errorf("find service %s: %w", it.ID, err)
			}
			if svc == nil {
				continue
			}
		}
		out = append(out, *svc)
	}
	return out, nil
}

// RecommendIDs 返回推荐的服务 ID，供离线评估使用。
func (e *Engine) RecommendIDs(ctx context.Context, userID string, k int) ([]string, error) {
	svcs, err := e.RecommendForUser(ctx, userID, k)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(svcs))
	for i := range svcs {
		ids = append(ids, svcs[i].ID)
	}
	return ids, nil
}

func (e *Engine) recommend(ctx context.Context, userID string, n int) ([]*core.Item, error) {
	snap := e.snap.Load()
	if snap.pipeline == nil {
		return nil, core.ErrNotTrained
	}
	if n <= 0 {
		n = e.cfg.DefaultRecommendations()
	}

	rctx := &core.RecommendContext{UserID: userID, Scene: "recommend", Limit: n}
	p, err := snap.profiles.Get(ctx, userID)
	switch {
	case err == nil:
		rctx.User = p
	case errors.Is(err, core.ErrNoProfile):
		e.log.Debug().Str("user", userID).Msg("no profile")
	default:
		return nil, fmt.Errorf("build profile for %s: %w", userID, err)
	}
	items, err := snap.pipeline.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}
	if lbl, ok := rctx.GetLabel("fallback"); ok {
		e.log.Debug().Str("user", userID).Str("reason", lbl.Value).Msg("popularity fallback")
	}
	return items, nil
}

// BuildUserProfile 返回缓存的画像，不存在时构建。没有可用交互返回 core.ErrNoProfile。
func (e *Engine) BuildUserProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	snap := e.snap.Load()
	if snap.profiles == nil {
		return nil, core.ErrNotTrained
	}
	return snap.profiles.Get(ctx, userID)
}

// RebuildUserProfile 丢弃缓存并重新构建画像（用户产生新交互后调用）。
func (e *Engine) RebuildUserProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	snap := e.snap.Load()
	if snap.profiles == nil {
		return nil, core.ErrNotTrained
	}
	return snap.profiles.Rebuild(ctx, userID)
}

// PopularServices 按浏览量降序返回 n 个服务，不依赖快照。
func (e *Engine) PopularServices(ctx context.Context, n int) ([]core.Service, error) {
	if n <= 0 {
		n = e.cfg.DefaultRecommendations()
	}
	hot := &recall.Hot{Store: e.cache, Key: e.hotKey, Catalog: e.store, Limit: n}
	items, err := hot.Recall(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]core.Service, 0, len(items))
	for _, it := range items {
		svc, err := e.store.FindService(ctx, it.ID)
		if err != nil {
			return nil, fmt.Errorf("find service %s: %w", it.ID, err)
		}
		if svc != nil {
			out = append(out, *svc)
		}
	}
	return out, nil
}

// Evaluate 计算给定用户的平均 Precision@k。
func (e *Engine) Evaluate(ctx context.Context, userIDs []string, k int) (float64, error) {
	report, err := e.EvaluateReport(ctx, userIDs, k)
	if err != nil {
		return 0, err
	}
	return report.Precision, nil
}

// EvaluateReport 与 Evaluate 相同，另外返回逐用户明细。
func (e *Engine) EvaluateReport(ctx context.Context, userIDs []string, k int) (*evaluate.Report, error) {
	report, err := evaluate.New(e.store, e).Run(ctx, userIDs, k)
	if err != nil {
		return nil, err
	}
	metrics.EvalPrecision.Set(report.Precision)
	e.log.Info().
		Int("k", k).
		Int("users", len(report.Users)).
		Int("skipped", len(report.Skipped)).
		Float64("precision", report.Precision).
		Msg("evaluation finished")
	return report, nil
}

// EvaluateSample 取数据源中前 limit 个用户做评估（limit、k <= 0 使用配置值）。
func (e *Engine) EvaluateSample(ctx context.Context, limit, k int) (float64, error) {
	if limit <= 0 {
		limit = e.cfg.DefaultEvalUsers()
	}
	if k <= 0 {
		k = e.cfg.DefaultEvalK()
	}
	users, err := e.store.ListUsers(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	return e.Evaluate(ctx, users, k)
}

// MineAssociationRules 从订单挖掘关联规则，持久化到 Cache 并替换当前规则表。
func (e *Engine) MineAssociationRules(ctx context.Context) (association.MineStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	miner := association.NewMiner(e.store)
	miner.MinSupport = e.cfg.DefaultMinSupport()
	miner.MinConfidence = e.cfg.DefaultMinConfidence()
	table, stats, err := miner.Mine(ctx)
	if err != nil {
		metrics.RebuildErrors.WithLabelValues("rules").Inc()
		return stats, err
	}
	if err := table.Save(ctx, e.cache, e.rulesKey); err != nil {
		e.log.Warn().Err(err).Str("key", e.rulesKey).Msg("persist rule table failed")
	}

	next := *e.snap.Load()
	next.rules = table
	e.swap(&next)
	metrics.ObserveStage("rules", start)
	e.log.Info().
		Int("lines", stats.Lines).
		Int("skipped", stats.SkippedLines).
		Int("baskets", stats.Baskets).
		Int("itemsets", stats.Itemsets).
		Int("rules", stats.Rules).
		Int("items", table.Len()).
		Msg("association rules mined")
	return stats, nil
}

// LoadAssociationRules 从 Cache 读取之前持久化的规则表。
// 不存在时返回 core.ErrStoreNotFound，当前规则表不变。
func (e *Engine) LoadAssociationRules(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	table, err := association.LoadRuleTable(ctx, e.cache, e.rulesKey)
	if err != nil {
		return err
	}
	next := *e.snap.Load()
	next.rules = table
	e.swap(&next)
	e.log.Info().Int("items", table.Len()).Msg("association rules loaded")
	return nil
}

// RelatedItems 返回与物品名相关的物品（按置信度降序），未知物品返回空列表。
func (e *Engine) RelatedItems(name string) []string {
	return e.snap.Load().rules.Related(name)
}

// Status 当前快照概况。
type Status struct {
	SnapshotID string    `json:"snapshot_id,omitempty"`
	BuiltAt    time.Time `json:"built_at,omitempty"`
	Services   int       `json:"services"`
	Trained    bool      `json:"trained"`
	Neighbors  int       `json:"neighbors"`
	Profiles   int       `json:"profiles"`
	RuleItems  int       `json:"rule_items"`
}

// Status 返回当前快照概况。
func (e *Engine) Status() Status {
	snap := e.snap.Load()
	st := Status{
		BuiltAt:   snap.builtAt,
		Trained:   snap.pipeline != nil,
		Neighbors: snap.neighbors,
		RuleItems: snap.rules.Len(),
	}
	if snap.id != uuid.Nil {
		st.SnapshotID = snap.id.String()
	}
	if snap.features != nil {
		st.Services = snap.features.Len()
	}
	if snap.profiles != nil {
		st.Profiles = snap.profiles.Len()
	}
	return st
}

var _ evaluate.Recommender = (*Engine)(nil)
