package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/svcrec/core"
	"github.com/rushteam/svcrec/pipeline"
	"github.com/rushteam/svcrec/pkg/logging"
)

// App 是服务的运行时配置，优先级：默认值 -> YAML 文件 -> SVCREC_* 环境变量。
type App struct {
	HTTPAddr string `koanf:"http_addr"`

	DataStore struct {
		// Driver: memory / mongo / postgres
		Driver      string `koanf:"driver"`
		FixturePath string `koanf:"fixture_path"` // memory
		MongoURI    string `koanf:"mongo_uri"`
		MongoDB     string `koanf:"mongo_db"`
		PostgresDSN string `koanf:"postgres_dsn"`
		MaxConns    int    `koanf:"max_conns"`
		Migrate     bool   `koanf:"migrate"`
	} `koanf:"datastore"`

	Cache struct {
		// Backend: memory / redis
		Backend       string `koanf:"backend"`
		RedisAddr     string `koanf:"redis_addr"`
		RedisPassword string `koanf:"redis_password"`
		RedisDB       int    `koanf:"redis_db"`
		// HotKey 热门有序集合的 key
		HotKey string `koanf:"hot_key"`
	} `koanf:"cache"`

	Recommend struct {
		Neighbors       int `koanf:"neighbors"`
		Recommendations int `koanf:"recommendations"`
		TopTags         int `koanf:"top_tags"`
		EvalUsers       int `koanf:"eval_users"`
		EvalK           int `koanf:"eval_k"`
		// PipelinePath 可选的 Pipeline YAML
		PipelinePath string `koanf:"pipeline_path"`
		TrainOnStart bool   `koanf:"train_on_start"`
	} `koanf:"recommend"`

	Rules struct {
		MinSupport    float64 `koanf:"min_support"`
		MinConfidence float64 `koanf:"min_confidence"`
		TableKey      string  `koanf:"table_key"`
		MineOnStart   bool    `koanf:"mine_on_start"`
	} `koanf:"rules"`

	Log logging.Config `koanf:"log"`
}

// DefaultApp 返回默认配置。
func DefaultApp() *App {
	a := &App{HTTPAddr: ":5000"}
	a.DataStore.Driver = "memory"
	a.DataStore.MongoDB = "servicediscovery"
	a.DataStore.MaxConns = 10
	a.Cache.Backend = "memory"
	a.Cache.RedisAddr = "localhost:6379"
	a.Cache.HotKey = "hot:services"
	a.Recommend.Neighbors = 10
	a.Recommend.Recommendations = 5
	a.Recommend.TopTags = 10
	a.Recommend.EvalUsers = 10
	a.Recommend.EvalK = 5
	a.Rules.MinSupport = 0.2
	a.Rules.MinConfidence = 0.3
	a.Rules.TableKey = "rules:table"
	a.Log.Level = "info"
	a.Log.Format = "json"
	return a
}

// EnvPrefix 环境变量前缀。
const EnvPrefix = "SVCREC_"

// envKeys 环境变量名（去掉前缀、小写）到配置路径的映射。
var envKeys = map[string]string{
	"http_addr":        "http_addr",
	"datastore_driver": "datastore.driver",
	"fixture_path":     "datastore.fixture_path",
	"mongo_uri":        "datastore.mongo_uri",
	"mongo_db":         "datastore.mongo_db",
	"postgres_dsn":     "datastore.postgres_dsn",
	"cache_backend":    "cache.backend",
	"redis_addr":       "cache.redis_addr",
	"redis_password":   "cache.redis_password",
	"redis_db":         "cache.redis_db",
	"hot_key":          "cache.hot_key",
	"neighbors":        "recommend.neighbors",
	"recommendations":  "recommend.recommendations",
	"eval_users":       "recommend.eval_users",
	"eval_k":           "recommend.eval_k",
	"pipeline_path":    "recommend.pipeline_path",
	"train_on_start":   "recommend.train_on_start",
	"min_support":      "rules.min_support",
	"min_confidence":   "rules.min_confidence",
	"mine_on_start":    "rules.mine_on_start",
	"log_level":        "log.level",
	"log_format":       "log.format",
}

// envTransform 将 SVCREC_NEIGHBORS 映射为 recommend.neighbors；未知变量与空值被忽略。
func envTransform(key, value string) (string, interface{}) {
	path, ok := envKeys[strings.ToLower(strings.TrimPrefix(key, EnvPrefix))]
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return "", nil
	}
	return path, value
}

// LoadApp 读取配置；path 为空时只使用默认值与环境变量。
func LoadApp(path string) (*App, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultApp(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	a := &App{}
	if err := k.Unmarshal("", a); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate 校验取值范围。
func (a *App) Validate() error {
	switch a.DataStore.Driver {
	case "memory", "mongo", "postgres":
	default:
		return fmt.Errorf("unsupported datastore driver %q", a.DataStore.Driver)
	}
	switch a.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache backend %q", a.Cache.Backend)
	}
	if a.Recommend.Neighbors <= 0 || a.Recommend.Recommendations <= 0 || a.Recommend.EvalK <= 0 {
		return fmt.Errorf("neighbors, recommendations and eval_k must be positive")
	}
	if a.Rules.MinSupport <= 0 || a.Rules.MinSupport > 1 || a.Rules.MinConfidence <= 0 || a.Rules.MinConfidence > 1 {
		return fmt.Errorf("min_support and min_confidence must be in (0, 1]")
	}
	return nil
}

// PipelineConfig 返回 Pipeline 配置：配置了 PipelinePath 时从 YAML 读取并校验，否则使用默认链路。
func (a *App) PipelineConfig() (*pipeline.Config, error) {
	if a.Recommend.PipelinePath == "" {
		return DefaultPipelineConfig(), nil
	}
	cfg, err := pipeline.LoadFromYAML(a.Recommend.PipelinePath)
	if err != nil {
		return nil, err
	}
	if err := ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// App 同时提供推荐核心的默认参数。

func (a *App) DefaultNeighbors() int { return a.Recommend.Neighbors }

func (a *App) DefaultRecommendations() int { return a.Recommend.Recommendations }

func (a *App) DefaultTopTags() int { return a.Recommend.TopTags }

func (a *App) DefaultMinSupport() float64 { return a.Rules.MinSupport }

func (a *App) DefaultMinConfidence() float64 { return a.Rules.MinConfidence }

func (a *App) DefaultEvalUsers() int { return a.Recommend.EvalUsers }

func (a *App) DefaultEvalK() int { return a.Recommend.EvalK }

var _ core.RecommendConfig = (*App)(nil)
