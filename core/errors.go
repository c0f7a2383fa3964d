package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持 errors.Is：Module 与 Code 相同即视为同一错误，便于 %w 包装后判断
//
// 使用场景：
//   - 向量化：EMPTY_CATALOG
//   - 近邻索引：EMPTY_INDEX
//   - 用户画像：NO_PROFILE（非硬错误，触发热门兜底）
//   - Store 错误：NOT_FOUND
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "EMPTY_CATALOG"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "feature", "vector"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is 实现 errors.Is 语义：Module 与 Code 一致即匹配。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok || t == nil {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// GetDomainError 获取 DomainError（支持包装链），如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	for err != nil {
		if domainErr, ok := err.(*DomainError); ok {
			return domainErr
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound     = "NOT_FOUND"     // 资源不存在
	ErrorCodeInvalidInput = "INVALID_INPUT" // 输入无效
	ErrorCodeEmptyCatalog = "EMPTY_CATALOG" // 向量化时没有任何服务
	ErrorCodeEmptyIndex   = "EMPTY_INDEX"   // 构建索引时没有任何向量
	ErrorCodeNoProfile    = "NO_PROFILE"    // 用户没有可用的交互
	ErrorCodeNotTrained   = "NOT_TRAINED"   // 尚未完成向量化/索引构建
)

// 模块名称常量
const (
	ModuleStore   = "store"   // 存储模块
	ModuleFeature = "feature" // 特征模块
	ModuleVector  = "vector"  // 向量模块
	ModuleProfile = "profile" // 用户画像模块
	ModuleRules   = "rules"   // 关联规则模块
	ModuleEngine  = "engine"  // 推荐引擎
)

// 领域错误定义
var (
	// ErrEmptyCatalog 向量化时服务目录为空
	ErrEmptyCatalog = NewDomainError(ModuleFeature, ErrorCodeEmptyCatalog, "feature: empty catalog")

	// ErrEmptyIndex 近邻索引没有任何向量
	ErrEmptyIndex = NewDomainError(ModuleVector, ErrorCodeEmptyIndex, "vector: empty index")

	// ErrNoProfile 用户没有可解析的交互，调用方应走热门兜底
	ErrNoProfile = NewDomainError(ModuleProfile, ErrorCodeNoProfile, "profile: no profile")

	// ErrNotTrained 引擎还没有可用的快照
	ErrNotTrained = NewDomainError(ModuleEngine, ErrorCodeNotTrained, "engine: model not trained")

	// ErrInvalidInput 参数无效
	ErrInvalidInput = NewDomainError(ModuleEngine, ErrorCodeInvalidInput, "engine: invalid input")
)
