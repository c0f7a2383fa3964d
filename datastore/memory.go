// Package datastore 提供 core.DataStore 的几种实现：内存、MongoDB、PostgreSQL。
package datastore

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"github.com/rushteam/svcrec/core"
)

// Memory 是内存实现的 DataStore，用于测试/开发。
// 列表按写入顺序返回。
type Memory struct {
	mu           sync.RWMutex
	categories   []core.Category
	services     []core.Service
	interactions []core.Interaction
	orderLines   []core.OrderLine
	users        []string
}

// NewMemory 创建空的内存数据源。
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Name() string { return "memory" }

// AddCategory 追加类目。
func (m *Memory) AddCategory(c core.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = append(m.categories, c)
}

// AddService 追加服务。
func (m *Memory) AddService(s core.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, s)
}

// AddInteraction 追加交互，首次出现的用户计入用户列表。
func (m *Memory) AddInteraction(in core.Interaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions = append(m.interactions, in)
	m.addUserLocked(in.UserID)
}

// AddOrderLine 追加订单明细。
func (m *Memory) AddOrderLine(line core.OrderLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderLines = append(m.orderLines, line)
}

// AddUser 登记用户（没有交互的用户也会出现在 ListUsers 中）。
func (m *Memory) AddUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addUserLocked(userID)
}

func (m *Memory) addUserLocked(userID string) {
	for _, u := range m.users {
		if u == userID {
			return
		}
	}
	m.users = append(m.users, userID)
}

func (m *Memory) ListCategories(ctx context.Context) ([]core.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.Category(nil), m.categories...), nil
}

func (m *Memory) ListServices(ctx context.Context) ([]core.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.Service(nil), m.services...), nil
}

func (m *Memory) FindService(ctx context.Context, id string) (*core.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.services {
		if m.services[i].ID == id {
			svc := m.services[i]
			return &svc, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListInteractions(ctx context.Context, userID string) ([]core.Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.Interaction
	for _, in := range m.interactions {
		if in.UserID == userID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (m *Memory) ListOrderLines(ctx context.Context) ([]core.OrderLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.OrderLine(nil), m.orderLines...), nil
}

func (m *Memory) ListUsers(ctx context.Context, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := m.users
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return append([]string(nil), users...), nil
}

// Fixture 是内存数据源的 JSON 快照格式。
type Fixture struct {
	Categories   []core.Category    `json:"categories"`
	Services     []core.Service     `json:"services"`
	Interactions []core.Interaction `json:"interactions"`
	OrderLines   []core.OrderLine   `json:"order_lines"`
	Users        []string           `json:"users"`
}

// NewMemoryFromFixture 用 Fixture 填充内存数据源。
func NewMemoryFromFixture(f *Fixture) *Memory {
	m := NewMemory()
	for _, c := range f.Categories {
		m.AddCategory(c)
	}
	for _, s := range f.Services {
		m.AddService(s)
	}
	for _, u := range f.Users {
		m.AddUser(u)
	}
	for _, in := range f.Interactions {
		m.AddInteraction(in)
	}
	for _, l := range f.OrderLines {
		m.AddOrderLine(l)
	}
	return m
}

// LoadMemoryFile 从 JSON 文件加载内存数据源。
func LoadMemoryFile(path string) (*Memory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return NewMemoryFromFixture(&f), nil
}

var _ core.DataStore = (*Memory)(nil)
