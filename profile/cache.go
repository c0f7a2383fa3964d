package profile

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/rushteam/svcrec/core"
)

// Cache 按用户缓存画像。
//
// 画像不会自动失效：用户产生新交互后需要调用 Rebuild。
// 同一用户并发的首次构建只执行一次。没有画像（core.ErrNoProfile）的结果不缓存。
type Cache struct {
	builder *Builder

	mu       sync.RWMutex
	profiles map[string]*core.UserProfile
	group    singleflight.Group
}

// NewCache 创建画像缓存。
func NewCache(builder *Builder) *Cache {
	return &Cache{
		builder:  builder,
		profiles: make(map[string]*core.UserProfile),
	}
}

// Get 返回缓存的画像，不存在时构建并缓存。
func (c *Cache) Get(ctx context.Context, userID string) (*core.UserProfile, error) {
	c.mu.RLock()
	p, ok := c.profiles[userID]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}
	return c.build(ctx, userID)
}

// Rebuild 丢弃缓存并重新构建。
func (c *Cache) Rebuild(ctx context.Context, userID string) (*core.UserProfile, error) {
	c.Invalidate(userID)
	return c.build(ctx, userID)
}

// Invalidate 删除用户缓存。
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.profiles, userID)
	c.mu.Unlock()
}

// Len 返回缓存的画像数。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.profiles)
}

func (c *Cache) build(ctx context.Context, userID string) (*core.UserProfile, error) {
	v, err, _ := c.group.Do(userID, func() (interface{}, error) {
		p, err := c.builder.Build(ctx, userID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.profiles[userID] = p
		c.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.UserProfile), nil
}
