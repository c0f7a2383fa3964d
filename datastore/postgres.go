package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rushteam/svcrec/core"
)

// CategoryModel categories 表
type CategoryModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (CategoryModel) TableName() string { return "categories" }

// ServiceModel services 表，tags 以 jsonb 数组保存
type ServiceModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	CategoryID string    `gorm:"column:category_id;index"`
	Title      string    `gorm:"column:title"`
	Tags       []string  `gorm:"column:tags;type:jsonb;serializer:json"`
	Location   string    `gorm:"column:location"`
	Views      float64   `gorm:"column:views"`
	Price      float64   `gorm:"column:price"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (ServiceModel) TableName() string { return "services" }

// InteractionModel user_interactions 表
type InteractionModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	UserID     string    `gorm:"column:user_id;index"`
	ServiceID  string    `gorm:"column:service_id"`
	ActionType string    `gorm:"column:action_type"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (InteractionModel) TableName() string { return "user_interactions" }

// BookingModel bookings 表，每行是订单中的一个服务
type BookingModel struct {
	ID        uint   `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   string `gorm:"column:order_id;index"`
	ServiceID string `gorm:"column:service_id"`
}

func (BookingModel) TableName() string { return "bookings" }

// UserModel users 表
type UserModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (UserModel) TableName() string { return "users" }

// Postgres 是 gorm + PostgreSQL 实现的 DataStore。
type Postgres struct {
	db *gorm.DB
}

// ConnectPostgres 打开连接池并做一次 Ping。
func ConnectPostgres(ctx context.Context, dsn string, maxConns int) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(maxConns)
		sqlDB.SetMaxIdleConns(maxConns / 2)
	}
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgres(db), nil
}

// NewPostgres 使用已有的 *gorm.DB。
func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate 建表（开发环境使用）。
func (p *Postgres) Migrate(ctx context.Context) error {
	return p.db.WithContext(ctx).AutoMigrate(
		&CategoryModel{}, &ServiceModel{}, &InteractionModel{}, &BookingModel{}, &UserModel{},
	)
}

// Close 关闭连接池。
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) ListCategories(ctx context.Context) ([]core.Category, error) {
	var rows []CategoryModel
	if err := p.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.Category{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

func (p *Postgres) ListServices(ctx context.Context) ([]core.Service, error) {
	var rows []ServiceModel
	if err := p.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	out := make([]core.Service, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toService())
	}
	return out, nil
}

func (p *Postgres) FindService(ctx context.Context, id string) (*core.Service, error) {
	var row ServiceModel
	err := p.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find service %s: %w", id, err)
	}
	svc := row.toService()
	return &svc, nil
}

func (p *Postgres) ListInteractions(ctx context.Context, userID string) ([]core.Interaction, error) {
	var rows []InteractionModel
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at, id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	out := make([]core.Interaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.Interaction{
			ID:         r.ID,
			UserID:     r.UserID,
			ServiceID:  r.ServiceID,
			ActionType: core.ActionType(r.ActionType),
			Timestamp:  r.CreatedAt,
		})
	}
	return out, nil
}

func (p *Postgres) ListOrderLines(ctx context.Context) ([]core.OrderLine, error) {
	var rows []BookingModel
	if err := p.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	out := make([]core.OrderLine, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.OrderLine{OrderID: r.OrderID, ServiceID: r.ServiceID})
	}
	return out, nil
}

func (p *Postgres) ListUsers(ctx context.Context, limit int) ([]string, error) {
	q := p.db.WithContext(ctx).Model(&UserModel{}).Order("created_at, id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ids []string
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ids, nil
}

func (r *ServiceModel) toService() core.Service {
	return core.Service{
		ID:         r.ID,
		CategoryID: r.CategoryID,
		Title:      r.Title,
		Tags:       r.Tags,
		Location:   r.Location,
		Views:      r.Views,
		Price:      r.Price,
	}
}

var _ core.DataStore = (*Postgres)(nil)
