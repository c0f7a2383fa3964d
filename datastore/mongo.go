package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rushteam/svcrec/core"
)

// MongoDB 集合名
const (
	CollectionCategories   = "categories"
	CollectionServices     = "services"
	CollectionInteractions = "userinteractions"
	CollectionBookings     = "bookings"
	CollectionUsers        = "users"
)

type categoryDoc struct {
	ID   primitive.ObjectID `bson:"_id"`
	Name string             `bson:"name"`
}

type serviceDoc struct {
	ID       primitive.ObjectID `bson:"_id"`
	Category interface{}        `bson:"category"`
	Title    string             `bson:"title"`
	Tags     []string           `bson:"tags"`
	Location string             `bson:"location"`
	Views    float64            `bson:"views"`
	Price    float64            `bson:"price"`
}

type interactionDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	UserID     interface{}        `bson:"userId"`
	ServiceID  interface{}        `bson:"serviceId"`
	ActionType string             `bson:"actionType"`
	Timestamp  time.Time          `bson:"timestamp"`
}

type bookingDoc struct {
	OrderID   interface{} `bson:"orderId"`
	ServiceID interface{} `bson:"serviceId"`
}

// Mongo 是 MongoDB 实现的 DataStore。
//
// 文档 ID 为 ObjectID；引用字段（category、userId、serviceId、orderId）既可能是 ObjectID
// 也可能是字符串，统一转为十六进制字符串。
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo 连接 MongoDB 并做一次 Ping。
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewMongo(client, database), nil
}

// NewMongo 使用已有客户端。
func NewMongo(client *mongo.Client, database string) *Mongo {
	return &Mongo{client: client, db: client.Database(database)}
}

func (m *Mongo) Name() string { return "mongo" }

// Close 断开连接。
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) ListCategories(ctx context.Context) ([]core.Category, error) {
	var docs []categoryDoc
	if err := m.findAll(ctx, CollectionCategories, bson.M{}, &docs, 0); err != nil {
		return nil, err
	}
	out := make([]core.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, core.Category{ID: d.ID.Hex(), Name: d.Name})
	}
	return out, nil
}

func (m *Mongo) ListServices(ctx context.Context) ([]core.Service, error) {
	var docs []serviceDoc
	if err := m.findAll(ctx, CollectionServices, bson.M{}, &docs, 0); err != nil {
		return nil, err
	}
	out := make([]core.Service, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toService())
	}
	return out, nil
}

func (m *Mongo) FindService(ctx context.Context, id string) (*core.Service, error) {
	var doc serviceDoc
	err := m.db.Collection(CollectionServices).FindOne(ctx, bson.M{"_id": idFilter(id)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find service %s: %w", id, err)
	}
	svc := doc.toService()
	return &svc, nil
}

func (m *Mongo) ListInteractions(ctx context.Context, userID string) ([]core.Interaction, error) {
	var docs []interactionDoc
	if err := m.findAll(ctx, CollectionInteractions, bson.M{"userId": idFilter(userID)}, &docs, 0); err != nil {
		return nil, err
	}
	out := make([]core.Interaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, core.Interaction{
			ID:         d.ID.Hex(),
			UserID:     refString(d.UserID),
			ServiceID:  refString(d.ServiceID),
			ActionType: core.ActionType(d.ActionType),
			Timestamp:  d.Timestamp,
		})
	}
	return out, nil
}

func (m *Mongo) ListOrderLines(ctx context.Context) ([]core.OrderLine, error) {
	var docs []bookingDoc
	if err := m.findAll(ctx, CollectionBookings, bson.M{}, &docs, 0); err != nil {
		return nil, err
	}
	out := make([]core.OrderLine, 0, len(docs))
	for _, d := range docs {
		out = append(out, core.OrderLine{
			OrderID:   refString(d.OrderID),
			ServiceID: refString(d.ServiceID),
		})
	}
	return out, nil
}

func (m *Mongo) ListUsers(ctx context.Context, limit int) ([]string, error) {
	var docs []struct {
		ID interface{} `bson:"_id"`
	}
	if err := m.findAll(ctx, CollectionUsers, bson.M{}, &docs, limit); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, refString(d.ID))
	}
	return out, nil
}

// findAll 按 _id 升序读取集合，保证枚举顺序稳定。
func (m *Mongo) findAll(ctx context.Context, collection string, filter bson.M, out interface{}, limit int) error {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := m.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("find %s: %w", collection, err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

func (d *serviceDoc) toService() core.Service {
	return core.Service{
		ID:         d.ID.Hex(),
		CategoryID: refString(d.Category),
		Title:      d.Title,
		Tags:       d.Tags,
		Location:   d.Location,
		Views:      d.Views,
		Price:      d.Price,
	}
}

// idFilter 合法的十六进制 ID 按 ObjectID 查询，否则按原字符串查询。
func idFilter(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func refString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return x.Hex()
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

var _ core.DataStore = (*Mongo)(nil)
