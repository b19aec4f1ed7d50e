package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/slip"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrSlipNotFound = errors.New("slip not archived")

// SlipArchive keeps the first slip issued for each completed order.
type SlipArchive interface {
	Get(ctx context.Context, orderID uuid.UUID) (*slip.Document, error)
	Put(ctx context.Context, doc *slip.Document) error
}

type slipRecord struct {
	OrderID     string    `bson:"order_id"`
	Filename    string    `bson:"filename"`
	ContentType string    `bson:"content_type"`
	Content     []byte    `bson:"content"`
	ETag        string    `bson:"etag"`
	RenderedAt  time.Time `bson:"rendered_at"`
	ArchivedAt  time.Time `bson:"archived_at"`
}

type MongoArchive struct {
	collection *mongo.Collection
}

func NewMongoArchive(db *mongo.Database) *MongoArchive {
	return &MongoArchive{
		collection: db.Collection("order_slips"),
	}
}

func (m *MongoArchive) Get(ctx context.Context, orderID uuid.UUID) (*slip.Document, error) {
	var rec slipRecord
	err := m.collection.FindOne(ctx, bson.M{"order_id": orderID.String()}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSlipNotFound
		}
		return nil, fmt.Errorf("failed to get slip: %w", err)
	}

	id, err := uuid.Parse(rec.OrderID)
	if err != nil {
		return nil, fmt.Errorf("archived slip has invalid order id %q: %w", rec.OrderID, err)
	}

	return &slip.Document{
		OrderID:     id,
		Filename:    rec.Filename,
		ContentType: rec.ContentType,
		Content:     rec.Content,
		ETag:        rec.ETag,
		RenderedAt:  rec.RenderedAt,
	}, nil
}

// Put stores the document unless a slip for the order is already archived.
func (m *MongoArchive) Put(ctx context.Context, doc *slip.Document) error {
	rec := slipRecord{
		OrderID:     doc.OrderID.String(),
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		Content:     doc.Content,
		ETag:        doc.ETag,
		RenderedAt:  doc.RenderedAt,
		ArchivedAt:  time.Now(),
	}

	filter := bson.M{"order_id": rec.OrderID}
	update := bson.M{"$setOnInsert": rec}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to archive slip: %w", err)
	}
	return nil
}

func (m *MongoArchive) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "archived_at", Value: -1}},
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// NoopArchive is used when no MongoDB URI is configured.
type NoopArchive struct{}

func (NoopArchive) Get(context.Context, uuid.UUID) (*slip.Document, error) {
	return nil, ErrSlipNotFound
}

func (NoopArchive) Put(context.Context, *slip.Document) error { return nil }
