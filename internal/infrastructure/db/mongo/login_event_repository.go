package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/loomery/identity-system/internal/core/domain"
)

// MongoLoginEventRepository persists the append-only authentication log.
type MongoLoginEventRepository struct {
	events *mongo.Collection
}

func NewLoginEventRepository(db *mongo.Database) *MongoLoginEventRepository {
	return &MongoLoginEventRepository{events: db.Collection(loginEventsCollection)}
}

type mongoLoginEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	AccountID string             `bson:"account_id"`
	Timestamp int64              `bson:"timestamp"`
	Origin    string             `bson:"origin"`
	IPAddress string             `bson:"ip_address"`
}

func (r *MongoLoginEventRepository) Record(ctx context.Context, event *domain.LoginEvent) error {
	doc := mongoLoginEvent{
		AccountID: event.AccountID,
		Timestamp: event.Timestamp.Unix(),
		Origin:    event.Origin,
		IPAddress: event.IPAddress,
	}
	if _, err := r.events.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert login event: %w", err)
	}
	return nil
}

func (r *MongoLoginEventRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.LoginEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cur, err := r.events.Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list login events: %w", err)
	}
	defer cur.Close(ctx)

	var events []domain.LoginEvent
	for cur.Next(ctx) {
		var me mongoLoginEvent
		if err := cur.Decode(&me); err != nil {
			return nil, fmt.Errorf("decode login event: %w", err)
		}
		events = append(events, domain.LoginEvent{
			ID:        me.ID.Hex(),
			AccountID: me.AccountID,
			Timestamp: unixToTime(me.Timestamp),
			Origin:    me.Origin,
			IPAddress: me.IPAddress,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list login events: %w", err)
	}
	return events, nil
}
