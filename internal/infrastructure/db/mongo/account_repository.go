package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/loomery/identity-system/internal/core/domain"
)

// MongoAccountRepository is the credential store's account side. Deleting an
// account also removes its login events, so the cascade invariant lives at
// the store layer rather than in any service.
type MongoAccountRepository struct {
	accounts *mongo.Collection
	events   *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *MongoAccountRepository {
	return &MongoAccountRepository{
		accounts: db.Collection(accountsCollection),
		events:   db.Collection(loginEventsCollection),
	}
}

type mongoAccount struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Email            string             `bson:"email"`
	PasswordHash     string             `bson:"password_hash"`
	TelegramUsername string             `bson:"telegram_username"`
	Role             string             `bson:"role"`
	CreatedAt        int64              `bson:"created_at"`
}

func (r *MongoAccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	doc := mongoAccount{
		Email:            account.Email,
		PasswordHash:     account.PasswordHash,
		TelegramUsername: account.TelegramUsername,
		Role:             account.Role,
		CreatedAt:        account.CreatedAt.Unix(),
	}

	res, err := r.accounts.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateKeyError(err)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	created := *account
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *MongoAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoAccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	cur, err := r.accounts.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer cur.Close(ctx)

	var accounts []domain.Account
	for cur.Next(ctx) {
		var ma mongoAccount
		if err := cur.Decode(&ma); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		accounts = append(accounts, *toDomain(&ma))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// Delete removes the account document and cascades to its login events.
// Events of other accounts are untouched.
func (r *MongoAccountRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	res, err := r.accounts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrAccountNotFound
	}

	if _, err := r.events.DeleteMany(ctx, bson.M{"account_id": id}); err != nil {
		return fmt.Errorf("cascade login events: %w", err)
	}
	return nil
}

func (r *MongoAccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var ma mongoAccount
	if err := r.accounts.FindOne(ctx, filter).Decode(&ma); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return toDomain(&ma), nil
}

func toDomain(ma *mongoAccount) *domain.Account {
	return &domain.Account{
		ID:               ma.ID.Hex(),
		Email:            ma.Email,
		PasswordHash:     ma.PasswordHash,
		TelegramUsername: ma.TelegramUsername,
		Role:             ma.Role,
		CreatedAt:        unixToTime(ma.CreatedAt),
	}
}

// duplicateKeyError maps a duplicate-key violation to the conflicting field.
// The index name is the only discriminator the driver exposes.
func duplicateKeyError(err error) error {
	if strings.Contains(err.Error(), "uniq_telegram_username") {
		return domain.ErrHandleTaken
	}
	return domain.ErrEmailTaken
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
