package database

import (
	"context"
	"errors"
	"fmt"
	"refgate/entity"
	"refgate/internal/config"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	collectionUsers    = "users"
	collectionCounters = "counters"
	counterAdmissions  = "admissions"
)

// MongoDB is the user registry on MongoDB.
// Standalone servers have no multi-document transactions, so admission takes a
// slot on the counter document first (conditional $inc below capacity) and only
// then flips the user's flag; a failed flip gives the slot back. The number of
// admitted users therefore never exceeds the counter, which never exceeds capacity.
type MongoDB struct {
	client   *mongo.Client
	database string
}

func NewMongoClient(ctx context.Context, conf config.Mongo) (*MongoDB, error) {
	connectionUri := conf.Uri
	if connectionUri == "" {
		connectionUri = fmt.Sprintf("mongodb://%s:%s", conf.Host, conf.Port)
	}
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.User,
			Password:   conf.Password,
			AuthSource: conf.Database,
		})
	}
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	m := &MongoDB{
		client:   client,
		database: conf.Database,
	}
	if err = m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	if err = m.seedCounter(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return m, nil
}

func (m *MongoDB) users() *mongo.Collection {
	return m.client.Database(m.database).Collection(collectionUsers)
}

func (m *MongoDB) counters() *mongo.Collection {
	return m.client.Database(m.database).Collection(collectionCounters)
}

func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	_, err := m.users().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{"user_id", 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{"referral_count", -1}, {"registered_at", 1}}},
		{Keys: bson.D{{"admitted", 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongodb create indexes: %w", err)
	}
	return nil
}

// seedCounter creates the admission counter from the exact admitted count; an
// existing counter is left as is.
func (m *MongoDB) seedCounter(ctx context.Context) error {
	count, err := m.CountAdmitted(ctx)
	if err != nil {
		return err
	}
	filter := bson.D{{"_id", counterAdmissions}}
	update := bson.D{{"$setOnInsert", bson.D{{"admitted", count}}}}
	_, err = m.counters().UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongodb seed counter: %w", err)
	}
	return nil
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entity.ErrNotFound
	}
	return fmt.Errorf("mongodb find: %w", err)
}

func (m *MongoDB) GetUser(ctx context.Context, userId int64) (*entity.User, error) {
	filter := bson.D{{"user_id", userId}}
	var user entity.User
	if err := m.users().FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, m.findError(err)
	}
	return &user, nil
}

// RegisterUser relies on the unique user_id index: a concurrent duplicate
// insert fails with a duplicate key error and reports created=false.
// A referred user is stored with referral_pending set and the credit follows;
// if the credit fails the flag stays, and CompleteReferral finishes it later.
func (m *MongoDB) RegisterUser(ctx context.Context, userId, referrerId int64) (bool, error) {
	user := entity.User{
		UserId:          userId,
		ReferrerId:      referrerId,
		RegisteredAt:    time.Now().UTC(),
		ReferralPending: referrerId != 0,
	}
	_, err := m.users().InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mongodb insert user: %w", err)
	}
	if !user.ReferralPending {
		return true, nil
	}
	return true, m.CompleteReferral(ctx, userId)
}

// CompleteReferral credits the referrer of a pending registration. The flag is
// cleared before the increment so concurrent callers credit at most once; a
// failed increment sets it again.
func (m *MongoDB) CompleteReferral(ctx context.Context, userId int64) error {
	filter := bson.D{{"user_id", userId}, {"referral_pending", true}}
	update := bson.D{{"$unset", bson.D{{"referral_pending", ""}}}}
	var user entity.User
	err := m.users().FindOneAndUpdate(ctx, filter, update).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mongodb claim referral: %w", err)
	}

	if err = m.AddReferral(ctx, user.ReferrerId); err != nil {
		m.restorePending(ctx, userId)
		return fmt.Errorf("credit referrer %d: %w", user.ReferrerId, err)
	}
	return nil
}

func (m *MongoDB) restorePending(ctx context.Context, userId int64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	filter := bson.D{{"user_id", userId}}
	update := bson.D{{"$set", bson.D{{"referral_pending", true}}}}
	_, _ = m.users().UpdateOne(ctx, filter, update)
}

func (m *MongoDB) AddReferral(ctx context.Context, referrerId int64) error {
	filter := bson.D{{"user_id", referrerId}}
	update := bson.D{{"$inc", bson.D{{"referral_count", 1}}}}
	res, err := m.users().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongodb add referral: %w", err)
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (m *MongoDB) Admit(ctx context.Context, userId int64, capacity int) error {
	reserved, err := m.reserveSlot(ctx, capacity)
	if err != nil {
		return err
	}
	if !reserved {
		return entity.ErrCapacityExceeded
	}

	filter := bson.D{{"user_id", userId}, {"admitted", false}}
	update := bson.D{{"$set", bson.D{
		{"admitted", true},
		{"admitted_at", time.Now().UTC()},
	}}}
	res, err := m.users().UpdateOne(ctx, filter, update)
	if err != nil {
		m.releaseSlot(ctx)
		return fmt.Errorf("mongodb admit user: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	m.releaseSlot(ctx)
	if _, err = m.GetUser(ctx, userId); err != nil {
		return err
	}
	return entity.ErrAlreadyAdmitted
}

func (m *MongoDB) RevokeAdmission(ctx context.Context, userId int64) error {
	filter := bson.D{{"user_id", userId}, {"admitted", true}}
	update := bson.D{
		{"$set", bson.D{{"admitted", false}, {"invite_link", ""}}},
		{"$unset", bson.D{{"admitted_at", ""}}},
	}
	res, err := m.users().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongodb revoke user: %w", err)
	}
	if res.ModifiedCount == 1 {
		m.releaseSlot(ctx)
	}
	return nil
}

func (m *MongoDB) reserveSlot(ctx context.Context, capacity int) (bool, error) {
	filter := bson.D{{"_id", counterAdmissions}, {"admitted", bson.D{{"$lt", capacity}}}}
	update := bson.D{{"$inc", bson.D{{"admitted", 1}}}}
	res, err := m.counters().UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("mongodb reserve slot: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// releaseSlot runs detached from ctx: a cancelled request must still give the slot back.
func (m *MongoDB) releaseSlot(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	filter := bson.D{{"_id", counterAdmissions}, {"admitted", bson.D{{"$gt", 0}}}}
	update := bson.D{{"$inc", bson.D{{"admitted", -1}}}}
	_, _ = m.counters().UpdateOne(ctx, filter, update)
}

func (m *MongoDB) SetInviteLink(ctx context.Context, userId int64, link string) error {
	filter := bson.D{{"user_id", userId}}
	update := bson.D{{"$set", bson.D{{"invite_link", link}}}}
	res, err := m.users().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongodb set invite link: %w", err)
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (m *MongoDB) CountAdmitted(ctx context.Context) (int64, error) {
	count, err := m.users().CountDocuments(ctx, bson.D{{"admitted", true}})
	if err != nil {
		return 0, fmt.Errorf("mongodb count admitted: %w", err)
	}
	return count, nil
}

func (m *MongoDB) TopReferrers(ctx context.Context, limit int) ([]entity.Referrer, error) {
	opts := options.Find().
		SetSort(bson.D{{"referral_count", -1}, {"registered_at", 1}, {"_id", 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.D{{"user_id", 1}, {"referral_count", 1}})
	cursor, err := m.users().Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb top referrers: %w", err)
	}
	defer cursor.Close(ctx)

	referrers := make([]entity.Referrer, 0, limit)
	if err = cursor.All(ctx, &referrers); err != nil {
		return nil, fmt.Errorf("mongodb top referrers: %w", err)
	}
	return referrers, nil
}
