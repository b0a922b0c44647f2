package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"Panikkar/bot/chat"
)

// SaveSession upserts a conversation session by phone.
func (m *MongoDB) SaveSession(ctx context.Context, s *chat.Session) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(sessionsCollection)

	filter := bson.D{{Key: "phone", Value: s.Phone}}
	update := bson.D{{Key: "$set", Value: s}}
	opts := options.Update().SetUpsert(true)

	if _, err = collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("mongodb save session: %w", err)
	}
	return nil
}

// LoadSession returns (nil, nil) when the phone has no session.
func (m *MongoDB) LoadSession(ctx context.Context, phone string) (*chat.Session, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(sessionsCollection)

	var s chat.Session
	err = collection.FindOne(ctx, bson.D{{Key: "phone", Value: phone}}).Decode(&s)
	if err != nil {
		return nil, m.findError(err)
	}
	if s.TempData == nil {
		s.TempData = make(map[string]any)
	}
	return &s, nil
}

// ListIdleSessions returns sessions inside a flow, last touched before the cutoff.
func (m *MongoDB) ListIdleSessions(ctx context.Context, before time.Time, exclude []chat.FlowID) ([]*chat.Session, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(sessionsCollection)

	skip := bson.A{""}
	for _, f := range exclude {
		skip = append(skip, f)
	}
	filter := bson.D{
		{Key: "updated_at", Value: bson.D{{Key: "$lt", Value: before}}},
		{Key: "flow_type", Value: bson.D{{Key: "$nin", Value: skip}}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find idle sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*chat.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("mongodb decode sessions: %w", err)
	}
	return sessions, nil
}
