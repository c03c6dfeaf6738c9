package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tribehub/internal/database"
	"tribehub/internal/models"
)

// ActivityService records tenant activity events to MongoDB. It is entirely
// optional: with a nil MongoDB every call is a no-op.
type ActivityService struct {
	mongoDB *database.MongoDB
}

// NewActivityService creates a new activity service
func NewActivityService(mongoDB *database.MongoDB) *ActivityService {
	if mongoDB == nil {
		log.Println("ℹ️ [ACTIVITY] MongoDB not configured, activity log disabled")
	}
	return &ActivityService{mongoDB: mongoDB}
}

// Enabled reports whether activity logging is available
func (s *ActivityService) Enabled() bool {
	return s.mongoDB != nil
}

// Record appends one activity event. Failures are logged, never surfaced;
// the activity feed must not break domain writes.
func (s *ActivityService) Record(ctx context.Context, tenantID, userID, eventType, entityID, detail string) {
	if s.mongoDB == nil {
		return
	}

	event := models.ActivityEvent{
		TenantID: tenantID,
		UserID:   userID,
		Type:     eventType,
		EntityID: entityID,
		Detail:   detail,
		At:       time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	coll := s.mongoDB.Collection(database.CollectionActivity)
	if _, err := coll.InsertOne(ctx, event); err != nil {
		log.Printf("⚠️ [ACTIVITY] Failed to record %s: %v", eventType, err)
	}
}

// ListByTenant returns the tenant's activity feed, newest first
func (s *ActivityService) ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.ActivityEvent, error) {
	if s.mongoDB == nil {
		return []models.ActivityEvent{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	coll := s.mongoDB.Collection(database.CollectionActivity)
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := coll.Find(ctx, bson.M{"tenantId": tenantID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer cursor.Close(ctx)

	events := []models.ActivityEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode activity: %w", err)
	}
	return events, nil
}
