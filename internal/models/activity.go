package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity event types recorded in the optional MongoDB activity log
const (
	ActivityTaskCreated     = "task_created"
	ActivityTaskMoved       = "task_moved"
	ActivityTaskDeleted     = "task_deleted"
	ActivityLeadCreated     = "lead_created"
	ActivityLeadStatus      = "lead_status_changed"
	ActivityModuleReorder   = "module_reordered"
	ActivityLessonDone      = "lesson_completed"
	ActivityPostCreated     = "post_created"
	ActivityMemberJoined    = "member_joined"
	ActivityTenantCreated   = "tenant_created"
	ActivitySettingsUpdated = "settings_updated"
)

// ActivityEvent is one row of the per-tenant activity feed. Stored in
// MongoDB when configured; the platform works without it.
type ActivityEvent struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID string             `bson:"tenantId" json:"tenant_id"`
	UserID   string             `bson:"userId" json:"user_id"`
	Type     string             `bson:"type" json:"type"`
	EntityID string             `bson:"entityId,omitempty" json:"entity_id,omitempty"`
	Detail   string             `bson:"detail,omitempty" json:"detail,omitempty"`
	At       time.Time          `bson:"at" json:"at"`
}
