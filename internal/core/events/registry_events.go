package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const EventTypeProjectUpdated = "project.updated"

// ProjectUpdatedEvent records a successful mutation of a project row and
// the identity that authorized it.
type ProjectUpdatedEvent struct {
	ID            string
	ProjectID     int64
	ProjectName   string
	ChangedFields []string
	UpdatedBy     string
	Role          string
	Timestamp     time.Time
}

func NewProjectUpdatedEvent(projectID int64, projectName string, changedFields []string, updatedBy, role string) ProjectUpdatedEvent {
	return ProjectUpdatedEvent{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		ProjectName:   projectName,
		ChangedFields: changedFields,
		UpdatedBy:     updatedBy,
		Role:          role,
		Timestamp:     time.Now(),
	}
}

func (e ProjectUpdatedEvent) EventType() string     { return EventTypeProjectUpdated }
func (e ProjectUpdatedEvent) EventID() string       { return e.ID }
func (e ProjectUpdatedEvent) OccurredAt() time.Time { return e.Timestamp }

// RegisterAuditLogger subscribes a handler that writes one audit line per
// project mutation. Audit output is console-only; nothing is persisted.
func RegisterAuditLogger(bus *EventBus, logger *slog.Logger) {
	bus.Subscribe(EventTypeProjectUpdated, func(ctx context.Context, event Event) error {
		upd, ok := event.(ProjectUpdatedEvent)
		if !ok {
			return nil
		}
		logger.Info("project updated",
			"event_id", upd.ID,
			"project_id", upd.ProjectID,
			"project_name", upd.ProjectName,
			"changed_fields", upd.ChangedFields,
			"updated_by", upd.UpdatedBy,
			"role", upd.Role)
		return nil
	})
}
