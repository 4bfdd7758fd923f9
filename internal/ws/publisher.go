package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"promptlab/internal/db"
	"promptlab/internal/model"

	"gorm.io/gorm"
)

const promptsTopic = "prompts"

// PublishPromptEvent appends a change event to the event log and
// broadcasts it to all connected clients. Broadcast failure never
// affects the main flow; the event log is the source of truth for
// catch-up replay.
func PublishPromptEvent(eventType string, payload interface{}) error {
	conn := db.GetDB()
	if conn == nil {
		return fmt.Errorf("database not initialized")
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WebSocket] Failed to marshal payload: %v", err)
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := model.PromptEvent{
		Topic:     promptsTopic,
		EventType: eventType,
		Payload:   string(payloadJSON),
	}

	if err := conn.Create(&event).Error; err != nil {
		log.Printf("[WebSocket] Failed to write event to database: %v", err)
		return fmt.Errorf("failed to write event to database: %w", err)
	}

	BroadcastToAll("prompts:update", map[string]interface{}{
		"eventId": event.ID,
		"type":    eventType,
		"data":    payload,
	})

	return nil
}

// GetIncrementalEvents retrieves events with id > lastEventId, oldest
// first, limited to maxCount
func GetIncrementalEvents(lastEventId int64, maxCount int) ([]model.PromptEvent, error) {
	var events []model.PromptEvent

	err := db.GetDB().
		Where("topic = ? AND id > ?", promptsTopic, lastEventId).
		Order("id ASC").
		Limit(maxCount).
		Find(&events).Error

	if err != nil {
		return nil, fmt.Errorf("failed to query incremental events: %w", err)
	}

	return events, nil
}

// GetLatestEventId retrieves the newest event ID, or 0 when the log is empty
func GetLatestEventId() (int64, error) {
	var event model.PromptEvent

	err := db.GetDB().
		Where("topic = ?", promptsTopic).
		Order("id DESC").
		Limit(1).
		First(&event).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to query latest event: %w", err)
	}

	return event.ID, nil
}
