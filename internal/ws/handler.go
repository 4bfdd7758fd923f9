package ws

import (
	"encoding/json"
	"log"

	socketio "github.com/googollee/go-socket.io"
	"promptlab/internal/db"
	"promptlab/internal/model"
)

// handleRequestPrompts handles the request:prompts event. Clients send
// the last event id they saw; when the gap is small we replay events,
// otherwise we send the full prompt list.
func handleRequestPrompts(s socketio.Conn, data interface{}) {
	log.Printf("[WebSocket] request:prompts from client %s, data: %v", s.ID(), data)

	var lastEventId int64 = 0
	if dataMap, ok := data.(map[string]interface{}); ok {
		if lastEventIdFloat, ok := dataMap["lastEventId"].(float64); ok {
			lastEventId = int64(lastEventIdFloat)
		}
	}

	if lastEventId > 0 {
		if sendIncrementalUpdates(s, lastEventId) {
			return
		}
		log.Printf("[WebSocket] Incremental updates failed, falling back to full list")
	}

	sendFullPromptsList(s)
}

// sendIncrementalUpdates replays events newer than lastEventId.
// Returns false when the client should get the full list instead.
func sendIncrementalUpdates(s socketio.Conn, lastEventId int64) bool {
	maxCount := 500
	events, err := GetIncrementalEvents(lastEventId, maxCount)
	if err != nil {
		log.Printf("[WebSocket] Failed to query incremental events: %v", err)
		return false
	}

	// Too big a gap; a full list is cheaper than replaying it all
	if len(events) >= maxCount {
		log.Printf("[WebSocket] Too many incremental events (%d), falling back to full list", len(events))
		return false
	}

	if len(events) == 0 {
		latestEventId, _ := GetLatestEventId()
		s.Emit("prompts:initial", map[string]interface{}{
			"items":       []interface{}{},
			"total":       0,
			"lastEventId": latestEventId,
		})
		return true
	}

	log.Printf("[WebSocket] Sending %d incremental events", len(events))
	for _, event := range events {
		var payload interface{}
		if err := json.Unmarshal([]byte(event.Payload), &payload); err != nil {
			log.Printf("[WebSocket] Failed to unmarshal event payload: %v", err)
			continue
		}

		s.Emit("prompts:update", map[string]interface{}{
			"eventId": event.ID,
			"type":    event.EventType,
			"data":    payload,
		})
	}

	return true
}

// sendFullPromptsList sends the complete prompt list to the client
func sendFullPromptsList(s socketio.Conn) {
	query := db.GetDB().Model(&model.Prompt{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Printf("[WebSocket] Failed to count prompts: %v", err)
		s.Emit("error", map[string]interface{}{
			"message": "Failed to query prompts",
		})
		return
	}

	var prompts []model.Prompt
	if err := query.Order("created_at DESC").Limit(10000).Find(&prompts).Error; err != nil {
		log.Printf("[WebSocket] Failed to query prompts: %v", err)
		s.Emit("error", map[string]interface{}{
			"message": "Failed to query prompts",
		})
		return
	}

	latestEventId, _ := GetLatestEventId()

	s.Emit("prompts:initial", map[string]interface{}{
		"items":       prompts,
		"total":       total,
		"lastEventId": latestEventId,
	})

	log.Printf("[WebSocket] Sent full prompts list: total=%d, lastEventId=%d", total, latestEventId)
}
