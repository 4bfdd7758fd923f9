package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Read-through cache of the live (active-version) content per prompt.
// All helpers are no-ops when Redis is not initialized, so callers never
// have to branch on cache availability.

const contentTTL = 10 * time.Minute

func contentKey(promptID string) string {
	return fmt.Sprintf("promptlab:content:%s", promptID)
}

// GetContent returns the cached live content for a prompt, if present
func GetContent(ctx context.Context, promptID string) (string, bool) {
	if Client == nil {
		return "", false
	}
	val, err := Client.Get(ctx, contentKey(promptID)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		// Cache is best-effort: treat errors as a miss
		return "", false
	}
	return val, true
}

// SetContent caches the live content for a prompt
func SetContent(ctx context.Context, promptID, content string) {
	if Client == nil {
		return
	}
	_ = Client.Set(ctx, contentKey(promptID), content, contentTTL).Err()
}

// InvalidateContent drops the cached content for a prompt
func InvalidateContent(ctx context.Context, promptID string) {
	if Client == nil {
		return
	}
	_ = Client.Del(ctx, contentKey(promptID)).Err()
}
