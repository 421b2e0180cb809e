package cache

import "fmt"

// RateLimitKey builds the sliding-window counter key for one client.
func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:onboarding:%s", client)
}
