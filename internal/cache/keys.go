package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func RequestStatusKey(requestID uuid.UUID) string {
	return fmt.Sprintf("request:%s", requestID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

func ProviderAvailabilityKey(userID uuid.UUID) string {
	return fmt.Sprintf("providers:%s", userID)
}
