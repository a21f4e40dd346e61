package domain

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTicketPrefix = "CMP"
	base36Chars         = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewTicketID builds PREFIX-<base36 unix millis>-<4 random base36 chars>,
// uppercased.
func NewTicketID(prefix string, now time.Time) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultTicketPrefix
	}
	stamp := strconv.FormatInt(now.UnixMilli(), 36)
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = base36Chars[rand.IntN(len(base36Chars))]
	}
	return strings.ToUpper(prefix + "-" + stamp + "-" + string(suffix))
}
