package payutil

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderID returns ORD-<base36 millis>-<8 hex>, upper-cased.
func GenerateOrderID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		u := uuid.New()
		copy(b, u[:4])
	}
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return strings.ToUpper("ORD-" + ts + "-" + hex.EncodeToString(b))
}

func NewTransactionID() string {
	return uuid.NewString()
}
