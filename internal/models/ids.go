package models

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

var newRandomUUID = uuid.NewRandom

// NewInsightID returns a random UUID, or a time+random composite when the
// system random source is unavailable.
func NewInsightID() string {
	id, err := newRandomUUID()
	if err == nil {
		return id.String()
	}
	return fmt.Sprintf("%x-%x", time.Now().UnixNano(), rand.Uint64())
}
