package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// GenerateID generates a random ID with prefix. Ids are never reused:
// each call draws a fresh UUID.
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// GeneratePeerID generates an ephemeral per-connection peer ID
func GeneratePeerID() string {
	return GenerateID("peer")
}

// GenerateTransportID generates a transport ID
func GenerateTransportID() string {
	return GenerateID("transport")
}

// GenerateProducerID generates a producer ID
func GenerateProducerID() string {
	return GenerateID("producer")
}

// GenerateConsumerID generates a consumer ID
func GenerateConsumerID() string {
	return GenerateID("consumer")
}

// GenerateMessageID generates a chat message ID
func GenerateMessageID() string {
	return GenerateID("msg")
}

// GenerateTraceID generates a unique trace ID
func GenerateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
