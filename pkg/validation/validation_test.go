package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMeetingID(t *testing.T) {
	assert.NoError(t, ValidateMeetingID("meeting_abc-123"))
	assert.Error(t, ValidateMeetingID(""))
	assert.Error(t, ValidateMeetingID("   "))
	assert.Error(t, ValidateMeetingID("bad id with spaces"))
	assert.Error(t, ValidateMeetingID(strings.Repeat("a", 101)))
}

func TestValidateParticipantID(t *testing.T) {
	assert.NoError(t, ValidateParticipantID("user_42"))
	assert.Error(t, ValidateParticipantID(""))
	assert.Error(t, ValidateParticipantID("p@rticipant"))
}

func TestValidateChatMessage(t *testing.T) {
	assert.NoError(t, ValidateChatMessage("hello"))
	assert.Error(t, ValidateChatMessage(""))
	assert.Error(t, ValidateChatMessage("   "))
	assert.Error(t, ValidateChatMessage(strings.Repeat("x", 2001)))
	// rune count, not byte count
	assert.NoError(t, ValidateChatMessage(strings.Repeat("я", 2000)))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hello\x00  "))
	assert.Equal(t, "line1\nline2", SanitizeString("line1\nline2"))
}

func TestValidateQuality(t *testing.T) {
	for q := 1; q <= 5; q++ {
		assert.NoError(t, ValidateQuality(q))
	}
	assert.Error(t, ValidateQuality(0))
	assert.Error(t, ValidateQuality(6))
}
