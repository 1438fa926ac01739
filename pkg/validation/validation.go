package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// MeetingIDRegex validates meeting ID format
	MeetingIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// ParticipantIDRegex validates participant ID format
	ParticipantIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

const maxChatMessageLength = 2000

// ValidateMeetingID validates meeting ID format
func ValidateMeetingID(meetingID string) error {
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return fmt.Errorf("meeting_id is required")
	}
	if len(meetingID) > 100 {
		return fmt.Errorf("meeting_id is too long (max 100 characters)")
	}
	if !MeetingIDRegex.MatchString(meetingID) {
		return fmt.Errorf("meeting_id contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidateParticipantID validates participant ID format
func ValidateParticipantID(participantID string) error {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return fmt.Errorf("participant_id is required")
	}
	if len(participantID) > 100 {
		return fmt.Errorf("participant_id is too long (max 100 characters)")
	}
	if !ParticipantIDRegex.MatchString(participantID) {
		return fmt.Errorf("participant_id contains invalid characters")
	}
	return nil
}

// ValidateChatMessage validates chat message content before relay
func ValidateChatMessage(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("message content is required")
	}
	if utf8.RuneCountInString(content) > maxChatMessageLength {
		return fmt.Errorf("message content is too long (max %d characters)", maxChatMessageLength)
	}
	return nil
}

// SanitizeString removes control characters and trims whitespace
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// ValidateQuality validates a network quality score
func ValidateQuality(quality int) error {
	if quality < 1 || quality > 5 {
		return fmt.Errorf("quality must be within 1..5, got %d", quality)
	}
	return nil
}
