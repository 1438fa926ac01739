package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"meetrix/internal/core/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrWrongMeeting = errors.New("token issued for another meeting")
)

// SessionClaims is the payload of a meeting session token. One token
// admits one participant to one meeting for its TTL.
type SessionClaims struct {
	ParticipantID domain.ParticipantID `json:"participant_id"`
	DisplayName   string               `json:"display_name"`
	Role          domain.Role          `json:"role"`
	MeetingID     domain.MeetingID     `json:"meeting_id"`
	jwt.RegisteredClaims
}

type AuthService interface {
	GenerateSessionToken(meetingID domain.MeetingID, participantID domain.ParticipantID, displayName string, role domain.Role) (string, error)
	ValidateSessionToken(tokenString string) (*SessionClaims, error)
	ValidateForMeeting(tokenString string, meetingID domain.MeetingID) (*SessionClaims, error)
}

type authService struct {
	jwtSecret  []byte
	sessionTTL time.Duration
}

func NewAuthService(jwtSecret string, sessionTTL time.Duration) AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 4 * time.Hour
	}
	return &authService{
		jwtSecret:  []byte(jwtSecret),
		sessionTTL: sessionTTL,
	}
}

func (s *authService) GenerateSessionToken(meetingID domain.MeetingID, participantID domain.ParticipantID, displayName string, role domain.Role) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		ParticipantID: participantID,
		DisplayName:   displayName,
		Role:          role,
		MeetingID:     meetingID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(participantID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *authService) ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ParticipantID == "" || claims.MeetingID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) ValidateForMeeting(tokenString string, meetingID domain.MeetingID) (*SessionClaims, error) {
	claims, err := s.ValidateSessionToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.MeetingID != meetingID {
		return nil, ErrWrongMeeting
	}
	return claims, nil
}
