package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/weeklyworks-api/internal/models"
	appErrors "github.com/noah-isme/weeklyworks-api/pkg/errors"
)

// ContactLink is the deep link a client opens to reach a student. Fallback is empty when the app link is the only option.
type ContactLink struct {
	Mode     models.ContactMode `json:"contact_mode"`
	URL      string             `json:"url"`
	Fallback string             `json:"fallback,omitempty"`
}

// SessionMessage is the confirmation prompt for one session with the link that sends it.
type SessionMessage struct {
	SessionID string      `json:"session_id"`
	Recipient string      `json:"recipient"`
	Text      string      `json:"text"`
	Link      ContactLink `json:"link"`
}

// ComposeMessage builds the confirmation prompt for session.
func ComposeMessage(session *models.TrainingSession) (string, error) {
	if session == nil || session.Student == nil {
		return "", appErrors.ErrMissingStudent
	}
	return fmt.Sprintf(
		"Hi %s,\n\nAre you okay with training at %s on %s from %s to %s?\n\nPlease let me know.",
		session.Student.Name,
		session.Venue(),
		session.DayOfWeek.DisplayName(),
		session.StartTime.Format("3:04 PM"),
		session.EndTime.Format("3:04 PM"),
	), nil
}

// NewContactLink picks the deep link for the student's contact mode. The message is only used by WhatsApp.
func NewContactLink(student *models.Student, message string) (ContactLink, error) {
	if student == nil {
		return ContactLink{}, appErrors.ErrMissingStudent
	}
	switch student.ContactMode {
	case models.ContactModeWhatsApp:
		return ContactLink{
			Mode: student.ContactMode,
			URL:  fmt.Sprintf("whatsapp://send?phone=%s&text=%s", phoneDigits(student.Contact), encodeText(message)),
		}, nil
	case models.ContactModeInstagram:
		handle := strings.TrimPrefix(student.Contact, "@")
		return ContactLink{
			Mode:     student.ContactMode,
			URL:      "instagram://user?username=" + url.QueryEscape(handle),
			Fallback: "https://instagram.com/" + url.PathEscape(handle),
		}, nil
	default:
		return ContactLink{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported contact mode %q", student.ContactMode))
	}
}

func phoneDigits(contact string) string {
	var b strings.Builder
	for _, r := range contact {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func encodeText(message string) string {
	return strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
}

// Message composes the prompt and contact link for a stored session.
func (s *TrainingSessionService) Message(ctx context.Context, id string) (*SessionMessage, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	text, err := ComposeMessage(session)
	if err != nil {
		s.logger.Warn("cannot compose message", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	link, err := NewContactLink(session.Student, text)
	if err != nil {
		return nil, err
	}
	return &SessionMessage{SessionID: session.ID, Recipient: session.Student.Contact, Text: text, Link: link}, nil
}
