package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContactMode identifies the messaging channel used to reach a student.
type ContactMode string

const (
	ContactModeWhatsApp  ContactMode = "whatsapp"
	ContactModeInstagram ContactMode = "instagram"
)

// ContactModes lists every supported contact mode.
var ContactModes = []ContactMode{ContactModeWhatsApp, ContactModeInstagram}

// Prefix returns the leading character a contact must carry for the mode.
func (m ContactMode) Prefix() string {
	switch m {
	case ContactModeWhatsApp:
		return "+"
	case ContactModeInstagram:
		return "@"
	default:
		return ""
	}
}

// Valid reports whether m is a known mode.
func (m ContactMode) Valid() bool {
	return m.Prefix() != ""
}

// DisplayName is the label shown in lists and messages.
func (m ContactMode) DisplayName() string {
	switch m {
	case ContactModeInstagram:
		return "Instagram"
	default:
		return "WhatsApp"
	}
}

// ParseContactMode decodes a stored mode, falling back to WhatsApp for unknown values.
func ParseContactMode(raw string) ContactMode {
	mode := ContactMode(strings.ToLower(strings.TrimSpace(raw)))
	if !mode.Valid() {
		return ContactModeWhatsApp
	}
	return mode
}

// Scan implements sql.Scanner.
func (m *ContactMode) Scan(src interface{}) error {
	raw, err := scanString(src)
	if err != nil {
		return fmt.Errorf("scan contact mode: %w", err)
	}
	*m = ParseContactMode(raw)
	return nil
}

// Value implements driver.Valuer.
func (m ContactMode) Value() (driver.Value, error) {
	return string(m), nil
}

// ValidationError reports an entity field that breaks a model rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateContact checks the prefix rule for the given mode.
func ValidateContact(mode ContactMode, contact string) error {
	if !mode.Valid() {
		return &ValidationError{Field: "contact_mode", Message: fmt.Sprintf("unsupported contact mode %q", mode)}
	}
	if !strings.HasPrefix(contact, mode.Prefix()) || len(contact) == len(mode.Prefix()) {
		return &ValidationError{
			Field:   "contact",
			Message: fmt.Sprintf("%s contact must start with %q", mode.DisplayName(), mode.Prefix()),
		}
	}
	return nil
}

// Student is a person the coach trains.
type Student struct {
	ID          string      `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	IsMale      bool        `db:"is_male" json:"is_male"`
	ContactMode ContactMode `db:"contact_mode" json:"contact_mode"`
	Contact     string      `db:"contact" json:"contact"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// NewStudent builds a student with a fresh identifier after validating every field.
func NewStudent(name string, isMale bool, mode ContactMode, contact string) (*Student, error) {
	student := &Student{ID: uuid.NewString(), IsMale: isMale}
	if err := student.SetName(name); err != nil {
		return nil, err
	}
	if err := student.SetContact(mode, contact); err != nil {
		return nil, err
	}
	return student, nil
}

// SetName replaces the display name.
func (s *Student) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	s.Name = name
	return nil
}

// SetContact replaces contact mode and handle together; the student is left untouched on error.
func (s *Student) SetContact(mode ContactMode, contact string) error {
	contact = strings.TrimSpace(contact)
	if err := ValidateContact(mode, contact); err != nil {
		return err
	}
	s.ContactMode = mode
	s.Contact = contact
	return nil
}

// Validate re-checks the invariants of a student that may have been mutated field by field.
func (s *Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	return ValidateContact(s.ContactMode, s.Contact)
}

// StudentFilter narrows student queries. The zero value matches every student.
type StudentFilter struct {
	IDs  []string
	Name string
}

func scanString(src interface{}) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported type %T", src)
	}
}
