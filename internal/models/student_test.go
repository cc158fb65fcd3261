package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStudentAssignsID(t *testing.T) {
	student, err := NewStudent("Alice", false, ContactModeWhatsApp, "+61400000000")
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, "Alice", student.Name)
	assert.Equal(t, ContactModeWhatsApp, student.ContactMode)
}

func TestNewStudentRejectsMismatchedPrefix(t *testing.T) {
	_, err := NewStudent("Alice", false, ContactModeInstagram, "+61400000000")
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "contact", vErr.Field)

	_, err = NewStudent("  ", false, ContactModeWhatsApp, "+61400000000")
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "name", vErr.Field)
}

func TestSetContactPrefixRule(t *testing.T) {
	cases := []struct {
		mode    ContactMode
		contact string
		ok      bool
	}{
		{ContactModeWhatsApp, "+61400000000", true},
		{ContactModeWhatsApp, "@alice", false},
		{ContactModeWhatsApp, "61400000000", false},
		{ContactModeWhatsApp, "+", false},
		{ContactModeInstagram, "@alice", true},
		{ContactModeInstagram, "+61400000000", false},
		{ContactModeInstagram, "alice", false},
		{ContactMode("sms"), "+61400000000", false},
	}
	for _, tc := range cases {
		student := &Student{ID: "s1", Name: "Alice", ContactMode: ContactModeWhatsApp, Contact: "+6100"}
		err := student.SetContact(tc.mode, tc.contact)
		if tc.ok {
			require.NoError(t, err, "%s %s", tc.mode, tc.contact)
			assert.Equal(t, tc.contact, student.Contact)
			assert.Equal(t, tc.mode, student.ContactMode)
			continue
		}
		require.Error(t, err, "%s %s", tc.mode, tc.contact)
		assert.Equal(t, "+6100", student.Contact, "failed mutation must leave contact untouched")
		assert.Equal(t, ContactModeWhatsApp, student.ContactMode)
	}
}

func TestStudentValidateCatchesDirectMutation(t *testing.T) {
	student, err := NewStudent("Bob", true, ContactModeInstagram, "@bob")
	require.NoError(t, err)
	student.ContactMode = ContactModeWhatsApp
	assert.Error(t, student.Validate())
}

func TestContactModeScanFallback(t *testing.T) {
	var mode ContactMode
	require.NoError(t, mode.Scan([]byte("instagram")))
	assert.Equal(t, ContactModeInstagram, mode)
	require.NoError(t, mode.Scan("carrier-pigeon"))
	assert.Equal(t, ContactModeWhatsApp, mode)
	assert.Error(t, mode.Scan(42))
}
