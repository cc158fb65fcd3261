package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/weeklyworks-api/internal/models"
	"github.com/noah-isme/weeklyworks-api/migrations"
	"github.com/noah-isme/weeklyworks-api/pkg/config"
	"github.com/noah-isme/weeklyworks-api/pkg/database"
)

func TestStoreAgainstMigratedSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "weeklyworks.db")})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migrations.Up(ctx, db.DB, config.DriverSQLite))

	store := NewStore(db, nil, nil)
	student, err := models.NewStudent("Alice", false, models.ContactModeInstagram, "@alice")
	require.NoError(t, err)
	court := 4
	session := models.NewTrainingSession(student, models.CourtLocationMalaga, &court, models.TimeOfDay(18, 30), models.TimeOfDay(19, 30), models.Thursday, false, true)
	unassigned := models.NewTrainingSession(nil, models.CourtLocationCanningvale, nil, models.TimeOfDay(7, 0), models.TimeOfDay(8, 0), models.Monday, false, false)

	require.NoError(t, store.Insert(student))
	require.NoError(t, store.Insert(session))
	require.NoError(t, store.Insert(unassigned))
	require.NoError(t, store.Save(ctx))

	students, err := store.Students(ctx, models.StudentFilter{Name: "Alice"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "@alice", students[0].Contact)

	sessions, err := store.Sessions(ctx, models.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	byID := map[string]models.TrainingSession{}
	for _, s := range sessions {
		byID[s.ID] = s
	}
	stored := byID[session.ID]
	assert.Equal(t, "Alice", stored.StudentName())
	assert.Equal(t, "Malaga, Court 4", stored.Venue())
	assert.Equal(t, "6:30 PM - 7:30 PM", stored.TimeRange())
	assert.True(t, stored.IsBooked)
	assert.Nil(t, byID[unassigned.ID].Student)

	require.NoError(t, store.Delete(student))
	require.NoError(t, store.Save(ctx))
	sessions, err = store.Sessions(ctx, models.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, unassigned.ID, sessions[0].ID)
}

func TestStoreKeepsInsertionOrderWithinOneSave(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "weeklyworks.db")})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migrations.Up(ctx, db.DB, config.DriverSQLite))

	store := NewStore(db, nil, nil)
	names := []string{"Hana", "Bob", "Zoe", "Alice", "Mia", "Carl", "Ivy", "Dan"}
	for _, name := range names {
		student, err := models.NewStudent(name, false, models.ContactModeWhatsApp, "+61400000000")
		require.NoError(t, err)
		require.NoError(t, store.Insert(student))
	}
	require.NoError(t, store.Save(ctx))

	students, err := store.Students(ctx, models.StudentFilter{})
	require.NoError(t, err)
	got := make([]string, len(students))
	for i, s := range students {
		got[i] = s.Name
	}
	assert.Equal(t, names, got)
}
