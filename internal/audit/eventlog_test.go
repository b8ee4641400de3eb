package audit_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classbridge/classbridge-lms/internal/audit"
	"github.com/classbridge/classbridge-lms/internal/db"
)

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer dbh.Close()

	l := audit.NewEventLog(dbh)
	l.Record(ctx, "AttemptSubmitted", "quiz1", map[string]any{"score": 2})
	l.Record(ctx, "SubmissionGraded", "sub1", map[string]any{"grade": 85})
	l.Record(ctx, "InvariantViolation", "quiz2", map[string]string{"detail": "missing lecture"})

	events, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	// newest first
	require.Equal(t, "InvariantViolation", events[0].Type)
	require.Equal(t, "quiz2", events[0].Key)
	require.Contains(t, events[0].DataJSON, "missing lecture")
	require.Equal(t, "AttemptSubmitted", events[2].Type)
}

func TestRecentLimit(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer dbh.Close()

	l := audit.NewEventLog(dbh)
	for i := 0; i < 5; i++ {
		l.Record(ctx, "AttemptSubmitted", "quiz1", nil)
	}
	events, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
}
