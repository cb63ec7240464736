package firestore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelops/staffxp/internal/domain"
	"github.com/hotelops/staffxp/internal/infra/firestore"
)

// These tests need the Firestore emulator:
//
//	gcloud emulators firestore start --host-port=localhost:8686
//	FIRESTORE_EMULATOR_HOST=localhost:8686 go test ./internal/infra/firestore/
func testStore(t *testing.T) *firestore.Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	coll := fmt.Sprintf("stats_test_%d", time.Now().UnixNano())
	store, err := firestore.Open(context.Background(), firestore.Options{ProjectID: "staffxp-test", Collection: coll})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpen_RequiresProject(t *testing.T) {
	_, err := firestore.Open(context.Background(), firestore.Options{})
	assert.Error(t, err)
}

func TestFirestore_RoundTripAndConflict(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, _, err := store.Load(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrStatsNotFound)

	s := domain.NewUserStats("u1")
	s.TotalXP = 80
	s.AvgQualityScore = 85
	s.QualitySubmissionCount = 2
	s.AddBadge("first_audit", time.Now().UTC().Truncate(time.Millisecond))

	v, err := store.Save(ctx, s, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	got, version, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, int64(80), got.TotalXP)
	assert.Equal(t, 85.0, got.AvgQualityScore)
	assert.True(t, got.HasBadge("first_audit"))

	_, err = store.Save(ctx, s, 0)
	assert.ErrorIs(t, err, domain.ErrStatsConflict)
}

func TestFirestore_TopByXP(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for id, xp := range map[string]int64{"a": 10, "b": 30, "c": 20} {
		s := domain.NewUserStats(id)
		s.TotalXP = xp
		_, err := store.Save(ctx, s, 0)
		require.NoError(t, err)
	}

	top, err := store.TopByXP(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].UserID)
	assert.Equal(t, "c", top[1].UserID)
	assert.NoError(t, store.Ping(ctx))
}
