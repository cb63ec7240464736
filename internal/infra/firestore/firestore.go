// Package firestore stores user stats as Cloud Firestore documents.
// Each user is one document in the configured collection, carrying a version
// field that transactions compare before writing.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hotelops/staffxp/internal/domain"
)

// Options mirrors the [store.firestore] config section.
type Options struct {
	ProjectID       string
	Collection      string
	CredentialsFile string // empty: application default credentials or the emulator
}

// Store implements domain.StatsStore and domain.Leaderboard on Firestore.
type Store struct {
	client     *firestore.Client
	collection string
}

// record is the stored document: the stats plus a version counter.
type record struct {
	domain.UserStats
	Version int64 `firestore:"version"`
}

// Open creates a Firestore client. FIRESTORE_EMULATOR_HOST is honoured by the SDK.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.ProjectID == "" {
		return nil, errors.New("firestore: project id is required")
	}
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, opts.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	coll := opts.Collection
	if coll == "" {
		coll = "user_stats"
	}
	return &Store{client: client, collection: coll}, nil
}

func (s *Store) doc(userID string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(userID)
}

// Load returns the user's document and its version.
func (s *Store) Load(ctx context.Context, userID string) (domain.UserStats, int64, error) {
	snap, err := s.doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.UserStats{}, 0, domain.ErrStatsNotFound
		}
		return domain.UserStats{}, 0, fmt.Errorf("failed to get user stats: %w", err)
	}
	var rec record
	if err := snap.DataTo(&rec); err != nil {
		return domain.UserStats{}, 0, fmt.Errorf("failed to decode user stats: %w", err)
	}
	return rec.UserStats, rec.Version, nil
}

// Save writes the document inside a transaction if the stored version equals expectedVersion.
func (s *Store) Save(ctx context.Context, stats domain.UserStats, expectedVersion int64) (int64, error) {
	if stats.UserID == "" {
		return 0, domain.ErrUserIDRequired
	}
	ref := s.doc(stats.UserID)
	next := expectedVersion + 1

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current int64
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
			current = 0
		case err != nil:
			return err
		default:
			var rec record
			if err := snap.DataTo(&rec); err != nil {
				return fmt.Errorf("failed to decode user stats: %w", err)
			}
			current = rec.Version
		}
		if current != expectedVersion {
			return fmt.Errorf("%w: user %s at version %d, stored %d",
				domain.ErrStatsConflict, stats.UserID, expectedVersion, current)
		}
		return tx.Set(ref, record{UserStats: stats, Version: next})
	})
	if err != nil {
		if errors.Is(err, domain.ErrStatsConflict) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to save user stats: %w", err)
	}
	return next, nil
}

// TopByXP queries the collection ordered by totalXP.
func (s *Store) TopByXP(ctx context.Context, limit int) ([]domain.UserStats, error) {
	iter := s.client.Collection(s.collection).
		OrderBy("totalXP", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var out []domain.UserStats
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate leaderboard: %w", err)
		}
		var rec record
		if err := snap.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode leaderboard row: %w", err)
		}
		out = append(out, rec.UserStats)
	}
	return out, nil
}

// Ping runs a one-document query.
func (s *Store) Ping(ctx context.Context) error {
	iter := s.client.Collection(s.collection).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}
