package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements UserStore on Google Cloud Firestore. Documents
// live in a single collection keyed by the Google subject id. Writes are
// plain document sets; Firestore's per-document atomicity gives the
// last-write-wins semantics the engine assumes.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

var _ UserStore = (*FirestoreStore)(nil)

// NewFirestoreStore creates a Firestore-backed user store
func NewFirestoreStore(ctx context.Context, projectID, collection string, opts ...option.ClientOption) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &FirestoreStore{
		client:     client,
		collection: collection,
	}, nil
}

// Get fetches the user document for a subject id
func (s *FirestoreStore) Get(ctx context.Context, id string) (*GoogleUser, error) {
	doc, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("fetching user %s: %w", id, err)
	}

	var user GoogleUser
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("unmarshalling user %s: %w", id, err)
	}
	user.ID = id
	return &user, nil
}

// Upsert writes the user document, overwriting any existing record
func (s *FirestoreStore) Upsert(ctx context.Context, user *GoogleUser) error {
	if user.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if _, err := s.client.Collection(s.collection).Doc(user.ID).Set(ctx, user); err != nil {
		return fmt.Errorf("upserting user %s: %w", user.ID, err)
	}
	return nil
}

// ListUsers returns every user document in the collection
func (s *FirestoreStore) ListUsers(ctx context.Context) ([]*GoogleUser, error) {
	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()

	var users []*GoogleUser
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating users: %w", err)
		}

		var user GoogleUser
		if err := doc.DataTo(&user); err != nil {
			return nil, fmt.Errorf("unmarshalling user %s: %w", doc.Ref.ID, err)
		}
		user.ID = doc.Ref.ID
		users = append(users, &user)
	}
	return users, nil
}

// Close releases the Firestore client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
