package store

import (
	"context"
	"errors"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

// Remote is the per-user document store. Collections are returned in no particular order.
// Writes touch only the addressed document; no method overwrites a whole collection.
type Remote interface {
	// GetProfile returns ErrNotFound when the user document or its profile field is absent.
	GetProfile(ctx context.Context, uid string) (model.Profile, error)
	// SaveProfile merges the non-zero fields of p into the stored profile.
	SaveProfile(ctx context.Context, uid string, p model.Profile) error

	ListEntries(ctx context.Context, uid string) ([]model.DiaryEntry, error)
	PutEntry(ctx context.Context, uid string, e model.DiaryEntry) error
	DeleteEntry(ctx context.Context, uid, entryID string) error

	// ListGems returns gems without their practices.
	ListGems(ctx context.Context, uid string) ([]model.Gem, error)
	// PutGem writes the gem document; practices are stored separately.
	PutGem(ctx context.Context, uid string, g model.Gem) error
	UpdateMastery(ctx context.Context, uid, gemID string, mastery int) error
	// DeleteGem removes the gem together with its own practice records.
	DeleteGem(ctx context.Context, uid, gemID string) error

	ListPractices(ctx context.Context, uid, gemID string) ([]model.PracticeRecord, error)
	AddPractice(ctx context.Context, uid, gemID string, rec model.PracticeRecord) error
	DeletePractices(ctx context.Context, uid, gemID string, ids []string) error

	Ping(ctx context.Context) error
	Close() error
}

// Local is a key/value store of JSON snapshots.
type Local interface {
	// Get decodes the value under key into out, or returns ErrNotFound.
	Get(ctx context.Context, key string, out any) error
	Put(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
	Close() error
}
