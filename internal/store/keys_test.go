package store_test

import (
	"testing"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestNamespaced(t *testing.T) {
	assert.Equal(t, "museum_entries_u1", store.Namespaced(store.EntriesKey, "u1"))
	assert.Equal(t, "museum_vocab_guest-42", store.Namespaced(store.VocabKey, "guest-42"))
	assert.Equal(t, "museum_profile_u1", store.Namespaced(store.ProfileKey, "u1"))
}
