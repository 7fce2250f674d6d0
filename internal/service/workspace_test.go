package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/serr"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	remoteUser = model.Session{UID: "u1", DisplayName: "Ada"}
	guestUser  = model.Session{UID: "guest-1", DisplayName: "Guest", IsMock: true}
)

func newTestWorkspace(t *testing.T, remote store.Remote, local store.Local, s model.Session) *Workspace {
	t.Helper()

	ws := newWorkspace("client-1", remote, local, 2)
	ws.newID = sequentialIDs("id-")
	ws.now = fixedClock(1_000)

	require.NoError(t, ws.Switch(context.Background(), s))
	return ws
}

func TestIngestVocab_Dedup(t *testing.T) {
	local := newMockLocal()
	ws := newTestWorkspace(t, nil, local, guestUser)
	ctx := context.Background()

	first, err := ws.IngestVocab(ctx, model.English, []model.VocabCandidate{
		{Word: "Serendipity", Meaning: "a happy accident"},
		{Word: " serendipity ", Meaning: "luck"},
	})
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := ws.IngestVocab(ctx, model.English, []model.VocabCandidate{{Word: "SERENDIPITY"}})
	require.NoError(t, err)
	require.Len(t, second, 1)

	gems := ws.Gems(model.English)
	require.Len(t, gems, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, "Serendipity", gems[0].Word)
	assert.Equal(t, "luck", gems[0].Meaning)
	assert.Equal(t, 0, gems[0].Mastery)

	var saved []model.Gem
	require.NoError(t, local.Get(ctx, store.Namespaced(store.VocabKey, guestUser.UID), &saved))
	assert.Len(t, saved, 1)
}

func TestIngestVocab_SameWordOtherLanguage(t *testing.T) {
	ws := newTestWorkspace(t, nil, newMockLocal(), guestUser)
	ctx := context.Background()

	_, err := ws.IngestVocab(ctx, model.English, []model.VocabCandidate{{Word: "radio"}})
	require.NoError(t, err)
	_, err = ws.IngestVocab(ctx, model.Spanish, []model.VocabCandidate{{Word: "radio"}})
	require.NoError(t, err)

	assert.Len(t, ws.Gems(""), 2)
	assert.Len(t, ws.Gems(model.Spanish), 1)
}

func TestIngestVocab_RubyReadingsDoNotDuplicate(t *testing.T) {
	ws := newTestWorkspace(t, nil, newMockLocal(), guestUser)
	ctx := context.Background()

	_, err := ws.IngestVocab(ctx, model.Japanese, []model.VocabCandidate{{Word: "<ruby>勉強<rt>べんきょう</rt></ruby>"}})
	require.NoError(t, err)
	_, err = ws.IngestVocab(ctx, model.Japanese, []model.VocabCandidate{{Word: "勉強"}})
	require.NoError(t, err)

	assert.Len(t, ws.Gems(model.Japanese), 1)
}

func TestUpdateMastery_MissingGemIsNoop(t *testing.T) {
	local := newMockLocal()
	ws := newTestWorkspace(t, nil, local, guestUser)

	g, ok, err := ws.UpdateMastery(context.Background(), "missing", 3, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, g.ID)
	assert.Empty(t, ws.Gems(""))
	assert.False(t, local.has(store.Namespaced(store.VocabKey, guestUser.UID)))
}

func TestUpdateMastery_RemoteGemGone(t *testing.T) {
	remote := newMockRemote()
	ws := newTestWorkspace(t, remote, newMockLocal(), remoteUser)
	ctx := context.Background()

	gems, err := ws.IngestVocab(ctx, model.English, []model.VocabCandidate{{Word: "ephemeral"}})
	require.NoError(t, err)
	require.NoError(t, remote.DeleteGem(ctx, remoteUser.UID, gems[0].ID))

	g, ok, err := ws.UpdateMastery(ctx, gems[0].ID, 2, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, g.Mastery)
}

func TestRecordPractice(t *testing.T) {
	remote := newMockRemote()
	ws := newTestWorkspace(t, remote, newMockLocal(), remoteUser)
	ctx := context.Background()

	gems, err := ws.IngestVocab(ctx, model.English, []model.VocabCandidate{{Word: "ephemeral"}})
	require.NoError(t, err)
	id := gems[0].ID

	g, ok, err := ws.RecordPractice(ctx, id, model.PracticeSuccess, "used it")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, g.Mastery)

	g, _, err = ws.RecordPractice(ctx, id, model.PracticeFailure, "")
	require.NoError(t, err)
	assert.Equal(t, 1, g.Mastery)

	g, _, err = ws.RecordPractice(ctx, id, model.PracticePartial, "")
	require.NoError(t, err)
	assert.Equal(t, 1, g.Mastery)
	require.Len(t, g.Practices, 3)
	assert.Equal(t, model.PracticePartial, g.Practices[0].Status)
	assert.Equal(t, model.PracticeSuccess, g.Practices[2].Status)

	recs, err := remote.ListPractices(ctx, remoteUser.UID, id)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	stored, err := remote.ListGems(ctx, remoteUser.UID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 1, stored[0].Mastery)
}

func TestDeletePractices(t *testing.T) {
	remote := newMockRemote()
	ws := newTestWorkspace(t, remote, newMockLocal(), remoteUser)
	ctx := context.Background()

	gems, err := ws.IngestVocab(ctx, model.English, []model.VocabCandidate{{Word: "ephemeral"}})
	require.NoError(t, err)
	id := gems[0].ID

	for range 3 {
		_, _, err := ws.RecordPractice(ctx, id, model.PracticeSuccess, "")
		require.NoError(t, err)
	}
	g, _ := ws.Gem(id)
	drop := []string{g.Practices[0].ID, g.Practices[2].ID, "unknown"}

	var batched []string
	remote.deletePracticesFunc = func(_ context.Context, _, _ string, ids []string) error {
		batched = ids
		return nil
	}

	g, err = ws.DeletePractices(ctx, id, drop)
	require.NoError(t, err)
	assert.Len(t, g.Practices, 1)
	assert.Equal(t, 3, g.Mastery)
	assert.Equal(t, drop, batched)

	_, err = ws.DeletePractices(ctx, "missing", drop)
	assert.Equal(t, 404, serr.StatusCode(err))
}

func TestDeleteEntry_KeepsGems(t *testing.T) {
	remote := newMockRemote()
	ws := newTestWorkspace(t, remote, newMockLocal(), remoteUser)
	ctx := context.Background()

	e := model.DiaryEntry{ID: "e1", Timestamp: 100, Language: model.English, Type: model.EntryDiary, OriginalText: "text"}
	require.NoError(t, ws.PutEntry(ctx, e))
	_, err := ws.IngestVocab(ctx, model.English, []model.VocabCandidate{{Word: "ephemeral"}})
	require.NoError(t, err)

	require.NoError(t, ws.DeleteEntry(ctx, "e1"))

	assert.Empty(t, ws.Entries(EntryFilter{}))
	assert.Len(t, ws.Gems(""), 1)
	assert.Equal(t, 0, remote.entryCount(remoteUser.UID))
	assert.Equal(t, 1, remote.gemCount(remoteUser.UID))

	err = ws.DeleteEntry(ctx, "e1")
	assert.Equal(t, 404, serr.StatusCode(err))
}

func TestDeleteGem(t *testing.T) {
	remote := newMockRemote()
	ws := newTestWorkspace(t, remote, newMockLocal(), remoteUser)
	ctx := context.Background()

	gems, err := ws.IngestVocab(ctx, model.English, []model.VocabCandidate{{Word: "ephemeral"}})
	require.NoError(t, err)

	require.NoError(t, ws.DeleteGem(ctx, gems[0].ID))
	assert.Empty(t, ws.Gems(""))
	assert.Equal(t, 0, remote.gemCount(remoteUser.UID))

	err = ws.DeleteGem(ctx, gems[0].ID)
	assert.Equal(t, 404, serr.StatusCode(err))
}

func TestLoad_SortsEntriesNewestFirst(t *testing.T) {
	remote := newMockRemote()
	ctx := context.Background()
	for _, e := range []model.DiaryEntry{
		{ID: "a", Timestamp: 300},
		{ID: "b", Timestamp: 100},
		{ID: "c", Timestamp: 200},
	} {
		require.NoError(t, remote.PutEntry(ctx, remoteUser.UID, e))
	}

	ws := newTestWorkspace(t, remote, newMockLocal(), remoteUser)

	var got []int64
	for _, e := range ws.Entries(EntryFilter{}) {
		got = append(got, e.Timestamp)
	}
	assert.Equal(t, []int64{300, 200, 100}, got)
}

func TestLoad_PracticesSecondPass(t *testing.T) {
	remote := newMockRemote()
	ctx := context.Background()
	for _, id := range []string{"g1", "g2", "g3"} {
		require.NoError(t, remote.PutGem(ctx, remoteUser.UID, model.Gem{ID: id, Word: id, Language: model.English}))
	}
	require.NoError(t, remote.AddPractice(ctx, remoteUser.UID, "g2", model.PracticeRecord{ID: "p1", Timestamp: 10}))
	require.NoError(t, remote.AddPractice(ctx, remoteUser.UID, "g2", model.PracticeRecord{ID: "p2", Timestamp: 20}))

	ws := newTestWorkspace(t, remote, newMockLocal(), remoteUser)

	g, ok := ws.Gem("g2")
	require.True(t, ok)
	require.Len(t, g.Practices, 2)
	assert.Equal(t, "p2", g.Practices[0].ID)

	g, _ = ws.Gem("g1")
	assert.NotNil(t, g.Practices)
	assert.Empty(t, g.Practices)
}

func TestLoad_EmptyRemote(t *testing.T) {
	ws := newTestWorkspace(t, newMockRemote(), newMockLocal(), remoteUser)

	assert.Empty(t, ws.Entries(EntryFilter{}))
	assert.Empty(t, ws.Gems(""))
	assert.Equal(t, model.Profile{}, ws.Profile())
	assert.Empty(t, ws.Notices())
}

func TestLoad_ReadErrorKeepsState(t *testing.T) {
	remote := newMockRemote()
	ctx := context.Background()
	require.NoError(t, remote.PutEntry(ctx, remoteUser.UID, model.DiaryEntry{ID: "e1", Timestamp: 1}))

	ws := newTestWorkspace(t, remote, newMockLocal(), remoteUser)
	require.Len(t, ws.Entries(EntryFilter{}), 1)

	remote.listEntriesFunc = func(context.Context, string) ([]model.DiaryEntry, error) {
		return nil, errors.New("unavailable")
	}
	err := ws.Load(ctx)
	require.Error(t, err)

	assert.Len(t, ws.Entries(EntryFilter{}), 1)
	notices := ws.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeRead, notices[0].Kind)

	assert.True(t, ws.DismissNotice(notices[0].ID))
	assert.Empty(t, ws.Notices())
}

func TestLoad_PracticeFetchError(t *testing.T) {
	remote := newMockRemote()
	ctx := context.Background()
	require.NoError(t, remote.PutGem(ctx, remoteUser.UID, model.Gem{ID: "g1", Word: "w"}))
	remote.listPracticesFunc = func(context.Context, string, string) ([]model.PracticeRecord, error) {
		return nil, errors.New("timeout")
	}

	ws := newWorkspace("client-1", remote, newMockLocal(), 2)
	err := ws.Switch(ctx, remoteUser)
	require.Error(t, err)
	assert.Empty(t, ws.Gems(""))
	assert.Len(t, ws.Notices(), 1)
}

func TestPersistFailure_KeepsMemoryState(t *testing.T) {
	remote := newMockRemote()
	remote.putEntryFunc = func(context.Context, string, model.DiaryEntry) error {
		return errors.New("write refused")
	}
	ws := newTestWorkspace(t, remote, newMockLocal(), remoteUser)

	err := ws.PutEntry(context.Background(), model.DiaryEntry{ID: "e1", Timestamp: 5, OriginalText: "hi"})

	var pe *PersistError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Remote)
	assert.Equal(t, "save entry", pe.Op)

	_, ok := ws.Entry("e1")
	assert.True(t, ok)

	notices := ws.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeWrite, notices[0].Kind)
}

func TestLocalPersistFailure(t *testing.T) {
	local := newMockLocal()
	ws := newTestWorkspace(t, nil, local, guestUser)
	local.putFunc = func(context.Context, string, any) error {
		return errors.New("disk full")
	}

	_, err := ws.SaveProfile(context.Background(), model.Profile{DisplayName: "Ada"})

	var pe *PersistError
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.Remote)
	assert.Equal(t, "Ada", ws.Profile().DisplayName)
}

func TestLocalSession_WritesNamespacedSnapshots(t *testing.T) {
	local := newMockLocal()
	remote := newMockRemote()
	ws := newTestWorkspace(t, remote, local, guestUser)
	ctx := context.Background()

	require.NoError(t, ws.PutEntry(ctx, model.DiaryEntry{ID: "e1", Timestamp: 1}))
	require.NoError(t, ws.PutEntry(ctx, model.DiaryEntry{ID: "e2", Timestamp: 2}))

	var saved []model.DiaryEntry
	require.NoError(t, local.Get(ctx, store.Namespaced(store.EntriesKey, guestUser.UID), &saved))
	require.Len(t, saved, 2)
	assert.Equal(t, "e2", saved[0].ID)

	assert.Equal(t, 0, remote.entryCount(guestUser.UID))
}

func TestSwitch_NeverExposesPreviousUser(t *testing.T) {
	local := newMockLocal()
	ctx := context.Background()
	require.NoError(t, local.Put(ctx, store.Namespaced(store.EntriesKey, "guest-a"), []model.DiaryEntry{{ID: "a1", Timestamp: 1}}))
	require.NoError(t, local.Put(ctx, store.Namespaced(store.EntriesKey, "guest-b"), []model.DiaryEntry{{ID: "b1", Timestamp: 1}}))

	ws := newTestWorkspace(t, nil, local, model.Session{UID: "guest-a", IsMock: true})
	require.Len(t, ws.Entries(EntryFilter{}), 1)

	require.NoError(t, ws.Switch(ctx, model.Session{UID: "guest-b", IsMock: true}))

	entries := ws.Entries(EntryFilter{})
	require.Len(t, entries, 1)
	assert.Equal(t, "b1", entries[0].ID)
}

func TestSwitch_StaleLoadIsDiscarded(t *testing.T) {
	remote := newMockRemote()
	ctx := context.Background()
	require.NoError(t, remote.PutEntry(ctx, "old", model.DiaryEntry{ID: "old-entry", Timestamp: 1}))

	started := make(chan struct{})
	unblock := make(chan struct{})
	remote.listEntriesFunc = func(_ context.Context, uid string) ([]model.DiaryEntry, error) {
		if uid == "old" {
			close(started)
			<-unblock
			return []model.DiaryEntry{{ID: "old-entry", Timestamp: 1}}, nil
		}
		return []model.DiaryEntry{{ID: "new-entry", Timestamp: 1}}, nil
	}

	ws := newWorkspace("client-1", remote, newMockLocal(), 2)

	done := make(chan error)
	go func() {
		done <- ws.Switch(ctx, model.Session{UID: "old"})
	}()
	<-started

	require.NoError(t, ws.Switch(ctx, model.Session{UID: "new"}))
	close(unblock)
	require.NoError(t, <-done)

	entries := ws.Entries(EntryFilter{})
	require.Len(t, entries, 1)
	assert.Equal(t, "new-entry", entries[0].ID)
	assert.Equal(t, "new", ws.Session().UID)
}

func TestEnsure_RetriesFailedLoadBeforeWriting(t *testing.T) {
	local := newMockLocal()
	ctx := context.Background()
	key := store.Namespaced(store.EntriesKey, guestUser.UID)
	require.NoError(t, local.Put(ctx, key, []model.DiaryEntry{
		{ID: "old2", Timestamp: 2},
		{ID: "old1", Timestamp: 1},
	}))

	local.getFunc = func(context.Context, string, any) error {
		local.getFunc = nil
		return errors.New("database is locked")
	}

	reg := NewRegistry(nil, local, 2)
	ws, err := reg.Ensure(ctx, "client-1", guestUser)
	require.Error(t, err)
	assert.False(t, ws.Loaded())

	err = ws.PutEntry(ctx, model.DiaryEntry{ID: "new", Timestamp: 3})
	require.ErrorIs(t, err, ErrNotLoaded)
	assert.Equal(t, http.StatusServiceUnavailable, serr.StatusCode(err))

	var stored []model.DiaryEntry
	require.NoError(t, local.Get(ctx, key, &stored))
	require.Len(t, stored, 2)

	ws, err = reg.Ensure(ctx, "client-1", guestUser)
	require.NoError(t, err)
	assert.True(t, ws.Loaded())
	require.Len(t, ws.Entries(EntryFilter{}), 2)

	require.NoError(t, ws.PutEntry(ctx, model.DiaryEntry{ID: "new", Timestamp: 3}))
	require.NoError(t, local.Get(ctx, key, &stored))
	require.Len(t, stored, 3)
	assert.Equal(t, "new", stored[0].ID)
}

func TestClearedSessionRejectsWrites(t *testing.T) {
	ws := newTestWorkspace(t, nil, newMockLocal(), guestUser)
	require.NoError(t, ws.Switch(context.Background(), model.Session{}))

	err := ws.PutEntry(context.Background(), model.DiaryEntry{ID: "e1"})
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Empty(t, ws.Entries(EntryFilter{}))
}

func TestSaveProfile_Merges(t *testing.T) {
	remote := newMockRemote()
	ws := newTestWorkspace(t, remote, newMockLocal(), remoteUser)
	ctx := context.Background()

	_, err := ws.SaveProfile(ctx, model.Profile{DisplayName: "Ada", DailyGoal: 2})
	require.NoError(t, err)
	p, err := ws.SaveProfile(ctx, model.Profile{NativeLanguage: model.English})
	require.NoError(t, err)

	assert.Equal(t, "Ada", p.DisplayName)
	assert.Equal(t, 2, p.DailyGoal)
	assert.Equal(t, model.English, p.NativeLanguage)
	assert.NotZero(t, p.UpdatedAt)

	stored, err := remote.GetProfile(ctx, remoteUser.UID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", stored.DisplayName)
	assert.Equal(t, model.English, stored.NativeLanguage)
}

func TestSaveProfile_RejectsConcurrentSave(t *testing.T) {
	local := newMockLocal()
	ws := newTestWorkspace(t, nil, local, guestUser)
	ctx := context.Background()

	started := make(chan struct{})
	unblock := make(chan struct{})
	local.putFunc = func(context.Context, string, any) error {
		close(started)
		<-unblock
		return nil
	}

	done := make(chan error)
	go func() {
		_, err := ws.SaveProfile(ctx, model.Profile{DisplayName: "Ada"})
		done <- err
	}()
	<-started

	_, err := ws.SaveProfile(ctx, model.Profile{DisplayName: "Grace"})
	assert.ErrorIs(t, err, ErrInFlight)
	assert.Equal(t, http.StatusConflict, serr.StatusCode(err))

	close(unblock)
	require.NoError(t, <-done)
	assert.Equal(t, "Ada", ws.Profile().DisplayName)

	local.putFunc = nil
	p, err := ws.SaveProfile(ctx, model.Profile{DisplayName: "Grace"})
	require.NoError(t, err)
	assert.Equal(t, "Grace", p.DisplayName)
}

func TestEntries_Filter(t *testing.T) {
	ws := newTestWorkspace(t, nil, newMockLocal(), guestUser)
	ctx := context.Background()

	require.NoError(t, ws.PutEntry(ctx, model.DiaryEntry{ID: "e1", Timestamp: 1, Language: model.English, Type: model.EntryDiary}))
	require.NoError(t, ws.PutEntry(ctx, model.DiaryEntry{ID: "e2", Timestamp: 2, Language: model.Japanese, Type: model.EntryDiary}))
	require.NoError(t, ws.PutEntry(ctx, model.DiaryEntry{ID: "e3", Timestamp: 3, Language: model.English, Type: model.EntryRehearsal}))

	assert.Len(t, ws.Entries(EntryFilter{Language: model.English}), 2)
	assert.Len(t, ws.Entries(EntryFilter{Type: model.EntryRehearsal}), 1)
	assert.Len(t, ws.Entries(EntryFilter{}), 3)
}

func TestRecentAnalyzed(t *testing.T) {
	ws := newTestWorkspace(t, nil, newMockLocal(), guestUser)
	ctx := context.Background()

	for i := range 8 {
		e := model.DiaryEntry{
			ID:        string(rune('a' + i)),
			Timestamp: int64(i),
			Language:  model.English,
			Type:      model.EntryDiary,
			Analysis:  &model.Analysis{},
		}
		require.NoError(t, ws.PutEntry(ctx, e))
	}
	require.NoError(t, ws.PutEntry(ctx, model.DiaryEntry{ID: "draft", Timestamp: 100, Language: model.English}))
	require.NoError(t, ws.PutEntry(ctx, model.DiaryEntry{ID: "ja", Timestamp: 101, Language: model.Japanese, Analysis: &model.Analysis{}}))

	recent := ws.RecentAnalyzed(model.English, 5, "h")
	require.Len(t, recent, 5)
	assert.Equal(t, "g", recent[0].ID)
	assert.Equal(t, "c", recent[4].ID)
}

func TestImportLocal(t *testing.T) {
	remote := newMockRemote()
	local := newMockLocal()
	ctx := context.Background()

	require.NoError(t, remote.PutEntry(ctx, remoteUser.UID, model.DiaryEntry{ID: "shared", Timestamp: 10, OriginalText: "remote"}))
	require.NoError(t, remote.PutGem(ctx, remoteUser.UID, model.Gem{ID: "rg", Word: "Ephemeral", Language: model.English, Mastery: 1}))
	require.NoError(t, remote.AddPractice(ctx, remoteUser.UID, "rg", model.PracticeRecord{ID: "p1", Timestamp: 1}))

	from := "guest-7"
	require.NoError(t, local.Put(ctx, store.Namespaced(store.EntriesKey, from), []model.DiaryEntry{
		{ID: "shared", Timestamp: 20, OriginalText: "local"},
		{ID: "only-local", Timestamp: 5},
	}))
	require.NoError(t, local.Put(ctx, store.Namespaced(store.VocabKey, from), []model.Gem{
		{ID: "lg", Word: "ephemeral", Language: model.English, Mastery: 3, Practices: []model.PracticeRecord{
			{ID: "p1", Timestamp: 1},
			{ID: "p2", Timestamp: 2},
		}},
		{ID: "lg2", Word: "lucid", Language: model.English},
	}))

	ws := newTestWorkspace(t, remote, local, remoteUser)

	res, err := ws.ImportLocal(ctx, from)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Entries: 2, Gems: 2, Practices: 1}, res)

	e, ok := ws.Entry("shared")
	require.True(t, ok)
	assert.Equal(t, "local", e.OriginalText)

	g, ok := ws.Gem("rg")
	require.True(t, ok)
	assert.Equal(t, 3, g.Mastery)
	assert.Len(t, g.Practices, 2)
	assert.Len(t, ws.Gems(model.English), 2)

	assert.Equal(t, 2, remote.entryCount(remoteUser.UID))
	assert.Equal(t, 2, remote.gemCount(remoteUser.UID))
	recs, err := remote.ListPractices(ctx, remoteUser.UID, "rg")
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	assert.False(t, local.has(store.Namespaced(store.EntriesKey, from)))
	assert.False(t, local.has(store.Namespaced(store.VocabKey, from)))

	again, err := ws.ImportLocal(ctx, from)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{}, again)
}

func TestImportLocal_RequiresRemoteSession(t *testing.T) {
	ws := newTestWorkspace(t, nil, newMockLocal(), guestUser)

	_, err := ws.ImportLocal(context.Background(), guestUser.UID)
	assert.Equal(t, 409, serr.StatusCode(err))
}
