package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/serr"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultPracticeFetchLimit = 8

type snapshot struct {
	entries []model.DiaryEntry
	gems    []model.Gem
	profile model.Profile
}

// Workspace holds the in-memory entries, gems and profile of one client's active session.
// Mutations update memory first and then persist to the store that owns the session: the remote
// store for signed in sessions, the namespaced local snapshots otherwise.
type Workspace struct {
	clientID   string
	remote     store.Remote
	local      store.Local
	fetchLimit int
	newID      func() string
	now        func() time.Time

	notices  noticeBoard
	inflight *inflight

	// switchMu serializes session switches of this workspace.
	switchMu sync.Mutex

	mu      sync.Mutex
	gen     uint64
	session model.Session
	// loaded is set once the current generation has read its data from the store.
	loaded  bool
	entries []model.DiaryEntry
	gems    []model.Gem
	profile model.Profile

	// persistMu keeps local snapshot writes in order.
	persistMu sync.Mutex
}

func newWorkspace(clientID string, remote store.Remote, local store.Local, fetchLimit int) *Workspace {
	if fetchLimit <= 0 {
		fetchLimit = defaultPracticeFetchLimit
	}

	return &Workspace{
		clientID:   clientID,
		remote:     remote,
		local:      local,
		fetchLimit: fetchLimit,
		newID:      uuid.NewString,
		now:        time.Now,
		inflight:   newInflight(),
	}
}

func (w *Workspace) ClientID() string {
	return w.clientID
}

func (w *Workspace) Session() model.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

func (w *Workspace) remoteOwned(s model.Session) bool {
	return !s.IsMock && w.remote != nil
}

// Switch replaces the active session. The previous session's data is dropped before the new one is
// loaded, so nothing of it is visible once Switch starts.
func (w *Workspace) Switch(ctx context.Context, s model.Session) error {
	w.mu.Lock()
	w.gen++
	w.session = s
	w.loaded = false
	w.entries = nil
	w.gems = nil
	w.profile = model.Profile{}
	w.mu.Unlock()

	w.notices.clear()

	if s.Empty() {
		return nil
	}
	return w.Load(ctx)
}

// setSession updates display fields of the active session without reloading.
func (w *Workspace) setSession(s model.Session) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session.Same(s) {
		w.session = s
	}
}

// Load reads the active session's data from its store. A load that was overtaken by a newer Switch
// discards its result. On a read error the state is left as last loaded.
func (w *Workspace) Load(ctx context.Context) error {
	w.mu.Lock()
	gen, s := w.gen, w.session
	w.mu.Unlock()

	if s.Empty() {
		return noSessionError()
	}

	var (
		snap snapshot
		err  error
	)
	if w.remoteOwned(s) {
		snap, err = w.loadRemote(ctx, s.UID)
	} else {
		snap, err = w.loadLocal(ctx, s.UID)
	}
	if err != nil {
		slog.Error("failed to load workspace",
			"error", err,
			"client_id", w.clientID,
			"uid", s.UID,
			"remote", w.remoteOwned(s))
		w.notices.add(NoticeRead, "Could not load your data. Showing what was loaded before.")
		return fmt.Errorf("load workspace: %w", err)
	}

	if snap.entries == nil {
		snap.entries = []model.DiaryEntry{}
	}
	if snap.gems == nil {
		snap.gems = []model.Gem{}
	}
	model.SortEntries(snap.entries)
	sortGems(snap.gems)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.gen != gen {
		return nil
	}
	w.entries, w.gems, w.profile = snap.entries, snap.gems, snap.profile
	w.loaded = true
	return nil
}

// Loaded reports whether the active session's data has been read from its store.
func (w *Workspace) Loaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loaded
}

// writableLocked rejects mutations until the active session has been loaded. Writing earlier would
// replace stored data that was never read. w.mu must be held.
func (w *Workspace) writableLocked() error {
	if w.session.Empty() {
		return noSessionError()
	}
	if !w.loaded {
		w.notices.add(NoticeWrite, "Your data has not been loaded yet. Changes are paused until it is.")
		return notLoadedError()
	}
	return nil
}

func (w *Workspace) loadRemote(ctx context.Context, uid string) (snapshot, error) {
	var snap snapshot

	p, err := w.remote.GetProfile(ctx, uid)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return snap, fmt.Errorf("get profile: %w", err)
	default:
		snap.profile = p
	}

	snap.entries, err = w.remote.ListEntries(ctx, uid)
	if err != nil {
		return snap, fmt.Errorf("list entries: %w", err)
	}

	snap.gems, err = w.remote.ListGems(ctx, uid)
	if err != nil {
		return snap, fmt.Errorf("list gems: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.fetchLimit)
	for i := range snap.gems {
		g.Go(func() error {
			id := snap.gems[i].ID
			recs, err := w.remote.ListPractices(gctx, uid, id)
			if err != nil {
				return fmt.Errorf("list practices of gem %s: %w", id, err)
			}
			if recs == nil {
				recs = []model.PracticeRecord{}
			}
			model.SortPractices(recs)
			snap.gems[i].Practices = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return snap, err
	}

	return snap, nil
}

func (w *Workspace) loadLocal(ctx context.Context, uid string) (snapshot, error) {
	var snap snapshot

	if err := getLocal(ctx, w.local, store.Namespaced(store.EntriesKey, uid), &snap.entries); err != nil {
		return snap, fmt.Errorf("get entries snapshot: %w", err)
	}
	if err := getLocal(ctx, w.local, store.Namespaced(store.VocabKey, uid), &snap.gems); err != nil {
		return snap, fmt.Errorf("get vocab snapshot: %w", err)
	}
	if err := getLocal(ctx, w.local, store.Namespaced(store.ProfileKey, uid), &snap.profile); err != nil {
		return snap, fmt.Errorf("get profile snapshot: %w", err)
	}

	for i := range snap.gems {
		snap.gems[i] = snap.gems[i].Clone()
		model.SortPractices(snap.gems[i].Practices)
	}

	return snap, nil
}

func getLocal(ctx context.Context, l store.Local, key string, out any) error {
	err := l.Get(ctx, key, out)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// sortGems orders gems newest first.
func sortGems(gems []model.Gem) {
	slices.SortStableFunc(gems, func(a, b model.Gem) int {
		switch {
		case a.CreatedAt > b.CreatedAt:
			return -1
		case a.CreatedAt < b.CreatedAt:
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// change describes what a mutation has to write. remote runs for remote owned sessions; local
// lists the snapshot keys to rewrite otherwise.
type change struct {
	op      string
	gen     uint64
	session model.Session
	snap    snapshot
	remote  func(ctx context.Context, r store.Remote, uid string) error
	local   []string
}

// changeLocked captures the session and, for local sessions, the state to fall back on when the
// workspace has switched away before the write runs. w.mu must be held.
func (w *Workspace) changeLocked(op string, keys ...string) change {
	c := change{
		op:      op,
		gen:     w.gen,
		session: w.session,
		local:   keys,
	}
	if !w.remoteOwned(w.session) {
		c.snap = w.snapshotLocked()
	}
	return c
}

func (w *Workspace) snapshotLocked() snapshot {
	return snapshot{
		entries: slices.Clone(w.entries),
		gems:    slices.Clone(w.gems),
		profile: w.profile,
	}
}

func (w *Workspace) persist(ctx context.Context, c change) error {
	if w.remoteOwned(c.session) {
		if c.remote == nil {
			return nil
		}
		if err := c.remote(ctx, w.remote, c.session.UID); err != nil {
			return w.persistFailed(c, true, err)
		}
		return nil
	}

	w.persistMu.Lock()
	defer w.persistMu.Unlock()

	// The latest state of the same generation supersedes the captured one, so an older write can
	// never land after a newer one.
	snap := c.snap
	w.mu.Lock()
	if w.gen == c.gen {
		snap = w.snapshotLocked()
	}
	w.mu.Unlock()

	for _, key := range c.local {
		var v any
		switch key {
		case store.EntriesKey:
			v = snap.entries
		case store.VocabKey:
			v = snap.gems
		case store.ProfileKey:
			v = snap.profile
		default:
			return fmt.Errorf("unknown snapshot key %q", key)
		}

		if err := w.local.Put(ctx, store.Namespaced(key, c.session.UID), v); err != nil {
			return w.persistFailed(c, false, err)
		}
	}

	return nil
}

func (w *Workspace) persistFailed(c change, remote bool, err error) error {
	slog.Error("failed to persist change",
		"error", err,
		"op", c.op,
		"remote", remote,
		"client_id", w.clientID,
		"uid", c.session.UID)
	w.notices.add(NoticeWrite, fmt.Sprintf("Your last change (%s) was not saved.", c.op))

	return &PersistError{Op: c.op, Remote: remote, Err: err}
}

// EntryFilter narrows Entries. Zero fields match everything.
type EntryFilter struct {
	Language model.Language
	Type     model.EntryType
}

func (f EntryFilter) match(e model.DiaryEntry) bool {
	if f.Language != "" && e.Language != f.Language {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	return true
}

// Entries returns copies of the matching entries, newest first.
func (w *Workspace) Entries(f EntryFilter) []model.DiaryEntry {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := []model.DiaryEntry{}
	for _, e := range w.entries {
		if f.match(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}

func (w *Workspace) Entry(id string) (model.DiaryEntry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.entryIndexLocked(id)
	if i < 0 {
		return model.DiaryEntry{}, false
	}
	return w.entries[i].Clone(), true
}

func (w *Workspace) entryIndexLocked(id string) int {
	return slices.IndexFunc(w.entries, func(e model.DiaryEntry) bool { return e.ID == id })
}

// RecentAnalyzed returns up to n of the most recent analyzed entries in lang, skipping exclude.
func (w *Workspace) RecentAnalyzed(lang model.Language, n int, exclude string) []model.DiaryEntry {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := []model.DiaryEntry{}
	for _, e := range w.entries {
		if len(out) >= n {
			break
		}
		if e.Language != lang || e.ID == exclude || e.Type == model.EntryRehearsal || e.Draft() {
			continue
		}
		out = append(out, e.Clone())
	}
	return out
}

// PutEntry inserts or replaces an entry.
func (w *Workspace) PutEntry(ctx context.Context, e model.DiaryEntry) error {
	e = e.Clone()

	w.mu.Lock()
	if err := w.writableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if i := w.entryIndexLocked(e.ID); i >= 0 {
		w.entries[i] = e
	} else {
		w.entries = append(w.entries, e)
	}
	model.SortEntries(w.entries)
	c := w.changeLocked("save entry", store.EntriesKey)
	w.mu.Unlock()

	c.remote = func(ctx context.Context, r store.Remote, uid string) error {
		return r.PutEntry(ctx, uid, e)
	}
	return w.persist(ctx, c)
}

// UpdateEntry applies fn to the entry with the given id and persists the result. fn works on a copy;
// returning an error leaves the entry unchanged.
func (w *Workspace) UpdateEntry(ctx context.Context, id string, fn func(e *model.DiaryEntry) error) (model.DiaryEntry, error) {
	w.mu.Lock()
	if err := w.writableLocked(); err != nil {
		w.mu.Unlock()
		return model.DiaryEntry{}, err
	}
	i := w.entryIndexLocked(id)
	if i < 0 {
		w.mu.Unlock()
		return model.DiaryEntry{}, entryNotFound(id)
	}
	e := w.entries[i].Clone()
	if err := fn(&e); err != nil {
		w.mu.Unlock()
		return model.DiaryEntry{}, err
	}
	w.entries[i] = e
	model.SortEntries(w.entries)
	c := w.changeLocked("update entry", store.EntriesKey)
	w.mu.Unlock()

	saved := e.Clone()
	c.remote = func(ctx context.Context, r store.Remote, uid string) error {
		return r.PutEntry(ctx, uid, saved)
	}
	return e, w.persist(ctx, c)
}

// DeleteEntry removes an entry. Gems extracted from it are kept.
func (w *Workspace) DeleteEntry(ctx context.Context, id string) error {
	w.mu.Lock()
	if err := w.writableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	i := w.entryIndexLocked(id)
	if i < 0 {
		w.mu.Unlock()
		return entryNotFound(id)
	}
	w.entries = slices.Delete(w.entries, i, i+1)
	c := w.changeLocked("delete entry", store.EntriesKey)
	w.mu.Unlock()

	c.remote = func(ctx context.Context, r store.Remote, uid string) error {
		return r.DeleteEntry(ctx, uid, id)
	}
	return w.persist(ctx, c)
}

// Gems returns copies of the gems in lang, or of all gems when lang is empty.
func (w *Workspace) Gems(lang model.Language) []model.Gem {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := []model.Gem{}
	for _, g := range w.gems {
		if lang == "" || g.Language == lang {
			out = append(out, g.Clone())
		}
	}
	return out
}

func (w *Workspace) Gem(id string) (model.Gem, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.gemIndexLocked(id)
	if i < 0 {
		return model.Gem{}, false
	}
	return w.gems[i].Clone(), true
}

func (w *Workspace) gemIndexLocked(id string) int {
	return slices.IndexFunc(w.gems, func(g model.Gem) bool { return g.ID == id })
}

// IngestVocab adds the candidates to the collection. A candidate whose normalized word already exists
// in lang refreshes that gem instead of creating another one, so ingesting the same batch twice is a
// no-op. It returns the gems the candidates resolved to.
func (w *Workspace) IngestVocab(ctx context.Context, lang model.Language, candidates []model.VocabCandidate) ([]model.Gem, error) {
	w.mu.Lock()
	if err := w.writableLocked(); err != nil {
		w.mu.Unlock()
		return nil, err
	}

	index := make(map[model.GemKey]int, len(w.gems))
	for i, g := range w.gems {
		index[g.Key()] = i
	}

	var (
		changed  []model.Gem
		resolved []model.Gem
		seen     = make(map[string]int)
	)
	track := func(list []model.Gem, pos map[string]int, g model.Gem) []model.Gem {
		if i, ok := pos[g.ID]; ok {
			list[i] = g
			return list
		}
		pos[g.ID] = len(list)
		return append(list, g)
	}
	changedPos := make(map[string]int)

	for _, c := range candidates {
		k := model.GemKey{Word: model.NormalizeWord(c.Word, lang), Language: lang}
		if k.Word == "" {
			continue
		}

		if i, ok := index[k]; ok {
			merged := model.MergeGem(w.gems[i], c)
			if !sameDescription(merged, w.gems[i]) {
				w.gems[i] = merged
				changed = track(changed, changedPos, merged)
			}
			resolved = track(resolved, seen, w.gems[i])
			continue
		}

		g := model.NewGem(c, lang, w.newID(), w.now().UnixMilli())
		w.gems = append(w.gems, g)
		index[k] = len(w.gems) - 1
		changed = track(changed, changedPos, g)
		resolved = track(resolved, seen, g)
	}

	if len(changed) == 0 {
		w.mu.Unlock()
		return cloneGems(resolved), nil
	}

	sortGems(w.gems)
	c := w.changeLocked("save vocabulary", store.VocabKey)
	w.mu.Unlock()

	writes := cloneGems(changed)
	c.remote = func(ctx context.Context, r store.Remote, uid string) error {
		for _, g := range writes {
			if err := r.PutGem(ctx, uid, g); err != nil {
				return fmt.Errorf("put gem %s: %w", g.ID, err)
			}
		}
		return nil
	}
	return cloneGems(resolved), w.persist(ctx, c)
}

func sameDescription(a, b model.Gem) bool {
	return a.Meaning == b.Meaning && a.Usage == b.Usage && a.Level == b.Level
}

func cloneGems(gems []model.Gem) []model.Gem {
	out := make([]model.Gem, len(gems))
	for i, g := range gems {
		out[i] = g.Clone()
	}
	return out
}

// UpdateMastery sets the mastery of a gem and optionally records a practice. An unknown gem id is a
// no-op that reports ok=false.
func (w *Workspace) UpdateMastery(ctx context.Context, gemID string, mastery int, rec *model.PracticeRecord) (model.Gem, bool, error) {
	return w.updateMastery(ctx, gemID, func(int) int { return mastery }, rec)
}

// RecordPractice records a practice outcome and advances the mastery accordingly.
func (w *Workspace) RecordPractice(ctx context.Context, gemID string, status model.PracticeStatus, detail string) (model.Gem, bool, error) {
	rec := model.PracticeRecord{
		ID:        w.newID(),
		Status:    status,
		Timestamp: w.now().UnixMilli(),
		Detail:    detail,
	}
	return w.updateMastery(ctx, gemID, func(current int) int {
		return model.NextMastery(current, status)
	}, &rec)
}

func (w *Workspace) updateMastery(ctx context.Context, gemID string, next func(int) int, rec *model.PracticeRecord) (model.Gem, bool, error) {
	w.mu.Lock()
	if err := w.writableLocked(); err != nil {
		w.mu.Unlock()
		return model.Gem{}, false, err
	}
	i := w.gemIndexLocked(gemID)
	if i < 0 {
		w.mu.Unlock()
		return model.Gem{}, false, nil
	}

	g := w.gems[i].Clone()
	g.Mastery = next(g.Mastery)
	if rec != nil {
		g.PrependPractice(*rec)
	}
	w.gems[i] = g
	c := w.changeLocked("update mastery", store.VocabKey)
	w.mu.Unlock()

	mastery := g.Mastery
	c.remote = func(ctx context.Context, r store.Remote, uid string) error {
		err := r.UpdateMastery(ctx, uid, gemID, mastery)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("update mastery: %w", err)
		}
		if rec == nil {
			return nil
		}

		err = r.AddPractice(ctx, uid, gemID, *rec)
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrExists) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("add practice: %w", err)
		}
		return nil
	}
	return g.Clone(), true, w.persist(ctx, c)
}

// DeletePractices removes practice records of a gem. Unknown record ids are ignored.
func (w *Workspace) DeletePractices(ctx context.Context, gemID string, ids []string) (model.Gem, error) {
	w.mu.Lock()
	if err := w.writableLocked(); err != nil {
		w.mu.Unlock()
		return model.Gem{}, err
	}
	i := w.gemIndexLocked(gemID)
	if i < 0 {
		w.mu.Unlock()
		return model.Gem{}, gemNotFound(gemID)
	}

	g := w.gems[i].Clone()
	g.Practices = slices.DeleteFunc(g.Practices, func(r model.PracticeRecord) bool {
		return slices.Contains(ids, r.ID)
	})
	w.gems[i] = g
	c := w.changeLocked("delete practices", store.VocabKey)
	w.mu.Unlock()

	ids = slices.Clone(ids)
	c.remote = func(ctx context.Context, r store.Remote, uid string) error {
		if len(ids) == 0 {
			return nil
		}
		return r.DeletePractices(ctx, uid, gemID, ids)
	}
	return g.Clone(), w.persist(ctx, c)
}

// DeleteGem removes a gem and its practice records.
func (w *Workspace) DeleteGem(ctx context.Context, gemID string) error {
	w.mu.Lock()
	if err := w.writableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	i := w.gemIndexLocked(gemID)
	if i < 0 {
		w.mu.Unlock()
		return gemNotFound(gemID)
	}
	w.gems = slices.Delete(w.gems, i, i+1)
	c := w.changeLocked("delete gem", store.VocabKey)
	w.mu.Unlock()

	c.remote = func(ctx context.Context, r store.Remote, uid string) error {
		err := r.DeleteGem(ctx, uid, gemID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return w.persist(ctx, c)
}

func (w *Workspace) Profile() model.Profile {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.profile
}

// SaveProfile merges the non-zero fields of patch into the profile. A save submitted while another
// one of the same session is still running is rejected.
func (w *Workspace) SaveProfile(ctx context.Context, patch model.Profile) (model.Profile, error) {
	release, err := w.inflight.acquire("save profile", w.Session().UID)
	if err != nil {
		return model.Profile{}, err
	}
	defer release()

	patch.UpdatedAt = w.now().UnixMilli()

	w.mu.Lock()
	if err := w.writableLocked(); err != nil {
		w.mu.Unlock()
		return model.Profile{}, err
	}
	w.profile = model.MergeProfile(w.profile, patch)
	p := w.profile
	c := w.changeLocked("save profile", store.ProfileKey)
	w.mu.Unlock()

	c.remote = func(ctx context.Context, r store.Remote, uid string) error {
		return r.SaveProfile(ctx, uid, patch)
	}
	return p, w.persist(ctx, c)
}

func (w *Workspace) Notices() []Notice {
	return w.notices.list()
}

func (w *Workspace) DismissNotice(id string) bool {
	return w.notices.dismiss(id)
}

// ImportResult counts what ImportLocal wrote to the remote store.
type ImportResult struct {
	Entries   int `json:"entries"`
	Gems      int `json:"gems"`
	Practices int `json:"practices"`
}

type practiceWrite struct {
	gemID string
	rec   model.PracticeRecord
}

// ImportLocal merges the local snapshots stored under fromUID into the active remote session.
// Entries are matched by id and the newer timestamp wins; gems are matched by normalized word,
// keep the higher mastery and the union of practices. The local snapshots are removed once every
// write succeeded.
func (w *Workspace) ImportLocal(ctx context.Context, fromUID string) (ImportResult, error) {
	s := w.Session()
	if s.Empty() {
		return ImportResult{}, noSessionError()
	}
	if !w.remoteOwned(s) {
		return ImportResult{}, serr.Conflict(ErrRemoteUnavailable, "import requires a signed in session")
	}

	src, err := w.loadLocal(ctx, fromUID)
	if err != nil {
		w.notices.add(NoticeRead, "Could not read the local data to import.")
		return ImportResult{}, fmt.Errorf("load local snapshot: %w", err)
	}

	w.mu.Lock()
	if !w.session.Same(s) {
		w.mu.Unlock()
		return ImportResult{}, noSessionError()
	}
	if err := w.writableLocked(); err != nil {
		w.mu.Unlock()
		return ImportResult{}, err
	}

	var (
		entries   []model.DiaryEntry
		gems      []model.Gem
		practices []practiceWrite
	)

	for _, e := range src.entries {
		i := w.entryIndexLocked(e.ID)
		switch {
		case i < 0:
			w.entries = append(w.entries, e.Clone())
		case e.Timestamp > w.entries[i].Timestamp:
			w.entries[i] = e.Clone()
		default:
			continue
		}
		entries = append(entries, e.Clone())
	}
	model.SortEntries(w.entries)

	index := make(map[model.GemKey]int, len(w.gems))
	for i, g := range w.gems {
		index[g.Key()] = i
	}
	for _, lg := range src.gems {
		i, ok := index[lg.Key()]
		if !ok {
			if w.gemIndexLocked(lg.ID) >= 0 {
				lg.ID = w.newID()
			}
			g := lg.Clone()
			w.gems = append(w.gems, g)
			index[g.Key()] = len(w.gems) - 1
			gems = append(gems, g.Clone())
			for _, rec := range g.Practices {
				practices = append(practices, practiceWrite{gemID: g.ID, rec: rec})
			}
			continue
		}

		g := w.gems[i].Clone()
		dirty := false
		if lg.Mastery > g.Mastery {
			g.Mastery = lg.Mastery
			dirty = true
		}
		for _, rec := range lg.Practices {
			if slices.ContainsFunc(g.Practices, func(r model.PracticeRecord) bool { return r.ID == rec.ID }) {
				continue
			}
			g.Practices = append(g.Practices, rec)
			practices = append(practices, practiceWrite{gemID: g.ID, rec: rec})
			dirty = true
		}
		if !dirty {
			continue
		}
		model.SortPractices(g.Practices)
		w.gems[i] = g
		gems = append(gems, g.Clone())
	}
	sortGems(w.gems)
	w.mu.Unlock()

	res := ImportResult{Entries: len(entries), Gems: len(gems), Practices: len(practices)}
	c := change{op: "import local data", session: s}

	for _, e := range entries {
		if err := w.remote.PutEntry(ctx, s.UID, e); err != nil {
			return res, w.persistFailed(c, true, fmt.Errorf("put entry %s: %w", e.ID, err))
		}
	}
	for _, g := range gems {
		if err := w.remote.PutGem(ctx, s.UID, g); err != nil {
			return res, w.persistFailed(c, true, fmt.Errorf("put gem %s: %w", g.ID, err))
		}
	}
	for _, p := range practices {
		err := w.remote.AddPractice(ctx, s.UID, p.gemID, p.rec)
		if err != nil && !errors.Is(err, store.ErrExists) {
			return res, w.persistFailed(c, true, fmt.Errorf("add practice %s: %w", p.rec.ID, err))
		}
	}

	for _, key := range []string{store.EntriesKey, store.VocabKey} {
		if err := w.local.Delete(ctx, store.Namespaced(key, fromUID)); err != nil {
			slog.Warn("failed to remove imported snapshot", "error", err, "key", key, "uid", fromUID)
		}
	}

	slog.Info("imported local data",
		"client_id", w.clientID,
		"uid", s.UID,
		"from_uid", fromUID,
		"entries", res.Entries,
		"gems", res.Gems,
		"practices", res.Practices)

	return res, nil
}
