package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/auth"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/otc"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/store"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/token"
)

// mockRemote keeps documents in memory. The func fields override single methods.
type mockRemote struct {
	mu        sync.Mutex
	profiles  map[string]model.Profile
	entries   map[string]map[string]model.DiaryEntry
	gems      map[string]map[string]model.Gem
	practices map[string]map[string][]model.PracticeRecord

	listEntriesFunc     func(ctx context.Context, uid string) ([]model.DiaryEntry, error)
	putEntryFunc        func(ctx context.Context, uid string, e model.DiaryEntry) error
	putGemFunc          func(ctx context.Context, uid string, g model.Gem) error
	listPracticesFunc   func(ctx context.Context, uid, gemID string) ([]model.PracticeRecord, error)
	deletePracticesFunc func(ctx context.Context, uid, gemID string, ids []string) error
}

func newMockRemote() *mockRemote {
	return &mockRemote{
		profiles:  make(map[string]model.Profile),
		entries:   make(map[string]map[string]model.DiaryEntry),
		gems:      make(map[string]map[string]model.Gem),
		practices: make(map[string]map[string][]model.PracticeRecord),
	}
}

func (m *mockRemote) GetProfile(_ context.Context, uid string) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[uid]
	if !ok {
		return model.Profile{}, store.ErrNotFound
	}
	return p, nil
}

func (m *mockRemote) SaveProfile(_ context.Context, uid string, p model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[uid] = model.MergeProfile(m.profiles[uid], p)
	return nil
}

func (m *mockRemote) ListEntries(ctx context.Context, uid string) ([]model.DiaryEntry, error) {
	if m.listEntriesFunc != nil {
		return m.listEntriesFunc(ctx, uid)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.DiaryEntry
	for _, e := range m.entries[uid] {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (m *mockRemote) PutEntry(ctx context.Context, uid string, e model.DiaryEntry) error {
	if m.putEntryFunc != nil {
		return m.putEntryFunc(ctx, uid, e)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries[uid] == nil {
		m.entries[uid] = make(map[string]model.DiaryEntry)
	}
	m.entries[uid][e.ID] = e.Clone()
	return nil
}

func (m *mockRemote) DeleteEntry(_ context.Context, uid, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries[uid], entryID)
	return nil
}

func (m *mockRemote) ListGems(_ context.Context, uid string) ([]model.Gem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Gem
	for _, g := range m.gems[uid] {
		g.Practices = nil
		out = append(out, g)
	}
	return out, nil
}

func (m *mockRemote) PutGem(ctx context.Context, uid string, g model.Gem) error {
	if m.putGemFunc != nil {
		return m.putGemFunc(ctx, uid, g)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gems[uid] == nil {
		m.gems[uid] = make(map[string]model.Gem)
	}
	g.Practices = nil
	m.gems[uid][g.ID] = g
	return nil
}

func (m *mockRemote) UpdateMastery(_ context.Context, uid, gemID string, mastery int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.gems[uid][gemID]
	if !ok {
		return store.ErrNotFound
	}
	g.Mastery = mastery
	m.gems[uid][gemID] = g
	return nil
}

func (m *mockRemote) DeleteGem(_ context.Context, uid, gemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.gems[uid][gemID]; !ok {
		return store.ErrNotFound
	}
	delete(m.gems[uid], gemID)
	delete(m.practices[uid], gemID)
	return nil
}

func (m *mockRemote) ListPractices(ctx context.Context, uid, gemID string) ([]model.PracticeRecord, error) {
	if m.listPracticesFunc != nil {
		return m.listPracticesFunc(ctx, uid, gemID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.practices[uid][gemID]), nil
}

func (m *mockRemote) AddPractice(_ context.Context, uid, gemID string, rec model.PracticeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.gems[uid][gemID]; !ok {
		return store.ErrNotFound
	}
	if m.practices[uid] == nil {
		m.practices[uid] = make(map[string][]model.PracticeRecord)
	}
	for _, r := range m.practices[uid][gemID] {
		if r.ID == rec.ID {
			return store.ErrExists
		}
	}
	m.practices[uid][gemID] = append(m.practices[uid][gemID], rec)
	return nil
}

func (m *mockRemote) DeletePractices(ctx context.Context, uid, gemID string, ids []string) error {
	if m.deletePracticesFunc != nil {
		return m.deletePracticesFunc(ctx, uid, gemID, ids)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.practices[uid][gemID] = slices.DeleteFunc(m.practices[uid][gemID], func(r model.PracticeRecord) bool {
		return slices.Contains(ids, r.ID)
	})
	return nil
}

func (m *mockRemote) Ping(context.Context) error {
	return nil
}

func (m *mockRemote) Close() error {
	return nil
}

func (m *mockRemote) entryCount(uid string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[uid])
}

func (m *mockRemote) gemCount(uid string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.gems[uid])
}

// mockLocal stores JSON values in memory like the sqlite store does.
type mockLocal struct {
	mu      sync.Mutex
	values  map[string][]byte
	putFunc func(ctx context.Context, key string, v any) error
	getFunc func(ctx context.Context, key string, out any) error
}

func newMockLocal() *mockLocal {
	return &mockLocal{values: make(map[string][]byte)}
}

func (m *mockLocal) Get(ctx context.Context, key string, out any) error {
	if m.getFunc != nil {
		return m.getFunc(ctx, key, out)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.values[key]
	if !ok {
		return store.ErrNotFound
	}
	return json.Unmarshal(b, out)
}

func (m *mockLocal) Put(ctx context.Context, key string, v any) error {
	if m.putFunc != nil {
		return m.putFunc(ctx, key, v)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = b
	return nil
}

func (m *mockLocal) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

func (m *mockLocal) Close() error {
	return nil
}

func (m *mockLocal) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.values[key]
	return ok
}

type mockAnalyzer struct {
	analyzeFunc    func(ctx context.Context, text string, lang model.Language, history []model.DiaryEntry) (model.Analysis, error)
	synthesizeFunc func(ctx context.Context, text string, lang model.Language) (string, error)
	musesFunc      func(ctx context.Context, lang model.Language, day time.Time) ([]model.Muse, error)
	rehearsalFunc  func(ctx context.Context, source, retelling string, lang model.Language) (model.RehearsalEvaluation, error)
	audioFunc      func(ctx context.Context, text string) (string, error)
}

func (m *mockAnalyzer) AnalyzeDiaryEntry(ctx context.Context, text string, lang model.Language, history []model.DiaryEntry) (model.Analysis, error) {
	return m.analyzeFunc(ctx, text, lang, history)
}

func (m *mockAnalyzer) SynthesizeDiary(ctx context.Context, text string, lang model.Language) (string, error) {
	return m.synthesizeFunc(ctx, text, lang)
}

func (m *mockAnalyzer) GenerateDailyMuses(ctx context.Context, lang model.Language, day time.Time) ([]model.Muse, error) {
	return m.musesFunc(ctx, lang, day)
}

func (m *mockAnalyzer) EvaluateRehearsal(ctx context.Context, source, retelling string, lang model.Language) (model.RehearsalEvaluation, error) {
	return m.rehearsalFunc(ctx, source, retelling, lang)
}

func (m *mockAnalyzer) GenerateDiaryAudio(ctx context.Context, text string) (string, error) {
	return m.audioFunc(ctx, text)
}

// wordCounter counts whitespace separated words and gives every unannotated word the reading よみ.
type wordCounter struct{}

func (wordCounter) AnnotateWord(word string) string {
	if model.HasRuby(word) {
		return word
	}
	return "<ruby>" + word + "<rt>よみ</rt></ruby>"
}

func (wordCounter) CountUnits(text string, _ model.Language) int {
	n := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			n++
		}
		inWord = true
	}
	return n
}

type mockIssuer struct {
	issueFunc func(claims token.Claims) (string, time.Time, error)
}

func (m *mockIssuer) Issue(claims token.Claims) (string, time.Time, error) {
	if m.issueFunc != nil {
		return m.issueFunc(claims)
	}
	return "token-" + claims.UID, time.Unix(2000000000, 0), nil
}

type mockRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMockRevoker() *mockRevoker {
	return &mockRevoker{revoked: make(map[string]time.Time)}
}

func (m *mockRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.revoked[tokenID] = until
	return nil
}

func (m *mockRevoker) Revoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.revoked[tokenID]
	return ok, nil
}

type mockAuthenticator struct {
	loginURLFunc func(env auth.Env, provider string) (string, error)
	exchangeFunc func(ctx context.Context, env auth.Env, provider, code, state string) (auth.User, error)
}

func (m *mockAuthenticator) Enabled() bool {
	return true
}

func (m *mockAuthenticator) LoginURL(env auth.Env, provider string) (string, error) {
	return m.loginURLFunc(env, provider)
}

func (m *mockAuthenticator) Exchange(ctx context.Context, env auth.Env, provider, code, state string) (auth.User, error) {
	return m.exchangeFunc(ctx, env, provider, code, state)
}

type mockOTC struct {
	mu     sync.Mutex
	grants map[string]otc.Grant
	next   int
}

func newMockOTC() *mockOTC {
	return &mockOTC{grants: make(map[string]otc.Grant)}
}

func (m *mockOTC) CreateCode(_ context.Context, g otc.Grant) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	code := fmt.Sprintf("code-%d", m.next)
	m.grants[code] = g
	return code, nil
}

func (m *mockOTC) RedeemCode(_ context.Context, code string) (otc.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.grants[code]
	if !ok {
		return otc.Grant{}, otc.ErrCodeNotFound
	}
	delete(m.grants, code)
	return g, nil
}

type mapEnv map[string]string

func (e mapEnv) Save(key, val string) error {
	e[key] = val
	return nil
}

func (e mapEnv) Load(key string) (string, error) {
	return e[key], nil
}

// sequentialIDs returns ids "<prefix>1", "<prefix>2", ...
func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// fixedClock returns a clock that advances by one millisecond per call.
func fixedClock(start int64) func() time.Time {
	var (
		mu sync.Mutex
		ms = start
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		ms++
		return time.UnixMilli(ms)
	}
}
