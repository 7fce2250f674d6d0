package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/store"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	usersCollection     = "users"
	entriesCollection   = "entries"
	vocabCollection     = "vocab"
	practicesCollection = "practices"
	profileField        = "profile"
)

type Config struct {
	ProjectID       string
	CredentialsFile string
}

// Store implements store.Remote on Cloud Firestore using the layout
// users/{uid} (profile field), users/{uid}/entries/{id}, users/{uid}/vocab/{id}/practices/{id}.
type Store struct {
	client *firestore.Client
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) user(uid string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(uid)
}

func (s *Store) entries(uid string) *firestore.CollectionRef {
	return s.user(uid).Collection(entriesCollection)
}

func (s *Store) vocab(uid string) *firestore.CollectionRef {
	return s.user(uid).Collection(vocabCollection)
}

func (s *Store) practices(uid, gemID string) *firestore.CollectionRef {
	return s.vocab(uid).Doc(gemID).Collection(practicesCollection)
}

type profileDoc struct {
	DisplayName     string   `firestore:"displayName,omitempty"`
	PhotoURL        string   `firestore:"photoURL,omitempty"`
	NativeLanguage  string   `firestore:"nativeLanguage,omitempty"`
	TargetLanguages []string `firestore:"targetLanguages,omitempty"`
	DailyGoal       int      `firestore:"dailyGoal,omitempty"`
	UpdatedAt       int64    `firestore:"updatedAt,omitempty"`
}

func (s *Store) GetProfile(ctx context.Context, uid string) (model.Profile, error) {
	snap, err := s.user(uid).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return model.Profile{}, store.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("get user: %w", err)
	}

	var doc struct {
		Profile *profileDoc `firestore:"profile"`
	}
	if err := snap.DataTo(&doc); err != nil {
		return model.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	if doc.Profile == nil {
		return model.Profile{}, store.ErrNotFound
	}

	p := model.Profile{
		DisplayName:    doc.Profile.DisplayName,
		PhotoURL:       doc.Profile.PhotoURL,
		NativeLanguage: model.Language(doc.Profile.NativeLanguage),
		DailyGoal:      doc.Profile.DailyGoal,
		UpdatedAt:      doc.Profile.UpdatedAt,
	}
	for _, l := range doc.Profile.TargetLanguages {
		p.TargetLanguages = append(p.TargetLanguages, model.Language(l))
	}
	return p, nil
}

func (s *Store) SaveProfile(ctx context.Context, uid string, p model.Profile) error {
	fields := map[string]any{}
	if p.DisplayName != "" {
		fields["displayName"] = p.DisplayName
	}
	if p.PhotoURL != "" {
		fields["photoURL"] = p.PhotoURL
	}
	if p.NativeLanguage != "" {
		fields["nativeLanguage"] = string(p.NativeLanguage)
	}
	if p.TargetLanguages != nil {
		langs := make([]string, 0, len(p.TargetLanguages))
		for _, l := range p.TargetLanguages {
			langs = append(langs, string(l))
		}
		fields["targetLanguages"] = langs
	}
	if p.DailyGoal != 0 {
		fields["dailyGoal"] = p.DailyGoal
	}
	if p.UpdatedAt != 0 {
		fields["updatedAt"] = p.UpdatedAt
	}
	if len(fields) == 0 {
		return nil
	}

	_, err := s.user(uid).Set(ctx, map[string]any{profileField: fields}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("set profile: %w", err)
	}
	return nil
}

type correctionDoc struct {
	Original    string `firestore:"original"`
	Corrected   string `firestore:"corrected"`
	Explanation string `firestore:"explanation"`
	Category    string `firestore:"category,omitempty"`
}

type vocabCandidateDoc struct {
	Word    string `firestore:"word"`
	Meaning string `firestore:"meaning"`
	Usage   string `firestore:"usage"`
	Level   string `firestore:"level"`
}

type analysisDoc struct {
	Summary       string              `firestore:"summary,omitempty"`
	ModifiedText  string              `firestore:"modifiedText,omitempty"`
	Corrections   []correctionDoc     `firestore:"corrections"`
	AdvancedVocab []vocabCandidateDoc `firestore:"advancedVocab"`
}

type iterationDoc struct {
	Text      string       `firestore:"text"`
	Timestamp int64        `firestore:"timestamp"`
	Analysis  *analysisDoc `firestore:"analysis,omitempty"`
}

type rehearsalDoc struct {
	SourceEntryID string   `firestore:"sourceEntryId"`
	AccuracyScore int      `firestore:"accuracyScore"`
	QualityScore  int      `firestore:"qualityScore"`
	Transcript    string   `firestore:"transcript"`
	Feedback      string   `firestore:"feedback"`
	Missed        []string `firestore:"missed,omitempty"`
}

type entryDoc struct {
	Timestamp    int64          `firestore:"timestamp"`
	Language     string         `firestore:"language"`
	Type         string         `firestore:"type"`
	OriginalText string         `firestore:"originalText"`
	Analysis     *analysisDoc   `firestore:"analysis,omitempty"`
	Iterations   []iterationDoc `firestore:"iterations,omitempty"`
	Rehearsal    *rehearsalDoc  `firestore:"rehearsal,omitempty"`
}

func (s *Store) ListEntries(ctx context.Context, uid string) ([]model.DiaryEntry, error) {
	it := s.entries(uid).Documents(ctx)
	defer it.Stop()

	entries := []model.DiaryEntry{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate entries: %w", err)
		}

		var doc entryDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", snap.Ref.ID, err)
		}
		entries = append(entries, entryFromDoc(snap.Ref.ID, doc))
	}
	return entries, nil
}

func (s *Store) PutEntry(ctx context.Context, uid string, e model.DiaryEntry) error {
	if _, err := s.entries(uid).Doc(e.ID).Set(ctx, entryToDoc(e)); err != nil {
		return fmt.Errorf("set entry: %w", err)
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, uid, entryID string) error {
	if _, err := s.entries(uid).Doc(entryID).Delete(ctx); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

type gemDoc struct {
	Word      string `firestore:"word"`
	Meaning   string `firestore:"meaning"`
	Usage     string `firestore:"usage"`
	Level     string `firestore:"level"`
	Language  string `firestore:"language"`
	Mastery   int    `firestore:"mastery"`
	CreatedAt int64  `firestore:"createdAt"`
}

func (s *Store) ListGems(ctx context.Context, uid string) ([]model.Gem, error) {
	it := s.vocab(uid).Documents(ctx)
	defer it.Stop()

	gems := []model.Gem{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate vocab: %w", err)
		}

		var doc gemDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode gem %s: %w", snap.Ref.ID, err)
		}
		gems = append(gems, model.Gem{
			ID:        snap.Ref.ID,
			Word:      doc.Word,
			Meaning:   doc.Meaning,
			Usage:     doc.Usage,
			Level:     doc.Level,
			Language:  model.Language(doc.Language),
			Mastery:   doc.Mastery,
			Practices: []model.PracticeRecord{},
			CreatedAt: doc.CreatedAt,
		})
	}
	return gems, nil
}

func (s *Store) PutGem(ctx context.Context, uid string, g model.Gem) error {
	doc := gemDoc{
		Word:      g.Word,
		Meaning:   g.Meaning,
		Usage:     g.Usage,
		Level:     g.Level,
		Language:  string(g.Language),
		Mastery:   g.Mastery,
		CreatedAt: g.CreatedAt,
	}
	if _, err := s.vocab(uid).Doc(g.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("set gem: %w", err)
	}
	return nil
}

func (s *Store) UpdateMastery(ctx context.Context, uid, gemID string, mastery int) error {
	_, err := s.vocab(uid).Doc(gemID).Update(ctx, []firestore.Update{{Path: "mastery", Value: mastery}})
	if err != nil {
		if isNotFound(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("update mastery: %w", err)
	}
	return nil
}

// DeleteGem removes the practice subcollection first; Firestore does not cascade deletes.
func (s *Store) DeleteGem(ctx context.Context, uid, gemID string) error {
	refs, err := s.practices(uid, gemID).DocumentRefs(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("list practices: %w", err)
	}
	if err := s.deleteAll(ctx, refs); err != nil {
		return err
	}

	if _, err := s.vocab(uid).Doc(gemID).Delete(ctx); err != nil {
		return fmt.Errorf("delete gem: %w", err)
	}
	return nil
}

type practiceDoc struct {
	Status    string `firestore:"status"`
	Timestamp int64  `firestore:"timestamp"`
	Detail    string `firestore:"detail,omitempty"`
}

func (s *Store) ListPractices(ctx context.Context, uid, gemID string) ([]model.PracticeRecord, error) {
	it := s.practices(uid, gemID).Documents(ctx)
	defer it.Stop()

	recs := []model.PracticeRecord{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate practices: %w", err)
		}

		var doc practiceDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode practice %s: %w", snap.Ref.ID, err)
		}
		recs = append(recs, model.PracticeRecord{
			ID:        snap.Ref.ID,
			Status:    model.PracticeStatus(doc.Status),
			Timestamp: doc.Timestamp,
			Detail:    doc.Detail,
		})
	}
	return recs, nil
}

func (s *Store) AddPractice(ctx context.Context, uid, gemID string, rec model.PracticeRecord) error {
	if _, err := s.vocab(uid).Doc(gemID).Get(ctx); err != nil {
		if isNotFound(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("get gem: %w", err)
	}

	_, err := s.practices(uid, gemID).Doc(rec.ID).Create(ctx, practiceDoc{
		Status:    string(rec.Status),
		Timestamp: rec.Timestamp,
		Detail:    rec.Detail,
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return store.ErrExists
		}
		return fmt.Errorf("create practice: %w", err)
	}
	return nil
}

func (s *Store) DeletePractices(ctx context.Context, uid, gemID string, ids []string) error {
	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, s.practices(uid, gemID).Doc(id))
	}
	return s.deleteAll(ctx, refs)
}

func (s *Store) deleteAll(ctx context.Context, refs []*firestore.DocumentRef) error {
	if len(refs) == 0 {
		return nil
	}

	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(refs))
	for _, ref := range refs {
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			return fmt.Errorf("queue delete %s: %w", ref.ID, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil && !isNotFound(err) {
			return fmt.Errorf("delete document: %w", err)
		}
	}
	return nil
}

// Ping reads a document that never exists; only transport or permission failures are reported.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collection(usersCollection).Doc("_ping").Get(ctx)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("ping firestore: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func entryToDoc(e model.DiaryEntry) entryDoc {
	doc := entryDoc{
		Timestamp:    e.Timestamp,
		Language:     string(e.Language),
		Type:         string(e.Type),
		OriginalText: e.OriginalText,
		Analysis:     analysisToDoc(e.Analysis),
	}
	for _, it := range e.Iterations {
		doc.Iterations = append(doc.Iterations, iterationDoc{
			Text:      it.Text,
			Timestamp: it.Timestamp,
			Analysis:  analysisToDoc(it.Analysis),
		})
	}
	if r := e.Rehearsal; r != nil {
		doc.Rehearsal = &rehearsalDoc{
			SourceEntryID: r.SourceEntryID,
			AccuracyScore: r.AccuracyScore,
			QualityScore:  r.QualityScore,
			Transcript:    r.Transcript,
			Feedback:      r.Feedback,
			Missed:        r.Missed,
		}
	}
	return doc
}

func entryFromDoc(id string, doc entryDoc) model.DiaryEntry {
	e := model.DiaryEntry{
		ID:           id,
		Timestamp:    doc.Timestamp,
		Language:     model.Language(doc.Language),
		Type:         model.EntryType(doc.Type),
		OriginalText: doc.OriginalText,
		Analysis:     analysisFromDoc(doc.Analysis),
	}
	if e.Type == "" {
		e.Type = model.EntryDiary
	}
	for _, it := range doc.Iterations {
		e.Iterations = append(e.Iterations, model.Iteration{
			Text:      it.Text,
			Timestamp: it.Timestamp,
			Analysis:  analysisFromDoc(it.Analysis),
		})
	}
	if r := doc.Rehearsal; r != nil {
		e.Rehearsal = &model.RehearsalEvaluation{
			SourceEntryID: r.SourceEntryID,
			AccuracyScore: r.AccuracyScore,
			QualityScore:  r.QualityScore,
			Transcript:    r.Transcript,
			Feedback:      r.Feedback,
			Missed:        r.Missed,
		}
	}
	return e
}

func analysisToDoc(a *model.Analysis) *analysisDoc {
	if a == nil {
		return nil
	}

	doc := &analysisDoc{
		Summary:       a.Summary,
		ModifiedText:  a.ModifiedText,
		Corrections:   make([]correctionDoc, 0, len(a.Corrections)),
		AdvancedVocab: make([]vocabCandidateDoc, 0, len(a.AdvancedVocab)),
	}
	for _, c := range a.Corrections {
		doc.Corrections = append(doc.Corrections, correctionDoc(c))
	}
	for _, v := range a.AdvancedVocab {
		doc.AdvancedVocab = append(doc.AdvancedVocab, vocabCandidateDoc(v))
	}
	return doc
}

func analysisFromDoc(doc *analysisDoc) *model.Analysis {
	if doc == nil {
		return nil
	}

	a := &model.Analysis{
		Summary:       doc.Summary,
		ModifiedText:  doc.ModifiedText,
		Corrections:   make([]model.Correction, 0, len(doc.Corrections)),
		AdvancedVocab: make([]model.VocabCandidate, 0, len(doc.AdvancedVocab)),
	}
	for _, c := range doc.Corrections {
		a.Corrections = append(a.Corrections, model.Correction(c))
	}
	for _, v := range doc.AdvancedVocab {
		a.AdvancedVocab = append(a.AdvancedVocab, model.VocabCandidate(v))
	}
	return a
}
