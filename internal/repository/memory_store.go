package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/eduinstitute/liveclass-server/internal/model"
)

type memoryRecord[T any] struct {
	value T
	seq   int64
}

type memoryData struct {
	sessions map[string]memoryRecord[model.LiveSession]
	learners map[string]memoryRecord[model.Learner]
}

func (d *memoryData) clone() *memoryData {
	out := &memoryData{
		sessions: make(map[string]memoryRecord[model.LiveSession], len(d.sessions)),
		learners: make(map[string]memoryRecord[model.Learner], len(d.learners)),
	}
	for id, rec := range d.sessions {
		rec.value = copySession(rec.value)
		out.sessions[id] = rec
	}
	for id, rec := range d.learners {
		rec.value = copyLearner(rec.value)
		out.learners[id] = rec
	}
	return out
}

// MemoryStore keeps everything in process. It serves development and tests;
// WithTx serializes all access for the duration of fn.
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
	seq  int64

	sessions *memoryLiveSessionRepo
	learners *memoryLearnerRepo
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		data: &memoryData{
			sessions: make(map[string]memoryRecord[model.LiveSession]),
			learners: make(map[string]memoryRecord[model.Learner]),
		},
	}
	s.sessions = &memoryLiveSessionRepo{store: s}
	s.learners = &memoryLearnerRepo{store: s}
	return s
}

func (s *MemoryStore) LiveSessions() LiveSessionRepository { return s.sessions }
func (s *MemoryStore) Learners() LearnerRepository         { return s.learners }

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &memoryTx{
		sessions: &memoryLiveSessionRepo{store: s, locked: true},
		learners: &memoryLearnerRepo{store: s, locked: true},
	}

	if err := fn(ctx, tx); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error  { return nil }
func (s *MemoryStore) Close(context.Context) error { return nil }

func (s *MemoryStore) nextSeq() int64 {
	s.seq++
	return s.seq
}

// acquire takes the store lock unless the caller already holds it.
func (s *MemoryStore) acquire(locked bool) func() {
	if locked {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type memoryTx struct {
	sessions LiveSessionRepository
	learners LearnerRepository
}

func (t *memoryTx) LiveSessions() LiveSessionRepository { return t.sessions }
func (t *memoryTx) Learners() LearnerRepository         { return t.learners }

type memoryLiveSessionRepo struct {
	store  *MemoryStore
	locked bool
}

func (r *memoryLiveSessionRepo) List(ctx context.Context) ([]model.LiveSession, error) {
	defer r.store.acquire(r.locked)()
	return r.collect(func(model.LiveSession) bool { return true }), nil
}

func (r *memoryLiveSessionRepo) FindByID(ctx context.Context, id string) (*model.LiveSession, error) {
	defer r.store.acquire(r.locked)()
	return r.get(id), nil
}

func (r *memoryLiveSessionRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.LiveSession, error) {
	return r.FindByID(ctx, id)
}

func (r *memoryLiveSessionRepo) FindByStudent(ctx context.Context, learnerID string) ([]model.LiveSession, error) {
	defer r.store.acquire(r.locked)()
	return r.collect(func(s model.LiveSession) bool { return s.IsEnrolled(learnerID) }), nil
}

func (r *memoryLiveSessionRepo) Create(ctx context.Context, params model.CreateLiveSessionParams) (*model.LiveSession, error) {
	defer r.store.acquire(r.locked)()

	now := time.Now().UTC()
	session := model.LiveSession{
		ID:               params.ID,
		Title:            params.Title,
		Date:             params.Date,
		Time:             params.Time,
		Link:             params.Link,
		Price:            params.Price,
		Status:           params.Status,
		MaxParticipants:  params.MaxParticipants,
		ImageURL:         params.ImageURL,
		Thumbnail:        params.Thumbnail,
		Instructor:       params.Instructor,
		Description:      params.Description,
		Category:         params.Category,
		EnrolledStudents: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.store.data.sessions[session.ID] = memoryRecord[model.LiveSession]{
		value: session,
		seq:   r.store.nextSeq(),
	}

	out := copySession(session)
	return &out, nil
}

func (r *memoryLiveSessionRepo) Update(ctx context.Context, id string, params model.UpdateLiveSessionParams) (*model.LiveSession, error) {
	defer r.store.acquire(r.locked)()
	return r.modify(id, func(s *model.LiveSession) bool {
		s.Title = params.Title
		s.Date = params.Date
		s.Time = params.Time
		s.Link = params.Link
		s.Price = params.Price
		s.Status = params.Status
		s.MaxParticipants = params.MaxParticipants
		s.ImageURL = params.ImageURL
		s.Thumbnail = params.Thumbnail
		s.Instructor = params.Instructor
		s.Description = params.Description
		s.Category = params.Category
		return true
	}), nil
}

func (r *memoryLiveSessionRepo) ToggleStatus(ctx context.Context, id string) (*model.LiveSession, error) {
	defer r.store.acquire(r.locked)()
	return r.modify(id, func(s *model.LiveSession) bool {
		s.Status = s.Status.Toggled()
		return true
	}), nil
}

func (r *memoryLiveSessionRepo) Delete(ctx context.Context, id string) (bool, error) {
	defer r.store.acquire(r.locked)()
	if _, ok := r.store.data.sessions[id]; !ok {
		return false, nil
	}
	delete(r.store.data.sessions, id)
	return true, nil
}

func (r *memoryLiveSessionRepo) AddStudent(ctx context.Context, id string, learnerID string) (*model.LiveSession, error) {
	defer r.store.acquire(r.locked)()
	return r.modify(id, func(s *model.LiveSession) bool {
		if s.IsEnrolled(learnerID) || s.IsFull() {
			return false
		}
		s.EnrolledStudents = append(s.EnrolledStudents, learnerID)
		return true
	}), nil
}

func (r *memoryLiveSessionRepo) RemoveStudent(ctx context.Context, id string, learnerID string) (*model.LiveSession, error) {
	defer r.store.acquire(r.locked)()
	return r.modify(id, func(s *model.LiveSession) bool {
		if !s.IsEnrolled(learnerID) {
			return false
		}
		s.EnrolledStudents = slices.DeleteFunc(s.EnrolledStudents, func(v string) bool { return v == learnerID })
		return true
	}), nil
}

func (r *memoryLiveSessionRepo) get(id string) *model.LiveSession {
	rec, ok := r.store.data.sessions[id]
	if !ok {
		return nil
	}
	out := copySession(rec.value)
	return &out
}

// modify applies fn to a copy and stores it only when fn reports a change.
func (r *memoryLiveSessionRepo) modify(id string, fn func(*model.LiveSession) bool) *model.LiveSession {
	rec, ok := r.store.data.sessions[id]
	if !ok {
		return nil
	}
	session := copySession(rec.value)
	if !fn(&session) {
		return nil
	}
	session.UpdatedAt = time.Now().UTC()
	rec.value = session
	r.store.data.sessions[id] = rec

	out := copySession(session)
	return &out
}

func (r *memoryLiveSessionRepo) collect(keep func(model.LiveSession) bool) []model.LiveSession {
	recs := make([]memoryRecord[model.LiveSession], 0, len(r.store.data.sessions))
	for _, rec := range r.store.data.sessions {
		if keep(rec.value) {
			recs = append(recs, rec)
		}
	}
	slices.SortFunc(recs, func(a, b memoryRecord[model.LiveSession]) int {
		return cmp.Or(
			a.value.Date.Compare(b.value.Date),
			strings.Compare(a.value.Time, b.value.Time),
			cmp.Compare(a.seq, b.seq),
		)
	})

	sessions := make([]model.LiveSession, 0, len(recs))
	for _, rec := range recs {
		sessions = append(sessions, copySession(rec.value))
	}
	return sessions
}

type memoryLearnerRepo struct {
	store  *MemoryStore
	locked bool
}

func (r *memoryLearnerRepo) FindByID(ctx context.Context, id string) (*model.Learner, error) {
	defer r.store.acquire(r.locked)()
	rec, ok := r.store.data.learners[id]
	if !ok {
		return nil, nil
	}
	out := copyLearner(rec.value)
	return &out, nil
}

func (r *memoryLearnerRepo) List(ctx context.Context, limit, offset int) ([]model.Learner, error) {
	defer r.store.acquire(r.locked)()

	recs := make([]memoryRecord[model.Learner], 0, len(r.store.data.learners))
	for _, rec := range r.store.data.learners {
		recs = append(recs, rec)
	}
	// Newest first.
	slices.SortFunc(recs, func(a, b memoryRecord[model.Learner]) int {
		return cmp.Compare(b.seq, a.seq)
	})

	learners := make([]model.Learner, 0, limit)
	for i := offset; i < len(recs) && len(learners) < limit; i++ {
		learners = append(learners, copyLearner(recs[i].value))
	}
	return learners, nil
}

func (r *memoryLearnerRepo) Count(ctx context.Context) (int, error) {
	defer r.store.acquire(r.locked)()
	return len(r.store.data.learners), nil
}

func (r *memoryLearnerRepo) Create(ctx context.Context, params model.CreateLearnerParams) (*model.Learner, error) {
	defer r.store.acquire(r.locked)()

	for _, rec := range r.store.data.learners {
		if rec.value.Email == params.Email {
			return nil, ErrDuplicateEmail
		}
	}

	now := time.Now().UTC()
	learner := model.Learner{
		ID:                   params.ID,
		Name:                 params.Name,
		Email:                params.Email,
		EnrolledLiveSessions: []string{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	r.store.data.learners[learner.ID] = memoryRecord[model.Learner]{
		value: learner,
		seq:   r.store.nextSeq(),
	}

	out := copyLearner(learner)
	return &out, nil
}

func (r *memoryLearnerRepo) AddLiveSession(ctx context.Context, id string, sessionID string) error {
	defer r.store.acquire(r.locked)()
	r.modify(id, func(l *model.Learner) {
		if !l.HasLiveSession(sessionID) {
			l.EnrolledLiveSessions = append(l.EnrolledLiveSessions, sessionID)
		}
	})
	return nil
}

func (r *memoryLearnerRepo) RemoveLiveSession(ctx context.Context, id string, sessionID string) error {
	defer r.store.acquire(r.locked)()
	r.modify(id, func(l *model.Learner) {
		l.EnrolledLiveSessions = slices.DeleteFunc(l.EnrolledLiveSessions, func(v string) bool { return v == sessionID })
	})
	return nil
}

func (r *memoryLearnerRepo) RemoveLiveSessionFromAll(ctx context.Context, sessionID string) (int64, error) {
	defer r.store.acquire(r.locked)()

	var n int64
	for id, rec := range r.store.data.learners {
		if !rec.value.HasLiveSession(sessionID) {
			continue
		}
		r.modify(id, func(l *model.Learner) {
			l.EnrolledLiveSessions = slices.DeleteFunc(l.EnrolledLiveSessions, func(v string) bool { return v == sessionID })
		})
		n++
	}
	return n, nil
}

func (r *memoryLearnerRepo) modify(id string, fn func(*model.Learner)) {
	rec, ok := r.store.data.learners[id]
	if !ok {
		return
	}
	learner := copyLearner(rec.value)
	fn(&learner)
	learner.UpdatedAt = time.Now().UTC()
	rec.value = learner
	r.store.data.learners[id] = rec
}

func copySession(s model.LiveSession) model.LiveSession {
	s.EnrolledStudents = append([]string{}, s.EnrolledStudents...)
	return s
}

func copyLearner(l model.Learner) model.Learner {
	l.EnrolledLiveSessions = append([]string{}, l.EnrolledLiveSessions...)
	return l
}
