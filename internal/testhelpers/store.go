package testhelpers

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/repositories"
)

// SessionStore is an in-memory SessionRepository with the same version
// semantics as the Mongo implementation.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[primitive.ObjectID]models.Session

	// BeforeUpdate runs before the version check of every Update, outside the lock.
	BeforeUpdate func(s *models.Session)
}

var _ repositories.SessionRepository = (*SessionStore)(nil)

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[primitive.ObjectID]models.Session)}
}

func cloneSession(s models.Session) models.Session {
	out := s
	out.Questions = append([]models.Question(nil), s.Questions...)
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	return out
}

func (st *SessionStore) Create(_ context.Context, s *models.Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	if _, exists := st.sessions[s.ID]; exists {
		return repositories.ErrDuplicateKey
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	st.sessions[s.ID] = cloneSession(*s)
	return nil
}

func (st *SessionStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := cloneSession(s)
	return &out, nil
}

func (st *SessionStore) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := []models.Session{}
	for _, s := range st.sessions {
		if s.User != userID {
			continue
		}
		c := cloneSession(s)
		for i := range c.Questions {
			c.Questions[i].UserAnswerText = ""
			c.Questions[i].UserSubmittedCode = ""
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (st *SessionStore) Update(_ context.Context, s *models.Session) error {
	if st.BeforeUpdate != nil {
		st.BeforeUpdate(s)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	stored, ok := st.sessions[s.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if stored.Version != s.Version {
		return repositories.ErrVersionConflict
	}
	s.Version++
	s.UpdatedAt = time.Now().UTC()
	st.sessions[s.ID] = cloneSession(*s)
	return nil
}

func (st *SessionStore) Delete(_ context.Context, id primitive.ObjectID) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(st.sessions, id)
	return nil
}

// Len reports how many sessions are stored.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// UserStore is an in-memory UserRepository enforcing unique emails.
type UserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
}

var _ repositories.UserRepository = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[primitive.ObjectID]models.User)}
}

func (st *UserStore) Create(_ context.Context, u *models.User) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, existing := range st.users {
		if existing.Email == u.Email {
			return repositories.ErrDuplicateKey
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.PreferredRole == "" {
		u.PreferredRole = models.DefaultPreferredRole
	}
	st.users[u.ID] = *u
	return nil
}

func (st *UserStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	u, ok := st.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (st *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, u := range st.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (st *UserStore) Update(_ context.Context, u *models.User) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.users[u.ID]; !ok {
		return repositories.ErrNotFound
	}
	for id, existing := range st.users {
		if id != u.ID && existing.Email == u.Email {
			return repositories.ErrDuplicateKey
		}
	}
	st.users[u.ID] = *u
	return nil
}
