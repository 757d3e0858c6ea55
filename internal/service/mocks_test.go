package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/knowledgerelay/relay/internal/domain"
)

// MockProjectRepo mocks project lookups
type MockProjectRepo struct {
	mock.Mock
}

func (m *MockProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

// MockDocumentRepo mocks document persistence
type MockDocumentRepo struct {
	mock.Mock
}

func (m *MockDocumentRepo) Create(ctx context.Context, d *domain.DocumentEntry) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepo) GetByID(ctx context.Context, id string) (*domain.DocumentEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentEntry), args.Error(1)
}

// MockSessionRepo mocks session persistence
type MockSessionRepo struct {
	mock.Mock
}

func (m *MockSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepo) Update(ctx context.Context, s *domain.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// MockBlobStore mocks uploaded file persistence
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Put(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *MockBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockLLM mocks the LLM capability across all three generation shapes
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) GenerateText(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

func (m *MockLLM) GenerateChat(ctx context.Context, system string, history []domain.ChatMessage, user string) (string, error) {
	args := m.Called(ctx, system, history, user)
	return args.String(0), args.Error(1)
}

func (m *MockLLM) GenerateStructured(ctx context.Context, system string, history []domain.ChatMessage, user string, out any) error {
	args := m.Called(ctx, system, history, user, out)
	return args.Error(0)
}

// MockEmbedder mocks embedding generation
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// memEntryRepo is an in-memory text entry store for stateful session tests
type memEntryRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.TextEntry
	order   []string
}

func newMemEntryRepo() *memEntryRepo {
	return &memEntryRepo{entries: make(map[string]*domain.TextEntry)}
}

func (r *memEntryRepo) Create(ctx context.Context, e *domain.TextEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *e
	r.entries[e.ID] = &clone
	r.order = append(r.order, e.ID)
	return nil
}

func (r *memEntryRepo) GetByID(ctx context.Context, id string) (*domain.TextEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	clone := *entry
	return &clone, nil
}

func (r *memEntryRepo) UpdateAnswer(ctx context.Context, id, answer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	if entry.Answer != "" {
		return domain.ErrEntryAnswered
	}
	entry.Answer = answer
	if entry.SourceContext == "" {
		entry.SourceContext = answer
	}
	return nil
}

func (r *memEntryRepo) ListPending(ctx context.Context, projectID, documentID string) ([]*domain.TextEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []*domain.TextEntry
	for _, id := range r.order {
		e := r.entries[id]
		if e.ProjectID != projectID || !e.Pending() {
			continue
		}
		if documentID == "" {
			if !e.IsInterview || e.DocumentID != "" {
				continue
			}
		} else if e.DocumentID != documentID {
			continue
		}
		clone := *e
		pending = append(pending, &clone)
	}
	return pending, nil
}

// memVectorStore records upserts and serves canned search results
type memVectorStore struct {
	mu       sync.Mutex
	upserts  map[string][]VectorRecord
	hits     []VectorHit
	failUp   error
	failFind error
}

func newMemVectorStore() *memVectorStore {
	return &memVectorStore{upserts: make(map[string][]VectorRecord)}
}

func (s *memVectorStore) Upsert(ctx context.Context, collection string, records []VectorRecord) error {
	if s.failUp != nil {
		return s.failUp
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts[collection] = append(s.upserts[collection], records...)
	return nil
}

func (s *memVectorStore) Search(ctx context.Context, collection string, query []float32, limit int) ([]VectorHit, error) {
	if s.failFind != nil {
		return nil, s.failFind
	}
	if len(s.hits) > limit {
		return s.hits[:limit], nil
	}
	return s.hits, nil
}

func (s *memVectorStore) DeleteByIDs(ctx context.Context, collection string, ids []string) error {
	return nil
}

func (s *memVectorStore) DeleteCollection(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.upserts, collection)
	return nil
}

// memSessionRepo is an in-memory session store for stateful interview tests
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	updates  int
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *memSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *s
	clone.History = append([]domain.QAExchange(nil), s.History...)
	r.sessions[s.ID] = &clone
	return nil
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	clone := *session
	clone.History = append([]domain.QAExchange(nil), session.History...)
	return &clone, nil
}

func (r *memSessionRepo) Update(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	clone := *s
	clone.History = append([]domain.QAExchange(nil), s.History...)
	r.sessions[s.ID] = &clone
	r.updates++
	return nil
}

// fakeEmbedder returns fixed-size vectors without a provider round-trip
type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i])), 1, 0, 0}
	}
	return vectors, nil
}

// seqUUIDGen yields deterministic ids for assertions
type seqUUIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqUUIDGen) NewString() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%03d", g.n)
}
