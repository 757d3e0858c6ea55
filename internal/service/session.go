package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/knowledgerelay/relay/internal/domain"
	"github.com/knowledgerelay/relay/internal/telemetry"
)

// PredefinedQuestions is the canonical onboarding interview, asked in order
// once a project has no pending stored questions left.
var PredefinedQuestions = []string{
	"What is the primary purpose and mission of this project?",
	"What are the key technologies, frameworks, and libraries used in this project?",
	"Describe the overall architecture of the project (e.g., microservices, monolith, database choices).",
	"What is the standard deployment process for this project? (e.g., CI/CD, manual steps, environments)",
	"What are the most common pitfalls, tricky bugs, or unexpected behaviors new developers should be aware of?",
	"Who are the key stakeholders or contact persons for different parts of the project (e.g., frontend, backend, database, infrastructure)?",
	"Are there any specific team conventions, coding standards, or practices unique to this project?",
	"Where can a new developer find important documentation, runbooks, or troubleshooting guides?",
	"What are the major components or modules within the codebase, and what is their responsibility?",
	"Is there anything else critical a new team member should know to get up to speed quickly?",
}

// SessionRepositoryInterface defines the repository interface for session persistence
type SessionRepositoryInterface interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Update(ctx context.Context, s *domain.Session) error
}

// SessionEntryRepository defines the repository interface for the entries a
// session asks and answers
type SessionEntryRepository interface {
	Create(ctx context.Context, e *domain.TextEntry) error
	GetByID(ctx context.Context, id string) (*domain.TextEntry, error)
	UpdateAnswer(ctx context.Context, id, answer string) error
	ListPending(ctx context.Context, projectID, documentID string) ([]*domain.TextEntry, error)
}

// TextGenerator defines the LLM interface for free-text generation
type TextGenerator interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// InterviewState is what the interviewer sees after starting a session or
// submitting an answer
type InterviewState struct {
	SessionID string
	ProjectID string
	Question  string
	EntryID   string // backing pending entry, empty while on the predefined list
	Complete  bool
	Message   string
}

// DocumentQuestion is the next pending question for a document, or the
// terminal no-questions state
type DocumentQuestion struct {
	EntryID     string
	Question    string
	Remaining   int
	NoQuestions bool
	Warnings    []string
}

// SessionService drives interactive interviews. Project-wide sessions walk
// a three-tier question source: pending stored questions, the predefined
// list, then LLM-generated follow-ups. Document Q&A is session-less and
// draws only from that document's pending questions.
type SessionService struct {
	projectRepo IngestionProjectRepository
	docRepo     IngestionDocumentRepository
	sessionRepo SessionRepositoryInterface
	entryRepo   SessionEntryRepository
	index       *IndexManager
	llm         TextGenerator
	uuidGen     UUIDGenerator

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSessionService creates a new SessionService instance
func NewSessionService(
	projectRepo IngestionProjectRepository,
	docRepo IngestionDocumentRepository,
	sessionRepo SessionRepositoryInterface,
	entryRepo SessionEntryRepository,
	index *IndexManager,
	llm TextGenerator,
) *SessionService {
	return &SessionService{
		projectRepo: projectRepo,
		docRepo:     docRepo,
		sessionRepo: sessionRepo,
		entryRepo:   entryRepo,
		index:       index,
		llm:         llm,
		uuidGen:     &DefaultUUIDGenerator{},
		locks:       make(map[string]*sync.Mutex),
	}
}

// WithUUIDGen replaces the id generator (for testing)
func (s *SessionService) WithUUIDGen(gen UUIDGenerator) *SessionService {
	s.uuidGen = gen
	return s
}

// lockSession serializes all transitions for one session id. Concurrent
// answer submissions against the same session queue here; the loser then
// fails the pending-pointer check instead of double-writing.
func (s *SessionService) lockSession(id string) func() {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// StartProjectInterview opens a new interview session and returns its first
// question.
func (s *SessionService) StartProjectInterview(ctx context.Context, projectID string) (*InterviewState, error) {
	ctx, span := telemetry.StartSpan(ctx, "session.start", telemetry.SpanAttributes{ProjectID: projectID})
	defer span.End()

	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:        s.uuidGen.NewString(),
		ProjectID: projectID,
		Status:    domain.SessionStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	state, err := s.selectNextQuestion(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	return state, nil
}

// RespondProjectInterview records an answer for the session's current
// question and advances to the next one.
func (s *SessionService) RespondProjectInterview(ctx context.Context, sessionID, projectID, answer string) (*InterviewState, error) {
	ctx, span := telemetry.StartSpan(ctx, "session.respond", telemetry.SpanAttributes{
		ProjectID: projectID,
		SessionID: sessionID,
	})
	defer span.End()

	if strings.TrimSpace(answer) == "" {
		return nil, domain.ErrMissingAnswer
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ProjectID != projectID {
		return nil, domain.ErrSessionNotFound
	}
	if session.Status == domain.SessionStatusCompleted {
		return nil, domain.ErrSessionCompleted
	}

	question, err := s.recordAnswer(ctx, session, answer)
	if err != nil {
		return nil, err
	}

	session.History = append(session.History, domain.QAExchange{Question: question, Answer: answer})

	state, err := s.selectNextQuestion(ctx, session)
	if err != nil {
		return nil, err
	}

	session.UpdatedAt = time.Now().UTC()
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}
	return state, nil
}

// recordAnswer writes the answer for the session's current question exactly
// once and mirrors it into the vector index, returning the question text
// that was answered.
func (s *SessionService) recordAnswer(ctx context.Context, session *domain.Session, answer string) (string, error) {
	if session.CurrentEntryID != "" {
		entry, err := s.entryRepo.GetByID(ctx, session.CurrentEntryID)
		if err != nil {
			return "", err
		}
		if err := s.entryRepo.UpdateAnswer(ctx, entry.ID, answer); err != nil {
			return "", err
		}
		entry.Answer = answer
		if entry.SourceContext == "" {
			entry.SourceContext = answer
		}
		s.indexAnswer(ctx, entry)
		return entry.Question, nil
	}

	if session.QuestionIndex < len(PredefinedQuestions) {
		question := PredefinedQuestions[session.QuestionIndex]
		session.QuestionIndex++

		entry := &domain.TextEntry{
			ID:            s.uuidGen.NewString(),
			ProjectID:     session.ProjectID,
			Question:      question,
			Answer:        answer,
			SourceContext: answer,
			IsInterview:   true,
			CreatedAt:     time.Now().UTC(),
		}
		if err := s.entryRepo.Create(ctx, entry); err != nil {
			return "", err
		}
		s.indexAnswer(ctx, entry)
		return question, nil
	}

	// Pointer cleared and list exhausted: nothing is currently being asked.
	return "", domain.ErrSessionConflict
}

func (s *SessionService) indexAnswer(ctx context.Context, entry *domain.TextEntry) {
	kind := domain.VectorKindStaticQA
	if entry.IsInterview {
		kind = domain.VectorKindInterviewQA
	}
	err := s.index.AddDocuments(ctx, entry.ProjectID,
		[]string{entry.VectorID()},
		[]string{entry.Answer},
		[]domain.VectorMetadata{{
			Type:          kind,
			ProjectID:     entry.ProjectID,
			DocumentID:    entry.DocumentID,
			Question:      entry.Question,
			Answer:        entry.Answer,
			SourceContext: entry.SourceContext,
		}},
	)
	if err != nil {
		log.Printf("level=warn msg=\"interview answer stored but not indexed\" entry_id=%s error=%v", entry.ID, err)
	}
}

// selectNextQuestion runs the three-tier priority on the session and
// mutates its pointer, index, and status accordingly.
func (s *SessionService) selectNextQuestion(ctx context.Context, session *domain.Session) (*InterviewState, error) {
	pending, err := s.entryRepo.ListPending(ctx, session.ProjectID, "")
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		next := pending[0]
		session.CurrentEntryID = next.ID
		return s.state(session, next.Question, next.ID, "Here's the next question."), nil
	}

	session.CurrentEntryID = ""
	if session.QuestionIndex < len(PredefinedQuestions) {
		question := PredefinedQuestions[session.QuestionIndex]
		return s.state(session, question, "", "Here's the next question."), nil
	}

	question, err := s.generateFollowUp(ctx, session)
	if err != nil {
		log.Printf("level=warn msg=\"follow-up generation failed, completing session\" session_id=%s error=%v", session.ID, err)
		session.Status = domain.SessionStatusCompleted
		return s.state(session, "", "", "All questions answered. Session completed."), nil
	}

	// Persist the generated question so it survives restarts and is picked
	// up as the oldest pending entry on the next transition.
	entry := &domain.TextEntry{
		ID:          s.uuidGen.NewString(),
		ProjectID:   session.ProjectID,
		Question:    question,
		IsInterview: true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	session.CurrentEntryID = entry.ID
	return s.state(session, question, entry.ID, "Here's the next question."), nil
}

const followUpSystemPrompt = "You are an AI assistant helping an experienced developer transfer " +
	"project knowledge. Ask one insightful, open-ended question to extract critical information " +
	"about the project: purpose, architecture, key technologies, deployment, common issues, team " +
	"practices, or important contacts. Avoid questions already covered. Respond with the question " +
	"only, no preamble."

func (s *SessionService) generateFollowUp(ctx context.Context, session *domain.Session) (string, error) {
	if s.llm == nil {
		return "", domain.ErrProviderUnavailable
	}

	var sb strings.Builder
	if len(session.History) == 0 {
		sb.WriteString("No questions asked yet.")
	}
	for _, qa := range session.History {
		fmt.Fprintf(&sb, "Q: %s\nA: %s\n", qa.Question, qa.Answer)
	}

	user := fmt.Sprintf("Here's what we've covered so far:\n%s\nWhat's the next important question to ask about this project?", sb.String())
	question, err := s.llm.GenerateText(ctx, followUpSystemPrompt, user)
	if err != nil {
		return "", err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", domain.ErrProviderUnavailable
	}
	return question, nil
}

func (s *SessionService) state(session *domain.Session, question, entryID, message string) *InterviewState {
	return &InterviewState{
		SessionID: session.ID,
		ProjectID: session.ProjectID,
		Question:  question,
		EntryID:   entryID,
		Complete:  session.Status == domain.SessionStatusCompleted,
		Message:   message,
	}
}

// NextDocumentQuestion returns the oldest pending question for a document,
// or the no-questions terminal state when the document has nothing to ask.
// Document Q&A is session-less: the entry id itself carries the state.
func (s *SessionService) NextDocumentQuestion(ctx context.Context, projectID, documentID string) (*DocumentQuestion, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.ProjectID != projectID {
		return nil, domain.ErrDocumentNotFound
	}

	pending, err := s.entryRepo.ListPending(ctx, projectID, documentID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return &DocumentQuestion{NoQuestions: true}, nil
	}
	return &DocumentQuestion{
		EntryID:   pending[0].ID,
		Question:  pending[0].Question,
		Remaining: len(pending),
	}, nil
}

// AnswerDocumentQuestion answers one pending document question and returns
// the next one. Answering an already-answered entry is a conflict, which
// also serializes concurrent submissions without a session lock.
func (s *SessionService) AnswerDocumentQuestion(ctx context.Context, projectID, documentID, entryID, answer string) (*DocumentQuestion, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, domain.ErrMissingAnswer
	}

	entry, err := s.entryRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.ProjectID != projectID || entry.DocumentID != documentID {
		return nil, domain.ErrEntryNotFound
	}

	if err := s.entryRepo.UpdateAnswer(ctx, entryID, answer); err != nil {
		return nil, err
	}
	entry.Answer = answer
	if entry.SourceContext == "" {
		entry.SourceContext = answer
	}
	s.indexAnswer(ctx, entry)

	next, err := s.NextDocumentQuestion(ctx, projectID, documentID)
	if err != nil {
		return nil, err
	}
	return next, nil
}
