package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/leadertalk/leadertalk/internal/domain"
	"github.com/leadertalk/leadertalk/internal/llm"
	"github.com/leadertalk/leadertalk/internal/repository"
	"go.uber.org/zap"
)

// answerPromptTemplate is the fixed grounding policy for every answer:
// only the supplied context may be used, answers stay terse, and missing
// context is stated rather than papered over. Not user-configurable.
const answerPromptTemplate = `You are answering questions about %s using only the context provided below.

Rules:
- Answer strictly from the context. Do not use outside knowledge.
- Be terse.
- If the context does not contain the information needed, say so explicitly.
- Do not answer questions unrelated to the context.
- Do not list additional question-and-answer pairs.

Context:
%s

Question: %s

Answer:`

// generationFailedReply is the user-visible text for a failure after a
// stream has already started, where no status code can be sent.
const generationFailedReply = "Sorry, something went wrong while generating the answer. Please try again."

// ChatService is the conversation orchestrator: guardrail, retrieval,
// prompt assembly, generation (batch and streaming), citations and turn
// persistence.
type ChatService struct {
	leaderRepo *repository.LeaderRepository
	turnRepo   *repository.TurnRepository
	retriever  Retriever
	generator  llm.Generator
	topK       int
	logger     *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(
	leaderRepo *repository.LeaderRepository,
	turnRepo *repository.TurnRepository,
	retriever Retriever,
	generator llm.Generator,
	topK int,
	logger *zap.Logger,
) *ChatService {
	if topK <= 0 {
		topK = 3
	}
	return &ChatService{
		leaderRepo: leaderRepo,
		turnRepo:   turnRepo,
		retriever:  retriever,
		generator:  generator,
		topK:       topK,
		logger:     logger,
	}
}

// Chat answers a user message in batch mode: one model call, citations
// appended, turn persisted.
func (s *ChatService) Chat(ctx context.Context, userID, leaderID string, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	sessionID := orNewSession(req.SessionID)

	if reply, intercepted := CheckGuardrail(req.Message); intercepted {
		return &domain.ChatResponse{Response: reply, SessionID: sessionID}, nil
	}

	leader, chunks, err := s.prepare(ctx, leaderID, req.Message)
	if err != nil {
		return nil, err
	}

	answer, err := s.generator.Generate(ctx, buildAnswerPrompt(leader.Name, chunks, req.Message))
	if err != nil {
		return nil, classifyPipelineError(err)
	}

	final := AppendCitations(answer, chunks)
	turnID := s.persistTurn(userID, leaderID, sessionID, req.Message, final)

	return &domain.ChatResponse{
		Response:  final,
		SessionID: sessionID,
		TurnID:    turnID,
	}, nil
}

// ChatStream answers a user message in streaming mode. Each model fragment
// is folded into the running answer and forwarded as a done=false frame;
// after persistence a single done=true frame carries the final
// citation-annotated text. A caller disconnect stops consumption and skips
// persistence.
func (s *ChatService) ChatStream(ctx context.Context, userID, leaderID string, req *domain.ChatRequest) (<-chan domain.StreamFrame, error) {
	sessionID := orNewSession(req.SessionID)

	if reply, intercepted := CheckGuardrail(req.Message); intercepted {
		ch := make(chan domain.StreamFrame, 1)
		ch <- domain.StreamFrame{Content: reply, Done: true, SessionID: sessionID}
		close(ch)
		return ch, nil
	}

	// Resolve and retrieve synchronously so the caller still gets a proper
	// status code before the stream begins.
	leader, chunks, err := s.prepare(ctx, leaderID, req.Message)
	if err != nil {
		return nil, err
	}
	prompt := buildAnswerPrompt(leader.Name, chunks, req.Message)

	ch := make(chan domain.StreamFrame, 16)
	go func() {
		defer close(ch)

		var accumulated string
		relay := func(ctx context.Context, fragment string) error {
			accumulated += fragment
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ch <- domain.StreamFrame{Content: accumulated, Done: false}:
				return nil
			}
		}

		answer, err := s.generator.GenerateStream(ctx, prompt, relay)
		if ctx.Err() != nil {
			// Caller gone: stop pulling, skip persistence
			return
		}
		if err != nil {
			s.logger.Error("streaming generation failed",
				zap.String("leader_id", leaderID), zap.Error(classifyPipelineError(err)))
			ch <- domain.StreamFrame{Content: generationFailedReply, Done: true, SessionID: sessionID}
			return
		}

		final := AppendCitations(answer, chunks)
		s.persistTurn(userID, leaderID, sessionID, req.Message, final)

		select {
		case <-ctx.Done():
		case ch <- domain.StreamFrame{Content: final, Done: true, SessionID: sessionID}:
		}
	}()

	return ch, nil
}

// History lists the persisted turns for (leader, session, user) in
// chronological order.
func (s *ChatService) History(leaderID, sessionID, userID string) ([]*domain.ChatTurn, error) {
	if _, err := s.leader(leaderID); err != nil {
		return nil, err
	}
	return s.turnRepo.List(leaderID, sessionID, userID)
}

// ClearSession deletes the turns for (leader, session, user) and reports
// how many were removed.
func (s *ChatService) ClearSession(leaderID, sessionID, userID string) (int, error) {
	if _, err := s.leader(leaderID); err != nil {
		return 0, err
	}
	return s.turnRepo.Clear(leaderID, sessionID, userID)
}

// prepare resolves the leader and retrieves the grounding chunks.
func (s *ChatService) prepare(ctx context.Context, leaderID, message string) (*domain.Leader, []domain.ScoredChunk, error) {
	leader, err := s.leader(leaderID)
	if err != nil {
		return nil, nil, err
	}

	chunks, err := s.retriever.Retrieve(ctx, leader, message, s.topK)
	if err != nil {
		return nil, nil, classifyPipelineError(err)
	}
	return leader, chunks, nil
}

func (s *ChatService) leader(leaderID string) (*domain.Leader, error) {
	leader, err := s.leaderRepo.Get(leaderID)
	if err != nil {
		return nil, err
	}
	if leader == nil {
		return nil, domain.ErrNotFound
	}
	return leader, nil
}

// persistTurn writes the finished turn. A persistence failure is logged
// only: losing audit history ranks below losing an already-delivered
// answer, so the empty turn id is the only trace the caller sees.
func (s *ChatService) persistTurn(userID, leaderID, sessionID, input, response string) string {
	turnID, err := s.turnRepo.Create(&domain.ChatTurn{
		UserID:     userID,
		LeaderID:   leaderID,
		SessionID:  sessionID,
		UserInput:  input,
		AIResponse: response,
	})
	if err != nil {
		s.logger.Error("failed to persist chat turn",
			zap.String("leader_id", leaderID),
			zap.String("session_id", sessionID),
			zap.Error(err))
		return ""
	}
	return turnID
}

func buildAnswerPrompt(leaderName string, chunks []domain.ScoredChunk, message string) string {
	texts := make([]string, len(chunks))
	for i, sc := range chunks {
		texts[i] = sc.Chunk.Text
	}
	return fmt.Sprintf(answerPromptTemplate, leaderName, strings.Join(texts, "\n\n"), message)
}

func orNewSession(sessionID string) string {
	if sessionID != "" {
		return sessionID
	}
	return uuid.New().String()
}

// classifyPipelineError converts anything the pipeline can fail with into
// one of the user-facing error kinds. Nothing escapes unclassified.
func classifyPipelineError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrKnowledgeBaseUnavailable),
		errors.Is(err, domain.ErrModelUnavailable),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
}
