package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leadertalk/leadertalk/internal/domain"
	"github.com/leadertalk/leadertalk/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepos(t *testing.T) (*repository.LeaderRepository, *repository.TurnRepository) {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewLeaderRepository(db), repository.NewTurnRepository(db)
}

func newIndexedLeader(t *testing.T, leaderRepo *repository.LeaderRepository, name string) *domain.Leader {
	t.Helper()
	leader := &domain.Leader{Name: name, IndexBlobRef: "test.idx"}
	require.NoError(t, leaderRepo.Create(leader))
	return leader
}

func adaChunks() []domain.ScoredChunk {
	return []domain.ScoredChunk{{
		Chunk: domain.Chunk{
			Text:        "Ada invented the analytical engine notes",
			SourceLabel: "ada.pdf",
			Page:        3,
		},
		Score: 0.92,
	}}
}

func TestChatAppendsCitationsAndPersistsTurn(t *testing.T) {
	leaderRepo, turnRepo := newTestRepos(t)
	leader := newIndexedLeader(t, leaderRepo, "Ada")

	gen := &fakeGenerator{response: "Ada wrote the analytical engine notes."}
	svc := NewChatService(leaderRepo, turnRepo, &fakeRetriever{chunks: adaChunks()}, gen, 3, zap.NewNop())

	resp, err := svc.Chat(context.Background(), "user-1", leader.ID, &domain.ChatRequest{
		Message: "What did Ada write?",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(resp.Response, "Citations:\nada.pdf, page 3"), "got %q", resp.Response)
	assert.NotEmpty(t, resp.SessionID, "session id must be minted when absent")
	assert.NotEmpty(t, resp.TurnID)

	turns, err := turnRepo.List(leader.ID, resp.SessionID, "user-1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "What did Ada write?", turns[0].UserInput)
	assert.Equal(t, resp.Response, turns[0].AIResponse)
}

func TestChatKeepsCallerSessionID(t *testing.T) {
	leaderRepo, turnRepo := newTestRepos(t)
	leader := newIndexedLeader(t, leaderRepo, "Ada")

	svc := NewChatService(leaderRepo, turnRepo, &fakeRetriever{chunks: adaChunks()},
		&fakeGenerator{response: "answer"}, 3, zap.NewNop())

	resp, err := svc.Chat(context.Background(), "user-1", leader.ID, &domain.ChatRequest{
		Message:   "What did Ada write?",
		SessionID: "session-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "session-42", resp.SessionID)
}

func TestChatGuardrailSkipsRetrievalAndPersistence(t *testing.T) {
	leaderRepo, turnRepo := newTestRepos(t)
	leader := newIndexedLeader(t, leaderRepo, "Ada")

	retriever := &fakeRetriever{chunks: adaChunks()}
	svc := NewChatService(leaderRepo, turnRepo, retriever, &fakeGenerator{response: "unused"}, 3, zap.NewNop())

	resp, err := svc.Chat(context.Background(), "user-1", leader.ID, &domain.ChatRequest{
		Message:   "thanks",
		SessionID: "s1",
	})
	require.NoError(t, err)
	assert.Equal(t, "You're welcome!", resp.Response)
	assert.Empty(t, resp.TurnID)
	assert.Zero(t, retriever.calls, "guardrail must short-circuit before retrieval")

	turns, err := turnRepo.List(leader.ID, "s1", "user-1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestChatKnowledgeBaseUnavailable(t *testing.T) {
	leaderRepo, turnRepo := newTestRepos(t)
	leader := newIndexedLeader(t, leaderRepo, "Ada")

	retriever := &fakeRetriever{err: fmt.Errorf("%w: no index", domain.ErrKnowledgeBaseUnavailable)}
	svc := NewChatService(leaderRepo, turnRepo, retriever, &fakeGenerator{response: "unused"}, 3, zap.NewNop())

	_, err := svc.Chat(context.Background(), "user-1", leader.ID, &domain.ChatRequest{
		Message:   "What did Ada write?",
		SessionID: "s1",
	})
	assert.ErrorIs(t, err, domain.ErrKnowledgeBaseUnavailable)

	turns, err := turnRepo.List(leader.ID, "s1", "user-1")
	require.NoError(t, err)
	assert.Empty(t, turns, "no turn may be persisted on failure")
}

func TestChatLeaderNotFound(t *testing.T) {
	leaderRepo, turnRepo := newTestRepos(t)
	svc := NewChatService(leaderRepo, turnRepo, &fakeRetriever{}, &fakeGenerator{}, 3, zap.NewNop())

	_, err := svc.Chat(context.Background(), "user-1", "missing", &domain.ChatRequest{
		Message: "What did Ada write?",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChatModelUnavailablePassesThrough(t *testing.T) {
	leaderRepo, turnRepo := newTestRepos(t)
	leader := newIndexedLeader(t, leaderRepo, "Ada")

	gen := &fakeGenerator{err: fmt.Errorf("%w: connection refused", domain.ErrModelUnavailable)}
	svc := NewChatService(leaderRepo, turnRepo, &fakeRetriever{chunks: adaChunks()}, gen, 3, zap.NewNop())

	_, err := svc.Chat(context.Background(), "user-1", leader.ID, &domain.ChatRequest{
		Message: "What did Ada write?",
	})
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestChatUnexpectedFailureClassifiedAsGenerationFailed(t *testing.T) {
	leaderRepo, turnRepo := newTestRepos(t)
	leader := newIndexedLeader(t, leaderRepo, "Ada")

	gen := &fakeGenerator{err: fmt.Errorf("boom")}
	svc := NewChatService(leaderRepo, turnRepo, &fakeRetriever{chunks: adaChunks()}, gen, 3, zap.NewNop())

	_, err := svc.Chat(context.Background(), "user-1", leader.ID, &domain.ChatRequest{
		Message: "What did Ada write?",
	})
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
}

func TestChatStreamFramesMatchBatchAnswer(t *testing.T) {
	leaderRepo, turnRepo := newTestRepos(t)
	leader := newIndexedLeader(t, leaderRepo, "Ada")

	retriever := &fakeRetriever{chunks: adaChunks()}
	answer := "Ada wrote the analytical engine notes."

	batch := NewChatService(leaderRepo, turnRepo, retriever, &fakeGenerator{response: answer}, 3, zap.NewNop())
	batchResp, err := batch.Chat(context.Background(), "user-1", leader.ID, &domain.ChatRequest{
		Message:   "What did Ada write?",
		SessionID: "batch",
	})
	require.NoError(t, err)

	streaming := NewChatService(leaderRepo, turnRepo, retriever,
		&fakeGenerator{fragments: []string{"Ada wrote ", "the analytical ", "engine notes."}}, 3, zap.NewNop())
	stream, err := streaming.ChatStream(context.Background(), "user-1", leader.ID, &domain.ChatRequest{
		Message:   "What did Ada write?",
		SessionID: "stream",
	})
	require.NoError(t, err)

	var frames []domain.StreamFrame
	for frame := range stream {
		frames = append(frames, frame)
	}

	require.GreaterOrEqual(t, len(frames), 2)
	var doneCount, partialCount int
	for _, frame := range frames {
		if frame.Done {
			doneCount++
		} else {
			partialCount++
		}
	}
	assert.Equal(t, 1, doneCount)
	assert.GreaterOrEqual(t, partialCount, 1)

	final := frames[len(frames)-1]
	assert.True(t, final.Done)
	assert.Equal(t, "stream", final.SessionID)
	assert.Equal(t, batchResp.Response, final.Content,
		"final streamed content must equal the batch answer for identical input")

	// Partial frames accumulate monotonically
	for i := 1; i < partialCount; i++ {
		assert.True(t, strings.HasPrefix(frames[i].Content, frames[i-1].Content))
	}

	turns, err := turnRepo.List(leader.ID, "stream", "user-1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, final.Content, turns[0].AIResponse)
}

func TestChatStreamGuardrail(t *testing.T) {
	leaderRepo, turnRepo := newTestRepos(t)
	leader := newIndexedLeader(t, leaderRepo, "Ada")

	svc := NewChatService(leaderRepo, turnRepo, &fakeRetriever{}, &fakeGenerator{}, 3, zap.NewNop())
	stream, err := svc.ChatStream(context.Background(), "user-1", leader.ID, &domain.ChatRequest{
		Message:   "ok",
		SessionID: "s1",
	})
	require.NoError(t, err)

	frame, open := <-stream
	require.True(t, open)
	assert.True(t, frame.Done)
	assert.Equal(t, "You're welcome!", frame.Content)
	_, open = <-stream
	assert.False(t, open)

	turns, err := turnRepo.List(leader.ID, "s1", "user-1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestChatStreamDisconnectSkipsPersistence(t *testing.T) {
	leaderRepo, turnRepo := newTestRepos(t)
	leader := newIndexedLeader(t, leaderRepo, "Ada")

	ctx, cancel := context.WithCancel(context.Background())

	gen := &cancellingGenerator{cancel: cancel}
	svc := NewChatService(leaderRepo, turnRepo, &fakeRetriever{chunks: adaChunks()}, gen, 3, zap.NewNop())

	stream, err := svc.ChatStream(ctx, "user-1", leader.ID, &domain.ChatRequest{
		Message:   "What did Ada write?",
		SessionID: "s1",
	})
	require.NoError(t, err)

	for range stream {
	}

	turns, err := turnRepo.List(leader.ID, "s1", "user-1")
	require.NoError(t, err)
	assert.Empty(t, turns, "a turn the caller never received must not be persisted")
}

// cancellingGenerator emits one fragment, then simulates the caller
// disconnecting before the second.
type cancellingGenerator struct {
	cancel context.CancelFunc
}

func (g *cancellingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", context.Canceled
}

func (g *cancellingGenerator) GenerateStream(ctx context.Context, prompt string, fn func(ctx context.Context, fragment string) error) (string, error) {
	if err := fn(ctx, "partial "); err != nil {
		return "", err
	}
	g.cancel()
	<-ctx.Done()
	return "partial ", ctx.Err()
}
