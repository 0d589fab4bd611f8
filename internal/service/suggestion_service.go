package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/leadertalk/leadertalk/internal/domain"
	"github.com/leadertalk/leadertalk/internal/llm"
	"github.com/leadertalk/leadertalk/internal/repository"
	"go.uber.org/zap"
)

const suggestionPromptTemplate = `Based strictly on the context below about %s, suggest 2 to 3 short follow-up questions a reader might ask next. The questions must be answerable from the context alone.

Context:
%s

The reader last asked: %s

Write one question per line, nothing else.`

// SuggestionService produces follow-up question candidates from retrieved
// context. Runs its own retrieval, makes one batch model call and never
// persists anything.
type SuggestionService struct {
	leaderRepo *repository.LeaderRepository
	retriever  Retriever
	generator  llm.Generator
	topK       int
	logger     *zap.Logger
}

// NewSuggestionService creates a new suggestion service
func NewSuggestionService(
	leaderRepo *repository.LeaderRepository,
	retriever Retriever,
	generator llm.Generator,
	topK int,
	logger *zap.Logger,
) *SuggestionService {
	if topK <= 0 {
		topK = 3
	}
	return &SuggestionService{
		leaderRepo: leaderRepo,
		retriever:  retriever,
		generator:  generator,
		topK:       topK,
		logger:     logger,
	}
}

// Suggest returns 2-3 follow-up questions grounded in the leader's
// knowledge base. A model failure or an unparseable result degrades to the
// deterministic fallback rather than an error.
func (s *SuggestionService) Suggest(ctx context.Context, leaderID, message string) ([]string, error) {
	leader, err := s.leaderRepo.Get(leaderID)
	if err != nil {
		return nil, err
	}
	if leader == nil {
		return nil, domain.ErrNotFound
	}

	chunks, err := s.retriever.Retrieve(ctx, leader, message, s.topK)
	if err != nil {
		return nil, classifyPipelineError(err)
	}

	texts := make([]string, len(chunks))
	for i, sc := range chunks {
		texts[i] = sc.Chunk.Text
	}
	prompt := fmt.Sprintf(suggestionPromptTemplate, leader.Name, strings.Join(texts, "\n\n"), message)

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("suggestion generation failed, using fallback",
			zap.String("leader_id", leaderID), zap.Error(err))
		return fallbackSuggestions(leader.Name), nil
	}

	suggestions := parseSuggestions(raw)
	if len(suggestions) < 2 {
		return fallbackSuggestions(leader.Name), nil
	}
	return suggestions, nil
}

// parseSuggestions splits a model answer into at most 3 question lines,
// stripping bullet and numbering prefixes.
func parseSuggestions(raw string) []string {
	var suggestions []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•")
		// Numbered prefixes like "1." or "2)"
		if len(line) >= 2 && line[0] >= '0' && line[0] <= '9' && (line[1] == '.' || line[1] == ')') {
			line = line[2:]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		suggestions = append(suggestions, line)
		if len(suggestions) == 3 {
			break
		}
	}
	return suggestions
}

func fallbackSuggestions(leaderName string) []string {
	return []string{
		fmt.Sprintf("What is %s best known for?", leaderName),
		fmt.Sprintf("What were %s's most important achievements?", leaderName),
		fmt.Sprintf("What challenges did %s face?", leaderName),
	}
}
