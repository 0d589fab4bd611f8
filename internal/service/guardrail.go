package service

import (
	"strings"
	"unicode/utf8"
)

// Fixed guardrail replies. Short-circuited exchanges are never persisted.
const (
	acknowledgementReply = "You're welcome!"
	rephraseReply        = "Could you please rephrase your question with a bit more detail?"
)

// acknowledgements is the closed set of trivial messages answered politely
// without touching the knowledge base.
var acknowledgements = map[string]struct{}{
	"thanks":    {},
	"thank you": {},
	"ok":        {},
	"okay":      {},
	"cool":      {},
	"hmm":       {},
}

// CheckGuardrail classifies a raw user message before any retrieval.
// The acknowledgement check runs before the length check so a short
// acknowledgement is never rejected as too short. Returns the fixed reply
// and true when the message is intercepted.
func CheckGuardrail(message string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(message))

	if _, ok := acknowledgements[normalized]; ok {
		return acknowledgementReply, true
	}
	if utf8.RuneCountInString(normalized) < 4 {
		return rephraseReply, true
	}
	return "", false
}
