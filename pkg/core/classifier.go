package core

import (
	"strings"

	"github.com/memlens/memlens-go/pkg/memory"
)

// Keyword tables for intent-driven classification. Matching is
// case-insensitive on whole words.
var (
	taskKeywords = []string{
		"implement", "fix", "build", "create", "refactor", "debug",
		"plan", "deploy", "configure", "migrate", "todo",
	}
	queryKeywords = []string{
		"what", "when", "where", "who", "why", "how",
		"find", "search", "recall", "remember", "lookup",
	}
	documentKeywords = []string{
		"document", "summarize", "summarise", "read", "review",
		"article", "report", "section", "chapter",
	}
)

// ClassifyContextType derives the context type of a presented context.
//
// Classification order:
//  1. The caller-declared Metadata.Intent, matched against keyword tables
//  2. Structural signals: a trailing question mark suggests a query, long
//     multi-paragraph content suggests a document
//  3. Fallback to conversation for short interactive text, mixed otherwise
//
// The classifier is intentionally cheap: it runs on every awareness scan.
func ClassifyContextType(ctx memory.Context) memory.ContextType {
	intent := strings.ToLower(strings.TrimSpace(ctx.Metadata.Intent))
	if intent != "" {
		if t, ok := classifyIntent(intent); ok {
			return t
		}
	}

	content := strings.TrimSpace(ctx.Content)
	if content == "" {
		return memory.ContextMixed
	}

	if strings.HasSuffix(content, "?") {
		return memory.ContextQuery
	}
	if strings.Count(content, "\n\n") >= 2 || len(content) > 2000 {
		return memory.ContextDocument
	}
	if matchesAny(content, taskKeywords) {
		return memory.ContextTask
	}
	if len(content) < 400 {
		return memory.ContextConversation
	}
	return memory.ContextMixed
}

func classifyIntent(intent string) (memory.ContextType, bool) {
	switch {
	case matchesAny(intent, queryKeywords):
		return memory.ContextQuery, true
	case matchesAny(intent, taskKeywords):
		return memory.ContextTask, true
	case matchesAny(intent, documentKeywords):
		return memory.ContextDocument, true
	case strings.Contains(intent, "chat") || strings.Contains(intent, "conversation"):
		return memory.ContextConversation, true
	}
	return memory.ContextMixed, false
}

func matchesAny(text string, keywords []string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z')
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	for _, k := range keywords {
		if _, ok := set[k]; ok {
			return true
		}
	}
	return false
}
