package core_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/memlens/memlens-go/pkg/core"
	"github.com/memlens/memlens-go/pkg/memory"
)

func TestClassifyByIntent(t *testing.T) {
	cases := []struct {
		intent string
		want   memory.ContextType
	}{
		{"find my earlier notes", memory.ContextQuery},
		{"Recall what we discussed", memory.ContextQuery},
		{"implement the parser", memory.ContextTask},
		{"deploy to staging", memory.ContextTask},
		{"summarize this article", memory.ContextDocument},
		{"review the report", memory.ContextDocument},
		{"casual chat", memory.ContextConversation},
		{"ongoing conversation", memory.ContextConversation},
	}

	for _, tc := range cases {
		got := core.ClassifyContextType(memory.Context{
			Content:  "irrelevant filler content",
			Metadata: memory.Metadata{Intent: tc.intent},
		})
		assert.Equal(t, tc.want, got, "intent %q", tc.intent)
	}
}

func TestClassifyIntentBeatsStructure(t *testing.T) {
	// The trailing question mark would suggest a query, but the declared
	// intent wins.
	got := core.ClassifyContextType(memory.Context{
		Content:  "Can you do this for me?",
		Metadata: memory.Metadata{Intent: "implement the fix"},
	})
	assert.Equal(t, memory.ContextTask, got)
}

func TestClassifyTrailingQuestionMark(t *testing.T) {
	got := core.ClassifyContextType(memory.Context{Content: "Which database should we use?"})
	assert.Equal(t, memory.ContextQuery, got)
}

func TestClassifyMultiParagraphIsDocument(t *testing.T) {
	content := "First paragraph about the system.\n\nSecond paragraph with details.\n\nThird paragraph wrapping up."
	got := core.ClassifyContextType(memory.Context{Content: content})
	assert.Equal(t, memory.ContextDocument, got)

	long := strings.Repeat("lorem ipsum dolor sit amet ", 100)
	got = core.ClassifyContextType(memory.Context{Content: long})
	assert.Equal(t, memory.ContextDocument, got, "very long content reads as a document")
}

func TestClassifyTaskKeywordsInContent(t *testing.T) {
	got := core.ClassifyContextType(memory.Context{Content: "Let's refactor the config loader today."})
	assert.Equal(t, memory.ContextTask, got)
}

func TestClassifyShortTextIsConversation(t *testing.T) {
	got := core.ClassifyContextType(memory.Context{Content: "Sounds good, thanks for the update."})
	assert.Equal(t, memory.ContextConversation, got)
}

func TestClassifyFallbacks(t *testing.T) {
	assert.Equal(t, memory.ContextMixed, core.ClassifyContextType(memory.Context{}),
		"empty context has no signal")

	// Medium-length prose with no keywords, question, or paragraph breaks.
	medium := strings.Repeat("plain narrative text without signals ", 15)
	assert.Equal(t, memory.ContextMixed, core.ClassifyContextType(memory.Context{Content: medium}))
}
