// Package openai implements a representation provider backed by the
// OpenAI API: embeddings for the vector, a chat completion for metadata
// and summary extraction.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/memlens/memlens-go/pkg/memory"
	"github.com/memlens/memlens-go/pkg/representation"
)

// Config is the configuration for the OpenAI representation provider.
// APIKey: OpenAI API key (required)
// ChatModel: Model used for metadata/summary extraction, defaults to "gpt-4o-mini"
// BaseURL: API base URL, defaults to the OpenAI official address
// Dimensions: Vector dimensions, defaults to 1536
type Config struct {
	APIKey     string
	ChatModel  string
	BaseURL    string
	Dimensions int
}

// Client is an OpenAI representation provider.
// It implements the representation.Provider interface.
type Client struct {
	client     *openai.Client
	chatModel  string
	embedModel openai.EmbeddingModel
	dimensions int
}

// NewClient creates a new OpenAI representation provider.
//
// Parameters:
//   - cfg: Configuration containing APIKey, ChatModel, BaseURL, Dimensions
//
// Returns the client and an error when the API key is missing.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, memory.NewError("openai.NewClient",
			fmt.Errorf("api key is required: %w", memory.ErrInvalidConfig))
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = 1536
	}

	return &Client{
		client:     openai.NewClientWithConfig(config),
		chatModel:  chatModel,
		embedModel: openai.AdaEmbeddingV2,
		dimensions: dimensions,
	}, nil
}

// extraction is the JSON shape the chat model is asked to produce.
type extraction struct {
	Topics   []string `json:"topics"`
	Concepts []string `json:"concepts"`
	Entities []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"entities"`
	Relationships []struct {
		Source string `json:"source"`
		Target string `json:"target"`
		Type   string `json:"type"`
	} `json:"relationships"`
	Importance          float64  `json:"importance"`
	Summary             string   `json:"summary"`
	KeyInsights         []string `json:"key_insights"`
	ContextualRelevance []string `json:"contextual_relevance"`
}

const extractionPrompt = `You are a memory indexing assistant. Extract structured information from the content below.

# Content
%s

# Task
Return a single JSON object with exactly these fields:
- "topics": up to 5 coarse subject tags (lowercase strings)
- "concepts": up to 8 finer-grained notions mentioned (lowercase strings)
- "entities": named entities as {"name": string, "type": string} where type is one of person, place, organization, product, other
- "relationships": typed edges between entities as {"source": string, "target": string, "type": string}
- "importance": how important this content is to remember, 0.0 to 1.0
- "summary": a 1-2 sentence condensation of the content
- "key_insights": up to 3 main takeaways (strings)
- "contextual_relevance": up to 3 tags describing when this memory matters (strings)

Return only the JSON object, no prose.`

// Generate derives metadata, summary, and embedding for the content.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - content: The raw text to represent
//
// Returns the bundled representation, or an error if either API call fails
// or the extraction response is not valid JSON.
func (c *Client) Generate(ctx context.Context, content string) (*representation.Representation, error) {
	vector, err := c.embed(ctx, content)
	if err != nil {
		return nil, memory.NewError("openai.Generate", err)
	}

	ext, err := c.extract(ctx, content)
	if err != nil {
		return nil, memory.NewError("openai.Generate", err)
	}

	rep := &representation.Representation{
		Metadata: memory.Metadata{
			Topics:     ext.Topics,
			Concepts:   ext.Concepts,
			Importance: clampUnit(ext.Importance),
		},
		Summary: memory.Summary{
			Content:             ext.Summary,
			KeyInsights:         ext.KeyInsights,
			ContextualRelevance: ext.ContextualRelevance,
		},
		Embedding: memory.Embedding{
			Vector:     vector,
			Dimensions: len(vector),
		},
	}
	for _, e := range ext.Entities {
		rep.Metadata.Entities = append(rep.Metadata.Entities, memory.Entity{
			Name: e.Name,
			Type: e.Type,
		})
	}
	for _, r := range ext.Relationships {
		rep.Metadata.Relationships = append(rep.Metadata.Relationships, memory.Relationship{
			Source: r.Source,
			Target: r.Target,
			Type:   r.Type,
		})
	}

	if err := representation.Validate(rep); err != nil {
		return nil, err
	}
	return rep, nil
}

func (c *Client) embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.embedModel,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding generation failed: no data returned from OpenAI API")
	}

	// Convert float32 to float64
	embedding32 := resp.Data[0].Embedding
	embedding64 := make([]float64, len(embedding32))
	for i, v := range embedding32 {
		embedding64[i] = float64(v)
	}
	return embedding64, nil
}

func (c *Client) extract(ctx context.Context, content string) (*extraction, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(extractionPrompt, content)},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("extraction failed: no choices returned from OpenAI API")
	}

	raw := removeCodeBlocks(resp.Choices[0].Message.Content)

	var ext extraction
	if err := json.Unmarshal([]byte(raw), &ext); err != nil {
		return nil, fmt.Errorf("invalid JSON extraction response: %w", err)
	}
	return &ext, nil
}

// removeCodeBlocks strips markdown code fences the model sometimes wraps
// JSON in.
func removeCodeBlocks(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Dimensions returns the vector dimensions.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close closes the client connection.
// The OpenAI SDK client does not require explicit closing; this method is
// retained for interface compatibility.
func (c *Client) Close() error {
	return nil
}
