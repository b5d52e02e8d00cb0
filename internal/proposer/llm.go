package proposer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/mkessler/mapgate-go/internal/config"
	"github.com/mkessler/mapgate-go/internal/models"
)

const mappingSystemPrompt = `You are a data mapping assistant. Given a source
and a target table schema, propose exactly one column mapping per target
column. Respond with a JSON array only, no prose. Each element:
{"source_column": string or "", "target_column": string,
 "transform": string or "", "confidence": number in [0,1],
 "rationale": string}.
Use "" for source_column when no source column plausibly maps. Use a
transform of the form "CAST({source} AS <TYPE>)" when types differ.`

// LLMProposer asks a language model for column mappings. Statement
// generation stays deterministic: the model decides the mapping, never the
// SQL that executes.
type LLMProposer struct {
	llm       llms.Model
	modelName string
	timeout   time.Duration
}

// NewLLM creates an LLM-backed proposer from configuration.
func NewLLM(cfg config.Config) (*LLMProposer, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &LLMProposer{
		llm:       model,
		modelName: cfg.LLMModel,
		timeout:   cfg.ProposerTimeout,
	}, nil
}

// Model returns the configured model name.
func (p *LLMProposer) Model() string {
	return p.modelName
}

// ProposeMappings implements Proposer. The model's response must be strict
// JSON; anything else fails the call rather than being repaired.
func (p *LLMProposer) ProposeMappings(ctx context.Context, source, target models.SchemaDescriptor) ([]models.MappingCandidate, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	userPrompt, err := buildMappingPrompt(source, target)
	if err != nil {
		return nil, err
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, mappingSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := p.llm.GenerateContent(ctx, messages)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &TimeoutError{Op: "propose_mappings"}
		}
		return nil, fmt.Errorf("propose mappings: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("propose mappings: no response choices")
	}

	candidates, err := parseCandidates(response.Choices[0].Content)
	if err != nil {
		return nil, err
	}

	// Attach declared types so downstream review sees them.
	for i := range candidates {
		if c := target.Column(candidates[i].TargetColumn); c != nil {
			candidates[i].TargetType = c.Type
		}
		if c := source.Column(candidates[i].SourceColumn); c != nil {
			candidates[i].SourceType = c.Type
		}
	}
	return candidates, nil
}

// GenerateStatement implements Proposer via the deterministic builder.
func (p *LLMProposer) GenerateStatement(ctx context.Context, source, target models.SchemaDescriptor, approved []models.ApprovedMapping) (models.Statement, error) {
	if err := ctx.Err(); err != nil {
		return models.Statement{}, err
	}
	return BuildStatements(source, target, approved), nil
}

func buildMappingPrompt(source, target models.SchemaDescriptor) (string, error) {
	payload := map[string]any{
		"source": source,
		"target": target,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schemas: %w", err)
	}
	return "Propose column mappings for these schemas:\n" + string(data), nil
}

func parseCandidates(raw string) ([]models.MappingCandidate, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var candidates []models.MappingCandidate
	if err := json.Unmarshal([]byte(cleaned), &candidates); err != nil {
		return nil, fmt.Errorf("parse proposer response: %w", err)
	}
	return candidates, nil
}
