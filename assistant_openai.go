package learningassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig selects the endpoint and model of an OpenAIAssistant.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty for the public API
	Model   string // empty for GPT-4o
}

// OpenAIAssistant implements Assistant and Tutor over the chat completions
// API. Structured answers are obtained through a forced tool call.
type OpenAIAssistant struct {
	client *openai.Client
	model  string
	logger *LLMLogger
}

var (
	_ Assistant = (*OpenAIAssistant)(nil)
	_ Tutor     = (*OpenAIAssistant)(nil)
)

func NewOpenAIAssistant(cfg OpenAIConfig) *OpenAIAssistant {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIAssistant{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// WithLogger returns a copy of a that records its exchanges in logger.
func (a *OpenAIAssistant) WithLogger(logger *LLMLogger) *OpenAIAssistant {
	c := *a
	c.logger = logger
	return &c
}

// callTool sends one request that must be answered through the named tool and
// decodes the tool arguments into out.
func (a *OpenAIAssistant) callTool(ctx context.Context, module, system, prompt string, tool openai.FunctionDefinition, out interface{}) error {
	a.logger.LogLLMRequest(module, prompt)

	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: a.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Tools: []openai.Tool{{Type: openai.ToolTypeFunction, Function: &tool}},
			ToolChoice: openai.ToolChoice{
				Type:     openai.ToolTypeFunction,
				Function: openai.ToolFunction{Name: tool.Name},
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", module, err)
	}

	VerboseLog("%s: received %d choices", module, len(resp.Choices))
	if len(resp.Choices) == 0 {
		return fmt.Errorf("no response from %s", a.model)
	}
	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return fmt.Errorf("no tool calls in response")
	}
	toolCall := choice.Message.ToolCalls[0]
	if toolCall.Function.Name != tool.Name {
		return fmt.Errorf("unexpected tool call: %s", toolCall.Function.Name)
	}

	a.logger.LogLLMResponse(module, toolCall.Function.Arguments)

	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), out); err != nil {
		return fmt.Errorf("failed to parse tool arguments: %w", err)
	}
	return nil
}

// ProposeAnswer asks the model to solve q on its own.
func (a *OpenAIAssistant) ProposeAnswer(ctx context.Context, q Question) (Selection, error) {
	var sb strings.Builder
	writeQuestion(&sb, q, false)
	sb.WriteString(fmt.Sprintf("\nSelect exactly %d answer(s). Use the submit_answer tool with the option letters.\n", q.AnswerCount()))

	tool := openai.FunctionDefinition{
		Name:        "submit_answer",
		Description: "Submit the letters of the correct options",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"answers": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Letters of the correct options, e.g. [\"A\", \"C\"]",
				},
				"reasoning": map[string]interface{}{
					"type":        "string",
					"description": "Short justification",
				},
			},
			"required": []string{"answers"},
		},
	}

	var args struct {
		Answers   []string `json:"answers"`
		Reasoning string   `json:"reasoning"`
	}
	if err := a.callTool(ctx, "ProposeAnswer", "You are an expert who answers multiple choice certification questions.", sb.String(), tool, &args); err != nil {
		return nil, err
	}

	sel := SelectionFromStrings(args.Answers)
	for _, l := range sel {
		if i := l.Index(); i < 0 || i >= len(q.Answers) {
			return nil, fmt.Errorf("%w: model answered %q", ErrUnknownLetter, l)
		}
	}
	return sel, nil
}

// Translate asks the model to translate q into lang, keeping option order.
func (a *OpenAIAssistant) Translate(ctx context.Context, q Question, lang Language) (Question, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Translate the following question into %s.\n", lang.Name()))
	sb.WriteString("Keep every option, in the same order, and do not add or remove options.\n\n")
	writeQuestion(&sb, q, false)
	if q.Explanation != "" {
		sb.WriteString("\nExplanation:\n")
		sb.WriteString(q.Explanation)
		sb.WriteString("\n")
	}

	tool := openai.FunctionDefinition{
		Name:        "submit_translation",
		Description: "Submit the translated question",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "The translated question text",
				},
				"answers": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Translated options in the original order, without letters",
				},
				"explanation": map[string]interface{}{
					"type":        "string",
					"description": "The translated explanation",
				},
			},
			"required": []string{"text", "answers", "explanation"},
		},
	}

	var args struct {
		Text        string   `json:"text"`
		Answers     []string `json:"answers"`
		Explanation string   `json:"explanation"`
	}
	if err := a.callTool(ctx, "Translate", "You are a professional translator of technical exam material.", sb.String(), tool, &args); err != nil {
		return Question{}, err
	}

	if len(args.Answers) != len(q.Answers) {
		return Question{}, fmt.Errorf("%w: %d answers, want %d", ErrTranslationMismatch, len(args.Answers), len(q.Answers))
	}
	translated := q.Clone()
	translated.Text = args.Text
	translated.Explanation = args.Explanation
	for i := range translated.Answers {
		translated.Answers[i].Text = args.Answers[i]
	}
	return CheckTranslation(q, translated)
}

// PresetQuestions suggests follow-up questions a learner might ask about q.
func (a *OpenAIAssistant) PresetQuestions(ctx context.Context, q Question, lang Language) ([]string, error) {
	if lang == "" {
		lang = LanguageEnglish
	}
	var sb strings.Builder
	writeQuestion(&sb, q, true)
	sb.WriteString(fmt.Sprintf("\nSuggest 3 short questions, in %s, that a learner could ask a tutor about this question.\n", lang.Name()))

	tool := openai.FunctionDefinition{
		Name:        "submit_questions",
		Description: "Submit suggested follow-up questions",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"questions": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
			},
			"required": []string{"questions"},
		},
	}

	var args struct {
		Questions []string `json:"questions"`
	}
	if err := a.callTool(ctx, "PresetQuestions", "You are a helpful tutor.", sb.String(), tool, &args); err != nil {
		return nil, err
	}
	return args.Questions, nil
}

// Explain streams a tutor reply about q given the conversation so far.
func (a *OpenAIAssistant) Explain(ctx context.Context, q Question, history []ChatMessage) (*ChunkStream, error) {
	var sb strings.Builder
	sb.WriteString("You are a tutor helping a learner understand an exam question. ")
	sb.WriteString("Answer in the language the learner uses.\n\n")
	writeQuestion(&sb, q, true)
	if q.Explanation != "" {
		sb.WriteString("\nReference explanation:\n")
		sb.WriteString(q.Explanation)
		sb.WriteString("\n")
	}

	messages := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: sb.String()}}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	if len(history) > 0 {
		a.logger.LogLLMRequest("Explain", history[len(history)-1].Content)
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start explanation stream: %w", err)
	}

	var reply strings.Builder
	recv := func() (string, error) {
		resp, err := stream.Recv()
		if err != nil {
			if reply.Len() > 0 {
				a.logger.LogLLMResponse("Explain", reply.String())
				reply.Reset()
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		chunk := resp.Choices[0].Delta.Content
		reply.WriteString(chunk)
		return chunk, nil
	}
	closeFn := func() error {
		stream.Close()
		return nil
	}
	return NewChunkStream(recv, closeFn), nil
}

// Summarize writes short study feedback for a finished sitting.
func (a *OpenAIAssistant) Summarize(ctx context.Context, r Report) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("A learner answered %d of %d questions, %d correctly.\n", r.Answered, r.Total, r.Correct))
	if len(r.Incorrect) > 0 {
		sb.WriteString("\nQuestions answered incorrectly:\n")
		for _, v := range r.Incorrect {
			sb.WriteString(fmt.Sprintf("- %s\n", v.Text))
		}
	}
	if len(r.Marked) > 0 {
		sb.WriteString("\nQuestions the learner marked for review:\n")
		for _, v := range r.Marked {
			sb.WriteString(fmt.Sprintf("- %s\n", v.Text))
		}
	}
	sb.WriteString("\nWrite a short summary of the weak areas and what to study next.\n")

	prompt := sb.String()
	a.logger.LogLLMRequest("Summarize", prompt)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a study coach."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to summarize report: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", a.model)
	}
	summary := resp.Choices[0].Message.Content
	a.logger.LogLLMResponse("Summarize", summary)
	log.Printf("Generated summary for session %s (%d characters)", r.SessionID, len(summary))
	return summary, nil
}

// writeQuestion renders q with lettered options. withAnswer also states the
// correct letters.
func writeQuestion(sb *strings.Builder, q Question, withAnswer bool) {
	sb.WriteString("Question:\n")
	sb.WriteString(q.Text)
	sb.WriteString("\n\nOptions:\n")
	for _, o := range q.View(0).Options {
		sb.WriteString(fmt.Sprintf("%s. %s\n", o.Letter, o.Text))
	}
	if withAnswer {
		sb.WriteString(fmt.Sprintf("\nCorrect answer(s): %s\n", q.GroundTruth()))
	}
}
