package learningassistant_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"learningassistant"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

// fakeOpenAI answers chat completion requests with canned tool calls, a
// canned stream, or a canned plain reply.
type fakeOpenAI struct {
	mu       sync.Mutex
	tools    map[string]string // tool name -> arguments JSON
	chunks   []string
	reply    string
	fail     bool
	requests []openai.ChatCompletionRequest
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.fail {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error": {"message": "boom", "type": "server_error"}}`)
		return
	}

	if req.Stream {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range f.chunks {
			chunk := openai.ChatCompletionStreamResponse{
				ID:     "chunk",
				Object: "chat.completion.chunk",
				Model:  req.Model,
				Choices: []openai.ChatCompletionStreamChoice{
					{Index: 0, Delta: openai.ChatCompletionStreamChoiceDelta{Content: c}},
				},
			}
			data, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		return
	}

	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
	finish := openai.FinishReasonStop
	if len(req.Tools) > 0 {
		name := req.Tools[0].Function.Name
		msg.ToolCalls = []openai.ToolCall{{
			ID:       "call_1",
			Type:     openai.ToolTypeFunction,
			Function: openai.FunctionCall{Name: name, Arguments: f.tools[name]},
		}}
		finish = openai.FinishReasonToolCalls
	} else {
		msg.Content = f.reply
	}
	resp := openai.ChatCompletionResponse{
		ID:     "resp",
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []openai.ChatCompletionChoice{
			{Index: 0, Message: msg, FinishReason: finish},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func newFakeAssistant(t *testing.T, f *fakeOpenAI) *learningassistant.OpenAIAssistant {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return learningassistant.NewOpenAIAssistant(learningassistant.OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Model:   "test-model",
	})
}

func TestOpenAIProposeAnswer(t *testing.T) {
	f := &fakeOpenAI{tools: map[string]string{
		"submit_answer": `{"answers": ["a"], "reasoning": "roles grant access"}`,
	}}
	ai := newFakeAssistant(t, f)

	sel, err := ai.ProposeAnswer(context.Background(), iamQuestion())
	require.NoError(t, err)
	require.Equal(t, seq("A"), sel)

	require.Len(t, f.requests, 1)
	require.Equal(t, "test-model", f.requests[0].Model)
	require.Contains(t, f.requests[0].Messages[1].Content, "A. IAM Role")
}

func TestOpenAIProposeAnswerOutOfRange(t *testing.T) {
	f := &fakeOpenAI{tools: map[string]string{"submit_answer": `{"answers": ["F"]}`}}
	ai := newFakeAssistant(t, f)

	_, err := ai.ProposeAnswer(context.Background(), iamQuestion())
	require.ErrorIs(t, err, learningassistant.ErrUnknownLetter)
}

func TestOpenAITranslate(t *testing.T) {
	f := &fakeOpenAI{tools: map[string]string{
		"submit_translation": `{"text": "Que doit utiliser une instance EC2 ?", "answers": ["Rôle IAM", "EC2"], "explanation": "Les rôles."}`,
	}}
	ai := newFakeAssistant(t, f)
	q := iamQuestion()

	tq, err := ai.Translate(context.Background(), q, learningassistant.LanguageFrench)
	require.NoError(t, err)
	require.Equal(t, q.ID, tq.ID)
	require.Equal(t, "Que doit utiliser une instance EC2 ?", tq.Text)
	require.Equal(t, "Les rôles.", tq.Explanation)
	require.Len(t, tq.Answers, 2)
	for i := range q.Answers {
		require.Equal(t, q.Answers[i].Correct, tq.Answers[i].Correct)
		require.Equal(t, q.Answers[i].Letter, tq.Answers[i].Letter)
	}
	require.Equal(t, "Rôle IAM", tq.Answers[0].Text)
	require.Contains(t, f.requests[0].Messages[1].Content, "French")
}

func TestOpenAITranslateMismatch(t *testing.T) {
	f := &fakeOpenAI{tools: map[string]string{
		"submit_translation": `{"text": "x", "answers": ["only one"], "explanation": ""}`,
	}}
	ai := newFakeAssistant(t, f)

	_, err := ai.Translate(context.Background(), iamQuestion(), learningassistant.LanguageKorean)
	require.ErrorIs(t, err, learningassistant.ErrTranslationMismatch)
}

func TestOpenAIPresetQuestions(t *testing.T) {
	f := &fakeOpenAI{tools: map[string]string{
		"submit_questions": `{"questions": ["Why not EC2?", "What is a role?"]}`,
	}}
	ai := newFakeAssistant(t, f)

	got, err := ai.PresetQuestions(context.Background(), iamQuestion(), "")
	require.NoError(t, err)
	require.Equal(t, []string{"Why not EC2?", "What is a role?"}, got)
}

func TestOpenAIExplainStreams(t *testing.T) {
	f := &fakeOpenAI{chunks: []string{"Roles ", "", "carry ", "permissions."}}
	ai := newFakeAssistant(t, f)

	stream, err := ai.Explain(context.Background(), iamQuestion(), []learningassistant.ChatMessage{
		{Role: "user", Content: "Why A?"},
	})
	require.NoError(t, err)
	defer stream.Close()

	text, err := stream.Collect()
	require.NoError(t, err)
	require.Equal(t, "Roles carry permissions.", text)

	require.Len(t, f.requests, 1)
	msgs := f.requests[0].Messages
	require.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	require.Contains(t, msgs[0].Content, "Correct answer(s): A")
	require.Equal(t, "Why A?", msgs[1].Content)
}

func TestOpenAISummarize(t *testing.T) {
	f := &fakeOpenAI{reply: "Review IAM."}
	ai := newFakeAssistant(t, f)

	s := newSession(t, 2, learningassistant.WithSeed(1))
	q, _ := s.CurrentQuestion()
	_, err := s.Submit(wrongSelection(t, q))
	require.NoError(t, err)

	r := learningassistant.SummarizeReport(context.Background(), ai, s.Report())
	require.Equal(t, "Review IAM.", r.Summary)
	require.Contains(t, f.requests[0].Messages[1].Content, q.Text)
}

func TestOpenAIServerErrorIsAdvisoryOnly(t *testing.T) {
	f := &fakeOpenAI{fail: true}
	ai := newFakeAssistant(t, f)

	a := learningassistant.CrossCheck(context.Background(), ai, iamQuestion(), 0)
	require.False(t, a.Available)
	require.NotEmpty(t, a.Error)
	require.Equal(t, "unavailable", a.Label())

	r := learningassistant.SummarizeReport(context.Background(), ai, learningassistant.Report{Answered: 1})
	require.Empty(t, r.Summary)
}

func TestOpenAIWithLogger(t *testing.T) {
	dir := t.TempDir()
	logger, err := learningassistant.NewLLMLogger(dir, "sitting-log", 1)
	require.NoError(t, err)

	f := &fakeOpenAI{tools: map[string]string{"submit_answer": `{"answers": ["A"]}`}}
	ai := newFakeAssistant(t, f).WithLogger(logger)
	_, err = ai.ProposeAnswer(context.Background(), iamQuestion())
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, "sitting-log.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "LLM REQUEST (ProposeAnswer)")
	require.Contains(t, string(data), `"answers": ["A"]`)
}
