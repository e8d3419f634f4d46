package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"quizforge-service/internal/domain"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultModel   = "deepseek/deepseek-r1:free"
	defaultTimeout = 60 * time.Second
)

const promptTemplate = `You are generating a JSON quiz object in English for a quiz app. The quiz object must have:

- "name" (string): The title of the quiz. (use an appropriate title based on the context)
- "description" (string): A brief summary of the quiz topic.
- "questions" (array): A list of %d multiple-choice questions.

Each question in the "questions" array must have the following fields:

- "type": always set to "MultipleChoice".
- "question": a clear and concise question based on the context.
- "correctAnswer": the correct answer string.
- "multiChoiceOptions": an array of exactly 4 answer choices including the correct answer.

%s

Make sure questions and answers are in English, are relevant to the context, and avoid overly technical jargon unless the context demands it.

Output the entire quiz as a valid JSON object exactly in this format without additional explanation or metadata.`

// Client calls a chat-completions endpoint to produce quiz documents. The
// returned document is parsed structurally but not validated further; a
// semantically broken quiz surfaces as an ingest failure downstream.
type Client struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

func NewClient(apiKey, model, baseURL string, timeout time.Duration) *Client {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateQuiz asks the completion service for a quiz document about the
// given context text.
func (c *Client) GenerateQuiz(ctx context.Context, contextText string, numQuestions int) (domain.QuizDoc, error) {
	if strings.TrimSpace(contextText) == "" {
		return domain.QuizDoc{}, fmt.Errorf("%w: context is required", domain.ErrValidation)
	}
	if numQuestions <= 0 {
		numQuestions = 5
	}

	prompt := fmt.Sprintf(promptTemplate, numQuestions, contextText)
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "system", Content: prompt}},
		Temperature: 0.7,
	})
	if err != nil {
		return domain.QuizDoc{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return domain.QuizDoc{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.QuizDoc{}, fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.QuizDoc{}, fmt.Errorf("completion service returned status %d", resp.StatusCode)
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.QuizDoc{}, fmt.Errorf("decode completion response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return domain.QuizDoc{}, fmt.Errorf("completion response had no choices")
	}

	raw := stripFences(payload.Choices[0].Message.Content)
	var doc domain.QuizDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return domain.QuizDoc{}, fmt.Errorf("parse generated quiz: %w", err)
	}
	return doc, nil
}

// stripFences removes a markdown code fence wrapper that some models emit
// around the JSON payload.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}
