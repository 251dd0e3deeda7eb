package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/llm"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/prompts"
)

const ProviderName = "gemini"

const (
	questionTemperature   = 0.6
	evaluationTemperature = 0.1
	parseFailure          = "Failed to parse response"
	transcribeInstruction = "Transcribe the spoken English in this audio verbatim. Respond with the transcript only. If nothing is said, respond with an empty string."
)

// Client generates, transcribes and evaluates through the Gemini API.
type Client struct {
	client  *genai.Client
	config  *Config
	prompts *prompts.PromptManager
}

var _ llm.Provider = (*Client)(nil)

func NewClient(config *Config) (*Client, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeAPIKey,
			Message:  "Failed to create Gemini client",
			Err:      err,
		}
	}

	return newClient(client, config)
}

func newClient(client *genai.Client, config *Config) (*Client, error) {
	pm, err := prompts.NewPromptManager()
	if err != nil {
		return nil, err
	}
	return &Client{client: client, config: config, prompts: pm}, nil
}

func (c *Client) GetProviderName() string {
	return ProviderName
}

func (c *Client) GenerateQuestions(ctx context.Context, req models.QuestionGenerationRequest) ([]string, error) {
	codingCount := 0
	if req.InterviewType == models.InterviewCodingMix {
		codingCount = int(float64(req.Count) * models.CodingShare)
	}

	variant := string(req.InterviewType)
	if variant != string(models.InterviewCodingMix) {
		variant = string(models.InterviewOralOnly)
	}

	prompt, err := c.prompts.BuildPrompt("questions", variant, map[string]string{
		"Count":       strconv.Itoa(req.Count),
		"Role":        req.Role,
		"Level":       req.Level,
		"CodingCount": strconv.Itoa(codingCount),
		"OralCount":   strconv.Itoa(req.Count - codingCount),
	})
	if err != nil {
		return nil, &llm.ProviderError{Provider: ProviderName, Code: llm.ErrCodeInvalidInput, Message: "Failed to build prompt", Err: err}
	}

	text, err := c.generate(ctx, genai.Text(prompt.User), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       genai.Ptr[float32](questionTemperature),
	})
	if err != nil {
		return nil, err
	}

	questions := splitQuestions(text, req.Count)
	if len(questions) == 0 {
		return nil, &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeServiceDown,
			Message:  "No questions generated",
		}
	}
	return questions, nil
}

func (c *Client) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcribeInstruction),
			genai.NewPartFromBytes(audio, audioMIMEType(filename)),
		}, genai.RoleUser),
	}

	text, err := c.generate(ctx, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		var pe *llm.ProviderError
		if errors.As(err, &pe) && pe.Message == "Empty response generated" {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) Evaluate(ctx context.Context, req models.EvaluationRequest) (*models.EvaluationResult, error) {
	variant := string(models.QuestionOral)
	if req.QuestionType == models.QuestionCoding {
		variant = string(models.QuestionCoding)
	}

	userAnswer := req.UserAnswer
	if userAnswer == "" {
		userAnswer = "No verbal answer provided"
	}
	userCode := req.UserCode
	if userCode == "" {
		userCode = "No code provided"
	}

	prompt, err := c.prompts.BuildPrompt("evaluation", variant, map[string]string{
		"Role":       req.Role,
		"Level":      req.Level,
		"Question":   req.Question,
		"UserAnswer": userAnswer,
		"UserCode":   userCode,
	})
	if err != nil {
		return nil, &llm.ProviderError{Provider: ProviderName, Code: llm.ErrCodeInvalidInput, Message: "Failed to build prompt", Err: err}
	}

	text, err := c.generate(ctx, genai.Text(prompt.User), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       genai.Ptr[float32](evaluationTemperature),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return nil, err
	}

	return parseEvaluation(text), nil
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, c.config.Model, contents, cfg)
	if err != nil {
		return "", classifyError(err)
	}

	if result == nil {
		return "", &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeServiceDown,
			Message:  "No response generated",
		}
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeServiceDown,
			Message:  "Empty response generated",
		}
	}
	return text, nil
}

func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	code := llm.ErrCodeServiceDown
	status := apiStatus(err)
	switch {
	case status == http.StatusTooManyRequests || isRateLimitError(err):
		code = llm.ErrCodeRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = llm.ErrCodeAPIKey
	case status >= 400 && status < 500:
		code = llm.ErrCodeInvalidInput
	}

	return &llm.ProviderError{
		Provider: ProviderName,
		Code:     code,
		Message:  "Gemini request failed",
		Err:      err,
	}
}

func apiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	return 0
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota")
}

// splitQuestions keeps non-blank lines, trimmed, capped at count.
func splitQuestions(text string, count int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if count > 0 && len(out) == count {
			break
		}
	}
	return out
}

type rawEvaluation struct {
	TechnicalScore  *float64        `json:"technicalScore"`
	ConfidenceScore *float64        `json:"confidenceScore"`
	AIFeedback      string          `json:"aiFeedback"`
	IdealAnswer     json.RawMessage `json:"idealAnswer"`
}

// parseEvaluation never fails: unparseable model output scores zero.
func parseEvaluation(text string) *models.EvaluationResult {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	raw, ok := decodeEvaluation(text)
	if !ok {
		flattened := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ").Replace(text)
		raw, ok = decodeEvaluation(flattened)
	}
	if !ok {
		return &models.EvaluationResult{
			AIFeedback:  parseFailure,
			IdealAnswer: parseFailure,
		}
	}

	result := &models.EvaluationResult{
		TechnicalScore:  *raw.TechnicalScore,
		ConfidenceScore: *raw.ConfidenceScore,
		AIFeedback:      raw.AIFeedback,
	}

	var ideal string
	if err := json.Unmarshal(raw.IdealAnswer, &ideal); err == nil {
		result.IdealAnswer = ideal
	} else if len(raw.IdealAnswer) > 0 {
		result.IdealAnswer = string(raw.IdealAnswer)
	}
	return result
}

func decodeEvaluation(text string) (*rawEvaluation, bool) {
	var raw rawEvaluation
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, false
	}
	if raw.TechnicalScore == nil || raw.ConfidenceScore == nil {
		return nil, false
	}
	return &raw, true
}

var audioTypes = map[string]string{
	".webm": "audio/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
}

func audioMIMEType(filename string) string {
	if t, ok := audioTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}
	return "audio/webm"
}
