package aiservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/llm"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
)

const ProviderName = "aiservice"

// Client talks to the AI microservice that fronts the local LLM and the
// speech-to-text model.
type Client struct {
	config *Config
	http   *http.Client
}

var _ llm.Provider = (*Client)(nil)

// NewClient builds a client. A nil httpClient uses a client with no timeout;
// deadlines come from the caller's context.
func NewClient(config *Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{config: config, http: httpClient}
}

func (c *Client) GetProviderName() string { return ProviderName }

func (c *Client) GenerateQuestions(ctx context.Context, req models.QuestionGenerationRequest) ([]string, error) {
	var out models.QuestionGenerationResponse
	if err := c.postJSON(ctx, "/generate-questions", req, &out); err != nil {
		return nil, err
	}
	if len(out.Questions) == 0 {
		return nil, &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeServiceDown,
			Message:  "no questions generated",
		}
	}
	return out.Questions, nil
}

func (c *Client) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", c.invalid("failed to build upload", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", c.invalid("failed to build upload", err)
	}
	if err := mw.Close(); err != nil {
		return "", c.invalid("failed to build upload", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/transcribe", &body)
	if err != nil {
		return "", c.invalid("failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var out models.TranscriptionResponse
	if err := c.do(httpReq, &out); err != nil {
		return "", err
	}
	return out.Transcription, nil
}

func (c *Client) Evaluate(ctx context.Context, req models.EvaluationRequest) (*models.EvaluationResult, error) {
	var out models.EvaluationResult
	if err := c.postJSON(ctx, "/evaluate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return c.invalid("failed to encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return c.invalid("failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeServiceDown,
			Message:  "request to " + req.URL.Path + " failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeServiceDown,
			Message:  "failed to read response",
			Err:      err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return statusError(req.URL.Path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &llm.ProviderError{
			Provider: ProviderName,
			Code:     llm.ErrCodeServiceDown,
			Message:  "malformed response from " + req.URL.Path,
			Err:      err,
		}
	}
	return nil
}

func statusError(path string, status int, body []byte) error {
	detail := string(body)
	var fastapi struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &fastapi) == nil && fastapi.Detail != "" {
		detail = fastapi.Detail
	}

	code := llm.ErrCodeInvalidInput
	switch {
	case status == http.StatusTooManyRequests:
		code = llm.ErrCodeRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		code = llm.ErrCodeTimeout
	case status >= 500:
		code = llm.ErrCodeServiceDown
	}

	return &llm.ProviderError{
		Provider: ProviderName,
		Code:     code,
		Message:  fmt.Sprintf("%s returned status %d: %s", path, status, detail),
	}
}

func (c *Client) invalid(msg string, err error) error {
	return &llm.ProviderError{
		Provider: ProviderName,
		Code:     llm.ErrCodeInvalidInput,
		Message:  msg,
		Err:      err,
	}
}
