package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a remote History Store API:
//
//	GET  {base}/api/user-questions/{userId}  -> {"questions":[{"question":"..."}]}
//	POST {base}/api/user-questions           <- {"userId":"...","question":"..."}
//
// Requests carry "Authorization: Bearer <userId>".
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// QuestionsResponse is the body returned when listing a user's history.
type QuestionsResponse struct {
	Questions []QuestionItem `json:"questions"`
}

// QuestionItem is one history entry on the wire.
type QuestionItem struct {
	Question string `json:"question"`
}

// AppendRequest is the body posted to record a question.
type AppendRequest struct {
	UserID   string `json:"userId"`
	Question string `json:"question"`
}

func (c *Client) Questions(ctx context.Context, userID string) ([]string, error) {
	endpoint := c.baseURL + "/api/user-questions/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}
	setBearer(req, userID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("fetch history", resp)
	}

	var body QuestionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	out := make([]string, 0, len(body.Questions))
	for _, q := range body.Questions {
		out = append(out, q.Question)
	}
	return out, nil
}

func (c *Client) Append(ctx context.Context, userID, text string) error {
	payload, err := json.Marshal(AppendRequest{UserID: userID, Question: text})
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/user-questions", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build history request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setBearer(req, userID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return statusError("append history", resp)
	}
	return nil
}

func setBearer(req *http.Request, userID string) {
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+userID)
	}
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
}
