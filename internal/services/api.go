// Client for the skipper HTTP API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/skipper/internal/models"
)

const defaultAPIURL = "http://127.0.0.1:8888"

// APIService provides typed access to the skipper HTTP API.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API client for baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// BaseURL returns the API root this client talks to.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Message extracts the "message" field of a JSON body, falling back to the raw text.
func (r *APIResponse) Message() string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.Body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(r.Body))
}

// Do performs a request and returns the raw response without interpreting the status.
// body is encoded as JSON when non-nil and headers are set verbatim.
func (a *APIService) Do(ctx context.Context, method, path string, body any, headers map[string]string) (*APIResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}

// call performs a request and decodes a 2xx JSON body into result. Non 2xx
// responses become an [*APIError].
func (a *APIService) call(ctx context.Context, method, path, token string, body, result any) error {
	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	resp, err := a.Do(ctx, method, path, body, headers)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: resp.Message()}
	}

	if result == nil {
		return nil
	}

	if err := json.Unmarshal(resp.Body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type messageResponse struct {
	Message string `json:"message"`
}

// Artists fetches the public blocklist.
func (a *APIService) Artists(ctx context.Context) ([]models.Artist, error) {
	var result struct {
		Artists []models.Artist `json:"artists"`
	}
	if err := a.call(ctx, http.MethodGet, "/api/artists", "", nil, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch artists: %w", err)
	}
	return result.Artists, nil
}

// DailySong fetches the current song of the day.
func (a *APIService) DailySong(ctx context.Context) (*models.DailySong, error) {
	var song models.DailySong
	if err := a.call(ctx, http.MethodGet, "/api/daily-song", "", nil, &song); err != nil {
		return nil, fmt.Errorf("failed to fetch daily song: %w", err)
	}
	return &song, nil
}

// SubmitResult is the body of a successful submission.
type SubmitResult struct {
	Message    string            `json:"message"`
	Submission models.Submission `json:"submission"`
}

// Submit proposes an artist for the blocklist.
func (a *APIService) Submit(ctx context.Context, name, link string) (*SubmitResult, error) {
	body := map[string]string{"artistName": name, "spotifyLink": link}

	var result SubmitResult
	if err := a.call(ctx, http.MethodPost, "/api/submit", "", body, &result); err != nil {
		return nil, fmt.Errorf("failed to submit artist: %w", err)
	}
	return &result, nil
}

// AdminLogin exchanges moderator credentials for a bearer token.
func (a *APIService) AdminLogin(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}

	var result struct {
		Token string `json:"token"`
	}
	if err := a.call(ctx, http.MethodPost, "/api/admin/login", "", body, &result); err != nil {
		return "", fmt.Errorf("failed to log in: %w", err)
	}
	return result.Token, nil
}

// Submissions lists pending submissions, newest first.
func (a *APIService) Submissions(ctx context.Context, token string) ([]models.Submission, error) {
	var result struct {
		Submissions []models.Submission `json:"submissions"`
	}
	if err := a.call(ctx, http.MethodGet, "/api/submissions", token, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch submissions: %w", err)
	}
	return result.Submissions, nil
}

// ManageSubmission approves or rejects a submission and returns the server's message.
func (a *APIService) ManageSubmission(ctx context.Context, token string, id int64, action models.Action) (string, error) {
	body := map[string]any{"submissionId": id, "action": string(action)}

	var result messageResponse
	if err := a.call(ctx, http.MethodPost, "/api/submissions/manage", token, body, &result); err != nil {
		return "", fmt.Errorf("failed to %s submission %d: %w", action, id, err)
	}
	return result.Message, nil
}

// DeleteArtist removes an artist from the blocklist and returns the server's message.
func (a *APIService) DeleteArtist(ctx context.Context, token string, id int64) (string, error) {
	var result messageResponse
	path := "/api/artists/" + url.PathEscape(strconv.FormatInt(id, 10))
	if err := a.call(ctx, http.MethodDelete, path, token, nil, &result); err != nil {
		return "", fmt.Errorf("failed to delete artist %d: %w", id, err)
	}
	return result.Message, nil
}
