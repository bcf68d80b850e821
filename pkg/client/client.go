// Package client is a typed HTTP client for the planner API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"today-planner/internal/assistant"
	"today-planner/internal/model"
	"today-planner/internal/service"
)

const (
	defaultTimeout = 30 * time.Second
	revisionHeader = "X-Today-Revision"
)

// Issue is one field-level problem reported with a 400.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is any non-2xx response.
type APIError struct {
	Status  int     `json:"-"`
	Message string  `json:"error"`
	Issues  []Issue `json:"issues,omitempty"`
	Reply   string  `json:"reply,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("planner api: status %d", e.Status)
	}
	return fmt.Sprintf("planner api: status %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type CreateTaskRequest struct {
	Title           string            `json:"title"`
	CategoryID      string            `json:"categoryId"`
	DurationMinutes model.Duration    `json:"durationMinutes"`
	EnergyLevel     model.EnergyLevel `json:"energyLevel"`
	Source          model.Source      `json:"source"`
	AddToToday      bool              `json:"addToToday"`
}

type UpdateTaskRequest struct {
	Title           *string            `json:"title,omitempty"`
	CategoryID      *string            `json:"categoryId,omitempty"`
	DurationMinutes *model.Duration    `json:"durationMinutes,omitempty"`
	EnergyLevel     *model.EnergyLevel `json:"energyLevel,omitempty"`
	Source          *model.Source      `json:"source,omitempty"`
}

type CreateCategoryRequest struct {
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Description *string `json:"description,omitempty"`
	SortOrder   *int    `json:"sortOrder,omitempty"`
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Categories(ctx context.Context) ([]service.CategorySummary, error) {
	var out []service.CategorySummary
	_, err := c.do(ctx, http.MethodGet, "/categories", nil, &out)
	return out, err
}

func (c *Client) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*model.Category, error) {
	var out model.Category
	if _, err := c.do(ctx, http.MethodPost, "/categories", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/categories/"+url.PathEscape(id), nil, nil)
	return err
}

// Tasks lists active tasks, optionally for a single category.
func (c *Client) Tasks(ctx context.Context, categoryID string) ([]model.Task, error) {
	path := "/tasks"
	if categoryID != "" {
		path += "?category_id=" + url.QueryEscape(categoryID)
	}
	var out []model.Task
	_, err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Today returns the ordered Today list and the revision it was read at.
func (c *Client) Today(ctx context.Context) ([]model.Task, int64, error) {
	var out []model.Task
	header, err := c.do(ctx, http.MethodGet, "/today", nil, &out)
	if err != nil {
		return nil, 0, err
	}
	return out, parseRevision(header), nil
}

func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*model.Task, error) {
	return c.taskCall(ctx, http.MethodPost, "/tasks", req)
}

func (c *Client) UpdateTask(ctx context.Context, id string, req UpdateTaskRequest) (*model.Task, error) {
	return c.taskCall(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), req)
}

// SetToday adds or removes a task from Today. position is only used when adding.
func (c *Client) SetToday(ctx context.Context, id string, inToday bool, position *int) (*model.Task, error) {
	body := struct {
		InToday       bool `json:"inToday"`
		TodayPosition *int `json:"todayPosition,omitempty"`
	}{inToday, position}
	return c.taskCall(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id)+"/today", body)
}

func (c *Client) SetCompleted(ctx context.Context, id string, completed bool) (*model.Task, error) {
	body := struct {
		Completed bool `json:"completed"`
	}{completed}
	return c.taskCall(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id)+"/complete", body)
}

func (c *Client) Archive(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id)+"/archive", nil, nil)
	return err
}

// Reorder sends the new Today order. A nil revision skips the staleness check.
func (c *Client) Reorder(ctx context.Context, ids []string, revision *int64) error {
	body := struct {
		TaskIDs  []string `json:"taskIds"`
		Revision *int64   `json:"revision,omitempty"`
	}{ids, revision}
	_, err := c.do(ctx, http.MethodPost, "/today/reorder", body, nil)
	return err
}

// ChatContext fetches the assistant snapshot. userID may be empty.
func (c *Client) ChatContext(ctx context.Context, userID string) (service.ChatContext, error) {
	path := "/api/chat/context"
	if userID != "" {
		path += "?userId=" + url.QueryEscape(userID)
	}
	var out service.ChatContext
	_, err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Chat(ctx context.Context, message string) (assistant.ChatResult, error) {
	body := struct {
		Message string `json:"message"`
	}{message}
	var out assistant.ChatResult
	_, err := c.do(ctx, http.MethodPost, "/api/chat", body, &out)
	return out, err
}

func (c *Client) taskCall(ctx context.Context, method, path string, body any) (*model.Task, error) {
	var out model.Task
	if _, err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return resp.Header, apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.Header, nil
}

func parseRevision(h http.Header) int64 {
	rev, err := strconv.ParseInt(h.Get(revisionHeader), 10, 64)
	if err != nil {
		return 0
	}
	return rev
}
