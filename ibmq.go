package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultHTTPTimeout = 30 * time.Second
	accessTokenHeader  = "X-Access-Token"
	queuePending       = "PENDING_IN_QUEUE"
)

// APIError is a non-2xx answer from the job service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("job service returned %d: %s", e.StatusCode, e.Message)
}

// IBMQClient talks to the IBM Q job API. It logs in lazily with the API
// token and keeps the access token for later calls.
type IBMQClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.Mutex
	accessToken string
}

// NewIBMQClient returns a client for the service at baseURL. A nil httpClient
// uses one with a 30s timeout.
func NewIBMQClient(baseURL, apiToken string, httpClient *http.Client) *IBMQClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &IBMQClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiToken:   apiToken,
		httpClient: httpClient,
		logger:     GetLogger().Named("ibmq"),
	}
}

type loginRequest struct {
	APIToken string `json:"apiToken"`
}

type loginResponse struct {
	ID string `json:"id"`
}

type jobQASM struct {
	QASM   string     `json:"qasm,omitempty"`
	Result *jobResult `json:"result,omitempty"`
}

type jobBackend struct {
	Name string `json:"name"`
}

type submitRequest struct {
	Qasms   []jobQASM  `json:"qasms"`
	Shots   int        `json:"shots"`
	Backend jobBackend `json:"backend"`
}

type infoQueue struct {
	Status   string `json:"status"`
	Position int    `json:"position"`
}

type jobResult struct {
	Data resultData `json:"data"`
}

type resultData struct {
	Counts map[string]int      `json:"counts"`
	Time   jsoniter.RawMessage `json:"time,omitempty"`
}

// computeTime returns the execution time the service reported, in seconds.
func (d resultData) computeTime() (float64, error) {
	raw := bytes.TrimSpace(d.Time)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errors.New("time field missing")
	}
	var secs float64
	if err := json.Unmarshal(raw, &secs); err != nil {
		return 0, errors.Wrapf(err, "time field %s", raw)
	}
	if secs < 0 {
		return 0, errors.Newf("negative time %g", secs)
	}
	return secs, nil
}

// JobResponse is the service's view of a job.
type JobResponse struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	InfoQueue *infoQueue `json:"infoQueue,omitempty"`
	Qasms     []jobQASM  `json:"qasms,omitempty"`
}

func (r *JobResponse) jobStatus() JobStatus {
	switch {
	case r.Status == "COMPLETED":
		return JobStatus{State: JobDone}
	case r.Status == "RUNNING":
		if r.InfoQueue != nil && r.InfoQueue.Status == queuePending {
			return JobStatus{State: JobQueued, QueuePosition: r.InfoQueue.Position}
		}
		return JobStatus{State: JobRunning}
	case r.Status == "CANCELLED":
		return JobStatus{State: JobCancelled}
	case strings.HasPrefix(r.Status, "ERROR"):
		return JobStatus{State: JobFailed, Message: r.Status}
	default:
		return JobStatus{State: JobQueued, Message: strings.ToLower(r.Status)}
	}
}

// Login exchanges the API token for an access token.
func (c *IBMQClient) Login(ctx context.Context) error {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/users/loginWithToken", "", loginRequest{APIToken: c.apiToken}, &resp); err != nil {
		return errors.Wrap(err, "login")
	}
	if resp.ID == "" {
		return errors.New("login: empty access token")
	}
	c.mu.Lock()
	c.accessToken = resp.ID
	c.mu.Unlock()
	c.logger.Info("logged in", zap.String("url", c.baseURL))
	return nil
}

func (c *IBMQClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	tok := c.accessToken
	c.mu.Unlock()
	if tok != "" {
		return tok, nil
	}
	if err := c.Login(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, nil
}

// SubmitJob queues qasm on backend for shots repetitions.
func (c *IBMQClient) SubmitJob(ctx context.Context, qasm string, shots int, backend string) (*JobResponse, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	req := submitRequest{
		Qasms:   []jobQASM{{QASM: qasm}},
		Shots:   shots,
		Backend: jobBackend{Name: backend},
	}
	var resp JobResponse
	if err := c.do(ctx, http.MethodPost, "/Jobs", tok, req, &resp); err != nil {
		return nil, errors.Wrap(err, "submit job")
	}
	if resp.ID == "" {
		return nil, errors.New("submit job: no job id in response")
	}
	return &resp, nil
}

// GetJob fetches the current state of job id.
func (c *IBMQClient) GetJob(ctx context.Context, id string) (*JobResponse, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	var resp JobResponse
	if err := c.do(ctx, http.MethodGet, "/Jobs/"+url.PathEscape(id), tok, nil, &resp); err != nil {
		return nil, errors.Wrapf(err, "get job %s", id)
	}
	return &resp, nil
}

func (c *IBMQClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(accessTokenHeader, token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	c.logger.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: apiErrorMessage(respBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// apiErrorMessage pulls error.message out of a service error body, falling
// back to the raw text.
func apiErrorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(body))
}
