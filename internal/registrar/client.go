package registrar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client talks to an external registrar service that owns enrollment data.
// When configured it replaces the local enrollments table as the attendance
// validator's enrollment gateway.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client with a short request timeout.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Health checks registrar connectivity.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registrar health: status %d", resp.StatusCode)
	}
	return nil
}

// IsEnrolled asks the registrar whether a student is on a course roster.
func (c *Client) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	u := fmt.Sprintf("%s/enrollments?course=%s&student=%s",
		c.baseURL, url.QueryEscape(courseID), url.QueryEscape(studentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("registrar enrollment check: status %d", resp.StatusCode)
	}
	var body struct {
		Enrolled bool `json:"enrolled"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}
	return body.Enrolled, nil
}
