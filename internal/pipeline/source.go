package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/svcaudit/vigil/internal/conversation"
)

// HTTPCommentSource pulls work order comments from the upstream work order
// service when the triggering event carries none.
type HTTPCommentSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPCommentSource(baseURL string) *HTTPCommentSource {
	return &HTTPCommentSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPCommentSource) Comments(ctx context.Context, workID int64) ([]conversation.RawComment, error) {
	url := fmt.Sprintf("%s/api/v1/workorders/%d/comments", s.baseURL, workID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build comments request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("comments request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("comments endpoint returned %d for work order %d", resp.StatusCode, workID)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read comments response: %w", err)
	}

	var comments []conversation.RawComment
	if err := json.Unmarshal(body, &comments); err != nil {
		return nil, fmt.Errorf("parse comments for work order %d: %w", workID, err)
	}
	return comments, nil
}
