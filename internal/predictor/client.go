package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/Assay/internal/candidate"
)

// HTTPClient calls a remote model server with the whole batch in one request.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	Formulas []string `json:"formulas"`
}

type predictResponse struct {
	Predictions []Properties `json:"predictions"`
}

func (c *HTTPClient) Predict(ctx context.Context, cs []candidate.Candidate) ([]Properties, error) {
	if len(cs) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(predictRequest{Formulas: candidate.Formulas(cs)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predictor request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("predictor POST /predict: %d %s", resp.StatusCode, string(data))
	}

	var pr predictResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}
	// Rows must echo their formula so order can be checked.
	for i, p := range pr.Predictions {
		if p.Formula == "" {
			return nil, fmt.Errorf("%w: index %d: prediction has no formula", ErrAlignment, i)
		}
	}
	if err := CheckAligned(cs, pr.Predictions); err != nil {
		return nil, err
	}
	return pr.Predictions, nil
}
