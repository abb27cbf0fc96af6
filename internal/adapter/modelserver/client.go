// Package modelserver is the HTTP client for the external classifier
// process. The classifier artifact is loaded once by that process; this
// client only forwards feature records and decodes its scores.
package modelserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
)

const scorePath = "/v1/score"

// Client implements domain.Scorer against a model server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a model server client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type scoreRequest struct {
	State    string  `json:"state"`
	Month    int     `json:"month"`
	Rainfall float64 `json:"rainfall"`
	PH       float64 `json:"ph"`
	BOD      float64 `json:"bod"`
	Nitrate  float64 `json:"nitrate"`
	Temp     float64 `json:"temp"`
}

type scoreResponse struct {
	Probabilities      map[string]float64 `json:"probabilities"`
	FeatureImportances []float64          `json:"feature_importances"`
	ImportanceError    string             `json:"importance_error"`
}

// Score implements domain.Scorer. Transport and decode failures are errors;
// a missing importance vector is reported through Scores.ImportanceErr.
func (c *Client) Score(ctx context.Context, rec domain.FeatureRecord) (domain.Scores, error) {
	body, err := json.Marshal(scoreRequest{
		State:    rec.State,
		Month:    rec.Month,
		Rainfall: rec.Rainfall,
		PH:       rec.PH,
		BOD:      rec.BOD,
		Nitrate:  rec.Nitrate,
		Temp:     rec.Temp,
	})
	if err != nil {
		return domain.Scores{}, fmt.Errorf("encode score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+scorePath, bytes.NewReader(body))
	if err != nil {
		return domain.Scores{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Scores{}, fmt.Errorf("score request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Scores{}, fmt.Errorf("model server error: status %d: %s", resp.StatusCode, msg)
	}

	var sr scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return domain.Scores{}, fmt.Errorf("decode score response: %w", err)
	}

	scores := domain.Scores{
		Probabilities: make(domain.Distribution, len(sr.Probabilities)),
		Importances:   sr.FeatureImportances,
	}
	for label, p := range sr.Probabilities {
		scores.Probabilities[domain.RiskLevel(strings.ToUpper(label))] = p
	}
	if sr.ImportanceError != "" {
		scores.ImportanceErr = errors.New(sr.ImportanceError)
	}
	return scores, nil
}

// Ping checks that the model server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping model server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
