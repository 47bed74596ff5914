package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"energy-billing/internal/model"
)

const DefaultBaseURL = "http://homeassistant.local:8123"

// HomeAssistantClient reads entity states from the Home Assistant REST API.
type HomeAssistantClient struct {
	Token   string
	BaseURL string
	Client  *http.Client
	log     zerolog.Logger
}

// NewHomeAssistantClient creates a client. If baseURL is empty, DefaultBaseURL is used.
func NewHomeAssistantClient(token, baseURL string, timeout time.Duration, log zerolog.Logger) *HomeAssistantClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HomeAssistantClient{
		Token:   token,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "homeassistant").Logger(),
	}
}

// APIError is a failed request to the Home Assistant API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// entityState is the subset of GET /api/states/<entity_id> we use.
type entityState struct {
	EntityID    string    `json:"entity_id"`
	State       string    `json:"state"`
	LastUpdated time.Time `json:"last_updated"`
}

func (c *HomeAssistantClient) Read(ctx context.Context, entityID string) (model.Reading, error) {
	if c.Token == "" {
		return model.Invalid, &APIError{Code: "MISSING_TOKEN", Message: "access token is required"}
	}
	if entityID == "" {
		return model.Invalid, fmt.Errorf("entity_id is required")
	}

	u, err := url.Parse(c.BaseURL + "/api/states/" + url.PathEscape(entityID))
	if err != nil {
		return model.Invalid, fmt.Errorf("invalid base URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.Invalid, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.Client.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.log.Debug().Err(err).Str("entity", entityID).Dur("duration", duration).Msg("request failed")
		return model.Invalid, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug().Str("entity", entityID).Int("status", resp.StatusCode).Dur("duration", duration).Msg("state fetched")

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.Invalid, &APIError{
			StatusCode: resp.StatusCode,
			Code:       "UNAUTHORIZED",
			Message:    "Unauthorized: invalid access token",
		}
	case http.StatusNotFound:
		return model.Invalid, &APIError{
			StatusCode: resp.StatusCode,
			Code:       "ENTITY_NOT_FOUND",
			Message:    fmt.Sprintf("entity %s not found", entityID),
		}
	default:
		return model.Invalid, &APIError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	var st entityState
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return model.Invalid, fmt.Errorf("failed to decode response: %w", err)
	}
	return model.ParseReading(st.State), nil
}
