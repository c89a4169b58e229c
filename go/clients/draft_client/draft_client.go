package draft_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mcdev12/fpldraft/go/clients"
	"github.com/mcdev12/fpldraft/go/internal/draft/coordinator"
)

// UserIDHeader carries the caller identity, as the server expects it.
const UserIDHeader = coordinator.UserIDHeader

// DraftClient calls the draft HTTP API as one participant.
type DraftClient struct {
	*clients.BaseClient
	userID string
}

func NewDraftClient(baseURL, userID string) *DraftClient {
	client := &DraftClient{
		BaseClient: clients.NewBaseClient(baseURL),
		userID:     userID,
	}
	if userID != "" {
		client.SetHeader(UserIDHeader, userID)
	}
	client.SetHeader("Accept", "application/json")
	return client
}

func (c *DraftClient) UserID() string {
	return c.userID
}

// SubmitPick submits a pick. Rejections (including TurnAlreadyTaken) come back
// as a result with Accepted false and a nil error.
func (c *DraftClient) SubmitPick(ctx context.Context, divisionID string, playerID int) (*coordinator.SubmitPickResult, error) {
	body, err := json.Marshal(map[string]int{"playerId": playerID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pick: %w", err)
	}

	data, err := c.Post(ctx, divisionPath(divisionID, "picks"), bytes.NewReader(body))
	if err != nil {
		var apiErr *clients.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusConflict || apiErr.StatusCode == http.StatusUnprocessableEntity) {
			data = apiErr.Body
		} else {
			return nil, fmt.Errorf("failed to submit pick: %w", err)
		}
	}

	var res coordinator.SubmitPickResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode pick result: %w", err)
	}
	return &res, nil
}

func (c *DraftClient) LoadDraftData(ctx context.Context, divisionID string) (*coordinator.DraftData, error) {
	var out coordinator.DraftData
	if err := c.GetJSON(ctx, divisionPath(divisionID, "draft"), &out); err != nil {
		return nil, fmt.Errorf("failed to load draft data: %w", err)
	}
	return &out, nil
}

// Poll asks whether picks were made since lastKnownPickCount.
func (c *DraftClient) Poll(ctx context.Context, divisionID string, lastKnownPickCount int) (*coordinator.PollResult, error) {
	endpoint := divisionPath(divisionID, "poll") + "?since=" + strconv.Itoa(lastKnownPickCount)
	var out coordinator.PollResult
	if err := c.GetJSON(ctx, endpoint, &out); err != nil {
		return nil, fmt.Errorf("failed to poll draft: %w", err)
	}
	return &out, nil
}

// IsNotFound reports whether err is the server's 404 for an unknown draft.
func IsNotFound(err error) bool {
	var apiErr *clients.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func divisionPath(divisionID, resource string) string {
	return "/api/divisions/" + url.PathEscape(divisionID) + "/" + resource
}
