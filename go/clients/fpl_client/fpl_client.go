package fpl_client

import (
	"context"
	"fmt"

	"github.com/mcdev12/fpldraft/go/clients"
)

type FPLClient struct {
	*clients.BaseClient
}

func NewFPLClient(baseURL string) *FPLClient {
	if baseURL == "" {
		baseURL = BaseURL
	}
	client := &FPLClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}
	client.SetHeader(UserAgentHeader, UserAgent)
	return client
}

// Element is a player record from bootstrap-static.
type Element struct {
	ID          int    `json:"id"`
	WebName     string `json:"web_name"`
	FirstName   string `json:"first_name"`
	SecondName  string `json:"second_name"`
	ElementType int    `json:"element_type"`
	Team        int    `json:"team"`
	Status      string `json:"status"`
	NowCost     int    `json:"now_cost"`
}

type Team struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

type BootstrapStatic struct {
	Elements []Element `json:"elements"`
	Teams    []Team    `json:"teams"`
}

// GetBootstrapStatic fetches the full player and team listing.
func (c *FPLClient) GetBootstrapStatic(ctx context.Context) (*BootstrapStatic, error) {
	var out BootstrapStatic
	if err := c.GetJSON(ctx, BootstrapStaticEndpoint, &out); err != nil {
		return nil, fmt.Errorf("failed to get bootstrap-static: %w", err)
	}
	return &out, nil
}

// TeamShortNames indexes team short names by FPL team id.
func (b *BootstrapStatic) TeamShortNames() map[int]string {
	names := make(map[int]string, len(b.Teams))
	for _, t := range b.Teams {
		names[t.ID] = t.ShortName
	}
	return names
}
