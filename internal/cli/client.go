package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clickrush/internal/game"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type AuthResponse struct {
	Token string    `json:"token"`
	User  game.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, username, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"username": username,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, username, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"username": username,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) Click(ctx context.Context, token string) (game.Game, error) {
	var out game.Game
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/game/click", token, map[string]any{}, &out)
	return out, err
}

func (c *Client) Progression(ctx context.Context, token string) (game.Progression, error) {
	var out game.Progression
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/game/progression", token, nil, &out)
	return out, err
}

func (c *Client) InitProgression(ctx context.Context, token string) (game.Progression, error) {
	var out game.Progression
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/game/progression", token, map[string]any{}, &out)
	return out, err
}

func (c *Client) Reset(ctx context.Context, token string) (game.Progression, error) {
	var out game.Progression
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/game/reset", token, map[string]any{}, &out)
	return out, err
}

func (c *Client) ResetCost(ctx context.Context, token string) (game.ResetCost, error) {
	var out game.ResetCost
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/game/reset-cost", token, nil, &out)
	return out, err
}

func (c *Client) BestScore(ctx context.Context, token string) (game.BestScore, error) {
	var out game.BestScore
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/game/best-score", token, nil, &out)
	return out, err
}

func (c *Client) Items(ctx context.Context) ([]game.Item, error) {
	var out struct {
		Items []game.Item `json:"items"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/items", "", nil, &out)
	return out.Items, err
}

func (c *Client) Inventory(ctx context.Context, token string) ([]game.InventoryRow, error) {
	var out struct {
		Inventory []game.InventoryRow `json:"inventory"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/inventory", token, nil, &out)
	return out.Inventory, err
}

func (c *Client) Buy(ctx context.Context, token string, itemID int64) ([]game.InventoryRow, error) {
	var out struct {
		Inventory []game.InventoryRow `json:"inventory"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/inventory/buy", token, map[string]any{
		"itemId": itemID,
	}, &out)
	return out.Inventory, err
}

func (c *Client) Me(ctx context.Context, token string) (game.User, error) {
	var out game.User
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/users/me", token, nil, &out)
	return out, err
}

func (c *Client) Do(ctx context.Context, method, path, token string, body map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, method, path, token, body, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
