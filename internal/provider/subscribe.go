// Package provider registers this process's webhook endpoint with the
// social-platform provider: a one-shot setup call, not part of the ingress
// or dispatch path.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hookfan/internal/config"
)

// DefaultFields is subscribed when no service declares an interest filter.
var DefaultFields = []string{
	"feed",
	"messages",
	"message_deliveries",
	"messaging_postbacks",
	"message_reads",
	"ratings",
	"mention",
}

// FieldsFromServices unions the interest filters of all configured
// services, falling back to DefaultFields when every service is a
// catch-all.
func FieldsFromServices(services []config.Service) []string {
	seen := make(map[string]bool)
	var fields []string
	for _, svc := range services {
		for _, f := range svc.Fields {
			if !seen[f] {
				seen[f] = true
				fields = append(fields, f)
			}
		}
	}
	if len(fields) == 0 {
		return DefaultFields
	}
	return fields
}

// Subscribe fetches an app access token with client credentials and posts
// the subscription: object, callback URL, fields, and the process verify
// token the provider will hand back during the handshake.
func Subscribe(ctx context.Context, cfg config.ProviderConfig, verifyToken string, fields []string) error {
	client := &http.Client{Timeout: 15 * time.Second}

	token, err := appAccessToken(ctx, client, cfg)
	if err != nil {
		return fmt.Errorf("failed to get app access token: %w", err)
	}

	form := url.Values{}
	form.Set("object", "page")
	form.Set("callback_url", cfg.CallbackURL)
	form.Set("fields", strings.Join(fields, ","))
	form.Set("verify_token", verifyToken)
	form.Set("access_token", token)

	endpoint := fmt.Sprintf("%s/%s/subscriptions", cfg.GraphURL, cfg.AppID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("subscription registration returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func appAccessToken(ctx context.Context, client *http.Client, cfg config.ProviderConfig) (string, error) {
	q := url.Values{}
	q.Set("client_id", cfg.AppID)
	q.Set("client_secret", cfg.AppSecret)
	q.Set("grant_type", "client_credentials")

	endpoint := fmt.Sprintf("%s/oauth/access_token?%s", cfg.GraphURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access token")
	}
	return out.AccessToken, nil
}
