// Package main is a smoke-test utility for a running CreaVibe API. It signs a session
// JWT with the configured BaaS secret, then walks the token lifecycle: read the profile,
// issue an API token, call the public API with it and revoke it. Useful as a quick
// post-deployment check.
//
//	CONFIG_PATH=config.yaml CREAVIBE_API_URL=http://localhost:8080 test-api
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/creavibe/creavibe/internal/auth"
	"github.com/creavibe/creavibe/internal/config"
)

type client struct {
	baseURL string
	http    *http.Client
}

func (c *client) call(method, path, bearer string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	return resp.StatusCode, raw, err
}

func step(name string, status, want int, body []byte) {
	mark := "OK  "
	if status != want {
		mark = "FAIL"
	}
	fmt.Printf("[%s] %-32s %d\n", mark, name, status)
	if status != want {
		fmt.Printf("       %s\n", strings.TrimSpace(string(body)))
		os.Exit(1)
	}
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	baseURL := os.Getenv("CREAVIBE_API_URL")
	if baseURL == "" {
		baseURL = cfg.Server.BaseURL
	}

	verifier, err := auth.NewVerifier(cfg.BaaS.JWTSecret, cfg.BaaS.JWTAudience)
	if err != nil {
		log.Fatalf("Failed to create verifier: %v", err)
	}
	userID := uuid.New().String()
	session, err := verifier.Sign(userID, "smoke-test@creavibe.local", 10*time.Minute)
	if err != nil {
		log.Fatalf("Failed to sign session: %v", err)
	}

	c := &client{baseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{Timeout: 10 * time.Second}}
	fmt.Printf("Smoke testing %s as %s\n\n", c.baseURL, userID)

	status, body, err := c.call(http.MethodGet, "/health", "", nil)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	step("GET /health", status, http.StatusOK, body)

	status, body, _ = c.call(http.MethodGet, "/api/v1/profile", session, nil)
	step("GET /api/v1/profile", status, http.StatusOK, body)

	status, body, _ = c.call(http.MethodPost, "/api/v1/tokens", session, map[string]string{"name": "smoke test"})
	step("POST /api/v1/tokens", status, http.StatusCreated, body)

	var created struct {
		Data struct {
			ID    string `json:"id"`
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.Data.Token == "" {
		log.Fatalf("Unexpected token response: %s", body)
	}

	status, body, _ = c.call(http.MethodGet, "/api/public/v1/projects", created.Data.Token, nil)
	step("GET /api/public/v1/projects", status, http.StatusOK, body)

	status, body, _ = c.call(http.MethodDelete, "/api/v1/tokens/"+created.Data.ID, session, nil)
	step("DELETE /api/v1/tokens/:id", status, http.StatusOK, body)

	status, body, _ = c.call(http.MethodGet, "/api/public/v1/projects", created.Data.Token, nil)
	step("revoked token rejected", status, http.StatusUnauthorized, body)

	fmt.Println("\nAll checks passed")
}
