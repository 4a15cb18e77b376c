//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8082")

func TestSystem_E2E_ReviewAndReport(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	id := 100000 + rand.Intn(800000)
	path := fmt.Sprintf("%s/products/%d", baseURL, id)

	doJSON(t, http.MethodPost, baseURL+"/products", map[string]any{
		"id":    id,
		"name":  "E2E Tea",
		"price": "1.99",
	}, nil, 201)

	for _, rating := range []int{5, 3} {
		doJSON(t, http.MethodPost, path+"/reviews", map[string]any{
			"rating":   rating,
			"comments": fmt.Sprintf("rated %d", rating),
		}, nil, 200)
	}

	var entry struct {
		Product struct {
			ID     int `json:"id"`
			Rating int `json:"rating"`
		} `json:"product"`
		Reviews []map[string]any `json:"reviews"`
	}
	doJSON(t, http.MethodGet, path, nil, &entry, 200)
	if entry.Product.Rating != 4 || len(entry.Reviews) != 2 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	report := getText(t, path+"/report?locale=en-GB", 200)
	if !strings.HasPrefix(report, "E2E Tea, Price: ") {
		t.Fatalf("unexpected report: %q", report)
	}

	pass := os.Getenv("E2E_ADMIN_PASSWORD")
	if pass == "" {
		return
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	doJSON(t, http.MethodPost, baseURL+"/auth/token", map[string]any{"password": pass}, &tok, 200)
	if tok.AccessToken == "" {
		t.Fatalf("empty access_token")
	}

	doJSONAuth(t, http.MethodPost, baseURL+"/admin/dump", tok.AccessToken, nil, nil, 200)
	doJSON(t, http.MethodGet, path, nil, nil, 404)

	if os.Getenv("E2E_RESTART_CATALOG") == "1" {
		restartCatalog(t, ctx)
	}

	doJSONAuth(t, http.MethodPost, baseURL+"/admin/restore", tok.AccessToken, nil, nil, 204)
	doJSON(t, http.MethodGet, path, nil, &entry, 200)
	if len(entry.Reviews) != 2 {
		t.Fatalf("reviews after restore: %d", len(entry.Reviews))
	}
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func getText(t *testing.T, url string, want int) string {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != want {
		t.Fatalf("GET %s: status=%d want=%d body=%s", url, resp.StatusCode, want, string(raw))
	}
	return string(raw)
}

func doJSON(t *testing.T, method, url string, body any, out any, want int) {
	t.Helper()
	doJSONAuth(t, method, url, "", body, out, want)
}

func doJSONAuth(t *testing.T, method, url, token string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
