//go:build integration
// +build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
	"time"
)

// restartCatalog bounces the catalog container, wiping its in-memory state,
// and blocks until /readyz answers again. Only a snapshot outlives it.
//
// E2E_COMPOSE_FILE and E2E_CATALOG_SERVICE select the compose project and
// service; they default to ./docker-compose.yml and "catalog".
func restartCatalog(t *testing.T, ctx context.Context) {
	t.Helper()

	args := []string{"compose"}
	if file := getenv("E2E_COMPOSE_FILE", ""); file != "" {
		args = append(args, "-f", file)
	}
	service := getenv("E2E_CATALOG_SERVICE", "catalog")
	args = append(args, "restart", service)

	start := time.Now()
	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	if err != nil {
		t.Fatalf("docker %v: %v\n%s", args, err, out)
	}

	waitReady(t, ctx, baseURL+"/readyz")
	t.Logf("%s restarted and ready in %s", service, time.Since(start).Round(time.Millisecond))
}
