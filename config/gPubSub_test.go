package config

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGetClient_HonorsCancelledContext(t *testing.T) {
	t.Setenv("PUBSUB_PROJECT_ID", "test-project")
	t.Setenv("PUBSUB_CREDENTIALS_JSON", "{not json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := GetClient(ctx)
	if err == nil {
		t.Fatalf("expected an error for a cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in the chain, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("init kept retrying for %s after cancellation", elapsed)
	}
}

func TestGetClient_RequiresProjectId(t *testing.T) {
	t.Setenv("PUBSUB_PROJECT_ID", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	t.Setenv("GCP_PROJECT", "")

	if _, err := GetClient(context.Background()); err == nil {
		t.Fatalf("expected an error without a project id")
	}
}
