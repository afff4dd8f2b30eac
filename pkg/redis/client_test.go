package redis

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestNewClientUnreachable(t *testing.T) {
	client, err := NewClient("127.0.0.1:1", "", 0)
	if err == nil {
		client.Close()
		t.Fatal("expected an error for an unreachable server")
	}
}

// Needs a live redis; set LRCPLAY_TEST_REDIS=host:port.
func TestClientRoundTrip(t *testing.T) {
	addr := os.Getenv("LRCPLAY_TEST_REDIS")
	if addr == "" {
		t.Skip("LRCPLAY_TEST_REDIS not set")
	}
	client, err := NewClient(addr, "", 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	key := "lrcplay:test:" + time.Now().Format(time.RFC3339Nano)
	if got, err := client.GetBytes(ctx, key); err != nil || got != nil {
		t.Fatalf("GetBytes on missing key = %q, %v; want nil, nil", got, err)
	}
	if err := client.SetWithExpiration(ctx, key, []byte("payload"), time.Minute); err != nil {
		t.Fatalf("SetWithExpiration: %v", err)
	}
	got, err := client.GetBytes(ctx, key)
	if err != nil || string(got) != "payload" {
		t.Errorf("GetBytes = %q, %v; want payload", got, err)
	}
}
