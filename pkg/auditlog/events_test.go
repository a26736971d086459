package auditlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cloudconnect/cloudconnect/pkg/stores"
	"github.com/cloudconnect/cloudconnect/pkg/telemetry"
)

func TestStoreSink_PersistEvents(t *testing.T) {
	ctx := context.Background()

	store, err := stores.Open(ctx, stores.Config{Path: filepath.Join(t.TempDir(), "events.db")})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	sink := NewStoreSink(store)

	publisher, err := telemetry.NewEventPublisher(telemetry.EventsConfig{Enabled: true})
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}
	PersistEvents(ctx, publisher, sink, nil)

	_ = publisher.PublishResourceCreated("web1", "AppService", map[string]interface{}{"runtime": "python"})
	_ = publisher.PublishTransition("web1", "AppService", "start", "created", "started")
	_ = publisher.PublishPolicyReloaded("policies", 2)

	all, err := sink.Events(ctx, "", 0)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}

	web1, err := sink.Events(ctx, "web1", 0)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(web1) != 2 {
		t.Fatalf("expected 2 events for web1, got %d", len(web1))
	}

	created := web1[0]
	if created.Type != telemetry.EventTypeResourceCreated || created.Kind != "AppService" || created.ID == "" {
		t.Errorf("unexpected event: %+v", created)
	}
	cfg, ok := created.Data["config"].(map[string]interface{})
	if !ok || cfg["runtime"] != "python" {
		t.Errorf("event data not restored: %v", created.Data)
	}
	if web1[1].Data["new_state"] != "started" {
		t.Errorf("unexpected transition data: %v", web1[1].Data)
	}

	limited, err := sink.Events(ctx, "", 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("expected one event with limit, got %d (%v)", len(limited), err)
	}
}
