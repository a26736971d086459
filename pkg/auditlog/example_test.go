package auditlog_test

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudconnect/cloudconnect/pkg/auditlog"
)

func ExampleMemorySink() {
	sink := auditlog.NewMemorySink()
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 9, 15, 0, 0, time.UTC)

	_ = sink.Append(ctx, "web1", auditlog.CreatedLine(at, "AppService", "web1", map[string]interface{}{"runtime": "python"}))
	_ = sink.Append(ctx, "web1", auditlog.ObservationLine(at, "AppService", "web1", "started", "web1 started."))

	lines, _ := sink.Read(ctx, "web1")
	for _, line := range lines {
		fmt.Println(line)
	}

	// Output:
	// [2024-05-01 09:15:00 AM] AppService 'web1' created with config {"runtime":"python"}
	// [2024-05-01 09:15:00 AM] AppService 'web1' started - web1 started.
}
