package mcp

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sanonone/jsonkv/pkg/engine"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	opts := engine.DefaultOptions(t.TempDir())
	opts.NoSync = true
	eng, err := engine.Open(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func TestServiceLifecycle(t *testing.T) {
	eng := newTestEngine(t)
	svc := NewService(eng)
	ctx := context.Background()

	_, put, err := svc.Put(ctx, nil, PutRecordArgs{Key: "alice", Value: map[string]any{"score": 5}})
	if err != nil {
		t.Fatalf("Put error = %v", err)
	}
	if put.Status != "written" {
		t.Errorf("Put status = %q", put.Status)
	}

	_, got, err := svc.Get(ctx, nil, GetRecordArgs{Key: "alice"})
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if diff := cmp.Diff(map[string]any{"score": 5.0}, got.Value); diff != "" {
		t.Errorf("Get value mismatch (-want +got):\n%s", diff)
	}

	if _, _, err := svc.Delete(ctx, nil, DeleteRecordArgs{Key: "alice"}); err != nil {
		t.Fatalf("Delete error = %v", err)
	}
	if _, _, err := svc.Get(ctx, nil, GetRecordArgs{Key: "alice"}); err == nil {
		t.Error("Get after Delete succeeded")
	}
	if _, _, err := svc.Delete(ctx, nil, DeleteRecordArgs{Key: "alice"}); err == nil {
		t.Error("second Delete succeeded")
	}
}

func TestServiceRejectsEmptyKey(t *testing.T) {
	svc := NewService(newTestEngine(t))
	if _, _, err := svc.Put(context.Background(), nil, PutRecordArgs{Key: "", Value: 1}); err == nil {
		t.Error("Put with empty key succeeded")
	}
}

func TestServiceListLimit(t *testing.T) {
	eng := newTestEngine(t)
	svc := NewService(eng)
	ctx := context.Background()

	for _, k := range []string{"user:3", "user:1", "user:2", "admin"} {
		if _, _, err := svc.Put(ctx, nil, PutRecordArgs{Key: k, Value: true}); err != nil {
			t.Fatal(err)
		}
	}

	_, res, err := svc.List(ctx, nil, ListRecordsArgs{Prefix: "user:", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	want := ListRecordsResult{Keys: []string{"user:1", "user:2"}, Total: 3, Truncated: true}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestMCPToolsOverInMemoryTransport(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	server := NewMCPServer(eng)
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer serverSession.Close()

	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "record_put",
		Arguments: map[string]any{"key": "bob", "value": "not-an-object-is-fine-too"},
	})
	if err != nil {
		t.Fatalf("CallTool(record_put) error = %v", err)
	}
	if res.IsError {
		t.Fatalf("record_put returned a tool error: %+v", res.Content)
	}

	value, err := eng.Get("bob")
	if err != nil {
		t.Fatal(err)
	}
	if string(value) != `"not-an-object-is-fine-too"` {
		t.Errorf("stored value = %s", value)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "record_get",
		Arguments: map[string]any{"key": "missing"},
	})
	if err != nil {
		t.Fatalf("CallTool(record_get) error = %v", err)
	}
	if !res.IsError {
		t.Error("record_get on a missing key did not report a tool error")
	}
}
