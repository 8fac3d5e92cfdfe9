package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sanonone/jsonkv/pkg/engine"
)

const defaultListLimit = 100

type Service struct {
	engine *engine.Engine
}

func NewService(eng *engine.Engine) *Service {
	return &Service{engine: eng}
}

// --- Tool Handlers ---

func (s *Service) Get(ctx context.Context, req *mcp.CallToolRequest, args GetRecordArgs) (*mcp.CallToolResult, GetRecordResult, error) {
	raw, err := s.engine.Get(args.Key)
	if errors.Is(err, engine.ErrNotFound) {
		return nil, GetRecordResult{}, fmt.Errorf("no data found for key %q", args.Key)
	}
	if err != nil {
		return nil, GetRecordResult{}, err
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, GetRecordResult{}, fmt.Errorf("stored value for %q is not valid JSON: %w", args.Key, err)
	}
	return nil, GetRecordResult{Key: args.Key, Value: value}, nil
}

func (s *Service) Put(ctx context.Context, req *mcp.CallToolRequest, args PutRecordArgs) (*mcp.CallToolResult, PutRecordResult, error) {
	if err := s.engine.PutValue(ctx, args.Key, args.Value); err != nil {
		return nil, PutRecordResult{}, describe(err)
	}
	return nil, PutRecordResult{Key: args.Key, Status: "written"}, nil
}

func (s *Service) Delete(ctx context.Context, req *mcp.CallToolRequest, args DeleteRecordArgs) (*mcp.CallToolResult, DeleteRecordResult, error) {
	if err := s.engine.Delete(ctx, args.Key); err != nil {
		return nil, DeleteRecordResult{}, describe(err)
	}
	return nil, DeleteRecordResult{Key: args.Key, Status: "deleted"}, nil
}

func (s *Service) List(ctx context.Context, req *mcp.CallToolRequest, args ListRecordsArgs) (*mcp.CallToolResult, ListRecordsResult, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	keys := s.engine.Keys(args.Prefix)
	res := ListRecordsResult{Keys: keys, Total: len(keys)}
	if len(keys) > limit {
		res.Keys = keys[:limit]
		res.Truncated = true
	}
	return nil, res, nil
}

// describe hides storage internals from tool callers; the engine already
// logged the cause of persistence failures.
func describe(err error) error {
	var perr *engine.PersistenceError
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return errors.New("no data found for key")
	case errors.As(err, &perr):
		return errors.New("failed to persist data, nothing was changed")
	default:
		return err
	}
}
