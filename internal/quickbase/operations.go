package quickbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/conduit-lang/qbridge/internal/lazy"
)

// ErrInvalidOperation is returned when an operation is missing required input
var ErrInvalidOperation = errors.New("invalid operation")

// Payload is a decoded QuickBase JSON response body
type Payload = map[string]any

// Response is a QuickBase response with a lazily decoded payload
type Response = lazy.Response[Payload]

// Operation is one QuickBase API endpoint
type Operation interface {
	// Name identifies the operation in the User-Agent header and logs
	Name() string
	// Execute performs the call; HTTP error statuses are not errors
	Execute(ctx context.Context, c *Client) (*Response, error)
}

// Execute runs op against c
func Execute(ctx context.Context, c *Client, op Operation) (*Response, error) {
	if op == nil {
		return nil, fmt.Errorf("%w: nil operation", ErrInvalidOperation)
	}
	resp, err := op.Execute(ctx, c)
	if err != nil {
		c.logger.Debug("quickbase operation failed", zap.String("operation", op.Name()), zap.Error(err))
		return nil, err
	}
	return resp, nil
}

// do performs a call and wraps the body in a lazily decoded Response
func (c *Client) do(ctx context.Context, operation, method, endpoint string, query url.Values, body any) (*Response, error) {
	status, raw, err := c.Call(ctx, operation, method, endpoint, query, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return lazy.NewResponse(status, decodePayload(raw)), nil
}

// decodePayload parses the body as a JSON object. An empty body yields an
// empty payload.
func decodePayload(raw RawPayload) func() (Payload, error) {
	return func() (Payload, error) {
		data, err := raw()
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return Payload{}, nil
		}
		var p Payload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode response body: %w", err)
		}
		return p, nil
	}
}

// GetApp fetches an application's metadata
type GetApp struct {
	AppID string
}

func (GetApp) Name() string { return "GetApp" }

func (op GetApp) Execute(ctx context.Context, c *Client) (*Response, error) {
	if op.AppID == "" {
		return nil, fmt.Errorf("%w: app id is required", ErrInvalidOperation)
	}
	return c.do(ctx, op.Name(), http.MethodGet, "apps/"+url.PathEscape(op.AppID), nil, nil)
}

// GetTable fetches a table's metadata
type GetTable struct {
	AppID   string
	TableID string
}

func (GetTable) Name() string { return "GetTable" }

func (op GetTable) Execute(ctx context.Context, c *Client) (*Response, error) {
	if op.AppID == "" || op.TableID == "" {
		return nil, fmt.Errorf("%w: app id and table id are required", ErrInvalidOperation)
	}
	query := url.Values{"appId": []string{op.AppID}}
	return c.do(ctx, op.Name(), http.MethodGet, "tables/"+url.PathEscape(op.TableID), query, nil)
}

// FieldValue is a single field cell in an upserted record
type FieldValue struct {
	Value any `json:"value"`
}

// Record maps field ids to values
type Record map[string]FieldValue

// UpsertRequest is the body of an upsert call
type UpsertRequest struct {
	To             string   `json:"to"`
	Data           []Record `json:"data"`
	MergeFieldID   int      `json:"mergeFieldId,omitempty"`
	FieldsToReturn []int    `json:"fieldsToReturn,omitempty"`
}

// UpsertRecords inserts or updates records in a table
type UpsertRecords struct {
	Request UpsertRequest
}

func (UpsertRecords) Name() string { return "UpsertRecords" }

func (op UpsertRecords) Execute(ctx context.Context, c *Client) (*Response, error) {
	if op.Request.To == "" {
		return nil, fmt.Errorf("%w: target table is required", ErrInvalidOperation)
	}
	return c.do(ctx, op.Name(), http.MethodPost, "records", nil, op.Request)
}

// SortField orders query results
type SortField struct {
	FieldID int    `json:"fieldId"`
	Order   string `json:"order"`
}

// QueryRequest is the body of a records query
type QueryRequest struct {
	From   string      `json:"from"`
	Select []int       `json:"select,omitempty"`
	Where  string      `json:"where,omitempty"`
	SortBy []SortField `json:"sortBy,omitempty"`
}

// QueryRecords runs a records query against a table
type QueryRecords struct {
	Request QueryRequest
}

func (QueryRecords) Name() string { return "QueryRecords" }

func (op QueryRecords) Execute(ctx context.Context, c *Client) (*Response, error) {
	if op.Request.From == "" {
		return nil, fmt.Errorf("%w: source table is required", ErrInvalidOperation)
	}
	return c.do(ctx, op.Name(), http.MethodPost, "records/query", nil, op.Request)
}
