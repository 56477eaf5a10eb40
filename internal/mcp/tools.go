package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/typedsql/internal/dialect"
	"github.com/mvp-joe/typedsql/internal/engine"
	"github.com/mvp-joe/typedsql/internal/runtime"
	"github.com/mvp-joe/typedsql/internal/schema"
	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// DescribeRequest asks for the name and table of a type.
type DescribeRequest struct {
	TypeID string `json:"type_id"`
}

// GenerateRequest asks for the statements of a type.
type GenerateRequest struct {
	TypeID string `json:"type_id"`
}

// FilterArgument is one filter of a query request.
type FilterArgument struct {
	Key             string `json:"key"`
	Operator        string `json:"operator"`
	Values          []any  `json:"values"`
	OrWithNext      bool   `json:"or_with_next"`
	CaseInsensitive bool   `json:"case_insensitive"`
}

// QueryRequest runs a filtered select over a type.
type QueryRequest struct {
	TypeID     string           `json:"type_id"`
	Filters    []FilterArgument `json:"filters"`
	OrderBy    []string         `json:"order_by"`
	Limit      *int             `json:"limit"`
	Offset     *int             `json:"offset"`
	Count      bool             `json:"count"`
	Statistics []string         `json:"statistics"`
}

// AddDescribeTool registers the typedsql_describe tool.
func AddDescribeTool(s *server.MCPServer, e *engine.Engine) {
	tool := mcp.NewTool(
		"typedsql_describe",
		mcp.WithDescription("Show the display name and table of a type, or list the supported SQL dialects when no type is given."),
		mcp.WithString("type_id",
			mcp.Description("Type id, e.g. crm.Customer")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createDescribeHandler(e))
}

func createDescribeHandler(e *engine.Engine) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req DescribeRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if req.TypeID == "" {
			return marshalToolResponse(map[string][]string{"dialects": e.Dialects()})
		}
		d, err := e.Describe(req.TypeID)
		if err != nil {
			return toolError(err)
		}
		return marshalToolResponse(d)
	}
}

// AddGenerateTool registers the typedsql_generate tool.
func AddGenerateTool(s *server.MCPServer, e *engine.Engine) {
	tool := mcp.NewTool(
		"typedsql_generate",
		mcp.WithDescription(`Generate the SQL of a type in the configured dialect: the select joining the tables of its hierarchy, and per table the insert, merge, update and delete statements. Statements use named placeholders (:name).`),
		mcp.WithString("type_id",
			mcp.Required(),
			mcp.Description("Type id, e.g. crm.Customer")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createGenerateHandler(e))
}

func createGenerateHandler(e *engine.Engine) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req GenerateRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if req.TypeID == "" {
			return mcp.NewToolResultError("type_id parameter is required"), nil
		}
		statements, err := e.Generate(req.TypeID)
		if err != nil {
			return toolError(err)
		}
		return marshalToolResponse(statements)
	}
}

// AddQueryTool registers the typedsql_query tool.
func AddQueryTool(s *server.MCPServer, e *engine.Engine) {
	tool := mcp.NewTool(
		"typedsql_query",
		mcp.WithDescription(`Select instances of a type from the database. Filters compare fields of the type or its supertypes.

Operators: =, <>, >, <, >=, <=, like, ilike, not like, not ilike take values; a list of values matches any of them.
is null, is not null, is true, is false, is not true, is not false take [true] to apply or [false] to skip.

Example: {"type_id": "crm.Customer", "filters": [{"key": "loyaltyLevel", "operator": ">=", "values": [2]}], "order_by": ["name desc"], "limit": 20, "count": true}`),
		mcp.WithString("type_id",
			mcp.Required(),
			mcp.Description("Type id, e.g. crm.Customer")),
		mcp.WithArray("filters",
			mcp.Description(`Filters: [{"key": "field", "operator": "=", "values": [...], "or_with_next": false}]`)),
		mcp.WithArray("order_by",
			mcp.Description(`Fields with optional direction, e.g. ["name", "loyaltyLevel desc"]`)),
		mcp.WithNumber("limit",
			mcp.Description("Maximum rows to return")),
		mcp.WithNumber("offset",
			mcp.Description("Rows to skip")),
		mcp.WithBoolean("count",
			mcp.Description("Report the total row count and page")),
		mcp.WithArray("statistics",
			mcp.Description(`Fields to count rows per value for, e.g. ["loyaltyLevel"]`)),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createQueryHandler(e))
}

func createQueryHandler(e *engine.Engine) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req QueryRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if req.TypeID == "" {
			return mcp.NewToolResultError("type_id parameter is required"), nil
		}

		filters := make([]sqlgen.Filter, len(req.Filters))
		for i, f := range req.Filters {
			filters[i] = sqlgen.Filter{
				Key:             f.Key,
				Operator:        sqlgen.Operator(f.Operator),
				Values:          f.Values,
				OrWithNext:      f.OrWithNext,
				CaseInsensitive: f.CaseInsensitive,
			}
		}
		if err := e.ConvertFilters(req.TypeID, filters); err != nil {
			return toolError(err)
		}

		resp, err := e.SelectFiltered(ctx, req.TypeID, engine.FilterRequest{
			FilterRequest: sqlgen.FilterRequest{Filters: filters, Statistics: req.Statistics},
			Page:          engine.Page{OrderBy: req.OrderBy, Limit: req.Limit, Offset: req.Offset, Count: req.Count},
		})
		if err != nil {
			return toolError(err)
		}
		return marshalToolResponse(resp)
	}
}

// toolError reports caller mistakes as tool results the model can act on and
// everything else as a protocol error.
func toolError(err error) (*mcp.CallToolResult, error) {
	if isUserError(err) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

func isUserError(err error) bool {
	var (
		buildErr      *sqlgen.BuildError
		validationErr runtime.ValidationErrors
	)
	return errors.As(err, &buildErr) ||
		errors.As(err, &validationErr) ||
		errors.Is(err, schema.ErrTypeNotFound) ||
		errors.Is(err, dialect.ErrUnknownDialect) ||
		errors.Is(err, engine.ErrNoDatabase)
}

func marshalToolResponse(response any) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
