package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/sirupsen/logrus"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/auth"
)

// HTTP routes served next to the MCP endpoint
const (
	PathMCP      = "/mcp"
	PathHealth   = "/health"
	PathSwagger  = "/swagger"
	PathSearches = "/searches"
	PathSearch   = "/searches/{id}"
)

// BuildOpenAPIDocument describes the HTTP surface of the server. withHistory
// controls whether the /searches routes are included.
func BuildOpenAPIDocument(version string, withHistory bool) (*openapi3.T, error) {
	if version == "" {
		version = "dev"
	}

	errorSchema := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("type", openapi3.NewStringSchema()).
		WithProperty("request_id", openapi3.NewStringSchema())

	recordSchema := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewInt64Schema()).
		WithProperty("request_id", openapi3.NewStringSchema()).
		WithProperty("tool", openapi3.NewStringSchema().WithEnum("search_flights", "search_hotels")).
		WithProperty("engine", openapi3.NewStringSchema()).
		WithProperty("params", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema())).
		WithProperty("status", openapi3.NewStringSchema().WithEnum("ok", "empty", "error")).
		WithProperty("result_count", openapi3.NewIntegerSchema()).
		WithProperty("error_message", openapi3.NewStringSchema()).
		WithProperty("result", openapi3.NewStringSchema()).
		WithProperty("duration_ms", openapi3.NewInt64Schema()).
		WithProperty("created_at", openapi3.NewDateTimeSchema())

	errorResponse := func(description string) *openapi3.ResponseRef {
		return &openapi3.ResponseRef{Value: openapi3.NewResponse().
			WithDescription(description).
			WithJSONSchema(errorSchema)}
	}

	health := openapi3.NewOperation()
	health.OperationID = "health"
	health.Summary = "Liveness check"
	health.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: openapi3.NewResponse().
			WithDescription("Service is healthy").
			WithJSONSchema(openapi3.NewObjectSchema().
				WithProperty("status", openapi3.NewStringSchema()).
				WithProperty("service", openapi3.NewStringSchema()))}),
	)

	swagger := openapi3.NewOperation()
	swagger.OperationID = "swagger"
	swagger.Summary = "This document"
	swagger.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: openapi3.NewResponse().
			WithDescription("OpenAPI 3 document").
			WithJSONSchema(openapi3.NewObjectSchema())}),
	)

	mcpPost := openapi3.NewOperation()
	mcpPost.OperationID = "mcp"
	mcpPost.Summary = "MCP streamable HTTP endpoint (JSON-RPC 2.0)"
	mcpPost.AddParameter(openapi3.NewHeaderParameter(auth.HeaderAPIKey).
		WithDescription("SerpAPI key used for this request instead of the configured one").
		WithSchema(openapi3.NewStringSchema()))
	mcpPost.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithJSONSchema(openapi3.NewObjectSchema())}
	mcpPost.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: openapi3.NewResponse().
			WithDescription("JSON-RPC response or event stream").
			WithJSONSchema(openapi3.NewObjectSchema())}),
	)

	paths := openapi3.NewPaths(
		openapi3.WithPath(PathHealth, &openapi3.PathItem{Get: health}),
		openapi3.WithPath(PathSwagger, &openapi3.PathItem{Get: swagger}),
		openapi3.WithPath(PathMCP, &openapi3.PathItem{Post: mcpPost}),
	)

	if withHistory {
		list := openapi3.NewOperation()
		list.OperationID = "listSearches"
		list.Summary = "Most recent searches without result text"
		list.AddParameter(openapi3.NewQueryParameter("limit").
			WithDescription("Maximum number of records, 0 for the default").
			WithSchema(openapi3.NewIntegerSchema().WithMin(0)))
		list.Responses = openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: openapi3.NewResponse().
				WithDescription("Search records, newest first").
				WithJSONSchema(openapi3.NewArraySchema().WithItems(recordSchema))}),
			openapi3.WithStatus(http.StatusBadRequest, errorResponse("Invalid limit")),
		)

		idParam := openapi3.NewPathParameter("id").
			WithDescription("Search id").
			WithSchema(openapi3.NewInt64Schema().WithMin(1))

		get := openapi3.NewOperation()
		get.OperationID = "getSearch"
		get.Summary = "One search including its result text"
		get.AddParameter(idParam)
		get.Responses = openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: openapi3.NewResponse().
				WithDescription("Search record").
				WithJSONSchema(recordSchema)}),
			openapi3.WithStatus(http.StatusBadRequest, errorResponse("Invalid id")),
			openapi3.WithStatus(http.StatusNotFound, errorResponse("Unknown id")),
		)

		del := openapi3.NewOperation()
		del.OperationID = "deleteSearch"
		del.Summary = "Delete one search"
		del.AddParameter(idParam)
		del.Responses = openapi3.NewResponses(
			openapi3.WithStatus(http.StatusNoContent, &openapi3.ResponseRef{Value: openapi3.NewResponse().
				WithDescription("Deleted")}),
			openapi3.WithStatus(http.StatusNotFound, errorResponse("Unknown id")),
		)

		paths.Set(PathSearches, &openapi3.PathItem{Get: list})
		paths.Set(PathSearch, &openapi3.PathItem{Get: get, Delete: del})
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "SerpAPI Travel MCP server",
			Description: "Flight and hotel search tools served over the Model Context Protocol",
			Version:     version,
		},
		Paths: paths,
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return doc, nil
}

// HandleSwagger serves doc as JSON
func HandleSwagger(doc *openapi3.T, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, doc)
	}
}
