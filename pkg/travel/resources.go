package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/yosida95/uritemplate/v3"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/server"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/services"
)

// History resource locations
const (
	RecentSearchesURI = "travel://searches/recent"
	SearchTemplateURI = "travel://searches/{id}"
	resourceMIMEType  = "application/json"
)

var searchTemplate = uritemplate.MustNew(SearchTemplateURI)

// SearchURI returns the resource URI of one recorded search
func SearchURI(id int64) string {
	uri, err := searchTemplate.Expand(uritemplate.Values{"id": uritemplate.String(strconv.FormatInt(id, 10))})
	if err != nil {
		return fmt.Sprintf("travel://searches/%d", id)
	}
	return uri
}

func (s *Server) registerResources() {
	if s.opts.History == nil {
		return
	}

	s.mcp.AddResource(
		mcp.NewResource(RecentSearchesURI, "Recent searches",
			mcp.WithResourceDescription(fmt.Sprintf("The %d most recent flight and hotel searches, without their results", services.DefaultRecentLimit)),
			mcp.WithMIMEType(resourceMIMEType),
		),
		s.handleRecentSearches,
	)

	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(SearchTemplateURI, "Search",
			mcp.WithTemplateDescription("One recorded search including the result text returned to the client"),
			mcp.WithTemplateMIMEType(resourceMIMEType),
		),
		s.handleSearchResource,
	)
}

func (s *Server) handleRecentSearches(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	records, err := s.opts.History.Recent(ctx, services.DefaultRecentLimit)
	if err != nil {
		return nil, err
	}
	return jsonContents(request.Params.URI, records)
}

func (s *Server) handleSearchResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id, err := parseSearchURI(request.Params.URI)
	if err != nil {
		return nil, err
	}

	record, err := s.opts.History.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonContents(request.Params.URI, record)
}

// parseSearchURI extracts the numeric id from travel://searches/{id}.
func parseSearchURI(uri string) (int64, error) {
	values := searchTemplate.Match(uri)
	if values == nil {
		return 0, server.NewError(server.ErrorTypeNotFound, "unknown resource", uri)
	}

	raw := values.Get("id").String()
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, server.NewError(server.ErrorTypeValidation, fmt.Sprintf("invalid search id %q", raw), uri)
	}
	return id, nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, server.Wrap(err, server.ErrorTypeInternal, "failed to encode resource")
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: resourceMIMEType,
			Text:     string(data),
		},
	}, nil
}
