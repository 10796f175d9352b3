package travel

import (
	"context"
	"net/url"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/models"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/serpapi"
)

// ToolSearchFlights is the name of the flight search tool
const ToolSearchFlights = "search_flights"

const (
	engineFlights   = "google_flights"
	tripRoundTrip   = "1"
	tripOneWay      = "2"
	maxOtherFlights = 10
)

func flightsTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Search for flights using Google Flights engine via SerpAPI. " +
			"Returns a JSON string containing flight search results with best flights."),
		mcp.WithString("departure_airport",
			mcp.Required(),
			mcp.Description("Departure airport code (e.g., 'NYC', 'LAX', 'JFK')"),
		),
		mcp.WithString("arrival_airport",
			mcp.Required(),
			mcp.Description("Arrival airport code (e.g., 'LON', 'NRT', 'CDG')"),
		),
		mcp.WithString("outbound_date",
			mcp.Required(),
			mcp.Pattern(datePattern),
			mcp.Description("Departure date in YYYY-MM-DD format (e.g., '2025-12-15')"),
		),
		mcp.WithString("return_date",
			mcp.Pattern(datePattern),
			mcp.Description("Return date in YYYY-MM-DD format (optional for one-way trips)"),
		),
		mcp.WithNumber("adults",
			integer(),
			mcp.Min(1),
			mcp.DefaultNumber(1),
			mcp.Description("Number of adult passengers (default: 1)"),
		),
		mcp.WithNumber("children",
			integer(),
			mcp.Min(0),
			mcp.DefaultNumber(0),
			mcp.Description("Number of child passengers (default: 0)"),
		),
	}
	opts = append(opts, readOnlyAnnotations("Search flights")...)
	return mcp.NewTool(ToolSearchFlights, opts...)
}

// FlightQuery holds normalized search_flights arguments
type FlightQuery struct {
	DepartureAirport string
	ArrivalAirport   string
	OutboundDate     string
	ReturnDate       string
	Adults           int
	Children         int
}

// parseFlightQuery normalizes raw arguments and returns every problem found.
// Omitted or null numbers take their defaults.
func (s *Server) parseFlightQuery(args map[string]any) (FlightQuery, []string) {
	r := newArgReader(args)
	q := FlightQuery{
		DepartureAirport: r.String("departure_airport"),
		ArrivalAirport:   r.String("arrival_airport"),
		Adults:           r.Int("adults", 1),
		Children:         r.Int("children", 0),
	}
	outbound, outboundAt := r.Date("outbound_date")
	ret, returnAt := r.Date("return_date")
	q.OutboundDate, q.ReturnDate = outbound, ret

	if !outboundAt.IsZero() && !returnAt.IsZero() && returnAt.Before(outboundAt) {
		r.fail("return_date: %s is before outbound_date %s", ret, outbound)
	}

	problems := append(s.schemas[ToolSearchFlights].Validate(q.schemaArgs()), r.problems...)
	return q, problems
}

func (q FlightQuery) schemaArgs() map[string]any {
	args := map[string]any{
		"adults":   q.Adults,
		"children": q.Children,
	}
	setIfNotEmpty(args, "departure_airport", q.DepartureAirport)
	setIfNotEmpty(args, "arrival_airport", q.ArrivalAirport)
	setIfNotEmpty(args, "outbound_date", q.OutboundDate)
	setIfNotEmpty(args, "return_date", q.ReturnDate)
	return args
}

// Params builds the SerpAPI query for q.
func (q FlightQuery) Params(opts Options) url.Values {
	params := url.Values{}
	params.Set("engine", engineFlights)
	params.Set("hl", opts.Language)
	params.Set("gl", opts.Country)
	params.Set("departure_id", q.DepartureAirport)
	params.Set("arrival_id", q.ArrivalAirport)
	params.Set("outbound_date", q.OutboundDate)
	params.Set("currency", opts.Currency)
	params.Set("adults", strconv.Itoa(q.Adults))
	params.Set("children", strconv.Itoa(q.Children))
	if q.ReturnDate != "" {
		params.Set("type", tripRoundTrip)
		params.Set("return_date", q.ReturnDate)
	} else {
		params.Set("type", tripOneWay)
	}
	return params
}

func (s *Server) handleSearchFlights(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, problems := s.parseFlightQuery(request.GetArguments())
	if len(problems) > 0 {
		return invalidArguments(ToolSearchFlights, problems), nil
	}

	s.logger.Infof("Searching flights: %s -> %s on %s", q.DepartureAirport, q.ArrivalAirport, q.OutboundDate)
	if q.ReturnDate != "" {
		s.logger.Infof("Round trip with return on %s", q.ReturnDate)
	} else {
		s.logger.Info("One way trip")
	}

	return s.runSearch(ctx, ToolSearchFlights, "Flight search failed", q.Params(s.opts), s.renderFlights), nil
}

// renderFlights prefers best_flights, then up to ten other_flights.
func (s *Server) renderFlights(resp *serpapi.Response) (searchOutcome, error) {
	if resp.Truthy("best_flights") {
		raw, _ := resp.Get("best_flights")
		text, err := serpapi.Indent(raw)
		if err != nil {
			return searchOutcome{}, err
		}
		count := countItems(resp, "best_flights")
		s.logger.Infof("Found %d best flights", count)
		return searchOutcome{text: text, count: count, status: models.StatusOK}, nil
	}

	if resp.Truthy("other_flights") {
		count := countItems(resp, "other_flights")
		s.logger.Infof("Found %d other flights (no best flights)", count)

		flights, _ := resp.Get("other_flights")
		if items, ok := resp.Array("other_flights"); ok {
			if len(items) > maxOtherFlights {
				items = items[:maxOtherFlights]
			}
			flights = serpapi.EncodeArray(items)
			count = len(items)
		}
		text, err := encodeMessage(
			serpapi.ObjectField{Key: "message", Value: "No best flights found, showing other options"},
			serpapi.ObjectField{Key: "flights", Value: flights},
		)
		if err != nil {
			return searchOutcome{}, err
		}
		return searchOutcome{text: text, count: count, status: models.StatusOK}, nil
	}

	s.logger.Warn("No flights found in response")
	return emptyOutcome("No flights found", resp)
}

// countItems returns the length of an array member, or 1 for any other
// non-empty value.
func countItems(resp *serpapi.Response, key string) int {
	if items, ok := resp.Array(key); ok {
		return len(items)
	}
	if resp.Truthy(key) {
		return 1
	}
	return 0
}

func setIfNotEmpty(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
