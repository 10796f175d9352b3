package travel

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/models"
	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/serpapi"
)

// ToolSearchHotels is the name of the hotel search tool
const ToolSearchHotels = "search_hotels"

const (
	engineHotels = "google_hotels"
	maxHotels    = 5
)

func hotelsTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Search for hotels using Google Hotels engine via SerpAPI. " +
			"Returns a JSON string containing the top 5 hotel search results."),
		mcp.WithString("location",
			mcp.Required(),
			mcp.Description("Location to search for hotels (e.g., 'New York', 'Paris', 'Tokyo')"),
		),
		mcp.WithString("check_in_date",
			mcp.Required(),
			mcp.Pattern(datePattern),
			mcp.Description("Check-in date in YYYY-MM-DD format (e.g., '2025-12-15')"),
		),
		mcp.WithString("check_out_date",
			mcp.Required(),
			mcp.Pattern(datePattern),
			mcp.Description("Check-out date in YYYY-MM-DD format (e.g., '2025-12-20')"),
		),
		mcp.WithNumber("adults",
			integer(),
			mcp.Min(1),
			mcp.DefaultNumber(1),
			mcp.Description("Number of adults (default: 1)"),
		),
		mcp.WithNumber("children",
			integer(),
			mcp.Min(0),
			mcp.DefaultNumber(0),
			mcp.Description("Number of children (default: 0)"),
		),
		mcp.WithNumber("rooms",
			integer(),
			mcp.Min(1),
			mcp.DefaultNumber(1),
			mcp.Description("Number of rooms (default: 1)"),
		),
		mcp.WithString("hotel_class",
			mcp.Pattern(hotelClassPattern),
			mcp.Description("Hotel star rating filter as comma-separated string (e.g., '2,3,4' for 2-4 star hotels, optional)"),
		),
		mcp.WithNumber("sort_by",
			integer(),
			enumNumbers(SortLowestPrice, SortHighestRating, SortMostReviewed),
			mcp.DefaultNumber(SortHighestRating),
			mcp.Description("Sort parameter - 8 for highest rating (default), 3 for lowest price, 13 for highest price"),
		),
	}
	opts = append(opts, readOnlyAnnotations("Search hotels")...)
	return mcp.NewTool(ToolSearchHotels, opts...)
}

// HotelQuery holds normalized search_hotels arguments
type HotelQuery struct {
	Location     string
	CheckInDate  string
	CheckOutDate string
	Adults       int
	Children     int
	Rooms        int
	HotelClass   string
	SortBy       int
}

// parseHotelQuery normalizes raw arguments. Any falsy number (0, "", false,
// null) falls back to its default.
func (s *Server) parseHotelQuery(args map[string]any) (HotelQuery, []string) {
	r := newArgReader(args)
	q := HotelQuery{
		Location:   r.String("location"),
		Adults:     r.IntOrDefault("adults", 1),
		Children:   r.IntOrDefault("children", 0),
		Rooms:      r.IntOrDefault("rooms", 1),
		HotelClass: compactList(r.StringOrDefault("hotel_class", "")),
		SortBy:     r.IntOrDefault("sort_by", SortHighestRating),
	}
	checkIn, checkInAt := r.Date("check_in_date")
	checkOut, checkOutAt := r.Date("check_out_date")
	q.CheckInDate, q.CheckOutDate = checkIn, checkOut

	if !checkInAt.IsZero() && !checkOutAt.IsZero() && !checkOutAt.After(checkInAt) {
		r.fail("check_out_date: %s must be after check_in_date %s", checkOut, checkIn)
	}

	problems := append(s.schemas[ToolSearchHotels].Validate(q.schemaArgs()), r.problems...)
	return q, problems
}

// compactList removes the spaces clients put around list separators ("2, 3, 4").
func compactList(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func (q HotelQuery) schemaArgs() map[string]any {
	args := map[string]any{
		"adults":   q.Adults,
		"children": q.Children,
		"rooms":    q.Rooms,
		"sort_by":  q.SortBy,
	}
	setIfNotEmpty(args, "location", q.Location)
	setIfNotEmpty(args, "check_in_date", q.CheckInDate)
	setIfNotEmpty(args, "check_out_date", q.CheckOutDate)
	setIfNotEmpty(args, "hotel_class", q.HotelClass)
	return args
}

// Params builds the SerpAPI query for q.
func (q HotelQuery) Params(opts Options) url.Values {
	params := url.Values{}
	params.Set("engine", engineHotels)
	params.Set("hl", opts.Language)
	params.Set("gl", opts.Country)
	params.Set("q", q.Location)
	params.Set("check_in_date", q.CheckInDate)
	params.Set("check_out_date", q.CheckOutDate)
	params.Set("currency", opts.Currency)
	params.Set("adults", strconv.Itoa(q.Adults))
	params.Set("children", strconv.Itoa(q.Children))
	params.Set("rooms", strconv.Itoa(q.Rooms))
	params.Set("sort_by", strconv.Itoa(q.SortBy))
	if q.HotelClass != "" {
		params.Set("hotel_class", q.HotelClass)
	}
	return params
}

func (s *Server) handleSearchHotels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, problems := s.parseHotelQuery(request.GetArguments())
	if len(problems) > 0 {
		return invalidArguments(ToolSearchHotels, problems), nil
	}

	s.logger.Infof("Searching hotels in %s from %s to %s", q.Location, q.CheckInDate, q.CheckOutDate)
	if q.HotelClass != "" {
		s.logger.Infof("Filtering by hotel class: %s", q.HotelClass)
	}

	return s.runSearch(ctx, ToolSearchHotels, "Hotel search failed", q.Params(s.opts), s.renderHotels), nil
}

// renderHotels returns the first five properties.
func (s *Server) renderHotels(resp *serpapi.Response) (searchOutcome, error) {
	if !resp.Truthy("properties") {
		s.logger.Warn("No hotels found in response")
		return emptyOutcome("No hotels found", resp)
	}

	count := countItems(resp, "properties")
	s.logger.Infof("Found %d hotels, returning top %d", count, maxHotels)

	raw, _ := resp.Get("properties")
	if items, ok := resp.Array("properties"); ok {
		if len(items) > maxHotels {
			items = items[:maxHotels]
		}
		raw = serpapi.EncodeArray(items)
		count = len(items)
	}
	text, err := serpapi.Indent(raw)
	if err != nil {
		return searchOutcome{}, err
	}
	return searchOutcome{text: text, count: count, status: models.StatusOK}, nil
}
