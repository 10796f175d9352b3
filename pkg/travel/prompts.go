package travel

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/server"
)

// PromptPlanTrip is the name of the trip planning prompt
const PromptPlanTrip = "plan_trip"

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt(PromptPlanTrip,
		mcp.WithPromptDescription("Plan a trip by searching flights and then hotels at the destination"),
		mcp.WithArgument("origin",
			mcp.ArgumentDescription("Departure airport code, e.g. JFK"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("destination",
			mcp.ArgumentDescription("Arrival airport code, e.g. CDG"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("depart_date",
			mcp.ArgumentDescription("Outbound date in YYYY-MM-DD format"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("return_date",
			mcp.ArgumentDescription("Return date in YYYY-MM-DD format; omit for one way"),
		),
		mcp.WithArgument("travellers",
			mcp.ArgumentDescription("Number of adult travellers (default 1)"),
		),
	), s.handlePlanTrip)
}

func (s *Server) handlePlanTrip(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := request.Params.Arguments
	get := func(name string) string {
		return strings.TrimSpace(args[name])
	}

	var missing []string
	for _, name := range []string{"origin", "destination", "depart_date"} {
		if get(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, server.NewError(server.ErrorTypeValidation,
			fmt.Sprintf("missing required arguments: %s", strings.Join(missing, ", ")), PromptPlanTrip)
	}

	travellers := get("travellers")
	if travellers == "" {
		travellers = "1"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I want to travel from %s to %s, leaving on %s", get("origin"), get("destination"), get("depart_date"))
	if ret := get("return_date"); ret != "" {
		fmt.Fprintf(&b, " and returning on %s", ret)
	} else {
		b.WriteString(" (one way)")
	}
	fmt.Fprintf(&b, ", with %s adult traveller(s).\n\n", travellers)

	fmt.Fprintf(&b, "1. Call %s with departure_airport=%s, arrival_airport=%s, outbound_date=%s",
		ToolSearchFlights, get("origin"), get("destination"), get("depart_date"))
	if ret := get("return_date"); ret != "" {
		fmt.Fprintf(&b, ", return_date=%s", ret)
	}
	fmt.Fprintf(&b, " and adults=%s.\n", travellers)

	checkOut := get("return_date")
	if checkOut == "" {
		checkOut = "the day after arrival"
	}
	fmt.Fprintf(&b, "2. Call %s for the destination city with check_in_date=%s, check_out_date=%s and adults=%s.\n",
		ToolSearchHotels, get("depart_date"), checkOut, travellers)
	b.WriteString("3. Summarise the three best flight options and the three best hotels, with prices in the returned currency.")

	return mcp.NewGetPromptResult(
		fmt.Sprintf("Trip from %s to %s", get("origin"), get("destination")),
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(b.String())),
		},
	), nil
}
