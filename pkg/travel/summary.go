package travel

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// PrintToolSummary prints a human-readable summary of the registered tools.
//
// Output example:
//
//	Total tools: 2
//	  search_flights  arrival_airport*, departure_airport*, outbound_date*, adults, children, return_date
//	  search_hotels   check_in_date*, check_out_date*, location*, adults, children, hotel_class, rooms, sort_by
//
// Required arguments are marked with an asterisk.
func PrintToolSummary(w io.Writer, tools []mcp.Tool) {
	fmt.Fprintf(w, "Total tools: %d\n", len(tools))

	width := 0
	for _, tool := range tools {
		if len(tool.Name) > width {
			width = len(tool.Name)
		}
	}
	for _, tool := range tools {
		fmt.Fprintf(w, "  %-*s  %s\n", width, tool.Name, strings.Join(argumentList(tool), ", "))
	}
}

// argumentList returns required arguments first, each group sorted.
func argumentList(tool mcp.Tool) []string {
	required := make(map[string]bool, len(tool.InputSchema.Required))
	for _, name := range tool.InputSchema.Required {
		required[name] = true
	}

	var req, opt []string
	for name := range tool.InputSchema.Properties {
		if required[name] {
			req = append(req, name+"*")
		} else {
			opt = append(opt, name)
		}
	}
	sort.Strings(req)
	sort.Strings(opt)
	return append(req, opt...)
}
