// Package inspect is an interactive console for calling the travel tools by
// hand. It talks to an in-process MCP server through the same JSON-RPC entry
// point the stdio transport uses.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ubermorgenland/serpapi-travel-mcp/pkg/travel"
)

// HistoryFileName is stored in the user's home directory
const HistoryFileName = ".serpapi_travel_history"

const helpText = `Commands:
  tools                          list tools and their arguments
  call <tool> key=value ...      call a tool
  resources                      list resources and resource templates
  read <uri>                     read a resource
  prompts                        list prompts
  prompt <name> key=value ...    render a prompt
  help                           show this help
  exit                           leave the inspector

Values are parsed as JSON when possible, otherwise taken as strings:
  call search_flights departure_airport=JFK arrival_airport=LHR outbound_date=2025-12-15 adults=2
  call search_hotels location="New York" check_in_date=2025-12-15 check_out_date=2025-12-20
`

// ErrQuit is returned by Execute when the user asks to leave
var ErrQuit = errors.New("quit")

// Inspector executes console commands against a LocalClient
type Inspector struct {
	client *travel.LocalClient
	out    io.Writer
}

// New creates an inspector writing its output to out
func New(client *travel.LocalClient, out io.Writer) *Inspector {
	return &Inspector{client: client, out: out}
}

// DefaultHistoryFile returns ~/.serpapi_travel_history, or "" when the home
// directory is unknown.
func DefaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, HistoryFileName)
}

// Run reads commands until EOF, interrupt or exit.
func (in *Inspector) Run(ctx context.Context, historyFile string) error {
	tools, err := in.client.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}

	toolItems := make([]readline.PrefixCompleterInterface, 0, len(tools))
	for _, tool := range tools {
		toolItems = append(toolItems, readline.PcItem(tool.Name))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "travel> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("tools"),
			readline.PcItem("call", toolItems...),
			readline.PcItem("resources"),
			readline.PcItem("read"),
			readline.PcItem("prompts"),
			readline.PcItem("prompt", readline.PcItem(travel.PromptPlanTrip)),
			readline.PcItem("help"),
			readline.PcItem("exit"),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to start console: %w", err)
	}
	defer rl.Close()

	in.out = rl.Stdout()
	fmt.Fprintf(in.out, "Connected to %s with %d tools. Type 'help' for commands.\n", travel.ServerName, len(tools))

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := in.Execute(ctx, line); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			fmt.Fprintf(in.out, "error: %v\n", err)
		}
	}
}

// Execute runs one command line
func (in *Inspector) Execute(ctx context.Context, line string) error {
	words, err := splitWords(line)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return nil
	}

	cmd, rest := words[0], words[1:]
	switch cmd {
	case "help", "?":
		fmt.Fprint(in.out, helpText)
		return nil
	case "exit", "quit":
		return ErrQuit
	case "tools":
		return in.listTools(ctx)
	case "call":
		if len(rest) == 0 {
			return errors.New("usage: call <tool> key=value ...")
		}
		args, err := parseToolArgs(rest[1:])
		if err != nil {
			return err
		}
		return in.callTool(ctx, rest[0], args)
	case "resources":
		return in.listResources(ctx)
	case "read":
		if len(rest) != 1 {
			return errors.New("usage: read <uri>")
		}
		return in.readResource(ctx, rest[0])
	case "prompts":
		return in.listPrompts(ctx)
	case "prompt":
		if len(rest) == 0 {
			return errors.New("usage: prompt <name> key=value ...")
		}
		args, err := parsePromptArgs(rest[1:])
		if err != nil {
			return err
		}
		return in.getPrompt(ctx, rest[0], args)
	default:
		return fmt.Errorf("unknown command %q, type 'help'", cmd)
	}
}

func (in *Inspector) listTools(ctx context.Context) error {
	tools, err := in.client.ListTools(ctx)
	if err != nil {
		return err
	}
	travel.PrintToolSummary(in.out, tools)
	return nil
}

func (in *Inspector) callTool(ctx context.Context, name string, args map[string]any) error {
	out, err := in.client.CallTool(ctx, name, args)
	if err != nil {
		return err
	}
	if out.IsError {
		fmt.Fprintf(in.out, "tool error: %s\n", out.Text)
		return nil
	}
	fmt.Fprintln(in.out, out.Text)
	return nil
}

func (in *Inspector) listResources(ctx context.Context) error {
	resources, err := in.client.ListResources(ctx)
	if err != nil {
		return err
	}
	templates, err := in.client.ListResourceTemplates(ctx)
	if err != nil {
		return err
	}
	if len(resources) == 0 && len(templates) == 0 {
		fmt.Fprintln(in.out, "No resources (search history is disabled)")
		return nil
	}
	for _, r := range resources {
		fmt.Fprintf(in.out, "  %s  %s\n", r.URI, r.Description)
	}
	for _, t := range templates {
		fmt.Fprintf(in.out, "  %s  %s\n", t.URITemplate.Raw(), t.Description)
	}
	return nil
}

func (in *Inspector) readResource(ctx context.Context, uri string) error {
	text, err := in.client.ReadResource(ctx, uri)
	if err != nil {
		return err
	}
	fmt.Fprintln(in.out, text)
	return nil
}

func (in *Inspector) listPrompts(ctx context.Context) error {
	prompts, err := in.client.ListPrompts(ctx)
	if err != nil {
		return err
	}
	for _, p := range prompts {
		names := make([]string, 0, len(p.Arguments))
		for _, a := range p.Arguments {
			if a.Required {
				names = append(names, a.Name+"*")
			} else {
				names = append(names, a.Name)
			}
		}
		fmt.Fprintf(in.out, "  %s(%s)  %s\n", p.Name, strings.Join(names, ", "), p.Description)
	}
	return nil
}

func (in *Inspector) getPrompt(ctx context.Context, name string, args map[string]string) error {
	result, err := in.client.GetPrompt(ctx, name, args)
	if err != nil {
		return err
	}
	for _, msg := range result.Messages {
		fmt.Fprintf(in.out, "[%s]\n", msg.Role)
		data, err := json.Marshal(msg.Content)
		if err != nil {
			return err
		}
		var text struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &text); err == nil && text.Text != "" {
			fmt.Fprintln(in.out, text.Text)
		} else {
			fmt.Fprintln(in.out, string(data))
		}
	}
	return nil
}

// parseToolArgs turns key=value words into tool arguments. Values that parse
// as JSON keep their JSON type.
func parseToolArgs(words []string) (map[string]any, error) {
	args := make(map[string]any, len(words))
	for _, word := range words {
		key, value, ok := strings.Cut(word, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is not key=value", word)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			args[key] = decoded
		} else {
			args[key] = value
		}
	}
	return args, nil
}

func parsePromptArgs(words []string) (map[string]string, error) {
	args := make(map[string]string, len(words))
	for _, word := range words {
		key, value, ok := strings.Cut(word, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is not key=value", word)
		}
		args[key] = value
	}
	return args, nil
}

// splitWords splits a command line on spaces, honouring single and double
// quotes and backslash escapes.
func splitWords(line string) ([]string, error) {
	var (
		words   []string
		current strings.Builder
		quote   rune
		inWord  bool
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, nil
}

