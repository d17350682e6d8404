package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rmax-ai/graphbar/pkg/client"
	"github.com/rmax-ai/graphbar/pkg/graph"
	"github.com/rmax-ai/graphbar/pkg/mcp"
	"github.com/rmax-ai/graphbar/pkg/tui"
)

var (
	Version   = "v1.0.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const usage = `Usage: graphbar <command> [args]

Commands:
  status [-plain]                       show the current count
  providers                             list registered providers
  refresh                               force a recount on the next tick
  node add <id> [label] [key=value...]  create a node
  node set <id> [label] [key=value...]  replace a node's label and properties
  node rm <id>                          delete a node and its relationships
  rel add <id> <from> <to> [type]       create a relationship
  rel rm <id>                           delete a relationship
  watch                                 live status bar for a running daemon
  mcp                                   serve the Model Context Protocol on stdio
  version                               print version information

Environment:
  GRAPHBAR_URL    daemon URL (default http://127.0.0.1:8090)
  GRAPHBAR_TOKEN  bearer token for writes
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintln(os.Stderr, "Is graphbar-d running?")
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	endpoint := os.Getenv("GRAPHBAR_URL")
	var opts []client.Option
	if token := os.Getenv("GRAPHBAR_TOKEN"); token != "" {
		opts = append(opts, client.WithToken(token))
	}
	c := client.NewClient(endpoint, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		st, err := c.Status(ctx)
		if err != nil {
			return err
		}
		if len(args) > 1 && args[1] == "-plain" {
			fmt.Fprintln(out, st.Text)
			return nil
		}
		provider := st.Provider
		if !st.Bound {
			provider = "(none)"
		}
		fmt.Fprintf(out, "%s\nprovider: %s\noutcome:  %s\n", st.Text, provider, st.Kind)
		if st.Error != "" {
			fmt.Fprintf(out, "error:    %s\n", st.Error)
		}
		return nil

	case "providers":
		infos, err := c.Providers(ctx)
		if err != nil {
			return err
		}
		for _, p := range infos {
			marker := " "
			if p.Bound {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %s\n", marker, p.ID)
		}
		return nil

	case "refresh":
		return c.Refresh(ctx)

	case "node":
		return runNode(ctx, c, args[1:], out)

	case "rel":
		return runRel(ctx, c, args[1:], out)

	case "watch":
		fetch := func() (string, error) {
			fctx, fcancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer fcancel()
			st, err := c.Status(fctx)
			return st.Text, err
		}
		p := tea.NewProgram(tui.NewRemoteModel(fetch, time.Second), tea.WithAltScreen())
		_, err := p.Run()
		return err

	case "mcp":
		return mcp.NewServer(endpoint, opts...).Serve()

	case "version":
		fmt.Fprintf(out, "graphbar %s (commit %s, built %s)\n", Version, Commit, BuildTime)
		return nil
	}
	return errUsage
}

func runNode(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) < 2 {
		return errUsage
	}
	id := args[1]

	switch args[0] {
	case "add", "set":
		n, err := parseNode(id, args[2:])
		if err != nil {
			return err
		}
		if args[0] == "add" {
			err = c.CreateNode(ctx, n)
		} else {
			err = c.UpdateNode(ctx, n)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Node saved: %s\n", id)
		return nil

	case "rm":
		if err := c.DeleteNode(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Node deleted: %s\n", id)
		return nil
	}
	return errUsage
}

func runRel(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) < 2 {
		return errUsage
	}

	switch args[0] {
	case "add":
		if len(args) < 4 {
			return errUsage
		}
		r := graph.Rel{ID: args[1], FromID: args[2], ToID: args[3]}
		if len(args) > 4 {
			r.Type = args[4]
		}
		if err := c.CreateRel(ctx, r); err != nil {
			return err
		}
		fmt.Fprintf(out, "Relationship saved: %s\n", r.ID)
		return nil

	case "rm":
		if err := c.DeleteRel(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Relationship deleted: %s\n", args[1])
		return nil
	}
	return errUsage
}

// parseNode reads "[label] [key=value...]".
func parseNode(id string, rest []string) (graph.Node, error) {
	n := graph.Node{ID: id}
	if len(rest) > 0 && !strings.Contains(rest[0], "=") {
		n.Label = rest[0]
		rest = rest[1:]
	}
	for _, kv := range rest {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return graph.Node{}, fmt.Errorf("invalid property %q, want key=value", kv)
		}
		if n.Properties == nil {
			n.Properties = make(map[string]string)
		}
		n.Properties[key] = value
	}
	return n, nil
}
