package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/caldant/contentflow/pkg/contentflow"
	"github.com/caldant/contentflow/pkg/contentflow/config"
)

const usage = `Contentflow Admin CLI

A lightweight inspection tool for the content tree that only requires
database access. It reads through the repository directly, so user
permissions do not apply.

USAGE:
  admin <command> [options]

COMMANDS:
  ping              Verify database connectivity
  get <id>          Show one node
  children <id>     List a node's children (use -1 for the root)
  tree [id]         Print the subtree under a node (default: root)

ENVIRONMENT VARIABLES:
  DATABASE_URL      PostgreSQL connection string (empty selects memory)
  DB_SCHEMA         PostgreSQL schema name (default: contentflow)

  Configuration can be loaded from a .env file in the current directory.
  Command line environment variables override .env file values.

EXAMPLES:
  # Verify the database is reachable
  admin ping

  # Show a node
  admin get 1057

  # List root-level nodes, including trashed ones
  admin children -1 --include-trashed

  # Print the whole tree as JSON
  admin tree --json

OPTIONS:
  --filter=<text>       Case-insensitive name filter (children only)
  --limit=<n>           Maximum results (children only, default: 100)
  --offset=<n>          Pagination offset (children only, default: 0)
  --include-trashed     Include nodes in the recycle bin
  --json                Output as JSON`

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Println(usage)
		os.Exit(0)
	}

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if command == "ping" {
		if cfg.DatabaseType != "postgres" {
			fmt.Println("database_type is memory; nothing to ping")
			return
		}
		if err := config.PingPostgres(cfg.DatabaseURL, cfg.DBSchema); err != nil {
			log.Fatalf("Ping failed: %v", err)
		}
		fmt.Println("ok")
		return
	}

	stack, err := cfg.BuildStack(nil)
	if err != nil {
		log.Fatalf("Failed to open repository: %v", err)
	}
	defer stack.Close()

	ctx := context.Background()
	opts := parseOptions(os.Args[2:])

	switch command {
	case "get":
		handleGet(ctx, stack.Nodes, opts)
	case "children":
		handleChildren(ctx, stack.Nodes, opts)
	case "tree":
		handleTree(ctx, stack.Nodes, opts)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

type options struct {
	id             int
	idSet          bool
	filter         string
	limit          int
	offset         int
	includeTrashed bool
	useJSON        bool
}

func parseOptions(args []string) options {
	opts := options{limit: 100}

	for _, arg := range args {
		switch {
		case arg == "--json":
			opts.useJSON = true
		case arg == "--include-trashed":
			opts.includeTrashed = true
		case strings.HasPrefix(arg, "--"):
			key, value, _ := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
			switch key {
			case "filter":
				opts.filter = value
			case "limit":
				if n, err := strconv.Atoi(value); err == nil {
					opts.limit = n
				}
			case "offset":
				if n, err := strconv.Atoi(value); err == nil {
					opts.offset = n
				}
			}
		default:
			if n, err := strconv.Atoi(arg); err == nil {
				opts.id = n
				opts.idSet = true
			}
		}
	}
	return opts
}

func handleGet(ctx context.Context, repo contentflow.ContentRepository, opts options) {
	if !opts.idSet {
		log.Fatal("get requires a node id")
	}
	node, err := repo.GetNode(ctx, opts.id)
	if err != nil {
		log.Fatalf("Failed to load node: %v", err)
	}

	if opts.useJSON {
		printJSON(node)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%d\n", node.ID)
	fmt.Fprintf(w, "Key\t%s\n", node.Key)
	fmt.Fprintf(w, "Name\t%s\n", node.Name)
	fmt.Fprintf(w, "Type\t%s\n", node.ContentType)
	fmt.Fprintf(w, "State\t%s\n", node.State())
	fmt.Fprintf(w, "Path\t%s\n", node.Path)
	fmt.Fprintf(w, "Version\t%d\n", node.Version)
	for culture, v := range node.Variants {
		fmt.Fprintf(w, "Variant\t%s published=%t edited=%t\n", culture, v.Published, v.Edited)
	}
	w.Flush()
}

func handleChildren(ctx context.Context, repo contentflow.ContentRepository, opts options) {
	if !opts.idSet {
		log.Fatal("children requires a parent id (use -1 for the root)")
	}
	nodes, total, err := repo.GetChildren(ctx, contentflow.ChildrenQuery{
		ParentID:       opts.id,
		Offset:         opts.offset,
		Limit:          opts.limit,
		Filter:         opts.filter,
		IncludeTrashed: opts.includeTrashed,
	})
	if err != nil {
		log.Fatalf("Failed to list children: %v", err)
	}

	if opts.useJSON {
		printJSON(map[string]interface{}{"items": nodes, "total": total})
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tSTATE\tVERSION")
	for _, n := range nodes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", n.ID, n.Name, n.ContentType, n.State(), n.Version)
	}
	w.Flush()
	fmt.Printf("\n%d of %d\n", len(nodes), total)
}

func handleTree(ctx context.Context, repo contentflow.ContentRepository, opts options) {
	rootID := contentflow.RootID
	if opts.idSet {
		rootID = opts.id
	}

	if opts.useJSON {
		tree, err := collectTree(ctx, repo, rootID, opts.includeTrashed)
		if err != nil {
			log.Fatalf("Failed to walk tree: %v", err)
		}
		printJSON(tree)
		return
	}

	if err := printTree(ctx, repo, rootID, 0, opts.includeTrashed); err != nil {
		log.Fatalf("Failed to walk tree: %v", err)
	}
}

func printTree(ctx context.Context, repo contentflow.ContentRepository, parentID, depth int, includeTrashed bool) error {
	nodes, _, err := repo.GetChildren(ctx, contentflow.ChildrenQuery{
		ParentID:       parentID,
		IncludeTrashed: includeTrashed,
	})
	if err != nil {
		return err
	}
	for _, n := range nodes {
		fmt.Printf("%s%s (%d, %s)\n", strings.Repeat("  ", depth), n.Name, n.ID, n.State())
		if err := printTree(ctx, repo, n.ID, depth+1, includeTrashed); err != nil {
			return err
		}
	}
	return nil
}

type treeNode struct {
	Node     *contentflow.ContentNode `json:"node"`
	Children []*treeNode              `json:"children,omitempty"`
}

func collectTree(ctx context.Context, repo contentflow.ContentRepository, parentID int, includeTrashed bool) ([]*treeNode, error) {
	nodes, _, err := repo.GetChildren(ctx, contentflow.ChildrenQuery{
		ParentID:       parentID,
		IncludeTrashed: includeTrashed,
	})
	if err != nil {
		return nil, err
	}
	out := make([]*treeNode, 0, len(nodes))
	for _, n := range nodes {
		children, err := collectTree(ctx, repo, n.ID, includeTrashed)
		if err != nil {
			return nil, err
		}
		out = append(out, &treeNode{Node: n, Children: children})
	}
	return out, nil
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode JSON: %v", err)
	}
	fmt.Println(string(data))
}
