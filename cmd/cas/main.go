// cas is a simple CLI for interacting with a content-addressed store.
//
// Usage:
//
//	cas [--store-dir dir] [--node-limit n] [--config path]
//
// Commands (in REPL):
//
//	put <local-path> [content-type]   Write a local file into the store
//	cat <key>                         Print a file's reconstructed bytes
//	stream <key>                      Stream a file's bytes without buffering
//	stat <key>                        Show a node's kind/size/length/children
//	tree <key> [limit]                Print a BFS-ordered key list, up to limit nodes
//	mkdir <name>=<key> [<name>=<key>...]   Build a directory node from entries
//	ls <dict-key>                     List a directory node's entries
//	validate <key> [full]             Run structural or full validation
//	bench <count> [size]              Benchmark writes+reads of random blobs
//	help                              Show this help
//	exit / quit / q                   Exit
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/casnode/cas/pkg/cas"
	"github.com/casnode/cas/pkg/casfs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("cas", flag.ExitOnError)

	storeDir := fs.String("store-dir", "", "directory holding node files (overrides config)")
	nodeLimit := fs.Uint32("node-limit", 0, "maximum node image size in bytes (overrides config)")
	configPath := fs.String("config", "", "path to a JSONC config file")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}

	cfg, err := LoadConfig(workDir, *configPath, Config{StoreDir: *storeDir, NodeLimit: *nodeLimit}, *storeDir != "", os.Environ())
	if err != nil {
		return err
	}

	limit := cfg.NodeLimit
	if limit == 0 {
		limit = cas.DefaultNodeLimit
	}

	store, err := casfs.NewDirStore(cfg.StoreDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	ctl := cas.NewController(store, cas.SHA256{}, limit)

	repl := &REPL{ctl: ctl, store: store, storeDir: cfg.StoreDir, nodeLimit: limit}

	return repl.Run()
}
