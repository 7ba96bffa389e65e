package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/apikey"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/postgres"
)

// apikey manages the keys accepted on the scoring service's admin routes.
//
// Usage:
//
//	apikey create --name "ops" [--expires-in 720h]
//	apikey revoke --key <raw-key>
//	apikey list
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := apikey.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare api key table", "error", err)
		os.Exit(1)
	}

	switch args[0] {
	case "create":
		err = cmdCreate(ctx, store, args[1:])
	case "revoke":
		err = cmdRevoke(ctx, store, args[1:])
	case "list":
		err = cmdList(ctx, store)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
		os.Exit(1)
	}
}

func cmdCreate(ctx context.Context, store *apikey.Store, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "name for the api key")
	expiresIn := fs.Duration("expires-in", 0, "expiry duration, e.g. 720h (optional)")
	fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	var expiresAt *time.Time
	if *expiresIn > 0 {
		t := time.Now().Add(*expiresIn)
		expiresAt = &t
	}

	key, err := store.Create(ctx, *name, expiresAt)
	if err != nil {
		return err
	}

	fmt.Println("API key created. It cannot be shown again.")
	fmt.Println()
	fmt.Printf("  Key:     %s\n", key)
	fmt.Printf("  Name:    %s\n", *name)
	if expiresAt != nil {
		fmt.Printf("  Expires: %s\n", expiresAt.Format(time.RFC3339))
	} else {
		fmt.Println("  Expires: never")
	}
	return nil
}

func cmdRevoke(ctx context.Context, store *apikey.Store, args []string) error {
	fs := flag.NewFlagSet("revoke", flag.ExitOnError)
	key := fs.String("key", "", "raw api key to revoke")
	fs.Parse(args)

	if *key == "" {
		return fmt.Errorf("--key is required")
	}
	if err := store.Revoke(ctx, *key); err != nil {
		return err
	}
	fmt.Println("API key revoked.")
	return nil
}

func cmdList(ctx context.Context, store *apikey.Store) error {
	keys, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("No active API keys.")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %s\n", "ID", "Name", "Expires")
	for _, k := range keys {
		expires := "never"
		if k.ExpiresAt != nil {
			expires = k.ExpiresAt.Format(time.RFC3339)
		}
		fmt.Printf("%-36s  %-20s  %s\n", k.ID, k.Name, expires)
	}
	fmt.Printf("\nTotal: %d active key(s)\n", len(keys))
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: apikey [-config path] <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  create   Create a new API key")
	fmt.Fprintln(os.Stderr, "  revoke   Revoke an existing API key")
	fmt.Fprintln(os.Stderr, "  list     List active API keys")
}
