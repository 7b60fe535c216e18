// Command readings inspects and maintains the readings table.
//
//	readings migrate
//	readings -device device-001 latest
//	readings -device device-001 -limit 20 list
//	readings -device device-001 -retention 720h prune
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cornjacket/dbmock/internal/config"
	"github.com/cornjacket/dbmock/internal/infra/postgres"
	"github.com/cornjacket/dbmock/internal/readings"
	"github.com/cornjacket/dbmock/internal/readings/schema"
)

var errUsage = errors.New("usage: readings [flags] migrate|devices|latest|count|list|prune")

// options are the flags shared by the store commands.
type options struct {
	device    string
	limit     int
	offset    int
	retention time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.device, "device", "", "Device ID")
	flag.IntVar(&opts.limit, "limit", 20, "Page size for list")
	flag.IntVar(&opts.offset, "offset", 0, "Page offset for list")
	flag.DurationVar(&opts.retention, "retention", 30*24*time.Hour, "Age beyond which prune removes readings")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, errUsage)
		os.Exit(2)
	}
	command := flag.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if command == "migrate" {
		if err := schema.RunMigrations(cfg.DatabaseURL); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}
		slog.Info("migrations applied", "table", schema.TableName)
		return
	}

	client, err := postgres.NewClient(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	store := readings.NewPostgresStore(client.Pool(), logger)
	if err := run(ctx, store, command, opts, os.Stdout); err != nil {
		slog.Error("command failed", "command", command, "error", err)
		client.Close()
		os.Exit(1)
	}
}

// run executes one store command and writes its result to out as JSON.
func run(ctx context.Context, store readings.Store, command string, opts options, out io.Writer) error {
	switch command {
	case "devices":
	case "latest", "count", "list", "prune":
		if opts.device == "" {
			return fmt.Errorf("%s requires -device", command)
		}
	default:
		return errUsage
	}

	var result any
	switch command {
	case "devices":
		ids, err := store.DeviceIDs(ctx)
		if err != nil {
			return err
		}
		result = map[string]any{"devices": ids}

	case "latest":
		r, err := store.LatestReading(ctx, opts.device)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("no readings for device %s", opts.device)
		}
		result = r

	case "count":
		n, err := store.CountReadings(ctx, opts.device)
		if err != nil {
			return err
		}
		result = map[string]any{"device_id": opts.device, "count": n}

	case "list":
		page, total, err := store.ListReadings(ctx, opts.device, opts.limit, opts.offset)
		if err != nil {
			return err
		}
		result = map[string]any{
			"readings":    page,
			"total_count": total,
			"limit":       opts.limit,
			"offset":      opts.offset,
		}

	case "prune":
		n, err := store.Prune(ctx, opts.device, opts.retention)
		if err != nil {
			return err
		}
		result = map[string]any{"device_id": opts.device, "deleted": n}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
