package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/bootstrap"
	"github.com/propmgr/ledger/internal/infrastructure/config"
)

func main() {
	configPath := flag.String("config", "", "Config file (default: ./config.toml or /etc/ledger/config.toml)")
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() == 0 {
		printUsage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "ledgerctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = app.Close(shutdownCtx)
	}()

	command, rest := args[0], args[1:]
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	tenant := fs.String("tenant", "", "Tenant (business) ID")

	switch command {
	case "templates":
		return printJSON(app.Templates.ListTemplates())

	case "init-chart":
		template := fs.String("template", "property_management", "Template name")
		jurisdiction := fs.String("jurisdiction", "US", "Jurisdiction code")
		tenantID, err := parseTenant(fs, rest, tenant)
		if err != nil {
			return err
		}
		resp, err := app.Templates.Initialize(ctx, tenantID, *template, *jurisdiction)
		if err != nil {
			return err
		}
		return printJSON(resp)

	case "tree":
		flat := fs.Bool("flat", false, "Print depth-first rows instead of a nested tree")
		tenantID, err := parseTenant(fs, rest, tenant)
		if err != nil {
			return err
		}
		if *flat {
			rows, err := app.Hierarchy.GetFlattened(ctx, tenantID)
			if err != nil {
				return err
			}
			return printJSON(rows)
		}
		tree, err := app.Hierarchy.GetTree(ctx, tenantID)
		if err != nil {
			return err
		}
		return printJSON(tree)

	case "tax":
		jurisdiction := fs.String("jurisdiction", "", "Jurisdiction code")
		region := fs.String("region", "", "Region code; without it only jurisdiction-wide rates apply")
		date := fs.String("date", time.Now().UTC().Format(time.DateOnly), "Effective date (YYYY-MM-DD)")
		amount := fs.Int64("amount", 0, "Taxable amount in cents")
		tenantID, err := parseTenant(fs, rest, tenant)
		if err != nil {
			return err
		}
		asOf, err := time.Parse(time.DateOnly, *date)
		if err != nil {
			return fmt.Errorf("invalid -date %q", *date)
		}
		var regionCode *string
		if *region != "" {
			regionCode = region
		}
		quote, err := app.Taxes.ComputeTaxForJurisdiction(ctx, tenantID, *jurisdiction, regionCode, asOf, *amount)
		if err != nil {
			return err
		}
		return printJSON(quote)

	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func parseTenant(fs *flag.FlagSet, args []string, tenant *string) (uuid.UUID, error) {
	if err := fs.Parse(args); err != nil {
		return uuid.Nil, err
	}
	if *tenant == "" {
		return uuid.Nil, errors.New("-tenant is required")
	}
	id, err := uuid.Parse(*tenant)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid -tenant: %w", err)
	}
	return id, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage() {
	fmt.Println(`Ledger administration tool

Usage:
  ledgerctl [-config file] <command> [flags]

Commands:
  templates                                         List chart templates
  init-chart -tenant ID [-template T] [-jurisdiction J]
                                                    Create a tenant's chart from a template
  tree -tenant ID [-flat]                           Print the chart with rolled-up balances
  tax -tenant ID -jurisdiction J [-region R] [-date D] [-amount CENTS]
                                                    Resolve tax rates and compute tax`)
}
