// Command ormctl is the migration CLI of spec §6.4: migrate diff, migrate
// apply, migrate status. Grounded on the teacher's cmd/redi-orm/main.go —
// same flag.FlagSet-based subcommand dispatch and --db URI flag — pared
// down to the one surface this core's spec names, since the GraphQL/REST
// server, JS script runner, and Prisma schema loader are all teacher
// features with no SPEC_FULL equivalent.
//
// Entity registration is this binary's integration seam: unlike the
// teacher, which loads a Prisma schema file at runtime, this engine's
// metadata comes from Go struct tags compiled into the binary (spec
// §6.2's annotation surface is programmatic, not a data file). A real
// deployment forks registerEntities to call registry.RegisterTypes with
// its own mapped structs; as shipped it registers none, so "migrate diff"
// against a non-empty database reports only drop operations (DROP FOREIGN
// KEY and DROP TABLE).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rediwo/mysqlorm/driver"
	"github.com/rediwo/mysqlorm/drivers/mysql"
	"github.com/rediwo/mysqlorm/logger"
	"github.com/rediwo/mysqlorm/metadata"
	"github.com/rediwo/mysqlorm/migrate"
)

const usage = `ormctl - mysqlorm migration CLI

Usage:
  ormctl <command> --db=<uri> [flags]

Commands:
  migrate diff      Compute and print pending schema operations
  migrate apply     Execute pending operations and record a migration
  migrate status    Print applied vs. pending migrations

Flags:
  --db      mysql:// connection URI (required)
  --name    Migration name (for apply; default "unnamed")
  --format  Output format for status: text|yaml (default "text")

Exit codes: 0 success, 1 user error, 2 database error, 3 mapping inconsistency.
`

// Exit codes per spec §6.4.
const (
	exitOK              = 0
	exitUserError       = 1
	exitDatabaseError   = 2
	exitMappingConflict = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, usage)
		return exitUserError
	}

	// "migrate diff|apply|status" arrives as two words; fold them into one
	// token so the rest of the dispatcher matches flag.FlagSet's
	// one-subcommand-then-flags convention.
	command := args[0]
	rest := args[1:]
	if command == "migrate" && len(rest) > 0 {
		command = "migrate:" + rest[0]
		rest = rest[1:]
	}

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	dbURI := fs.String("db", "", "mysql:// connection URI")
	name := fs.String("name", "unnamed", "migration name (for apply)")
	format := fs.String("format", "text", "status output format: text|yaml")
	if err := fs.Parse(rest); err != nil {
		return exitUserError
	}

	if command == "help" || command == "--help" || command == "-h" {
		fmt.Fprint(os.Stderr, usage)
		return exitOK
	}
	if *dbURI == "" {
		fmt.Fprintln(os.Stderr, "ormctl: --db is required")
		return exitUserError
	}

	cfg, err := mysql.ParseURI(*dbURI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ormctl: %v\n", err)
		return exitUserError
	}

	ctx := context.Background()
	drv := mysql.New()
	conn, err := drv.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ormctl: connect: %v\n", err)
		return exitDatabaseError
	}
	defer conn.Close()

	registry := metadata.New()
	if err := registerEntities(registry); err != nil {
		fmt.Fprintf(os.Stderr, "ormctl: register entities: %v\n", err)
		return exitMappingConflict
	}

	log := logger.NewDefaultLogger("ormctl")

	switch command {
	case "migrate:diff":
		return runDiff(ctx, registry, conn, log)
	case "migrate:apply":
		return runApply(ctx, registry, conn, log, *name)
	case "migrate:status":
		return runStatus(ctx, registry, conn, *format)
	default:
		fmt.Fprintf(os.Stderr, "ormctl: unknown command %q\n\nRun 'ormctl help' for usage\n", command)
		return exitUserError
	}
}

// registerEntities is the integration seam described in the package
// comment; it registers no types by default.
func registerEntities(registry *metadata.Registry) error {
	return nil
}

func runDiff(ctx context.Context, registry *metadata.Registry, conn driver.Connection, log logger.Logger) int {
	plan, err := migrate.NewReconciler(registry, log).Reconcile(ctx, conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ormctl: diff: %v\n", err)
		return exitDatabaseError
	}
	ops := plan.Operations()
	if len(ops) == 0 {
		fmt.Println("schema is up to date")
		return exitOK
	}
	for _, op := range ops {
		fmt.Println(op.String())
	}
	return exitOK
}

func runApply(ctx context.Context, registry *metadata.Registry, conn driver.Connection, log logger.Logger, name string) int {
	plan, err := migrate.NewReconciler(registry, log).Reconcile(ctx, conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ormctl: apply: %v\n", err)
		return exitDatabaseError
	}
	if plan.IsEmpty() {
		fmt.Println("nothing to apply")
		return exitOK
	}

	history := migrate.NewHistory(conn)
	if err := history.Ensure(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ormctl: apply: %v\n", err)
		return exitDatabaseError
	}
	if err := migrate.Apply(ctx, conn, plan, history, name, log); err != nil {
		fmt.Fprintf(os.Stderr, "ormctl: apply: %v\n", err)
		return exitDatabaseError
	}
	fmt.Printf("applied %d operation(s) as %q\n", len(plan.Operations()), name)
	return exitOK
}

func runStatus(ctx context.Context, registry *metadata.Registry, conn driver.Connection, format string) int {
	history := migrate.NewHistory(conn)
	if err := history.Ensure(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ormctl: status: %v\n", err)
		return exitDatabaseError
	}
	applied, err := history.Applied(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ormctl: status: %v\n", err)
		return exitDatabaseError
	}
	plan, err := migrate.NewReconciler(registry, nil).Reconcile(ctx, conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ormctl: status: %v\n", err)
		return exitDatabaseError
	}

	if format == "yaml" {
		out, err := migrate.StatusYAML(applied, plan.Operations())
		if err != nil {
			fmt.Fprintf(os.Stderr, "ormctl: status: %v\n", err)
			return exitDatabaseError
		}
		os.Stdout.Write(out)
		return exitOK
	}

	fmt.Printf("applied (%d):\n", len(applied))
	for _, m := range applied {
		fmt.Printf("  %s  %s\n", m.Name, m.Checksum)
	}
	pending := plan.Operations()
	fmt.Printf("pending (%d):\n", len(pending))
	for _, op := range pending {
		fmt.Printf("  %s\n", op.String())
	}
	return exitOK
}
