// Command migrate manages the reception schema with golang-migrate.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/erp/reception/internal/infrastructure/config"
	"github.com/erp/reception/internal/infrastructure/logger"
	"github.com/erp/reception/internal/infrastructure/migration"
	"github.com/erp/reception/migrations"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var errUsage = errors.New("bad usage")

// cli carries what every command may need. m is nil for offline commands.
type cli struct {
	log    *zap.Logger
	dir    string
	source migration.Source
	m      *migration.Migrator
}

type command struct {
	usage   string
	offline bool
	run     func(c *cli, args []string) error
}

var commands = map[string]command{
	"up":      {usage: "up                    Apply all pending migrations", run: func(c *cli, _ []string) error { return c.m.Up() }},
	"down":    {usage: "down                  Roll back all migrations", run: func(c *cli, _ []string) error { return c.m.Down() }},
	"step":    {usage: "step <n>              Apply n migrations (negative rolls back)", run: runSteps},
	"steps":   {run: runSteps},
	"goto":    {usage: "goto <version>        Migrate up or down to version", run: runGoto},
	"version": {usage: "version               Show the applied version", run: runVersion},
	"force":   {usage: "force <version>       Set the version without migrating (clears dirty)", run: runForce},
	"drop":    {usage: "drop -confirm         Drop every object in the database", run: runDrop},
	"create":  {usage: "create <name> [desc]  Write the next numbered up/down pair (needs -path)", offline: true, run: runCreate},
	"list":    {usage: "list                  List migrations in the source", offline: true, run: runList},
}

func main() {
	dir := flag.String("path", "", "migrations directory; the embedded schema when empty")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{
		Level:      *level,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	_ = godotenv.Load()

	c := &cli{log: log, source: migration.FromFS(migrations.FS, ".")}
	if *dir != "" {
		if c.dir, err = filepath.Abs(*dir); err != nil {
			log.Fatal("Invalid migrations path", zap.Error(err))
		}
		c.source = migration.FromDirectory(c.dir)
	}
	log.Info("Migration command", zap.String("command", args[0]), zap.Stringer("source", c.source))

	if !cmd.offline {
		closeDB, err := c.connect()
		if err != nil {
			log.Fatal("Failed to open migrator", zap.Error(err))
		}
		defer closeDB()
	}

	if err := cmd.run(c, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatal("Migration command failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func (c *cli) connect() (func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if c.m, err = migration.New(db, c.source, c.log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return func() { _ = c.m.Close() }, nil
}

func intArg(args []string, what string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: %s required", errUsage, what)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", errUsage, what, args[0])
	}
	return n, nil
}

func runSteps(c *cli, args []string) error {
	n, err := intArg(args, "step count")
	if err != nil {
		return err
	}
	return c.m.Steps(n)
}

func runGoto(c *cli, args []string) error {
	v, err := intArg(args, "version")
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("%w: version must not be negative", errUsage)
	}
	return c.m.GoTo(uint(v))
}

func runForce(c *cli, args []string) error {
	v, err := intArg(args, "version")
	if err != nil {
		return err
	}
	c.log.Warn("Forcing migration version", zap.Int("version", v))
	return c.m.Force(v)
}

func runVersion(c *cli, _ []string) error {
	v, dirty, err := c.m.Version()
	if err != nil {
		return err
	}
	if v == 0 {
		c.log.Info("No migrations applied")
		return nil
	}
	c.log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
	return nil
}

func runDrop(c *cli, args []string) error {
	if !slices.Contains(args, "-confirm") && !slices.Contains(args, "--confirm") {
		return fmt.Errorf("%w: drop needs -confirm", errUsage)
	}
	return c.m.Drop()
}

func runCreate(c *cli, args []string) error {
	if c.dir == "" {
		return fmt.Errorf("%w: create needs -path pointing at the migrations directory", errUsage)
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: migration name required", errUsage)
	}
	desc := ""
	if len(args) > 1 {
		desc = args[1]
	}
	mf, err := migration.CreateMigration(c.dir, args[0], desc)
	if err != nil {
		return err
	}
	c.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func runList(c *cli, _ []string) error {
	var fsys fs.FS = migrations.FS
	if c.dir != "" {
		fsys = os.DirFS(c.dir)
	}
	list, err := migration.ListMigrations(fsys)
	if err != nil {
		return err
	}
	c.log.Info("Available migrations", zap.Int("count", len(list)))
	for _, m := range list {
		note := ""
		if !m.HasDown {
			note = " (no down migration)"
		}
		fmt.Printf("  %06d %s%s\n", m.Version, m.Name, note)
	}
	return nil
}

func usage() {
	names := make([]string, 0, len(commands))
	for name, cmd := range commands {
		if cmd.usage != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Usage: migrate [flags] <command> [arguments]")
	fmt.Fprintln(out, "\nCommands:")
	for _, name := range names {
		fmt.Fprintln(out, "  "+commands[name].usage)
	}
	fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
	fmt.Fprintln(out, "\nDatabase settings come from RECEPTION_DATABASE_* variables or a .env file.")
}
