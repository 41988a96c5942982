package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"golang.org/x/term"
	"gopkg.in/yaml.v2"

	"github.com/qail-io/qail-go/migrate"
	"github.com/qail-io/qail-go/parser"
	"github.com/qail-io/qail-go/pg"
	"github.com/qail-io/qail-go/transpiler"
	"github.com/qail-io/qail-go/util"
)

var version = "dev"

// generatorConfig is the optional YAML config controlling migration
// generation, read with --config.
type generatorConfig struct {
	SkipDrop     bool     `yaml:"skip_drop"`
	TargetTables []string `yaml:"target_tables"`
}

type options struct {
	User     string `short:"U" long:"user" description:"PostgreSQL user name" value-name:"username"`
	Password string `short:"W" long:"password" description:"PostgreSQL user password, overrides $PG_PASSWORD" value-name:"password"`
	Host     string `short:"h" long:"host" description:"Host to connect to the PostgreSQL server" value-name:"hostname"`
	Port     uint   `short:"p" long:"port" description:"Port used for the connection" value-name:"port"`
	DbName   string `short:"d" long:"dbname" description:"Database name" value-name:"dbname"`
	Prompt   bool   `long:"password-prompt" description:"Force PostgreSQL user password prompt"`

	File    string `short:"f" long:"file" description:"Read the query from the file, rather than the argument" value-name:"filename"`
	Dialect string `long:"dialect" description:"Transpile target (postgres, mysql, sqlite, sqlserver, mongo, cassandra, redis, qdrant)" default:"postgres"`
	DryRun  bool   `long:"dry-run" description:"Print what would run without executing"`
	Diff    string `long:"diff" description:"Diff two schema files: old.qail:new.qail" value-name:"old:new"`
	Config  string `long:"config" description:"YAML file controlling migration generation" value-name:"filename"`
	Debug   bool   `long:"debug" description:"Dump the parsed IR before executing"`
	Help    bool   `long:"help" description:"Show this help"`
	Version bool   `long:"version" description:"Show this version"`
}

func parseOptions(args []string) ([]string, *options) {
	var opts options
	p := flags.NewParser(&opts, flags.None)
	p.Usage = "[option...] [query]"
	rest, err := p.ParseArgs(args)
	if err != nil {
		log.Fatal(err)
	}

	if opts.Help {
		p.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}
	return rest, &opts
}

func main() {
	util.InitSlog()
	args, opts := parseOptions(os.Args[1:])

	if opts.Diff != "" {
		runDiff(opts)
		return
	}

	input, err := readInput(opts, args)
	if err != nil {
		log.Fatal(err)
	}

	stmt, err := parser.Parse(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if opts.Debug {
		pp.Fprintln(os.Stderr, stmt)
	}

	dialect, err := dialectByName(opts.Dialect)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sql, params, err := transpiler.SQL(stmt, dialect)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if opts.DryRun || dialect != transpiler.Postgres {
		fmt.Println(sql)
		for i, p := range params {
			if p.Null {
				fmt.Printf("  $%d = NULL\n", i+1)
			} else if p.Name != "" {
				fmt.Printf("  $%d = :%s\n", i+1, p.Name)
			} else {
				fmt.Printf("  $%d = %s\n", i+1, p.Data)
			}
		}
		return
	}

	cfg := resolveConfig(opts)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pg.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	rows, err := pool.FetchAll(ctx, stmt)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	printRows(rows)
}

// resolveConfig starts from the environment (PG_* and DATABASE_URL); a
// readable qail.toml in the working directory replaces that configuration
// whole, and the flags and the password prompt then override single fields.
func resolveConfig(opts *options) pg.Config {
	cfg := pg.ConfigFromEnv()
	if fileCfg, err := pg.LoadConfigFile("qail.toml"); err == nil {
		cfg = fileCfg
	}
	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Port = int(opts.Port)
	}
	if opts.User != "" {
		cfg.User = opts.User
	}
	if opts.Password != "" {
		cfg.Password = opts.Password
	}
	if opts.DbName != "" {
		cfg.Database = opts.DbName
	}
	if opts.Prompt {
		fmt.Printf("Enter Password: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println()
		cfg.Password = string(pass)
	}
	// A host that exists on disk is a socket directory.
	if st, err := os.Stat(cfg.Host); err == nil && st.IsDir() {
		cfg.UnixSocket = cfg.Host
	}
	return cfg
}

func readInput(opts *options, args []string) (string, error) {
	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	return "", fmt.Errorf("no query given; pass one as an argument or with --file")
}

func dialectByName(name string) (transpiler.Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pg":
		return transpiler.Postgres, nil
	case "mysql":
		return transpiler.MySQL, nil
	case "sqlite", "sqlite3":
		return transpiler.SQLite, nil
	case "sqlserver", "mssql":
		return transpiler.SQLServer, nil
	case "mongo", "mongodb":
		return transpiler.Mongo, nil
	case "cassandra", "cql":
		return transpiler.Cassandra, nil
	case "redis":
		return transpiler.Redis, nil
	case "qdrant":
		return transpiler.Qdrant, nil
	}
	return 0, fmt.Errorf("unknown dialect %q", name)
}

func runDiff(opts *options) {
	parts := strings.SplitN(opts.Diff, ":", 2)
	if len(parts) != 2 {
		log.Fatal("--diff requires old.qail:new.qail")
	}

	var genCfg generatorConfig
	if opts.Config != "" {
		data, err := os.ReadFile(opts.Config)
		if err != nil {
			log.Fatal(err)
		}
		if err := yaml.Unmarshal(data, &genCfg); err != nil {
			log.Fatal(err)
		}
	}

	oldSchema := loadSchema(parts[0])
	newSchema := loadSchema(parts[1])

	plan := migrate.Diff(oldSchema, newSchema)
	if len(plan) == 0 {
		fmt.Println("-- Nothing is modified --")
		return
	}

	for _, step := range plan {
		if genCfg.SkipDrop && step.Classification != migrate.Reversible {
			fmt.Printf("-- skipped (%s): ", step.Classification)
		} else if step.Classification != migrate.Reversible {
			fmt.Printf("-- %s\n", step.Classification)
		}
		if len(genCfg.TargetTables) > 0 && !contains(genCfg.TargetTables, step.Stmt.Table) {
			continue
		}
		sql, _, err := transpiler.SQL(step.Stmt, transpiler.Postgres)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s;\n", sql)
	}
}

func loadSchema(path string) *migrate.Schema {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read '%s': %s", path, err)
	}
	schema, err := migrate.ParseSchema(string(data))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for name, table := range util.CanonicalMapIter(schema.Tables) {
		if table == nil {
			log.Fatalf("schema table %q is empty", name)
		}
	}
	return schema
}

func printRows(rows []pg.Row) {
	if len(rows) == 0 {
		fmt.Println("-- no rows --")
		return
	}
	headers := util.TransformSlice(rows[0].Columns, func(c pg.ColumnDesc) string { return c.Name })
	fmt.Println(strings.Join(headers, "\t"))
	for _, row := range rows {
		fields := make([]string, len(row.Values))
		for i := range row.Values {
			if row.IsNull(i) {
				fields[i] = "NULL"
			} else {
				fields[i] = row.String(i)
			}
		}
		fmt.Println(strings.Join(fields, "\t"))
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
