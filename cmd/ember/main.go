// Package main implements the ember CLI: apply, diff, validate, and inspect
// a target schema against a data file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/arkilian/ember/internal/config"
	"github.com/arkilian/ember/internal/diff"
	"github.com/arkilian/ember/internal/session"
	"github.com/arkilian/ember/internal/validator"
	schemapkg "github.com/arkilian/ember/pkg/schema"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "apply":
		runApply(os.Args[2:])
	case "diff":
		runDiff(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "inspect":
		runInspect(os.Args[2:])
	case "archive":
		runArchive(os.Args[2:])
	case "version":
		fmt.Printf("ember version %s (commit: %s)\n", version, commit)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "ember: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Ember - embedded object database schema tooling\n\n")
	fmt.Fprintf(os.Stderr, "Usage: ember <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  apply     Apply a target schema to a data file\n")
	fmt.Fprintf(os.Stderr, "  diff      Print the change list between a data file's current schema and a target\n")
	fmt.Fprintf(os.Stderr, "  validate  Validate a schema file against the invariants in pkg/schema\n")
	fmt.Fprintf(os.Stderr, "  inspect   Print a data file's currently persisted schema\n")
	fmt.Fprintf(os.Stderr, "  archive   List, prune, or restore ResetFile snapshots in the configured archive store\n")
	fmt.Fprintf(os.Stderr, "  version   Print version information\n")
}

func loadCLIConfig(configFile string) *config.Config {
	if configFile == "" {
		log.Fatal("ember: -config is required")
	}
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		log.Fatalf("ember: %v", err)
	}
	return cfg
}

func runApply(args []string) {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to ember config file (YAML or JSON)")
	fs.Parse(args)

	cfg := loadCLIConfig(*configFile)
	if cfg.SchemaFile == "" {
		log.Fatal("ember apply: config's schema_file must be set")
	}

	sessCfg, err := config.ToSessionConfig(cfg)
	if err != nil {
		log.Fatalf("ember apply: %v", err)
	}

	sess, err := session.GetShared(sessCfg)
	if err != nil {
		log.Fatalf("ember apply: %v", err)
	}
	defer sess.Close()

	fmt.Printf("applied schema: version=%d objects=%d\n", sess.SchemaVersion(), sess.Schema().Len())
}

func runDiff(args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to ember config file (YAML or JSON)")
	targetFile := fs.String("target", "", "Path to a YAML schema file to diff against")
	fs.Parse(args)

	cfg := loadCLIConfig(*configFile)
	cfg.SchemaFile = "" // never auto-apply; this command only reads the current shape

	sessCfg, err := config.ToSessionConfig(cfg)
	if err != nil {
		log.Fatalf("ember diff: %v", err)
	}

	sess, err := session.GetShared(sessCfg)
	if err != nil {
		log.Fatalf("ember diff: %v", err)
	}
	defer sess.Close()

	target := loadTargetSchema(*targetFile)
	changes := diff.Diff(sess.Schema(), target)
	if len(changes) == 0 {
		fmt.Println("no changes")
		return
	}
	for _, c := range changes {
		fmt.Printf("%s\t%s.%s\n", c.Kind, c.Object.Name, c.Property.Name)
	}
	fmt.Printf("needs_migration=%v\n", diff.NeedsMigration(changes))
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	schemaFile := fs.String("schema", "", "Path to a YAML schema file to validate")
	fs.Parse(args)

	target := loadTargetSchema(*schemaFile)
	errs := validator.Validate(target)
	if len(errs) == 0 {
		fmt.Println("schema is valid")
		return
	}
	for _, e := range errs {
		fmt.Printf("%s: %s\n", e.Category, e.Error())
	}
	os.Exit(1)
}

func runInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to ember config file (YAML or JSON)")
	fs.Parse(args)

	cfg := loadCLIConfig(*configFile)
	cfg.SchemaFile = ""

	sessCfg, err := config.ToSessionConfig(cfg)
	if err != nil {
		log.Fatalf("ember inspect: %v", err)
	}

	sess, err := session.GetShared(sessCfg)
	if err != nil {
		log.Fatalf("ember inspect: %v", err)
	}
	defer sess.Close()

	fmt.Printf("version: %d\n", sess.SchemaVersion())
	for _, obj := range sess.Schema().Objects() {
		fmt.Printf("%s (pk=%s)\n", obj.Name, obj.PrimaryKey)
		for _, p := range obj.PersistedProperties {
			fmt.Printf("  %s %s nullable=%v indexed=%v\n", p.Name, p.Type, p.IsNullable, p.IsIndexed)
		}
	}
}

func runArchive(args []string) {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to ember config file (YAML or JSON)")
	keep := fs.Int("keep", 5, "Snapshots to retain when pruning, oldest discarded first")
	restoreTo := fs.String("restore-to", "", "Local path to write a restored snapshot to")
	fs.Parse(args)

	if fs.NArg() < 1 {
		log.Fatal("ember archive: expected a subcommand: list, prune, or restore <object-path>")
	}

	cfg := loadCLIConfig(*configFile)
	cfg.SchemaFile = ""
	sessCfg, err := config.ToSessionConfig(cfg)
	if err != nil {
		log.Fatalf("ember archive: %v", err)
	}
	sess, err := session.GetShared(sessCfg)
	if err != nil {
		log.Fatalf("ember archive: %v", err)
	}
	defer sess.Close()

	switch fs.Arg(0) {
	case "list":
		resets, err := sess.ListArchivedResetsDetailed()
		if err != nil {
			log.Fatalf("ember archive: %v", err)
		}
		for _, r := range resets {
			if r.RanAt.IsZero() {
				fmt.Println(r.ObjectPath)
				continue
			}
			fmt.Printf("%s\tran_at=%s\n", r.ObjectPath, r.RanAt.Format(time.RFC3339))
		}
	case "prune":
		if err := sess.PruneArchivedResets(*keep); err != nil {
			log.Fatalf("ember archive: %v", err)
		}
	case "restore":
		if fs.NArg() < 2 || *restoreTo == "" {
			log.Fatal("ember archive restore: expected an object path and -restore-to")
		}
		if err := sess.RestoreArchivedReset(fs.Arg(1), *restoreTo); err != nil {
			log.Fatalf("ember archive: %v", err)
		}
	default:
		log.Fatalf("ember archive: unknown subcommand %q", fs.Arg(0))
	}
}

func loadTargetSchema(path string) schemapkg.Schema {
	if path == "" {
		log.Fatal("ember: -schema/-target is required")
	}
	target, err := config.LoadSchemaFile(path)
	if err != nil {
		log.Fatalf("ember: %v", err)
	}
	return target
}
