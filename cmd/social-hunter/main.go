package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/krrishhack/Social-Hunter-Extension/pkg/aggregator"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/classifier"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/config"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/extractor"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/fetcher"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/logx"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/messaging"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/model"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/scanner"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/server"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/store"
)

var Version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globals holds the flags every command accepts.
type globals struct {
	dbPath     *string
	configPath *string
	storeKind  *string
}

func run(args []string) error {
	fs := flag.NewFlagSet("social-hunter", flag.ContinueOnError)

	g := globals{
		dbPath:     fs.String("db", "", "Saved-links database path (default: ~/.social-hunter/saved.db)"),
		configPath: fs.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "YAML config file"),
		storeKind:  fs.String("store", "", "Saved-links backend: sqlite, file or memory"),
	}

	if len(args) == 0 {
		printUsage()
		return nil
	}

	cmd := args[0]

	if cmd == "-version" || cmd == "--version" {
		fmt.Println(Version)
		return nil
	}

	switch cmd {
	case "scan":
		return cmdScan(fs, args[1:], g)
	case "bulk":
		return cmdBulk(fs, args[1:], g)
	case "export":
		return cmdExport(fs, args[1:], g)
	case "page":
		return cmdPage(fs, args[1:], g)
	case "classify":
		return cmdClassify(fs, args[1:], g)
	case "extract":
		return cmdExtract(fs, args[1:], g)
	case "saved":
		return cmdSaved(fs, args[1:], g)
	case "save":
		return cmdSave(fs, args[1:], g)
	case "delete":
		return cmdDelete(fs, args[1:], g)
	case "clear":
		return cmdClear(fs, args[1:], g)
	case "serve":
		return cmdServe(fs, args[1:], g)
	case "version":
		fmt.Println(Version)
		return nil
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage() {
	fmt.Println(`social-hunter - Find social media and app store links on websites

Commands:
  scan <target>        Fetch a site and list its social links
  bulk [targets...]    Scan several sites, one after another
                         -f <file>     Read targets from a file, one per line
                         -save         Save every link found
  export [targets...]  Scan sites and write the results as JSON
                         -f <file>     Read targets from a file
                         -o <file>     Output file (default: stdout)
  page <file>          Extract links from a saved HTML page
                         -url <url>    Address the page was loaded from
                         -push         Emit the page-links push instead of a reply
  classify <url...>    Show the platform label for URLs
  extract [file]       List candidate links in text (default: stdin)
  saved                Show saved links
  save <domain> <link> Save a link under a domain
  delete <domain> <i>  Delete the i-th saved link of a domain
  clear                Delete all saved links
  serve                Run the HTTP API
                         -addr <addr>  Listen address (default: 127.0.0.1:8787)
  version              Show version
  help                 Show this help

Options:
  -db <path>       Saved-links database path (default: ~/.social-hunter/saved.db)
  -store <kind>    Saved-links backend: sqlite, file or memory
  -config <path>   YAML config file

Environment:
  SOCIAL_HUNTER_CONFIG       Config file path
  SOCIAL_HUNTER_LOG_LEVEL    debug, info, warn or error
  SOCIAL_HUNTER_LOG_FORMAT   console or json
  SOCIAL_HUNTER_CONCURRENCY  Targets fetched at once during bulk scans`)
}

// app is the wiring shared by the commands.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	scanner *scanner.Scanner
	cl      *classifier.Classifier
	ex      *extractor.Extractor
	store   *store.Store
	closer  io.Closer
}

func setup(g globals) (*app, error) {
	cfg, err := config.Load(*g.configPath)
	if err != nil {
		return nil, err
	}
	if *g.storeKind != "" {
		cfg.Store = strings.ToLower(*g.storeKind)
		cfg.DBPath = config.DefaultDBPath(cfg.Store)
	}
	if *g.dbPath != "" {
		cfg.DBPath = *g.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logx.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	cat, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	ex := extractor.New(extractor.WithCatalog(cat), extractor.WithLogger(logx.Component(log, "extractor")))
	cl := classifier.New(cat)
	agg := aggregator.New(ex, cl, logx.Component(log, "aggregator"))

	f := fetcher.New(fetcher.WithTimeout(cfg.Timeout), fetcher.WithUserAgent(cfg.UserAgent))
	sc := scanner.New(f,
		scanner.WithAggregator(agg),
		scanner.WithConcurrency(cfg.Concurrency),
		scanner.WithLogger(logx.Component(log, "scanner")),
	)

	return &app{cfg: cfg, log: log, scanner: sc, cl: cl, ex: ex}, nil
}

// openStore opens and loads the saved-link store. A failed load is reported
// and the command continues with an empty store.
func (a *app) openStore(ctx context.Context) error {
	var backend store.Backend
	switch a.cfg.Store {
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0755); err != nil {
			return fmt.Errorf("creating db directory: %w", err)
		}
		b, err := store.NewSQLiteBackend(a.cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		backend, a.closer = b, b
	case config.StoreFile:
		backend = store.NewFileBackend(a.cfg.DBPath)
	case config.StoreMemory:
		backend = store.NewMemoryBackend(nil)
	}

	a.store = store.New(backend, store.WithLogger(logx.Component(a.log, "store")))
	if err := a.store.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (starting with no saved links)\n", err)
	}
	return nil
}

func (a *app) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func cmdScan(fs *flag.FlagSet, args []string, g globals) error {
	save := fs.Bool("save", false, "Save every link found")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: social-hunter scan <target>")
	}

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target := fs.Arg(0)
	fmt.Printf("Scanning %s...\n", scanner.NormalizeTarget(target))
	r := a.scanner.Scan(ctx, target)
	if r.Failed() {
		return fmt.Errorf("scanning %s: %w", target, r.Err)
	}
	printLinks(r.Links)

	if *save && len(r.Links) > 0 {
		res := model.NewScanResult()
		res.Set(r.Target, r)
		return a.saveAll(ctx, res)
	}
	return nil
}

func cmdBulk(fs *flag.FlagSet, args []string, g globals) error {
	file := fs.String("f", "", "File with one target per line")
	save := fs.Bool("save", false, "Save every link found")
	if err := fs.Parse(args); err != nil {
		return err
	}

	targets, err := collectTargets(*file, fs.Args())
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("usage: social-hunter bulk [-f file] [targets...]")
	}

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := a.scanner.ScanAll(ctx, targets)

	failed := 0
	res.Each(func(key string, r *model.TargetResult) {
		fmt.Printf("\n%s\n", key)
		if r.Failed() {
			failed++
			fmt.Printf("  error: %v\n", r.Err)
			return
		}
		printLinks(r.Links)
	})
	fmt.Printf("\nScanned %d targets, %d links, %d failed\n", res.Len(), res.TotalLinks(), failed)

	if *save {
		return a.saveAll(ctx, res)
	}
	return nil
}

func cmdExport(fs *flag.FlagSet, args []string, g globals) error {
	file := fs.String("f", "", "File with one target per line")
	out := fs.String("o", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	targets, err := collectTargets(*file, fs.Args())
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("usage: social-hunter export [-f file] [-o file] [targets...]")
	}

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := a.scanner.ScanAll(ctx, targets)
	if !res.HasLinks() {
		fmt.Fprintln(os.Stderr, "No links found to export.")
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	data = append(data, '\n')

	if *out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	fmt.Printf("Exported %d targets to %s\n", res.Len(), *out)
	return nil
}

func cmdPage(fs *flag.FlagSet, args []string, g globals) error {
	pageURL := fs.String("url", "", "Address the page was loaded from")
	push := fs.Bool("push", false, "Emit the page-links push instead of a reply")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: social-hunter page [-url <url>] <file>")
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("reading page: %w", err)
	}

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.Close()

	agent := messaging.NewAgent(a.scanner, *pageURL, string(raw),
		messaging.WithLogger(logx.Component(a.log, "agent")))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *push {
		var encErr error
		err := agent.Run(context.Background(), func(p messaging.Push) {
			encErr = enc.Encode(p)
		})
		if err != nil {
			return err
		}
		return encErr
	}

	reply, err := agent.Handle(messaging.Request{Type: messaging.TypeScanNow})
	if err != nil {
		return err
	}
	return enc.Encode(reply)
}

func cmdClassify(fs *flag.FlagSet, args []string, g globals) error {
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: social-hunter classify <url...>")
	}

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, u := range fs.Args() {
		fmt.Printf("%-12s %s\n", a.cl.Classify(u), u)
	}
	return nil
}

func cmdExtract(fs *flag.FlagSet, args []string, g globals) error {
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.Close()

	var r io.Reader = os.Stdin
	if fs.NArg() > 0 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	for _, u := range a.ex.ExtractReader(r) {
		fmt.Println(u)
	}
	return nil
}

func cmdSaved(fs *flag.FlagSet, args []string, g globals) error {
	asJSON := fs.Bool("json", false, "Print the saved links as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.openStore(context.Background()); err != nil {
		return err
	}

	snap := a.store.Snapshot()
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	if len(snap) == 0 {
		fmt.Println("No saved links yet.")
		return nil
	}
	for _, e := range snap {
		fmt.Printf("%s\n", e.Domain)
		for i, l := range e.Links {
			fmt.Printf("  %2d. %-12s %s\n", i, a.cl.Classify(l), l)
		}
	}
	fmt.Printf("\n%d links across %d domains\n", snap.Count(), len(snap))
	return nil
}

func cmdSave(fs *flag.FlagSet, args []string, g globals) error {
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: social-hunter save <domain> <link>")
	}

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := a.openStore(ctx); err != nil {
		return err
	}

	added, err := a.store.Save(ctx, fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	if !added {
		fmt.Println("Already saved.")
		return nil
	}
	fmt.Printf("Saved %s under %s\n", fs.Arg(1), fs.Arg(0))
	return nil
}

func cmdDelete(fs *flag.FlagSet, args []string, g globals) error {
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: social-hunter delete <domain> <index>")
	}
	index, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("invalid index %q", fs.Arg(1))
	}

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := a.openStore(ctx); err != nil {
		return err
	}

	removed, err := a.store.Delete(ctx, fs.Arg(0), index)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Println("Nothing to delete.")
		return nil
	}
	fmt.Println("Deleted.")
	return nil
}

func cmdClear(fs *flag.FlagSet, args []string, g globals) error {
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := a.openStore(ctx); err != nil {
		return err
	}

	if err := a.store.ClearAll(ctx); err != nil {
		return err
	}
	fmt.Println("All saved links cleared.")
	return nil
}

func cmdServe(fs *flag.FlagSet, args []string, g globals) error {
	addr := fs.String("addr", "", "Listen address (default: 127.0.0.1:8787)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup(g)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.openStore(ctx); err != nil {
		return err
	}

	listen := a.cfg.Addr
	if *addr != "" {
		listen = *addr
	}

	srv := server.NewHTTPServer(listen,
		server.New(a.scanner, a.store, logx.Component(a.log, "http")).Handler())

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", listen).Str("store", a.cfg.Store).Msg("http server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.log.Info().Msg("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return a.store.Flush(shutdownCtx)
}

func (a *app) saveAll(ctx context.Context, res *model.ScanResult) error {
	if err := a.openStore(ctx); err != nil {
		return err
	}
	added, err := a.store.SaveAll(ctx, res)
	if err != nil {
		return err
	}
	if added {
		fmt.Println("All links saved.")
	} else {
		fmt.Println("No new links to save.")
	}
	return nil
}

func printLinks(links []model.LabeledLink) {
	if len(links) == 0 {
		fmt.Println("  No links found.")
		return
	}
	for _, l := range links {
		fmt.Printf("  %-12s %s\n", l.Platform, l.URL)
	}
}

// collectTargets merges targets from file (one per line, # comments allowed)
// with args.
func collectTargets(file string, args []string) ([]string, error) {
	var targets []string
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("opening targets: %w", err)
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			targets = append(targets, line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading targets: %w", err)
		}
	}
	return append(targets, args...), nil
}
