// Command rusub is the CLI entry point for the enumeration engine. It
// owns every concern spec.md §1 calls external: flag parsing, resolver
// discovery, output formatting, and checkpoint file I/O; the actual
// scan lives in internal/runner. Flag wiring follows the teacher's
// single-command style, widened to urfave/cli/v2 (kaleter101-ksubdomain's
// CLI dependency) for the richer subcommand/flag surface spec.md §6 needs.
package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/miekg/dns"
	"github.com/urfave/cli/v2"

	"rusub/internal/apex"
	"rusub/internal/candidate"
	"rusub/internal/checkpoint"
	"rusub/internal/dnsclient"
	"rusub/internal/errs"
	"rusub/internal/gologger"
	"rusub/internal/options"
	"rusub/internal/output"
	"rusub/internal/ratelimit"
	"rusub/internal/resolvers"
	"rusub/internal/runner"
)

func main() {
	app := &cli.App{
		Name:  "rusub",
		Usage: "high-throughput subdomain enumeration",
		Commands: []*cli.Command{
			enumCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		gologger.Errorf("%s", err)
		if coder, ok := err.(cli.ExitCoder); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(exitCodeFor(err))
	}
}

func enumCommand() *cli.Command {
	defaults := options.New()
	return &cli.Command{
		Name:  "enum",
		Usage: "enumerate subdomains for one or more apex domains",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "domain", Aliases: []string{"d"}, Usage: "apex domain (repeatable)"},
			&cli.StringFlag{Name: "domain-list", Usage: "file of apex domains, one per line"},
			&cli.BoolFlag{Name: "stdin", Usage: "read apex domains from standard input"},
			&cli.StringFlag{Name: "filename", Aliases: []string{"f"}, Usage: "wordlist path; heuristic mode if absent"},
			&cli.UintFlag{Name: "heuristic-max", Value: uint(defaults.HeuristicMax)},
			&cli.StringSliceFlag{Name: "resolvers", Aliases: []string{"r"}, Usage: "override resolvers"},
			&cli.UintFlag{Name: "concurrency", Aliases: []string{"c"}, Value: uint(defaults.Concurrency)},
			&cli.StringFlag{Name: "band", Aliases: []string{"b"}, Value: defaults.Band},
			&cli.UintFlag{Name: "timeout", Value: uint(defaults.Timeout)},
			&cli.UintFlag{Name: "retry", Value: uint(defaults.Retry)},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}},
			&cli.StringFlag{Name: "output-type", Value: defaults.OutputType},
			&cli.BoolFlag{Name: "gzip"},
			&cli.BoolFlag{Name: "not-print"},
			&cli.BoolFlag{Name: "pure-output"},
			&cli.BoolFlag{Name: "only-alive"},
			&cli.StringFlag{Name: "log-level", Value: defaults.LogLevel},
			&cli.StringFlag{Name: "checkpoint", Value: defaults.CheckpointPath},
		},
		Action: runEnum,
	}
}

func runEnum(c *cli.Context) error {
	opts := options.New()
	opts.Domains = c.StringSlice("domain")
	opts.DomainList = c.String("domain-list")
	opts.Stdin = c.Bool("stdin")
	opts.Filename = c.String("filename")
	opts.HeuristicMax = int(c.Uint("heuristic-max"))
	opts.Resolvers = c.StringSlice("resolvers")
	opts.Concurrency = int(c.Uint("concurrency"))
	opts.Band = c.String("band")
	opts.Timeout = int(c.Uint("timeout"))
	opts.Retry = int(c.Uint("retry"))
	opts.Output = c.String("output")
	opts.OutputType = c.String("output-type")
	opts.Gzip = c.Bool("gzip")
	opts.NotPrint = c.Bool("not-print")
	opts.PureOutput = c.Bool("pure-output")
	opts.OnlyAlive = c.Bool("only-alive")
	opts.LogLevel = c.String("log-level")
	opts.CheckpointPath = c.String("checkpoint")

	gologger.SetLevel(gologger.ParseLevel(opts.LogLevel))

	apexDomains, err := collectApexes(opts)
	if err != nil {
		return cliExit(err)
	}
	if len(apexDomains) == 0 {
		return cliExit(errs.Newf(errs.CliError, "no apex domains supplied"))
	}

	rate, err := options.ParseBand(opts.Band)
	if err != nil {
		return cliExit(err)
	}

	resolverList, err := resolvers.Collect(opts.Resolvers, osResolvers())
	if err != nil {
		return err // NoResolvers: exit code 3
	}
	pool := resolvers.NewPool(resolverList)
	pool.OnDisable(func(addr string) {
		gologger.Warnf("resolver %s disabled after repeated failures", addr)
	})

	client := dnsclient.New(pool, time.Duration(opts.Timeout)*time.Second, opts.Retry)
	limiter := ratelimit.New(int(rate))
	if limiter.Rate() > 0 {
		gologger.Infof("rate limit: %d queries/sec", limiter.Rate())
	} else {
		gologger.Infof("rate limit: unlimited")
	}

	sink, err := output.New(opts.Output, opts.OutputType, opts.Gzip)
	if err != nil {
		return cliExit(err)
	}

	store := checkpoint.LoadFile(opts.CheckpointPath)

	stream, closeSources, err := buildStream(apexDomains, opts)
	if err != nil {
		return cliExit(err)
	}
	defer closeSources()

	run := runner.New(runner.Config{
		Stream:      stream,
		Apexes:      apexDomains,
		Client:      client,
		Limiter:     limiter,
		Checkpoint:  store,
		Output:      sink,
		Concurrency: opts.Concurrency,
		ShowBar:     opts.LogLevel != "silent" && !opts.NotPrint,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		gologger.Warnf("cancellation requested, draining in-flight queries")
		cancel()
	}()

	_, runErr := run.Run(ctx)

	logResolverSnapshot(pool)

	if saveErr := checkpoint.SaveFile(store, opts.CheckpointPath); saveErr != nil {
		gologger.Warnf("checkpoint save failed: %s", saveErr)
	}
	if closeErr := sink.Close(); closeErr != nil {
		gologger.Warnf("sink close failed: %s", closeErr)
	}

	if runErr != nil {
		if errs.Is(runErr, errs.WildcardUnknown) {
			return runErr // exit code 4
		}
		if errs.Is(runErr, errs.Cancelled) {
			return nil
		}
	}
	return nil
}

// collectApexes gathers and normalizes apex domains from -d, --domain-list,
// and --stdin, in that order, deduplicating by normalized form.
func collectApexes(opts options.Options) ([]apex.Domain, error) {
	var raw []string
	raw = append(raw, opts.Domains...)

	if opts.DomainList != "" {
		f, err := os.Open(opts.DomainList)
		if err != nil {
			return nil, errs.Newf(errs.CliError, "open domain list %s: %w", opts.DomainList, err)
		}
		defer f.Close()
		raw = append(raw, readLines(f)...)
	}
	if opts.Stdin {
		raw = append(raw, readLines(os.Stdin)...)
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]apex.Domain, 0, len(raw))
	for _, r := range raw {
		d, err := apex.Normalize(r)
		if err != nil {
			gologger.Warnf("skipping invalid apex %q: %s", r, err)
			continue
		}
		if _, ok := seen[d.String()]; ok {
			continue
		}
		seen[d.String()] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

func readLines(r *os.File) []string {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// buildStream builds the round-robin candidate stream. Wordlist mode
// wins over heuristic when both are configured, per spec.md §9's
// resolution of that Open Question; the returned closer releases any
// opened wordlist file handles.
func buildStream(apexDomains []apex.Domain, opts options.Options) (*candidate.Stream, func(), error) {
	sources := make([]candidate.LabelSource, len(apexDomains))
	var files []*os.File

	for i, d := range apexDomains {
		if opts.Filename != "" {
			f, err := os.Open(opts.Filename)
			if err != nil {
				for _, of := range files {
					of.Close()
				}
				return nil, func() {}, errs.Newf(errs.CliError, "open wordlist %s: %w", opts.Filename, err)
			}
			files = append(files, f)
			sources[i] = candidate.NewWordlistSource(f)
		} else {
			sources[i] = candidate.NewHeuristicSource(d.String(), opts.HeuristicMax)
		}
	}

	closer := func() {
		for _, f := range files {
			f.Close()
		}
	}
	return candidate.NewStream(apexDomains, sources), closer, nil
}

// logResolverSnapshot prints each resolver's end-of-run health next to
// the runner's counter line, so a disabled resolver is visible rather
// than silently absorbed into the rotation's skip logic.
func logResolverSnapshot(pool *resolvers.Pool) {
	for _, stat := range pool.Snapshot() {
		gologger.Infof("resolver %s ok=%d fail=%d disabled=%t", stat.Addr, stat.OK, stat.Fail, stat.Disabled)
	}
}

// osResolvers discovers the system resolver list via the platform
// resolv.conf reader miekg/dns ships, the teacher's DNS dependency.
// Discovery failure (e.g. no resolv.conf on this platform) yields an
// empty list; resolvers.Collect still falls back to the public pair.
func osResolvers() []string {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || cfg == nil {
		return nil
	}
	out := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		out = append(out, s+":"+cfg.Port)
	}
	return out
}

func cliExit(err error) error {
	return cli.Exit(err.Error(), exitCodeFor(err))
}

func exitCodeFor(err error) int {
	switch {
	case errs.Is(err, errs.NoResolvers):
		return 3
	case errs.Is(err, errs.WildcardUnknown):
		return 4
	case errs.Is(err, errs.CliError):
		return 2
	default:
		return 1
	}
}
