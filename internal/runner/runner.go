// Package runner implements the scanner/scheduler from spec.md §4.4: a
// bounded worker pool that drains a candidate.Stream at a rate-limited
// pace, computes each apex's wildcard profile once (spec.md §4.3), and
// emits results and checkpoint transitions. The worker-pool-over-a-
// channel shape is grounded on the teacher's ParseSubdomains, widened
// from a fixed worker count into the full state machine spec.md §4.4
// requires.
package runner

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cheggaaa/pb/v3"

	"rusub/internal/apex"
	"rusub/internal/candidate"
	"rusub/internal/checkpoint"
	"rusub/internal/dnsclient"
	"rusub/internal/errs"
	"rusub/internal/gologger"
	"rusub/internal/output"
	"rusub/internal/ratelimit"
	"rusub/internal/wildcard"
)

// Config wires together everything one scan run needs. The candidate
// source (heuristic vs. wordlist, per spec.md §4.4) is decided by the
// caller and handed in as an already-built Stream.
type Config struct {
	Stream      *candidate.Stream
	Apexes      []apex.Domain
	Client      *dnsclient.Client
	Limiter     *ratelimit.Limiter
	Checkpoint  *checkpoint.Store
	Output      output.Writer
	Concurrency int
	ShowBar     bool
}

// Counters is the end-of-run summary spec.md §7 requires at info level.
type Counters struct {
	Dispatched       uint64
	Finished         uint64
	Failed           uint64
	WildcardFiltered uint64
}

// Runner drives one scan to completion.
type Runner struct {
	cfg        Config
	apexByName map[string]apex.Domain

	wcMu sync.Mutex
	wc   map[string]*wcEntry

	failedApexes sync.Map // apex name -> struct{}

	dispatched, finished, failed, wcFiltered atomic.Uint64
}

// wcEntry publishes one apex's wildcard profile exactly once, shared
// read-only by every worker thereafter (spec.md §5's "publish-once
// handle, not a lock").
type wcEntry struct {
	once    sync.Once
	profile wildcard.Profile
	err     error
}

// New builds a Runner and installs cfg.Limiter as cfg.Client's wire-send
// waiter, so every send (including retries) is rate-gated per spec.md §4.4.
func New(cfg Config) *Runner {
	if cfg.Limiter != nil {
		cfg.Client.SetWaiter(cfg.Limiter.Wait)
	}
	byName := make(map[string]apex.Domain, len(cfg.Apexes))
	for _, d := range cfg.Apexes {
		byName[d.String()] = d
	}
	return &Runner{
		cfg:        cfg,
		apexByName: byName,
		wc:         make(map[string]*wcEntry),
	}
}

// Run drains the candidate stream to exhaustion or until ctx is
// cancelled, then returns the run's counters. It returns a
// WildcardUnknown error iff every configured apex aborted wildcard
// detection (spec.md §6's exit-code-4 condition); the caller maps that
// to a process exit code.
func (r *Runner) Run(ctx context.Context) (Counters, error) {
	resultCh := make(chan output.Result, r.cfg.Concurrency)

	var sinkWG sync.WaitGroup
	sinkWG.Add(1)
	go func() {
		defer sinkWG.Done()
		for res := range resultCh {
			if err := r.cfg.Output.Write(res); err != nil {
				gologger.Warnf("sink write failed for %s: %s", res.Subdomain, err)
			}
		}
	}()

	var bar *pb.ProgressBar
	if r.cfg.ShowBar {
		bar = pb.New(0)
		bar.Start()
	}

	var wg sync.WaitGroup
	workers := r.cfg.Concurrency
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.work(ctx, resultCh, bar)
		}()
	}
	wg.Wait()
	close(resultCh)
	sinkWG.Wait()
	if bar != nil {
		bar.Finish()
	}

	counters := Counters{
		Dispatched:       r.dispatched.Load(),
		Finished:         r.finished.Load(),
		Failed:           r.failed.Load(),
		WildcardFiltered: r.wcFiltered.Load(),
	}
	gologger.Infof("dispatched=%d finished=%d failed=%d wildcard_filtered=%d",
		counters.Dispatched, counters.Finished, counters.Failed, counters.WildcardFiltered)

	if len(r.cfg.Apexes) > 0 && r.failedApexCount() == len(r.cfg.Apexes) {
		return counters, errs.New(errs.WildcardUnknown, nil)
	}
	return counters, nil
}

func (r *Runner) failedApexCount() int {
	n := 0
	r.failedApexes.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// work pulls candidates off the shared Stream until it's exhausted or
// ctx is cancelled. A panic while processing one candidate is
// recovered and converted to a Failed transition; it never kills the
// worker goroutine, matching spec.md §4.4's panic-isolation rule.
func (r *Runner) work(ctx context.Context, out chan<- output.Result, bar *pb.ProgressBar) {
	for {
		if ctx.Err() != nil {
			return
		}
		fqdn, apexName, ok := r.cfg.Stream.Next()
		if !ok {
			return
		}
		r.safeProcess(ctx, fqdn, apexName, out)
		if bar != nil {
			bar.Increment()
		}
	}
}

func (r *Runner) safeProcess(ctx context.Context, fqdn, apexName string, out chan<- output.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			gologger.Errorf("recovered panic processing %s: %v", fqdn, rec)
			r.cfg.Checkpoint.Set(checkpoint.Entry{Domain: fqdn, State: checkpoint.Failed})
			r.failed.Add(1)
		}
	}()
	r.process(ctx, fqdn, apexName, out)
}

func (r *Runner) process(ctx context.Context, fqdn, apexName string, out chan<- output.Result) {
	if entry, ok := r.cfg.Checkpoint.Get(fqdn); ok && entry.State == checkpoint.Finished {
		return
	}
	if _, down := r.failedApexes.Load(apexName); down {
		return
	}

	profile, err := r.wildcardProfile(ctx, apexName)
	if err != nil {
		if _, loaded := r.failedApexes.LoadOrStore(apexName, struct{}{}); !loaded {
			gologger.Warnf("wildcard detection aborted for %s: %s", apexName, err)
		}
		return
	}

	r.dispatched.Add(1)
	r.cfg.Checkpoint.Set(checkpoint.Entry{Domain: fqdn, State: checkpoint.InProgress})

	records, err := r.cfg.Client.QueryFull(ctx, fqdn)
	if err != nil {
		if errs.Is(err, errs.Cancelled) {
			return
		}
		kind, _ := errs.KindOf(err)
		gologger.Debugf("%s: %s: %s", fqdn, kind, err)
		r.cfg.Checkpoint.Set(checkpoint.Entry{Domain: fqdn, State: checkpoint.Failed})
		r.failed.Add(1)
		return
	}

	dom := r.apexByName[apexName]
	var answers []string
	var recs []output.Record
	crossApexCNAME := false
	for _, rec := range records {
		recs = append(recs, output.Record{RType: rec.RType, Data: rec.Data})
		switch rec.RType {
		case "A", "AAAA":
			answers = append(answers, rec.Data)
		case "CNAME":
			if !dom.SameApex(rec.Data) {
				crossApexCNAME = true
			}
		}
	}

	r.cfg.Checkpoint.Set(checkpoint.Entry{Domain: fqdn, State: checkpoint.Finished})
	r.finished.Add(1)

	if len(answers) == 0 {
		return
	}
	if wildcard.IsFiltered(answers, profile, crossApexCNAME) {
		r.wcFiltered.Add(1)
		return
	}

	select {
	case out <- output.Result{Subdomain: fqdn, Answers: answers, Records: recs}:
	case <-ctx.Done():
	}
}

// wildcardProfile computes (or returns the already-computed) wildcard
// profile for apexName, running detection exactly once regardless of
// how many workers race to request it first.
func (r *Runner) wildcardProfile(ctx context.Context, apexName string) (wildcard.Profile, error) {
	r.wcMu.Lock()
	e, ok := r.wc[apexName]
	if !ok {
		e = &wcEntry{}
		r.wc[apexName] = e
	}
	r.wcMu.Unlock()

	e.once.Do(func() {
		e.profile, e.err = wildcard.Detect(ctx, r.cfg.Client, apexName)
	})
	return e.profile, e.err
}
