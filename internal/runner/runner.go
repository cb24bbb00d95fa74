package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/nethoundsh/unitwrap/pkg/args"
	"github.com/nethoundsh/unitwrap/pkg/report"
	"github.com/nethoundsh/unitwrap/pkg/suite"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// DefaultRoot is the automated report root used when no -f was given.
const DefaultRoot = "result"

// Options carries everything a run needs besides the suites.
type Options struct {
	Context      args.Context
	Out          io.Writer
	In           io.Reader
	ShowProgress bool
	Now          func() time.Time
}

// PostProcess is called once after a successful run.
type PostProcess func(args.Context, report.Run)

func (o Options) out() io.Writer {
	if o.Out != nil {
		return o.Out
	}
	return os.Stdout
}

func (o Options) in() io.Reader {
	if o.In != nil {
		return o.In
	}
	return os.Stdin
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) workers() int {
	if o.Context.Workers < 1 {
		return 1
	}
	return o.Context.Workers
}

type suiteJob struct {
	index int
	suite *suite.Suite
}

type workerOutput struct {
	index  int
	label  string
	output []byte
	result report.SuiteResult
	err    error
}

func OrderedPool[J any](
	ctx context.Context,
	workers int,
	jobs []J,
	process func(J) workerOutput,
	handle func(workerOutput),
) error {
	// Cancellation is best-effort: jobs not yet sent or results not yet produced
	// may be dropped once ctx is done.
	if workers <= 1 || len(jobs) <= 1 {
		for _, job := range jobs {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			handle(process(job))
		}
		return nil
	}

	jobCh := make(chan J, workers)
	results := make(chan workerOutput, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				if ctx.Err() != nil {
					return
				}
				out := process(job)
				select {
				case results <- out:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		pending := make(map[int]workerOutput)
		next := 0
		for out := range results {
			pending[out.index] = out
			for {
				current, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				handle(current)
				next++
			}
		}
	}()

	interrupted := false
sendJobs:
	for _, job := range jobs {
		select {
		case jobCh <- job:
		case <-ctx.Done():
			interrupted = true
			break sendJobs
		}
	}
	close(jobCh)
	wg.Wait()
	close(results)
	<-done

	if interrupted || ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func suiteJobs(suites []*suite.Suite) []suiteJob {
	jobs := make([]suiteJob, len(suites))
	for i, s := range suites {
		jobs[i] = suiteJob{index: i, suite: s}
	}
	return jobs
}

// runSuites runs suites on the pool and returns their results in
// registration order. render, when set, turns a result into the text
// printed for it; handle sees every finished suite in order.
func runSuites(
	ctx context.Context,
	opts Options,
	suites []*suite.Suite,
	render func(report.SuiteResult) ([]byte, error),
	handle func(workerOutput),
) (report.Run, error) {
	sel := opts.Context.Filter()
	selected := sel.ShouldRun
	if sel.Empty() {
		selected = nil
	}

	start := opts.now()
	run := report.Run{Suites: make([]report.SuiteResult, 0, len(suites))}
	err := OrderedPool(ctx, opts.workers(), suiteJobs(suites),
		func(job suiteJob) workerOutput {
			res := job.suite.Run(selected)
			out := workerOutput{index: job.index, label: job.suite.Title, result: res}
			if render != nil {
				out.output, out.err = render(res)
			}
			return out
		},
		func(out workerOutput) {
			run.Suites = append(run.Suites, out.result)
			if handle != nil {
				handle(out)
			}
		},
	)
	run.Elapsed = opts.now().Sub(start)
	return run, err
}

func initProgressBar(ctx context.Context, total int64) (*mpb.Progress, *mpb.Bar) {
	p := mpb.NewWithContext(ctx, mpb.WithOutput(os.Stderr))
	b := p.New(total,
		mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding(" ").Rbound("]"),
		mpb.PrependDecorators(decor.Name("Running ")),
		mpb.AppendDecorators(
			decor.CountersNoUnit(" %d / %d "),
			decor.AverageETA(decor.ET_STYLE_MMSS),
		),
		mpb.BarRemoveOnComplete(),
	)
	return p, b
}

// RunBasic runs every suite and prints the results as plain text at the
// context's level.
func RunBasic(ctx context.Context, opts Options, reg *suite.Registry) (report.Run, error) {
	out := opts.out()
	basic := report.Basic{Level: opts.Context.Level}
	if err := basic.Header(out); err != nil {
		return report.Run{}, err
	}
	showProgress := opts.ShowProgress && basic.Level != report.LevelVerbose
	return runRendered(ctx, opts, basic, reg.Suites(), showProgress)
}

// runRendered runs suites, printing each one as it completes and the
// summary at the end.
func runRendered(ctx context.Context, opts Options, basic report.Basic, suites []*suite.Suite, showProgress bool) (report.Run, error) {
	out := opts.out()
	var progress *mpb.Progress
	var bar *mpb.Bar
	if showProgress && len(suites) > 0 {
		progress, bar = initProgressBar(ctx, int64(len(suites)))
	}

	var writeErr error
	run, err := runSuites(ctx, opts, suites,
		func(res report.SuiteResult) ([]byte, error) {
			var buf bytes.Buffer
			err := basic.Suite(&buf, res)
			return buf.Bytes(), err
		},
		func(o workerOutput) {
			if writeErr == nil {
				writeErr = o.err
			}
			if len(o.output) > 0 && writeErr == nil {
				_, writeErr = out.Write(o.output)
			}
			if bar != nil {
				bar.Increment()
			}
		},
	)
	if progress != nil {
		if err != nil {
			bar.Abort(true)
		}
		progress.Wait()
	}
	if err != nil {
		return run, err
	}
	if writeErr != nil {
		return run, fmt.Errorf("writing results: %w", writeErr)
	}
	if err := basic.Footer(out, run); err != nil {
		return run, fmt.Errorf("writing summary: %w", err)
	}
	return run, nil
}

// RunAutomated runs every suite and writes the XML results file under the
// context's report root.
func RunAutomated(ctx context.Context, opts Options, reg *suite.Registry) (report.Run, error) {
	run, err := runSuites(ctx, opts, reg.Suites(), nil, nil)
	if err != nil {
		return run, err
	}
	root := opts.Context.Filename
	if root == "" {
		root = DefaultRoot
	}
	path := report.ResultsPath(root)
	err = report.WriteFile(path, func(b *bytes.Buffer) error {
		return report.WriteXML(b, run, opts.now())
	})
	if err != nil {
		return run, fmt.Errorf("%s: %w", path, err)
	}
	return run, nil
}

// RunSelected runs the registry in the context's mode.
func RunSelected(ctx context.Context, opts Options, reg *suite.Registry) (report.Run, error) {
	switch opts.Context.Mode {
	case args.ModeBasic:
		return RunBasic(ctx, opts, reg)
	case args.ModeConsole:
		return RunConsole(ctx, opts, reg)
	case args.ModeAutomated:
		return RunAutomated(ctx, opts, reg)
	default:
		return report.Run{}, fmt.Errorf("unsupported mode %v", opts.Context.Mode)
	}
}

// Process registers the suites of getters, runs them and calls post. The
// exit code is 0 when everything passed, 2 when a test or suite failed and
// 1 when the suites could not be registered or run.
func Process(ctx context.Context, opts Options, getters []suite.Getter, post PostProcess) int {
	reg := suite.NewRegistry()
	if err := reg.AddAll(getters); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	run, err := RunSelected(ctx, opts, reg)
	if err != nil {
		if ctx.Err() != nil {
			// Results of suites still in flight were dropped.
			fmt.Fprintln(os.Stderr, "\nInterrupted")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	if post != nil {
		post(opts.Context, run)
	}
	if run.Failed() {
		return 2
	}
	return 0
}
