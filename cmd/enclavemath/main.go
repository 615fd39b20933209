package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/enclave-math/boundary"
	"github.com/wippyai/enclave-math/codec"
	"github.com/wippyai/enclave-math/enclave"
	"github.com/wippyai/enclave-math/host"
	"github.com/wippyai/enclave-math/interpose"
	"github.com/wippyai/enclave-math/memory"
	"github.com/wippyai/enclave-math/staging"
)

type options struct {
	digits   int
	radix    int
	pi       int
	sim      bool
	parallel bool
	metrics  bool
}

func main() {
	var (
		digits      = flag.Int("digits", 12, "Significant digits for decimal division")
		radix       = flag.Int("radix", codec.DefaultRadix, "Serialization radix across the boundary (2-62)")
		piDigits    = flag.Int("pi", 0, "Also estimate pi to N digits")
		sim         = flag.Bool("sim", false, "Simulate the protected region without enclave support")
		parallel    = flag.Bool("parallel", false, "Run each operation on its own enclave context")
		verbose     = flag.Bool("v", false, "Verbose logging")
		metrics     = flag.Bool("metrics", false, "Print enclave metrics on exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		if err := setupLogging(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	opts := options{
		digits:   *digits,
		radix:    *radix,
		pi:       *piDigits,
		sim:      *sim,
		parallel: *parallel,
		metrics:  *metrics,
	}

	if *interactive {
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: enclavemath [flags] num1 num2")
		fmt.Fprintln(os.Stderr, "       enclavemath -i  (interactive mode)")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(context.Background(), os.Stdout, opts, flag.Arg(0), flag.Arg(1)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging() error {
	l, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	memory.SetLogger(l.Named("memory"))
	boundary.SetLogger(l.Named("boundary"))
	interpose.SetLogger(l.Named("interpose"))
	staging.SetLogger(l.Named("staging"))
	enclave.SetLogger(l.Named("enclave"))
	host.SetLogger(l.Named("host"))
	return nil
}

// results holds the outputs of one driver run.
type results struct {
	sum, prod, quo *big.Int
	fquo, pi       *big.Float
}

func run(ctx context.Context, w io.Writer, opts options, arg1, arg2 string) error {
	a, err := codec.DecodeInt(arg1, 10)
	if err != nil {
		return fmt.Errorf("num1: %w", err)
	}
	b, err := codec.DecodeInt(arg2, 10)
	if err != nil {
		return fmt.Errorf("num2: %w", err)
	}

	var reg *prometheus.Registry
	cfg := &host.Config{Simulation: opts.sim, Radix: opts.radix}
	if opts.metrics {
		reg = prometheus.NewRegistry()
		cfg.Registerer = reg
	}

	h, err := host.Launch(ctx, cfg)
	if err != nil {
		return fmt.Errorf("launch enclave: %w", err)
	}
	defer h.Close(ctx)

	var res results
	if opts.parallel {
		err = computeParallel(ctx, h, opts, a, b, &res)
	} else {
		err = compute(ctx, h.Client(), opts, a, b, &res)
	}
	if err != nil {
		return err
	}

	printResults(w, styled(w), opts, a, b, &res)

	if reg != nil {
		if err := dumpMetrics(os.Stderr, reg); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	return nil
}

func compute(ctx context.Context, c *host.Client, opts options, a, b *big.Int, res *results) error {
	var err error
	if res.sum, err = c.Add(ctx, a, b); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if res.prod, err = c.Multiply(ctx, a, b); err != nil {
		return fmt.Errorf("multiply: %w", err)
	}
	if res.quo, err = c.Divide(ctx, a, b); err != nil {
		return fmt.Errorf("divide: %w", err)
	}
	if res.fquo, err = c.DecimalDivide(ctx, a, b, opts.digits); err != nil {
		return fmt.Errorf("decimal divide: %w", err)
	}
	if opts.pi > 0 {
		if res.pi, err = c.EstimateConstant(ctx, opts.pi); err != nil {
			return fmt.Errorf("estimate pi: %w", err)
		}
	}
	return nil
}

func computeParallel(ctx context.Context, h *host.Host, opts options, a, b *big.Int, res *results) error {
	tasks := []host.Task{
		func(ctx context.Context, c *host.Client) (err error) {
			res.sum, err = c.Add(ctx, a, b)
			return wrap("add", err)
		},
		func(ctx context.Context, c *host.Client) (err error) {
			res.prod, err = c.Multiply(ctx, a, b)
			return wrap("multiply", err)
		},
		func(ctx context.Context, c *host.Client) (err error) {
			res.quo, err = c.Divide(ctx, a, b)
			return wrap("divide", err)
		},
		func(ctx context.Context, c *host.Client) (err error) {
			res.fquo, err = c.DecimalDivide(ctx, a, b, opts.digits)
			return wrap("decimal divide", err)
		},
	}
	if opts.pi > 0 {
		tasks = append(tasks, func(ctx context.Context, c *host.Client) (err error) {
			res.pi, err = c.EstimateConstant(ctx, opts.pi)
			return wrap("estimate pi", err)
		})
	}
	return h.Parallel(ctx, tasks...)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

var labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))

// styled reports whether w is a terminal that can take color.
func styled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printResults(w io.Writer, color bool, opts options, a, b *big.Int, res *results) {
	label := func(s string) string {
		if color {
			return labelStyle.Render(s)
		}
		return s
	}
	fmt.Fprintf(w, "%s : %s + %s = %s\n\n", label("iadd"), a, b, res.sum)
	fmt.Fprintf(w, "%s : %s * %s = %s\n\n", label("imul"), a, b, res.prod)
	fmt.Fprintf(w, "%s : %s / %s = %s\n\n", label("idiv"), a, b, res.quo)
	fmt.Fprintf(w, "%s : %s / %s = %s\n\n", label("fdiv"), a, b, res.fquo.Text('f', opts.digits))
	if res.pi != nil {
		fmt.Fprintf(w, "%s : %s\n\n", label("pi  "), res.pi.Text('f', opts.pi))
	}
}

func dumpMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
