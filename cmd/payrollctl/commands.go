package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/lock"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
	"github.com/cmlabs-hris/shift-payroll-go/internal/repository/memory"
	advanceService "github.com/cmlabs-hris/shift-payroll-go/internal/service/advance"
	attendanceService "github.com/cmlabs-hris/shift-payroll-go/internal/service/attendance"
	payrollService "github.com/cmlabs-hris/shift-payroll-go/internal/service/payroll"
	statutoryService "github.com/cmlabs-hris/shift-payroll-go/internal/service/statutory"
)

type options struct {
	fixture     string
	output      string
	concurrency int
	verbose     bool
}

// engine is the service stack over a fixture-seeded store.
type engine struct {
	payroll payroll.PayrollService
	advance advance.Service
}

func (o *options) load() (*engine, error) {
	if o.fixture == "" {
		return nil, fmt.Errorf("--fixture is required")
	}
	store, err := memory.LoadFixtureFile(o.fixture)
	if err != nil {
		return nil, err
	}

	locker := lock.NewLocalLocker()
	ledger := advanceService.NewLedger(store, locker, store.Loans(), store.Skips(), store.Records())
	calculator := payrollService.NewCalculator(
		store.Employees(),
		attendanceService.NewAggregator(store.Attendance(), store.Codes()),
		statutoryService.NewResolver(store.Statutory()),
		ledger,
	)
	recordStore := payrollService.NewRecordStore(store, locker, store.Records(), calculator, ledger)
	deductions := payrollService.NewDeductionEngine(store, locker, store.Records(), store.DeductionTypes(), ledger)
	batch := payrollService.NewBatchRunner(store.Employees(), calculator, o.concurrency)

	return &engine{
		payroll: payrollService.NewPayrollService(calculator, batch, recordStore, deductions, store.Records(), store.DeductionTypes()),
		advance: ledger,
	}, nil
}

// render writes v as yaml or json. Values go through their JSON form first so both
// formats share field names and decimal rendering.
func (o *options) render(w io.Writer, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	switch o.output {
	case "json":
		var out interface{}
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml", "":
		var out interface{}
		if err := yaml.Unmarshal(raw, &out); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(out)
	default:
		return fmt.Errorf("unsupported output format %q", o.output)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "payrollctl",
		Short:         "Shift payroll calculator",
		Long:          "Computes shift-based salaries and advance deductions from a YAML fixture",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().StringVarP(&opts.fixture, "fixture", "f", "", "YAML fixture with employees, attendance, rules and advances")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "yaml", "output format: yaml or json")
	root.PersistentFlags().IntVar(&opts.concurrency, "concurrency", 4, "employees computed in parallel")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		previewCmd(opts),
		batchCmd(opts),
		runCmd(opts),
		overdueCmd(opts),
		versionCmd(),
	)
	return root
}

func previewCmd(opts *options) *cobra.Command {
	var employeeID, p string
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Compute one employee's salary for a period without saving",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load()
			if err != nil {
				return err
			}
			b, err := e.payroll.ComputeSalary(cmd.Context(), employeeID, p)
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), b)
		},
	}
	cmd.Flags().StringVar(&employeeID, "employee", "", "employee ID")
	cmd.Flags().StringVar(&p, "period", "", "period as YYYY-MM")
	_ = cmd.MarkFlagRequired("employee")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}

func batchCmd(opts *options) *cobra.Command {
	var p string
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Compute every active employee for a period without saving",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load()
			if err != nil {
				return err
			}
			result, err := e.payroll.RunBatch(cmd.Context(), p)
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&p, "period", "", "period as YYYY-MM")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}

type runOutput struct {
	Run       payroll.RunAndSaveResult      `json:"run"`
	Disbursed *payroll.DisburseBulkResult   `json:"disbursed,omitempty"`
	Summary   payroll.PeriodSummaryResponse `json:"summary"`
	Advances  []advance.LoanResponse        `json:"advances,omitempty"`
}

func runCmd(opts *options) *cobra.Command {
	var (
		p        string
		disburse bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute and save a period, then print the period summary",
		Long:  "Compute and save a period against the fixture. Nothing is written back to the fixture file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := period.Parse(p)
			if err != nil {
				return err
			}
			e, err := opts.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			result, err := e.payroll.RunAndSave(ctx, p)
			if err != nil {
				return err
			}
			out := runOutput{Run: result}

			if disburse && len(result.Save.Saved) > 0 {
				d, err := e.payroll.DisburseBulk(ctx, payroll.DisburseBulkRequest{RecordIDs: result.Save.Saved, Period: &p})
				if err != nil {
					return err
				}
				out.Disbursed = &d
			}

			out.Summary, err = e.payroll.GetPeriodSummary(ctx, p)
			if err != nil {
				return err
			}

			for _, b := range result.Batch.Succeeded {
				if b.AdvanceLoanID == nil {
					continue
				}
				loan, err := e.advance.GetLoanDetail(ctx, *b.AdvanceLoanID, parsed)
				if err != nil {
					return err
				}
				out.Advances = append(out.Advances, loan)
			}
			return opts.render(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&p, "period", "", "period as YYYY-MM")
	cmd.Flags().BoolVar(&disburse, "disburse", false, "disburse the saved records")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}

func overdueCmd(opts *options) *cobra.Command {
	var p string
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List advances past their expected completion period",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load()
			if err != nil {
				return err
			}
			if p == "" {
				p = period.Of(time.Now()).String()
			}
			loans, err := e.advance.ListOverdueLoans(cmd.Context(), p)
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), loans)
		},
	}
	cmd.Flags().StringVar(&p, "period", "", "current period as YYYY-MM, defaults to this month")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "payrollctl %s (commit %s)\n", version, commit)
		},
	}
}
