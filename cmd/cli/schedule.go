package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/catalog"
	"github.com/iho/loanledger/internal/usecase"
)

type scheduleOptions struct {
	catalogPath  string
	product      string
	principal    string
	rate         string
	method       string
	term         int
	cycle        string
	graceDays    int
	disbursement string
	scale        int32
	output       string
}

// scheduleCmd previews a repayment schedule locally without calling the API.
func scheduleCmd() *cobra.Command {
	opts := &scheduleOptions{}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Preview a repayment schedule offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "Product catalog TOML file")
	cmd.Flags().StringVar(&opts.product, "product", "", "Product code whose terms are used as defaults")
	cmd.Flags().StringVar(&opts.principal, "principal", "", "Principal amount")
	cmd.Flags().StringVar(&opts.rate, "rate", "", "Nominal annual rate as a fraction, e.g. 0.12")
	cmd.Flags().StringVar(&opts.method, "method", "", "Interest method")
	cmd.Flags().IntVar(&opts.term, "term", 0, "Number of repayment cycles")
	cmd.Flags().StringVar(&opts.cycle, "cycle", "", "Repayment cycle")
	cmd.Flags().IntVar(&opts.graceDays, "grace-days", 0, "Grace days before an installment is overdue")
	cmd.Flags().StringVar(&opts.disbursement, "disbursement", "", "Disbursement date (YYYY-MM-DD), defaults to today")
	cmd.Flags().Int32Var(&opts.scale, "scale", domain.DefaultScale, "Fractional digits of money amounts")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format: table or json")
	_ = cmd.MarkFlagRequired("principal")

	return cmd
}

func runSchedule(w io.Writer, opts *scheduleOptions) error {
	terms, err := opts.terms()
	if err != nil {
		return err
	}

	disbursement := time.Now().UTC()
	if opts.disbursement != "" {
		d, err := dto.ParseDate(opts.disbursement)
		if err != nil {
			return err
		}
		disbursement = d.Time
	}

	products := catalog.Empty()
	if opts.catalogPath != "" {
		products, err = catalog.Load(opts.catalogPath)
		if err != nil {
			return err
		}
	}

	loanUC := usecase.NewLoanUseCase(nil, nil, nil, nil, nil, nil, usecase.LoanUseCaseConfig{Catalog: products})
	installments, err := loanUC.PreviewSchedule(opts.product, terms, disbursement)
	if err != nil {
		return err
	}

	schedule := dto.ScheduleFromDomain(installments)
	switch opts.output {
	case "json":
		body, err := json.Marshal(schedule)
		if err != nil {
			return err
		}
		printJSON(w, body)
		return nil
	case "table":
		return printSchedule(w, schedule)
	default:
		return fmt.Errorf("unknown output format %q", opts.output)
	}
}

func (o *scheduleOptions) terms() (domain.LoanTerms, error) {
	principal, err := decimal.NewFromString(o.principal)
	if err != nil {
		return domain.LoanTerms{}, fmt.Errorf("invalid principal %q", o.principal)
	}

	terms := domain.LoanTerms{
		Principal:      principal,
		InterestMethod: domain.InterestMethod(o.method),
		Term:           o.term,
		Cycle:          domain.Cycle(o.cycle),
		GraceDays:      o.graceDays,
		Scale:          o.scale,
	}
	if o.rate != "" {
		terms.AnnualRate, err = decimal.NewFromString(o.rate)
		if err != nil {
			return domain.LoanTerms{}, fmt.Errorf("invalid rate %q", o.rate)
		}
	}
	return terms, nil
}

func printSchedule(w io.Writer, schedule *dto.ScheduleResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tDue date\tPrincipal\tInterest\tTotal\t")
	for _, inst := range schedule.Installments {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n",
			inst.Sequence, inst.DueDate, inst.PrincipalDue, inst.InterestDue, inst.TotalDue)
	}
	fmt.Fprintf(tw, "\tTotal\t%s\t%s\t%s\t\n",
		schedule.TotalPrincipal, schedule.TotalInterest, schedule.TotalRepayable)
	return tw.Flush()
}
