package main

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/loanledger/internal/adapter/http/dto"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	importFileField      = "file"
)

func loansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "Loan operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <loan-id>",
		Short: "Show a loan with its schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint(cmd, "/api/v1/loans/"+url.PathEscape(args[0]))
		},
	})

	var asOf string
	penalties := &cobra.Command{
		Use:   "penalties <loan-id>",
		Short: "Show the amount due including penalties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/loans/" + url.PathEscape(args[0]) + "/penalties"
			if asOf != "" {
				path += "?as_of=" + url.QueryEscape(asOf)
			}
			return getAndPrint(cmd, path)
		},
	}
	penalties.Flags().StringVar(&asOf, "as-of", "", "Evaluation date (YYYY-MM-DD)")
	cmd.AddCommand(penalties)

	var evalAsOf string
	evaluate := &cobra.Command{
		Use:   "evaluate <loan-id>",
		Short: "Mark overdue installments and apply the default rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dto.EvaluateRequest{}
			if evalAsOf != "" {
				d, err := dto.ParseDate(evalAsOf)
				if err != nil {
					return err
				}
				req.AsOf = d
			}
			body, err := newClient().postJSON("/api/v1/loans/"+url.PathEscape(args[0])+"/evaluate", req, nil)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), body)
			return nil
		},
	}
	evaluate.Flags().StringVar(&evalAsOf, "as-of", "", "Evaluation date (YYYY-MM-DD)")
	cmd.AddCommand(evaluate)

	return cmd
}

func repaymentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repayments",
		Short: "Repayment operations",
	}

	var amount, paymentDate, key, method string
	apply := &cobra.Command{
		Use:   "apply <loan-id>",
		Short: "Apply a repayment to a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := applyRequest(amount, paymentDate, method)
			if err != nil {
				return err
			}
			body, err := newClient().postJSON(
				"/api/v1/loans/"+url.PathEscape(args[0])+"/repayments",
				req,
				map[string]string{idempotencyKeyHeader: key},
			)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), body)
			return nil
		},
	}
	apply.Flags().StringVar(&amount, "amount", "", "Repayment amount")
	apply.Flags().StringVar(&paymentDate, "date", "", "Payment date (YYYY-MM-DD), defaults to today")
	apply.Flags().StringVar(&key, "key", "", "Idempotency key")
	apply.Flags().StringVar(&method, "method", "", "Payment method")
	_ = apply.MarkFlagRequired("amount")
	_ = apply.MarkFlagRequired("key")
	cmd.AddCommand(apply)

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import repayments from a CSV or XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := newClient().upload("/api/v1/repayments/import", importFileField, args[0])
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), body)
			return nil
		},
	}
	cmd.AddCommand(importCmd)

	return cmd
}

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint(cmd, "/api/v1/ledger/consistency")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reconcile [loan-id]",
		Short: "Reconcile one loan, or report on all loans",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return getAndPrint(cmd, "/api/v1/loans/"+url.PathEscape(args[0])+"/reconcile")
			}
			return getAndPrint(cmd, "/api/v1/reconciliation")
		},
	})

	return cmd
}

func applyRequest(amount, paymentDate, method string) (dto.ApplyRepaymentRequest, error) {
	req := dto.ApplyRepaymentRequest{Method: method}

	var err error
	if req.Amount, err = parseAmount(amount); err != nil {
		return req, err
	}
	if paymentDate != "" {
		if req.PaymentDate, err = dto.ParseDate(paymentDate); err != nil {
			return req, err
		}
	}
	return req, nil
}

// getAndPrint prints the body of failed requests too, then returns the error.
func getAndPrint(cmd *cobra.Command, path string) error {
	body, err := newClient().get(path)
	if len(body) > 0 {
		printJSON(cmd.OutOrStdout(), body)
	}
	return err
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive, got %s", s)
	}
	return amount, nil
}
