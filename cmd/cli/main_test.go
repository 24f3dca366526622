package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/adapter/http/dto"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestScheduleJSON(t *testing.T) {
	out, err := execute(t, "schedule",
		"--principal", "1200", "--rate", "0.12", "--method", "flat",
		"--term", "12", "--cycle", "monthly", "--disbursement", "2026-01-15", "-o", "json")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	var schedule dto.ScheduleResponse
	if err := json.Unmarshal([]byte(out), &schedule); err != nil {
		t.Fatalf("invalid json output: %v\n%s", err, out)
	}
	if len(schedule.Installments) != 12 {
		t.Fatalf("expected 12 installments, got %d", len(schedule.Installments))
	}
	if !schedule.TotalInterest.Equal(decimal.NewFromInt(144)) {
		t.Fatalf("expected total interest 144, got %s", schedule.TotalInterest)
	}
	if !schedule.TotalRepayable.Equal(decimal.NewFromInt(1344)) {
		t.Fatalf("expected total repayable 1344, got %s", schedule.TotalRepayable)
	}
}

func TestScheduleTable(t *testing.T) {
	out, err := execute(t, "schedule",
		"--principal", "300", "--rate", "0.12", "--method", "flat",
		"--term", "3", "--cycle", "monthly", "--disbursement", "2026-01-15")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header, three installments and a total line, got:\n%s", out)
	}
	if !strings.Contains(lines[4], "Total") {
		t.Fatalf("expected total line, got %q", lines[4])
	}
}

func TestScheduleUsesProductTerms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.toml")
	catalog := `
[products.micro-weekly]
annual_rate = "0.30"
interest_method = "flat"
term = 8
cycle = "weekly"
currency = "USD"
`
	if err := os.WriteFile(path, []byte(catalog), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	out, err := execute(t, "schedule", "--catalog", path, "--product", "micro-weekly",
		"--principal", "800", "--disbursement", "2026-01-15", "-o", "json")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	var schedule dto.ScheduleResponse
	if err := json.Unmarshal([]byte(out), &schedule); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if len(schedule.Installments) != 8 {
		t.Fatalf("expected 8 installments from the product, got %d", len(schedule.Installments))
	}
}

func TestScheduleErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"bad principal", []string{"--principal", "abc", "--rate", "0.1", "--method", "flat", "--term", "2", "--cycle", "monthly"}},
		{"bad rate", []string{"--principal", "100", "--rate", "x", "--method", "flat", "--term", "2", "--cycle", "monthly"}},
		{"unknown product", []string{"--principal", "100", "--product", "nope"}},
		{"zero term", []string{"--principal", "100", "--rate", "0.1", "--method", "flat", "--cycle", "monthly"}},
		{"bad output", []string{"--principal", "100", "--rate", "0.1", "--method", "flat", "--term", "2", "--cycle", "monthly", "-o", "xml"}},
		{"missing principal", []string{"--rate", "0.1"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := execute(t, append([]string{"schedule"}, tc.args...)...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoansGetSendsActor(t *testing.T) {
	var gotPath, gotActor string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotActor = r.Header.Get(actorHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"loan-1"}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "--actor", "ops@example.com", "loans", "get", "loan-1")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if gotPath != "/api/v1/loans/loan-1" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotActor != "ops@example.com" {
		t.Fatalf("expected actor header, got %q", gotActor)
	}
	if out != "{\n  \"id\": \"loan-1\"\n}\n" {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestLoansPenaltiesPassesAsOf(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("as_of")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if _, err := execute(t, "--url", srv.URL, "loans", "penalties", "loan-1", "--as-of", "2026-04-01"); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if gotQuery != "2026-04-01" {
		t.Fatalf("expected as_of query, got %q", gotQuery)
	}
}

func TestRepaymentsApply(t *testing.T) {
	var gotKey string
	var got dto.ApplyRepaymentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/loans/loan-1/repayments" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get(idempotencyKeyHeader)
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"repayment":{"id":"r-1"}}`))
	}))
	defer srv.Close()

	_, err := execute(t, "--url", srv.URL, "repayments", "apply", "loan-1",
		"--amount", "150.50", "--date", "2026-02-01", "--key", "pay-1")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if gotKey != "pay-1" {
		t.Fatalf("expected idempotency key header, got %q", gotKey)
	}
	if !got.Amount.Equal(decimal.RequireFromString("150.50")) {
		t.Fatalf("unexpected amount %s", got.Amount)
	}
	if got.PaymentDate.Format("2006-01-02") != "2026-02-01" {
		t.Fatalf("unexpected payment date %v", got.PaymentDate)
	}
}

func TestRepaymentsApplyRejectsBadAmount(t *testing.T) {
	if _, err := execute(t, "repayments", "apply", "loan-1", "--amount=-5", "--key", "k"); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestRepaymentsImportUploadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repayments.csv")
	content := "loan_id,amount,payment_date\nloan-1,100,2026-02-01\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	var gotName, gotContent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile(importFileField)
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName = header.Filename
		gotContent = string(data)
		_, _ = w.Write([]byte(`{"applied":1,"duplicate":0,"failed":0,"rows":[]}`))
	}))
	defer srv.Close()

	if _, err := execute(t, "--url", srv.URL, "repayments", "import", path); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if gotName != "repayments.csv" {
		t.Fatalf("unexpected filename %q", gotName)
	}
	if gotContent != content {
		t.Fatalf("unexpected content %q", gotContent)
	}
}

func TestLedgerConsistencyFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"consistent":false,"message":"ledger mismatch"}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "ledger", "consistency")
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("expected 409 api error, got %v", err)
	}
	if !strings.Contains(out, "ledger mismatch") {
		t.Fatalf("expected response body in output, got %q", out)
	}
}

func TestLedgerReconcileRoutes(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if _, err := execute(t, "--url", srv.URL, "ledger", "reconcile"); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if _, err := execute(t, "--url", srv.URL, "ledger", "reconcile", "loan-1"); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/api/v1/reconciliation" || paths[1] != "/api/v1/loans/loan-1/reconcile" {
		t.Fatalf("unexpected paths %v", paths)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	printJSON(&buf, []byte(`{"a":1}`))
	if buf.String() != "{\n  \"a\": 1\n}\n" {
		t.Fatalf("unexpected json output:\n%s", buf.String())
	}

	buf.Reset()
	printJSON(&buf, []byte("plain text"))
	if buf.String() != "plain text\n" {
		t.Fatalf("expected raw body, got %q", buf.String())
	}
}
