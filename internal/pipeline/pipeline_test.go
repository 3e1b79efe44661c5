// file: internal/pipeline/pipeline_test.go

package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"credit-agent/internal/bureau"
	"credit-agent/internal/logger"
	"credit-agent/internal/policy"
)

// stubBureau returns canned results per endpoint and counts calls. The
// mutex guards the counters against the concurrent validation phase.
type stubBureau struct {
	mu    sync.Mutex
	calls map[string]int

	identity   bureau.CallResult
	bank       bureau.CallResult
	employment bureau.CallResult
	fraud      bureau.CallResult
	sanctions  bureau.CallResult
	fico       bureau.CallResult
	fintech    bureau.CallResult
	estimate   bureau.CallResult
	report     bureau.CallResult
}

// newStubBureau returns a stub describing a clean applicant with the given
// FICO score and estimator maximum.
func newStubBureau(ficoScore int, maxAmount float64) *stubBureau {
	return &stubBureau{
		calls:      make(map[string]int),
		identity:   bureau.Success(map[string]interface{}{"validado": true}, 200),
		bank:       bureau.Success(map[string]interface{}{"validado": true}, 200),
		employment: bureau.Success(map[string]interface{}{"validado": true}, 200),
		fraud:      bureau.Success(map[string]interface{}{"fraude_detectado": false}, 200),
		sanctions:  bureau.Success(map[string]interface{}{"en_lista": false}, 200),
		fico:       bureau.Success(map[string]interface{}{"score": float64(ficoScore)}, 200),
		fintech:    bureau.Success(map[string]interface{}{"score": float64(680)}, 200),
		estimate: bureau.Success(map[string]interface{}{
			"monto_maximo":      maxAmount,
			"tasa_sugerida":     "14.5%",
			"plazo_recomendado": float64(36),
		}, 200),
		report: bureau.Success(map[string]interface{}{
			"creditos": float64(3),
			"deudas":   float64(1),
			"dti":      0.35,
		}, 200),
	}
}

func (s *stubBureau) count(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[endpoint]++
}

func (s *stubBureau) VerifyIdentity(ctx context.Context, curp, rfc string) bureau.CallResult {
	s.count("identity")
	return s.identity
}

func (s *stubBureau) VerifyBankAccount(ctx context.Context, curp, account, bankCode string) bureau.CallResult {
	s.count("bank")
	return s.bank
}

func (s *stubBureau) VerifyEmployment(ctx context.Context, curp, firstName, lastName, state string) bureau.CallResult {
	s.count("employment")
	return s.employment
}

func (s *stubBureau) CheckFraud(ctx context.Context, curp, email string) bureau.CallResult {
	s.count("fraud")
	return s.fraud
}

func (s *stubBureau) CheckSanctions(ctx context.Context, firstName, lastName, curp string) bureau.CallResult {
	s.count("sanctions")
	return s.sanctions
}

func (s *stubBureau) GetFicoScore(ctx context.Context, curp string) bureau.CallResult {
	s.count("fico")
	return s.fico
}

func (s *stubBureau) GetFintechScore(ctx context.Context, curp string) bureau.CallResult {
	s.count("fintech")
	return s.fintech
}

func (s *stubBureau) EstimateLoanAmount(ctx context.Context, curp string, income float64, ficoScore int) bureau.CallResult {
	s.count("estimate")
	return s.estimate
}

func (s *stubBureau) GetConsolidatedReport(ctx context.Context, curp string) bureau.CallResult {
	s.count("report")
	return s.report
}

func testApplication() *CreditApplication {
	return &CreditApplication{
		CURP:            "XEXX010101HNEXXXA4",
		RFC:             "XAXX010101000",
		FullName:        "Juan Carlos Perez Lopez",
		BankAccount:     "012345678901234567",
		MonthlyIncome:   45000,
		RequestedAmount: 250000,
		TermMonths:      24,
		Email:           "juan@example.com",
	}
}

func testPipeline(api BureauAPI) *Pipeline {
	return New(api, policy.Default(), logger.NewNopLogger(), nil)
}

func TestEvaluateApproved(t *testing.T) {
	stub := newStubBureau(720, 400000)
	record, err := testPipeline(stub).Evaluate(context.Background(), testApplication())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if record.Status != VerdictApproved {
		t.Fatalf("Status = %s, want APPROVED", record.Status)
	}
	if record.CurrentPhase != "5/5" {
		t.Errorf("CurrentPhase = %s, want 5/5", record.CurrentPhase)
	}
	if len(record.Phases) != 5 {
		t.Fatalf("len(Phases) = %d, want 5", len(record.Phases))
	}
	for i, phase := range record.Phases {
		if phase.Phase != i+1 {
			t.Errorf("Phases[%d].Phase = %d, want %d", i, phase.Phase, i+1)
		}
		if phase.Status != PhaseContinue {
			t.Errorf("Phases[%d].Status = %s, want CONTINUE", i, phase.Status)
		}
	}

	decision := record.Phases[4].Decision
	if decision == nil || decision.Conditions == nil {
		t.Fatal("final decision conditions missing on approval")
	}
	if decision.Conditions.ApprovedAmount != 250000 {
		t.Errorf("ApprovedAmount = %v, want requested 250000", decision.Conditions.ApprovedAmount)
	}
	if decision.Conditions.TermMonths != 24 {
		t.Errorf("TermMonths = %d, want the requested 24 over the recommended 36", decision.Conditions.TermMonths)
	}
	if decision.Conditions.MonthlyPayment <= 0 {
		t.Error("MonthlyPayment not computed")
	}
	if !strings.HasPrefix(decision.ReportID, "REP-") {
		t.Errorf("ReportID = %s, want REP- prefix", decision.ReportID)
	}
	if !strings.HasPrefix(record.ApplicationID, "CRED-") {
		t.Errorf("ApplicationID = %s, want CRED- prefix", record.ApplicationID)
	}
	if record.Summary == "" || len(record.NextSteps) == 0 {
		t.Error("summary or next steps missing")
	}
}

func TestEvaluateCapsApprovedAmount(t *testing.T) {
	stub := newStubBureau(720, 180000)
	record, err := testPipeline(stub).Evaluate(context.Background(), testApplication())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if record.Status != VerdictApproved {
		t.Fatalf("Status = %s, want APPROVED", record.Status)
	}
	conditions := record.Phases[4].Decision.Conditions
	if conditions.ApprovedAmount != 180000 {
		t.Errorf("ApprovedAmount = %v, want estimator maximum 180000", conditions.ApprovedAmount)
	}
}

func TestEvaluateShortCircuitsOnValidationFailure(t *testing.T) {
	stub := newStubBureau(720, 400000)
	stub.employment = bureau.Failure("employment not found", 404)

	record, err := testPipeline(stub).Evaluate(context.Background(), testApplication())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if record.Status != VerdictRejected {
		t.Errorf("Status = %s, want REJECTED", record.Status)
	}
	if record.CurrentPhase != "1/5" {
		t.Errorf("CurrentPhase = %s, want 1/5", record.CurrentPhase)
	}
	if len(record.Phases) != 1 {
		t.Fatalf("len(Phases) = %d, want exactly 1", len(record.Phases))
	}
	if record.Phases[0].Status != PhaseRejected {
		t.Errorf("phase status = %s, want REJECTED", record.Phases[0].Status)
	}
	if record.Phases[0].Validation.EmploymentVerified {
		t.Error("EmploymentVerified = true for a failed check")
	}

	// No calls beyond phase 1.
	for _, endpoint := range []string{"fraud", "sanctions", "fico", "fintech", "estimate", "report"} {
		if stub.calls[endpoint] != 0 {
			t.Errorf("endpoint %s called %d times after terminal phase 1", endpoint, stub.calls[endpoint])
		}
	}
}

func TestEvaluateRejectsOnFraud(t *testing.T) {
	stub := newStubBureau(720, 400000)
	stub.fraud = bureau.Success(map[string]interface{}{"fraude_detectado": true}, 200)

	record, err := testPipeline(stub).Evaluate(context.Background(), testApplication())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if record.Status != VerdictRejected {
		t.Errorf("Status = %s, want REJECTED", record.Status)
	}
	if record.CurrentPhase != "2/5" {
		t.Errorf("CurrentPhase = %s, want 2/5", record.CurrentPhase)
	}
	if len(record.Phases) != 2 {
		t.Fatalf("len(Phases) = %d, want 2", len(record.Phases))
	}
	if !record.Phases[1].Compliance.FraudDetected {
		t.Error("FraudDetected = false")
	}
	if stub.calls["fico"] != 0 {
		t.Error("credit analysis ran after compliance rejection")
	}
}

func TestEvaluateScoreBoundaries(t *testing.T) {
	tests := []struct {
		name            string
		ficoScore       int
		requestedAmount float64
		wantStatus      Verdict
		wantPhase       string
		wantPhases      int
	}{
		{"approval floor", 700, 500000, VerdictApproved, "5/5", 5},
		{"one below approval", 699, 250000, VerdictManualReview, "5/5", 5},
		{"review floor", 650, 250000, VerdictManualReview, "5/5", 5},
		{"one below review", 649, 250000, VerdictRejected, "5/5", 5},
		{"gate floor", 550, 250000, VerdictRejected, "5/5", 5},
		{"one below gate", 549, 250000, VerdictRejected, "3/5", 3},
		{"high score over amount cap", 800, 600000, VerdictManualReview, "5/5", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStubBureau(tt.ficoScore, 1000000)
			app := testApplication()
			app.RequestedAmount = tt.requestedAmount

			record, err := testPipeline(stub).Evaluate(context.Background(), app)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if record.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", record.Status, tt.wantStatus)
			}
			if record.CurrentPhase != tt.wantPhase {
				t.Errorf("CurrentPhase = %s, want %s", record.CurrentPhase, tt.wantPhase)
			}
			if len(record.Phases) != tt.wantPhases {
				t.Errorf("len(Phases) = %d, want %d", len(record.Phases), tt.wantPhases)
			}
		})
	}
}

func TestEvaluateEstimatorFailureSoftFails(t *testing.T) {
	stub := newStubBureau(720, 0)
	stub.estimate = bureau.Failure("estimator timeout", 0)

	record, err := testPipeline(stub).Evaluate(context.Background(), testApplication())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if record.Status != VerdictApproved {
		t.Fatalf("Status = %s, want APPROVED despite estimator outage", record.Status)
	}
	if len(record.Phases) != 5 {
		t.Fatalf("len(Phases) = %d, want 5", len(record.Phases))
	}

	estimate := record.Phases[3].Amount
	if estimate.EstimatorAvailable {
		t.Error("EstimatorAvailable = true for a failed call")
	}
	if estimate.MaxAmount != 0 {
		t.Errorf("MaxAmount = %v, want 0", estimate.MaxAmount)
	}
	if estimate.SuggestedRate != "0%" {
		t.Errorf("SuggestedRate = %q, want 0%% default", estimate.SuggestedRate)
	}
	if estimate.RecommendedTermMonths != 12 {
		t.Errorf("RecommendedTermMonths = %d, want fallback 12", estimate.RecommendedTermMonths)
	}

	// The zero maximum still caps the approved amount: nothing is granted
	// without estimator corroboration.
	conditions := record.Phases[4].Decision.Conditions
	if conditions.ApprovedAmount != 0 {
		t.Errorf("ApprovedAmount = %v, want min(250000, 0) = 0", conditions.ApprovedAmount)
	}
	if conditions.InterestRate != "0%" {
		t.Errorf("InterestRate = %q, want 0%%", conditions.InterestRate)
	}
	if conditions.TermMonths != 24 {
		t.Errorf("TermMonths = %d, want the requested 24", conditions.TermMonths)
	}
	if conditions.MonthlyPayment != 0 {
		t.Errorf("MonthlyPayment = %v, want 0 for a zero amount", conditions.MonthlyPayment)
	}
}

func TestEvaluateCarriesSignatureWarnings(t *testing.T) {
	stub := newStubBureau(720, 400000)
	stub.fico = bureau.Unverified(map[string]interface{}{"score": float64(720)}, 200,
		"response signature did not verify")

	record, err := testPipeline(stub).Evaluate(context.Background(), testApplication())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if record.Status != VerdictApproved {
		t.Errorf("Status = %s, unverified data must not change the verdict", record.Status)
	}
	if len(record.Phases[2].Warnings) != 1 {
		t.Errorf("credit analysis warnings = %v, want one entry", record.Phases[2].Warnings)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		stub := newStubBureau(660, 400000)
		record, err := testPipeline(stub).Evaluate(context.Background(), testApplication())
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if record.Status != VerdictManualReview {
			t.Fatalf("run %d: Status = %s, want MANUAL_REVIEW every run", i, record.Status)
		}
	}
}

func TestEvaluateInputValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*CreditApplication)
		wantField string
	}{
		{"missing curp", func(a *CreditApplication) { a.CURP = "" }, "curp"},
		{"missing rfc", func(a *CreditApplication) { a.RFC = "" }, "rfc"},
		{"missing name", func(a *CreditApplication) { a.FullName = "" }, "fullName"},
		{"missing account", func(a *CreditApplication) { a.BankAccount = "" }, "bankAccount"},
		{"zero income", func(a *CreditApplication) { a.MonthlyIncome = 0 }, "monthlyIncome"},
		{"negative amount", func(a *CreditApplication) { a.RequestedAmount = -1 }, "requestedAmount"},
		{"zero term", func(a *CreditApplication) { a.TermMonths = 0 }, "termMonths"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testApplication()
			tt.mutate(app)

			stub := newStubBureau(720, 400000)
			_, err := testPipeline(stub).Evaluate(context.Background(), app)

			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("Evaluate() error = %v, want *InputError", err)
			}
			if inputErr.Field != tt.wantField {
				t.Errorf("Field = %s, want %s", inputErr.Field, tt.wantField)
			}
			if len(stub.calls) != 0 {
				t.Error("bureau called despite invalid input")
			}
		})
	}
}

func TestApplicationDefaults(t *testing.T) {
	app := testApplication()
	if app.bankCode() != "012" {
		t.Errorf("bankCode() = %s, want default 012", app.bankCode())
	}
	if app.state() != "CDMX" {
		t.Errorf("state() = %s, want default CDMX", app.state())
	}

	first, last := app.names()
	if first != "Juan" || last != "Lopez" {
		t.Errorf("names() = %s/%s, want Juan/Lopez", first, last)
	}

	app.FullName = "Madonna"
	first, last = app.names()
	if first != "Madonna" || last != "" {
		t.Errorf("names() = %s/%s for single name", first, last)
	}
}
