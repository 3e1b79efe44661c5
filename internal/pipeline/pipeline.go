// file: internal/pipeline/pipeline.go

// Package pipeline implements the five-phase credit evaluation state
// machine: validation, compliance, credit analysis, amount calculation and
// final decision. Phases run in fixed order; a rejection in phases 1-3
// terminates the run and later phases never execute. Bureau call failures
// flow through as data, never as errors.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"credit-agent/internal/bureau"
	"credit-agent/internal/logger"
	"credit-agent/internal/metrics"
	"credit-agent/internal/policy"
)

// BureauAPI is the slice of the bureau client the pipeline consumes.
type BureauAPI interface {
	VerifyIdentity(ctx context.Context, curp, rfc string) bureau.CallResult
	VerifyBankAccount(ctx context.Context, curp, account, bankCode string) bureau.CallResult
	VerifyEmployment(ctx context.Context, curp, firstName, lastName, state string) bureau.CallResult
	CheckFraud(ctx context.Context, curp, email string) bureau.CallResult
	CheckSanctions(ctx context.Context, firstName, lastName, curp string) bureau.CallResult
	GetFicoScore(ctx context.Context, curp string) bureau.CallResult
	GetFintechScore(ctx context.Context, curp string) bureau.CallResult
	EstimateLoanAmount(ctx context.Context, curp string, income float64, ficoScore int) bureau.CallResult
	GetConsolidatedReport(ctx context.Context, curp string) bureau.CallResult
}

// Pipeline evaluates credit applications against a fixed policy.
type Pipeline struct {
	api     BureauAPI
	policy  *policy.Policy
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// New creates a pipeline. The metrics handle may be nil.
func New(api BureauAPI, pol *policy.Policy, log *logger.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		api:     api,
		policy:  pol,
		logger:  log,
		metrics: m,
	}
}

// Evaluate runs the full pipeline for one application. The only error it
// returns is input validation; every downstream condition, including bureau
// outages, is expressed in the returned record.
func (p *Pipeline) Evaluate(ctx context.Context, app *CreditApplication) (*EvaluationRecord, error) {
	if err := app.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	applicationID := NewApplicationID()
	p.logger.Info("starting evaluation",
		"applicationId", applicationID,
		"curp", app.CURP,
		"requestedAmount", app.RequestedAmount)

	var phases []PhaseResult

	validation := p.runValidation(ctx, app)
	phases = append(phases, validation)
	p.recordPhase(validation)
	if validation.Status == PhaseRejected {
		return p.finish(applicationID, phases, nil, start), nil
	}

	compliance := p.runCompliance(ctx, app)
	phases = append(phases, compliance)
	p.recordPhase(compliance)
	if compliance.Status == PhaseRejected {
		return p.finish(applicationID, phases, nil, start), nil
	}

	credit := p.runCreditAnalysis(ctx, app)
	phases = append(phases, credit)
	p.recordPhase(credit)
	if credit.Status == PhaseRejected {
		return p.finish(applicationID, phases, credit.Credit, start), nil
	}

	amount := p.runAmountCalculation(ctx, app, credit.Credit)
	phases = append(phases, amount)
	p.recordPhase(amount)

	decision := p.runFinalDecision(ctx, app, credit.Credit, amount.Amount)
	phases = append(phases, decision)
	p.recordPhase(decision)

	return p.finish(applicationID, phases, credit.Credit, start), nil
}

// runValidation is phase 1: identity, bank account and employment checks,
// issued concurrently. All three must succeed.
func (p *Pipeline) runValidation(ctx context.Context, app *CreditApplication) PhaseResult {
	firstName, lastName := app.names()

	var identity, bank, employment bureau.CallResult
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		identity = p.api.VerifyIdentity(ctx, app.CURP, app.RFC)
	}()
	go func() {
		defer wg.Done()
		bank = p.api.VerifyBankAccount(ctx, app.CURP, app.BankAccount, app.bankCode())
	}()
	go func() {
		defer wg.Done()
		employment = p.api.VerifyEmployment(ctx, app.CURP, firstName, lastName, app.state())
	}()
	wg.Wait()

	result := &ValidationResult{
		IdentityVerified:    identity.OK(),
		BankAccountVerified: bank.OK(),
		EmploymentVerified:  employment.OK(),
	}

	status := PhaseContinue
	if !result.IdentityVerified || !result.BankAccountVerified || !result.EmploymentVerified {
		status = PhaseRejected
		p.logger.Info("validation phase rejected application",
			"identity", result.IdentityVerified,
			"bankAccount", result.BankAccountVerified,
			"employment", result.EmploymentVerified)
	}

	return PhaseResult{
		Phase:      1,
		Name:       PhaseValidation,
		Status:     status,
		Warnings:   collectWarnings(identity, bank, employment),
		Validation: result,
	}
}

// runCompliance is phase 2: fraud detection and sanctions screening. A
// detected fraud, a sanctions hit, or a failed call rejects the application.
func (p *Pipeline) runCompliance(ctx context.Context, app *CreditApplication) PhaseResult {
	firstName, lastName := app.names()

	fraud := p.api.CheckFraud(ctx, app.CURP, app.Email)
	sanctions := p.api.CheckSanctions(ctx, firstName, lastName, app.CURP)

	result := &ComplianceResult{
		FraudDetected:   fraud.Bool("fraude_detectado"),
		SanctionsListed: sanctions.Bool("en_lista"),
	}

	status := PhaseContinue
	if !fraud.OK() || !sanctions.OK() || result.FraudDetected || result.SanctionsListed {
		status = PhaseRejected
		p.logger.Info("compliance phase rejected application",
			"fraudDetected", result.FraudDetected,
			"sanctionsListed", result.SanctionsListed)
	}

	return PhaseResult{
		Phase:      2,
		Name:       PhaseCompliance,
		Status:     status,
		Warnings:   collectWarnings(fraud, sanctions),
		Compliance: result,
	}
}

// runCreditAnalysis is phase 3: FICO and fintech scores plus the
// consolidated report. A failed FICO call yields score zero, which falls
// below the minimum gate and rejects the application.
func (p *Pipeline) runCreditAnalysis(ctx context.Context, app *CreditApplication) PhaseResult {
	fico := p.api.GetFicoScore(ctx, app.CURP)
	fintech := p.api.GetFintechScore(ctx, app.CURP)
	report := p.api.GetConsolidatedReport(ctx, app.CURP)

	analysis := &CreditAnalysis{
		FicoScore:      fico.Int("score"),
		FintechScore:   fintech.Int("score"),
		CreditAccounts: report.Int("creditos"),
		ActiveDebts:    report.Int("deudas"),
		DebtToIncome:   report.Float("dti"),
	}
	analysis.RiskCategory = ClassifyRisk(analysis.FicoScore, p.policy)

	status := PhaseContinue
	if analysis.FicoScore < p.policy.Decision.MinScore {
		status = PhaseRejected
		p.logger.Info("credit analysis rejected application",
			"ficoScore", analysis.FicoScore,
			"minScore", p.policy.Decision.MinScore,
			"riskCategory", analysis.RiskCategory)
	}

	return PhaseResult{
		Phase:    3,
		Name:     PhaseCreditAnalysis,
		Status:   status,
		Warnings: collectWarnings(fico, fintech, report),
		Credit:   analysis,
	}
}

// runAmountCalculation is phase 4: the loan estimator. The phase never
// rejects; an unavailable estimator degrades to a zero amount with the
// policy fallback term, and the final decision proceeds on the score alone.
func (p *Pipeline) runAmountCalculation(ctx context.Context, app *CreditApplication, credit *CreditAnalysis) PhaseResult {
	est := p.api.EstimateLoanAmount(ctx, app.CURP, app.MonthlyIncome, credit.FicoScore)

	estimate := &AmountEstimate{
		MaxAmount:             est.Float("monto_maximo"),
		SuggestedRate:         est.String("tasa_sugerida"),
		RecommendedTermMonths: est.Int("plazo_recomendado"),
		EstimatorAvailable:    est.OK(),
	}
	if !est.OK() {
		estimate.MaxAmount = 0
		estimate.SuggestedRate = "0%"
		estimate.RecommendedTermMonths = p.policy.FallbackTermMonths
		p.logger.Warn("loan estimator unavailable, degrading to zero estimate",
			"reason", est.Reason,
			"fallbackTermMonths", p.policy.FallbackTermMonths)
	}

	return PhaseResult{
		Phase:    4,
		Name:     PhaseAmount,
		Status:   PhaseContinue,
		Warnings: collectWarnings(est),
		Amount:   estimate,
	}
}

// runFinalDecision is phase 5: a second consolidated report pull and the
// verdict. The phase itself always continues; the verdict lives in the
// record status.
func (p *Pipeline) runFinalDecision(ctx context.Context, app *CreditApplication, credit *CreditAnalysis, estimate *AmountEstimate) PhaseResult {
	report := p.api.GetConsolidatedReport(ctx, app.CURP)

	decision := &FinalDecision{
		ReportID: NewReportID(),
		Verdict:  p.verdict(credit.FicoScore, app.RequestedAmount),
	}
	if decision.Verdict == VerdictApproved {
		decision.Conditions = p.loanConditions(app, estimate)
	}

	return PhaseResult{
		Phase:    5,
		Name:     PhaseFinalDecision,
		Status:   PhaseContinue,
		Warnings: collectWarnings(report),
		Decision: decision,
	}
}

// verdict applies the decision thresholds. Approval requires both the score
// and the requested amount to qualify; an amount above the auto-approve cap
// routes to manual review regardless of score.
func (p *Pipeline) verdict(ficoScore int, requestedAmount float64) Verdict {
	d := p.policy.Decision
	switch {
	case ficoScore >= d.ApprovalScore && requestedAmount <= d.MaxAutoApproveAmount:
		return VerdictApproved
	case ficoScore >= d.ManualReviewScore || requestedAmount > d.MaxAutoApproveAmount:
		return VerdictManualReview
	default:
		return VerdictRejected
	}
}

// loanConditions derives the terms of an approved loan. The approved amount
// is min(requested, phase-4 maximum) unconditionally: a failed estimator
// reported a zero maximum, so the cap still applies and nothing is granted
// without corroboration. The term stays the applicant's requested term.
func (p *Pipeline) loanConditions(app *CreditApplication, estimate *AmountEstimate) *LoanConditions {
	amount := app.RequestedAmount
	rate := ""
	if estimate != nil {
		if estimate.MaxAmount < amount {
			amount = estimate.MaxAmount
		}
		rate = estimate.SuggestedRate
	}

	return &LoanConditions{
		ApprovedAmount: amount,
		InterestRate:   rate,
		TermMonths:     app.TermMonths,
		MonthlyPayment: MonthlyPayment(amount, rate, app.TermMonths),
	}
}

// finish assembles the record, reporting the last executed phase as "n/5".
func (p *Pipeline) finish(applicationID string, phases []PhaseResult, credit *CreditAnalysis, start time.Time) *EvaluationRecord {
	status := VerdictRejected
	last := phases[len(phases)-1]
	if last.Decision != nil {
		status = last.Decision.Verdict
	}

	record := &EvaluationRecord{
		ApplicationID: applicationID,
		Status:        status,
		CurrentPhase:  fmt.Sprintf("%d/%d", last.Phase, totalPhases),
		Phases:        phases,
		CreatedAt:     time.Now().UTC(),
	}
	record.Summary, record.NextSteps = buildNarrative(record, credit)

	if p.metrics != nil {
		p.metrics.IncEvaluationsTotal(string(status))
		p.metrics.ObserveEvaluationDuration(time.Since(start).Seconds())
	}
	p.logger.Info("evaluation finished",
		"applicationId", applicationID,
		"status", status,
		"currentPhase", record.CurrentPhase,
		"duration", time.Since(start).String())

	return record
}

func (p *Pipeline) recordPhase(result PhaseResult) {
	if p.metrics != nil {
		p.metrics.IncEvaluationPhase(result.Name, string(result.Status))
	}
	for _, w := range result.Warnings {
		p.logger.Warn("unverified bureau response", "phase", result.Name, "warning", w)
	}
}

// collectWarnings gathers signature warnings from a set of call results.
func collectWarnings(results ...bureau.CallResult) []string {
	var warnings []string
	for _, r := range results {
		if r.Outcome == bureau.OutcomeUnverified && r.Warning != "" {
			warnings = append(warnings, r.Warning)
		}
	}
	return warnings
}
