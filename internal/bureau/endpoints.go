// file: internal/bureau/endpoints.go

package bureau

import (
	"context"
	"net/http"
)

// Bureau endpoint paths (sandbox v3 API).
const (
	EndpointIdentityVerification = "/sandbox/v3/identitydata/verification"
	EndpointBankVerification     = "/sandbox/v3/bavs/accounts/verification"
	EndpointEmploymentVerify     = "/sandbox/v3/eva/employmentverifications/withPrivacyNotice"
	EndpointFraudCheck           = "/sandbox/v3/guardian/express"
	EndpointSanctionsCheck       = "/sandbox/v3/pld/persons"
	EndpointFicoScore            = "/sandbox/v3/scores/fico/extended"
	EndpointFintechScore         = "/sandbox/v3/scores/fintech"
	EndpointLoanEstimator        = "/sandbox/v3/loanestimator/montoestimado"
	EndpointConsolidatedReport   = "/sandbox/v3/rcc/consolidated/fico-pld"
)

// VerifyIdentity validates the applicant's personal data.
func (c *Client) VerifyIdentity(ctx context.Context, curp, rfc string) CallResult {
	return c.Send(ctx, http.MethodPost, EndpointIdentityVerification, map[string]interface{}{
		"curp": curp,
		"rfc":  rfc,
	})
}

// VerifyBankAccount verifies ownership of a bank account (BAVS).
func (c *Client) VerifyBankAccount(ctx context.Context, curp, account, bankCode string) CallResult {
	return c.Send(ctx, http.MethodPost, EndpointBankVerification, map[string]interface{}{
		"curp":        curp,
		"bankAccount": account,
		"bankCode":    bankCode,
	})
}

// VerifyEmployment confirms employment (EVA v3).
func (c *Client) VerifyEmployment(ctx context.Context, curp, firstName, lastName, state string) CallResult {
	return c.Send(ctx, http.MethodPost, EndpointEmploymentVerify, map[string]interface{}{
		"address":   map[string]interface{}{"state": state, "addressLine1": ""},
		"firstName": firstName,
		"lastName":  lastName,
		"curp":      curp,
	})
}

// CheckFraud runs fraud detection (Guardian Express).
func (c *Client) CheckFraud(ctx context.Context, curp, email string) CallResult {
	return c.Send(ctx, http.MethodPost, EndpointFraudCheck, map[string]interface{}{
		"curp":  curp,
		"email": email,
	})
}

// CheckSanctions screens the applicant against sanctions lists (PLD).
func (c *Client) CheckSanctions(ctx context.Context, firstName, lastName, curp string) CallResult {
	return c.Send(ctx, http.MethodPost, EndpointSanctionsCheck, map[string]interface{}{
		"firstName": firstName,
		"lastName":  lastName,
		"curp":      curp,
	})
}

// GetFicoScore fetches the extended FICO score (300-850).
func (c *Client) GetFicoScore(ctx context.Context, curp string) CallResult {
	return c.Send(ctx, http.MethodPost, EndpointFicoScore, map[string]interface{}{
		"curp": curp,
	})
}

// GetFintechScore fetches the fintech score.
func (c *Client) GetFintechScore(ctx context.Context, curp string) CallResult {
	return c.Send(ctx, http.MethodPost, EndpointFintechScore, map[string]interface{}{
		"curp": curp,
	})
}

// EstimateLoanAmount estimates the maximum loan amount.
func (c *Client) EstimateLoanAmount(ctx context.Context, curp string, income float64, ficoScore int) CallResult {
	return c.Send(ctx, http.MethodPost, EndpointLoanEstimator, map[string]interface{}{
		"ingresos":  income,
		"curp":      curp,
		"ficoscore": ficoScore,
	})
}

// GetConsolidatedReport fetches the consolidated credit report with FICO and
// PLD data.
func (c *Client) GetConsolidatedReport(ctx context.Context, curp string) CallResult {
	return c.Send(ctx, http.MethodPost, EndpointConsolidatedReport, map[string]interface{}{
		"curp": curp,
	})
}
