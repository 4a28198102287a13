package model

import "cloud.google.com/go/bigquery"

// VIN is a validated vehicle identification number: 17 upper-case
// characters from [A-Z0-9] excluding I, O and Q.
type VIN string

func (v VIN) String() string {
	return string(v)
}

// RiskLevel buckets a claim probability.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Label is the text shown to the user, e.g. "HIGH RISK".
func (r RiskLevel) Label() string {
	return string(r) + " RISK"
}

// ClaimPrediction is the outcome of the claim-occurrence classification model.
type ClaimPrediction struct {
	VIN                VIN       `json:"vin"`
	PredictedClaim     bool      `json:"predicted_claim"`
	ProbabilityOfClaim float64   `json:"probability_of_claim"`
	RiskLevel          RiskLevel `json:"risk_level"`
	Recommendation     string    `json:"recommendation"`
}

// CostEstimate is the outcome of the total-cost regression model, already
// converted back from log scale to dollars.
type CostEstimate struct {
	VIN              VIN     `json:"vin"`
	PredictedCostUSD float64 `json:"predicted_cost_usd"`
}

// LabelProb is one entry of a BigQuery ML classification probability array.
type LabelProb struct {
	Label bool    `bigquery:"label"`
	Prob  float64 `bigquery:"prob"`
}

// ClaimRow is one row returned by the claim-occurrence ML.PREDICT query.
type ClaimRow struct {
	VIN            string            `bigquery:"vin"`
	PredictedClaim bigquery.NullBool `bigquery:"predicted_has_warranty_claim"`
	Probs          []LabelProb       `bigquery:"predicted_has_warranty_claim_probs"`
}

// CostRow is one row returned by the total-cost ML.PREDICT query. The model
// is trained on log1p(cost), so the value is on log scale.
type CostRow struct {
	VIN                   string               `bigquery:"vin"`
	PredictedLogTotalCost bigquery.NullFloat64 `bigquery:"predicted_log_total_cost"`
}
