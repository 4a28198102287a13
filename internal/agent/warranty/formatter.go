package warranty

import (
	"fmt"
	"math"

	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
)

const (
	highRiskThreshold   = 0.7
	mediumRiskThreshold = 0.4
)

var recommendations = map[model.RiskLevel]string{
	model.RiskHigh:   "This vehicle has a high likelihood of warranty claims. Recommend thorough quality inspection and proactive maintenance planning.",
	model.RiskMedium: "This vehicle shows moderate warranty risk. Standard quality checks recommended.",
	model.RiskLow:    "This vehicle has a low probability of warranty claims. Routine quality process should be sufficient.",
}

// ClassifyRisk buckets a claim probability and returns the tier's advisory sentence.
func ClassifyRisk(probability float64) (model.RiskLevel, string) {
	level := model.RiskLow
	switch {
	case probability >= highRiskThreshold:
		level = model.RiskHigh
	case probability >= mediumRiskThreshold:
		level = model.RiskMedium
	}
	return level, recommendations[level]
}

// FormatClaim renders a claim prediction. Output depends only on p, which the
// cache relies on.
func FormatClaim(p model.ClaimPrediction) string {
	verdict := "Unlikely to have warranty claim"
	if p.PredictedClaim {
		verdict = "Will likely have warranty claim"
	}
	return fmt.Sprintf("Warranty Prediction for VIN: %s\n\n"+
		"Prediction: %s\n"+
		"Probability: %.1f%% chance of warranty claim\n"+
		"Risk Level: %s\n\n"+
		"Recommendation: %s",
		p.VIN, verdict, p.ProbabilityOfClaim*100, p.RiskLevel.Label(), p.Recommendation)
}

// FormatCost renders a cost estimate as a single line.
func FormatCost(e model.CostEstimate) string {
	return fmt.Sprintf("Total cost: $%.2f USD", e.PredictedCostUSD)
}

// InverseLog1p undoes the log1p transform the cost model was trained on and
// rounds to cents. Costs never go below zero.
func InverseLog1p(x float64) float64 {
	v := math.Round(math.Expm1(x)*100) / 100
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
