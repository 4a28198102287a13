package warranty

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/singleflight"

	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
	errx "github.com/warranty-agent-poc-v1/server/internal/core/error"
	logx "github.com/warranty-agent-poc-v1/server/pkg/logger"
)

// Gateway turns VINs into rendered claim and cost predictions. Claim
// responses are cached per VIN; cost responses are recomputed on every call.
type Gateway struct {
	repo  model.PredictionRepository
	cache PredictionCache
	group singleflight.Group
}

func NewGateway(repo model.PredictionRepository, cache PredictionCache) *Gateway {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Gateway{repo: repo, cache: cache}
}

// PredictClaim validates raw, serves a cached response when present and
// otherwise queries the classification model. Errors are AppErrors whose
// UserMessage is safe to return to the agent.
func (g *Gateway) PredictClaim(ctx context.Context, raw string) (string, error) {
	vin, err := ValidateVIN(raw)
	if err != nil {
		logx.Debug().Str("vin", NormalizeVIN(raw)).Msg("Rejected invalid VIN")
		return "", err
	}

	if cached, ok := g.cache.Get(vin); ok {
		logx.Debug().Str("vin", vin.String()).Msg("Returning cached prediction")
		return cached, nil
	}

	// Concurrent misses for one VIN share a single warehouse query. The query
	// is detached from the first caller's cancellation; each caller waits on
	// its own ctx.
	ch := g.group.DoChan(vin.String(), func() (any, error) {
		if cached, ok := g.cache.Get(vin); ok {
			return cached, nil
		}
		p, err := g.ClaimPrediction(context.WithoutCancel(ctx), vin)
		if err != nil {
			return "", err
		}
		response := FormatClaim(p)
		g.cache.Put(vin, response)
		return response, nil
	})

	select {
	case <-ctx.Done():
		logx.Debug().Str("vin", vin.String()).Err(ctx.Err()).Msg("Stopped waiting for prediction")
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			logx.Debug().Str("vin", vin.String()).Msg("Shared in-flight prediction")
		}
		return res.Val.(string), nil
	}
}

// PredictCost validates raw and queries the regression model. Never cached.
func (g *Gateway) PredictCost(ctx context.Context, raw string) (string, error) {
	vin, err := ValidateVIN(raw)
	if err != nil {
		logx.Debug().Str("vin", NormalizeVIN(raw)).Msg("Rejected invalid VIN")
		return "", err
	}

	e, err := g.CostEstimate(ctx, vin)
	if err != nil {
		return "", err
	}
	return FormatCost(e), nil
}

// ClaimPrediction runs the classification query for an already validated VIN.
func (g *Gateway) ClaimPrediction(ctx context.Context, vin model.VIN) (model.ClaimPrediction, error) {
	rows, err := g.repo.PredictClaim(ctx, vin)
	if err != nil {
		logx.Error().Err(err).Str("vin", vin.String()).Msg("Claim prediction query failed")
		return model.ClaimPrediction{}, errx.ClassifyGateway(err)
	}
	logx.Debug().Str("vin", vin.String()).Int("rows", len(rows)).Msg("Claim prediction query executed")
	if len(rows) == 0 {
		return model.ClaimPrediction{}, errx.NotFound(vin.String())
	}

	p, err := claimFromRow(vin, rows[0])
	if err != nil {
		logx.Error().Err(err).Str("vin", vin.String()).Msg("Unexpected claim prediction row")
		return model.ClaimPrediction{}, errx.Gateway(err)
	}

	logx.Info().
		Str("vin", vin.String()).
		Bool("predicted_claim", p.PredictedClaim).
		Float64("probability", p.ProbabilityOfClaim).
		Str("risk_level", string(p.RiskLevel)).
		Msg("Claim prediction")
	return p, nil
}

// CostEstimate runs the regression query for an already validated VIN.
func (g *Gateway) CostEstimate(ctx context.Context, vin model.VIN) (model.CostEstimate, error) {
	rows, err := g.repo.PredictCost(ctx, vin)
	if err != nil {
		logx.Error().Err(err).Str("vin", vin.String()).Msg("Cost prediction query failed")
		return model.CostEstimate{}, errx.ClassifyGateway(err)
	}
	logx.Debug().Str("vin", vin.String()).Int("rows", len(rows)).Msg("Cost prediction query executed")
	if len(rows) == 0 {
		return model.CostEstimate{}, errx.NotFound(vin.String())
	}

	row := rows[0]
	if !row.PredictedLogTotalCost.Valid {
		err := fmt.Errorf("predicted_log_total_cost is null for VIN %s", vin)
		logx.Error().Err(err).Msg("Unexpected cost prediction row")
		return model.CostEstimate{}, errx.Gateway(err)
	}

	cost := InverseLog1p(row.PredictedLogTotalCost.Float64)
	if math.IsInf(cost, 0) || math.IsNaN(row.PredictedLogTotalCost.Float64) {
		err := fmt.Errorf("predicted_log_total_cost %v is not a finite cost for VIN %s", row.PredictedLogTotalCost.Float64, vin)
		logx.Error().Err(err).Msg("Unexpected cost prediction row")
		return model.CostEstimate{}, errx.Gateway(err)
	}

	e := model.CostEstimate{VIN: vin, PredictedCostUSD: cost}
	logx.Info().
		Str("vin", vin.String()).
		Float64("predicted_log_total_cost", row.PredictedLogTotalCost.Float64).
		Float64("predicted_cost_usd", e.PredictedCostUSD).
		Msg("Cost prediction")
	return e, nil
}

func claimFromRow(vin model.VIN, row model.ClaimRow) (model.ClaimPrediction, error) {
	if !row.PredictedClaim.Valid {
		return model.ClaimPrediction{}, fmt.Errorf("predicted_has_warranty_claim is null for VIN %s", vin)
	}

	prob := math.NaN()
	for _, p := range row.Probs {
		if p.Label {
			prob = p.Prob
			break
		}
	}
	if math.IsNaN(prob) {
		return model.ClaimPrediction{}, fmt.Errorf("no probability for label true in predicted_has_warranty_claim_probs for VIN %s", vin)
	}
	if prob < 0 || prob > 1 {
		return model.ClaimPrediction{}, fmt.Errorf("claim probability %v out of range for VIN %s", prob, vin)
	}

	level, rec := ClassifyRisk(prob)
	return model.ClaimPrediction{
		VIN:                vin,
		PredictedClaim:     row.PredictedClaim.Bool,
		ProbabilityOfClaim: prob,
		RiskLevel:          level,
		Recommendation:     rec,
	}, nil
}
