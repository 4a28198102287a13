package repo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
	logx "github.com/warranty-agent-poc-v1/server/pkg/logger"
)

const vinParam = "vin"

// identifierPattern covers project IDs, dataset, table and model names.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// NewBigQueryClient opens a client for cfg.Project, or for the project of the
// ambient credentials when project detection is on (Cloud Run service accounts).
func NewBigQueryClient(ctx context.Context, cfg model.BigQueryConfig, opts ...option.ClientOption) (*bigquery.Client, error) {
	project := cfg.Project
	if cfg.DetectsProject() {
		project = bigquery.DetectProjectID
	}
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	if cfg.Location != "" {
		client.Location = cfg.Location
	}
	logx.Debug().Str("project", client.Project()).Msg("BigQuery client ready")
	return client, nil
}

// BigQueryPredictionRepository runs ML.PREDICT against the claim-occurrence
// classification model and the total-cost regression model.
type BigQueryPredictionRepository struct {
	client   *bigquery.Client
	claimSQL string
	costSQL  string
}

func NewBigQueryPredictionRepository(client *bigquery.Client, cfg model.BigQueryConfig) (*BigQueryPredictionRepository, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client is nil")
	}
	project := cfg.Project
	if cfg.DetectsProject() {
		project = client.Project()
	}
	cfg.Project = project
	if err := validateIdentifiers(cfg); err != nil {
		return nil, err
	}
	return &BigQueryPredictionRepository{
		client:   client,
		claimSQL: ClaimQuery(cfg),
		costSQL:  CostQuery(cfg),
	}, nil
}

// ClaimQuery selects the VIN, the predicted label and the full label
// probability distribution for the row matching @vin.
func ClaimQuery(cfg model.BigQueryConfig) string {
	return fmt.Sprintf(`SELECT
  vin,
  predicted_has_warranty_claim,
  predicted_has_warranty_claim_probs
FROM
  ML.PREDICT(MODEL `+"`%s.%s.%s`"+`,
    (SELECT * FROM `+"`%s.%s.%s`"+` WHERE vin = @%s))`,
		cfg.Project, cfg.ModelsDataset, cfg.ClaimModel,
		cfg.Project, cfg.DataDataset, cfg.ClaimTable,
		vinParam)
}

// CostQuery selects the raw log-scale cost prediction for the row matching
// @vin. The inverse transform is applied by the caller.
func CostQuery(cfg model.BigQueryConfig) string {
	return fmt.Sprintf(`SELECT
  vin,
  predicted_log_total_cost
FROM
  ML.PREDICT(MODEL `+"`%s.%s.%s`"+`,
    (SELECT * FROM `+"`%s.%s.%s`"+` WHERE vin = @%s))`,
		cfg.Project, cfg.ModelsDataset, cfg.CostModel,
		cfg.Project, cfg.DataDataset, cfg.CostTable,
		vinParam)
}

func (r *BigQueryPredictionRepository) PredictClaim(ctx context.Context, vin model.VIN) ([]model.ClaimRow, error) {
	return readRows[model.ClaimRow](ctx, r.query(r.claimSQL, vin))
}

func (r *BigQueryPredictionRepository) PredictCost(ctx context.Context, vin model.VIN) ([]model.CostRow, error) {
	return readRows[model.CostRow](ctx, r.query(r.costSQL, vin))
}

func (r *BigQueryPredictionRepository) query(sql string, vin model.VIN) *bigquery.Query {
	q := r.client.Query(sql)
	q.Parameters = []bigquery.QueryParameter{{Name: vinParam, Value: vin.String()}}
	return q
}

func readRows[T any](ctx context.Context, q *bigquery.Query) ([]T, error) {
	logx.Debug().Msg("Executing BigQuery query")
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery query: %w", err)
	}

	var rows []T
	for {
		var row T
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery read row: %w", err)
		}
		rows = append(rows, row)
	}
	logx.Debug().Int("rows", len(rows)).Msg("Retrieved rows")
	return rows, nil
}

func validateIdentifiers(cfg model.BigQueryConfig) error {
	fields := []struct{ name, value string }{
		{"BIGQUERY_PROJECT", cfg.Project},
		{"BIGQUERY_MODELS_DATASET", cfg.ModelsDataset},
		{"BIGQUERY_DATA_DATASET", cfg.DataDataset},
		{"BIGQUERY_CLAIM_MODEL", cfg.ClaimModel},
		{"BIGQUERY_CLAIM_TABLE", cfg.ClaimTable},
		{"BIGQUERY_COST_MODEL", cfg.CostModel},
		{"BIGQUERY_COST_TABLE", cfg.CostTable},
	}
	for _, f := range fields {
		if !identifierPattern.MatchString(f.value) {
			return fmt.Errorf("invalid %s %q", f.name, f.value)
		}
	}
	return nil
}

var _ model.PredictionRepository = (*BigQueryPredictionRepository)(nil)
