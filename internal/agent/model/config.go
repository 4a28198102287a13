package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL      time.Duration `envconfig:"CONVERSATION_TTL" default:"15m"`
	MaxTurns int           `envconfig:"CONVERSATION_MAX_TURNS" default:"20"`
	Tools    struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"6"`
	}
}

type AgentModelConfig struct {
	Model          string  `envconfig:"AGENT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens      int     `envconfig:"AGENT_MAX_TOKENS" default:"2000"`
	Temperature    float32 `envconfig:"AGENT_TEMPERATURE" default:"0.2"`
	ThinkingBudget int32   `envconfig:"AGENT_THINKING_BUDGET" default:"1024"`
}

type AgentPromptConfig struct {
	Name        string `envconfig:"AGENT_NAME" default:"root_agent"`
	Description string `envconfig:"AGENT_DESCRIPTION" default:"A specialist for vehicle warranty prediction."`

	// DisableToolCallOverride drops the instruction forcing native function calls.
	DisableToolCallOverride bool `envconfig:"AGENT_DISABLE_TOOL_CALL_OVERRIDE" default:"false"`
}

// DefaultBigQueryProject is used when no project variable is set.
const DefaultBigQueryProject = "warranty-prediction-demo"

// BigQueryConfig names the project, datasets, models and feature tables
// queried through ML.PREDICT.
type BigQueryConfig struct {
	Project    string `envconfig:"BIGQUERY_PROJECT"`
	GCPProject string `envconfig:"GCP_PROJECT_ID"`
	// DetectProject uses the project of the ambient credentials. Unset means
	// detect in production only.
	DetectProject *bool  `envconfig:"BIGQUERY_DETECT_PROJECT"`
	Location      string `envconfig:"BIGQUERY_LOCATION"`
	ModelsDataset string `envconfig:"BIGQUERY_MODELS_DATASET" default:"warranty_models"`
	DataDataset   string `envconfig:"BIGQUERY_DATA_DATASET" default:"warranty_data"`
	ClaimModel    string `envconfig:"BIGQUERY_CLAIM_MODEL" default:"claim_occurrence_model"`
	ClaimTable    string `envconfig:"BIGQUERY_CLAIM_TABLE" default:"training_data"`
	CostModel     string `envconfig:"BIGQUERY_COST_MODEL" default:"total_cost_model"`
	CostTable     string `envconfig:"BIGQUERY_COST_TABLE" default:"cost_training_data"`
}

// Resolve fills the project from BIGQUERY_PROJECT, then GCP_PROJECT_ID, then
// the default, and decides project detection when it was not set explicitly.
func (c BigQueryConfig) Resolve(production bool) BigQueryConfig {
	switch {
	case c.Project != "":
	case c.GCPProject != "":
		c.Project = c.GCPProject
	default:
		c.Project = DefaultBigQueryProject
	}
	if c.DetectProject == nil {
		detect := production
		c.DetectProject = &detect
	}
	return c
}

// DetectsProject reports whether the client should run in the credentials' project.
func (c BigQueryConfig) DetectsProject() bool {
	return c.DetectProject != nil && *c.DetectProject
}

type ThrottleConfig struct {
	Window       time.Duration `envconfig:"THROTTLE_WINDOW" default:"3s"`
	GuardedTools []string      `envconfig:"THROTTLE_GUARDED_TOOLS" default:"predict_warranty_cost"`
}
