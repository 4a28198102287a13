package core

import "os"

// Environment represents the deployment environment of the service.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// cloudRunMarkers are set by Cloud Run on every revision.
var cloudRunMarkers = []string{"K_SERVICE", "CLOUD_RUN_SERVICE"}

// String returns the string representation of the environment.
func (e Environment) String() string {
	return string(e)
}

// IsProduction reports whether the environment corresponds to production.
func (e Environment) IsProduction() bool {
	return e == Production
}

// IsLocal reports whether the process runs on a developer machine, where
// BigQuery is reached with the user's own application-default credentials.
func (e Environment) IsLocal() bool {
	return e == Development || e == Testing
}

// ParseEnvironment normalises the provided value into one of the known environments.
// Unknown values fall back to Development so the application can still start
// with sensible defaults.
func ParseEnvironment(v string) Environment {
	switch Environment(v) {
	case Production:
		return Production
	case Staging:
		return Staging
	case Testing:
		return Testing
	default:
		return Development
	}
}

// ResolveEnvironment returns the explicitly configured environment when set,
// otherwise Production on Cloud Run and Development everywhere else.
func ResolveEnvironment(explicit string) Environment {
	if explicit != "" {
		return ParseEnvironment(explicit)
	}
	return detect(os.LookupEnv)
}

func detect(lookup func(string) (string, bool)) Environment {
	for _, key := range cloudRunMarkers {
		if v, ok := lookup(key); ok && v != "" {
			return Production
		}
	}
	return Development
}
