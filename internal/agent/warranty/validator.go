package warranty

import (
	"regexp"
	"strings"

	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
	errx "github.com/warranty-agent-poc-v1/server/internal/core/error"
)

// vinPattern excludes I, O and Q, which are never used in a VIN.
var vinPattern = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// NormalizeVIN trims surrounding whitespace and upper-cases raw.
func NormalizeVIN(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidateVIN normalizes raw and checks it against the VIN format. The
// returned error is a validation AppError carrying the normalized input.
func ValidateVIN(raw string) (model.VIN, error) {
	vin := NormalizeVIN(raw)
	if !vinPattern.MatchString(vin) {
		return "", errx.Validation(vin)
	}
	return model.VIN(vin), nil
}
