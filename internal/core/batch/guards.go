package batch

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// CanAddressStatement evaluates whether idx names an existing statement.
func CanAddressStatement(idx, count int) GuardResult {
	if idx < 0 || idx >= count {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("statement %d does not exist (batch has %d statements)", idx, count),
		}
	}
	return GuardResult{Allowed: true}
}

// CanAddUser evaluates whether username may be interpolated into generated SQL.
// Rules:
// - non-empty, at most 63 characters (PostgreSQL identifier limit)
// - no control characters
func CanAddUser(username string) GuardResult {
	if err := validate.Var(username, "required,max=63"); err != nil {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("invalid username %q: must be 1-63 characters", username),
		}
	}
	if strings.IndexFunc(username, unicode.IsControl) >= 0 {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("invalid username %q: contains control characters", username),
		}
	}
	return GuardResult{Allowed: true}
}

// QuoteIdentifier wraps name in double quotes, doubling any embedded quote.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
