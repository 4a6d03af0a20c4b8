package insurance

import (
	"context"
	"regexp"
	"strings"

	"github.com/saram098/navi-backend-2/pkg/logging"
)

// VerificationStatus is the outcome of a coverage check.
type VerificationStatus string

const (
	StatusActive   VerificationStatus = "active"
	StatusInactive VerificationStatus = "inactive"
	StatusExpired  VerificationStatus = "expired"
	StatusNotFound VerificationStatus = "not_found"
	StatusError    VerificationStatus = "error"
)

// Verification is the result of an insurance lookup.
type Verification struct {
	Status       VerificationStatus
	Provider     string
	PlanName     string
	CoverageType string
	MemberID     string
	ExpiryDate   string
	Reason       string
	ErrorMessage string
}

// Emirates ID formats: XXX-XXXX-XXXXXXX-X, 15 contiguous digits, or
// digit groups separated by spaces.
var emiratesIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{3}-\d{4}-\d{7}-\d{1}`),
	regexp.MustCompile(`\d{15}`),
	regexp.MustCompile(`\d{3}\s?\d{4}\s?\d{7}\s?\d{1}`),
}

// ExtractEmiratesID scans free text for something shaped like an Emirates ID.
func ExtractEmiratesID(message string) string {
	for _, p := range emiratesIDPatterns {
		if m := p.FindString(message); m != "" {
			return m
		}
	}
	return ""
}

// Verifier simulates an insurance coverage lookup. Results are
// deterministic per ID so conversations stay stable across turns; a real
// integration would call the provider's API here.
type Verifier struct {
	logger *logging.Logger
}

// NewVerifier creates a mock verifier.
func NewVerifier(logger *logging.Logger) *Verifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Verifier{logger: logger}
}

var (
	activeProviders = []string{
		"Daman Health Insurance", "Cigna Health Insurance", "AXA Insurance", "Neuron", "Oman Insurance",
	}
	activePlans = []string{
		"Basic Plan", "Enhanced Plan", "Premium Plan", "Gold Plan", "Executive Plan",
	}
	activeCoverageTypes = []string{"Full Coverage", "Basic Coverage", "Partial Coverage"}
)

// Verify checks coverage for an Emirates ID.
func (v *Verifier) Verify(ctx context.Context, emiratesID string) (*Verification, error) {
	emiratesID = strings.TrimSpace(emiratesID)
	if len(emiratesID) < 10 {
		return &Verification{
			Status:       StatusError,
			ErrorMessage: "invalid Emirates ID format",
		}, nil
	}

	v.logger.Info("verifying insurance", "emirates_id_suffix", tail(emiratesID, 4))

	var hash int
	for _, c := range emiratesID {
		hash += int(c)
	}

	suffix := tail(emiratesID, 6)
	switch hash % 5 {
	case 0:
		return &Verification{Status: StatusNotFound}, nil
	case 1:
		return &Verification{
			Status:     StatusExpired,
			Provider:   "Daman Health Insurance",
			PlanName:   "Enhanced Plan",
			ExpiryDate: "2023-01-15",
			MemberID:   "DH" + suffix,
		}, nil
	case 2:
		return &Verification{
			Status:   StatusInactive,
			Provider: "AXA Insurance",
			PlanName: "Premier Health",
			MemberID: "AX" + suffix,
			Reason:   "Payment pending",
		}, nil
	default:
		return &Verification{
			Status:       StatusActive,
			Provider:     activeProviders[hash%len(activeProviders)],
			PlanName:     activePlans[hash%len(activePlans)],
			CoverageType: activeCoverageTypes[hash%len(activeCoverageTypes)],
			MemberID:     "IN" + suffix,
			ExpiryDate:   "2026-12-31",
		}, nil
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
