package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/clarify.txt
	clarifyRaw string

	//go:embed template/finished.txt
	finishedRaw string

	//go:embed template/lead.txt
	leadRaw string

	//go:embed template/active_customer.txt
	activeCustomerRaw string

	//go:embed template/carrier.txt
	carrierRaw string

	//go:embed template/vendor.txt
	vendorRaw string

	//go:embed template/staff.txt
	staffRaw string

	//go:embed template/candidate.txt
	candidateRaw string
)

// Set holds the loaded instruction templates, one per completion concern.
type Set struct {
	Classifier     string
	Clarify        string
	Finished       string
	Lead           string
	ActiveCustomer string
	Carrier        string
	Vendor         string
	Staff          string
	Candidate      string
}

// Load returns the embedded instruction set with surrounding whitespace
// trimmed. Safe to call concurrently.
func Load() Set {
	return Set{
		Classifier:     strings.TrimSpace(classifierRaw),
		Clarify:        strings.TrimSpace(clarifyRaw),
		Finished:       strings.TrimSpace(finishedRaw),
		Lead:           strings.TrimSpace(leadRaw),
		ActiveCustomer: strings.TrimSpace(activeCustomerRaw),
		Carrier:        strings.TrimSpace(carrierRaw),
		Vendor:         strings.TrimSpace(vendorRaw),
		Staff:          strings.TrimSpace(staffRaw),
		Candidate:      strings.TrimSpace(candidateRaw),
	}
}
