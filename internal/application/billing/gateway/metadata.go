package gateway

import (
	"strconv"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	vo "github.com/OliSalles/StoryTeller/internal/domain/billing/valueobjects"
)

// Metadata keys written on checkout creation. They round-trip on the session.
const (
	MetadataUserID       = "userId"
	MetadataPlanID       = "planId"
	MetadataBillingCycle = "billingCycle"
)

// CheckoutMetadata is the parsed form of the metadata set by CreateCheckoutSession.
type CheckoutMetadata struct {
	UserID       uint
	PlanID       uint
	BillingCycle vo.BillingCycle
}

// BuildCheckoutMetadata renders req into provider metadata.
func BuildCheckoutMetadata(req CheckoutRequest) map[string]string {
	return map[string]string{
		MetadataUserID:       strconv.FormatUint(uint64(req.UserID), 10),
		MetadataPlanID:       strconv.FormatUint(uint64(req.PlanID), 10),
		MetadataBillingCycle: req.BillingCycle.String(),
	}
}

// ParseCheckoutMetadata extracts the checkout metadata from a session. Absent or
// unparsable fields are reported together in a *billing.MissingMetadataError.
// fallbackUserID is used when the session carries no userId; pass 0 to require it.
func ParseCheckoutMetadata(sessionID string, md map[string]string, fallbackUserID uint) (CheckoutMetadata, error) {
	var (
		out     CheckoutMetadata
		missing []string
	)

	if raw, ok := md[MetadataUserID]; ok && raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil && id > 0 {
			out.UserID = uint(id)
		} else {
			missing = append(missing, MetadataUserID)
		}
	} else if fallbackUserID > 0 {
		out.UserID = fallbackUserID
	} else {
		missing = append(missing, MetadataUserID)
	}

	if id, err := strconv.ParseUint(md[MetadataPlanID], 10, 64); err == nil && id > 0 {
		out.PlanID = uint(id)
	} else {
		missing = append(missing, MetadataPlanID)
	}

	if cycle, ok := vo.ParseBillingCycle(md[MetadataBillingCycle]); ok {
		out.BillingCycle = cycle
	} else {
		missing = append(missing, MetadataBillingCycle)
	}

	if len(missing) > 0 {
		return CheckoutMetadata{}, &billing.MissingMetadataError{SessionID: sessionID, Fields: missing}
	}
	return out, nil
}
