package enums

import "fmt"

// InquiryStatus tracks the seller's follow-up on an inquiry.
type InquiryStatus string

const (
	InquiryStatusNew       InquiryStatus = "new"
	InquiryStatusContacted InquiryStatus = "contacted"
	InquiryStatusClosed    InquiryStatus = "closed"
)

var validInquiryStatuses = []InquiryStatus{
	InquiryStatusNew,
	InquiryStatusContacted,
	InquiryStatusClosed,
}

func (s InquiryStatus) IsValid() bool {
	for _, candidate := range validInquiryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// DeliveryStatus records the outcome of the single email dispatch attempt.
// It only ever moves pending -> sent or pending -> failed.
type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusSent,
	DeliveryStatusFailed,
}

func (s DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the dispatch outcome has been recorded.
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusSent || s == DeliveryStatusFailed
}

// InquiryEventType labels entries in the append-only inquiry audit log.
type InquiryEventType string

const (
	InquiryEventCreated         InquiryEventType = "created"
	InquiryEventRateLimited     InquiryEventType = "rate_limited"
	InquiryEventEmailSent       InquiryEventType = "email_sent"
	InquiryEventEmailFailed     InquiryEventType = "email_failed"
	InquiryEventDashboardViewed InquiryEventType = "dashboard_viewed"
)

var validInquiryEventTypes = []InquiryEventType{
	InquiryEventCreated,
	InquiryEventRateLimited,
	InquiryEventEmailSent,
	InquiryEventEmailFailed,
	InquiryEventDashboardViewed,
}

func (t InquiryEventType) IsValid() bool {
	for _, candidate := range validInquiryEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseInquiryEventType converts raw strings into InquiryEventType.
func ParseInquiryEventType(value string) (InquiryEventType, error) {
	for _, candidate := range validInquiryEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inquiry event type %q", value)
}
