package models

import "strings"

// Reading status of a series.
const (
	StatusReading    = "READING"
	StatusCompleted  = "COMPLETED"
	StatusOnHold     = "ON_HOLD"
	StatusDropped    = "DROPPED"
	StatusPlanToRead = "PLAN_TO_READ"
)

// SeriesStatuses lists every valid status, in display order.
var SeriesStatuses = []string{
	StatusReading,
	StatusCompleted,
	StatusOnHold,
	StatusDropped,
	StatusPlanToRead,
}

// Physical condition of a volume.
const (
	ConditionNew        = "NEW"
	ConditionLikeNew    = "LIKE_NEW"
	ConditionVeryGood   = "VERY_GOOD"
	ConditionGood       = "GOOD"
	ConditionAcceptable = "ACCEPTABLE"
	ConditionPoor       = "POOR"
)

// NormalizeStatus returns the canonical status value, or "" when the
// input is not a known status.
func NormalizeStatus(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "READING":
		return StatusReading
	case "COMPLETED":
		return StatusCompleted
	case "ON_HOLD", "ON HOLD", "ONHOLD":
		return StatusOnHold
	case "DROPPED":
		return StatusDropped
	case "PLAN_TO_READ", "PLAN TO READ", "PLANTOREAD":
		return StatusPlanToRead
	default:
		return ""
	}
}

func NormalizeCondition(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NEW":
		return ConditionNew
	case "LIKE_NEW", "LIKE NEW":
		return ConditionLikeNew
	case "VERY_GOOD", "VERY GOOD":
		return ConditionVeryGood
	case "GOOD":
		return ConditionGood
	case "ACCEPTABLE":
		return ConditionAcceptable
	case "POOR":
		return ConditionPoor
	default:
		return ""
	}
}

// NormalizeStore maps user input to a known acquisition store value,
// "" when unknown.
func NormalizeStore(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AMAZON":
		return "AMAZON"
	case "VINTED":
		return "VINTED"
	case "WALLAPOP":
		return "WALLAPOP"
	case "ABACUS":
		return "ABACUS"
	case "CASA_DEL_LIBRO", "CASA DEL LIBRO":
		return "CASA_DEL_LIBRO"
	case "NA", "N/A":
		return "NA"
	default:
		return ""
	}
}

func NormalizeEditorial(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PLANETA_COMIC", "PLANETA COMIC":
		return "PLANETA_COMIC"
	case "PLANETA_DEAGOSTINI", "PLANETA DEAGOSTINI":
		return "PLANETA_DEAGOSTINI"
	default:
		return ""
	}
}
