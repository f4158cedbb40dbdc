package models

import "strings"

// Role is a model's designated purpose in a comparison.
type Role string

const (
	RolePrimary    Role = "primary"
	RoleChallenger Role = "challenger"
	RoleFallback   Role = "fallback"
	RoleBudget     Role = "budget"
	RoleReasoning  Role = "reasoning"

	// RoleUnknown is assigned when a result document carries no role.
	RoleUnknown Role = "unknown"
)

// KnownRoles lists the recognized roles in canonical order.
var KnownRoles = []Role{RolePrimary, RoleChallenger, RoleFallback, RoleBudget, RoleReasoning}

// IsKnown reports whether r is one of [KnownRoles].
func (r Role) IsKnown() bool {
	for _, k := range KnownRoles {
		if r == k {
			return true
		}
	}
	return false
}

// RoleRank orders roles canonically; unrecognized roles sort after every known one.
func RoleRank(r Role) int {
	for i, k := range KnownRoles {
		if r == k {
			return i
		}
	}
	return len(KnownRoles)
}

// QueryOutcome is the recorded result of running one evaluation query
// against one model. A non-empty Error marks the query as failed.
type QueryOutcome struct {
	Index      int     `json:"index"`
	Query      string  `json:"query"`
	Response   string  `json:"response"`
	Expected   string  `json:"expected"`
	LatencyMs  float64 `json:"latency_ms"`
	TokensUsed int     `json:"tokens_used"`
	Error      *string `json:"error"`
}

// Failed reports whether the query produced an error.
func (o *QueryOutcome) Failed() bool {
	return o.Error != nil && *o.Error != ""
}

// TrimmedResponseLen returns the number of characters in the response
// after surrounding whitespace is removed.
func (o *QueryOutcome) TrimmedResponseLen() int {
	return len([]rune(strings.TrimSpace(o.Response)))
}

// ModelRunResult is the per-model result document: every query outcome
// collected for one model in one run.
type ModelRunResult struct {
	Model       string         `json:"model"`
	Role        Role           `json:"role"`
	Provider    string         `json:"provider"`
	Timestamp   string         `json:"timestamp"`
	DatasetSize int            `json:"dataset_size"`
	Results     []QueryOutcome `json:"results"`

	// Source is the file the document was loaded from, if any.
	Source string `json:"-"`
}

// Size is the number of recorded outcomes.
func (r *ModelRunResult) Size() int {
	return len(r.Results)
}

// ErrorString returns a pointer suitable for [QueryOutcome.Error].
func ErrorString(msg string) *string {
	return &msg
}
