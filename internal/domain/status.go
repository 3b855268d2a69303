package domain

import "strings"

// RequestStatus is the lifecycle of a ScheduleRequest.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
)

// PlanStatus is the lifecycle of a WorkoutPlan.
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanPaused    PlanStatus = "paused"
	PlanCompleted PlanStatus = "completed"
	PlanCancelled PlanStatus = "cancelled"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending: {RequestApproved, RequestRejected, RequestCancelled},
}

var planTransitions = map[PlanStatus][]PlanStatus{
	PlanActive: {PlanPaused, PlanCompleted, PlanCancelled},
	PlanPaused: {PlanActive, PlanCancelled},
}

// CanTransition reports whether a request may move from s to next.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal statuses admit no further transition.
func (s RequestStatus) Terminal() bool {
	return s == RequestRejected || s == RequestCancelled
}

// Valid reports whether s is a known request status.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected, RequestCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a plan may move from s to next.
func (s PlanStatus) CanTransition(next PlanStatus) bool {
	for _, allowed := range planTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal statuses admit no further transition.
func (s PlanStatus) Terminal() bool {
	return s == PlanCompleted || s == PlanCancelled
}

// Valid reports whether s is a known plan status.
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanActive, PlanPaused, PlanCompleted, PlanCancelled:
		return true
	}
	return false
}

// ParseRequestStatus accepts any casing ("Approved", "approved").
func ParseRequestStatus(raw string) (RequestStatus, bool) {
	s := RequestStatus(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// ParsePlanStatus accepts any casing ("Cancelled", "cancelled").
func ParsePlanStatus(raw string) (PlanStatus, bool) {
	s := PlanStatus(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}
