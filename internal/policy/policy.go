// Package policy decides what a requester may see. Decisions are pure values;
// callers apply the returned Mask before serialising a response.
package policy

import (
	"fmt"

	"github.com/noah-isme/coaching-center-api/internal/models"
)

// Resource names the kind of data being requested.
type Resource string

const (
	ResourceProfile        Resource = "profile"
	ResourceBatchStudents  Resource = "batch_students"
	ResourceBatchFees      Resource = "batch_fees"
	ResourceFeePayments    Resource = "fee_payments"
	ResourceLeaderboard    Resource = "leaderboard"
	ResourceTeacherBatches Resource = "teacher_batches"
	ResourceUserSearch     Resource = "user_search"
	ResourceStaffDirectory Resource = "staff_directory"
)

// Reason is the machine-readable code attached to a denial.
type Reason string

// Denial reasons. Denials that depend on the target all use
// ReasonTargetNotVisible so that a denial never reveals what the target is.
const (
	ReasonRoleNotPermitted  Reason = "role_not_permitted"
	ReasonRequesterInactive Reason = "requester_inactive"
	ReasonTargetNotVisible  Reason = "target_not_visible"
	ReasonBatchNotAssigned  Reason = "batch_not_assigned"
	ReasonOutsideOwnBatch   Reason = "outside_own_batch"
)

// Requester describes the authenticated caller.
type Requester struct {
	ID             uint
	Role           models.Role
	Status         models.Status
	BatchID        *uint
	TeacherBatches []uint
}

// Target describes the user or batch being viewed. BatchID scopes batch and
// leaderboard resources.
type Target struct {
	ID      uint
	Role    models.Role
	Status  models.Status
	BatchID *uint
}

// Decision is the outcome of an access check.
type Decision struct {
	Allowed bool
	Mask    Mask
	Reason  Reason
	// Detail explains the decision for logs; it is never sent to clients.
	Detail string
}

// Allow returns an allowing decision with the given field mask.
func Allow(mask Mask) Decision {
	return Decision{Allowed: true, Mask: mask}
}

// Deny returns a denying decision.
func Deny(reason Reason, detail string) Decision {
	return Decision{Reason: reason, Detail: detail}
}

// CanView decides whether req may read resource for target.
func CanView(req Requester, target Target, resource Resource) Decision {
	if req.Role == models.RoleAdmin {
		return Allow(MaskNone)
	}

	if isSelfResource(resource) && req.ID != 0 && req.ID == target.ID {
		return Allow(MaskNone)
	}

	switch req.Role {
	case models.RoleTeacher:
		return teacherView(req, target, resource)
	case models.RoleStudent:
		return studentView(req, target, resource)
	default:
		return Deny(ReasonRoleNotPermitted, fmt.Sprintf("unknown requester role %q", req.Role))
	}
}

func teacherView(req Requester, target Target, resource Resource) Decision {
	if !req.Status.Enrolled() {
		return Deny(ReasonRequesterInactive, fmt.Sprintf("teacher status is %s", req.Status))
	}

	switch resource {
	case ResourceProfile:
		if target.Role != models.RoleStudent {
			return Deny(ReasonTargetNotVisible, fmt.Sprintf("target role is %s", target.Role))
		}
		if !target.Status.Enrolled() {
			return Deny(ReasonTargetNotVisible, fmt.Sprintf("student status is %s", target.Status))
		}
		return Allow(MaskFees)
	case ResourceBatchStudents:
		if target.BatchID == nil || !containsID(req.TeacherBatches, *target.BatchID) {
			return Deny(ReasonBatchNotAssigned, "batch is not assigned to teacher")
		}
		return Allow(MaskFees)
	case ResourceLeaderboard:
		if target.BatchID != nil && !containsID(req.TeacherBatches, *target.BatchID) {
			return Deny(ReasonBatchNotAssigned, "leaderboard batch is not assigned to teacher")
		}
		return Allow(MaskFees)
	case ResourceUserSearch:
		return Allow(MaskFees)
	default:
		return Deny(ReasonRoleNotPermitted, fmt.Sprintf("teachers cannot read %s", resource))
	}
}

func studentView(req Requester, target Target, resource Resource) Decision {
	if resource != ResourceLeaderboard {
		return Deny(ReasonRoleNotPermitted, fmt.Sprintf("students cannot read %s", resource))
	}
	if req.BatchID == nil || target.BatchID == nil || *req.BatchID != *target.BatchID {
		return Deny(ReasonOutsideOwnBatch, "leaderboard batch differs from student batch")
	}
	return Allow(MaskFees)
}

func isSelfResource(resource Resource) bool {
	switch resource {
	case ResourceProfile, ResourceFeePayments, ResourceTeacherBatches:
		return true
	}
	return false
}

func containsID(ids []uint, id uint) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
