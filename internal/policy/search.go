package policy

import "github.com/noah-isme/coaching-center-api/internal/models"

// SearchScope is the role and batch restriction applied to a user search.
// An empty Role means every role.
type SearchScope struct {
	Role    models.Role
	BatchID *uint
}

// ScopeSearch narrows a requested search to what req may list. Teachers are
// always restricted to students, and to their own batches when a batch filter
// is given. Students may not search.
func ScopeSearch(req Requester, requested SearchScope) (SearchScope, Decision) {
	decision := CanView(req, Target{BatchID: requested.BatchID}, ResourceUserSearch)
	if !decision.Allowed {
		return SearchScope{}, decision
	}

	if req.Role != models.RoleTeacher {
		return requested, decision
	}

	if requested.BatchID != nil && !containsID(req.TeacherBatches, *requested.BatchID) {
		return SearchScope{}, Deny(ReasonBatchNotAssigned, "batch filter is not assigned to teacher")
	}

	return SearchScope{Role: models.RoleStudent, BatchID: requested.BatchID}, decision
}
