package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coaching-center-api/internal/models"
)

func batchID(id uint) *uint {
	return &id
}

func activeTeacher(batches ...uint) Requester {
	return Requester{ID: 10, Role: models.RoleTeacher, Status: models.StatusActive, TeacherBatches: batches}
}

func TestAdminSeesEverythingUnmasked(t *testing.T) {
	resources := []Resource{
		ResourceProfile, ResourceBatchStudents, ResourceBatchFees, ResourceFeePayments,
		ResourceLeaderboard, ResourceTeacherBatches, ResourceUserSearch, ResourceStaffDirectory,
	}
	roles := []models.Role{models.RoleAdmin, models.RoleTeacher, models.RoleStudent}

	for _, adminStatus := range models.Statuses {
		admin := Requester{ID: 1, Role: models.RoleAdmin, Status: adminStatus}
		for _, role := range roles {
			for _, status := range models.Statuses {
				for _, resource := range resources {
					decision := CanView(admin, Target{ID: 2, Role: role, Status: status, BatchID: batchID(9)}, resource)
					require.True(t, decision.Allowed, "resource %s role %s status %s", resource, role, status)
					require.Equal(t, MaskNone, decision.Mask)
				}
			}
		}
	}
}

func TestTeacherCannotSeeNonEnrolledStudents(t *testing.T) {
	teacher := activeTeacher(1)
	for _, status := range []models.Status{models.StatusSuspended, models.StatusWithdrawn, models.StatusPending} {
		decision := CanView(teacher, Target{ID: 20, Role: models.RoleStudent, Status: status}, ResourceProfile)
		require.False(t, decision.Allowed, status)
		require.Equal(t, ReasonTargetNotVisible, decision.Reason)
	}
}

func TestTeacherCannotSeeStaffProfiles(t *testing.T) {
	teacher := activeTeacher(1)
	for _, role := range []models.Role{models.RoleTeacher, models.RoleAdmin} {
		decision := CanView(teacher, Target{ID: 20, Role: role, Status: models.StatusActive}, ResourceProfile)
		require.False(t, decision.Allowed, role)
		require.Equal(t, ReasonTargetNotVisible, decision.Reason)
	}
}

func TestTeacherSeesEnrolledStudentsWithFeesMasked(t *testing.T) {
	teacher := activeTeacher(1)
	for _, status := range models.EnrolledStatuses {
		decision := CanView(teacher, Target{ID: 20, Role: models.RoleStudent, Status: status}, ResourceProfile)
		require.True(t, decision.Allowed)
		require.True(t, decision.Mask.Has(MaskFees))
	}
}

func TestInactiveTeacherIsDenied(t *testing.T) {
	teacher := Requester{ID: 10, Role: models.RoleTeacher, Status: models.StatusSuspended}
	decision := CanView(teacher, Target{ID: 20, Role: models.RoleStudent, Status: models.StatusActive}, ResourceProfile)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonRequesterInactive, decision.Reason)
}

func TestSelfAccessIgnoresStatus(t *testing.T) {
	cases := []Requester{
		{ID: 5, Role: models.RoleTeacher, Status: models.StatusSuspended},
		{ID: 5, Role: models.RoleStudent, Status: models.StatusPending},
	}
	for _, req := range cases {
		for _, resource := range []Resource{ResourceProfile, ResourceFeePayments, ResourceTeacherBatches} {
			decision := CanView(req, Target{ID: 5, Role: req.Role, Status: req.Status}, resource)
			require.True(t, decision.Allowed, "%s %s", req.Role, resource)
			require.Equal(t, MaskNone, decision.Mask)
		}
	}
}

func TestTeacherBatchRosterRequiresAssignment(t *testing.T) {
	teacher := activeTeacher(1)

	allowed := CanView(teacher, Target{BatchID: batchID(1)}, ResourceBatchStudents)
	require.True(t, allowed.Allowed)
	require.True(t, allowed.Mask.Has(MaskFees))

	denied := CanView(teacher, Target{BatchID: batchID(2)}, ResourceBatchStudents)
	require.False(t, denied.Allowed)
	require.Equal(t, ReasonBatchNotAssigned, denied.Reason)
}

func TestTeacherDeniedAdminOnlyResources(t *testing.T) {
	teacher := activeTeacher(1)
	for _, resource := range []Resource{ResourceBatchFees, ResourceFeePayments, ResourceTeacherBatches, ResourceStaffDirectory} {
		decision := CanView(teacher, Target{ID: 30, Role: models.RoleStudent, Status: models.StatusActive, BatchID: batchID(1)}, resource)
		require.False(t, decision.Allowed, resource)
		require.Equal(t, ReasonRoleNotPermitted, decision.Reason)
	}
}

func TestStudentLeaderboardLimitedToOwnBatch(t *testing.T) {
	student := Requester{ID: 40, Role: models.RoleStudent, Status: models.StatusActive, BatchID: batchID(3)}

	own := CanView(student, Target{BatchID: batchID(3)}, ResourceLeaderboard)
	require.True(t, own.Allowed)
	require.True(t, own.Mask.Has(MaskFees))

	other := CanView(student, Target{BatchID: batchID(4)}, ResourceLeaderboard)
	require.False(t, other.Allowed)
	require.Equal(t, ReasonOutsideOwnBatch, other.Reason)

	profile := CanView(student, Target{ID: 41, Role: models.RoleStudent, Status: models.StatusActive}, ResourceProfile)
	require.False(t, profile.Allowed)
	require.Equal(t, ReasonRoleNotPermitted, profile.Reason)
}

func TestTeacherLeaderboardLimitedToAssignedBatches(t *testing.T) {
	teacher := activeTeacher(1)

	overall := CanView(teacher, Target{}, ResourceLeaderboard)
	require.True(t, overall.Allowed)
	require.True(t, overall.Mask.Has(MaskFees))

	own := CanView(teacher, Target{BatchID: batchID(1)}, ResourceLeaderboard)
	require.True(t, own.Allowed)

	other := CanView(teacher, Target{BatchID: batchID(2)}, ResourceLeaderboard)
	require.False(t, other.Allowed)
	require.Equal(t, ReasonBatchNotAssigned, other.Reason)
}

func TestMaskFields(t *testing.T) {
	require.Empty(t, MaskNone.Fields())
	require.False(t, MaskNone.Has(MaskFees))
	require.Contains(t, MaskFees.Fields(), "pending_fee")
}

func TestScopeSearch(t *testing.T) {
	t.Run("teacher forced to students", func(t *testing.T) {
		scope, decision := ScopeSearch(activeTeacher(1), SearchScope{Role: models.RoleAdmin})
		require.True(t, decision.Allowed)
		require.Equal(t, models.RoleStudent, scope.Role)
		require.True(t, decision.Mask.Has(MaskFees))
	})

	t.Run("teacher batch outside assignment", func(t *testing.T) {
		scope, decision := ScopeSearch(activeTeacher(1), SearchScope{BatchID: batchID(2)})
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonBatchNotAssigned, decision.Reason)
		require.Nil(t, scope.BatchID)
	})

	t.Run("admin keeps filter", func(t *testing.T) {
		admin := Requester{ID: 1, Role: models.RoleAdmin, Status: models.StatusActive}
		scope, decision := ScopeSearch(admin, SearchScope{Role: models.RoleTeacher, BatchID: batchID(2)})
		require.True(t, decision.Allowed)
		require.Equal(t, models.RoleTeacher, scope.Role)
		require.Equal(t, uint(2), *scope.BatchID)
	})

	t.Run("student denied", func(t *testing.T) {
		student := Requester{ID: 40, Role: models.RoleStudent, Status: models.StatusActive, BatchID: batchID(3)}
		_, decision := ScopeSearch(student, SearchScope{})
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonRoleNotPermitted, decision.Reason)
	})
}
