package committee

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
)

// Requirement lists the roles a committee must fill for one exam type.
type Requirement struct {
	Roles        []models.CommitteeRole
	MinExaminers int
}

// Policy is the required-role table keyed by exam type plus the examiner cap.
type Policy struct {
	MaxExaminers int
	Requirements map[models.ExamType]Requirement
}

// DefaultPolicy is the faculty's standard committee composition.
func DefaultPolicy() Policy {
	base := []models.CommitteeRole{models.RoleSupervisor1, models.RoleChair}
	return Policy{
		MaxExaminers: 3,
		Requirements: map[models.ExamType]Requirement{
			models.ExamTypeProposal: {Roles: base, MinExaminers: 1},
			models.ExamTypeResult:   {Roles: base, MinExaminers: 1},
			models.ExamTypeFinal: {
				Roles:        []models.CommitteeRole{models.RoleSupervisor1, models.RoleSupervisor2, models.RoleChair, models.RoleSecretary},
				MinExaminers: 1,
			},
		},
	}
}

// PolicyFromConfig builds a policy from raw role names; exam types missing in
// required fall back to DefaultPolicy.
func PolicyFromConfig(maxExaminers int, required map[string][]string, minExaminers map[string]int) (Policy, error) {
	policy := DefaultPolicy()
	if maxExaminers > 0 {
		policy.MaxExaminers = maxExaminers
	}
	for rawType, names := range required {
		examType := models.ExamType(strings.ToLower(strings.TrimSpace(rawType)))
		if !examType.Valid() {
			return Policy{}, fmt.Errorf("unknown exam type %q in committee policy", rawType)
		}
		if len(names) == 0 {
			continue
		}
		req := Requirement{MinExaminers: policy.Requirements[examType].MinExaminers}
		for _, name := range names {
			role, err := policy.ParseRole(name)
			if err != nil {
				return Policy{}, err
			}
			req.Roles = append(req.Roles, role)
		}
		policy.Requirements[examType] = req
	}
	for rawType, min := range minExaminers {
		examType := models.ExamType(strings.ToLower(strings.TrimSpace(rawType)))
		req, ok := policy.Requirements[examType]
		if !ok || min < 0 {
			continue
		}
		if min > policy.MaxExaminers {
			return Policy{}, fmt.Errorf("exam type %s requires %d examiners but only %d seats exist", examType, min, policy.MaxExaminers)
		}
		req.MinExaminers = min
		policy.Requirements[examType] = req
	}
	return policy, nil
}

// ParseRole validates a role name against the catalogue.
func (p Policy) ParseRole(raw string) (models.CommitteeRole, error) {
	role := models.CommitteeRole(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case models.RoleSupervisor1, models.RoleSupervisor2, models.RoleChair, models.RoleSecretary:
		return role, nil
	}
	if role.IsExaminer() {
		n, err := strconv.Atoi(string(role)[len("examiner_"):])
		if err == nil && n >= 1 && n <= p.MaxExaminers {
			return role, nil
		}
	}
	return "", fmt.Errorf("unknown committee role %q", raw)
}

// Roles lists every seat in catalogue order.
func (p Policy) Roles() []models.CommitteeRole {
	roles := []models.CommitteeRole{models.RoleSupervisor1, models.RoleSupervisor2, models.RoleChair, models.RoleSecretary}
	for i := 1; i <= p.MaxExaminers; i++ {
		roles = append(roles, models.CommitteeRole(fmt.Sprintf("examiner_%d", i)))
	}
	return roles
}

// Missing returns the unmet requirements for the assignment's exam type.
// Examiner shortfalls are reported as "examiner" entries.
func (p Policy) Missing(a *models.CommitteeAssignment, examType models.ExamType) []string {
	req, ok := p.Requirements[examType]
	if !ok {
		return []string{fmt.Sprintf("policy for %s", examType)}
	}
	missing := make([]string, 0)
	for _, role := range req.Roles {
		if _, filled := a.Member(role); !filled {
			missing = append(missing, string(role))
		}
	}
	examiners := 0
	for _, m := range a.Members {
		if m.Role.IsExaminer() {
			examiners++
		}
	}
	for i := examiners; i < req.MinExaminers; i++ {
		missing = append(missing, "examiner")
	}
	sort.Strings(missing)
	return missing
}

// IsComplete reports whether every required role for examType is filled.
func (p Policy) IsComplete(a *models.CommitteeAssignment, examType models.ExamType) bool {
	return len(p.Missing(a, examType)) == 0
}
