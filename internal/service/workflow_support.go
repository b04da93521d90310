package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
)

var errKeywordsRequired = appErrors.Clone(appErrors.ErrValidation, "at least one keyword is required")

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// auditTrail writes best-effort audit rows; failures are logged, never returned.
type auditTrail struct {
	repo   auditLogger
	source string
	logger *zap.Logger
}

func (a auditTrail) record(ctx context.Context, actor *models.JWTClaims, action, resource, resourceID string, before, after interface{}) {
	if a.repo == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		OldValues:  marshalAudit(before),
		NewValues:  marshalAudit(after),
		IPAddress:  "system",
		UserAgent:  a.source,
	}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if err := a.repo.CreateAuditLog(ctx, entry); err != nil {
		a.logger.Warn("failed to persist audit log", zap.String("action", action), zap.String("resource_id", resourceID), zap.Error(err))
	}
}

func marshalAudit(value interface{}) []byte {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return payload
}

func optionalString(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}

// checkVersion rejects a client-supplied version that no longer matches.
func checkVersion(expected *int, current int) error {
	if expected != nil && *expected != current {
		return appErrors.ErrConflict
	}
	return nil
}

func validatePayload(v *validator.Validate, payload interface{}, message string) error {
	if err := v.Struct(payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	return nil
}

func isReviewer(actor *models.JWTClaims) bool {
	return actor != nil && (actor.Role == models.RoleAdmin || actor.Role == models.RoleSuperAdmin)
}

// cleanKeywords trims, drops empties and de-duplicates case-insensitively,
// keeping first-seen order.
func cleanKeywords(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, kw := range raw {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// sameContent reports whether a resubmission repeats the stored content.
// Keywords compare as case-insensitive sets.
func sameContent(current *models.ThesisSubmission, title, abstract string, keywords []string) bool {
	if current.Title != title || current.Abstract != abstract || len(current.Keywords) != len(keywords) {
		return false
	}
	stored := make(map[string]struct{}, len(current.Keywords))
	for _, kw := range current.Keywords {
		stored[strings.ToLower(kw)] = struct{}{}
	}
	for _, kw := range keywords {
		if _, ok := stored[strings.ToLower(kw)]; !ok {
			return false
		}
	}
	return true
}
