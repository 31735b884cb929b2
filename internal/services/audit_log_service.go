package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/repositories"
)

const (
	defaultAuditSeverity = "info"
	defaultActorType     = "system"
)

// AuditLogServiceDeps bundles constructor inputs for the audit writer service.
type AuditLogServiceDeps struct {
	Repository repositories.AuditLogRepository
	Clock      func() time.Time
}

type auditLogService struct {
	repo  repositories.AuditLogRepository
	clock func() time.Time
}

// NewAuditLogService creates an audit log writer backed by the supplied
// repository.
func NewAuditLogService(deps AuditLogServiceDeps) (AuditLogService, error) {
	if deps.Repository == nil {
		return nil, errors.New("audit log service: repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &auditLogService{
		repo:  deps.Repository,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

// Record persists an audit entry after normalising its fields.
func (s *auditLogService) Record(ctx context.Context, entry domain.AuditLogEntry) error {
	normalized := s.normalizeEntry(entry)
	if normalized.Action == "" {
		return errors.New("audit log service: action is required")
	}
	if normalized.TargetRef == "" {
		return errors.New("audit log service: target ref is required")
	}
	if err := s.repo.Append(ctx, normalized); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByTarget retrieves the audit trail of one target, newest first.
func (s *auditLogService) ListByTarget(ctx context.Context, targetRef string, pager domain.Pagination) (domain.CursorPage[domain.AuditLogEntry], error) {
	targetRef = sanitizeText(targetRef, 200)
	if targetRef == "" {
		return domain.CursorPage[domain.AuditLogEntry]{}, errors.New("audit log service: target ref is required")
	}
	return s.repo.ListByTarget(ctx, targetRef, pager)
}

func (s *auditLogService) normalizeEntry(entry domain.AuditLogEntry) domain.AuditLogEntry {
	entry.Actor = sanitizeText(entry.Actor, 160)
	entry.ActorType = normalizeActorType(entry.ActorType, entry.Actor)
	entry.Action = sanitizeText(entry.Action, 120)
	entry.TargetRef = sanitizeText(entry.TargetRef, 200)
	entry.Severity = normalizeSeverity(entry.Severity)
	entry.RequestID = sanitizeText(entry.RequestID, 128)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock()
	} else {
		entry.CreatedAt = entry.CreatedAt.UTC()
	}
	entry.Metadata = sanitizeMetadata(entry.Metadata)
	entry.Diff = sanitizeMetadata(entry.Diff)
	return entry
}

func normalizeActorType(actorType string, actor string) string {
	normalized := strings.ToLower(strings.TrimSpace(actorType))
	switch normalized {
	case "user", "system", "service":
		return normalized
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(actor)), "user:") {
		return "user"
	}
	return defaultActorType
}

func normalizeSeverity(severity string) string {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "warn", "warning":
		return "warn"
	case "error":
		return "error"
	default:
		return defaultAuditSeverity
	}
}

func sanitizeMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	result := make(map[string]any, len(metadata))
	for key, value := range metadata {
		key = sanitizeText(key, 80)
		if key == "" {
			continue
		}
		if text, ok := value.(string); ok {
			value = sanitizeText(text, 512)
		}
		result[key] = value
	}
	return result
}

func sanitizeText(input string, limit int) string {
	if limit <= 0 {
		limit = 256
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	var builder strings.Builder
	for _, r := range input {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		builder.WriteRune(r)
		if builder.Len() >= limit {
			break
		}
	}
	return builder.String()
}
