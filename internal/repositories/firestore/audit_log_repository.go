package firestore

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"

	domain "github.com/catalix/pim-api/internal/domain"
	pfirestore "github.com/catalix/pim-api/internal/platform/firestore"
	"github.com/catalix/pim-api/internal/platform/pagination"
)

const auditLogsCollection = "auditLogs"

type auditLogDocument struct {
	ID        string         `firestore:"id"`
	Actor     string         `firestore:"actor,omitempty"`
	ActorType string         `firestore:"actorType,omitempty"`
	Action    string         `firestore:"action"`
	TargetRef string         `firestore:"targetRef"`
	Metadata  map[string]any `firestore:"metadata,omitempty"`
	Diff      map[string]any `firestore:"diff,omitempty"`
	RequestID string         `firestore:"requestId,omitempty"`
	Severity  string         `firestore:"severity,omitempty"`
	CreatedAt time.Time      `firestore:"createdAt"`
}

// AuditLogRepository appends immutable audit entries for catalog mutations.
type AuditLogRepository struct {
	base *pfirestore.BaseRepository[auditLogDocument]
	now  func() time.Time
}

// NewAuditLogRepository constructs a Firestore-backed audit log repository.
func NewAuditLogRepository(provider *pfirestore.Provider) (*AuditLogRepository, error) {
	if provider == nil {
		return nil, errors.New("audit log repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[auditLogDocument](provider, auditLogsCollection, nil, nil)
	return &AuditLogRepository{base: base, now: time.Now}, nil
}

// Append stores a new audit entry. A missing id or timestamp is filled in.
func (r *AuditLogRepository) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	if r == nil || r.base == nil {
		return errors.New("audit log repository not initialised")
	}
	if strings.TrimSpace(entry.Action) == "" {
		return errors.New("audit log repository: action is required")
	}
	if strings.TrimSpace(entry.TargetRef) == "" {
		return errors.New("audit log repository: target ref is required")
	}

	now := r.now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if strings.TrimSpace(entry.ID) == "" {
		entropy := ulid.Monotonic(rand.New(rand.NewSource(now.UnixNano())), 0)
		entry.ID = ulid.MustNew(ulid.Timestamp(now), entropy).String()
	}

	doc := auditLogDocument{
		ID:        entry.ID,
		Actor:     entry.Actor,
		ActorType: entry.ActorType,
		Action:    entry.Action,
		TargetRef: entry.TargetRef,
		Metadata:  entry.Metadata,
		Diff:      entry.Diff,
		RequestID: entry.RequestID,
		Severity:  entry.Severity,
		CreatedAt: entry.CreatedAt.UTC(),
	}
	return r.base.Create(ctx, entry.ID, doc)
}

// ListByTarget returns entries for a target ordered newest first. The page
// token carries the offset into the ULID-ordered sequence.
func (r *AuditLogRepository) ListByTarget(ctx context.Context, targetRef string, pager domain.Pagination) (domain.CursorPage[domain.AuditLogEntry], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.AuditLogEntry]{}, errors.New("audit log repository not initialised")
	}
	targetRef = strings.TrimSpace(targetRef)
	if targetRef == "" {
		return domain.CursorPage[domain.AuditLogEntry]{}, errors.New("audit log repository: target ref is required")
	}

	limit := pager.PageSize
	if limit <= 0 {
		limit = pagination.DefaultPageSize
	}
	cursor, err := pagination.DecodeToken(pager.PageToken)
	if err != nil {
		return domain.CursorPage[domain.AuditLogEntry]{}, err
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("targetRef", "==", targetRef).OrderBy("createdAt", firestore.Desc)
		if cursor.LastID > 0 {
			q = q.StartAfter(time.UnixMilli(cursor.LastID).UTC())
		}
		return q.Limit(limit + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.AuditLogEntry]{}, err
	}

	entries := make([]domain.AuditLogEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, domain.AuditLogEntry{
			ID:        doc.Data.ID,
			Actor:     doc.Data.Actor,
			ActorType: doc.Data.ActorType,
			Action:    doc.Data.Action,
			TargetRef: doc.Data.TargetRef,
			Metadata:  doc.Data.Metadata,
			Diff:      doc.Data.Diff,
			RequestID: doc.Data.RequestID,
			Severity:  doc.Data.Severity,
			CreatedAt: doc.Data.CreatedAt,
		})
	}

	page := domain.CursorPage[domain.AuditLogEntry]{Items: entries}
	if len(entries) > limit {
		page.Items = entries[:limit]
		last := page.Items[limit-1]
		token, err := pagination.EncodeToken(pagination.Cursor{LastID: last.CreatedAt.UnixMilli()})
		if err != nil {
			return domain.CursorPage[domain.AuditLogEntry]{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}
