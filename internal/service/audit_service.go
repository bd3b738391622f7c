package service

import (
	"context"
	"encoding/json"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/apperror"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/repository"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id,omitempty"`
	Username   string      `json:"username,omitempty"`
	Action     string      `json:"action"`
	EntityID   string      `json:"entity_id"`
	EntityName string      `json:"entity_name,omitempty"`
	Details    interface{} `json:"details,omitempty"`
	CreatedAt  string      `json:"created_at"`
}

type AuditService interface {
	List(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) List(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	logs, total, err := s.auditRepo.List(ctx, action, page, limit)
	if err != nil {
		return nil, 0, apperror.NewInternal("failed to list audit logs", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, entry := range logs {
		item := AuditLogResponse{
			ID:         entry.ID.String(),
			Action:     entry.Action,
			EntityID:   entry.EntityID,
			EntityName: entry.EntityName,
			CreatedAt:  entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if entry.UserID != nil {
			item.UserID = entry.UserID.String()
		}
		if entry.User != nil {
			item.Username = entry.User.Username
		}
		if entry.Details != "" {
			var details interface{}
			if unmarshalErr := json.Unmarshal([]byte(entry.Details), &details); unmarshalErr == nil {
				item.Details = details
			}
		}
		res = append(res, item)
	}
	return res, total, nil
}

// auditEntry writes a single audit row inside the caller's transaction.
// A userID that does not parse as a UUID is stored as NULL rather than
// failing the business operation.
func auditEntry(ctx context.Context, auditRepo repository.AuditRepository, userID, action, entityID, entityName string, details interface{}) error {
	entry := model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		entry.UserID = &parsed
	}
	if details != nil {
		if payload, err := json.Marshal(details); err == nil {
			entry.Details = string(payload)
		}
	}
	if err := auditRepo.Log(ctx, &entry); err != nil {
		return apperror.NewInternal("failed to write audit log", err)
	}
	return nil
}
