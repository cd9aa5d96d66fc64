// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// audit.go records structural tree mutations in the database for debugging
// and the deletion-actor trail. Each entry captures which node was touched,
// the action, who asked for it, and a short free-form detail.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AuditStore handles tree mutation log operations.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Log records a structural mutation event.
func (s *AuditStore) Log(nodeID uuid.UUID, action, actor, detail string) {
	_, err := s.db.Exec(`
		INSERT INTO tree_audit_log (node_id, action, actor, detail)
		VALUES ($1, $2, $3, $4)
	`, nodeID, action, actor, detail)
	if err != nil {
		// Log but don't fail — audit logging is best-effort.
		slog.Warn("failed to log tree mutation",
			"node_id", nodeID,
			"action", action,
			"actor", actor,
			"error", err,
		)
		return
	}
	slog.Debug("tree mutation logged",
		"node_id", nodeID,
		"action", action,
		"actor", actor,
	)
}

// AuditEntry represents a single recorded tree mutation.
type AuditEntry struct {
	ID         int64     `json:"id"`
	NodeID     uuid.UUID `json:"node_id"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	Detail     string    `json:"detail"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RecentEntries returns the most recent mutation events for debugging.
func (s *AuditStore) RecentEntries(limit int) ([]AuditEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, node_id, action, actor, detail, recorded_at
		FROM tree_audit_log
		ORDER BY recorded_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	return collectAuditEntries(rows)
}

// ListByNode returns all recorded mutations for a node, newest first.
func (s *AuditStore) ListByNode(nodeID uuid.UUID) ([]AuditEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, node_id, action, actor, detail, recorded_at
		FROM tree_audit_log
		WHERE node_id = $1
		ORDER BY recorded_at DESC
	`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("query audit log by node: %w", err)
	}
	return collectAuditEntries(rows)
}

func collectAuditEntries(rows *sql.Rows) ([]AuditEntry, error) {
	defer rows.Close()
	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.NodeID, &e.Action, &e.Actor, &e.Detail, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
