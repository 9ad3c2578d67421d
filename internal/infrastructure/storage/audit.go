package storage

import (
	"database/sql"
	"fmt"
)

// AppendAudit writes one entry to the append-only audit log.
func (s *Storage) AppendAudit(entry *AuditEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO audit_log (actor, action, entity_kind, entity_id, detail)
		VALUES (?, ?, ?, ?, ?)
	`, entry.Actor, entry.Action, entry.EntityKind, entry.EntityID, entry.Detail)
	return err
}

// appendAuditTx writes an audit entry inside an open transaction, so the
// entry lands atomically with the mutation it describes.
func appendAuditTx(tx *sql.Tx, entry *AuditEntry) error {
	_, err := tx.Exec(`
		INSERT INTO audit_log (actor, action, entity_kind, entity_id, detail)
		VALUES (?, ?, ?, ?, ?)
	`, entry.Actor, entry.Action, entry.EntityKind, entry.EntityID, entry.Detail)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListAudit returns the audit entries for one entity, oldest first.
func (s *Storage) ListAudit(entityKind, entityID string) ([]*AuditEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, actor, action, entity_kind, entity_id, detail, created_at
		FROM audit_log
		WHERE entity_kind = ? AND entity_id = ?
		ORDER BY id
	`, entityKind, entityID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []*AuditEntry
	for rows.Next() {
		e := &AuditEntry{}
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.EntityKind, &e.EntityID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
