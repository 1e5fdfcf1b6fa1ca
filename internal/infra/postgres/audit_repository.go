package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const auditDDL = `CREATE TABLE IF NOT EXISTS label_audit (
	id BIGSERIAL PRIMARY KEY,
	order_ref TEXT NOT NULL,
	recipient_name TEXT NOT NULL,
	requested_language TEXT NOT NULL,
	resolved_language TEXT NOT NULL,
	logo_fallback BOOLEAN NOT NULL DEFAULT false,
	pdf_bytes INTEGER NOT NULL,
	request_id TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// AuditEntry describes one generated label.
type AuditEntry struct {
	OrderRef          string
	Name              string
	RequestedLanguage string
	ResolvedLanguage  string
	LogoFallback      bool
	PDFBytes          int
	RequestID         string
	CreatedAt         time.Time
}

// AuditRepository appends generated labels to label_audit.
type AuditRepository struct {
	DB  *DB
	DSN string

	mu          sync.Mutex
	schemaReady bool
}

// NewAuditRepository records into the database at dsn.
func NewAuditRepository(db *DB, dsn string) *AuditRepository {
	return &AuditRepository{DB: db, DSN: dsn}
}

// Record inserts entry, creating the table on first use.
func (r *AuditRepository) Record(ctx context.Context, entry AuditEntry) error {
	db, err := r.DB.Get(r.DSN)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if !r.schemaReady {
		if _, err := db.ExecContext(ctx, auditDDL); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("ensure audit schema: %w", err)
		}
		r.schemaReady = true
	}
	r.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO label_audit (order_ref, recipient_name, requested_language, resolved_language, logo_fallback, pdf_bytes, request_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.OrderRef, entry.Name, entry.RequestedLanguage, entry.ResolvedLanguage,
		entry.LogoFallback, entry.PDFBytes, entry.RequestID, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
