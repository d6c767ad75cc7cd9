package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	auditdomain "github.com/paylinelabs/payline/internal/audit/domain"
	"gorm.io/gorm"
)

type ExportService struct {
	db *gorm.DB
}

func NewExportService(db *gorm.DB) auditdomain.ExportService {
	return &ExportService{db: db}
}

func (s *ExportService) Export(ctx context.Context, req auditdomain.ExportRequest) (*auditdomain.ExportResult, error) {
	query := s.db.WithContext(ctx).Model(&auditdomain.AuditLog{}).
		Where("created_at >= ? AND created_at < ?", req.StartDate, req.EndDate)

	if len(req.Actions) > 0 {
		query = query.Where("action IN ?", req.Actions)
	}

	var logs []auditdomain.AuditLog
	if err := query.Order("created_at ASC").Find(&logs).Error; err != nil {
		return nil, err
	}

	var data []byte
	var err error

	switch req.Format {
	case auditdomain.ExportFormatCSV:
		data, err = s.formatCSV(logs)
	case auditdomain.ExportFormatJSON:
		data, err = s.formatJSON(logs)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", req.Format)
	}

	if err != nil {
		return nil, err
	}

	// Checksum lets a consumer verify the archive after download.
	checksum := calculateChecksum(data)

	return &auditdomain.ExportResult{
		Data:     data,
		Checksum: checksum,
		Format:   req.Format,
		Count:    len(logs),
	}, nil
}

func (s *ExportService) formatCSV(logs []auditdomain.AuditLog) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"timestamp",
		"actor_user_id",
		"action",
		"entity_type",
		"entity_id",
		"details",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, log := range logs {
		row := []string{
			log.CreatedAt.Format(time.RFC3339),
			formatStringPtr(log.ActorUserID),
			log.Action,
			log.EntityType,
			log.EntityID,
			string(log.Details),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (s *ExportService) formatJSON(logs []auditdomain.AuditLog) ([]byte, error) {
	type ExportRecord struct {
		Timestamp   string          `json:"timestamp"`
		ActorUserID string          `json:"actor_user_id,omitempty"`
		Action      string          `json:"action"`
		EntityType  string          `json:"entity_type"`
		EntityID    string          `json:"entity_id"`
		Details     json.RawMessage `json:"details,omitempty"`
	}

	records := make([]ExportRecord, 0, len(logs))
	for _, log := range logs {
		records = append(records, ExportRecord{
			Timestamp:   log.CreatedAt.Format(time.RFC3339),
			ActorUserID: formatStringPtr(log.ActorUserID),
			Action:      log.Action,
			EntityType:  log.EntityType,
			EntityID:    log.EntityID,
			Details:     json.RawMessage(log.Details),
		})
	}

	return json.MarshalIndent(records, "", "  ")
}

func formatStringPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func calculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
