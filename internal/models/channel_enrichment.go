package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EnrichmentType represents the kind of cached enrichment data
type EnrichmentType string

const (
	EnrichmentMetrics  EnrichmentType = "metrics"
	EnrichmentContacts EnrichmentType = "contacts"
)

// ChannelEnrichment represents a record in the channel_enrichment table
type ChannelEnrichment struct {
	ID             int64           `json:"id"`
	ChannelID      string          `json:"channel_id"`
	EnrichmentType EnrichmentType  `json:"enrichment_type"`
	CreateDate     time.Time       `json:"create_date"`
	UpdateDate     time.Time       `json:"update_date"`
	JSONResponse   json.RawMessage `json:"json_response"`
}

const createEnrichmentTable = `CREATE TABLE IF NOT EXISTS channel_enrichment (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_id TEXT NOT NULL,
	enrichment_type TEXT NOT NULL CHECK(enrichment_type IN ('metrics', 'contacts')),
	create_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	update_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	json_response TEXT NOT NULL,
	CONSTRAINT unique_channel_enrichment UNIQUE(channel_id, enrichment_type)
)`

const sqliteTimestamp = "2006-01-02 15:04:05"

// StoreEnrichment inserts or refreshes the cached enrichment for a channel
func (d *Database) StoreEnrichment(channelID string, kind EnrichmentType, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s enrichment: %w", kind, err)
	}

	sql := `INSERT INTO channel_enrichment (channel_id, enrichment_type, json_response)
		VALUES (?, ?, ?)
		ON CONFLICT(channel_id, enrichment_type)
		DO UPDATE SET json_response = excluded.json_response, update_date = CURRENT_TIMESTAMP`

	if err := d.executeSQL(sql, channelID, string(kind), string(data)); err != nil {
		return fmt.Errorf("failed to store %s enrichment for %s: %w", kind, channelID, err)
	}
	d.logger.Debug().Str("channel_id", channelID).Str("type", string(kind)).Msg("enrichment stored")
	return nil
}

// GetLatestEnrichment retrieves the cached enrichment for a channel and type.
// It returns nil without error when nothing is cached.
func (d *Database) GetLatestEnrichment(channelID string, kind EnrichmentType) (*ChannelEnrichment, error) {
	sql := `SELECT id, channel_id, enrichment_type, create_date, update_date, json_response
		FROM channel_enrichment
		WHERE channel_id = ? AND enrichment_type = ?
		ORDER BY update_date DESC LIMIT 1`

	rows, err := d.selectRows(sql, 6, channelID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to get latest enrichment: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	fields := rows[0]

	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse id: %w", err)
	}
	createDate, err := time.Parse(sqliteTimestamp, fields[3])
	if err != nil {
		return nil, fmt.Errorf("failed to parse create_date: %w", err)
	}
	updateDate, err := time.Parse(sqliteTimestamp, fields[4])
	if err != nil {
		return nil, fmt.Errorf("failed to parse update_date: %w", err)
	}

	return &ChannelEnrichment{
		ID:             id,
		ChannelID:      fields[1],
		EnrichmentType: EnrichmentType(fields[2]),
		CreateDate:     createDate,
		UpdateDate:     updateDate,
		JSONResponse:   json.RawMessage(fields[5]),
	}, nil
}

// LoadEnrichment decodes a cached enrichment into dst when one exists and is
// younger than maxAge. A non-positive maxAge accepts any age.
func (d *Database) LoadEnrichment(channelID string, kind EnrichmentType, maxAge time.Duration, dst any) (bool, error) {
	rec, err := d.GetLatestEnrichment(channelID, kind)
	if err != nil || rec == nil {
		return false, err
	}
	if maxAge > 0 && time.Since(rec.UpdateDate) > maxAge {
		return false, nil
	}
	if err := json.Unmarshal(rec.JSONResponse, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s enrichment: %w", kind, err)
	}
	return true, nil
}
