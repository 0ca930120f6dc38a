package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	sqlitecloud "github.com/sqlitecloud/sqlitecloud-go"
)

// Database represents the database connection and operations
type Database struct {
	db     *sqlitecloud.SQCloud
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewDatabase creates a new database connection
func NewDatabase(dbPath string, logger zerolog.Logger) (*Database, error) {
	logger = logger.With().Str("component", "database").Logger()
	logger.Info().Str("dsn", maskConnectionString(dbPath)).Msg("connecting to SQLite Cloud")

	db, err := sqlitecloud.Connect(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite Cloud: %w", err)
	}

	database := &Database{
		db:     db,
		logger: logger,
	}

	if err := database.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return database, nil
}

// maskConnectionString hides the API key in logs
func maskConnectionString(connStr string) string {
	if before, _, found := strings.Cut(connStr, "apikey="); found {
		return before + "apikey=***"
	}
	return connStr
}

// executeSQL runs a DDL/DML statement. The client is not safe for concurrent
// use, so every call holds the lock.
func (d *Database) executeSQL(sql string, args ...interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(args) > 0 {
		return d.db.ExecuteArray(sql, args)
	}
	return d.db.Execute(sql)
}

// selectRows runs a query and returns every row as cols string values.
func (d *Database) selectRows(sql string, cols int, args ...interface{}) ([][]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var (
		result *sqlitecloud.Result
		err    error
	)
	if len(args) > 0 {
		result, err = d.db.SelectArray(sql, args)
	} else {
		result, err = d.db.Select(sql)
	}
	if err != nil {
		return nil, err
	}

	n := result.GetNumberOfRows()
	rows := make([][]string, 0, n)
	for r := uint64(0); r < n; r++ {
		row := make([]string, cols)
		for c := 0; c < cols; c++ {
			v, err := result.GetStringValue(r, uint64(c))
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", r, c, err)
			}
			row[c] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// createTables creates the necessary tables if they don't exist
func (d *Database) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS channels (
			channel_id TEXT PRIMARY KEY,
			keyword TEXT NOT NULL,
			title TEXT NOT NULL,
			subscriber_count INTEGER NOT NULL DEFAULT 0,
			video_count INTEGER NOT NULL DEFAULT 0,
			view_count INTEGER NOT NULL DEFAULT 0,
			record_json TEXT NOT NULL,
			last_updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_channels_keyword ON channels(keyword, last_updated)`,
		`CREATE TABLE IF NOT EXISTS search_history (
			id TEXT PRIMARY KEY,
			keyword TEXT NOT NULL,
			results_count INTEGER NOT NULL DEFAULT 0,
			filters_json TEXT NOT NULL,
			searched_at TEXT NOT NULL
		)`,
		createEnrichmentTable,
	}

	for _, table := range tables {
		if err := d.executeSQL(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// UpsertChannels stores the discovered channels under the keyword that found
// them, replacing any earlier copy of the same channel.
func (d *Database) UpsertChannels(keyword string, records []*ChannelRecord) error {
	sql := `INSERT INTO channels (channel_id, keyword, title, subscriber_count, video_count, view_count, record_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			keyword = excluded.keyword,
			title = excluded.title,
			subscriber_count = excluded.subscriber_count,
			video_count = excluded.video_count,
			view_count = excluded.view_count,
			record_json = excluded.record_json,
			last_updated = CURRENT_TIMESTAMP`

	keyword = normalizeKeyword(keyword)
	var errs []error
	for _, rec := range records {
		if rec == nil || rec.ChannelID == "" {
			continue
		}
		data, err := json.Marshal(rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s: %w", rec.ChannelID, err))
			continue
		}
		err = d.executeSQL(sql, rec.ChannelID, keyword, rec.Title,
			rec.SubscriberCount, rec.VideoCount, rec.ViewCount, string(data))
		if err != nil {
			errs = append(errs, fmt.Errorf("upsert %s: %w", rec.ChannelID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to upsert channels: %w", err)
	}
	d.logger.Debug().Str("keyword", keyword).Int("channels", len(records)).Msg("channels upserted")
	return nil
}

// GetCachedChannels returns channels stored for keyword today, largest first.
func (d *Database) GetCachedChannels(keyword string, limit int) ([]*ChannelRecord, error) {
	sql := `SELECT record_json FROM channels
		WHERE keyword = ? AND date(last_updated) = date('now')
		ORDER BY subscriber_count DESC, channel_id
		LIMIT ?`

	rows, err := d.selectRows(sql, 1, normalizeKeyword(keyword), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get cached channels: %w", err)
	}

	out := make([]*ChannelRecord, 0, len(rows))
	for _, row := range rows {
		var rec ChannelRecord
		if err := json.Unmarshal([]byte(row[0]), &rec); err != nil {
			d.logger.Warn().Err(err).Msg("skipping undecodable channel row")
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}

// SaveSearchHistory records one completed search
func (d *Database) SaveSearchHistory(entry SearchHistoryEntry) error {
	filters, err := json.Marshal(entry.Filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	sql := `INSERT OR REPLACE INTO search_history (id, keyword, results_count, filters_json, searched_at)
		VALUES (?, ?, ?, ?, ?)`

	err = d.executeSQL(sql, entry.ID, normalizeKeyword(entry.Keyword), entry.ResultCount,
		string(filters), entry.Timestamp.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save search history: %w", err)
	}
	return nil
}

// GetSearchHistory returns the most recent searches first
func (d *Database) GetSearchHistory(limit int) ([]SearchHistoryEntry, error) {
	sql := `SELECT id, keyword, results_count, filters_json, searched_at
		FROM search_history
		ORDER BY searched_at DESC
		LIMIT ?`

	rows, err := d.selectRows(sql, 5, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get search history: %w", err)
	}

	out := make([]SearchHistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := decodeHistoryRow(row)
		if err != nil {
			d.logger.Warn().Err(err).Msg("skipping undecodable history row")
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func decodeHistoryRow(row []string) (SearchHistoryEntry, error) {
	count, err := strconv.Atoi(row[2])
	if err != nil {
		return SearchHistoryEntry{}, fmt.Errorf("results_count: %w", err)
	}
	var filters SearchFilters
	if err := json.Unmarshal([]byte(row[3]), &filters); err != nil {
		return SearchHistoryEntry{}, fmt.Errorf("filters: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, row[4])
	if err != nil {
		return SearchHistoryEntry{}, fmt.Errorf("searched_at: %w", err)
	}
	return SearchHistoryEntry{
		ID:          row[0],
		Keyword:     row[1],
		ResultCount: count,
		Filters:     filters,
		Timestamp:   ts,
	}, nil
}

// ClearSearchHistory deletes every history entry
func (d *Database) ClearSearchHistory() error {
	if err := d.executeSQL(`DELETE FROM search_history`); err != nil {
		return fmt.Errorf("failed to clear search history: %w", err)
	}
	return nil
}

// GetPopularKeywords aggregates history by keyword, most searched first.
func (d *Database) GetPopularKeywords(limit int) ([]KeywordStats, error) {
	sql := `SELECT keyword, COUNT(*), COALESCE(SUM(results_count), 0), MAX(searched_at)
		FROM search_history
		GROUP BY keyword
		ORDER BY COUNT(*) DESC, MAX(searched_at) DESC
		LIMIT ?`

	rows, err := d.selectRows(sql, 4, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get popular keywords: %w", err)
	}

	out := make([]KeywordStats, 0, len(rows))
	for _, row := range rows {
		stats, err := decodeKeywordRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, stats)
	}
	return out, nil
}

func decodeKeywordRow(row []string) (KeywordStats, error) {
	searches, err := strconv.ParseInt(row[1], 10, 64)
	if err != nil {
		return KeywordStats{}, fmt.Errorf("search count: %w", err)
	}
	results, err := strconv.ParseInt(row[2], 10, 64)
	if err != nil {
		return KeywordStats{}, fmt.Errorf("total results: %w", err)
	}
	last, err := time.Parse(time.RFC3339, row[3])
	if err != nil {
		return KeywordStats{}, fmt.Errorf("last searched: %w", err)
	}
	return KeywordStats{Keyword: row[0], SearchCount: searches, TotalResults: results, LastSearched: last}, nil
}

// GetStats summarises the stored searches and channels
func (d *Database) GetStats() (DatabaseStats, error) {
	sql := `SELECT
		(SELECT COUNT(*) FROM search_history),
		(SELECT COUNT(*) FROM channels),
		(SELECT COUNT(DISTINCT keyword) FROM search_history)`

	rows, err := d.selectRows(sql, 3)
	if err != nil {
		return DatabaseStats{}, fmt.Errorf("failed to get stats: %w", err)
	}
	if len(rows) == 0 {
		return DatabaseStats{}, nil
	}

	var counts [3]int64
	for i := range counts {
		if counts[i], err = strconv.ParseInt(rows[0][i], 10, 64); err != nil {
			return DatabaseStats{}, fmt.Errorf("failed to parse stats: %w", err)
		}
	}
	return DatabaseStats{TotalSearches: counts[0], TotalChannels: counts[1], UniqueKeywords: counts[2]}, nil
}

func normalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// Close closes the database connection
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
