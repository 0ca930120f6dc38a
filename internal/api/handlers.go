package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yt-discovery/internal/cache"
	"github.com/yt-discovery/internal/discovery"
	"github.com/yt-discovery/internal/models"
	"github.com/yt-discovery/internal/youtube"
)

// searchRequest is the body of POST /search. JSON bodies are bound
// strictly; form posts are parsed leniently and ignore malformed numbers.
type searchRequest struct {
	Keyword    string               `json:"keyword"`
	Filters    models.SearchFilters `json:"filters"`
	MaxResults int                  `json:"max_results"`
	Sort       string               `json:"sort"`
	Refresh    bool                 `json:"refresh"`
}

func (s *Server) bindSearch(c *gin.Context) (searchRequest, error) {
	var req searchRequest
	if c.ContentType() == gin.MIMEJSON {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, err
		}
	} else {
		req = searchRequest{
			Keyword: c.PostForm("keyword"),
			Filters: models.SearchFilters{
				MinSubscribers:     formInt(c, "min_subscribers"),
				MaxSubscribers:     formInt(c, "max_subscribers"),
				MinVideos:          formInt(c, "min_videos"),
				MaxVideos:          formInt(c, "max_videos"),
				MinUploadFrequency: formFloat(c, "min_upload_frequency"),
			},
			Sort: c.PostForm("sort"),
		}
		if days := formInt(c, "max_days_since_upload"); days != nil {
			d := int(*days)
			req.Filters.MaxDaysSinceUpload = &d
		}
		if n := formInt(c, "max_results"); n != nil {
			req.MaxResults = int(*n)
		}
		req.Refresh, _ = strconv.ParseBool(c.PostForm("refresh"))
	}

	req.Keyword = strings.TrimSpace(req.Keyword)
	switch {
	case req.MaxResults <= 0:
		req.MaxResults = DefaultMaxResults
	case req.MaxResults > s.maxResults:
		req.MaxResults = s.maxResults
	}
	return req, nil
}

func formInt(c *gin.Context, key string) *int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(c.PostForm(key)), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func formFloat(c *gin.Context, key string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm(key)), 64)
	if err != nil {
		return nil
	}
	return &f
}

// search handles POST /search
func (s *Server) search(c *gin.Context) {
	req, err := s.bindSearch(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_request"})
		return
	}
	if req.Keyword == "" {
		s.respondError(c, discovery.ErrEmptyKeyword)
		return
	}

	ctx := c.Request.Context()
	sortOrder := models.ParseSortOrder(req.Sort)
	key := cache.SearchKey(req.Keyword, req.Filters, sortOrder, req.MaxResults)

	if !req.Refresh {
		if res, ok := s.results.Get(ctx, key); ok {
			res.Cached = true
			res.QuotaStatus = s.engine.QuotaStatus()
			c.JSON(http.StatusOK, res)
			return
		}
		if res, ok := s.storedResult(req, sortOrder); ok {
			s.results.Put(ctx, key, res)
			s.saveHistory(res, req.Filters)
			c.JSON(http.StatusOK, res)
			return
		}
	}

	res, err := s.engine.Discover(ctx, discovery.Request{
		Keyword:     req.Keyword,
		TargetCount: req.MaxResults,
		Filters:     req.Filters,
		Sort:        sortOrder,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.results.Put(ctx, key, res)
	s.persist(res, req.Filters)
	c.JSON(http.StatusOK, res)
}

// storedResult answers a search from channels stored today when enough of
// them pass the filters.
func (s *Server) storedResult(req searchRequest, order models.SortOrder) (*models.DiscoveryResult, bool) {
	if s.store == nil {
		return nil, false
	}
	recs, err := s.store.GetCachedChannels(req.Keyword, storedChannelLimit)
	if err != nil {
		s.logger.Warn().Err(err).Str("keyword", req.Keyword).Msg("Failed to read stored channels")
		return nil, false
	}

	now := s.now()
	var matched []*models.ChannelRecord
	for _, rec := range recs {
		if req.Filters.PassesStructural(rec.SubscriberCount, rec.VideoCount) &&
			req.Filters.PassesActivity(rec.QualityMetrics, now) {
			matched = append(matched, rec)
		}
	}
	if len(matched) < req.MaxResults {
		return nil, false
	}

	discovery.SortChannels(matched, order)
	return &models.DiscoveryResult{
		SearchID:         uuid.NewString(),
		Keyword:          req.Keyword,
		Channels:         matched[:req.MaxResults],
		TotalFound:       len(matched),
		KeywordsSearched: []string{req.Keyword},
		QuotaStatus:      s.engine.QuotaStatus(),
		Cached:           true,
		GeneratedAt:      now.UTC(),
	}, true
}

// persist records the search and its channels. Storage failures never fail
// the request.
func (s *Server) persist(res *models.DiscoveryResult, filters models.SearchFilters) {
	if s.store == nil || len(res.Channels) == 0 {
		return
	}
	s.saveHistory(res, filters)
	if err := s.store.UpsertChannels(res.Keyword, res.Channels); err != nil {
		s.logger.Warn().Err(err).Str("search_id", res.SearchID).Str("keyword", res.Keyword).Msg("Failed to store channels")
	}
}

func (s *Server) saveHistory(res *models.DiscoveryResult, filters models.SearchFilters) {
	if s.store == nil || len(res.Channels) == 0 {
		return
	}
	err := s.store.SaveSearchHistory(models.SearchHistoryEntry{
		ID:          res.SearchID,
		Keyword:     res.Keyword,
		ResultCount: len(res.Channels),
		Filters:     filters,
		Timestamp:   res.GeneratedAt,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("search_id", res.SearchID).Str("keyword", res.Keyword).Msg("Failed to save search history")
	}
}

// getResults handles GET /results/:id
func (s *Server) getResults(c *gin.Context) {
	res, ok := s.results.ByID(c.Request.Context(), c.Param("id"))
	if !ok {
		s.respondError(c, errNotFound)
		return
	}
	c.JSON(http.StatusOK, res)
}

// export handles GET /export/:id/:format
func (s *Server) export(c *gin.Context) {
	format := strings.ToLower(c.Param("format"))
	if format != "csv" && format != "json" {
		s.respondError(c, errBadFormat)
		return
	}
	res, ok := s.results.ByID(c.Request.Context(), c.Param("id"))
	if !ok {
		s.respondError(c, errNotFound)
		return
	}

	now := s.now()
	c.Header("Content-Disposition", "attachment; filename="+exportFilename(res.Keyword, format, now))

	switch format {
	case "csv":
		data, err := ChannelsCSV(res.Channels, now)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/csv", data)
	case "json":
		data, err := ChannelsJSON(res.Keyword, res.Channels, now)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/json", data)
	}
}

// getChannelByID handles GET /channel/:id
func (s *Server) getChannelByID(c *gin.Context) {
	rec, err := s.engine.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// getChannelByURL handles GET /channel/url?url=
func (s *Server) getChannelByURL(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		s.respondError(c, errMissingQuery)
		return
	}
	ref, err := youtube.ParseChannelURL(raw)
	if err != nil {
		s.respondError(c, err)
		return
	}

	channelID := ref.ID
	if channelID == "" {
		if s.resolver == nil {
			s.respondError(c, youtube.ErrUnauthenticated)
			return
		}
		if channelID, err = s.resolver.ResolveChannel(c.Request.Context(), ref); err != nil {
			s.respondError(c, err)
			return
		}
	}

	rec, err := s.engine.Lookup(c.Request.Context(), channelID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// getHistory handles GET /history
func (s *Server) getHistory(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"history": []models.SearchHistoryEntry{}, "db_connected": false})
		return
	}
	limit := DefaultHistoryLimit
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		limit = n
	}

	history, err := s.store.GetSearchHistory(limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history, "db_connected": true})
}

// clearHistory handles DELETE /history
func (s *Server) clearHistory(c *gin.Context) {
	if s.store == nil {
		s.respondError(c, errNoStore)
		return
	}
	if err := s.store.ClearSearchHistory(); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// getStats handles GET /stats
func (s *Server) getStats(c *gin.Context) {
	if s.store == nil {
		s.respondError(c, errNoStore)
		return
	}
	stats, err := s.store.GetStats()
	if err != nil {
		s.respondError(c, err)
		return
	}
	popular, err := s.store.GetPopularKeywords(popularKeywordLimit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_searches":   stats.TotalSearches,
		"total_channels":   stats.TotalChannels,
		"unique_keywords":  stats.UniqueKeywords,
		"popular_keywords": popular,
	})
}

// getQuotaStatus handles GET /api/quota-status
func (s *Server) getQuotaStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.QuotaStatus())
}
