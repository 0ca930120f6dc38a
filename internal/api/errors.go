package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yt-discovery/internal/discovery"
	"github.com/yt-discovery/internal/youtube"
)

var (
	errNotFound     = errors.New("search result not found or expired")
	errNoStore      = errors.New("database not configured")
	errBadFormat    = errors.New("invalid export format, use csv or json")
	errMissingQuery = errors.New("url query parameter is required")
)

// statusFor maps an error onto an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	var upErr *youtube.UpstreamError
	switch {
	case errors.Is(err, discovery.ErrEmptyKeyword),
		errors.Is(err, youtube.ErrUnsupportedURL),
		errors.Is(err, errBadFormat),
		errors.Is(err, errMissingQuery):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, youtube.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, youtube.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "quota_exceeded"
	case errors.Is(err, youtube.ErrChannelNotFound), errors.Is(err, errNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errNoStore):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.As(err, &upErr):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "canceled"
	}
	return http.StatusInternalServerError, "internal_error"
}

func (s *Server) respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": code})
}
