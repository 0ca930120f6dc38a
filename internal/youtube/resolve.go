package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"google.golang.org/api/googleapi"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrUnsupportedURL  = errors.New("unsupported YouTube channel URL")
)

var channelIDPattern = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)

// ChannelRef identifies a channel the way users paste it. Exactly one field is
// set.
type ChannelRef struct {
	ID       string
	Handle   string
	Username string
}

// ParseChannelURL extracts a channel reference from a channel URL, an @handle
// or a bare channel id.
func ParseChannelURL(raw string) (ChannelRef, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ChannelRef{}, ErrUnsupportedURL
	case channelIDPattern.MatchString(raw):
		return ChannelRef{ID: raw}, nil
	case strings.HasPrefix(raw, "@"):
		return ChannelRef{Handle: strings.TrimPrefix(raw, "@")}, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ChannelRef{}, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}

	host := strings.ToLower(u.Hostname())
	if host == "youtu.be" {
		return ChannelRef{}, fmt.Errorf("%w: youtu.be links point at videos", ErrUnsupportedURL)
	}
	if host != "youtube.com" && !strings.HasSuffix(host, ".youtube.com") {
		return ChannelRef{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, host)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	first := segments[0]
	var second string
	if len(segments) > 1 {
		second = segments[1]
	}

	switch {
	case first == "channel" && channelIDPattern.MatchString(second):
		return ChannelRef{ID: second}, nil
	case (first == "c" || first == "user") && second != "":
		return ChannelRef{Username: second}, nil
	case strings.HasPrefix(first, "@") && len(first) > 1:
		return ChannelRef{Handle: first[1:]}, nil
	}
	return ChannelRef{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, u.Path)
}

// Resolver turns a ChannelRef into a channel id.
type Resolver interface {
	ResolveChannel(ctx context.Context, ref ChannelRef) (string, error)
}

// ResolveChannel looks up handles and legacy usernames with channels.list.
// A ref that already carries an id costs nothing.
func (c *Client) ResolveChannel(ctx context.Context, ref ChannelRef) (string, error) {
	if ref.ID != "" {
		return ref.ID, nil
	}

	call := c.service.Channels.List([]string{"id"}).Context(ctx)
	var opts []googleapi.CallOption
	switch {
	case ref.Handle != "":
		opts = append(opts, googleapi.QueryParameter("forHandle", "@"+ref.Handle))
	case ref.Username != "":
		call = call.ForUsername(ref.Username)
	default:
		return "", ErrUnsupportedURL
	}

	resp, err := call.Do(opts...)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Id == "" {
		return "", ErrChannelNotFound
	}
	return resp.Items[0].Id, nil
}

// ResolveChannel meters lookups that reach the API. The wrapped API must
// implement Resolver.
func (m *Metered) ResolveChannel(ctx context.Context, ref ChannelRef) (string, error) {
	if ref.ID != "" {
		return ref.ID, nil
	}
	r, ok := m.api.(Resolver)
	if !ok {
		return "", fmt.Errorf("%w: channel lookup is not available", ErrUnsupportedURL)
	}
	return meter(ctx, m, "resolve", CostList, func(ctx context.Context) (string, error) {
		return r.ResolveChannel(ctx, ref)
	})
}
