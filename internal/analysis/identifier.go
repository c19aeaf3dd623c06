package analysis

import (
	"regexp"
	"strings"
)

var (
	channelIDRegex = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)

	channelURLRegex = regexp.MustCompile(`youtube\.com/channel/([a-zA-Z0-9_-]+)`)
	handleURLRegex  = regexp.MustCompile(`youtube\.com/@([a-zA-Z0-9._-]+)`)
	customURLRegex  = regexp.MustCompile(`youtube\.com/c/([a-zA-Z0-9_-]+)`)
	userURLRegex    = regexp.MustCompile(`youtube\.com/user/([a-zA-Z0-9_-]+)`)
)

// RefKind describes how a channel reference must be resolved.
type RefKind int

const (
	// RefChannelID needs no provider call.
	RefChannelID RefKind = iota
	// RefHandle is an @handle, resolved via a provider search.
	RefHandle
	// RefCustom is a /c/ custom URL, resolved via a provider search.
	RefCustom
	// RefUsername is a legacy /user/ name, resolved via channels.list forUsername.
	RefUsername
)

// ChannelRef is a parsed channel reference.
type ChannelRef struct {
	Kind  RefKind
	Value string
}

// ParseChannelRef normalizes a free-form channel reference (bare ID, or one of
// the supported youtube.com URL forms) into a ChannelRef. Parsing is pure;
// resolving handle/custom/user references to an ID requires the provider.
func ParseChannelRef(raw string) (ChannelRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ChannelRef{}, ErrInvalidIdentifier
	}

	// Bare channel ID
	if channelIDRegex.MatchString(raw) {
		return ChannelRef{Kind: RefChannelID, Value: raw}, nil
	}

	if m := channelURLRegex.FindStringSubmatch(raw); m != nil {
		if !channelIDRegex.MatchString(m[1]) {
			return ChannelRef{}, ErrInvalidIdentifier
		}
		return ChannelRef{Kind: RefChannelID, Value: m[1]}, nil
	}

	if m := handleURLRegex.FindStringSubmatch(raw); m != nil {
		return ChannelRef{Kind: RefHandle, Value: m[1]}, nil
	}

	if m := customURLRegex.FindStringSubmatch(raw); m != nil {
		return ChannelRef{Kind: RefCustom, Value: m[1]}, nil
	}

	if m := userURLRegex.FindStringSubmatch(raw); m != nil {
		return ChannelRef{Kind: RefUsername, Value: m[1]}, nil
	}

	// Bare @handle
	if strings.HasPrefix(raw, "@") && len(raw) > 1 {
		return ChannelRef{Kind: RefHandle, Value: raw[1:]}, nil
	}

	return ChannelRef{}, ErrInvalidIdentifier
}

// IsChannelID reports whether s is a well-formed provider channel ID.
func IsChannelID(s string) bool {
	return channelIDRegex.MatchString(s)
}
