package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/chanlytics/channel-analysis-go/internal/analysis"
	"github.com/chanlytics/channel-analysis-go/internal/db/models"
)

// Client wraps the YouTube Data API v3 client. It implements
// analysis.MetadataProvider: one API call per method, no quota accounting
// of its own.
type Client struct {
	service *youtube.Service
	timeout time.Duration
}

// NewClient creates a new YouTube API client.
func NewClient(apiKey string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}

	service, err := youtube.NewService(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		service: service,
		timeout: timeout,
	}, nil
}

// ChannelByID fetches channel metadata including the uploads playlist ID.
func (c *Client) ChannelByID(ctx context.Context, channelID string) (*models.Channel, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.service.Channels.
		List([]string{"snippet", "statistics", "contentDetails"}).
		Id(channelID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapAPIError("channels.list", err)
	}
	if len(response.Items) == 0 {
		return nil, fmt.Errorf("channel %s: %w", channelID, analysis.ErrNotFound)
	}

	return mapChannel(response.Items[0]), nil
}

// PlaylistPage fetches one page (up to 50 items) of a playlist. The returned
// token is empty on the last page.
func (c *Client) PlaylistPage(ctx context.Context, playlistID, pageToken string) ([]*models.Video, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := c.service.PlaylistItems.
		List([]string{"snippet", "contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(50).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	response, err := call.Do()
	if err != nil {
		return nil, "", mapAPIError("playlistItems.list", err)
	}

	videos := make([]*models.Video, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Snippet == nil {
			continue
		}
		publishedAt := parseTime(item.Snippet.PublishedAt)
		if item.ContentDetails != nil && item.ContentDetails.VideoPublishedAt != "" {
			publishedAt = parseTime(item.ContentDetails.VideoPublishedAt)
		}
		videoID := ""
		if item.ContentDetails != nil {
			videoID = item.ContentDetails.VideoId
		}
		if videoID == "" && item.Snippet.ResourceId != nil {
			videoID = item.Snippet.ResourceId.VideoId
		}
		if videoID == "" {
			continue
		}
		videos = append(videos, models.NewVideo(
			videoID,
			item.Snippet.ChannelId,
			item.Snippet.Title,
			item.Snippet.Description,
			publishedAt,
		))
	}

	return videos, response.NextPageToken, nil
}

// VideoDetails fetches full details for up to 50 video IDs in one batch.
func (c *Client) VideoDetails(ctx context.Context, videoIDs []string) ([]*models.Video, error) {
	if len(videoIDs) == 0 {
		return nil, fmt.Errorf("no video IDs provided")
	}
	if len(videoIDs) > 50 {
		return nil, fmt.Errorf("too many video IDs (max 50, got %d)", len(videoIDs))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.service.Videos.
		List([]string{"snippet", "contentDetails", "statistics"}).
		Id(videoIDs...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapAPIError("videos.list", err)
	}

	videos := make([]*models.Video, 0, len(response.Items))
	for _, item := range response.Items {
		videos = append(videos, mapVideo(item))
	}
	return videos, nil
}

// SearchChannelID resolves a handle or custom-URL query to a channel ID via
// search.list. Expensive: costs 100 quota units upstream.
func (c *Client) SearchChannelID(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.service.Search.
		List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", mapAPIError("search.list", err)
	}
	if len(response.Items) == 0 || response.Items[0].Snippet == nil {
		return "", fmt.Errorf("channel %q: %w", query, analysis.ErrNotFound)
	}

	return response.Items[0].Snippet.ChannelId, nil
}

// ChannelIDForUsername resolves a legacy /user/ name via channels.list
// forUsername.
func (c *Client) ChannelIDForUsername(ctx context.Context, username string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.service.Channels.
		List([]string{"id"}).
		ForUsername(username).
		Context(ctx).
		Do()
	if err != nil {
		return "", mapAPIError("channels.list", err)
	}
	if len(response.Items) == 0 {
		return "", fmt.Errorf("username %q: %w", username, analysis.ErrNotFound)
	}

	return response.Items[0].Id, nil
}

// mapChannel converts a YouTube API channel to our model.
func mapChannel(ch *youtube.Channel) *models.Channel {
	channel := &models.Channel{ChannelID: ch.Id}

	if ch.Snippet != nil {
		channel.Title = ch.Snippet.Title
		channel.Description = ch.Snippet.Description
		channel.CustomURL = ch.Snippet.CustomUrl
		channel.Country = ch.Snippet.Country
		channel.PublishedAt = parseTime(ch.Snippet.PublishedAt)
		if ch.Snippet.Thumbnails != nil && ch.Snippet.Thumbnails.High != nil {
			channel.ThumbnailURL = ch.Snippet.Thumbnails.High.Url
		}
	}
	if ch.Statistics != nil {
		channel.SubscriberCount = int64(ch.Statistics.SubscriberCount)
		channel.VideoCount = int64(ch.Statistics.VideoCount)
		channel.ViewCount = int64(ch.Statistics.ViewCount)
	}
	if ch.ContentDetails != nil && ch.ContentDetails.RelatedPlaylists != nil {
		channel.UploadsPlaylistID = ch.ContentDetails.RelatedPlaylists.Uploads
	}

	channel.Touch()
	return channel
}

// mapVideo converts a YouTube API video to our model with full details.
func mapVideo(v *youtube.Video) *models.Video {
	video := &models.Video{
		VideoID:        v.Id,
		DetailsFetched: true,
		FetchedAt:      time.Now(),
	}

	if v.Snippet != nil {
		video.ChannelID = v.Snippet.ChannelId
		video.Title = v.Snippet.Title
		video.Description = v.Snippet.Description
		video.CategoryID = v.Snippet.CategoryId
		video.Tags = v.Snippet.Tags
		video.PublishedAt = parseTime(v.Snippet.PublishedAt)
	}
	if v.ContentDetails != nil {
		video.Duration = v.ContentDetails.Duration
	}
	if v.Statistics != nil {
		video.ViewCount = int64(v.Statistics.ViewCount)
		video.LikeCount = int64(v.Statistics.LikeCount)
		video.CommentCount = int64(v.Statistics.CommentCount)
	}

	return video
}

// mapAPIError translates transport and API errors into the analysis error
// taxonomy.
func mapAPIError(method string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", method, analysis.ErrProviderTimeout)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", method, analysis.ErrNotFound)
		case http.StatusForbidden:
			for _, item := range apiErr.Errors {
				if item.Reason == "quotaExceeded" || item.Reason == "dailyLimitExceeded" {
					return fmt.Errorf("%s: upstream quota: %w", method, analysis.ErrQuotaExceeded)
				}
			}
		}
	}

	return fmt.Errorf("%s: %v: %w", method, err, analysis.ErrProvider)
}

// parseTime parses RFC3339 timestamps from the YouTube API. Zero time on
// malformed input.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
