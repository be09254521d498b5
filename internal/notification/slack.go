package notification

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/slack-go/slack"
)

// SlackNotifier posts operational messages to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
	iconEmoji  string
	enabled    bool
	post       func(url string, msg *slack.WebhookMessage) error
}

func NewSlackNotifier(webhookURL, channel, username, iconEmoji string, enabled bool) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		username:   username,
		iconEmoji:  iconEmoji,
		enabled:    enabled && webhookURL != "",
		post:       slack.PostWebhook,
	}
}

// SendNotification sends a plain text message
func (s *SlackNotifier) SendNotification(message string) error {
	if s == nil || !s.enabled {
		return nil
	}

	return s.post(s.webhookURL, &slack.WebhookMessage{
		Text:      message,
		Channel:   s.channel,
		Username:  s.username,
		IconEmoji: s.iconEmoji,
	})
}

// SendRichNotification sends a message as a single colored attachment. Fields are sorted by title.
func (s *SlackNotifier) SendRichNotification(title, message, color string, fields map[string]string) error {
	if s == nil || !s.enabled {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attachmentFields := make([]slack.AttachmentField, 0, len(keys))
	for _, k := range keys {
		v := fields[k]
		attachmentFields = append(attachmentFields, slack.AttachmentField{
			Title: k,
			Value: v,
			Short: len(v) < 20,
		})
	}

	attachment := slack.Attachment{
		Title:      title,
		Text:       message,
		Color:      color,
		Fields:     attachmentFields,
		MarkdownIn: []string{"text", "fields"},
	}

	return s.post(s.webhookURL, &slack.WebhookMessage{
		Attachments: []slack.Attachment{attachment},
		Channel:     s.channel,
		Username:    s.username,
		IconEmoji:   s.iconEmoji,
	})
}

// NotifyHTTPError reports a failed request
func (s *SlackNotifier) NotifyHTTPError(statusCode int, title string, err error, request *http.Request, context map[string]string) error {
	if s == nil || !s.enabled || err == nil {
		return nil
	}

	if context == nil {
		context = make(map[string]string)
	}

	context["Error"] = fmt.Sprintf("`%v`", err)

	if request != nil {
		context["Method"] = request.Method
		context["Path"] = request.URL.Path
		context["User-Agent"] = request.UserAgent()
		context["Remote IP"] = request.RemoteAddr
	}

	var color, emoji string
	switch {
	case statusCode >= 500:
		color, emoji = "danger", ":rotating_light:"
	case statusCode >= 400:
		color, emoji = "warning", ":warning:"
	default:
		color, emoji = "#3AA3E3", ":information_source:"
	}

	return s.SendRichNotification(
		fmt.Sprintf("%s %s (HTTP %d)", emoji, title, statusCode),
		"",
		color,
		context,
	)
}

func (s *SlackNotifier) NotifyServerError(err error, request *http.Request) error {
	return s.NotifyHTTPError(http.StatusInternalServerError, "Internal Server Error", err, request, nil)
}

func (s *SlackNotifier) NotifyNotFound(err error, request *http.Request) error {
	return s.NotifyHTTPError(http.StatusNotFound, "Not Found", err, request, nil)
}

func (s *SlackNotifier) NotifyForbidden(request *http.Request) error {
	return s.NotifyHTTPError(http.StatusForbidden, "Forbidden", fmt.Errorf("access forbidden"), request, nil)
}

func (s *SlackNotifier) NotifyRateLimitExceeded(request *http.Request, retryAfter string) error {
	return s.NotifyHTTPError(
		http.StatusTooManyRequests,
		"Rate Limit Exceeded",
		fmt.Errorf("rate limit exceeded"),
		request,
		map[string]string{"Retry-After": retryAfter},
	)
}

// NotifyWarning is used for dispatch failures
func (s *SlackNotifier) NotifyWarning(title string, message string, context map[string]string) error {
	return s.SendRichNotification(":warning: "+title, message, "warning", context)
}

// NotifyInfo is used for the scheduled dispatch summary
func (s *SlackNotifier) NotifyInfo(title string, message string, context map[string]string) error {
	return s.SendRichNotification(":information_source: "+title, message, "#3AA3E3", context)
}
