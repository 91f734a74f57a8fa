package slack

import (
	"fmt"
	"strings"
	"time"

	"github.com/wb-go/e2ekit/results"
)

const (
	_colorSuccess     = "#36a64f"
	_colorFailure     = "#dc3545"
	_maxFailedListed  = 5
	_defaultGitRefTag = "local"
)

// Message is an incoming-webhook payload.
type Message struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	IconEmoji   string       `json:"icon_emoji,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a colored container of Block Kit blocks.
type Attachment struct {
	Color  string  `json:"color"`
	Blocks []Block `json:"blocks"`
}

// Block is a Block Kit layout block. Only the fields used by the reporter are modelled.
type Block struct {
	Type     string `json:"type"`
	Text     *Text  `json:"text,omitempty"`
	Fields   []Text `json:"fields,omitempty"`
	Elements []Text `json:"elements,omitempty"`
}

// Text is a plain_text or mrkdwn text object.
type Text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

func mrkdwn(s string) Text { return Text{Type: "mrkdwn", Text: s} }

// BuildMessage renders the run summary as a Block Kit message.
func (r *Reporter) BuildMessage(s results.Summary) Message {
	success := !s.HasFailures()
	statusEmoji, statusText, color := "✅", "PASSED", _colorSuccess
	if !success {
		statusEmoji, statusText, color = "❌", "FAILED", _colorFailure
	}

	mentions := ""
	if !success && len(r.mentions) > 0 {
		mentions = strings.Join(r.mentions, " ") + "\n"
	}

	blocks := []Block{
		{
			Type: "header",
			Text: &Text{Type: "plain_text", Text: fmt.Sprintf("%s Playwright Tests %s", statusEmoji, statusText), Emoji: true},
		},
		{
			Type: "section",
			Fields: []Text{
				mrkdwn("*Environment:*\n" + r.environment),
				mrkdwn(fmt.Sprintf("*Duration:*\n%.2f min", s.Duration.Minutes())),
				mrkdwn(fmt.Sprintf("*Total Tests:*\n%d", s.Total)),
				mrkdwn(fmt.Sprintf("*Pass Rate:*\n%.1f%%", s.PassRate())),
			},
		},
		{
			Type: "section",
			Text: ptr(mrkdwn(fmt.Sprintf("%s✅ Passed: *%d* | ❌ Failed: *%d* | ⏭️ Skipped: *%d* | 🔄 Flaky: *%d*",
				mentions, s.Passed, s.Failed, s.Skipped, s.Flaky))),
		},
	}

	if r.detailed && len(s.FailedTests) > 0 {
		blocks = append(blocks, Block{Type: "section", Text: ptr(mrkdwn(failedTestsText(s.FailedTests)))})
	}

	ref := r.gitRef
	if ref == "" {
		ref = _defaultGitRefTag
	}
	blocks = append(blocks,
		Block{Type: "divider"},
		Block{Type: "context", Elements: []Text{
			mrkdwn(fmt.Sprintf("🕐 %s | 🏷️ %s", r.now().UTC().Format(time.RFC3339), ref)),
		}},
	)

	return Message{
		Channel:     r.channel,
		Username:    r.username,
		IconEmoji:   r.iconEmoji,
		Attachments: []Attachment{{Color: color, Blocks: blocks}},
	}
}

func failedTestsText(failed []results.FailedTest) string {
	var b strings.Builder
	b.WriteString("*Failed Tests:*\n")
	for i, t := range failed {
		if i == _maxFailedListed {
			break
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "• %s\n  _%s_", t.Title, t.File)
		if t.Error != "" {
			fmt.Fprintf(&b, "\n  `%s`", t.Error)
		}
	}
	if extra := len(failed) - _maxFailedListed; extra > 0 {
		fmt.Fprintf(&b, "\n_...and %d more_", extra)
	}
	return b.String()
}

func ptr[T any](v T) *T { return &v }
