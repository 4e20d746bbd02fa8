package mailer

import (
	"strings"
	"testing"
)

func TestMarkdownToPlain(t *testing.T) {
	tests := []struct {
		name string
		md   string
		want string
	}{
		{
			name: "bold",
			md:   "**第1天**：故宫、天安门",
			want: "第1天：故宫、天安门",
		},
		{
			name: "italic",
			md:   "住宿参考 *人均200元*",
			want: "住宿参考 人均200元",
		},
		{
			name: "link",
			md:   "[查看酒店详情](https://example.com/hotel/1024)",
			want: "查看酒店详情 (https://example.com/hotel/1024)",
		},
		{
			name: "image",
			md:   "![西湖全景](https://example.com/xihu.png) 值得一看",
			want: "西湖全景 值得一看",
		},
		{
			name: "heading",
			md:   "## 行程安排\n\n第1天：抵达北京",
			want: "行程安排\n\n第1天：抵达北京",
		},
		{
			name: "inline code",
			md:   "乘坐 `G102` 次高铁前往",
			want: "乘坐 G102 次高铁前往",
		},
		{
			name: "code block",
			md:   "车次信息\n```\nG102 北京南 08:00\n```\n请提前30分钟取票",
			want: "车次信息\nG102 北京南 08:00\n\n请提前30分钟取票",
		},
		{
			name: "list markers preserved",
			md:   "- 故宫\n- 长城\n- 颐和园",
			want: "- 故宫\n- 长城\n- 颐和园",
		},
		{
			name: "plain text unchanged",
			md:   "祝您旅途愉快！",
			want: "祝您旅途愉快！",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := markdownToPlain(tt.md)
			if got != tt.want {
				t.Errorf("markdownToPlain(%q) =\n  %q\nwant\n  %q", tt.md, got, tt.want)
			}
		})
	}
}

func TestMarkdownToHTML(t *testing.T) {
	html, err := markdownToHTML("预算约 **3000元**，含住宿")
	if err != nil {
		t.Fatalf("markdownToHTML() error: %v", err)
	}

	if !strings.Contains(html, "<strong>3000元</strong>") {
		t.Error("HTML should contain <strong> tag for bold")
	}
	if !strings.Contains(html, "预算约") {
		t.Error("HTML should carry the text through unescaped")
	}
	if !strings.Contains(html, "<!DOCTYPE html>") {
		t.Error("HTML should have DOCTYPE wrapper")
	}
	if !strings.Contains(html, `charset="utf-8"`) {
		t.Error("HTML should declare utf-8 charset")
	}
}

func TestComposeMessage(t *testing.T) {
	msg, err := composeMessage("Atlas <atlas@example.com>", Message{
		To:      []string{"traveler@example.com"},
		Subject: "Beijing 3-day itinerary",
		Body:    "**第1天**：故宫、长城",
	})
	if err != nil {
		t.Fatalf("composeMessage() error: %v", err)
	}

	s := string(msg)

	// go-message quotes display names: From: "Atlas" <atlas@example.com>.
	if !strings.Contains(s, "From:") || !strings.Contains(s, "atlas@example.com") {
		t.Errorf("message should contain From header with address, got headers:\n%s", s[:min(len(s), 500)])
	}
	if !strings.Contains(s, "To:") || !strings.Contains(s, "traveler@example.com") {
		t.Errorf("message should contain To header with address, got headers:\n%s", s[:min(len(s), 500)])
	}
	if !strings.Contains(s, "Subject: Beijing 3-day itinerary") {
		t.Error("message should contain Subject header")
	}
	if !strings.Contains(s, "Message-Id:") {
		t.Error("message should contain Message-Id header")
	}
	if !strings.Contains(s, "Date:") {
		t.Error("message should contain Date header")
	}

	if !strings.Contains(s, "multipart/alternative") {
		t.Error("message should be multipart/alternative")
	}
	if !strings.Contains(s, "text/plain") {
		t.Error("message should contain text/plain part")
	}
	if !strings.Contains(s, "text/html") {
		t.Error("message should contain text/html part")
	}
}

func TestComposeMessage_ChineseSubject(t *testing.T) {
	msg, err := composeMessage("atlas@example.com", Message{
		To:      []string{"traveler@example.com"},
		Subject: "北京3日游行程",
		Body:    "第1天：故宫",
	})
	if err != nil {
		t.Fatalf("composeMessage() error: %v", err)
	}

	s := string(msg)

	// Non-ASCII subjects go out as RFC 2047 encoded words.
	if !strings.Contains(s, "Subject:") {
		t.Error("message should contain Subject header")
	}
	if !strings.Contains(s, "=?utf-8?") {
		t.Error("Chinese subject should be encoded as an encoded-word")
	}
}

func TestComposeMessage_DefaultSubject(t *testing.T) {
	msg, err := composeMessage("atlas@example.com", Message{
		To:   []string{"traveler@example.com"},
		Body: "Safe travels",
	})
	if err != nil {
		t.Fatalf("composeMessage() error: %v", err)
	}

	// Everything else here is ASCII, so an encoded-word can only come
	// from the stamped default subject.
	if !strings.Contains(string(msg), "=?utf-8?") {
		t.Error("empty subject should be replaced with the default")
	}
}

func TestComposeMessage_BccStaysOffHeaders(t *testing.T) {
	msg, err := composeMessage("atlas@example.com", Message{
		To:      []string{"traveler@example.com"},
		Cc:      []string{"friend@example.com"},
		Bcc:     []string{"quiet@example.com"},
		Subject: "Trip plan",
		Body:    "Body",
	})
	if err != nil {
		t.Fatalf("composeMessage() error: %v", err)
	}

	s := string(msg)

	if !strings.Contains(s, "Cc:") {
		t.Error("message should contain Cc header")
	}
	if strings.Contains(s, "Bcc:") {
		t.Error("message must not contain a Bcc header")
	}
	if strings.Contains(s, "quiet@example.com") {
		t.Error("bcc address must not appear anywhere in the message")
	}
}

func TestComposeMessage_InvalidFrom(t *testing.T) {
	_, err := composeMessage("not-an-email", Message{
		To:      []string{"traveler@example.com"},
		Subject: "Trip plan",
		Body:    "Body",
	})
	if err == nil {
		t.Error("composeMessage should fail with invalid From address")
	}
}

func TestComposeMessage_InvalidRecipient(t *testing.T) {
	_, err := composeMessage("atlas@example.com", Message{
		To:      []string{"旅行者"},
		Subject: "Trip plan",
		Body:    "Body",
	})
	if err == nil {
		t.Error("composeMessage should fail with unparseable recipient")
	}
}
