package budget

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/msgqa-go/internal/feed"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcde", 1},    // 5 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func Test_EstimateMessages(t *testing.T) {
	t.Parallel()
	msgs := []*schema.Message{
		schema.UserMessage("hello world"), // 4 overhead + 1 (role) + 2 (content) = 7
		schema.UserMessage("hello world"),
	}
	got := EstimateMessages(msgs)
	// Each message: 4 overhead + Estimate("user")=1 + Estimate("hello world")=2 = 7
	// Two messages: 14
	if got != 14 {
		t.Errorf("EstimateMessages = %d, want 14", got)
	}
}

func groundingMessage(user, body string) feed.Message {
	return feed.Message{UserName: user, Body: body}
}

func Test_TrimContext_NoTrimNeeded(t *testing.T) {
	t.Parallel()
	msgs := []feed.Message{
		groundingMessage("Amira", "checking in"),
		groundingMessage("Ben", "same here"),
	}
	got := TrimContext(msgs, 100, DefaultMaxContextTokens)
	if len(got) != 2 {
		t.Errorf("want 2 messages, got %d", len(got))
	}
}

func Test_TrimContext_DropsLeastRelevant(t *testing.T) {
	t.Parallel()
	// Each message costs: 8 framing + Estimate(user)=1 + Estimate(body)=25 = 34 tokens.
	// Reserved 10 + one message = 44 fits a 50-token budget; two (78) do not.
	// The tail — the weakest match — should be dropped.
	msgs := []feed.Message{
		groundingMessage("a", strings.Repeat("x", 100)),
		groundingMessage("b", strings.Repeat("y", 100)),
	}
	got := TrimContext(msgs, 10, 50)
	if len(got) != 1 {
		t.Fatalf("want 1 message after trim, got %d", len(got))
	}
	if got[0].UserName != "a" {
		t.Errorf("want most relevant message retained, got author %q", got[0].UserName)
	}
}

func Test_TrimContext_Empty(t *testing.T) {
	t.Parallel()
	got := TrimContext(nil, 100, DefaultMaxContextTokens)
	if len(got) != 0 {
		t.Errorf("want empty, got %d", len(got))
	}
}

func Test_TrimContext_KeepsOneEvenOverBudget(t *testing.T) {
	t.Parallel()
	// A single oversized message is kept — an oversized prompt beats an
	// ungrounded one.
	msgs := []feed.Message{
		groundingMessage("a", strings.Repeat("x", 4*7000)),
	}
	got := TrimContext(msgs, 0, 6000)
	if len(got) != 1 {
		t.Errorf("want 1 message, got %d", len(got))
	}
}

func Test_TrimContext_ReservedCountsAgainstBudget(t *testing.T) {
	t.Parallel()
	msgs := []feed.Message{
		groundingMessage("a", strings.Repeat("x", 40)), // 8 + 1 + 10 = 19 tokens
		groundingMessage("b", strings.Repeat("y", 40)),
		groundingMessage("c", strings.Repeat("z", 40)),
	}
	// Budget 50: with no reserve all three (57) do not fit, two (38) do.
	got := TrimContext(msgs, 0, 50)
	if len(got) != 2 {
		t.Fatalf("want 2 with no reserve, got %d", len(got))
	}
	// The same budget with 20 reserved fits only one message (39 ≤ 50, 58 > 50... )
	got = TrimContext(msgs, 20, 50)
	if len(got) != 1 {
		t.Errorf("want 1 with reserve, got %d", len(got))
	}
}
