package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func replyFor(t *testing.T, name string) string {
	t.Helper()
	for _, c := range fallbackCategories {
		if c.name == name {
			return c.reply
		}
	}
	t.Fatalf("unknown fallback category %q", name)
	return ""
}

func TestFallbackReply_Categories(t *testing.T) {
	cases := []struct {
		input    string
		category string
	}{
		{"hello there", "greeting"},
		{"HOLA amigo", "greeting"},
		{"hey", "greeting"},
		{"best beach?", "beach"},
		{"Ocean views please", "beach"},
		{"una playa bonita", "beach"},
		{"mountain adventure", "adventure"},
		{"Ciudad Perdida TREK", "adventure"},
		{"what does it cost", "budget"},
		{"cheap options", "budget"},
		{"good food spots", "food"},
		{"where to eat", "food"},
		{"restaurant recommendations", "food"},
	}
	for _, tc := range cases {
		reply, category := fallbackMatch(tc.input)
		require.Equal(t, tc.category, category, "input=%q", tc.input)
		require.Equal(t, replyFor(t, tc.category), reply)
		require.Equal(t, reply, FallbackReply(tc.input))
	}
}

func TestFallbackReply_PriorityOrder(t *testing.T) {
	cases := []struct {
		input    string
		category string
	}{
		{"hello, which beach is best?", "greeting"},
		{"beach or mountain?", "beach"},
		{"adventure on a budget", "adventure"},
		{"cheap food", "budget"},
	}
	for _, tc := range cases {
		_, category := fallbackMatch(tc.input)
		require.Equal(t, tc.category, category, "input=%q", tc.input)
	}
}

func TestFallbackReply_SubstringMatching(t *testing.T) {
	// "this" contains "hi"; matching is by substring, not by word.
	_, category := fallbackMatch("is this place nice")
	require.Equal(t, "greeting", category)
}

func TestFallbackReply_Default(t *testing.T) {
	reply, category := fallbackMatch("what about Tuesdays")
	require.Equal(t, "default", category)
	require.Equal(t, fallbackDefaultReply, reply)
	require.Contains(t, reply, "could you tell me")
}

func TestFallbackReply_NonEmptyAndDeterministic(t *testing.T) {
	inputs := []string{"a", "hello", "beach", "trek", "price", "dining", "zzz", "🌴", "  "}
	for _, in := range inputs {
		first := FallbackReply(in)
		require.NotEmpty(t, first, "input=%q", in)
		require.Equal(t, first, FallbackReply(in), "input=%q", in)
	}
}
