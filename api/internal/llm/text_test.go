package llm

import "testing"

func TestStripReasoning(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain answer", "plain answer"},
		{"<think>working it out\nmore</think>the answer", "the answer"},
		{"<think>a</think>one<think>b</think>two", "onetwo"},
		{"  <think>only thoughts</think>  ", ""},
	}
	for _, c := range cases {
		if got := StripReasoning(c.in); got != c.want {
			t.Fatalf("StripReasoning(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
