package core

import (
	"reflect"
	"testing"
)

func TestTokenizeCommandLine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want []string
	}{
		{raw: "/radio skip", want: []string{"/radio", "skip"}},
		{raw: "  /play   never gonna  ", want: []string{"/play", "never", "gonna"}},
		{raw: `/play "take five" brubeck`, want: []string{"/play", "take five", "brubeck"}},
		{raw: "/play 'so what'", want: []string{"/play", "so what"}},
		{raw: "", want: nil},
		{raw: "   ", want: nil},
	}
	for _, tt := range tests {
		if got := tokenizeCommandLine(tt.raw); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("tokenizeCommandLine(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseFlags(t *testing.T) {
	t.Parallel()
	pos, flags, bools := parseFlags([]string{"jazz", "--limit=3", "--source", "deezer", "-v"})
	if !reflect.DeepEqual(pos, []string{"jazz"}) {
		t.Fatalf("positionals = %v", pos)
	}
	if flags["limit"] != "3" || flags["source"] != "deezer" {
		t.Fatalf("flags = %v", flags)
	}
	if !bools["v"] {
		t.Fatalf("bools = %v", bools)
	}

	_, flags, bools = parseFlags([]string{"--force", "-n=2"})
	if !bools["force"] {
		t.Fatalf("expected bool flag, got %v", bools)
	}
	if flags["n"] != "2" {
		t.Fatalf("flags = %v", flags)
	}
}

func TestCommandTreeRouting(t *testing.T) {
	t.Parallel()
	tree := newRouteTree()
	tree.insert(routeTokens("radio on"), Command{Route: "radio on"})
	tree.insert(routeTokens("radio skip"), Command{Route: "radio skip"})
	tree.insert(routeTokens("play"), Command{Route: "play"})

	if n := tree.lookup([]string{"radio", "on"}); n == nil || n.cmd == nil || n.cmd.Route != "radio on" {
		t.Fatalf("lookup radio on failed: %+v", n)
	}
	if n := tree.lookup([]string{"radio"}); n == nil || n.cmd != nil {
		t.Fatalf("container node should have no handler: %+v", n)
	}
	if n := tree.lookup([]string{"nope"}); n != nil {
		t.Fatalf("unknown route should miss, got %+v", n)
	}

	names := tree.subcommands()
	if len(names) != 2 {
		t.Fatalf("expected 2 top-level entries, got %v", names)
	}
}
