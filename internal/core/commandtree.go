package core

import (
	"sort"
	"strings"
)

// routeNode is one token of the command route tree. A node can be a pure
// container ("radio"), a leaf with a handler ("radio skip"), or both
// ("vote" carries a handler and has the "close" child).
type routeNode struct {
	token    string
	cmd      *Command
	children map[string]*routeNode
}

func newRouteTree() *routeNode {
	return &routeNode{children: make(map[string]*routeNode)}
}

// routeTokens splits a route like "radio skip" into its path tokens.
func routeTokens(route string) []string {
	return strings.Fields(strings.TrimSpace(route))
}

// insert hangs c at the end of the token path, creating container nodes on
// the way. A later insert on the same route replaces the earlier handler.
func (n *routeNode) insert(tokens []string, c Command) {
	if len(tokens) == 0 {
		n.cmd = &c
		return
	}
	child, ok := n.children[tokens[0]]
	if !ok {
		child = &routeNode{token: tokens[0], children: make(map[string]*routeNode)}
		n.children[tokens[0]] = child
	}
	child.insert(tokens[1:], c)
}

// lookup returns the node at exactly the given path, or nil.
func (n *routeNode) lookup(tokens []string) *routeNode {
	cur := n
	for _, tok := range tokens {
		next, ok := cur.children[tok]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func (n *routeNode) step(token string) (*routeNode, bool) {
	child, ok := n.children[token]
	return child, ok
}

// subcommands lists the child tokens in stable order for help output.
func (n *routeNode) subcommands() []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
