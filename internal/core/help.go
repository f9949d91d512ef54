package core

import (
	"strings"
)

func (m *CommandManager) helpText(path []string) string {
	if len(path) == 0 {
		lines := []string{"Commands (use /help <cmd> ...):"}
		for _, name := range m.tree.subcommands() {
			n, _ := m.tree.step(name)
			lines = append(lines, helpLine("/"+name, n))
		}
		return strings.Join(lines, "\n")
	}

	n := m.tree.lookup(path)
	if n == nil {
		if len(path) == 1 {
			if leaf, ok := m.alias[path[0]]; ok && leaf != nil && leaf.cmd != nil {
				return m.helpText(routeTokens(leaf.cmd.Route))
			}
		}
		return "command not found. try /help"
	}

	// container node without a handler: list its subcommands
	if n.cmd == nil {
		prefix := "/" + strings.Join(path, " ")
		lines := []string{prefix + " subcommands:"}
		for _, name := range n.subcommands() {
			child, _ := n.step(name)
			lines = append(lines, helpLine(prefix+" "+name, child))
		}
		return strings.Join(lines, "\n")
	}

	cmd := n.cmd
	lines := []string{"/" + cmd.Route}
	if cmd.Description != "" {
		lines = append(lines, cmd.Description)
	}
	if cmd.Usage != "" {
		lines = append(lines, "Usage: "+cmd.Usage)
	}
	if len(cmd.Aliases) > 0 {
		lines = append(lines, "Aliases: /"+strings.Join(cmd.Aliases, ", /"))
	}
	return strings.Join(lines, "\n")
}

// helpLine is one index entry: the command path, a "…" marker for nodes
// with subcommands, and the description when there is one.
func helpLine(path string, n *routeNode) string {
	line := "- " + path
	if len(n.children) > 0 {
		line += " …"
	}
	if n.cmd != nil && n.cmd.Description != "" {
		line += " — " + n.cmd.Description
	}
	return line
}
