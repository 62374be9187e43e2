package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/callflow/pkg/pathway"
)

// GraphOverlay contains dynamic call data to visualize on the graph.
type GraphOverlay struct {
	// Occupancy counts the calls currently at each node.
	Occupancy   map[string]int
	CurrentNode string
}

// GenerateMermaid produces a Mermaid flowchart syntax string from a pathway.
// It applies semantic styling:
// - Entry node: ((Circle))
// - Terminal node (no effective edge): ([Stadium])
// - Default: [Rectangle]
// The effective edge (first destination) is solid; ignored candidates are dotted
// and destinations naming missing nodes end in a dangling marker.
func GenerateMermaid(g *pathway.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	entry := g.Start()
	for _, node := range g.Nodes() {
		safeID := sanitizeMermaidID(node.Name)
		_, advances := g.Next(node.Name)

		opener, closer := "[", "]"
		switch {
		case node.Name == entry:
			opener, closer = "((", "))"
		case !advances:
			opener, closer = "([", "])"
		}

		label := node.Name
		if overlay != nil && overlay.Occupancy[node.Name] > 0 {
			label = fmt.Sprintf("%s <br/> 📞 %d", node.Name, overlay.Occupancy[node.Name])
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		for i, dest := range node.Destinations {
			safeTo := sanitizeMermaidID(dest)
			switch {
			case !g.Has(dest):
				sb.WriteString(fmt.Sprintf("    %s -. missing .-> %s_missing{{\"%s?\"}}\n", safeID, safeTo, dest))
			case i == 0:
				sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, safeTo))
			default:
				sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", safeID, safeTo))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef occupied fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		names := make([]string, 0, len(overlay.Occupancy))
		for name, n := range overlay.Occupancy {
			if n > 0 && g.Has(name) {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("    class %s occupied;\n", sanitizeMermaidID(name)))
		}

		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

// GenerateMarkdown renders the pathway as a markdown document with a node table
// and the Mermaid chart, suitable for a terminal renderer.
func GenerateMarkdown(g *pathway.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("# Pathway\n\n")
	sb.WriteString("| Node | Next | Instruction |\n")
	sb.WriteString("|------|------|-------------|\n")
	for _, node := range g.Nodes() {
		next, ok := g.Next(node.Name)
		if !ok {
			next = "(stays)"
		}
		instruction := strings.ReplaceAll(node.Instruction, "\n", " ")
		instruction = strings.ReplaceAll(instruction, "|", "\\|")
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", node.Name, next, instruction))
	}
	sb.WriteString("\n```mermaid\n")
	sb.WriteString(GenerateMermaid(g, overlay))
	sb.WriteString("```\n")
	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
