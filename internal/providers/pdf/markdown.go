package pdf

import "strings"

type blockKind int

const (
	blockTitle blockKind = iota
	blockHeading
	blockRule
	blockStrong
	blockEmphasis
	blockBullet
	blockText
)

type block struct {
	kind blockKind
	text string
}

// parseMarkdown reduces the subset of markdown the will generator emits
// into printable blocks. Blank lines are dropped.
func parseMarkdown(md string) []block {
	lines := strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n")
	out := make([]block, 0, len(lines))
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case line == "---":
			out = append(out, block{kind: blockRule})
		case strings.HasPrefix(line, "## "):
			out = append(out, block{kind: blockHeading, text: stripInline(line[3:])})
		case strings.HasPrefix(line, "# "):
			out = append(out, block{kind: blockTitle, text: stripInline(line[2:])})
		case strings.HasPrefix(line, "- "):
			out = append(out, block{kind: blockBullet, text: "- " + stripInline(line[2:])})
		case strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**") && len(line) > 4:
			out = append(out, block{kind: blockStrong, text: stripInline(line)})
		case strings.HasPrefix(line, "*") && strings.HasSuffix(line, "*") && !strings.HasPrefix(line, "**") && len(line) > 2:
			out = append(out, block{kind: blockEmphasis, text: line[1 : len(line)-1]})
		default:
			out = append(out, block{kind: blockText, text: stripInline(line)})
		}
	}
	return out
}

func stripInline(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
}
