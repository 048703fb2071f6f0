package inspect

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/maruel/natural"

	"vsmrt/stream"
)

// treeWriter accumulates indented dump lines.
type treeWriter struct {
	w *strings.Builder
}

func newTreeWriter() *treeWriter {
	return &treeWriter{w: &strings.Builder{}}
}

func (tw treeWriter) String() string {
	return tw.w.String()
}

func (tw treeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

func (tw treeWriter) line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// text writes a quoted string value, empty values stay empty.
func (tw treeWriter) text(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

func (tw treeWriter) token(depth int, label string, tok stream.StreamOffsetToken) {
	if !tok.IsValid() {
		tw.line(depth, "%s: none", label)
		return
	}
	tw.line(depth, "%s: @%d", label, uint32(tok))
}

// names writes a naturally sorted list on one line.
func (tw treeWriter) names(depth int, label string, names []string) {
	sorted := append([]string(nil), names...)
	sort.Sort(natural.StringSlice(sorted))
	quoted := make([]string, 0, len(sorted))
	for _, n := range sorted {
		quoted = append(quoted, strconv.Quote(n))
	}
	tw.line(depth, "%s: [%s]", label, strings.Join(quoted, ", "))
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
