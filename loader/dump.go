package loader

import (
	"fmt"
	"strconv"
	"strings"
)

// Dump returns a human-readable listing of the tree rooted at r.
// Records are labelled by their path from the root ("0", "0.1", ...).
func Dump(r *Irep) string {
	var sb strings.Builder
	dumpRecord(&sb, r, "0", 0)
	return sb.String()
}

func dumpRecord(sb *strings.Builder, r *Irep, path string, depth int) {
	indent := strings.Repeat("  ", depth)

	fmt.Fprintf(sb, "%s; irep %s: locals=%d regs=%d children=%d\n",
		indent, path, r.Locals, r.Registers, len(r.Children))

	if n := r.InstructionWords(); n > 0 {
		fmt.Fprintf(sb, "%s; code (%d words):\n", indent, n)
		for i := 0; i < n; i++ {
			fmt.Fprintf(sb, "%s;   %04d  %08x\n", indent, i, r.Word(i))
		}
	}

	if len(r.Pool) > 0 {
		fmt.Fprintf(sb, "%s; pool (%d):\n", indent, len(r.Pool))
		for i, l := range r.Pool {
			display := l.String()
			// Truncate long strings for readability
			if l.Kind == LiteralString && len(l.Str) > 40 {
				display = strconv.Quote(string(l.Str[:37])) + "..."
			}
			fmt.Fprintf(sb, "%s;   [%3d] %-7s %s\n", indent, i, l.Kind, display)
		}
	}

	if n := r.Symbols.Len(); n > 0 {
		fmt.Fprintf(sb, "%s; syms (%d):\n", indent, n)
		r.Symbols.Each(func(i int, name []byte) bool {
			fmt.Fprintf(sb, "%s;   [%3d] %s\n", indent, i, name)
			return true
		})
	}

	for i, c := range r.Children {
		dumpRecord(sb, c, path+"."+strconv.Itoa(i), depth+1)
	}
}
