package interp

import (
	"fmt"
	"strconv"
	"strings"

	"l3/internal/vm"
)

// FormatValue renders v the way `print`/`println`/`str` do:
// bools/ints/floats render via their natural textual form, strings
// render raw (no quoting), vectors render as a bracketed,
// comma-separated list of their elements' own renderings, and
// functions render as `function <name>` (or `function <anonymous>`).
func FormatValue(v vm.Value) string {
	switch x := v.(type) {
	case vm.Nil:
		return "nil"
	case vm.Bool:
		return strconv.FormatBool(x.Val)
	case vm.Int:
		return strconv.FormatInt(x.Val, 10)
	case vm.Float:
		return strconv.FormatFloat(x.Val, 'g', -1, 64)
	case vm.String:
		return x.Val
	case vm.Vector:
		parts := make([]string, len(x.Elems))
		for i, e := range x.Elems {
			parts[i] = FormatValue(e.Get())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case vm.FunctionValue:
		name := "anonymous"
		if x.Fn != nil && x.Fn.Name != "" {
			name = x.Fn.Name
		}
		return fmt.Sprintf("function <%s>", name)
	}
	return fmt.Sprintf("%v", v)
}

// formatArgs joins args space-separated, used by
// print/println/assert/error/input.
func formatArgs(args []vm.Ref) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = FormatValue(a.Get())
	}
	return strings.Join(parts, " ")
}
