package scene

import (
	"fmt"
	"io"
	"strings"

	"github.com/bft-labs/sakamoto/pkg/entity"
)

// Print writes an indented listing of a built scene, one node per line with
// its declared hooks.
func Print(w io.Writer, root *entity.Root[*World]) error {
	world := root.Context()
	var err error
	root.Walk(func(depth int, e *entity.Entity) bool {
		if err != nil {
			return false
		}
		if depth == 0 {
			_, err = fmt.Fprintf(w, "%s (%d actors)\n", world.Name, world.Len())
			return true
		}
		a, ok := world.byEntity[e]
		if !ok {
			_, err = fmt.Fprintf(w, "%s?\n", strings.Repeat("  ", depth))
			return true
		}
		hooks := "-"
		if len(a.hooks) > 0 {
			hooks = strings.Join(a.hooks, ",")
		}
		_, err = fmt.Fprintf(w, "%s%s [%s]\n", strings.Repeat("  ", depth), a.Name, hooks)
		return true
	})
	return err
}
