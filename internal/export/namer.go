package export

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Namer resolves filename collisions within one packaging run. Counters are
// shared across the whole run regardless of the intended directory, so two
// books rendering the same filename into different paths still dedup against
// each other. Reset must be called after every run.
type Namer struct {
	counters map[string]int
}

func NewNamer() *Namer {
	return &Namer{
		counters: make(map[string]int),
	}
}

// Resolve returns name on first use and "name (N)" on each reuse, with the
// counter suffix inserted before the extension when one exists.
func (n *Namer) Resolve(name string) string {
	count, seen := n.counters[name]
	if !seen {
		n.counters[name] = 0
		return name
	}

	count++
	n.counters[name] = count

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	return fmt.Sprintf("%s (%d)%s", base, count, ext)
}

// Reset clears all collision counters.
func (n *Namer) Reset() {
	n.counters = make(map[string]int)
}
