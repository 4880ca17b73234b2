package extract

import (
	"fmt"
	"io"
	"strings"
)

// CopyEntry is one file copied out of the working tree. Checksum is the hex
// xxh3-128 digest of the copied bytes.
type CopyEntry struct {
	Source   string
	Dest     string
	Checksum string
}

type EndpointReport struct {
	Name     string
	Revision string
	Entries  []CopyEntry
}

// Report lists the copied files per endpoint in diff order.
type Report struct {
	From      EndpointReport
	To        EndpointReport
	Changed   int
	OutputDir string
}

func (r *Report) Copied() int {
	return len(r.From.Entries) + len(r.To.Entries)
}

func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	if r.Changed == 0 {
		fmt.Fprintf(&b, "No differences between %s and %s\n", r.From.Revision, r.To.Revision)
	} else {
		fmt.Fprintf(&b, "%d changed paths extracted into %s\n", r.Changed, r.OutputDir)
		for _, ep := range []EndpointReport{r.From, r.To} {
			fmt.Fprintf(&b, "  %-4s %s: %d files\n", ep.Name, ep.Revision, len(ep.Entries))
		}
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
