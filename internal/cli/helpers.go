package cli

import (
	"encoding/json"
	"io"

	"github.com/hotelops/staffxp/internal/daemon"
)

// openDaemon wires the daemon without serving; callers must Close it.
func openDaemon() (*daemon.Daemon, error) {
	return daemon.New()
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// bar renders a 0-100 percentage as a fixed-width text bar.
func bar(pct int) string {
	const width = 20
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * width / 100
	out := make([]byte, width)
	for i := range out {
		if i < filled {
			out[i] = '#'
		} else {
			out[i] = '.'
		}
	}
	return "[" + string(out) + "]"
}
