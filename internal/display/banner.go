package display

import (
	"fmt"
	"io"

	"github.com/backmassage/vidsqueeze/internal/term"
)

// PrintBanner writes the ASCII art banner to w; uses Magenta if colors are enabled.
func PrintBanner(w io.Writer, version string) {
	fmt.Fprint(w, term.Magenta)
	fmt.Fprint(w, `       _     _
__   _(_) __| |___  __ _ _   _  ___  ___ _______
\ \ / / |/ _`+"`"+` / __|/ _`+"`"+` | | | |/ _ \/ _ \_  / _ \
 \ V /| | (_| \__ \ (_| | |_| |  __/  __// /  __/
  \_/ |_|\__,_|___/\__, |\__,_|\___|\___/___\___|
                      |_|`)
	fmt.Fprintf(w, "  v%s%s\n\n", version, term.NC)
}
