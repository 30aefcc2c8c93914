package report

import (
	"net/http"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/text"
)

// Palette holds the colors used for HTTP status buckets.
type Palette struct {
	// Success colors 2xx statuses.
	Success text.Colors
	// Redirect colors 3xx statuses.
	Redirect text.Colors
	// Failure colors every other status.
	Failure text.Colors
}

// DefaultPalette returns green, yellow and red status colors.
func DefaultPalette() Palette {
	return Palette{
		Success:  text.Colors{text.FgGreen},
		Redirect: text.Colors{text.FgYellow},
		Failure:  text.Colors{text.FgRed},
	}
}

// NoColorPalette returns a palette that leaves text unchanged.
func NoColorPalette() Palette {
	return Palette{}
}

// Status returns the colorized status text for code.
func (p Palette) Status(code int) string {
	s := StatusText(code)
	colors := p.colorsFor(code)
	if len(colors) == 0 {
		return s
	}
	return colors.Sprint(s)
}

func (p Palette) colorsFor(code int) text.Colors {
	switch {
	case code >= 200 && code < 300:
		return p.Success
	case code >= 300 && code < 400:
		return p.Redirect
	default:
		return p.Failure
	}
}

// StatusText formats code as "<code> <reason>", for example "200 OK".
// Unknown codes are rendered without a reason.
func StatusText(code int) string {
	reason := http.StatusText(code)
	if reason == "" {
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code) + " " + reason
}
