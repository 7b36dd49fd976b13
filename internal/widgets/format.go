package widgets

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/maxlab/magnetpanel/internal/tango"
)

const notAvailable = "N/A"

// FormatData renders attribute data using the printf format of its info.
func FormatData(data any, format string) string {
	switch d := data.(type) {
	case nil:
		return "-"
	case float64:
		return formatFloat(d, format)
	case int:
		return formatFloat(float64(d), format)
	case bool:
		return strconv.FormatBool(d)
	case tango.State:
		return d.String()
	case string:
		return d
	case []float64:
		parts := make([]string, len(d))
		for i, f := range d {
			parts[i] = formatFloat(f, format)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(data)
}

func formatFloat(f float64, format string) string {
	if math.IsNaN(f) {
		return notAvailable
	}
	if format == "" {
		format = "%g"
	}
	return fmt.Sprintf(format, f)
}

var precisionRe = regexp.MustCompile(`%[-+ 0#]*\d*\.(\d+)[fF]`)

// Decimals is the number of fraction digits a format prints, falling back
// to 3 for formats that do not fix it.
func Decimals(format string) int {
	m := precisionRe.FindStringSubmatch(format)
	if m == nil {
		return 3
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 3
	}
	return n
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
