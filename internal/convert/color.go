package convert

import (
	"fmt"
	"strconv"
	"strings"
)

var namedColors = map[string]string{
	"black":   "000000",
	"white":   "FFFFFF",
	"red":     "FF0000",
	"green":   "008000",
	"lime":    "00FF00",
	"blue":    "0000FF",
	"navy":    "000080",
	"yellow":  "FFFF00",
	"orange":  "FFA500",
	"purple":  "800080",
	"fuchsia": "FF00FF",
	"magenta": "FF00FF",
	"aqua":    "00FFFF",
	"cyan":    "00FFFF",
	"teal":    "008080",
	"olive":   "808000",
	"maroon":  "800000",
	"silver":  "C0C0C0",
	"gray":    "808080",
	"grey":    "808080",
}

// ParseColor converts a CSS colour (#rgb, #rrggbb, #rrggbbaa, rgb(), rgba()
// or a basic named colour) to upper-case six-digit hex without '#'.
func ParseColor(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	if hex, ok := namedColors[s]; ok {
		return hex, true
	}
	if strings.HasPrefix(s, "#") {
		return parseHexColor(s[1:])
	}
	if inner, ok := functionArgs(s, "rgba"); ok {
		return parseRGB(inner)
	}
	if inner, ok := functionArgs(s, "rgb"); ok {
		return parseRGB(inner)
	}
	return "", false
}

func parseHexColor(h string) (string, bool) {
	switch len(h) {
	case 3, 4:
		var b strings.Builder
		for _, c := range h[:3] {
			b.WriteRune(c)
			b.WriteRune(c)
		}
		h = b.String()
	case 6:
	case 8:
		h = h[:6]
	default:
		return "", false
	}
	if _, err := strconv.ParseUint(h, 16, 32); err != nil {
		return "", false
	}
	return strings.ToUpper(h), true
}

func functionArgs(s, name string) (string, bool) {
	if !strings.HasPrefix(s, name+"(") || !strings.HasSuffix(s, ")") {
		return "", false
	}
	return s[len(name)+1 : len(s)-1], true
}

// parseRGB accepts both "255, 0, 128" and "255 0 128 / 50%".
func parseRGB(args string) (string, bool) {
	args = strings.NewReplacer(",", " ", "/", " ").Replace(args)
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return "", false
	}
	var rgb [3]int
	for i := range 3 {
		v, ok := channel(fields[i])
		if !ok {
			return "", false
		}
		rgb[i] = v
	}
	return fmt.Sprintf("%02X%02X%02X", rgb[0], rgb[1], rgb[2]), true
}

func channel(s string) (int, bool) {
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		f, err := strconv.ParseFloat(pct, 64)
		if err != nil {
			return 0, false
		}
		return clamp(int(f*255/100+0.5), 0, 255), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return clamp(int(f+0.5), 0, 255), true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
