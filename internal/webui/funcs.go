package webui

import (
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

func funcMap(now func() time.Time) template.FuncMap {
	return template.FuncMap{
		"ago":         agoFunc(now),
		"comma":       func(n int) string { return humanize.Comma(int64(n)) },
		"percent":     percent,
		"clock":       func(t time.Time) string { return t.Local().Format("15:04:05") },
		"day":         func(t time.Time) string { return t.Local().Format("Jan 2, 2006") },
		"statusClass": statusClass,
		"initials":    initials,
	}
}

// agoFunc renders a time.Time or *time.Time relative to now. A nil
// pointer renders "never".
func agoFunc(now func() time.Time) func(any) string {
	rel := func(t time.Time) string { return humanize.RelTime(t, now(), "ago", "from now") }
	return func(v any) string {
		switch t := v.(type) {
		case time.Time:
			return rel(t)
		case *time.Time:
			if t == nil {
				return "never"
			}
			return rel(*t)
		}
		return ""
	}
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

func statusClass(t types.EntryType) string {
	switch t {
	case types.CheckIn:
		return "status-in"
	case types.CheckOut:
		return "status-out"
	case types.Denied:
		return "status-denied"
	}
	return ""
}

func initials(name string) string {
	var out []rune
	for _, f := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(f)
		out = append(out, r)
		if len(out) == 2 {
			break
		}
	}
	return strings.ToUpper(string(out))
}
