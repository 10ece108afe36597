package ame

import (
	"fmt"
	"sync/atomic"

	"github.com/gookit/color"
)

const appName = "ame"

// We use a value of 1 while a native-manager transaction is running.
var isCriticalAtomic atomic.Int32

var (
	version   = "dev" // overridden at build time
	buildDate = "unknown"
)

// color helpers
var (
	colInfo    = color.Info
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colNote    = color.Tag("notice")
)

// colorPrinter is satisfied by *color.Theme, color.Style, color.RGBColor and color.Tag.
type colorPrinter interface {
	Sprint(a ...any) string
}

// cSprint renders a with the given style, or plainly when p is nil.
func cSprint(p colorPrinter, a ...any) string {
	if p == nil {
		return fmt.Sprint(a...)
	}
	return p.Sprint(a...)
}
