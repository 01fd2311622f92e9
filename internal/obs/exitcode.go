package obs

import (
	"errors"

	"github.com/kanopi/vg/internal/lang"
)

// Exit codes for CI-friendly behavior, shared by vgc and vgd.
const (
	ExitOK          = 0
	ExitGeneral     = 1
	ExitParseError  = 2
	ExitIOError     = 3
	ExitCycleError  = 4
	ExitDepthError  = 5
	ExitIgnoredRoot = 6
)

// ExitCodeFor maps a compile error to a process exit code using the typed
// *lang.Error discriminant, rather than substring-matching the error text.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	var lerr *lang.Error
	if !errors.As(err, &lerr) {
		return ExitGeneral
	}
	switch lerr.Kind {
	case lang.KindScan, lang.KindParse, lang.KindResolve:
		return ExitParseError
	case lang.KindIO:
		return ExitIOError
	case lang.KindCycle:
		return ExitCycleError
	case lang.KindDepth:
		return ExitDepthError
	case lang.KindIgnored:
		return ExitIgnoredRoot
	default:
		return ExitGeneral
	}
}
