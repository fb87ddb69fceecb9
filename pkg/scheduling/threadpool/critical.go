package threadpool

import (
	"errors"
	"runtime"

	gferrors "github.com/vnykmshr/goasync/pkg/common/errors"
)

// addrFault is the runtime.Error raised for a memory fault while
// debug.SetPanicOnFault is enabled.
type addrFault interface {
	runtime.Error
	Addr() uintptr
}

// IsCritical reports whether a recovered panic value must terminate the
// worker that observed it. Critical values are:
//
//   - a *errors.CriticalFault
//   - an error wrapping errors.ErrDisposed, errors.ErrFatal or
//     errors.ErrOutOfMemory
//   - a memory-protection fault (a runtime.Error carrying a fault address)
//
// Everything else, nil pointer dereferences included, is an ordinary fault.
func IsCritical(v interface{}) bool {
	err, ok := v.(error)
	if !ok || err == nil {
		return false
	}

	if gferrors.IsCriticalFault(err) {
		return true
	}
	if errors.Is(err, gferrors.ErrDisposed) ||
		errors.Is(err, gferrors.ErrFatal) ||
		errors.Is(err, gferrors.ErrOutOfMemory) {
		return true
	}

	var af addrFault
	return errors.As(err, &af)
}
