package main

/*
#include <stdlib.h>
#include "tix_types.h"
*/
import "C"

import (
	"context"
	"runtime/cgo"
	"sync"
	"unsafe"

	"github.com/tixhq/tix"
	"github.com/tixhq/tix/internal/debug"
	"github.com/tixhq/tix/internal/errcode"
	"github.com/tixhq/tix/internal/telemetry"
)

// Version is reported as the telemetry service version.
var Version = "0.1.0"

// cAllocator hands out memory from the host's C heap so callers can keep
// results after the call and release them with the tix_*_free functions.
type cAllocator struct{}

func (cAllocator) Malloc(n uintptr) unsafe.Pointer {
	if n == 0 {
		n = 1
	}
	return C.malloc(C.size_t(n))
}

func (cAllocator) Free(p unsafe.Pointer) { C.free(p) }

var alloc cAllocator

var telemetryOnce sync.Once

func initTelemetry() {
	telemetryOnce.Do(func() {
		if err := telemetry.Init(context.Background(), "libtix", Version); err != nil {
			debug.Logf("libtix: telemetry init: %v\n", err)
		}
	})
}

// guard runs fn and converts its error to a result code. A panic becomes
// UnknownError; nothing unwinds into the host.
func guard(fn func() error) (rc C.int) {
	defer func() {
		if r := recover(); r != nil {
			debug.Logf("libtix: recovered panic: %v\n", r)
			rc = C.int(errcode.UnknownError)
		}
	}()
	return C.int(errcode.Of(fn()))
}

var errBadHandle = errcode.New(errcode.UnknownError, "libtix", "invalid workspace handle")

func workspaceOf(h C.tix_handle) (*tix.Workspace, error) {
	if h == 0 {
		return nil, errBadHandle
	}
	ws, ok := cgo.Handle(h).Value().(*tix.Workspace)
	if !ok {
		return nil, errBadHandle
	}
	return ws, nil
}

var (
	strerrorMu sync.Mutex
	strerrors  = make(map[errcode.Code]*C.char)
)

// strerror returns a C string that lives as long as the library.
func strerror(code errcode.Code) *C.char {
	strerrorMu.Lock()
	defer strerrorMu.Unlock()
	if s, ok := strerrors[code]; ok {
		return s
	}
	s := C.CString(code.String())
	strerrors[code] = s
	return s
}
