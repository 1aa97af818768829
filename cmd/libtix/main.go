// Command libtix builds the tix engine as a C shared library:
//
//	go build -buildmode=c-shared -o libtix.so ./cmd/libtix
//
// The call surface is declared in tix.h. Every function returns a result
// code; outputs go through out-parameters that are zeroed on entry and
// owned by the caller on success.
package main

/*
#include <stdlib.h>
#include "tix_types.h"
*/
import "C"

import (
	"context"
	"runtime/cgo"
	"unsafe"

	"github.com/tixhq/tix"
	"github.com/tixhq/tix/internal/errcode"
	"github.com/tixhq/tix/internal/ffi"
)

func main() {}

var errNilOut = errcode.New(errcode.UnknownError, "libtix", "nil out-parameter")

//export tix_open
func tix_open(root *C.char, out *C.tix_handle) C.int {
	if out == nil {
		return C.int(errcode.UnknownError)
	}
	*out = 0
	initTelemetry()
	return guard(func() error {
		ws, err := tix.Open(C.GoString(root))
		if err != nil {
			return err
		}
		*out = C.tix_handle(cgo.NewHandle(ws))
		return nil
	})
}

//export tix_close
func tix_close(h C.tix_handle) {
	if h == 0 {
		return
	}
	guard(func() error {
		cgo.Handle(h).Delete()
		return nil
	})
}

//export tix_init
func tix_init(h C.tix_handle) C.int {
	var res tix.InitResult
	rc := guard(func() (err error) {
		ws, err := workspaceOf(h)
		if err != nil {
			return err
		}
		res, err = ws.Init(context.Background())
		return err
	})
	if rc != 0 {
		return rc
	}
	return C.int(res)
}

//export tix_clone
func tix_clone(h C.tix_handle, url *C.char) C.int {
	return guard(func() error {
		ws, err := workspaceOf(h)
		if err != nil {
			return err
		}
		return ws.Clone(context.Background(), C.GoString(url))
	})
}

//export tix_config_set
func tix_config_set(h C.tix_handle, key, value *C.char) C.int {
	return guard(func() error {
		ws, err := workspaceOf(h)
		if err != nil {
			return err
		}
		return ws.ConfigSet(context.Background(), C.GoString(key), C.GoString(value))
	})
}

//export tix_config_get
func tix_config_get(h C.tix_handle, key *C.char, out *C.tix_string) C.int {
	return stringResult(out, func(ws *tix.Workspace) (string, error) {
		return ws.ConfigGet(context.Background(), C.GoString(key))
	})(h)
}

// stringResult adapts a string-returning operation to a tix_string
// out-parameter.
func stringResult(out *C.tix_string, fn func(ws *tix.Workspace) (string, error)) func(C.tix_handle) C.int {
	return func(h C.tix_handle) C.int {
		if out == nil {
			return C.int(errcode.Of(errNilOut))
		}
		dst := (*ffi.String)(unsafe.Pointer(out))
		*dst = ffi.String{}
		return guard(func() error {
			ws, err := workspaceOf(h)
			if err != nil {
				return err
			}
			v, err := fn(ws)
			if err != nil {
				return err
			}
			return ffi.NewString(alloc, v, dst)
		})
	}
}

//export tix_add
func tix_add(h C.tix_handle, title, body *C.char, priority C.char, outID *C.tix_string) C.int {
	return stringResult(outID, func(ws *tix.Workspace) (string, error) {
		return ws.Add(context.Background(), C.GoString(title), C.GoString(body), tix.Priority(byte(priority)))
	})(h)
}

//export tix_move
func tix_move(h C.tix_handle, id *C.char, status C.char) C.int {
	return guard(func() error {
		ws, err := workspaceOf(h)
		if err != nil {
			return err
		}
		return ws.Move(context.Background(), C.GoString(id), byte(status))
	})
}

//export tix_amend
func tix_amend(h C.tix_handle, id, title, body *C.char, priority C.char) C.int {
	return guard(func() error {
		ws, err := workspaceOf(h)
		if err != nil {
			return err
		}
		return ws.Amend(context.Background(), C.GoString(id), C.GoString(title), C.GoString(body), tix.Priority(byte(priority)))
	})
}

//export tix_list
func tix_list(h C.tix_handle, statuses, priorities *C.char, out *C.tix_ticket_array) C.int {
	if out == nil {
		return C.int(errcode.Of(errNilOut))
	}
	dst := (*ffi.TicketArray)(unsafe.Pointer(out))
	*dst = ffi.TicketArray{}
	return guard(func() error {
		ws, err := workspaceOf(h)
		if err != nil {
			return err
		}
		list, err := ws.List(context.Background(), C.GoString(statuses), C.GoString(priorities))
		if err != nil {
			return err
		}
		return ffi.NewTicketArray(alloc, list, dst)
	})
}

//export tix_show
func tix_show(h C.tix_handle, id *C.char, out *C.tix_ticket) C.int {
	if out == nil {
		return C.int(errcode.Of(errNilOut))
	}
	dst := (*ffi.Ticket)(unsafe.Pointer(out))
	*dst = ffi.Ticket{}
	return guard(func() error {
		ws, err := workspaceOf(h)
		if err != nil {
			return err
		}
		t, err := ws.Show(context.Background(), C.GoString(id))
		if err != nil {
			return err
		}
		return ffi.NewTicket(alloc, t, dst)
	})
}

func fieldResult(h C.tix_handle, id *C.char, field tix.Field, out *C.tix_string) C.int {
	return stringResult(out, func(ws *tix.Workspace) (string, error) {
		return ws.Field(context.Background(), C.GoString(id), field)
	})(h)
}

//export tix_ticket_title
func tix_ticket_title(h C.tix_handle, id *C.char, out *C.tix_string) C.int {
	return fieldResult(h, id, tix.FieldTitle, out)
}

//export tix_ticket_body
func tix_ticket_body(h C.tix_handle, id *C.char, out *C.tix_string) C.int {
	return fieldResult(h, id, tix.FieldBody, out)
}

//export tix_ticket_status
func tix_ticket_status(h C.tix_handle, id *C.char, out *C.tix_string) C.int {
	return fieldResult(h, id, tix.FieldStatus, out)
}

//export tix_ticket_priority
func tix_ticket_priority(h C.tix_handle, id *C.char, out *C.tix_string) C.int {
	return fieldResult(h, id, tix.FieldPriority, out)
}

//export tix_remote_add
func tix_remote_add(h C.tix_handle, name, url *C.char) C.int {
	return guard(func() error {
		ws, err := workspaceOf(h)
		if err != nil {
			return err
		}
		return ws.RemoteAdd(context.Background(), C.GoString(name), C.GoString(url))
	})
}

// stringsResult adapts a list-returning operation to a tix_string_array
// out-parameter.
func stringsResult(h C.tix_handle, out *C.tix_string_array, fn func(ws *tix.Workspace) ([]string, error)) C.int {
	if out == nil {
		return C.int(errcode.Of(errNilOut))
	}
	dst := (*ffi.StringArray)(unsafe.Pointer(out))
	*dst = ffi.StringArray{}
	return guard(func() error {
		ws, err := workspaceOf(h)
		if err != nil {
			return err
		}
		items, err := fn(ws)
		if err != nil {
			return err
		}
		return ffi.NewStringArray(alloc, items, dst)
	})
}

//export tix_remote_list
func tix_remote_list(h C.tix_handle, verbose C.int, out *C.tix_string_array) C.int {
	return stringsResult(h, out, func(ws *tix.Workspace) ([]string, error) {
		remotes, err := ws.RemoteList(context.Background())
		if err != nil {
			return nil, err
		}
		items := make([]string, 0, len(remotes))
		for _, r := range remotes {
			if verbose != 0 {
				items = append(items, r.Name+"\t"+r.URL)
			} else {
				items = append(items, r.Name)
			}
		}
		return items, nil
	})
}

//export tix_switch_project
func tix_switch_project(h C.tix_handle, name *C.char, create C.int) C.int {
	var res tix.SwitchResult
	rc := guard(func() (err error) {
		ws, err := workspaceOf(h)
		if err != nil {
			return err
		}
		res, err = ws.Switch(context.Background(), C.GoString(name), create != 0)
		return err
	})
	if rc != 0 {
		return rc
	}
	return C.int(res)
}

//export tix_project_list
func tix_project_list(h C.tix_handle, out *C.tix_string_array) C.int {
	return stringsResult(h, out, func(ws *tix.Workspace) ([]string, error) {
		return ws.Projects(context.Background())
	})
}

//export tix_undo
func tix_undo(h C.tix_handle) C.int {
	return guard(func() error {
		ws, err := workspaceOf(h)
		if err != nil {
			return err
		}
		_, err = ws.Undo(context.Background())
		return err
	})
}

//export tix_redo
func tix_redo(h C.tix_handle) C.int {
	return guard(func() error {
		ws, err := workspaceOf(h)
		if err != nil {
			return err
		}
		_, err = ws.Redo(context.Background())
		return err
	})
}

//export tix_log
func tix_log(h C.tix_handle, oneline C.int, limit C.size_t, since *C.char, out *C.tix_string_array) C.int {
	return stringsResult(h, out, func(ws *tix.Workspace) ([]string, error) {
		seq, err := ws.Log(context.Background(), tix.LogOptions{Limit: int(limit), Since: C.GoString(since)})
		if err != nil {
			return nil, err
		}
		var items []string
		for c, err := range seq {
			if err != nil {
				return nil, err
			}
			items = append(items, c.Format(oneline != 0))
		}
		return items, nil
	})
}

//export tix_strerror
func tix_strerror(code C.int) *C.char {
	return strerror(errcode.Code(code))
}

//export tix_string_free
func tix_string_free(s *C.tix_string) {
	ffi.FreeString(alloc, (*ffi.String)(unsafe.Pointer(s)))
}

//export tix_ticket_free
func tix_ticket_free(t *C.tix_ticket) {
	ffi.FreeTicket(alloc, (*ffi.Ticket)(unsafe.Pointer(t)))
}

//export tix_ticket_array_free
func tix_ticket_array_free(a *C.tix_ticket_array) {
	ffi.FreeTicketArray(alloc, (*ffi.TicketArray)(unsafe.Pointer(a)))
}

//export tix_string_array_free
func tix_string_array_free(a *C.tix_string_array) {
	ffi.FreeStringArray(alloc, (*ffi.StringArray)(unsafe.Pointer(a)))
}
