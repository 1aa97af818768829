// Package ffi converts engine values into caller-owned memory for the C
// ABI and releases it again.
//
// The Go types here have the exact layout of the C structs declared in
// cmd/libtix/tix_types.h. All memory comes from an Allocator; every New*
// either fills its out-parameter completely or releases whatever it
// allocated and leaves the out-parameter zeroed. Every Free* releases
// nested strings first and zeroes the struct, so releasing twice is a no-op.
package ffi

import (
	"unsafe"

	"github.com/tixhq/tix/internal/errcode"
	"github.com/tixhq/tix/internal/types"
)

// Allocator hands out raw memory owned by the host.
type Allocator interface {
	// Malloc returns n bytes or nil when memory is exhausted.
	Malloc(n uintptr) unsafe.Pointer
	Free(p unsafe.Pointer)
}

// String mirrors tix_string.
type String struct {
	Ptr *byte
	Len uintptr
}

// Ticket mirrors tix_ticket.
type Ticket struct {
	ID       *byte
	Title    *byte
	Body     *byte
	Priority byte
	Status   byte
}

// TicketArray mirrors tix_ticket_array.
type TicketArray struct {
	Items *Ticket
	Count uintptr
}

// StringArray mirrors tix_string_array.
type StringArray struct {
	Items **byte
	Count uintptr
}

var errOOM = errcode.New(errcode.OutOfMemory, "ffi", "allocation failed")

// CString copies s into a NUL-terminated block.
func CString(a Allocator, s string) (*byte, error) {
	p := a.Malloc(uintptr(len(s)) + 1)
	if p == nil {
		return nil, errOOM
	}
	buf := unsafe.Slice((*byte)(p), len(s)+1)
	copy(buf, s)
	buf[len(s)] = 0
	return (*byte)(p), nil
}

// GoString copies a NUL-terminated block into a Go string.
func GoString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

func freeCString(a Allocator, p **byte) {
	if *p != nil {
		a.Free(unsafe.Pointer(*p))
		*p = nil
	}
}

// NewString fills out with a copy of s. The buffer is NUL-terminated;
// Len excludes the terminator.
func NewString(a Allocator, s string, out *String) error {
	*out = String{}
	p, err := CString(a, s)
	if err != nil {
		return err
	}
	*out = String{Ptr: p, Len: uintptr(len(s))}
	return nil
}

// FreeString releases s.
func FreeString(a Allocator, s *String) {
	if s == nil {
		return
	}
	freeCString(a, &s.Ptr)
	*s = String{}
}

// NewTicket fills out with a copy of t.
func NewTicket(a Allocator, t *types.Ticket, out *Ticket) error {
	*out = Ticket{}
	var tmp Ticket
	for _, f := range []struct {
		dst **byte
		src string
	}{
		{&tmp.ID, t.ID},
		{&tmp.Title, t.Title},
		{&tmp.Body, t.Body},
	} {
		p, err := CString(a, f.src)
		if err != nil {
			FreeTicket(a, &tmp)
			return err
		}
		*f.dst = p
	}
	tmp.Priority = byte(t.Priority)
	tmp.Status = t.Status.Code()
	*out = tmp
	return nil
}

// FreeTicket releases the strings of t.
func FreeTicket(a Allocator, t *Ticket) {
	if t == nil {
		return
	}
	freeCString(a, &t.ID)
	freeCString(a, &t.Title)
	freeCString(a, &t.Body)
	*t = Ticket{}
}

// NewTicketArray fills out with copies of ts. An empty slice yields a nil
// Items pointer and a zero Count.
func NewTicketArray(a Allocator, ts []*types.Ticket, out *TicketArray) error {
	*out = TicketArray{}
	if len(ts) == 0 {
		return nil
	}
	p := a.Malloc(unsafe.Sizeof(Ticket{}) * uintptr(len(ts)))
	if p == nil {
		return errOOM
	}
	items := unsafe.Slice((*Ticket)(p), len(ts))
	clear(items)
	for i, t := range ts {
		if err := NewTicket(a, t, &items[i]); err != nil {
			for j := 0; j < i; j++ {
				FreeTicket(a, &items[j])
			}
			a.Free(p)
			return err
		}
	}
	*out = TicketArray{Items: (*Ticket)(p), Count: uintptr(len(ts))}
	return nil
}

// FreeTicketArray releases every ticket and then the array.
func FreeTicketArray(a Allocator, arr *TicketArray) {
	if arr == nil {
		return
	}
	if arr.Items != nil {
		items := unsafe.Slice(arr.Items, arr.Count)
		for i := range items {
			FreeTicket(a, &items[i])
		}
		a.Free(unsafe.Pointer(arr.Items))
	}
	*arr = TicketArray{}
}

// TicketsOf returns a view of arr's elements.
func TicketsOf(arr *TicketArray) []Ticket {
	if arr == nil || arr.Items == nil {
		return nil
	}
	return unsafe.Slice(arr.Items, arr.Count)
}

// NewStringArray fills out with copies of ss.
func NewStringArray(a Allocator, ss []string, out *StringArray) error {
	*out = StringArray{}
	if len(ss) == 0 {
		return nil
	}
	p := a.Malloc(unsafe.Sizeof((*byte)(nil)) * uintptr(len(ss)))
	if p == nil {
		return errOOM
	}
	items := unsafe.Slice((**byte)(p), len(ss))
	clear(items)
	for i, s := range ss {
		c, err := CString(a, s)
		if err != nil {
			for j := 0; j < i; j++ {
				freeCString(a, &items[j])
			}
			a.Free(p)
			return err
		}
		items[i] = c
	}
	*out = StringArray{Items: (**byte)(p), Count: uintptr(len(ss))}
	return nil
}

// FreeStringArray releases every string and then the array.
func FreeStringArray(a Allocator, arr *StringArray) {
	if arr == nil {
		return
	}
	if arr.Items != nil {
		items := unsafe.Slice(arr.Items, arr.Count)
		for i := range items {
			freeCString(a, &items[i])
		}
		a.Free(unsafe.Pointer(arr.Items))
	}
	*arr = StringArray{}
}

// StringsOf copies arr's elements into Go strings.
func StringsOf(arr *StringArray) []string {
	if arr == nil || arr.Items == nil {
		return nil
	}
	var out []string
	for _, p := range unsafe.Slice(arr.Items, arr.Count) {
		out = append(out, GoString(p))
	}
	return out
}
