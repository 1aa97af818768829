package ffi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixhq/tix/internal/errcode"
	"github.com/tixhq/tix/internal/types"
)

func sampleTickets() []*types.Ticket {
	return []*types.Ticket{
		{ID: "01JABCDEFGHJKMNPQRSTVWXYZ0", Title: "Fix bug", Body: "", Priority: 'a', Status: types.StatusBacklog},
		{ID: "01JABCDEFGHJKMNPQRSTVWXYZ1", Title: "Ship it", Body: "multi\nline", Priority: 'z', Status: types.StatusDoing},
		{ID: "01JABCDEFGHJKMNPQRSTVWXYZ2", Title: "ünïcode", Body: "body", Priority: 'c', Status: types.StatusDone},
	}
}

func assertClean(t *testing.T, a *Tracking) {
	t.Helper()
	assert.Zero(t, a.Live(), "leaked blocks")
	assert.Zero(t, a.BadFrees(), "double or foreign frees")
}

func TestString(t *testing.T) {
	a := NewTracking()
	var s String
	require.NoError(t, NewString(a, "hello", &s))
	assert.Equal(t, uintptr(5), s.Len)
	assert.Equal(t, "hello", GoString(s.Ptr))

	FreeString(a, &s)
	assert.Equal(t, String{}, s)
	FreeString(a, &s)
	FreeString(a, nil)
	assertClean(t, a)

	require.NoError(t, NewString(a, "", &s))
	assert.NotNil(t, s.Ptr, "empty strings are still owned buffers")
	assert.Equal(t, "", GoString(s.Ptr))
	FreeString(a, &s)
	assertClean(t, a)
}

func TestTicket(t *testing.T) {
	a := NewTracking()
	src := sampleTickets()[1]
	var tk Ticket
	require.NoError(t, NewTicket(a, src, &tk))
	assert.Equal(t, src.ID, GoString(tk.ID))
	assert.Equal(t, src.Title, GoString(tk.Title))
	assert.Equal(t, src.Body, GoString(tk.Body))
	assert.Equal(t, byte('z'), tk.Priority)
	assert.Equal(t, byte('w'), tk.Status)

	// The copy does not alias the source.
	src.Title = "changed"
	assert.Equal(t, "Ship it", GoString(tk.Title))

	FreeTicket(a, &tk)
	assert.Equal(t, Ticket{}, tk)
	FreeTicket(a, &tk)
	assertClean(t, a)
}

func TestTicketArray(t *testing.T) {
	a := NewTracking()
	var arr TicketArray
	require.NoError(t, NewTicketArray(a, sampleTickets(), &arr))
	require.Equal(t, uintptr(3), arr.Count)

	items := TicketsOf(&arr)
	want := sampleTickets()
	for i := range items {
		assert.Equal(t, want[i].ID, GoString(items[i].ID))
		assert.Equal(t, want[i].Title, GoString(items[i].Title))
		assert.Equal(t, want[i].Status.Code(), items[i].Status)
	}

	FreeTicketArray(a, &arr)
	assert.Equal(t, TicketArray{}, arr)
	FreeTicketArray(a, &arr)
	FreeTicketArray(a, nil)
	assertClean(t, a)

	require.NoError(t, NewTicketArray(a, nil, &arr))
	assert.Nil(t, arr.Items)
	assert.Zero(t, arr.Count)
	FreeTicketArray(a, &arr)
	assertClean(t, a)
}

func TestStringArray(t *testing.T) {
	a := NewTracking()
	var arr StringArray
	require.NoError(t, NewStringArray(a, []string{"main", "feature", ""}, &arr))
	assert.Equal(t, []string{"main", "feature", ""}, StringsOf(&arr))

	FreeStringArray(a, &arr)
	assert.Equal(t, StringArray{}, arr)
	FreeStringArray(a, &arr)
	assertClean(t, a)
}

func TestAllocationFailureLeavesNothing(t *testing.T) {
	// Ticket array: 1 array block plus 3 strings per ticket.
	total := 1 + 3*len(sampleTickets())
	for failAt := 1; failAt <= total; failAt++ {
		a := NewTracking()
		a.FailAt = failAt
		arr := TicketArray{Count: 99}
		err := NewTicketArray(a, sampleTickets(), &arr)
		assert.ErrorIs(t, err, errcode.ErrOutOfMemory, "failAt=%d", failAt)
		assert.Equal(t, TicketArray{}, arr, "failAt=%d: out-param must stay zeroed", failAt)
		assertClean(t, a)
	}

	for failAt := 1; failAt <= 4; failAt++ {
		a := NewTracking()
		a.FailAt = failAt
		var arr StringArray
		err := NewStringArray(a, []string{"a", "b", "c"}, &arr)
		assert.ErrorIs(t, err, errcode.ErrOutOfMemory, "failAt=%d", failAt)
		assert.Equal(t, StringArray{}, arr)
		assertClean(t, a)
	}

	a := NewTracking()
	a.FailAt = 1
	s := String{Len: 7}
	assert.ErrorIs(t, NewString(a, "x", &s), errcode.ErrOutOfMemory)
	assert.Equal(t, String{}, s)
	assertClean(t, a)
}

func TestTrackingDetectsDoubleFree(t *testing.T) {
	a := NewTracking()
	p := a.Malloc(4)
	a.Free(p)
	a.Free(p)
	assert.Equal(t, 1, a.BadFrees())
	assert.Equal(t, 1, a.Allocs())
}
