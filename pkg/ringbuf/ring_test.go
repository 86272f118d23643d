package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewPanicsOnNonPowerOfTwo(t *testing.T) {
	assert.Panics(t, func() { New(0) })
	assert.Panics(t, func() { New(3) })
	assert.Panics(t, func() { New(100) })
}

func TestPushPopRoundTrip(t *testing.T) {
	rb := New(16)
	n := rb.Push([]byte("hello"))
	require.Equal(t, 5, n)
	require.Equal(t, 5, rb.Len())
	require.Equal(t, 11, rb.Free())

	out := make([]byte, 5)
	got, closed := rb.Pop(out)
	require.Equal(t, 5, got)
	require.False(t, closed)
	require.Equal(t, "hello", string(out))
	require.True(t, rb.IsEmpty())
}

func TestPushClampsToFreeSpace(t *testing.T) {
	rb := New(4)
	n := rb.Push([]byte{1, 2, 3, 4, 5, 6})
	require.Equal(t, 4, n)
	require.Equal(t, 0, rb.Free())
}

func TestWrapSplitCopy(t *testing.T) {
	rb := New(8)
	rb.Push([]byte{1, 2, 3, 4, 5, 6})
	out := make([]byte, 6)
	rb.Pop(out)
	// w=6 r=6, now push 6 more bytes, which must wrap past the end.
	n := rb.Push([]byte{7, 8, 9, 10, 11, 12})
	require.Equal(t, 6, n)
	readBack := make([]byte, 6)
	got, _ := rb.Pop(readBack)
	require.Equal(t, 6, got)
	require.Equal(t, []byte{7, 8, 9, 10, 11, 12}, readBack)
}

func TestRegionAPIAvoidsCopy(t *testing.T) {
	rb := New(8)
	first, second := rb.WriteRegion(5)
	require.Len(t, first, 5)
	require.Nil(t, second)
	copy(first, []byte{1, 2, 3, 4, 5})
	rb.CommitWrite(5)

	r1, r2 := rb.ReadRegion(5)
	require.Len(t, r1, 5)
	require.Nil(t, r2)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, r1)
	rb.CommitRead(5)
	require.True(t, rb.IsEmpty())
}

func TestRegionAPIWrapsAcrossEnd(t *testing.T) {
	rb := New(8)
	rb.Push(make([]byte, 6))
	out := make([]byte, 6)
	rb.Pop(out)
	// r=w=6; writing 4 bytes must wrap: 2 bytes at tail, 2 at head.
	first, second := rb.WriteRegion(4)
	require.Len(t, first, 2)
	require.Len(t, second, 2)
}

func TestClearDropsUnreadBytes(t *testing.T) {
	rb := New(8)
	rb.Push([]byte{1, 2, 3})
	rb.Clear()
	require.True(t, rb.IsEmpty())
	require.Equal(t, 8, rb.Free())
}

func TestFillWritesSilence(t *testing.T) {
	rb := New(8)
	n := rb.Fill(4, 0xAA)
	require.Equal(t, 4, n)
	out := make([]byte, 4)
	rb.Pop(out)
	for _, b := range out {
		require.Equal(t, byte(0xAA), b)
	}
}

func TestCloseIsObservedOnDrainedRead(t *testing.T) {
	rb := New(8)
	rb.Push([]byte{1, 2})
	rb.Close()
	out := make([]byte, 2)
	_, closed := rb.Pop(out)
	require.True(t, closed)
}

// TestPushPopNeverLosesOrDuplicatesBytes exercises the ring under randomized
// push/pop sequences and checks the consumer observes exactly the bytes the
// producer pushed, in order, regardless of chunk sizes.
func TestPushPopNeverLosesOrDuplicatesBytes(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capExp := rapid.IntRange(2, 10).Draw(rt, "capExp")
		rb := New(1 << capExp)

		var written, read []byte
		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(rt, "isPush") {
				chunk := rapid.SliceOfN(rapid.Byte(), 0, 17).Draw(rt, "chunk")
				n := rb.Push(chunk)
				written = append(written, chunk[:n]...)
			} else {
				out := make([]byte, rapid.IntRange(0, 17).Draw(rt, "readLen"))
				n, _ := rb.Pop(out)
				read = append(read, out[:n]...)
			}
		}
		final := make([]byte, rb.Len())
		n, _ := rb.Pop(final)
		read = append(read, final[:n]...)

		require.Equal(rt, written, read)
	})
}
