package bio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-mcukernel/kerrors"
)

func newMemRegistry(t *testing.T, name string, blocks, blockSize int) (*Registry, *Handle) {
	r := NewRegistry(nil)
	backing := make([]byte, blocks*blockSize)
	require.NoError(t, r.Register(CreateMemDevice(name, backing, blockSize, 0xFF)))
	h, err := r.Open(name)
	require.NoError(t, err)
	return r, h
}

func TestBlockReadWrite(t *testing.T) {
	r, h := newMemRegistry(t, "mem0", 8, 64)
	defer r.Close(h)

	data := make([]byte, 128)
	for i := range data {
		data[i] = byte(i)
	}
	n, err := r.WriteBlock(h, data, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 128, n)

	out := make([]byte, 128)
	n, err = r.ReadBlock(h, out, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 128, n)
	assert.Equal(t, data, out)
}

func TestBlockReadWriteOutOfRange(t *testing.T) {
	r, h := newMemRegistry(t, "mem0", 4, 64)
	defer r.Close(h)
	_, err := r.ReadBlock(h, make([]byte, 64), 10, 1)
	require.Error(t, err)
	assert.True(t, kerrors.Is(err, kerrors.OutOfRange))
}

func TestBasicReadWriteUnaligned(t *testing.T) {
	r, h := newMemRegistry(t, "mem0", 8, 64)
	defer r.Close(h)

	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	n, err := r.Write(h, payload, 10, len(payload))
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	out := make([]byte, 100)
	n, err = r.Read(h, out, 10, len(out))
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, payload, out)
}

func TestEraseSupported(t *testing.T) {
	r, h := newMemRegistry(t, "mem0", 4, 64)
	defer r.Close(h)
	require.NoError(t, r.Erase(h, 0, 64))
	out := make([]byte, 64)
	_, err := r.Read(h, out, 0, 64)
	require.NoError(t, err)
	for _, b := range out {
		assert.Equal(t, byte(0xFF), b)
	}
}

func TestOpenUnregisteredReclaim(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(CreateMemDevice("mem0", make([]byte, 256), 64, 0)))
	h, err := r.Open("mem0")
	require.NoError(t, err)

	require.NoError(t, r.Unregister(h))
	_, err = r.Open("mem0")
	require.Error(t, err)
	assert.True(t, kerrors.Is(err, kerrors.NotFound))

	r.Close(h)
	_, err = r.Open("mem0")
	require.Error(t, err)
}

func TestPublishSubdevice(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(CreateMemDevice("parent", make([]byte, 16*64), 64, 0)))

	require.NoError(t, r.PublishSubdevice("parent", "child", 4, 8))
	child, err := r.Open("child")
	require.NoError(t, err)
	defer r.Close(child)

	assert.EqualValues(t, 8, child.device.Geometry().BlockCount)

	data := make([]byte, 64)
	for i := range data {
		data[i] = 0x42
	}
	_, err = r.WriteBlock(child, data, 0, 1)
	require.NoError(t, err)

	parent, err := r.Open("parent")
	require.NoError(t, err)
	defer r.Close(parent)
	out := make([]byte, 64)
	_, err = r.ReadBlock(parent, out, 4, 1) // block 0 of child == block 4 of parent
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestPublishSubdeviceOutOfRange(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(CreateMemDevice("parent", make([]byte, 8*64), 64, 0)))
	err := r.PublishSubdevice("parent", "child", 4, 8)
	require.Error(t, err)
	assert.True(t, kerrors.Is(err, kerrors.OutOfRange))
}

func TestPublishSubdeviceNotFound(t *testing.T) {
	r := NewRegistry(nil)
	err := r.PublishSubdevice("missing", "child", 0, 1)
	require.Error(t, err)
	assert.True(t, kerrors.Is(err, kerrors.NotFound))
}

// TestNestedSubdevice mirrors spec §8 scenario 6: a sub-device published
// on top of another sub-device must compose address translation
// correctly (spec §4.4 "a child may itself be a parent").
func TestNestedSubdevice(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(CreateMemDevice("root", make([]byte, 32*64), 64, 0)))
	require.NoError(t, r.PublishSubdevice("root", "mid", 8, 16))
	require.NoError(t, r.PublishSubdevice("mid", "leaf", 2, 4))

	leaf, err := r.Open("leaf")
	require.NoError(t, err)
	defer r.Close(leaf)
	assert.EqualValues(t, 4, leaf.device.Geometry().BlockCount)

	data := make([]byte, 64)
	for i := range data {
		data[i] = 0x7A
	}
	_, err = r.WriteBlock(leaf, data, 0, 1) // leaf block 0 == mid block 2 == root block 10

	require.NoError(t, err)

	root, err := r.Open("root")
	require.NoError(t, err)
	defer r.Close(root)
	out := make([]byte, 64)
	_, err = r.ReadBlock(root, out, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestReadAsyncSynthesized(t *testing.T) {
	r, h := newMemRegistry(t, "mem0", 4, 64)
	defer r.Close(h)

	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte(i)
	}
	_, err := r.WriteBlock(h, payload, 0, 1)
	require.NoError(t, err)

	out := make([]byte, 64)
	done := make(chan error, 1)
	err = r.ReadAsync(h, out, 0, 64, func(cookie any, dev Device, status error) {
		done <- status
	}, nil)
	require.NoError(t, err)

	select {
	case status := <-done:
		require.NoError(t, status)
	case <-time.After(time.Second):
		t.Fatal("async read never completed")
	}
	assert.Equal(t, payload, out)
}

func TestWriteAsyncSynthesized(t *testing.T) {
	r, h := newMemRegistry(t, "mem0", 4, 64)
	defer r.Close(h)

	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte(0xAB)
	}
	done := make(chan error, 1)
	err := r.WriteAsync(h, payload, 0, 64, func(cookie any, dev Device, status error) {
		done <- status
	}, "cookie-value")
	require.NoError(t, err)

	select {
	case status := <-done:
		require.NoError(t, status)
	case <-time.After(time.Second):
		t.Fatal("async write never completed")
	}

	out := make([]byte, 64)
	_, err = r.ReadBlock(h, out, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}
