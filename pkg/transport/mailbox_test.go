package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vectorcomm/pkg/protocol"
)

func newMsg(t *testing.T, opts ...protocol.Option) *protocol.Message {
	t.Helper()
	m, err := protocol.New("sender", make([]float32, 384), opts...)
	require.NoError(t, err)
	return m
}

func TestMailboxFIFOOrder(t *testing.T) {
	mb := newMailbox(MailboxFIFO, 10)
	var ids []string
	for i := 0; i < 3; i++ {
		m := newMsg(t)
		ids = append(ids, m.Metadata.MessageID)
		require.Equal(t, pushOK, mb.push(m))
	}
	for _, want := range ids {
		got, err := mb.popWait(context.Background(), 10*time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, want, got.Metadata.MessageID)
	}
}

func TestMailboxRejectsWhenFull(t *testing.T) {
	mb := newMailbox(MailboxFIFO, 2)
	require.Equal(t, pushOK, mb.push(newMsg(t)))
	require.Equal(t, pushOK, mb.push(newMsg(t)))
	require.Equal(t, pushFull, mb.push(newMsg(t)))
	require.Equal(t, 2, mb.len())
}

func TestMailboxEvictOldest(t *testing.T) {
	mb := newMailbox(MailboxFIFO, 2)
	first := newMsg(t)
	require.Equal(t, pushOK, mb.push(first))
	require.Equal(t, pushOK, mb.push(newMsg(t)))
	evicted, out := mb.pushEvict(newMsg(t))
	require.Equal(t, pushOK, out)
	require.NotNil(t, evicted)
	require.Equal(t, first.Metadata.MessageID, evicted.Metadata.MessageID)
	require.Equal(t, 2, mb.len())
}

func TestMailboxPushWaitTimesOut(t *testing.T) {
	mb := newMailbox(MailboxFIFO, 1)
	require.Equal(t, pushOK, mb.push(newMsg(t)))
	start := time.Now()
	require.Equal(t, pushTimeout, mb.pushWait(newMsg(t), 30*time.Millisecond))
	require.Less(t, time.Since(start), time.Second)
}

func TestMailboxPushWaitUnblocksOnPop(t *testing.T) {
	mb := newMailbox(MailboxFIFO, 1)
	require.Equal(t, pushOK, mb.push(newMsg(t)))
	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = mb.popWait(context.Background(), time.Second)
	}()
	require.Equal(t, pushOK, mb.pushWait(newMsg(t), 2*time.Second))
}

func TestMailboxPopWaitTimeoutIsNormal(t *testing.T) {
	mb := newMailbox(MailboxFIFO, 1)
	m, err := mb.popWait(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestMailboxPopWaitWakesOnPush(t *testing.T) {
	mb := newMailbox(MailboxFIFO, 1)
	want := newMsg(t)
	go func() {
		time.Sleep(20 * time.Millisecond)
		mb.push(want)
	}()
	got, err := mb.popWait(context.Background(), 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, want.Metadata.MessageID, got.Metadata.MessageID)
}

func TestMailboxCloseWakesWaiters(t *testing.T) {
	mb := newMailbox(MailboxFIFO, 1)
	done := make(chan error, 1)
	go func() {
		_, err := mb.popWait(context.Background(), 10*time.Second)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	remaining := mb.close()
	require.Empty(t, remaining)
	select {
	case err := <-done:
		require.ErrorIs(t, err, errMailboxClosed)
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by close")
	}
}

func TestMailboxCloseReturnsQueued(t *testing.T) {
	mb := newMailbox(MailboxFIFO, 5)
	for i := 0; i < 3; i++ {
		mb.push(newMsg(t))
	}
	require.Len(t, mb.close(), 3)
	require.Equal(t, pushClosed, mb.push(newMsg(t)))
}

func TestMailboxPopWaitContextCancel(t *testing.T) {
	mb := newMailbox(MailboxFIFO, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := mb.popWait(ctx, 10*time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMailboxExpire(t *testing.T) {
	mb := newMailbox(MailboxFIFO, 5)
	mb.push(newMsg(t))
	mb.push(newMsg(t))
	time.Sleep(5 * time.Millisecond)
	expired := mb.expire(time.Now())
	require.Len(t, expired, 2)
	require.Equal(t, 0, mb.len())
	require.Empty(t, mb.expire(time.Now()))
}

func TestMailboxDrain(t *testing.T) {
	mb := newMailbox(MailboxFIFO, 5)
	for i := 0; i < 4; i++ {
		mb.push(newMsg(t))
	}
	require.Len(t, mb.drain(), 4)
	require.Empty(t, mb.drain())
}
