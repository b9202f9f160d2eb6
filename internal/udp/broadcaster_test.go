package udp

import (
	"errors"
	"net"
	"testing"
)

type fakeConn struct {
	writes    [][]byte
	writeErr  error
	closed    bool
	writeHits int
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.writeHits++
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestNewBroadcaster_DialsResolvedAddr(t *testing.T) {
	var gotRaddr *net.UDPAddr
	fc := &fakeConn{}
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		if network != "udp" {
			t.Fatalf("network=%q", network)
		}
		gotRaddr = raddr
		return fc, nil
	}

	b, err := newBroadcaster("127.0.0.1:4000", net.ResolveUDPAddr, dial)
	if err != nil {
		t.Fatalf("newBroadcaster() error: %v", err)
	}
	if gotRaddr == nil || gotRaddr.Port != 4000 || !gotRaddr.IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Fatalf("raddr=%v want 127.0.0.1:4000", gotRaddr)
	}
	if b.Dest() != "127.0.0.1:4000" {
		t.Fatalf("dest=%q", b.Dest())
	}
	if err := b.Close(); err != nil || !fc.closed {
		t.Fatalf("close err=%v closed=%v", err, fc.closed)
	}
}

func TestNewBroadcaster_Failures(t *testing.T) {
	resolveErr := errors.New("no such host")
	dialErr := errors.New("network unreachable")
	okResolve := func(network, address string) (*net.UDPAddr, error) { return &net.UDPAddr{Port: 1}, nil }
	okDial := func(string, *net.UDPAddr, *net.UDPAddr) (udpConn, error) { return &fakeConn{}, nil }

	_, err := newBroadcaster("bad:addr", func(string, string) (*net.UDPAddr, error) { return nil, resolveErr }, okDial)
	if !errors.Is(err, resolveErr) {
		t.Fatalf("err=%v want %v", err, resolveErr)
	}
	_, err = newBroadcaster("x:1", okResolve, func(string, *net.UDPAddr, *net.UDPAddr) (udpConn, error) { return nil, dialErr })
	if !errors.Is(err, dialErr) {
		t.Fatalf("err=%v want %v", err, dialErr)
	}
}

func TestBroadcaster_Send(t *testing.T) {
	fc := &fakeConn{}
	b := &Broadcaster{dest: "x", conn: fc}

	if err := b.Send(nil); err != nil {
		t.Fatalf("Send(nil) error: %v", err)
	}
	if fc.writeHits != 0 {
		t.Fatalf("expected no writes, got %d", fc.writeHits)
	}
	if err := b.Send([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if len(fc.writes) != 1 || string(fc.writes[0]) != "\x01\x02\x03" {
		t.Fatalf("writes=%v", fc.writes)
	}

	wantErr := errors.New("boom")
	fc.writeErr = wantErr
	if err := b.Send([]byte{1}); !errors.Is(err, wantErr) {
		t.Fatalf("err=%v want %v", err, wantErr)
	}
}

func TestBroadcaster_Close_NilConnNoPanic(t *testing.T) {
	if err := (&Broadcaster{}).Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}
