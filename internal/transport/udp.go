package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/senutpal/quorum/internal/wire"
)

const maxDatagram = 64 * 1024

// UDP is the real-process Channel: one UDP socket, sending and receiving
// whole JSON envelopes as individual datagrams. This is the literal
// "datagram-style message channel delivering whole messages at most once
// with no ordering guarantee, no reliable delivery, and no authentication"
// the specification describes — no framing layer is needed because a UDP
// packet already is the frame.
type UDP struct {
	conn *net.UDPConn
}

// ListenUDP opens a UDP socket on addr (e.g. ":7000" or "127.0.0.1:7000").
func ListenUDP(addr string) (*UDP, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	return &UDP{conn: conn}, nil
}

func (u *UDP) Send(to Endpoint, env wire.Envelope) error {
	raddr, err := net.ResolveUDPAddr("udp", string(to))
	if err != nil {
		return fmt.Errorf("transport: resolve %s: %w", to, err)
	}
	data, err := wire.Marshal(env)
	if err != nil {
		return err
	}
	// Fire and forget: a write error here means the peer is unreachable
	// right now, which Paxos is designed to tolerate. We don't retry or
	// block waiting for anything.
	_, err = u.conn.WriteToUDP(data, raddr)
	return err
}

func (u *UDP) Recv(ctx context.Context) (wire.Envelope, Endpoint, error) {
	if deadline, ok := ctx.Deadline(); ok {
		u.conn.SetReadDeadline(deadline)
	} else {
		u.conn.SetReadDeadline(time.Time{})
	}
	// Unblock the read as soon as ctx is cancelled, not only at its deadline.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			u.conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()
	buf := make([]byte, maxDatagram)
	n, raddr, err := u.conn.ReadFromUDP(buf)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return wire.Envelope{}, "", ErrClosed
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return wire.Envelope{}, "", ctxErr
			}
			return wire.Envelope{}, "", context.DeadlineExceeded
		}
		return wire.Envelope{}, "", err
	}
	env, err := wire.Unmarshal(buf[:n])
	return env, Endpoint(raddr.String()), err
}

func (u *UDP) LocalEndpoint() Endpoint {
	return Endpoint(u.conn.LocalAddr().String())
}

func (u *UDP) Close() error {
	return u.conn.Close()
}
