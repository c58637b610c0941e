// This file is part of qtrace.
//
// qtrace is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// qtrace is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with qtrace.  If not, see <https://www.gnu.org/licenses/>.

package protocol

import (
	"bufio"
	"fmt"
	"net"

	"github.com/ezhilan/qtrace/qerrors"
)

// TCPChannel is a Channel implementation over a plain TCP connection to a
// remote stub, framing each packet as "$<payload>#<checksum>" and
// acknowledging every exchange with a bare '+', the way a real gdbserver
// connection does. It is the concrete transport a cmd/qtrace session hands
// to protocol.Engine; MemChannel exists purely for tests.
type TCPChannel struct {
	conn net.Conn
	r    *bufio.Reader
}

// DialTCP connects to addr and returns a ready TCPChannel.
func DialTCP(addr string) (*TCPChannel, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, qerrors.Errorf(qerrors.Transport, "dial %s: %v", addr, err)
	}
	return &TCPChannel{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Close closes the underlying connection.
func (c *TCPChannel) Close() error {
	return c.conn.Close()
}

// Send frames pkt as "$<pkt>#<checksum>", writes it, and waits for the
// stub's '+' acknowledgement (a '-' triggers one resend, matching the
// RSP retransmission convention).
func (c *TCPChannel) Send(pkt string) error {
	frame := frame(pkt)
	for attempt := 0; attempt < 2; attempt++ {
		if _, err := c.conn.Write([]byte(frame)); err != nil {
			return qerrors.Errorf(qerrors.Transport, "writing packet: %v", err)
		}
		ack, err := c.r.ReadByte()
		if err != nil {
			return qerrors.Errorf(qerrors.Transport, "reading ack: %v", err)
		}
		if ack == '+' {
			return nil
		}
		if ack != '-' {
			return qerrors.Errorf(qerrors.Wire, "unexpected ack byte %q", ack)
		}
	}
	return qerrors.Errorf(qerrors.Transport, "stub repeatedly rejected packet %q", pkt)
}

// Recv reads one "$<payload>#<checksum>" frame, acknowledges it with '+',
// and returns the decoded payload.
func (c *TCPChannel) Recv() (string, error) {
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			return "", qerrors.Errorf(qerrors.Transport, "reading frame start: %v", err)
		}
		if b == '$' {
			break
		}
		// stray ack bytes between exchanges are not a protocol error.
	}

	var payload []byte
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			return "", qerrors.Errorf(qerrors.Transport, "reading payload: %v", err)
		}
		if b == '#' {
			break
		}
		payload = append(payload, b)
	}

	checksum := make([]byte, 2)
	if _, err := c.r.Read(checksum); err != nil {
		return "", qerrors.Errorf(qerrors.Transport, "reading checksum: %v", err)
	}

	if _, err := c.conn.Write([]byte{'+'}); err != nil {
		return "", qerrors.Errorf(qerrors.Transport, "writing ack: %v", err)
	}

	return string(payload), nil
}

func frame(payload string) string {
	var sum byte
	for i := 0; i < len(payload); i++ {
		sum += payload[i]
	}
	return fmt.Sprintf("$%s#%02x", payload, sum)
}
