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

import "github.com/ezhilan/qtrace/qerrors"

// MemChannel is an in-memory Channel test double: Sends are recorded, and
// Recv drains a pre-loaded reply queue.
type MemChannel struct {
	Sent    []string
	replies []string
}

// NewMemChannel returns a channel that will reply with replies, in order,
// one per Recv call.
func NewMemChannel(replies ...string) *MemChannel {
	return &MemChannel{replies: replies}
}

func (c *MemChannel) Send(pkt string) error {
	c.Sent = append(c.Sent, pkt)
	return nil
}

func (c *MemChannel) Recv() (string, error) {
	if len(c.replies) == 0 {
		return "", qerrors.Errorf(qerrors.Transport, "no more replies queued")
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply, nil
}
