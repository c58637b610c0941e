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

// Package protocol implements the remote tracepoint protocol engine
// (spec.md §4.F): a request/response driver over an externally supplied
// packet channel that sequences QTinit/QTDP/QTStart/QTStop/qTStatus/
// QTFrame:* exchanges, tolerating asynchronous console/register/error
// notifications interleaved with terminal replies.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ezhilan/qtrace/action"
	"github.com/ezhilan/qtrace/logger"
	"github.com/ezhilan/qtrace/qerrors"
	"github.com/ezhilan/qtrace/registers"
	"github.com/ezhilan/qtrace/symtab"
	"github.com/ezhilan/qtrace/tracepoint"
)

// Channel is the packet transport collaborator spec.md §6 names:
// send_packet, recv_packet. It is synchronous: Recv blocks until a packet
// arrives or the channel fails.
type Channel interface {
	Send(pkt string) error
	Recv() (string, error)
}

// Engine drives the wire protocol over a Channel. It owns no goroutines:
// every method blocks the calling command for the duration of its
// exchange, per the single-threaded, synchronous model.
type Engine struct {
	Channel Channel

	// PacketBufferSize bounds an outgoing QTDP body (spec.md §9's
	// "static buffers... owned by the protocol engine, not globals").
	PacketBufferSize int

	// Console receives decoded bytes from O... notifications.
	Console func(text string)

	// OnInvalidate runs the first three steps of the cursor transition
	// (spec.md §4.G) whenever an R... register snapshot arrives mid-command.
	OnInvalidate func()

	// OnRegisterSnapshot receives the decoded register values from an
	// R... notification, keyed by register number.
	OnRegisterSnapshot func(map[int][]byte)
}

func (e *Engine) send(pkt string) error {
	logger.Logf("protocol", "-> %s", pkt)
	if err := e.Channel.Send(pkt); err != nil {
		return qerrors.Errorf(qerrors.Transport, "sending %q: %v", pkt, err)
	}
	return nil
}

// noisyRecv loops on Channel.Recv until a terminal reply arrives, handling
// E/O/R prefixes inline per spec.md §4.F's table.
func (e *Engine) noisyRecv() (string, error) {
	for {
		reply, err := e.Channel.Recv()
		if err != nil {
			return "", qerrors.Errorf(qerrors.Transport, "receiving reply: %v", err)
		}
		logger.Logf("protocol", "<- %s", reply)

		switch {
		case reply == "":
			return "", qerrors.Errorf(qerrors.Transport, "target does not support this command")

		case reply[0] == 'E':
			return "", classifyError(reply)

		case reply[0] == 'O' && reply != "OK":
			if e.Console != nil {
				e.Console(decodeHexBytes(reply[1:]))
			}
			continue

		case reply[0] == 'R':
			if e.OnInvalidate != nil {
				e.OnInvalidate()
			}
			snapshot, err := decodeRegisterSnapshot(reply[1:])
			if err != nil {
				return "", err
			}
			if e.OnRegisterSnapshot != nil {
				e.OnRegisterSnapshot(snapshot)
			}
			continue

		default:
			return reply, nil
		}
	}
}

// classifyError turns an E... stub reply into a Protocol error, per
// spec.md §4.F's classification table.
func classifyError(reply string) error {
	body := reply[1:]
	switch {
	case body == "10":
		return qerrors.Errorf(qerrors.Protocol, "error in outgoing packet")
	case strings.HasPrefix(body, "1"):
		field, err := strconv.ParseInt(body[1:], 16, 64)
		if err != nil {
			return qerrors.Errorf(qerrors.Wire, "malformed field-error reply %q", reply)
		}
		return qerrors.Errorf(qerrors.Protocol, "error in outgoing packet at field #%d", field)
	case strings.HasPrefix(body, "2"):
		return qerrors.Errorf(qerrors.Protocol, "trace API error 0x%s", body[1:])
	default:
		return qerrors.Errorf(qerrors.Protocol, "target returned error code %q", body)
	}
}

func decodeHexBytes(hexStr string) string {
	var b strings.Builder
	for i := 0; i+1 < len(hexStr); i += 2 {
		hi := fromHexDigit(hexStr[i])
		lo := fromHexDigit(hexStr[i+1])
		b.WriteByte(byte(hi*16 + lo))
	}
	return b.String()
}

func fromHexDigit(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return 0
	}
}

// decodeRegisterSnapshot decodes the body of an R packet: repeating
// "<regno-hex>:<value-hex>;" blocks, each value of exactly
// register_raw_size(regno) bytes.
func decodeRegisterSnapshot(body string) (map[int][]byte, error) {
	snapshot := make(map[int][]byte)
	p := body
	for p != "" {
		colon := strings.IndexByte(p, ':')
		if colon <= 0 {
			return nil, qerrors.Errorf(qerrors.Wire, "malformed R packet: missing register number")
		}
		regno, err := strconv.ParseInt(p[:colon], 16, 64)
		if err != nil {
			return nil, qerrors.Errorf(qerrors.Wire, "malformed R packet: bad register number %q", p[:colon])
		}
		p = p[colon+1:]

		n := registers.RawSize(int(regno)) * 2
		if len(p) < n+1 {
			return nil, qerrors.Errorf(qerrors.Wire, "malformed R packet: short value for register %d", regno)
		}
		value := make([]byte, n/2)
		for i := 0; i < n; i += 2 {
			value[i/2] = byte(fromHexDigit(p[i])*16 + fromHexDigit(p[i+1]))
		}
		if p[n] != ';' {
			return nil, qerrors.Errorf(qerrors.Wire, "malformed R packet: missing terminator for register %d", regno)
		}
		snapshot[int(regno)] = value
		p = p[n+1:]
	}
	return snapshot, nil
}

func (e *Engine) sendExpectOK(pkt string) error {
	if err := e.send(pkt); err != nil {
		return err
	}
	reply, err := e.noisyRecv()
	if err != nil {
		return err
	}
	if reply != "OK" {
		return qerrors.Errorf(qerrors.Wire, "unexpected reply %q to %q", reply, pkt)
	}
	return nil
}

// StartCollection runs the "start collection" sequence (spec.md §4.F):
// QTinit, then one QTDP per tracepoint in chain order, then QTStart.
// compiler compiles each tracepoint's action list; blockForPC resolves the
// lexical scope at a tracepoint's address, the way the symbol collector's
// "$args"/"$locals" need (spec.md §4.B) and may be nil if no scope is
// available.
func (e *Engine) StartCollection(reg *tracepoint.Registry, compiler *action.Collector, blockForPC func(uint64) *symtab.Block, numRegs int) error {
	if err := e.sendExpectOK("QTinit"); err != nil {
		return err
	}

	for t := reg.Head(); t != nil; t = t.Next() {
		body, err := e.buildQTDPBody(t, compiler, blockForPC, numRegs)
		if err != nil {
			return err
		}
		if err := e.sendExpectOK(body); err != nil {
			return err
		}
	}

	return e.sendExpectOK("QTStart")
}

// buildQTDPBody compiles t's actions and assembles the QTDP body, failing
// with a Capacity error before ever touching the channel if the body would
// exceed PacketBufferSize.
func (e *Engine) buildQTDPBody(t *tracepoint.Tracepoint, compiler *action.Collector, blockForPC func(uint64) *symtab.Block, numRegs int) (string, error) {
	enabledFlag := byte('D')
	if t.Enabled {
		enabledFlag = 'E'
	}

	body := fmt.Sprintf("QTDP:%x:%x:%c:%x:%x", t.Number, t.Address, enabledFlag, stepCountField(t.StepCount), t.PassCount)

	if t.Actions() != nil {
		var block *symtab.Block
		if blockForPC != nil {
			block = blockForPC(t.Address)
		}
		compiled, err := action.Compile(compiler, t, block, numRegs)
		if err != nil {
			return "", err
		}
		if compiled.TDPString != "" {
			body += compiled.TDPString
		}
		if compiled.SteppingString != "" {
			body += "S" + compiled.SteppingString
		}
	}

	if e.PacketBufferSize > 0 && len(body) >= e.PacketBufferSize {
		return "", qerrors.Errorf(qerrors.Capacity, "actions for tracepoint %d too complex; please simplify", t.Number)
	}

	return body, nil
}

func stepCountField(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// StopCollection sends QTStop and expects OK.
func (e *Engine) StopCollection() error {
	return e.sendExpectOK("QTStop")
}

// Status sends qTStatus and expects OK.
func (e *Engine) Status() error {
	return e.sendExpectOK("qTStatus")
}

// FrameResult is the decoded reply to a QTFrame:* request: a sequence of
// F<hex> and T<hex> tokens, both defaulting to -1 if absent.
type FrameResult struct {
	FrameNumber      int64
	TracepointNumber int64
}

// SelectFrame sends one of the QTFrame:* request forms and decodes the
// reply. spec.md §4.F: a bare "OK" means the stub refuses to reveal which
// frame; this is reported as FrameResult{-1,-1} rather than an error.
// requestedMinusOne must be true only when request itself targets frame -1
// ("end trace debugging"); an "F-1" reply to any other request is a
// protocol error, not a normal reset, per spec.md §4.F.
func (e *Engine) SelectFrame(request string, requestedMinusOne bool) (FrameResult, error) {
	if err := e.send(request); err != nil {
		return FrameResult{}, err
	}
	reply, err := e.noisyRecv()
	if err != nil {
		return FrameResult{}, err
	}
	result, sawFrameMinusOne, err := parseFrameReply(reply)
	if err != nil {
		return FrameResult{}, err
	}
	if sawFrameMinusOne && !requestedMinusOne {
		return FrameResult{}, qerrors.Errorf(qerrors.Wire, "target failed to find requested trace frame")
	}
	return result, nil
}

// FrameRequestNumber builds a bare QTFrame:<n> request.
func FrameRequestNumber(n int64) string { return fmt.Sprintf("QTFrame:%x", n) }

// FrameRequestPC builds a QTFrame:pc:<pc> request.
func FrameRequestPC(pc uint64) string { return fmt.Sprintf("QTFrame:pc:%x", pc) }

// FrameRequestTracepoint builds a QTFrame:tdp:<num> request.
func FrameRequestTracepoint(num int) string { return fmt.Sprintf("QTFrame:tdp:%x", num) }

// FrameRequestRange builds a QTFrame:range:<start>:<end-1> request.
func FrameRequestRange(start, end uint64) string {
	return fmt.Sprintf("QTFrame:range:%x:%x", start, end-1)
}

// FrameRequestOutside builds a QTFrame:outside:<start>:<end-1> request.
func FrameRequestOutside(start, end uint64) string {
	return fmt.Sprintf("QTFrame:outside:%x:%x", start, end-1)
}

// parseFrameReply decodes one QTFrame:* reply. The returned bool reports
// whether the reply carried a literal "F-1" token (as opposed to the bare
// "OK" form, which also defaults FrameNumber to -1 but is never a protocol
// error) — the caller must know which, since spec.md §4.F treats an
// unrequested "F-1" as an error rather than a normal reset.
func parseFrameReply(reply string) (FrameResult, bool, error) {
	result := FrameResult{FrameNumber: -1, TracepointNumber: -1}
	if reply == "OK" {
		return result, false, nil
	}

	sawFrameMinusOne := false
	p := reply
	for p != "" {
		switch p[0] {
		case 'F':
			rest := p[1:]
			end := len(rest)
			for i, c := range rest {
				if c == 'T' {
					end = i
					break
				}
			}
			token := rest[:end]
			if token == "-1" {
				result.FrameNumber = -1
				sawFrameMinusOne = true
			} else {
				n, err := strconv.ParseInt(token, 16, 64)
				if err != nil {
					return FrameResult{}, false, qerrors.Errorf(qerrors.Wire, "malformed F token in %q", reply)
				}
				result.FrameNumber = n
			}
			p = rest[end:]
		case 'T':
			rest := p[1:]
			end := len(rest)
			for i, c := range rest {
				if c == 'F' {
					end = i
					break
				}
			}
			token := rest[:end]
			n, err := strconv.ParseInt(token, 16, 64)
			if err != nil {
				return FrameResult{}, false, qerrors.Errorf(qerrors.Wire, "malformed T token in %q", reply)
			}
			result.TracepointNumber = n
			p = rest[end:]
		default:
			return FrameResult{}, false, qerrors.Errorf(qerrors.Wire, "unrecognized QTFrame reply %q", reply)
		}
	}
	return result, sawFrameMinusOne, nil
}
