package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	sberr "seabattle/internal/errors"
)

// MaxMessageSize bounds one encoded message.
const MaxMessageSize = 64 * 1024

type envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

var decoders = map[Type]func(json.RawMessage) (Message, error){
	TypeWelcome:              decodeAs[Welcome],
	TypeWaiting:              decodeAs[Waiting],
	TypeGameStarted:          decodeAs[GameStarted],
	TypeSubmitLayout:         decodeAs[SubmitLayout],
	TypeLayoutAccepted:       decodeAs[LayoutAccepted],
	TypeTurn:                 decodeAs[Turn],
	TypeFire:                 decodeAs[Fire],
	TypeMoveResult:           decodeAs[MoveResult],
	TypeShipSunk:             decodeAs[ShipSunk],
	TypeGameOver:             decodeAs[GameOver],
	TypeOpponentDisconnected: decodeAs[OpponentDisconnected],
	TypeRequestView:          decodeAs[RequestView],
	TypeBoardView:            decodeAs[BoardView],
	TypeHeartbeat:            decodeAs[Heartbeat],
	TypeError:                decodeAs[Error],
}

func decodeAs[T Message](data json.RawMessage) (Message, error) {
	var m T
	if len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Encode returns the JSON envelope for m, without a trailing newline.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type(), err)
	}
	env := envelope{Type: m.Type()}
	if !bytes.Equal(data, []byte("{}")) {
		env.Data = data
	}
	return json.Marshal(env)
}

// Decode parses one JSON envelope.  Malformed input and unknown types
// are ProtocolViolation errors; the stream itself stays usable.
func Decode(b []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, sberr.WrapGame(sberr.ProtocolViolation, "decode", err)
	}
	dec, ok := decoders[env.Type]
	if !ok {
		return nil, sberr.Newf(sberr.ProtocolViolation, "decode", "unknown message type %q", env.Type)
	}
	m, err := dec(env.Data)
	if err != nil {
		return nil, sberr.WrapGame(sberr.ProtocolViolation, "decode "+string(env.Type), err)
	}
	return m, nil
}

// ── Line codec ───────────────────────────────────────────────────────

// Codec reads and writes newline-delimited envelopes on a byte stream.
// ReadMessage must be called from a single goroutine; WriteMessage is
// safe for concurrent use.
type Codec struct {
	scanner *bufio.Scanner
	w       io.Writer
	wmu     sync.Mutex
}

// NewCodec wraps rw.
func NewCodec(rw io.ReadWriter) *Codec {
	s := bufio.NewScanner(rw)
	s.Buffer(make([]byte, 0, 4096), MaxMessageSize)
	return &Codec{scanner: s, w: rw}
}

// ReadMessage returns the next message.  Blank lines are skipped.  A
// GameError of kind ProtocolViolation means the line was bad but the
// stream is intact; any other error means the stream is finished
// (io.EOF on a clean close).
func (c *Codec) ReadMessage() (Message, error) {
	for c.scanner.Scan() {
		line := bytes.TrimSpace(c.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return Decode(line)
	}
	if err := c.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// WriteMessage encodes m and writes it followed by a newline in a
// single Write call.
func (c *Codec) WriteMessage(m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err = c.w.Write(data)
	return err
}
