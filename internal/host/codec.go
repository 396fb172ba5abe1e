// Package host speaks the browser's native messaging protocol on a pair of
// streams, turning extension events into tracker calls and tracker
// notifications into extension messages.
package host

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxMessageSize bounds a single frame in either direction.
const MaxMessageSize = 1 << 20 // 1MiB

// ErrMessageTooLarge is returned for frames over MaxMessageSize. An oversize
// inbound frame is discarded so the stream stays aligned.
var ErrMessageTooLarge = errors.New("message exceeds maximum size")

// ReadMessage reads one frame: a native-endian uint32 length followed by
// that many bytes of JSON.
func ReadMessage(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.NativeEndian, &length); err != nil {
		return nil, err
	}
	if length > MaxMessageSize {
		if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
			return nil, fmt.Errorf("discard oversize message: %w", err)
		}
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read message body: %w", err)
	}
	return payload, nil
}

// WriteMessage encodes v as JSON and writes it as one frame.
func WriteMessage(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if len(payload) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(payload))
	}

	frame := make([]byte, 4+len(payload))
	// #nosec G115 - bounded by MaxMessageSize above
	binary.NativeEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
