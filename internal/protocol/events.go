// Package protocol implements the typed main<->worker message set and the
// ZREV event batch codec (spec.md §4.6/§6).
package protocol

import (
	"github.com/pkg/errors"

	"zireael.local/zrtui/internal/wire"
)

// EventBatchMagic is "ZREV" read as a little-endian u32 (spec.md §3/§6).
const EventBatchMagic uint32 = 0x5645525A

// EventBatchVersion1 is the only defined event batch wire version.
const EventBatchVersion1 uint32 = 1

// EventBatchHeaderSize is the fixed 24-byte batch header.
const EventBatchHeaderSize = 24

// EventCommonHeaderSize is the fixed 16-byte per-event header.
const EventCommonHeaderSize = 16

// EventKind identifies an event's payload shape.
type EventKind uint32

const (
	EventKey    EventKind = 1
	EventText   EventKind = 2
	EventPaste  EventKind = 3
	EventMouse  EventKind = 4
	EventResize EventKind = 5
	EventTick   EventKind = 6
	EventUser   EventKind = 7
)

// Key actions, matching the teacher's key-action vocabulary.
const (
	KeyActionDown   uint32 = 1
	KeyActionUp     uint32 = 2
	KeyActionRepeat uint32 = 3
)

type KeyPayload struct {
	Key       uint32
	Modifiers uint32
	Action    uint32
}

type TextPayload struct {
	Rune rune
}

type PastePayload struct {
	Text string
}

type MousePayload struct {
	X, Y   int32
	Button uint32
	Action uint32
}

type ResizePayload struct {
	Cols, Rows uint32
}

type UserPayload struct {
	Tag     uint32
	Payload []byte
}

// Event is one decoded (or to-be-encoded) event batch entry.
type Event struct {
	Kind   EventKind
	TimeMs uint32
	Flags  uint32

	Key    *KeyPayload
	Text   *TextPayload
	Paste  *PastePayload
	Mouse  *MousePayload
	Resize *ResizePayload
	User   *UserPayload
}

func (e Event) payloadLen() int {
	switch e.Kind {
	case EventKey:
		return 12
	case EventText:
		return 8
	case EventPaste:
		return len(e.Paste.Text)
	case EventMouse:
		return 16
	case EventResize:
		return 16
	case EventTick:
		return 0
	case EventUser:
		return 4 + len(e.User.Payload)
	default:
		return 0
	}
}

func (e Event) encodePayload(p []byte) error {
	switch e.Kind {
	case EventKey:
		wire.PutU32(p[0:], e.Key.Key)
		wire.PutU32(p[4:], e.Key.Modifiers)
		wire.PutU32(p[8:], e.Key.Action)
	case EventText:
		wire.PutU32(p[0:], uint32(e.Text.Rune))
		wire.PutU32(p[4:], 0)
	case EventPaste:
		copy(p, e.Paste.Text)
	case EventMouse:
		wire.PutI32(p[0:], e.Mouse.X)
		wire.PutI32(p[4:], e.Mouse.Y)
		wire.PutU32(p[8:], e.Mouse.Button)
		wire.PutU32(p[12:], e.Mouse.Action)
	case EventResize:
		wire.PutU32(p[0:], e.Resize.Cols)
		wire.PutU32(p[4:], e.Resize.Rows)
		wire.PutU32(p[8:], 0)
		wire.PutU32(p[12:], 0)
	case EventTick:
		// no payload
	case EventUser:
		wire.PutU32(p[0:], e.User.Tag)
		copy(p[4:], e.User.Payload)
	default:
		return errors.Errorf("unknown event kind %d", e.Kind)
	}
	return nil
}

// EncodeBatch assembles events into a ZREV batch buffer (spec.md §3/§6).
// Unlike the drawlist wire format, event records are not 4-byte aligned;
// each record occupies exactly EventCommonHeaderSize+payloadLen bytes.
func EncodeBatch(events []Event) ([]byte, error) {
	total := EventBatchHeaderSize
	for _, e := range events {
		total += EventCommonHeaderSize + e.payloadLen()
	}
	buf := make([]byte, total)
	wire.PutU32(buf[0:], EventBatchMagic)
	wire.PutU32(buf[4:], EventBatchVersion1)
	wire.PutU32(buf[8:], uint32(total))
	wire.PutU32(buf[12:], uint32(len(events)))
	wire.PutU32(buf[16:], 0) // batch_flags
	wire.PutU32(buf[20:], 0) // reserved

	off := EventBatchHeaderSize
	for _, e := range events {
		plen := e.payloadLen()
		size := EventCommonHeaderSize + plen
		wire.PutU32(buf[off:], uint32(e.Kind))
		wire.PutU32(buf[off+4:], uint32(size))
		wire.PutU32(buf[off+8:], e.TimeMs)
		wire.PutU32(buf[off+12:], e.Flags)
		if err := e.encodePayload(buf[off+EventCommonHeaderSize : off+size]); err != nil {
			return nil, err
		}
		off += size
	}
	return buf, nil
}

// DecodeBatch parses a ZREV batch buffer, per spec.md §4.6 / the teacher's
// parseEventBatch. A malformed batch yields an error rather than a partial
// result.
func DecodeBatch(buf []byte) ([]Event, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf) < EventBatchHeaderSize {
		return nil, errors.Errorf("event batch too small: %d", len(buf))
	}
	magic := wire.GetU32(buf[0:])
	if magic != EventBatchMagic {
		return nil, errors.Errorf("bad event batch magic: 0x%08x", magic)
	}
	ver := wire.GetU32(buf[4:])
	if ver != EventBatchVersion1 {
		return nil, errors.Errorf("unsupported event batch version: %d", ver)
	}
	total := wire.GetU32(buf[8:])
	if int(total) > len(buf) {
		return nil, errors.Errorf("event batch total_size %d exceeds buffer length %d", total, len(buf))
	}
	if total < EventBatchHeaderSize {
		return nil, errors.Errorf("event batch total_size too small: %d", total)
	}
	count := wire.GetU32(buf[12:])

	var out []Event
	off := EventBatchHeaderSize
	end := int(total)
	for off < end {
		if end-off < EventCommonHeaderSize {
			return nil, errors.Errorf("truncated event header at offset %d", off)
		}
		kind := EventKind(wire.GetU32(buf[off:]))
		size := int(wire.GetU32(buf[off+4:]))
		timeMs := wire.GetU32(buf[off+8:])
		flags := wire.GetU32(buf[off+12:])
		if size < EventCommonHeaderSize {
			return nil, errors.Errorf("event record size too small: %d", size)
		}
		if off+size > end {
			return nil, errors.Errorf("event record overruns batch: off=%d size=%d end=%d", off, size, end)
		}
		payload := buf[off+EventCommonHeaderSize : off+size]
		ev, err := decodeEvent(kind, timeMs, flags, payload)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding event at offset %d", off)
		}
		out = append(out, ev)
		off += size
	}
	if uint32(len(out)) != count {
		return nil, errors.Errorf("event_count %d does not match decoded count %d", count, len(out))
	}
	return out, nil
}

func decodeEvent(kind EventKind, timeMs, flags uint32, payload []byte) (Event, error) {
	ev := Event{Kind: kind, TimeMs: timeMs, Flags: flags}
	switch kind {
	case EventKey:
		if len(payload) < 12 {
			return ev, errors.Errorf("key payload too small: %d", len(payload))
		}
		ev.Key = &KeyPayload{
			Key:       wire.GetU32(payload[0:]),
			Modifiers: wire.GetU32(payload[4:]),
			Action:    wire.GetU32(payload[8:]),
		}
	case EventText:
		if len(payload) < 4 {
			return ev, errors.Errorf("text payload too small: %d", len(payload))
		}
		ev.Text = &TextPayload{Rune: rune(wire.GetU32(payload[0:]))}
	case EventPaste:
		ev.Paste = &PastePayload{Text: string(payload)}
	case EventMouse:
		if len(payload) < 16 {
			return ev, errors.Errorf("mouse payload too small: %d", len(payload))
		}
		ev.Mouse = &MousePayload{
			X:      wire.GetI32(payload[0:]),
			Y:      wire.GetI32(payload[4:]),
			Button: wire.GetU32(payload[8:]),
			Action: wire.GetU32(payload[12:]),
		}
	case EventResize:
		if len(payload) < 16 {
			return ev, errors.Errorf("resize payload too small: %d", len(payload))
		}
		ev.Resize = &ResizePayload{
			Cols: wire.GetU32(payload[0:]),
			Rows: wire.GetU32(payload[4:]),
		}
	case EventTick:
		// no payload
	case EventUser:
		if len(payload) < 4 {
			return ev, errors.Errorf("user payload too small: %d", len(payload))
		}
		ev.User = &UserPayload{
			Tag:     wire.GetU32(payload[0:]),
			Payload: append([]byte(nil), payload[4:]...),
		}
	default:
		// Forward-compat: unknown kinds are skippable by the caller via
		// the record's declared size; we still surface them as events
		// with a nil typed payload.
	}
	return ev, nil
}
