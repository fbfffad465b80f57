package main

import (
	"bytes"
	"encoding/binary"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// inputEventSize is the wire size of inputEvent on 64-bit Linux.
var inputEventSize = binary.Size(inputEvent{})

// deviceEvent is an inputEvent tagged with the index of the device it came from.
type deviceEvent struct {
	Dev int
	Ev  inputEvent
}

// decodeInputEvent parses one little-endian input_event record.
func decodeInputEvent(reader *bytes.Reader, buf []byte) (inputEvent, error) {
	reader.Reset(buf)
	var ev inputEvent
	err := binary.Read(reader, binary.LittleEndian, &ev)
	return ev, err
}
