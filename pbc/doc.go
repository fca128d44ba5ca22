// Package pbc implements the wire protocol of the Riak protocol buffers
// interface (PBC).
//
// The package covers serialization and parsing only. It does not manage
// connections and never blocks on a network read; the riakpb package builds
// sessions and clients on top of it.
//
// # Framing
//
// Every message is a frame:
//
//	[4-byte big-endian length][1-byte message code][payload]
//
// where length counts the code byte plus the payload. Reassembler rebuilds
// frames from chunks of any size:
//
//	r := pbc.NewReassembler(0)
//	err := r.Feed(chunk, func(f pbc.Frame) error {
//	    rec, err := pbc.Decode(f.Code, f.Payload, nil)
//	    ...
//	})
//
// # Fields
//
// Payloads are sequences of tagged fields, tag = field<<3 | wire type. Only
// two wire types are produced: varint (0) and length-delimited (2). Unknown
// fields are skipped when decoding.
//
// Requests are built from positional Field lists: Absent, Bool, Uint, Text,
// Bytes, Struct and Repeated. Struct values are encoded recursively into a
// buffer whose capacity doubles until the encoding fits.
//
// # Responses
//
// Decode turns a frame payload into a Record. ListKeysResp and
// MapReduceResp are streamed over several frames: Decode merges each frame
// into the record accumulated so far, and Record.Final reports when the done
// marker arrived.
//
// # Error Handling
//
//   - ServerError: RpbErrorResp from the server, connection can be REUSED
//   - ParseError: malformed frame or field, CLOSE connection
//   - ConnectionError: network/I/O error, connection already broken
//
// Use ShouldCloseConnection to decide.
package pbc
