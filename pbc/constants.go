package pbc

import "strconv"

// MessageCode identifies a protocol message. It is the single byte that
// follows the 4-byte length prefix of every frame.
type MessageCode uint8

// WireType is the 3-bit suffix of a field tag selecting how the value is framed.
type WireType uint8

// Message codes
//
// Requests have odd codes and their responses the following even code,
// with the exception of ErrorResp which may answer any request.
const (
	// CodeErrorResp carries errmsg (1, bytes) and errcode (2, varint).
	// It is final and may answer any request.
	CodeErrorResp MessageCode = 0

	// CodePingReq has no payload. Wire: 00 00 00 01 01
	CodePingReq  MessageCode = 1
	CodePingResp MessageCode = 2

	// CodeGetClientIDReq has no payload. Wire: 00 00 00 01 03
	CodeGetClientIDReq  MessageCode = 3
	CodeGetClientIDResp MessageCode = 4

	// CodeSetClientIDReq carries client_id (1, bytes).
	CodeSetClientIDReq  MessageCode = 5
	CodeSetClientIDResp MessageCode = 6

	// CodeGetServerInfoReq has no payload. Wire: 00 00 00 01 07
	CodeGetServerInfoReq  MessageCode = 7
	CodeGetServerInfoResp MessageCode = 8

	// CodeGetReq fields: bucket, key, r, pr, basic_quorum, notfound_ok,
	// if_modified, head, deletedvclock.
	CodeGetReq  MessageCode = 9
	CodeGetResp MessageCode = 10

	// CodePutReq fields: bucket, key, vclock, content, w, dw, return_body,
	// pw, if_not_modified, if_none_match, return_head.
	CodePutReq  MessageCode = 11
	CodePutResp MessageCode = 12

	// CodeDelReq fields: bucket, key, rw, vclock, r, w, pr, pw, dw.
	CodeDelReq  MessageCode = 13
	CodeDelResp MessageCode = 14

	// CodeListBucketsReq has no payload. Wire: 00 00 00 01 0f
	CodeListBucketsReq  MessageCode = 15
	CodeListBucketsResp MessageCode = 16

	// CodeListKeysReq carries bucket (1, bytes). The response is streamed
	// over several frames, the last one carries done (2, varint).
	CodeListKeysReq  MessageCode = 17
	CodeListKeysResp MessageCode = 18

	CodeGetBucketReq  MessageCode = 19
	CodeGetBucketResp MessageCode = 20

	// CodeSetBucketReq carries bucket (1, bytes) and props (2, message).
	CodeSetBucketReq  MessageCode = 21
	CodeSetBucketResp MessageCode = 22

	// CodeMapReduceReq carries request (1, bytes) and content_type (2, bytes).
	// The response is streamed, the last frame carries done (3, varint).
	CodeMapReduceReq  MessageCode = 23
	CodeMapReduceResp MessageCode = 24
)

var codeNames = map[MessageCode]string{
	CodeErrorResp:         "RpbErrorResp",
	CodePingReq:           "RpbPingReq",
	CodePingResp:          "RpbPingResp",
	CodeGetClientIDReq:    "RpbGetClientIdReq",
	CodeGetClientIDResp:   "RpbGetClientIdResp",
	CodeSetClientIDReq:    "RpbSetClientIdReq",
	CodeSetClientIDResp:   "RpbSetClientIdResp",
	CodeGetServerInfoReq:  "RpbGetServerInfoReq",
	CodeGetServerInfoResp: "RpbGetServerInfoResp",
	CodeGetReq:            "RpbGetReq",
	CodeGetResp:           "RpbGetResp",
	CodePutReq:            "RpbPutReq",
	CodePutResp:           "RpbPutResp",
	CodeDelReq:            "RpbDelReq",
	CodeDelResp:           "RpbDelResp",
	CodeListBucketsReq:    "RpbListBucketsReq",
	CodeListBucketsResp:   "RpbListBucketsResp",
	CodeListKeysReq:       "RpbListKeysReq",
	CodeListKeysResp:      "RpbListKeysResp",
	CodeGetBucketReq:      "RpbGetBucketReq",
	CodeGetBucketResp:     "RpbGetBucketResp",
	CodeSetBucketReq:      "RpbSetBucketReq",
	CodeSetBucketResp:     "RpbSetBucketResp",
	CodeMapReduceReq:      "RpbMapReduceReq",
	CodeMapReduceResp:     "RpbMapReduceResp",
}

// Known reports whether c is part of the message table.
func (c MessageCode) Known() bool {
	_, ok := codeNames[c]
	return ok
}

func (c MessageCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Unknown(" + strconv.Itoa(int(c)) + ")"
}

// Wire types
const (
	WireVarint  WireType = 0
	WireFixed64 WireType = 1 // skipped only
	WireBytes   WireType = 2
	WireFixed32 WireType = 5 // skipped only
)

// Framing limits
const (
	// HeaderSize is the size of the big-endian length prefix.
	HeaderSize = 4

	// DefaultMaxFrameSize bounds the length prefix accepted by a Reassembler.
	DefaultMaxFrameSize = 64 << 20

	// MaxVarintBytes is the longest varint accepted by the decoder (35 bits).
	MaxVarintBytes = 5

	// Initial capacities of the two-pass encoder. Doubled until the
	// encoding fits.
	messageCapacity = 256
	nestedCapacity  = 64
)
