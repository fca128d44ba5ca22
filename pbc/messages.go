package pbc

// Symbolic quorum values accepted wherever a quorum (r, w, pr, ...) is set.
const (
	QuorumOne      uint32 = 0xfffffffe
	QuorumMajority uint32 = 0xfffffffd
	QuorumAll      uint32 = 0xfffffffc
	QuorumDefault  uint32 = 0xfffffffb
)

// Uint32Ptr and BoolPtr help fill the optional fields of request options.
func Uint32Ptr(v uint32) *uint32 { return &v }
func BoolPtr(v bool) *bool       { return &v }

// GetOptions are the optional fields of RpbGetReq. Nil fields are not sent.
type GetOptions struct {
	R             *uint32
	PR            *uint32
	BasicQuorum   *bool
	NotFoundOK    *bool
	IfModified    []byte // vclock; the response is Unchanged when it matches
	Head          *bool
	DeletedVClock *bool
}

// PutOptions are the optional fields of RpbPutReq, including the metadata of
// the stored content. Nil pointers, nil slices, empty strings and zero
// timestamps are not sent.
type PutOptions struct {
	VClock []byte

	ContentType     string
	Charset         string
	ContentEncoding string
	VTag            string
	Links           []Link
	LastMod         uint32
	LastModUsecs    uint32
	UserMeta        []Pair
	Indexes         []Pair

	W             *uint32
	DW            *uint32
	ReturnBody    *bool
	PW            *uint32
	IfNotModified *bool
	IfNoneMatch   *bool
	ReturnHead    *bool
}

// DeleteOptions are the optional fields of RpbDelReq.
type DeleteOptions struct {
	RW     *uint32
	VClock []byte
	R      *uint32
	W      *uint32
	PR     *uint32
	PW     *uint32
	DW     *uint32
}

var (
	pingFrame          = []byte{0, 0, 0, 1, byte(CodePingReq)}
	getClientIDFrame   = []byte{0, 0, 0, 1, byte(CodeGetClientIDReq)}
	getServerInfoFrame = []byte{0, 0, 0, 1, byte(CodeGetServerInfoReq)}
	listBucketsFrame   = []byte{0, 0, 0, 1, byte(CodeListBucketsReq)}
)

func fixedFrame(f []byte) []byte {
	return append([]byte(nil), f...)
}

func EncodePing() []byte          { return fixedFrame(pingFrame) }
func EncodeGetClientID() []byte   { return fixedFrame(getClientIDFrame) }
func EncodeGetServerInfo() []byte { return fixedFrame(getServerInfoFrame) }
func EncodeListBuckets() []byte   { return fixedFrame(listBucketsFrame) }

func EncodeSetClientID(clientID []byte) []byte {
	return encodeMessage(CodeSetClientIDReq, []Field{Bytes(clientID)})
}

func EncodeGet(bucket, key string, opts *GetOptions) []byte {
	if opts == nil {
		opts = &GetOptions{}
	}
	return encodeMessage(CodeGetReq, []Field{
		Text(bucket),
		Text(key),
		OptUint32(opts.R),
		OptUint32(opts.PR),
		OptBool(opts.BasicQuorum),
		OptBool(opts.NotFoundOK),
		OptBytes(opts.IfModified),
		OptBool(opts.Head),
		OptBool(opts.DeletedVClock),
	})
}

// EncodePut encodes a store request. An empty key lets the server pick one;
// it is then returned in PutResp.Key.
func EncodePut(bucket, key string, value []byte, opts *PutOptions) []byte {
	if opts == nil {
		opts = &PutOptions{}
	}
	return encodeMessage(CodePutReq, []Field{
		Text(bucket),
		OptText(key),
		OptBytes(opts.VClock),
		contentField(value, opts),
		OptUint32(opts.W),
		OptUint32(opts.DW),
		OptBool(opts.ReturnBody),
		OptUint32(opts.PW),
		OptBool(opts.IfNotModified),
		OptBool(opts.IfNoneMatch),
		OptBool(opts.ReturnHead),
	})
}

func contentField(value []byte, opts *PutOptions) Field {
	return contentStruct(Content{
		Value:           value,
		ContentType:     opts.ContentType,
		Charset:         opts.Charset,
		ContentEncoding: opts.ContentEncoding,
		VTag:            opts.VTag,
		Links:           opts.Links,
		LastMod:         opts.LastMod,
		LastModUsecs:    opts.LastModUsecs,
		UserMeta:        opts.UserMeta,
		Indexes:         opts.Indexes,
	})
}

func contentStruct(c Content) Field {
	links := make([]Field, len(c.Links))
	for i, l := range c.Links {
		links[i] = Struct(OptText(l.Bucket), OptText(l.Key), OptText(l.Tag))
	}
	return Struct(
		Bytes(c.Value),
		OptText(c.ContentType),
		OptText(c.Charset),
		OptText(c.ContentEncoding),
		OptText(c.VTag),
		Repeated(links...),
		optUint(c.LastMod),
		optUint(c.LastModUsecs),
		Repeated(pairFields(c.UserMeta)...),
		Repeated(pairFields(c.Indexes)...),
	)
}

func pairFields(pairs []Pair) []Field {
	fs := make([]Field, len(pairs))
	for i, p := range pairs {
		fs[i] = Struct(Text(p.Key), OptBytes(p.Value))
	}
	return fs
}

// EncodeDelete encodes an RpbDelReq, message code 13.
func EncodeDelete(bucket, key string, opts *DeleteOptions) []byte {
	if opts == nil {
		opts = &DeleteOptions{}
	}
	return encodeMessage(CodeDelReq, []Field{
		Text(bucket),
		Text(key),
		OptUint32(opts.RW),
		OptBytes(opts.VClock),
		OptUint32(opts.R),
		OptUint32(opts.W),
		OptUint32(opts.PR),
		OptUint32(opts.PW),
		OptUint32(opts.DW),
	})
}

func EncodeListKeys(bucket string) []byte {
	return encodeMessage(CodeListKeysReq, []Field{Text(bucket)})
}

func EncodeGetBucket(bucket string) []byte {
	return encodeMessage(CodeGetBucketReq, []Field{Text(bucket)})
}

// BucketPropsUpdate holds the bucket properties to change. Nil fields are
// not sent and keep their current value on the server.
type BucketPropsUpdate struct {
	NVal      *uint32
	AllowMult *bool
}

func EncodeSetBucket(bucket string, props BucketPropsUpdate) []byte {
	return encodeMessage(CodeSetBucketReq, []Field{
		Text(bucket),
		Struct(OptUint32(props.NVal), OptBool(props.AllowMult)),
	})
}

// EncodeMapReduce encodes a map-reduce job. contentType is the encoding of
// request, typically "application/json" or "application/x-erlang-binary".
func EncodeMapReduce(request []byte, contentType string) []byte {
	return encodeMessage(CodeMapReduceReq, []Field{Bytes(request), Text(contentType)})
}
