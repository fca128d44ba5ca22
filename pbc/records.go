package pbc

// Message is implemented by every decoded request and response record.
type Message interface {
	MessageCode() MessageCode
}

// Record is a decoded response. Final reports whether the record completes
// its response: streaming kinds are final once a frame carried the done
// marker, every other kind is final on its first frame.
type Record interface {
	Message
	Final() bool
}

// ErrorResp is the body of an RpbErrorResp.
type ErrorResp struct {
	Message string
	Code    uint32
}

func (*ErrorResp) MessageCode() MessageCode { return CodeErrorResp }
func (*ErrorResp) Final() bool              { return true }

// Err converts the record into the error delivered to callers.
func (e *ErrorResp) Err() *ServerError {
	return &ServerError{Message: e.Message, Code: e.Code}
}

// Empty is the record of responses without fields, and of unknown codes.
type Empty struct {
	Code MessageCode
}

func (e *Empty) MessageCode() MessageCode { return e.Code }
func (*Empty) Final() bool                { return true }

type ClientIDResp struct {
	ClientID []byte
}

func (*ClientIDResp) MessageCode() MessageCode { return CodeGetClientIDResp }
func (*ClientIDResp) Final() bool              { return true }

type ServerInfo struct {
	Node    string
	Version string
}

func (*ServerInfo) MessageCode() MessageCode { return CodeGetServerInfoResp }
func (*ServerInfo) Final() bool              { return true }

// Link points from an object to another one.
type Link struct {
	Bucket string
	Key    string
	Tag    string
}

// Pair is a key/value entry of user metadata or secondary indexes.
type Pair struct {
	Key   string
	Value []byte
}

// Content is one sibling of an object: its value and metadata.
type Content struct {
	Value           []byte
	ContentType     string
	Charset         string
	ContentEncoding string
	VTag            string
	Links           []Link
	LastMod         uint32
	LastModUsecs    uint32
	UserMeta        []Pair
	Indexes         []Pair
}

type GetResp struct {
	Contents  []Content
	VClock    []byte
	Unchanged bool
}

func (*GetResp) MessageCode() MessageCode { return CodeGetResp }
func (*GetResp) Final() bool              { return true }

// Found reports whether the object exists. A missing object comes back as a
// response without contents.
func (r *GetResp) Found() bool {
	return len(r.Contents) > 0
}

type PutResp struct {
	Contents []Content
	VClock   []byte
	Key      string // set when the server assigned the key
}

func (*PutResp) MessageCode() MessageCode { return CodePutResp }
func (*PutResp) Final() bool              { return true }

type ListBucketsResp struct {
	Buckets []string
}

func (*ListBucketsResp) MessageCode() MessageCode { return CodeListBucketsResp }
func (*ListBucketsResp) Final() bool              { return true }

// ListKeysResp accumulates the keys of a streamed key listing.
type ListKeysResp struct {
	Keys []string
	Done bool
}

func (*ListKeysResp) MessageCode() MessageCode { return CodeListKeysResp }
func (r *ListKeysResp) Final() bool            { return r.Done }

// BucketProps are the bucket properties supported by the protocol.
type BucketProps struct {
	NVal      uint32
	AllowMult bool
}

type GetBucketResp struct {
	Props BucketProps
}

func (*GetBucketResp) MessageCode() MessageCode { return CodeGetBucketResp }
func (*GetBucketResp) Final() bool              { return true }

// MapReduceResp accumulates the results of a streamed map-reduce job. Phase
// is the phase of the most recent frame that carried one.
type MapReduceResp struct {
	Phase     uint32
	Responses [][]byte
	Done      bool
}

func (*MapReduceResp) MessageCode() MessageCode { return CodeMapReduceResp }
func (r *MapReduceResp) Final() bool            { return r.Done }
