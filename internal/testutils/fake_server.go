package testutils

import (
	"bytes"
	"fmt"
	"net"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/pior/riakpb/pbc"
)

// FakeServer is an in-memory Riak server speaking the protocol-buffers wire
// protocol on 127.0.0.1. It is closed when the test ends.
type FakeServer struct {
	listener net.Listener

	mu           sync.Mutex
	objects      map[string]map[string]*object
	props        map[string]pbc.BucketProps
	failures     map[pbc.MessageCode]string
	dropOn       map[pbc.MessageCode]bool
	requests     []pbc.MessageCode
	conns        []net.Conn
	accepted     int
	keysPerFrame int
	chunkSize    int
	nextKey      int
}

type object struct {
	content pbc.Content
	version int
}

func (o *object) vclock() []byte {
	return []byte("vclock-" + strconv.Itoa(o.version))
}

// NewFakeServer starts a server accepting connections in the background.
func NewFakeServer(t testing.TB) *FakeServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start fake server: %v", err)
	}

	s := &FakeServer{
		listener:     listener,
		objects:      make(map[string]map[string]*object),
		props:        make(map[string]pbc.BucketProps),
		failures:     make(map[pbc.MessageCode]string),
		dropOn:       make(map[pbc.MessageCode]bool),
		keysPerFrame: 2,
	}
	t.Cleanup(s.Close)

	go s.acceptLoop()
	return s
}

// Addr returns the host:port the server listens on.
func (s *FakeServer) Addr() string {
	return s.listener.Addr().String()
}

// Close stops the listener and closes every connection.
func (s *FakeServer) Close() {
	_ = s.listener.Close()
	s.CloseConnections()
}

// CloseConnections closes the accepted connections, as a server restart would.
func (s *FakeServer) CloseConnections() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

// FailWith makes the server answer every request with code with an error
// response. An empty message clears the failure.
func (s *FakeServer) FailWith(code pbc.MessageCode, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message == "" {
		delete(s.failures, code)
		return
	}
	s.failures[code] = message
}

// DropOn makes the server close the connection instead of answering
// requests with code.
func (s *FakeServer) DropOn(code pbc.MessageCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropOn[code] = true
}

// SetKeysPerFrame sets how many keys each ListKeys response frame carries.
func (s *FakeServer) SetKeysPerFrame(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keysPerFrame = n
}

// SetChunkSize makes the server write its responses in chunks of n bytes.
// Zero writes each answer at once.
func (s *FakeServer) SetChunkSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunkSize = n
}

// Requests returns the codes of the requests received so far.
func (s *FakeServer) Requests() []pbc.MessageCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Accepted returns the number of connections accepted so far.
func (s *FakeServer) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Object returns the stored value of bucket/key.
func (s *FakeServer) Object(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[bucket][key]
	if !ok {
		return nil, false
	}
	return o.content.Value, true
}

func (s *FakeServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.accepted++
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		go s.serve(conn)
	}
}

func (s *FakeServer) serve(conn net.Conn) {
	defer conn.Close()

	clientID := []byte("fake-client")
	for {
		frame, err := pbc.ReadFrame(conn, 0)
		if err != nil {
			return
		}

		s.mu.Lock()
		s.requests = append(s.requests, frame.Code)
		drop := s.dropOn[frame.Code]
		chunkSize := s.chunkSize
		s.mu.Unlock()

		if drop {
			return
		}

		var out []byte
		if frame.Code == pbc.CodeGetClientIDReq {
			out = pbc.EncodeResponse(&pbc.ClientIDResp{ClientID: clientID})
		} else {
			msg, err := pbc.DecodeRequest(frame.Code, frame.Payload)
			if err != nil {
				out = pbc.EncodeResponse(&pbc.ErrorResp{Message: err.Error(), Code: 1})
			} else {
				if req, ok := msg.(*pbc.SetClientIDReq); ok {
					clientID = req.ClientID
				}
				out = s.handle(msg)
			}
		}

		if err := writeChunked(conn, out, chunkSize); err != nil {
			return
		}
	}
}

func writeChunked(conn net.Conn, b []byte, size int) error {
	if size <= 0 {
		_, err := conn.Write(b)
		return err
	}
	for len(b) > 0 {
		n := min(size, len(b))
		if _, err := conn.Write(b[:n]); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// handle answers a request with one or more response frames.
func (s *FakeServer) handle(msg pbc.Message) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if message, ok := s.failures[msg.MessageCode()]; ok {
		return pbc.EncodeResponse(&pbc.ErrorResp{Message: message, Code: 1})
	}

	switch req := msg.(type) {
	case *pbc.SetClientIDReq:
		return empty(pbc.CodeSetClientIDResp)
	case *pbc.GetReq:
		return pbc.EncodeResponse(s.get(req))
	case *pbc.PutReq:
		return pbc.EncodeResponse(s.put(req))
	case *pbc.DelReq:
		delete(s.objects[req.Bucket], req.Key)
		return empty(pbc.CodeDelResp)
	case *pbc.ListKeysReq:
		return s.listKeys(req.Bucket)
	case *pbc.GetBucketReq:
		return pbc.EncodeResponse(&pbc.GetBucketResp{Props: s.bucketProps(req.Bucket)})
	case *pbc.SetBucketReq:
		props := s.bucketProps(req.Bucket)
		if req.Props.NVal != nil {
			props.NVal = *req.Props.NVal
		}
		if req.Props.AllowMult != nil {
			props.AllowMult = *req.Props.AllowMult
		}
		s.props[req.Bucket] = props
		return empty(pbc.CodeSetBucketResp)
	case *pbc.MapReduceReq:
		// One phase echoing the job, then the done marker.
		out := pbc.EncodeResponse(&pbc.MapReduceResp{Phase: 0, Responses: [][]byte{req.Request}})
		return append(out, pbc.EncodeResponse(&pbc.MapReduceResp{Done: true})...)
	case *pbc.Empty:
		switch req.Code {
		case pbc.CodePingReq:
			return empty(pbc.CodePingResp)
		case pbc.CodeGetServerInfoReq:
			return pbc.EncodeResponse(&pbc.ServerInfo{Node: "riak@127.0.0.1", Version: "1.4.12"})
		case pbc.CodeListBucketsReq:
			var buckets []string
			for b, objects := range s.objects {
				if len(objects) > 0 {
					buckets = append(buckets, b)
				}
			}
			slices.Sort(buckets)
			return pbc.EncodeResponse(&pbc.ListBucketsResp{Buckets: buckets})
		}
	}

	return pbc.EncodeResponse(&pbc.ErrorResp{
		Message: fmt.Sprintf("unknown message code %d", msg.MessageCode()),
		Code:    1,
	})
}

func (s *FakeServer) bucketProps(bucket string) pbc.BucketProps {
	props, ok := s.props[bucket]
	if !ok {
		props = pbc.BucketProps{NVal: 3}
	}
	return props
}

func empty(code pbc.MessageCode) []byte {
	return pbc.AppendFrame(nil, code, nil)
}

func (s *FakeServer) get(req *pbc.GetReq) pbc.Record {
	o, ok := s.objects[req.Bucket][req.Key]
	if !ok {
		return &pbc.GetResp{}
	}
	if req.Options.IfModified != nil && bytes.Equal(req.Options.IfModified, o.vclock()) {
		return &pbc.GetResp{Unchanged: true}
	}
	return &pbc.GetResp{Contents: []pbc.Content{o.content}, VClock: o.vclock()}
}

func (s *FakeServer) put(req *pbc.PutReq) pbc.Record {
	bucket := s.objects[req.Bucket]
	if bucket == nil {
		bucket = make(map[string]*object)
		s.objects[req.Bucket] = bucket
	}

	resp := &pbc.PutResp{}
	key := req.Key
	if key == "" {
		s.nextKey++
		key = "key-" + strconv.Itoa(s.nextKey)
		resp.Key = key
	}

	o, exists := bucket[key]
	if exists && isTrue(req.Options.IfNoneMatch) {
		return &pbc.ErrorResp{Message: "match_found", Code: 1}
	}
	if !exists {
		o = &object{}
		bucket[key] = o
	}
	o.version++
	o.content = contentOf(req.Value, req.Options)

	if isTrue(req.Options.ReturnBody) {
		resp.Contents = []pbc.Content{o.content}
		resp.VClock = o.vclock()
	}
	return resp
}

func (s *FakeServer) listKeys(bucketName string) []byte {
	var keys []string
	for k := range s.objects[bucketName] {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	per := max(s.keysPerFrame, 1)
	var out []byte
	for batch := range slices.Chunk(keys, per) {
		out = append(out, pbc.EncodeResponse(&pbc.ListKeysResp{Keys: batch})...)
	}
	return append(out, pbc.EncodeResponse(&pbc.ListKeysResp{Done: true})...)
}

func contentOf(value []byte, opts pbc.PutOptions) pbc.Content {
	return pbc.Content{
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
	}
}

func isTrue(b *bool) bool {
	return b != nil && *b
}
