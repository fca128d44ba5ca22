package riakpb

import (
	"fmt"

	"github.com/pior/riakpb/pbc"
)

// Typed operations. Each encodes its request, queues it with Send and
// converts the final record for the callback. They fail like Send.

// Ping checks that the server answers.
func (s *Session) Ping(cb func(err error)) error {
	return s.Send(pbc.EncodePing(), func(rec pbc.Record, err error) {
		cb(expectEmpty(rec, err, pbc.CodePingResp))
	})
}

func (s *Session) GetClientID(cb func(clientID []byte, err error)) error {
	return s.Send(pbc.EncodeGetClientID(), func(rec pbc.Record, err error) {
		r, err := expect[*pbc.ClientIDResp](rec, err)
		if err != nil {
			cb(nil, err)
			return
		}
		cb(r.ClientID, nil)
	})
}

func (s *Session) SetClientID(clientID []byte, cb func(err error)) error {
	return s.Send(pbc.EncodeSetClientID(clientID), func(rec pbc.Record, err error) {
		cb(expectEmpty(rec, err, pbc.CodeSetClientIDResp))
	})
}

func (s *Session) GetServerInfo(cb func(info *pbc.ServerInfo, err error)) error {
	return s.Send(pbc.EncodeGetServerInfo(), func(rec pbc.Record, err error) {
		cb(expect[*pbc.ServerInfo](rec, err))
	})
}

// Get fetches an object. A missing object is not an error: the response has
// no contents.
func (s *Session) Get(bucket, key string, opts *pbc.GetOptions, cb func(resp *pbc.GetResp, err error)) error {
	return s.Send(pbc.EncodeGet(bucket, key, opts), func(rec pbc.Record, err error) {
		cb(expect[*pbc.GetResp](rec, err))
	})
}

// Put stores an object. With an empty key the server assigns one and
// returns it in the response.
func (s *Session) Put(bucket, key string, value []byte, opts *pbc.PutOptions, cb func(resp *pbc.PutResp, err error)) error {
	return s.Send(pbc.EncodePut(bucket, key, value, opts), func(rec pbc.Record, err error) {
		cb(expect[*pbc.PutResp](rec, err))
	})
}

func (s *Session) Delete(bucket, key string, opts *pbc.DeleteOptions, cb func(err error)) error {
	return s.Send(pbc.EncodeDelete(bucket, key, opts), func(rec pbc.Record, err error) {
		cb(expectEmpty(rec, err, pbc.CodeDelResp))
	})
}

func (s *Session) ListBuckets(cb func(buckets []string, err error)) error {
	return s.Send(pbc.EncodeListBuckets(), func(rec pbc.Record, err error) {
		r, err := expect[*pbc.ListBucketsResp](rec, err)
		if err != nil {
			cb(nil, err)
			return
		}
		cb(r.Buckets, nil)
	})
}

// ListKeys lists the keys of a bucket. The callback receives every key of
// the streamed response at once.
func (s *Session) ListKeys(bucket string, cb func(keys []string, err error)) error {
	return s.Send(pbc.EncodeListKeys(bucket), func(rec pbc.Record, err error) {
		r, err := expect[*pbc.ListKeysResp](rec, err)
		if err != nil {
			cb(nil, err)
			return
		}
		cb(r.Keys, nil)
	})
}

func (s *Session) GetBucket(bucket string, cb func(props pbc.BucketProps, err error)) error {
	return s.Send(pbc.EncodeGetBucket(bucket), func(rec pbc.Record, err error) {
		r, err := expect[*pbc.GetBucketResp](rec, err)
		if err != nil {
			cb(pbc.BucketProps{}, err)
			return
		}
		cb(r.Props, nil)
	})
}

func (s *Session) SetBucket(bucket string, props pbc.BucketPropsUpdate, cb func(err error)) error {
	return s.Send(pbc.EncodeSetBucket(bucket, props), func(rec pbc.Record, err error) {
		cb(expectEmpty(rec, err, pbc.CodeSetBucketResp))
	})
}

// MapReduce runs a job. The callback receives the accumulated results of
// every phase.
func (s *Session) MapReduce(request []byte, contentType string, cb func(resp *pbc.MapReduceResp, err error)) error {
	return s.Send(pbc.EncodeMapReduce(request, contentType), func(rec pbc.Record, err error) {
		cb(expect[*pbc.MapReduceResp](rec, err))
	})
}

// expect converts a record to the type the request calls for.
func expect[T pbc.Record](rec pbc.Record, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	r, ok := rec.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrUnexpectedResponse, rec.MessageCode())
	}
	return r, nil
}

// expectEmpty checks the code of a response without fields.
func expectEmpty(rec pbc.Record, err error, code pbc.MessageCode) error {
	if err != nil {
		return err
	}
	if rec.MessageCode() != code {
		return fmt.Errorf("%w: %s", ErrUnexpectedResponse, rec.MessageCode())
	}
	return nil
}
