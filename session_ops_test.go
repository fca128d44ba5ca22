package riakpb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pior/riakpb/pbc"
)

// answer checks the frame written last and feeds the response.
func answer(t *testing.T, s *Session, tr *fakeTransport, wantFrame []byte, resp []byte) {
	t.Helper()
	writes := tr.Writes()
	require.NotEmpty(t, writes)
	require.Equal(t, wantFrame, writes[len(writes)-1])
	s.HandleData(resp)
}

func TestSessionOps(t *testing.T) {
	t.Run("Ping", func(t *testing.T) {
		s, tr := newTestSession(t)
		called := false
		require.NoError(t, s.Ping(func(err error) {
			called = true
			require.NoError(t, err)
		}))
		answer(t, s, tr, pbc.EncodePing(), pingResp())
		require.True(t, called)
	})

	t.Run("Ping unexpected response", func(t *testing.T) {
		s, tr := newTestSession(t)
		var got error
		require.NoError(t, s.Ping(func(err error) { got = err }))
		answer(t, s, tr, pbc.EncodePing(), pbc.AppendFrame(nil, pbc.CodeDelResp, nil))
		require.ErrorIs(t, got, ErrUnexpectedResponse)
		require.Contains(t, got.Error(), "DelResp")
	})

	t.Run("GetClientID", func(t *testing.T) {
		s, tr := newTestSession(t)
		var got []byte
		require.NoError(t, s.GetClientID(func(id []byte, err error) {
			require.NoError(t, err)
			got = id
		}))
		answer(t, s, tr, pbc.EncodeGetClientID(), pbc.EncodeResponse(&pbc.ClientIDResp{ClientID: []byte("c1")}))
		require.Equal(t, []byte("c1"), got)
	})

	t.Run("SetClientID", func(t *testing.T) {
		s, tr := newTestSession(t)
		called := false
		require.NoError(t, s.SetClientID([]byte("c1"), func(err error) {
			called = true
			require.NoError(t, err)
		}))
		answer(t, s, tr, pbc.EncodeSetClientID([]byte("c1")), pbc.AppendFrame(nil, pbc.CodeSetClientIDResp, nil))
		require.True(t, called)
	})

	t.Run("GetServerInfo", func(t *testing.T) {
		s, tr := newTestSession(t)
		var got *pbc.ServerInfo
		require.NoError(t, s.GetServerInfo(func(info *pbc.ServerInfo, err error) {
			require.NoError(t, err)
			got = info
		}))
		answer(t, s, tr, pbc.EncodeGetServerInfo(), pbc.EncodeResponse(&pbc.ServerInfo{Node: "n1", Version: "1.4"}))
		require.Equal(t, &pbc.ServerInfo{Node: "n1", Version: "1.4"}, got)
	})

	t.Run("Get", func(t *testing.T) {
		s, tr := newTestSession(t)
		opts := &pbc.GetOptions{R: pbc.Uint32Ptr(pbc.QuorumMajority)}
		var got *pbc.GetResp
		require.NoError(t, s.Get("users", "jarelol", opts, func(resp *pbc.GetResp, err error) {
			require.NoError(t, err)
			got = resp
		}))
		answer(t, s, tr, pbc.EncodeGet("users", "jarelol", opts), pbc.EncodeResponse(&pbc.GetResp{
			Contents: []pbc.Content{{Value: []byte("hello"), ContentType: "text/plain"}},
			VClock:   []byte("vc"),
		}))
		require.True(t, got.Found())
		require.Equal(t, "hello", string(got.Contents[0].Value))
		require.Equal(t, "text/plain", got.Contents[0].ContentType)
		require.Equal(t, []byte("vc"), got.VClock)
	})

	t.Run("Get not found", func(t *testing.T) {
		s, tr := newTestSession(t)
		var got *pbc.GetResp
		require.NoError(t, s.Get("users", "nobody", nil, func(resp *pbc.GetResp, err error) {
			require.NoError(t, err)
			got = resp
		}))
		answer(t, s, tr, pbc.EncodeGet("users", "nobody", nil), pbc.AppendFrame(nil, pbc.CodeGetResp, nil))
		require.False(t, got.Found())
		require.False(t, got.Unchanged)
	})

	t.Run("Get server error", func(t *testing.T) {
		s, tr := newTestSession(t)
		var got error
		require.NoError(t, s.Get("users", "k", nil, func(resp *pbc.GetResp, err error) {
			require.Nil(t, resp)
			got = err
		}))
		answer(t, s, tr, pbc.EncodeGet("users", "k", nil), pbc.EncodeResponse(&pbc.ErrorResp{Message: "timeout"}))
		var serverErr *pbc.ServerError
		require.ErrorAs(t, got, &serverErr)
		require.Equal(t, "timeout", serverErr.Message)
	})

	t.Run("Put", func(t *testing.T) {
		s, tr := newTestSession(t)
		opts := &pbc.PutOptions{ContentType: "application/json", ReturnBody: pbc.BoolPtr(true)}
		var got *pbc.PutResp
		require.NoError(t, s.Put("users", "", []byte(`{}`), opts, func(resp *pbc.PutResp, err error) {
			require.NoError(t, err)
			got = resp
		}))
		answer(t, s, tr, pbc.EncodePut("users", "", []byte(`{}`), opts), pbc.EncodeResponse(&pbc.PutResp{Key: "generated"}))
		require.Equal(t, "generated", got.Key)
	})

	t.Run("Delete", func(t *testing.T) {
		s, tr := newTestSession(t)
		called := false
		require.NoError(t, s.Delete("users", "k", nil, func(err error) {
			called = true
			require.NoError(t, err)
		}))
		frame := tr.Writes()[0]
		require.Equal(t, byte(pbc.CodeDelReq), frame[pbc.HeaderSize])
		answer(t, s, tr, pbc.EncodeDelete("users", "k", nil), pbc.AppendFrame(nil, pbc.CodeDelResp, nil))
		require.True(t, called)
	})

	t.Run("ListBuckets", func(t *testing.T) {
		s, tr := newTestSession(t)
		var got []string
		require.NoError(t, s.ListBuckets(func(buckets []string, err error) {
			require.NoError(t, err)
			got = buckets
		}))
		answer(t, s, tr, pbc.EncodeListBuckets(), pbc.EncodeResponse(&pbc.ListBucketsResp{Buckets: []string{"a", "b"}}))
		require.Equal(t, []string{"a", "b"}, got)
	})

	t.Run("ListKeys", func(t *testing.T) {
		s, tr := newTestSession(t)
		var got []string
		require.NoError(t, s.ListKeys("users", func(keys []string, err error) {
			require.NoError(t, err)
			got = keys
		}))
		var stream []byte
		stream = append(stream, pbc.EncodeResponse(&pbc.ListKeysResp{Keys: []string{"k1"}})...)
		stream = append(stream, pbc.EncodeResponse(&pbc.ListKeysResp{Keys: []string{"k2"}, Done: true})...)
		answer(t, s, tr, pbc.EncodeListKeys("users"), stream)
		require.Equal(t, []string{"k1", "k2"}, got)
	})

	t.Run("GetBucket", func(t *testing.T) {
		s, tr := newTestSession(t)
		var got pbc.BucketProps
		require.NoError(t, s.GetBucket("users", func(props pbc.BucketProps, err error) {
			require.NoError(t, err)
			got = props
		}))
		answer(t, s, tr, pbc.EncodeGetBucket("users"), pbc.EncodeResponse(&pbc.GetBucketResp{
			Props: pbc.BucketProps{NVal: 3, AllowMult: true},
		}))
		require.Equal(t, pbc.BucketProps{NVal: 3, AllowMult: true}, got)
	})

	t.Run("SetBucket", func(t *testing.T) {
		s, tr := newTestSession(t)
		called := false
		props := pbc.BucketPropsUpdate{NVal: pbc.Uint32Ptr(5)}
		require.NoError(t, s.SetBucket("users", props, func(err error) {
			called = true
			require.NoError(t, err)
		}))
		answer(t, s, tr, pbc.EncodeSetBucket("users", props), pbc.AppendFrame(nil, pbc.CodeSetBucketResp, nil))
		require.True(t, called)
	})

	t.Run("MapReduce", func(t *testing.T) {
		s, tr := newTestSession(t)
		job := []byte(`{"inputs":"users"}`)
		var got *pbc.MapReduceResp
		require.NoError(t, s.MapReduce(job, "application/json", func(resp *pbc.MapReduceResp, err error) {
			require.NoError(t, err)
			got = resp
		}))
		var stream []byte
		stream = append(stream, pbc.EncodeResponse(&pbc.MapReduceResp{Responses: [][]byte{[]byte("[1]")}})...)
		stream = append(stream, pbc.EncodeResponse(&pbc.MapReduceResp{Done: true})...)
		answer(t, s, tr, pbc.EncodeMapReduce(job, "application/json"), stream)
		require.Equal(t, [][]byte{[]byte("[1]")}, got.Responses)
	})

	t.Run("closed session", func(t *testing.T) {
		s, _ := newTestSession(t)
		require.NoError(t, s.End())
		err := s.Get("b", "k", nil, func(*pbc.GetResp, error) {
			t.Fatal("callback invoked")
		})
		require.ErrorIs(t, err, ErrConnectionClosed)
	})

	t.Run("wrong record type", func(t *testing.T) {
		s, tr := newTestSession(t)
		var got error
		require.NoError(t, s.GetServerInfo(func(info *pbc.ServerInfo, err error) {
			require.Nil(t, info)
			got = err
		}))
		answer(t, s, tr, pbc.EncodeGetServerInfo(), pbc.EncodeResponse(&pbc.ListBucketsResp{}))
		require.ErrorIs(t, got, ErrUnexpectedResponse)
	})
}
