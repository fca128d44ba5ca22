package pbc

// EncodeResponse builds the frame a server sends for rec. Streaming records
// are encoded as a single frame carrying the done marker when Done is set.
func EncodeResponse(rec Record) []byte {
	switch r := rec.(type) {
	case *ErrorResp:
		return encodeMessage(CodeErrorResp, []Field{Text(r.Message), Uint(uint64(r.Code))})
	case *ClientIDResp:
		return encodeMessage(CodeGetClientIDResp, []Field{Bytes(r.ClientID)})
	case *ServerInfo:
		return encodeMessage(CodeGetServerInfoResp, []Field{OptText(r.Node), OptText(r.Version)})
	case *GetResp:
		return encodeMessage(CodeGetResp, []Field{
			Repeated(contentFields(r.Contents)...),
			OptBytes(r.VClock),
			optBool(r.Unchanged),
		})
	case *PutResp:
		return encodeMessage(CodePutResp, []Field{
			Repeated(contentFields(r.Contents)...),
			OptBytes(r.VClock),
			OptText(r.Key),
		})
	case *ListBucketsResp:
		names := make([]Field, len(r.Buckets))
		for i, b := range r.Buckets {
			names[i] = Text(b)
		}
		return encodeMessage(CodeListBucketsResp, []Field{Repeated(names...)})
	case *ListKeysResp:
		keys := make([]Field, len(r.Keys))
		for i, k := range r.Keys {
			keys[i] = Text(k)
		}
		return encodeMessage(CodeListKeysResp, []Field{Repeated(keys...), optBool(r.Done)})
	case *GetBucketResp:
		return encodeMessage(CodeGetBucketResp, []Field{
			Struct(optUint(r.Props.NVal), optBool(r.Props.AllowMult)),
		})
	case *MapReduceResp:
		responses := make([]Field, len(r.Responses))
		for i, b := range r.Responses {
			responses[i] = Bytes(b)
		}
		return encodeMessage(CodeMapReduceResp, []Field{
			optUint(r.Phase),
			Repeated(responses...),
			optBool(r.Done),
		})
	default:
		return AppendFrame(nil, rec.MessageCode(), nil)
	}
}

func contentFields(contents []Content) []Field {
	fs := make([]Field, len(contents))
	for i, c := range contents {
		fs[i] = contentStruct(c)
	}
	return fs
}

// optBool returns Absent for false.
func optBool(b bool) Field {
	if !b {
		return Absent()
	}
	return Bool(true)
}
