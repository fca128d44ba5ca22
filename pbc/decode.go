package pbc

// Decode decodes the payload of a response frame.
//
// acc is the record accumulated so far for the current response, or nil.
// Streaming kinds (ListKeysResp, MapReduceResp) merge the frame into acc when
// it is of the same kind; every other kind returns a fresh record. Unknown
// codes yield an *Empty record and no error, so that the caller can move on
// to the next frame.
//
// Returned errors are *ParseError.
func Decode(code MessageCode, payload []byte, acc Record) (Record, error) {
	r := newRegion(payload)

	switch code {
	case CodeErrorResp:
		return decodeErrorResp(r)
	case CodeGetClientIDResp:
		return decodeClientIDResp(r)
	case CodeGetServerInfoResp:
		return decodeServerInfo(r)
	case CodeGetResp:
		return decodeGetResp(r)
	case CodePutResp:
		return decodePutResp(r)
	case CodeListBucketsResp:
		return decodeListBucketsResp(r)
	case CodeListKeysResp:
		res, _ := acc.(*ListKeysResp)
		return decodeListKeysResp(r, res)
	case CodeGetBucketResp:
		return decodeGetBucketResp(r)
	case CodeMapReduceResp:
		res, _ := acc.(*MapReduceResp)
		return decodeMapReduceResp(r, res)
	default:
		// PingResp, SetClientIdResp, DelResp, SetBucketResp and unknown codes
		return &Empty{Code: code}, nil
	}
}

func decodeErrorResp(r *region) (*ErrorResp, error) {
	res := &ErrorResp{}
	err := decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		var err error
		switch {
		case field == 1 && wt == WireBytes:
			res.Message, err = r.readString()
		case field == 2 && wt == WireVarint:
			res.Code, err = r.readUint32()
		default:
			return false, nil
		}
		return true, err
	})
	return res, err
}

func decodeClientIDResp(r *region) (*ClientIDResp, error) {
	res := &ClientIDResp{}
	err := decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		if field == 1 && wt == WireBytes {
			var err error
			res.ClientID, err = r.readBytes()
			return true, err
		}
		return false, nil
	})
	return res, err
}

func decodeServerInfo(r *region) (*ServerInfo, error) {
	res := &ServerInfo{}
	err := decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		var err error
		switch {
		case field == 1 && wt == WireBytes:
			res.Node, err = r.readString()
		case field == 2 && wt == WireBytes:
			res.Version, err = r.readString()
		default:
			return false, nil
		}
		return true, err
	})
	return res, err
}

func decodeGetResp(r *region) (*GetResp, error) {
	res := &GetResp{}
	err := decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		var err error
		switch {
		case field == 1 && wt == WireBytes:
			var c Content
			c, err = decodeContent(r)
			if err == nil {
				res.Contents = append(res.Contents, c)
			}
		case field == 2 && wt == WireBytes:
			res.VClock, err = r.readBytes()
		case field == 3 && wt == WireVarint:
			res.Unchanged, err = r.readBool()
		default:
			return false, nil
		}
		return true, err
	})
	return res, err
}

func decodePutResp(r *region) (*PutResp, error) {
	res := &PutResp{}
	err := decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		var err error
		switch {
		case field == 1 && wt == WireBytes:
			var c Content
			c, err = decodeContent(r)
			if err == nil {
				res.Contents = append(res.Contents, c)
			}
		case field == 2 && wt == WireBytes:
			res.VClock, err = r.readBytes()
		case field == 3 && wt == WireBytes:
			res.Key, err = r.readString()
		default:
			return false, nil
		}
		return true, err
	})
	return res, err
}

func decodeListBucketsResp(r *region) (*ListBucketsResp, error) {
	res := &ListBucketsResp{}
	err := decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		if field == 1 && wt == WireBytes {
			b, err := r.readString()
			if err == nil {
				res.Buckets = append(res.Buckets, b)
			}
			return true, err
		}
		return false, nil
	})
	return res, err
}

func decodeListKeysResp(r *region, res *ListKeysResp) (*ListKeysResp, error) {
	if res == nil {
		res = &ListKeysResp{}
	}
	err := decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		var err error
		switch {
		case field == 1 && wt == WireBytes:
			var k string
			k, err = r.readString()
			if err == nil {
				res.Keys = append(res.Keys, k)
			}
		case field == 2 && wt == WireVarint:
			// The presence of the field ends the stream.
			_, err = r.readVarint()
			res.Done = true
		default:
			return false, nil
		}
		return true, err
	})
	return res, err
}

func decodeGetBucketResp(r *region) (*GetBucketResp, error) {
	res := &GetBucketResp{}
	err := decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		if field == 1 && wt == WireBytes {
			var err error
			res.Props, err = decodeBucketProps(r)
			return true, err
		}
		return false, nil
	})
	return res, err
}

func decodeMapReduceResp(r *region, res *MapReduceResp) (*MapReduceResp, error) {
	if res == nil {
		res = &MapReduceResp{}
	}
	err := decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		var err error
		switch {
		case field == 1 && wt == WireVarint:
			res.Phase, err = r.readUint32()
		case field == 2 && wt == WireBytes:
			var b []byte
			b, err = r.readBytes()
			if err == nil {
				res.Responses = append(res.Responses, b)
			}
		case field == 3 && wt == WireVarint:
			_, err = r.readVarint()
			res.Done = true
		default:
			return false, nil
		}
		return true, err
	})
	return res, err
}

// Sub-message decoders. Each reads its own length prefix from the parent
// region.

func decodeBucketProps(parent *region) (BucketProps, error) {
	var res BucketProps
	r, err := parent.sub()
	if err != nil {
		return res, err
	}
	err = decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		var err error
		switch {
		case field == 1 && wt == WireVarint:
			res.NVal, err = r.readUint32()
		case field == 2 && wt == WireVarint:
			res.AllowMult, err = r.readBool()
		default:
			return false, nil
		}
		return true, err
	})
	return res, err
}

func decodePair(parent *region) (Pair, error) {
	var res Pair
	r, err := parent.sub()
	if err != nil {
		return res, err
	}
	err = decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		var err error
		switch {
		case field == 1 && wt == WireBytes:
			res.Key, err = r.readString()
		case field == 2 && wt == WireBytes:
			res.Value, err = r.readBytes()
		default:
			return false, nil
		}
		return true, err
	})
	return res, err
}

func decodeLink(parent *region) (Link, error) {
	var res Link
	r, err := parent.sub()
	if err != nil {
		return res, err
	}
	err = decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		var err error
		switch {
		case field == 1 && wt == WireBytes:
			res.Bucket, err = r.readString()
		case field == 2 && wt == WireBytes:
			res.Key, err = r.readString()
		case field == 3 && wt == WireBytes:
			res.Tag, err = r.readString()
		default:
			return false, nil
		}
		return true, err
	})
	return res, err
}

func decodeContent(parent *region) (Content, error) {
	var res Content
	r, err := parent.sub()
	if err != nil {
		return res, err
	}
	err = decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		var err error
		switch {
		case field == 1 && wt == WireBytes:
			res.Value, err = r.readBytes()
		case field == 2 && wt == WireBytes:
			res.ContentType, err = r.readString()
		case field == 3 && wt == WireBytes:
			res.Charset, err = r.readString()
		case field == 4 && wt == WireBytes:
			res.ContentEncoding, err = r.readString()
		case field == 5 && wt == WireBytes:
			res.VTag, err = r.readString()
		case field == 6 && wt == WireBytes:
			var l Link
			l, err = decodeLink(r)
			if err == nil {
				res.Links = append(res.Links, l)
			}
		case field == 7 && wt == WireVarint:
			res.LastMod, err = r.readUint32()
		case field == 8 && wt == WireVarint:
			res.LastModUsecs, err = r.readUint32()
		case field == 9 && wt == WireBytes:
			var p Pair
			p, err = decodePair(r)
			if err == nil {
				res.UserMeta = append(res.UserMeta, p)
			}
		case field == 10 && wt == WireBytes:
			var p Pair
			p, err = decodePair(r)
			if err == nil {
				res.Indexes = append(res.Indexes, p)
			}
		default:
			return false, nil
		}
		return true, err
	})
	return res, err
}
