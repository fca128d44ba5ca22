package pbc

// Request records are the decoded form of the requests built by the Encode
// functions. Servers and tests use them; a client never receives them.

type SetClientIDReq struct {
	ClientID []byte
}

func (*SetClientIDReq) MessageCode() MessageCode { return CodeSetClientIDReq }

type GetReq struct {
	Bucket  string
	Key     string
	Options GetOptions
}

func (*GetReq) MessageCode() MessageCode { return CodeGetReq }

type PutReq struct {
	Bucket  string
	Key     string
	Value   []byte
	Options PutOptions
}

func (*PutReq) MessageCode() MessageCode { return CodePutReq }

type DelReq struct {
	Bucket  string
	Key     string
	Options DeleteOptions
}

func (*DelReq) MessageCode() MessageCode { return CodeDelReq }

type ListKeysReq struct {
	Bucket string
}

func (*ListKeysReq) MessageCode() MessageCode { return CodeListKeysReq }

type GetBucketReq struct {
	Bucket string
}

func (*GetBucketReq) MessageCode() MessageCode { return CodeGetBucketReq }

type SetBucketReq struct {
	Bucket string
	Props  BucketPropsUpdate
}

func (*SetBucketReq) MessageCode() MessageCode { return CodeSetBucketReq }

type MapReduceReq struct {
	Request     []byte
	ContentType string
}

func (*MapReduceReq) MessageCode() MessageCode { return CodeMapReduceReq }

// DecodeRequest decodes the payload of a request frame. Requests without
// fields, and unknown codes, yield an *Empty record.
func DecodeRequest(code MessageCode, payload []byte) (Message, error) {
	r := newRegion(payload)

	switch code {
	case CodeSetClientIDReq:
		res := &SetClientIDReq{}
		return res, decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
			if field == 1 && wt == WireBytes {
				var err error
				res.ClientID, err = r.readBytes()
				return true, err
			}
			return false, nil
		})
	case CodeGetReq:
		return decodeGetReq(r)
	case CodePutReq:
		return decodePutReq(r)
	case CodeDelReq:
		return decodeDelReq(r)
	case CodeListKeysReq:
		res := &ListKeysReq{}
		return res, decodeBucketOnly(r, &res.Bucket)
	case CodeGetBucketReq:
		res := &GetBucketReq{}
		return res, decodeBucketOnly(r, &res.Bucket)
	case CodeSetBucketReq:
		res := &SetBucketReq{}
		return res, decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
			var err error
			switch {
			case field == 1 && wt == WireBytes:
				res.Bucket, err = r.readString()
			case field == 2 && wt == WireBytes:
				res.Props, err = decodeBucketPropsUpdate(r)
			default:
				return false, nil
			}
			return true, err
		})
	case CodeMapReduceReq:
		res := &MapReduceReq{}
		return res, decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
			var err error
			switch {
			case field == 1 && wt == WireBytes:
				res.Request, err = r.readBytes()
			case field == 2 && wt == WireBytes:
				res.ContentType, err = r.readString()
			default:
				return false, nil
			}
			return true, err
		})
	default:
		return &Empty{Code: code}, nil
	}
}

func decodeBucketOnly(r *region, bucket *string) error {
	return decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		if field == 1 && wt == WireBytes {
			var err error
			*bucket, err = r.readString()
			return true, err
		}
		return false, nil
	})
}

func decodeBucketPropsUpdate(parent *region) (BucketPropsUpdate, error) {
	var res BucketPropsUpdate
	r, err := parent.sub()
	if err != nil {
		return res, err
	}
	err = decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		switch {
		case field == 1 && wt == WireVarint:
			return true, readOptUint32(r, &res.NVal)
		case field == 2 && wt == WireVarint:
			return true, readOptBool(r, &res.AllowMult)
		}
		return false, nil
	})
	return res, err
}

func readOptUint32(r *region, dst **uint32) error {
	v, err := r.readUint32()
	if err == nil {
		*dst = &v
	}
	return err
}

func readOptBool(r *region, dst **bool) error {
	v, err := r.readBool()
	if err == nil {
		*dst = &v
	}
	return err
}

func decodeGetReq(r *region) (*GetReq, error) {
	res := &GetReq{}
	o := &res.Options
	err := decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		var err error
		switch {
		case field == 1 && wt == WireBytes:
			res.Bucket, err = r.readString()
		case field == 2 && wt == WireBytes:
			res.Key, err = r.readString()
		case field == 3 && wt == WireVarint:
			err = readOptUint32(r, &o.R)
		case field == 4 && wt == WireVarint:
			err = readOptUint32(r, &o.PR)
		case field == 5 && wt == WireVarint:
			err = readOptBool(r, &o.BasicQuorum)
		case field == 6 && wt == WireVarint:
			err = readOptBool(r, &o.NotFoundOK)
		case field == 7 && wt == WireBytes:
			o.IfModified, err = r.readBytes()
		case field == 8 && wt == WireVarint:
			err = readOptBool(r, &o.Head)
		case field == 9 && wt == WireVarint:
			err = readOptBool(r, &o.DeletedVClock)
		default:
			return false, nil
		}
		return true, err
	})
	return res, err
}

func decodePutReq(r *region) (*PutReq, error) {
	res := &PutReq{}
	o := &res.Options
	err := decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		var err error
		switch {
		case field == 1 && wt == WireBytes:
			res.Bucket, err = r.readString()
		case field == 2 && wt == WireBytes:
			res.Key, err = r.readString()
		case field == 3 && wt == WireBytes:
			o.VClock, err = r.readBytes()
		case field == 4 && wt == WireBytes:
			var c Content
			c, err = decodeContent(r)
			if err == nil {
				res.Value = c.Value
				o.ContentType = c.ContentType
				o.Charset = c.Charset
				o.ContentEncoding = c.ContentEncoding
				o.VTag = c.VTag
				o.Links = c.Links
				o.LastMod = c.LastMod
				o.LastModUsecs = c.LastModUsecs
				o.UserMeta = c.UserMeta
				o.Indexes = c.Indexes
			}
		case field == 5 && wt == WireVarint:
			err = readOptUint32(r, &o.W)
		case field == 6 && wt == WireVarint:
			err = readOptUint32(r, &o.DW)
		case field == 7 && wt == WireVarint:
			err = readOptBool(r, &o.ReturnBody)
		case field == 8 && wt == WireVarint:
			err = readOptUint32(r, &o.PW)
		case field == 9 && wt == WireVarint:
			err = readOptBool(r, &o.IfNotModified)
		case field == 10 && wt == WireVarint:
			err = readOptBool(r, &o.IfNoneMatch)
		case field == 11 && wt == WireVarint:
			err = readOptBool(r, &o.ReturnHead)
		default:
			return false, nil
		}
		return true, err
	})
	return res, err
}

func decodeDelReq(r *region) (*DelReq, error) {
	res := &DelReq{}
	o := &res.Options
	err := decodeFields(r, func(r *region, field int, wt WireType) (bool, error) {
		var err error
		switch {
		case field == 1 && wt == WireBytes:
			res.Bucket, err = r.readString()
		case field == 2 && wt == WireBytes:
			res.Key, err = r.readString()
		case field == 3 && wt == WireVarint:
			err = readOptUint32(r, &o.RW)
		case field == 4 && wt == WireBytes:
			o.VClock, err = r.readBytes()
		case field == 5 && wt == WireVarint:
			err = readOptUint32(r, &o.R)
		case field == 6 && wt == WireVarint:
			err = readOptUint32(r, &o.W)
		case field == 7 && wt == WireVarint:
			err = readOptUint32(r, &o.PR)
		case field == 8 && wt == WireVarint:
			err = readOptUint32(r, &o.PW)
		case field == 9 && wt == WireVarint:
			err = readOptUint32(r, &o.DW)
		default:
			return false, nil
		}
		return true, err
	})
	return res, err
}
