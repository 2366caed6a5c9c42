package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/grafeo-db/grafeo/src/common"
)

// Encode/Decode give every Op a stable binary payload so the WAL can
// persist and replay it (spec.md §4.2, §6). The frame envelope (length,
// type, tx_id, sequence, crc32) is the wal package's concern; this codec
// only handles what goes inside the payload.

func putU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func putU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func getU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func getU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// EncodeValue appends v's wire form to buf.
func EncodeValue(buf *bytes.Buffer, v Value) {
	buf.WriteByte(byte(v.Kind()))

	switch v.Kind() {
	case KindNull:
	case KindBool:
		if v.AsBool() {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KindI64:
		putU64(buf, uint64(v.AsI64()))
	case KindF64:
		putU64(buf, uint64(int64(v.AsF64()*1e9))) // fixed-point, matches no spec precision requirement
	case KindString, KindBytes:
		putU32(buf, uint32(len(v.AsBytes())))
		buf.Write(v.AsBytes())
	case KindTemporal:
		putU64(buf, uint64(v.AsTemporal().UnixNano()))
	case KindList:
		list := v.AsList()
		putU32(buf, uint32(len(list)))
		for _, e := range list {
			EncodeValue(buf, e)
		}
	case KindMap:
		m := v.AsMap()
		putU32(buf, uint32(len(m)))
		for k, e := range m {
			putU32(buf, uint32(len(k)))
			buf.WriteString(k)
			EncodeValue(buf, e)
		}
	}
}

// DecodeValue reads one value back from r.
func DecodeValue(r *bytes.Reader) (Value, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return Value{}, err
	}
	kind := ValueKind(kindByte)

	switch kind {
	case KindNull:
		return NullValue(), nil
	case KindBool:
		b, err := r.ReadByte()
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b != 0), nil
	case KindI64:
		u, err := getU64(r)
		if err != nil {
			return Value{}, err
		}
		return I64Value(int64(u)), nil
	case KindF64:
		u, err := getU64(r)
		if err != nil {
			return Value{}, err
		}
		return F64Value(float64(int64(u)) / 1e9), nil
	case KindString, KindBytes:
		n, err := getU32(r)
		if err != nil {
			return Value{}, err
		}
		buf := make([]byte, n)
		if _, err := r.Read(buf); err != nil {
			return Value{}, err
		}
		if kind == KindBytes {
			return BytesValue(buf), nil
		}
		return Value{kind: KindString, raw: buf}, nil
	case KindTemporal:
		u, err := getU64(r)
		if err != nil {
			return Value{}, err
		}
		return TemporalValue(time.Unix(0, int64(u)).UTC()), nil
	case KindList:
		n, err := getU32(r)
		if err != nil {
			return Value{}, err
		}
		list := make([]Value, n)
		for i := range list {
			list[i], err = DecodeValue(r)
			if err != nil {
				return Value{}, err
			}
		}
		return ListValue(list), nil
	case KindMap:
		n, err := getU32(r)
		if err != nil {
			return Value{}, err
		}
		m := make(map[string]Value, n)
		for i := uint32(0); i < n; i++ {
			klen, err := getU32(r)
			if err != nil {
				return Value{}, err
			}
			kb := make([]byte, klen)
			if _, err := r.Read(kb); err != nil {
				return Value{}, err
			}
			v, err := DecodeValue(r)
			if err != nil {
				return Value{}, err
			}
			m[string(kb)] = v
		}
		return MapValue(m), nil
	default:
		return Value{}, fmt.Errorf("codec: unknown value kind %d", kindByte)
	}
}

func encodePropMap[K ~uint32](buf *bytes.Buffer, m map[K]Value) {
	putU32(buf, uint32(len(m)))
	for k, v := range m {
		putU32(buf, uint32(k))
		EncodeValue(buf, v)
	}
}

// EncodeOp serializes op's payload. The OpKind itself is carried in the
// WAL frame header, not repeated here.
func EncodeOp(op Op) []byte {
	buf := &bytes.Buffer{}

	switch o := op.(type) {
	case *CreateNodeOp:
		putU64(buf, uint64(o.ID))
		putU32(buf, uint32(len(o.Labels)))
		for _, l := range o.Labels {
			putU32(buf, uint32(l))
		}
		encodePropMap(buf, o.Props)
	case *DeleteNodeOp:
		putU64(buf, uint64(o.ID))
	case *CreateEdgeOp:
		putU64(buf, uint64(o.ID))
		putU32(buf, uint32(o.Type))
		putU64(buf, uint64(o.Src))
		putU64(buf, uint64(o.Dst))
		encodePropMap(buf, o.Props)
	case *DeleteEdgeOp:
		putU64(buf, uint64(o.ID))
	case *SetNodePropertyOp:
		putU64(buf, uint64(o.Node))
		putU32(buf, uint32(o.Key))
		EncodeValue(buf, o.Value)
	case *RemoveNodePropertyOp:
		putU64(buf, uint64(o.Node))
		putU32(buf, uint32(o.Key))
	case *SetEdgePropertyOp:
		putU64(buf, uint64(o.Edge))
		putU32(buf, uint32(o.Key))
		EncodeValue(buf, o.Value)
	case *RemoveEdgePropertyOp:
		putU64(buf, uint64(o.Edge))
		putU32(buf, uint32(o.Key))
	case *AddNodeLabelOp:
		putU64(buf, uint64(o.Node))
		putU32(buf, uint32(o.Label))
	case *RemoveNodeLabelOp:
		putU64(buf, uint64(o.Node))
		putU32(buf, uint32(o.Label))
	}

	return buf.Bytes()
}

// DecodeOp deserializes an Op payload given its kind, the inverse of
// EncodeOp. Used by WAL recovery to rebuild the write set of a committed
// transaction.
func DecodeOp(kind OpKind, payload []byte) (Op, error) {
	r := bytes.NewReader(payload)

	readLabels := func() ([]common.LabelID, error) {
		n, err := getU32(r)
		if err != nil {
			return nil, err
		}
		out := make([]common.LabelID, n)
		for i := range out {
			v, err := getU32(r)
			if err != nil {
				return nil, err
			}
			out[i] = common.LabelID(v)
		}
		return out, nil
	}

	readProps := func() (map[common.PropertyKey]Value, error) {
		n, err := getU32(r)
		if err != nil {
			return nil, err
		}
		out := make(map[common.PropertyKey]Value, n)
		for i := uint32(0); i < n; i++ {
			k, err := getU32(r)
			if err != nil {
				return nil, err
			}
			v, err := DecodeValue(r)
			if err != nil {
				return nil, err
			}
			out[common.PropertyKey(k)] = v
		}
		return out, nil
	}

	switch kind {
	case OpCreateNode:
		id, err := getU64(r)
		if err != nil {
			return nil, err
		}
		labels, err := readLabels()
		if err != nil {
			return nil, err
		}
		props, err := readProps()
		if err != nil {
			return nil, err
		}
		return &CreateNodeOp{ID: common.NodeID(id), Labels: labels, Props: props}, nil

	case OpDeleteNode:
		id, err := getU64(r)
		if err != nil {
			return nil, err
		}
		return &DeleteNodeOp{ID: common.NodeID(id)}, nil

	case OpCreateEdge:
		id, err := getU64(r)
		if err != nil {
			return nil, err
		}
		typ, err := getU32(r)
		if err != nil {
			return nil, err
		}
		src, err := getU64(r)
		if err != nil {
			return nil, err
		}
		dst, err := getU64(r)
		if err != nil {
			return nil, err
		}
		props, err := readProps()
		if err != nil {
			return nil, err
		}
		return &CreateEdgeOp{
			ID: common.EdgeID(id), Type: common.EdgeTypeID(typ),
			Src: common.NodeID(src), Dst: common.NodeID(dst), Props: props,
		}, nil

	case OpDeleteEdge:
		id, err := getU64(r)
		if err != nil {
			return nil, err
		}
		return &DeleteEdgeOp{ID: common.EdgeID(id)}, nil

	case OpSetNodeProperty:
		node, err := getU64(r)
		if err != nil {
			return nil, err
		}
		key, err := getU32(r)
		if err != nil {
			return nil, err
		}
		v, err := DecodeValue(r)
		if err != nil {
			return nil, err
		}
		return &SetNodePropertyOp{Node: common.NodeID(node), Key: common.PropertyKey(key), Value: v}, nil

	case OpRemoveNodeProperty:
		node, err := getU64(r)
		if err != nil {
			return nil, err
		}
		key, err := getU32(r)
		if err != nil {
			return nil, err
		}
		return &RemoveNodePropertyOp{Node: common.NodeID(node), Key: common.PropertyKey(key)}, nil

	case OpSetEdgeProperty:
		edge, err := getU64(r)
		if err != nil {
			return nil, err
		}
		key, err := getU32(r)
		if err != nil {
			return nil, err
		}
		v, err := DecodeValue(r)
		if err != nil {
			return nil, err
		}
		return &SetEdgePropertyOp{Edge: common.EdgeID(edge), Key: common.PropertyKey(key), Value: v}, nil

	case OpRemoveEdgeProperty:
		edge, err := getU64(r)
		if err != nil {
			return nil, err
		}
		key, err := getU32(r)
		if err != nil {
			return nil, err
		}
		return &RemoveEdgePropertyOp{Edge: common.EdgeID(edge), Key: common.PropertyKey(key)}, nil

	case OpAddNodeLabel:
		node, err := getU64(r)
		if err != nil {
			return nil, err
		}
		label, err := getU32(r)
		if err != nil {
			return nil, err
		}
		return &AddNodeLabelOp{Node: common.NodeID(node), Label: common.LabelID(label)}, nil

	case OpRemoveNodeLabel:
		node, err := getU64(r)
		if err != nil {
			return nil, err
		}
		label, err := getU32(r)
		if err != nil {
			return nil, err
		}
		return &RemoveNodeLabelOp{Node: common.NodeID(node), Label: common.LabelID(label)}, nil

	default:
		return nil, fmt.Errorf("codec: unknown op kind %d", kind)
	}
}
