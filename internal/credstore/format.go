package credstore

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"pkt.systems/oxycord/schema"
)

const (
	formatVersion = 1

	fieldVersion protowire.Number = 1
	fieldToken   protowire.Number = 2
)

// Encode renders session data in the on-disk wire layout.
func Encode(data schema.SessionData) []byte {
	buf := protowire.AppendTag(nil, fieldVersion, protowire.VarintType)
	buf = protowire.AppendVarint(buf, formatVersion)
	if token, ok := data.TokenValue(); ok {
		buf = protowire.AppendTag(buf, fieldToken, protowire.BytesType)
		buf = protowire.AppendString(buf, token)
	}
	return buf
}

// Decode parses bytes produced by Encode. Unknown fields are skipped.
func Decode(raw []byte) (schema.SessionData, error) {
	var (
		data       schema.SessionData
		version    uint64
		sawVersion bool
	)
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return schema.SessionData{}, protowire.ParseError(n)
		}
		raw = raw[n:]
		switch {
		case num == fieldVersion && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(raw)
			if m < 0 {
				return schema.SessionData{}, protowire.ParseError(m)
			}
			version = v
			sawVersion = true
			raw = raw[m:]
		case num == fieldToken && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(raw)
			if m < 0 {
				return schema.SessionData{}, protowire.ParseError(m)
			}
			data = data.WithToken(v)
			raw = raw[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, raw)
			if m < 0 {
				return schema.SessionData{}, protowire.ParseError(m)
			}
			raw = raw[m:]
		}
	}
	if !sawVersion {
		return schema.SessionData{}, errors.New("missing format version")
	}
	if version != formatVersion {
		return schema.SessionData{}, fmt.Errorf("unsupported format version %d", version)
	}
	return data, nil
}
