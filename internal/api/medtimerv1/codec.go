package medtimerv1

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// CodecName is the Connect codec name, selecting application/json bodies.
const CodecName = "json"

// Codec marshals the plain message structs of this package as JSON. It
// replaces connect's protojson codec, which only accepts proto.Message.
type Codec struct{}

// Name implements connect.Codec.
func (Codec) Name() string { return CodecName }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal %T", msg)
	}
	return data, nil
}

// Unmarshal implements connect.Codec. An empty body leaves msg zeroed.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return errors.Wrapf(err, "failed to unmarshal %T", msg)
	}
	return nil
}
