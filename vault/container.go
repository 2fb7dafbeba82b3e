package vault

import (
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mirozey/animvault/stream"
)

// Asset container layout: magic, container format version, asset id,
// type name, display name, then a chunk directory of index+size+data
// records.
const (
	containerMagic  = 0x544c5641 // "AVLT"
	containerFormat = 1
)

type container struct {
	ID     uuid.UUID
	Type   string
	Name   string
	Chunks map[int][]byte
}

func encodeContainer(c *container) []byte {
	ws := stream.NewWriteStream()
	ws.WriteUint32(containerMagic)
	ws.WriteInt32(containerFormat)
	ws.WriteBytes(c.ID[:])
	ws.WriteStringANSI(c.Type, 0)
	ws.WriteString(c.Name, 0)

	indices := make([]int, 0, len(c.Chunks))
	for i := range c.Chunks {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	ws.WriteInt32(int32(len(indices)))
	for _, i := range indices {
		ws.WriteInt32(int32(i))
		ws.WriteBlob(c.Chunks[i])
	}
	return ws.Bytes()
}

func decodeContainer(data []byte) (*container, error) {
	rs := stream.NewReadStream(data)

	magic, err := rs.ReadUint32()
	if err != nil {
		return nil, err
	}
	if magic != containerMagic {
		return nil, errors.Errorf("Not an asset container (magic 0x%.8x)", magic)
	}
	format, err := rs.ReadInt32()
	if err != nil {
		return nil, err
	}
	if format != containerFormat {
		return nil, errors.Errorf("Unsupported container format %d", format)
	}

	c := &container{Chunks: make(map[int][]byte)}
	idRaw, err := rs.ReadBytes(16)
	if err != nil {
		return nil, err
	}
	copy(c.ID[:], idRaw)
	if c.Type, err = rs.ReadStringANSI(0); err != nil {
		return nil, errors.Wrap(err, "Failed to read asset type")
	}
	if c.Name, err = rs.ReadString(0); err != nil {
		return nil, errors.Wrap(err, "Failed to read asset name")
	}

	count, err := rs.ReadInt32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, errors.Errorf("Invalid chunks count %d", count)
	}
	for i := int32(0); i < count; i++ {
		index, err := rs.ReadInt32()
		if err != nil {
			return nil, err
		}
		blob, err := rs.ReadBlob()
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read chunk %d", index)
		}
		c.Chunks[int(index)] = blob
	}
	return c, nil
}
