// Package skeleton implements the skinned-skeleton asset: an ordered
// list of named nodes. Animations bind their channels to these nodes
// by name at use-time.
package skeleton

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mirozey/animvault/asset"
	"github.com/mirozey/animvault/stream"
	"github.com/mirozey/animvault/vault"
)

// TypeName identifies skeleton assets inside vault containers.
const TypeName = "Skeleton"

const chunkFormat = 1

const nameLock = 13

type Node struct {
	Name   string
	Parent int32
}

type Skeleton struct {
	asset.Base

	Nodes []Node
}

func New(id uuid.UUID, name string) *Skeleton {
	s := &Skeleton{}
	s.Init(id, name)
	return s
}

// NewLoaded builds an already-loaded skeleton from node names, parents
// chained linearly. Handy for tools and tests.
func NewLoaded(name string, nodeNames ...string) *Skeleton {
	s := New(uuid.New(), name)
	s.Nodes = make([]Node, len(nodeNames))
	for i, n := range nodeNames {
		s.Nodes[i] = Node{Name: n, Parent: int32(i) - 1}
	}
	s.BeginLoad()
	s.EndLoad(false)
	return s
}

func (s *Skeleton) TypeName() string { return TypeName }

// Load decodes the node list from chunk 0. Called by the vault loader
// between BeginLoad and EndLoad.
func (s *Skeleton) Load() error {
	s.Locker.Lock()
	defer s.Locker.Unlock()

	data := s.GetChunk(0)
	if data == nil {
		return errors.Errorf("Skeleton %q is missing data chunk", s.Name())
	}
	rs := stream.NewReadStream(data)

	format, err := rs.ReadInt32()
	if err != nil {
		return err
	}
	if format != chunkFormat {
		return errors.Errorf("Unsupported skeleton format %d", format)
	}
	count, err := rs.ReadInt32()
	if err != nil {
		return err
	}
	// A node takes at least a name length and a parent index.
	if count < 0 || int(count)*8 > rs.Remaining() {
		return errors.Errorf("Invalid skeleton nodes count %d", count)
	}

	s.Nodes = make([]Node, count)
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if n.Name, err = rs.ReadString(nameLock); err != nil {
			return errors.Wrapf(err, "Failed to read node %d name", i)
		}
		if n.Parent, err = rs.ReadInt32(); err != nil {
			return errors.Wrapf(err, "Failed to read node %d parent", i)
		}
	}
	return nil
}

// Encode serializes the node list into chunk 0.
func (s *Skeleton) Encode() {
	s.Locker.Lock()
	defer s.Locker.Unlock()

	ws := stream.NewWriteStream()
	ws.WriteInt32(chunkFormat)
	ws.WriteInt32(int32(len(s.Nodes)))
	for _, n := range s.Nodes {
		ws.WriteString(n.Name, nameLock)
		ws.WriteInt32(n.Parent)
	}
	s.SetChunk(0, ws.Bytes())
}

// Unload drops the node list and notifies subscribers.
func (s *Skeleton) Unload() {
	s.Locker.Lock()
	s.Nodes = nil
	s.Locker.Unlock()
	s.MarkUnloaded()
}

// FindNode returns the index of the first node with the given name,
// or -1.
func (s *Skeleton) FindNode(name string) int32 {
	s.Locker.Lock()
	defer s.Locker.Unlock()
	for i := range s.Nodes {
		if s.Nodes[i].Name == name {
			return int32(i)
		}
	}
	return -1
}

func init() {
	vault.RegisterFactory(TypeName, func(id uuid.UUID, name string) vault.Instance {
		return New(id, name)
	})
}
