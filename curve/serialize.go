package curve

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mirozey/animvault/stream"
)

// Wire layout: int32 format version, int32 keyframe count, then per
// keyframe a float32 time and the value components (x,y,z for vectors,
// x,y,z,w for quaternions).
const formatVersion = 1

func writeValue(ws *stream.WriteStream, v interface{}) {
	switch v := v.(type) {
	case mgl32.Vec3:
		ws.WriteFloat32(v.X())
		ws.WriteFloat32(v.Y())
		ws.WriteFloat32(v.Z())
	case mgl32.Quat:
		ws.WriteFloat32(v.V.X())
		ws.WriteFloat32(v.V.Y())
		ws.WriteFloat32(v.V.Z())
		ws.WriteFloat32(v.W)
	default:
		panic(errors.Errorf("Unsupported curve value %T", v))
	}
}

func readValue(rs *stream.ReadStream, v interface{}) error {
	var raw [4]float32
	n := 3
	if _, isQuat := v.(*mgl32.Quat); isQuat {
		n = 4
	}
	for i := 0; i < n; i++ {
		f, err := rs.ReadFloat32()
		if err != nil {
			return err
		}
		raw[i] = f
	}
	switch v := v.(type) {
	case *mgl32.Vec3:
		*v = mgl32.Vec3{raw[0], raw[1], raw[2]}
	case *mgl32.Quat:
		*v = mgl32.Quat{V: mgl32.Vec3{raw[0], raw[1], raw[2]}, W: raw[3]}
	}
	return nil
}

func Serialize[T Value](ws *stream.WriteStream, c *Curve[T]) {
	ws.WriteInt32(formatVersion)
	ws.WriteInt32(int32(c.Count()))
	for _, k := range c.Keyframes() {
		ws.WriteFloat32(k.Time)
		writeValue(ws, k.Value)
	}
}

func Deserialize[T Value](rs *stream.ReadStream, c *Curve[T]) error {
	version, err := rs.ReadInt32()
	if err != nil {
		return err
	}
	if version != formatVersion {
		return errors.Errorf("Unsupported curve format %d", version)
	}
	count, err := rs.ReadInt32()
	if err != nil {
		return err
	}
	// A keyframe takes at least a time and three components.
	if count < 0 || int(count)*16 > rs.Remaining() {
		return errors.Errorf("Invalid curve keyframes count %d", count)
	}
	c.Resize(int(count))
	for i := range c.keyframes {
		k := &c.keyframes[i]
		if k.Time, err = rs.ReadFloat32(); err != nil {
			return err
		}
		if err = readValue(rs, any(&k.Value)); err != nil {
			return err
		}
	}
	return nil
}
