package anim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mirozey/animvault/curve"
)

// Channel bundles the animated transform curves of one skeleton node,
// bound by node name. Curve keyframe times are in frame units.
type Channel struct {
	NodeName string
	Position curve.Curve[mgl32.Vec3]
	Rotation curve.Curve[mgl32.Quat]
	Scale    curve.Curve[mgl32.Vec3]
}

func (c *Channel) KeyframesCount() int {
	return c.Position.Count() + c.Rotation.Count() + c.Scale.Count()
}

// Data is one animation clip. Duration is in frames; length in
// seconds is Duration / FramesPerSecond.
type Data struct {
	Duration         float64
	FramesPerSecond  float64
	EnableRootMotion bool
	RootNodeName     string
	Channels         []Channel
}

func (d *Data) Length() float64 {
	if d.FramesPerSecond == 0 {
		return 0
	}
	return d.Duration / d.FramesPerSecond
}

func (d *Data) KeyframesCount() int {
	count := 0
	for i := range d.Channels {
		count += d.Channels[i].KeyframesCount()
	}
	return count
}

func (d *Data) Dispose() {
	*d = Data{}
}
