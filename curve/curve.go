package curve

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Value is a keyframe payload type the serializer understands.
type Value interface {
	mgl32.Vec3 | mgl32.Quat
}

// Keyframe is a single time-value sample. Time units depend on the
// stage: persisted curves use frame units, the editor timeline uses
// seconds.
type Keyframe[T Value] struct {
	Time  float32
	Value T
}

// Curve is an ordered (ascending by time) keyframe sequence for one
// animated property. Interpolation is up to the consumer.
type Curve[T Value] struct {
	keyframes []Keyframe[T]
}

func (c *Curve[T]) Keyframes() []Keyframe[T] { return c.keyframes }

func (c *Curve[T]) Count() int { return len(c.keyframes) }

func (c *Curve[T]) HasItems() bool { return len(c.keyframes) != 0 }

func (c *Curve[T]) Resize(n int) {
	if n <= cap(c.keyframes) {
		c.keyframes = c.keyframes[:n]
	} else {
		old := c.keyframes
		c.keyframes = make([]Keyframe[T], n)
		copy(c.keyframes, old)
	}
}

// Add appends a keyframe. Callers append in ascending time order.
func (c *Curve[T]) Add(time float32, value T) {
	c.keyframes = append(c.keyframes, Keyframe[T]{Time: time, Value: value})
}

func (c *Curve[T]) Clear() {
	c.keyframes = nil
}
