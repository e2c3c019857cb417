package video

type Dimensions struct {
	W, H int
}

// Frame is an owned 2D pixel buffer. Whoever holds the frame last is
// responsible for calling Close exactly once.
type Frame interface {
	DataRef() interface{}
	Dimensions() Dimensions
	Timestamp() int64
	Close()
}
