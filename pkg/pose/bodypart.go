package pose

// NumBodyParts is the number of anatomical landmarks tracked per
// detected person, including the trailing background channel.
const NumBodyParts = 19

// BodyPartMap maps a body part index onto its canonical label. The map
// is built once at startup and never mutated, so it is safe to share
// across every goroutine without locking.
type BodyPartMap []string

func COCOBodyParts() BodyPartMap {
	return BodyPartMap{
		"Nose",
		"Neck",
		"RShoulder",
		"RElbow",
		"RWrist",
		"LShoulder",
		"LElbow",
		"LWrist",
		"RHip",
		"RKnee",
		"RAnkle",
		"LHip",
		"LKnee",
		"LAnkle",
		"REye",
		"LEye",
		"REar",
		"LEar",
		"Background",
	}
}

func (m BodyPartMap) Label(part int) string {
	if part < 0 || part >= len(m) {
		return "Unknown"
	}
	return m[part]
}
