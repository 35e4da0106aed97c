package pose

// TemporalMemory holds the last observed positions of the tracked joints
// for one subject. A nil position has never been observed. The zero value
// is ready to use.
//
// A TemporalMemory is not safe for concurrent use; callers keep one per
// tracked subject and serialise classification calls against it.
type TemporalMemory struct {
	LeftWrist  *Keypoint `json:"left_wrist,omitempty"`
	RightWrist *Keypoint `json:"right_wrist,omitempty"`
	LeftAnkle  *Keypoint `json:"left_ankle,omitempty"`
	RightAnkle *Keypoint `json:"right_ankle,omitempty"`
}

// Wrist returns the remembered wrist position for side.
func (m *TemporalMemory) Wrist(s Side) *Keypoint {
	if s == Left {
		return m.LeftWrist
	}
	return m.RightWrist
}

// Ankle returns the remembered ankle position for side.
func (m *TemporalMemory) Ankle(s Side) *Keypoint {
	if s == Left {
		return m.LeftAnkle
	}
	return m.RightAnkle
}

// Observe overwrites the memory with the tracked joints of f.
func (m *TemporalMemory) Observe(f Frame) {
	m.LeftWrist = remember(f[LeftWrist])
	m.RightWrist = remember(f[RightWrist])
	m.LeftAnkle = remember(f[LeftAnkle])
	m.RightAnkle = remember(f[RightAnkle])
}

// Reset forgets every tracked position.
func (m *TemporalMemory) Reset() {
	*m = TemporalMemory{}
}

// Empty reports whether nothing has been observed yet.
func (m *TemporalMemory) Empty() bool {
	return m.LeftWrist == nil && m.RightWrist == nil &&
		m.LeftAnkle == nil && m.RightAnkle == nil
}

func remember(k Keypoint) *Keypoint {
	return &k
}
