package pose

// Test frames use image coordinates with the subject's left limbs drawn at
// smaller X than the right limbs.

func standingFrame() Frame {
	return Frame{
		Nose:          {230, 60},
		LeftEye:       {225, 55},
		RightEye:      {235, 55},
		LeftEar:       {220, 60},
		RightEar:      {240, 60},
		LeftShoulder:  {210, 100},
		RightShoulder: {250, 100},
		LeftElbow:     {210, 150},
		RightElbow:    {250, 150},
		LeftWrist:     {210, 200},
		RightWrist:    {250, 200},
		LeftHip:       {215, 200},
		RightHip:      {245, 200},
		LeftKnee:      {215, 260},
		RightKnee:     {245, 260},
		LeftAnkle:     {215, 320},
		RightAnkle:    {245, 320},
	}
}

// aimingFrame has both arms straight, at shoulder height and 40 units in
// front of the shoulders.
func aimingFrame() Frame {
	f := standingFrame()
	f[LeftElbow] = Keypoint{190, 100}
	f[LeftWrist] = Keypoint{170, 100}
	f[RightElbow] = Keypoint{270, 100}
	f[RightWrist] = Keypoint{290, 100}
	return f
}

// rightPunchFrame has the right arm straight out at shoulder height, 80
// units in front of the shoulder.
func rightPunchFrame() Frame {
	f := standingFrame()
	f[RightElbow] = Keypoint{290, 100}
	f[RightWrist] = Keypoint{330, 100}
	return f
}

func leftPunchFrame() Frame {
	f := standingFrame()
	f[LeftElbow] = Keypoint{170, 100}
	f[LeftWrist] = Keypoint{130, 100}
	return f
}

// rightKickFrame has the right leg raised nearly straight with the ankle
// 120 units in front of the hip and above the knee.
func rightKickFrame() Frame {
	f := standingFrame()
	f[RightKnee] = Keypoint{305, 195}
	f[RightAnkle] = Keypoint{365, 170}
	return f
}

// lyingFrame is a subject lying flat with the head at the left of the
// image.
func lyingFrame() Frame {
	return Frame{
		Nose:          {40, 110},
		LeftEye:       {35, 105},
		RightEye:      {35, 115},
		LeftEar:       {45, 100},
		RightEar:      {45, 120},
		LeftShoulder:  {80, 100},
		RightShoulder: {80, 120},
		LeftElbow:     {120, 100},
		RightElbow:    {120, 120},
		LeftWrist:     {160, 100},
		RightWrist:    {160, 120},
		LeftHip:       {180, 100},
		RightHip:      {180, 120},
		LeftKnee:      {240, 100},
		RightKnee:     {240, 120},
		LeftAnkle:     {300, 100},
		RightAnkle:    {300, 120},
	}
}
