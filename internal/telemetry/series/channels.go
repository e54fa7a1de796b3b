package series

// Channel identifies one tracked scalar quantity on a sensor slot. The
// declaration order matches the label order used on the wire and in
// correlation/spectral output, so iterating Channel(0)..NumChannels-1 yields
// results in the documented order.
type Channel int

const (
	TotalAcc Channel = iota // total-acceleration magnitude (m/s²)
	TotalAccHit             // binary hit flag companion to TotalAcc
	RateOfTurn              // scaled gyroscope magnitude, unit interval
	OriPitch
	OriRoll
	OriYaw
	AccX
	AccY
	AccZ
	GyrX
	GyrY
	GyrZ
	MagX
	MagY
	MagZ

	NumChannels = 15
)

var channelNames = [NumChannels]string{
	"tot_a", "b_tot_a", "rot",
	"ori_p", "ori_r", "ori_y",
	"acc_x", "acc_y", "acc_z",
	"gyr_x", "gyr_y", "gyr_z",
	"mag_x", "mag_y", "mag_z",
}

func (c Channel) String() string {
	if c < 0 || c >= NumChannels {
		return "unknown"
	}
	return channelNames[c]
}

// Valid reports whether c names a real channel.
func (c Channel) Valid() bool { return c >= 0 && c < NumChannels }

// FeatureEligible reports whether the channel participates in correlation and
// spectral extraction. Total acceleration, its binary companion and
// rate-of-turn are excluded; derived correlation series are stored separately
// and therefore never iterated here.
func (c Channel) FeatureEligible() bool {
	switch c {
	case TotalAcc, TotalAccHit, RateOfTurn:
		return false
	}
	return c.Valid()
}

// Orientation reports whether the channel holds an Euler angle. Orientation
// windows are mapped v -> cos(2v) before spectral transforms to avoid the
// wrap discontinuity.
func (c Channel) Orientation() bool {
	return c == OriPitch || c == OriRoll || c == OriYaw
}

// Magnetometer reports whether the channel holds a magnetic field axis.
// Magnetometer windows are mapped v -> cos(2π(1+v)) before spectral
// transforms.
func (c Channel) Magnetometer() bool {
	return c == MagX || c == MagY || c == MagZ
}

// CompositeID encodes a (performer, position) pair as performer*10+position.
// Both indices are 1-based; the encoding is used for outbound addressing and
// for configuring cross-performer correlation pairs.
func CompositeID(performer, position int) int {
	return performer*10 + position
}

// SplitComposite is the inverse of CompositeID.
func SplitComposite(id int) (performer, position int) {
	return id / 10, id % 10
}
