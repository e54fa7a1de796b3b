package pipeline

// Packet is one decoded report from a wearable sensor. A packet may carry
// only a subset of its blocks; the Has* flags mark which blocks are present.
type Packet struct {
	SensorID string `json:"sensor_id"`

	// Calibrated inertial block.
	HasCalibrated bool       `json:"has_calibrated"`
	FreeAcc       [3]float64 `json:"free_acceleration"` // device units, /100 -> m/s²
	Gyr           [3]float64 `json:"gyroscope"`
	Mag           [3]float64 `json:"magnetic_field"`

	// Orientation block.
	HasOrientation bool       `json:"has_orientation"`
	Euler          [3]float64 `json:"euler"`      // degrees
	Quat           [4]float64 `json:"quaternion"` // device order [w, x, y, z]
}
