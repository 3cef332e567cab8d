package wheel

// Packet is a decoded message from the motor drive.
type Packet interface {
	Kind() string
	packet()
}

// ValuesPacket is the drive's periodic telemetry.
type ValuesPacket struct {
	MotorCurrent float64 // A
	Position     int64   // hall counter
	ERPM         float64
}

// FirmwarePacket answers a version query.
type FirmwarePacket struct {
	Major, Minor int
	Hardware     string
}

// UnknownPacket carries any message id the decoder does not recognise.
type UnknownPacket struct {
	ID      byte
	Payload []byte
}

func (ValuesPacket) Kind() string   { return "values" }
func (FirmwarePacket) Kind() string { return "firmware" }
func (UnknownPacket) Kind() string  { return "unknown" }

func (ValuesPacket) packet()   {}
func (FirmwarePacket) packet() {}
func (UnknownPacket) packet()  {}
