package ads1115

// I2C addresses selected by the ADDR pin strap.
const (
	AddressGround = 0x48
	AddressVDD    = 0x49
	AddressSDA    = 0x4A
	AddressSCL    = 0x4B
)

// Registers.
const (
	regConversion  = 0x00
	regConfig      = 0x01
	regLoThreshold = 0x02
	regHiThreshold = 0x03
)

// Config register fields.
const (
	configOS        uint16 = 0x8000 // write: start single-shot; read: 1 = idle
	configMuxMask   uint16 = 0x7000
	configMuxSingle uint16 = 0x4000 // AIN0 vs GND; +0x1000 per channel
	configMuxInc    uint16 = 0x1000
	configPGAMask   uint16 = 0x0E00
	configModeOnce  uint16 = 0x0100
	configDRMask    uint16 = 0x00E0
	configCompQueue uint16 = 0x0003 // 11 = comparator disabled, ALERT/RDY high-Z

	// Thresholds that turn ALERT/RDY into a conversion-ready output.
	readyHiThreshold uint16 = 0x8000
	readyLoThreshold uint16 = 0x0000
)

// FullScaleRange selects the programmable gain amplifier setting.
type FullScaleRange uint16

const (
	Range6144 FullScaleRange = 0x0000 // +/- 6.144 V
	Range4096 FullScaleRange = 0x0200 // +/- 4.096 V
	Range2048 FullScaleRange = 0x0400 // +/- 2.048 V (power-on default)
	Range1024 FullScaleRange = 0x0600 // +/- 1.024 V
	Range0512 FullScaleRange = 0x0800 // +/- 0.512 V
	Range0256 FullScaleRange = 0x0A00 // +/- 0.256 V
)

// MilliVolts returns the full-scale voltage of r, or 0 if r is not a PGA setting.
func (r FullScaleRange) MilliVolts() int {
	switch r {
	case Range6144:
		return 6144
	case Range4096:
		return 4096
	case Range2048:
		return 2048
	case Range1024:
		return 1024
	case Range0512:
		return 512
	case Range0256:
		return 256
	default:
		return 0
	}
}

// DataRate selects the conversion rate. The zero value means 860 SPS.
type DataRate uint8

const (
	DataRateDefault DataRate = iota
	DataRate8
	DataRate16
	DataRate32
	DataRate64
	DataRate128
	DataRate250
	DataRate475
	DataRate860
)

func (r DataRate) bits() uint16 {
	switch r {
	case DataRate8:
		return 0x0000
	case DataRate16:
		return 0x0020
	case DataRate32:
		return 0x0040
	case DataRate64:
		return 0x0060
	case DataRate128:
		return 0x0080
	case DataRate250:
		return 0x00A0
	case DataRate475:
		return 0x00C0
	default:
		return 0x00E0
	}
}

func muxForChannel(ch uint8) uint16 {
	return configMuxSingle + configMuxInc*uint16(ch)
}
