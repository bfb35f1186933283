package vl53l1x

// Register indices used by the ranging sequence.
const (
	regSoftReset                  uint16 = 0x0000
	regVHVTimeoutMacropLoopBound  uint16 = 0x0008
	regVHVConfigInit              uint16 = 0x000B
	regGPIOHVMuxCtrl              uint16 = 0x0030
	regGPIOTIOHVStatus            uint16 = 0x0031
	regPhasecalTimeoutMacrop      uint16 = 0x004B
	regRangeVCSELPeriodA          uint16 = 0x0060
	regRangeVCSELPeriodB          uint16 = 0x0063
	regRangeValidPhaseHigh        uint16 = 0x0069
	regSDConfigWOISD0             uint16 = 0x0078
	regSDConfigInitialPhaseSD0    uint16 = 0x007A
	regSystemInterruptClear       uint16 = 0x0086
	regSystemModeStart            uint16 = 0x0087
	regResultRangeStatus          uint16 = 0x0089
	regResultFinalRangeMM         uint16 = 0x0096
	regFirmwareSystemStatus       uint16 = 0x00E5
	regIdentificationModelID      uint16 = 0x010F
	defaultConfigurationFirstAddr uint16 = 0x002D
)

// ModelID is the value of IDENTIFICATION__MODEL_ID on a VL53L1X.
const ModelID uint16 = 0xEACC

const (
	modeStartContinuous byte = 0x40
	modeStop            byte = 0x00
)

// defaultConfiguration is written to 0x2D..0x87 at init. It selects long
// distance mode, I2C pulled up at 1V8 and an active-high data-ready
// interrupt.
var defaultConfiguration = [...]byte{
	0x00, // 0x2d
	0x00, // 0x2e: bit 0 set if I2C pulled up to AVDD
	0x00, // 0x2f
	0x01, // 0x30: GPIO_HV_MUX__CTRL, bit 4 = interrupt polarity
	0x02, // 0x31
	0x00, 0x02, 0x08, 0x00, 0x08, 0x10, 0x01, 0x01, // 0x32-0x39
	0x00, 0x00, 0x00, 0x00, 0xff, 0x00, 0x0F, 0x00, // 0x3a-0x41
	0x00, 0x00, 0x00, 0x00, 0x20, 0x0b, 0x00, 0x00, // 0x42-0x49
	0x02, 0x0a, 0x21, 0x00, 0x00, 0x05, 0x00, 0x00, // 0x4a-0x51
	0x00, 0x00, 0xc8, 0x00, 0x00, 0x38, 0xff, 0x01, // 0x52-0x59
	0x00, 0x08, 0x00, 0x00, 0x01, 0xcc, 0x0f, 0x01, // 0x5a-0x61
	0xf1, 0x0d, 0x01, 0x68, 0x00, 0x80, 0x08, 0xb8, // 0x62-0x69
	0x00, 0x00, 0x00, 0x00, 0x0f, 0x89, 0x00, 0x00, // 0x6a-0x71
	0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x0f, 0x0d, // 0x72-0x79
	0x0e, 0x0e, 0x00, 0x00, 0x02, 0xc7, 0xff, 0x9B, // 0x7a-0x81
	0x00, 0x00, 0x00, 0x01, // 0x82-0x85
	0x00, // 0x86: SYSTEM__INTERRUPT_CLEAR
	0x00, // 0x87: SYSTEM__MODE_START
}
