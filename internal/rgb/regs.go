package rgb

// Register map of the NCT6795D RGB logical device. Only this chip is
// supported; other Nuvoton parts lay these registers out differently.
const (
	BankRGB     uint8 = 0x12
	BankGPIO    uint8 = 0x09
	BankDefault uint8 = 0x00

	// RegGPIOMode bit 4 has to be set for pulsing to work.
	RegGPIOMode uint8 = 0x2C
	gpioPulse   uint8 = 0x10

	// RegControl bits 7..5 switch red, green and blue to 16 level mode.
	// A channel left out always runs at full brightness.
	RegControl uint8 = 0xE0
	control16  uint8 = 0xE0

	// RegMode holds per channel blink enables in bits 6..4, pulse in bit 3
	// and the blink period in bits 2..0 (1 turns every light off).
	RegMode    uint8 = 0xE4
	modePulse  uint8 = 0x08
	modePeriod uint8 = 0x07
	modeOff    uint8 = 0x01

	RegRedTable   uint8 = 0xF0
	RegGreenTable uint8 = 0xF4
	RegBlueTable  uint8 = 0xF8

	// RegDivisorLow holds bits 7..0 of the divisor.
	RegDivisorLow uint8 = 0xFE
	// RegTiming bit 0 is divisor bit 8, bit 1 turns the header on, bits
	// 4..2 are the hardware invert for blue, green and red. Invert is done
	// on the duty tables, so the hardware bits are always cleared.
	RegTiming      uint8 = 0xFF
	timingDivHigh  uint8 = 0x01
	timingHeader   uint8 = 0x02
	timingHWInvert uint8 = 0x1C
)

var tableBase = [len(Channels)]uint8{
	Red:   RegRedTable,
	Green: RegGreenTable,
	Blue:  RegBlueTable,
}

var blinkBit = [len(Channels)]uint8{
	Red:   0x10,
	Green: 0x20,
	Blue:  0x40,
}

// TableReg returns the first duty table register of c.
func TableReg(c Channel) uint8 { return tableBase[c] }

// BlinkBit returns the RegMode bit enabling blink for c.
func BlinkBit(c Channel) uint8 { return blinkBit[c] }
