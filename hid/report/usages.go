package report

// UsagePageID selects which usage table the usages that follow a
// UsagePage item are drawn from.
type UsagePageID uint16

// Usage pages.
const (
	PageUndefined               UsagePageID = 0x00
	PageGenericDesktop          UsagePageID = 0x01
	PageSimulationControls      UsagePageID = 0x02
	PageVRControls              UsagePageID = 0x03
	PageSportControls           UsagePageID = 0x04
	PageGameControls            UsagePageID = 0x05
	PageGenericDeviceControls   UsagePageID = 0x06
	PageKeyboardKeypad          UsagePageID = 0x07
	PageLEDs                    UsagePageID = 0x08
	PageButtons                 UsagePageID = 0x09
	PageOrdinal                 UsagePageID = 0x0A
	PageTelephony               UsagePageID = 0x0B
	PageConsumer                UsagePageID = 0x0C
	PageDigitizer               UsagePageID = 0x0D
	PagePhysicalInterfaceDevice UsagePageID = 0x0F
	PageUnicode                 UsagePageID = 0x10
	PageAlphanumericDisplay     UsagePageID = 0x14
	PageMedicalInstrument       UsagePageID = 0x40
	PageBarCodeScanner          UsagePageID = 0x8C
	PageScales                  UsagePageID = 0x8D
	PageMagneticStripeReader    UsagePageID = 0x8E
	PagePointOfSale             UsagePageID = 0x8F
	PageCameraControl           UsagePageID = 0x90
	PageArcade                  UsagePageID = 0x91
)

// Generic Desktop page usages.
const (
	DesktopPointer              uint16 = 0x01
	DesktopMouse                uint16 = 0x02
	DesktopJoystick             uint16 = 0x04
	DesktopGamePad              uint16 = 0x05
	DesktopKeyboard             uint16 = 0x06
	DesktopKeypad               uint16 = 0x07
	DesktopMultiAxisController  uint16 = 0x08
	DesktopX                    uint16 = 0x30
	DesktopY                    uint16 = 0x31
	DesktopZ                    uint16 = 0x32
	DesktopRX                   uint16 = 0x33
	DesktopRY                   uint16 = 0x34
	DesktopRZ                   uint16 = 0x35
	DesktopSlider               uint16 = 0x36
	DesktopDial                 uint16 = 0x37
	DesktopWheel                uint16 = 0x38
	DesktopHatSwitch            uint16 = 0x39
	DesktopMotionWakeup         uint16 = 0x3C
	DesktopStart                uint16 = 0x3D
	DesktopSelect               uint16 = 0x3E
	DesktopSystemControl        uint16 = 0x80
	DesktopSystemPowerDown      uint16 = 0x81
	DesktopSystemSleep          uint16 = 0x82
	DesktopSystemWakeUp         uint16 = 0x83
	DesktopSystemColdRestart    uint16 = 0x8E
	DesktopSystemWarmRestart    uint16 = 0x8F
	DesktopDPadUp               uint16 = 0x90
	DesktopDPadDown             uint16 = 0x91
	DesktopDPadRight            uint16 = 0x92
	DesktopDPadLeft             uint16 = 0x93
)

// LED page usages. These are usage IDs, not report bit positions; the
// bit a given LED lands on is set by the descriptor that names it.
const (
	LEDNumLock          uint16 = 0x01
	LEDCapsLock         uint16 = 0x02
	LEDScrollLock       uint16 = 0x03
	LEDCompose          uint16 = 0x04
	LEDKana             uint16 = 0x05
	LEDPower            uint16 = 0x06
	LEDShift            uint16 = 0x07
	LEDDoNotDisturb     uint16 = 0x08
	LEDMute             uint16 = 0x09
	LEDGenericIndicator uint16 = 0x4B
)
