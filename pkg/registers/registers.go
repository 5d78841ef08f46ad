package registers

// TC90522 demodulator registers
const (
	RegTLock0    = 0x80 // terrestrial lock/retry flags
	RegTCNR      = 0x8B // terrestrial CNR counter, 3 bytes
	RegSTSIDSel0 = 0x8F // satellite stream select, high byte
	RegSTSIDSel1 = 0x90 // satellite stream select, low byte
	RegTLock1    = 0xB0 // terrestrial lock flags
	RegSCNR      = 0xBC // satellite CNR counter, 2 bytes
	RegSStatus   = 0xC3 // satellite carrier status
	RegSTSIDList = 0xCE // satellite TSID table, 8 x 2 bytes
	RegSTSIDCur  = 0xE6 // satellite selected TSID readback, 2 bytes
)

// TC90522 status bits
const (
	TRetryOverflow  = 0x80 // RegTLock0, demodulator gave up
	TLock0NotLocked = 0x08 // RegTLock0, active low lock
	TLock1Locked    = 0x08 // RegTLock1, active high lock
	SCarrierUnlock  = 0x10 // RegSStatus, set while the carrier is not locked
)

// Sizes of multi-byte demodulator fields
const (
	TCNRLen      = 3
	SCNRLen      = 2
	TSIDSlots    = 8
	TSIDListLen  = TSIDSlots * 2
	TSIDFieldLen = 2
)

// Host registers of the demodulator written around a tuner update
const (
	RegHostGateA = 0x0A
	RegHostCtl0  = 0x10
	RegHostCtl1  = 0x11
	RegHostCtl2  = 0x03
)

// TDA2014x tuner registers
const (
	RegPowerState = 0x02
	RegRefClk     = 0x03 // bits 7:6 reference clock ratio
	RegSleep      = 0x04
	RegGainCtl    = 0x06 // LNA/LPT gain, loop through (bit 3)
	RegBias0      = 0x07
	RegBias1      = 0x08
	RegAmpCtl     = 0x09
	RegFilterBW   = 0x0A
	RegFilterTrim = 0x0B
	RegAmpOut     = 0x0C // bits 7:4 AMPOUT gain
	RegVcoBias    = 0x0D
	RegVcoCal     = 0x0F
	RegVcoCtl     = 0x10
	RegVcoStatus  = 0x11 // bit 4 VCO calibration done
	RegPllCtl     = 0x12
	RegChanChange = 0x13
	RegVcoCtl2    = 0x14
	RegChanStatus = 0x15 // bit 4 channel change done
	RegIrq        = 0x17
	RegPllPor     = 0x18
	RegPllBias    = 0x19
	RegPllCfg     = 0x1A // bit 5 predivider, bit 6 PLL enable
	RegPllPor2    = 0x1B
	RegDsmCtl0    = 0x1C
	RegDsmCtl1    = 0x1D
	RegDsmInt     = 0x1E
	RegDsmFrac    = 0x1F // two bytes, high byte first
	RegLoMisc     = 0x21
	RegLoConfig   = 0x22
	RegLoDivider  = 0x23
	RegLoPath     = 0x24
	RegLoInput    = 0x25 // bit 3 input mux
	RegLoBuffer   = 0x27
	TunerRegCount = 0x28
)

// Snapshot holds the demodulator status registers and the tuner register
// file at one instant
type Snapshot struct {
	TLock0   uint8    `yaml:"t_lock0" json:"t_lock0"`     // 0x80
	TLock1   uint8    `yaml:"t_lock1" json:"t_lock1"`     // 0xB0
	TCNR     []byte   `yaml:"t_cnr" json:"t_cnr"`         // 0x8B-0x8D
	SStatus  uint8    `yaml:"s_status" json:"s_status"`   // 0xC3
	SCNR     []byte   `yaml:"s_cnr" json:"s_cnr"`         // 0xBC-0xBD
	TSIDList []uint16 `yaml:"tsid_list" json:"tsid_list"` // 0xCE-0xDD
	TSIDCur  uint16   `yaml:"tsid_current" json:"tsid_current"`

	// Tuner is empty when no tuner device was given
	Tuner []byte `yaml:"tuner,flow,omitempty" json:"tuner,omitempty"`
}
