// Package accessory implements the HAP data model (§3, §4.6): accessories,
// services, characteristics, the IID manager, and the JSON projection
// controllers fetch over GET /accessories and GET/PUT /characteristics.
package accessory

import "strings"

// baseUUIDSuffix is the well-known HAP base UUID suffix. A type whose UUID
// ends in this suffix is rendered in its short form on the wire (§4.6): the
// leading 8-character group with leading zeros trimmed, e.g. "3E"; any other
// UUID is rendered in full.
const baseUUIDSuffix = "-0000-1000-8000-0026BB765291"

// TypeID is a HAP service or characteristic type UUID, stored in canonical
// uppercase-hyphenated form (e.g. "0000003E-0000-1000-8000-0026BB765291").
type TypeID string

// NewBaseTypeID builds a TypeID from an 8-hex-digit short form under the
// HAP base UUID, e.g. NewBaseTypeID("3E") -> "0000003E-...".
func NewBaseTypeID(shortHex string) TypeID {
	padded := strings.Repeat("0", 8-len(shortHex)) + strings.ToUpper(shortHex)
	return TypeID(padded + baseUUIDSuffix)
}

// WireString renders the TypeID the way §4.6 requires: short form (leading
// 8-character group without leading zeros) when it uses the HAP base UUID,
// full hyphenated form otherwise.
func (t TypeID) WireString() string {
	s := string(t)
	if strings.HasSuffix(s, baseUUIDSuffix) {
		short := strings.TrimSuffix(s, baseUUIDSuffix)
		// Trim leading zeros but keep at least one hex digit.
		trimmed := strings.TrimLeft(short, "0")
		if trimmed == "" {
			trimmed = "0"
		}
		return trimmed
	}
	return s
}

// Category is the small integer hint iOS uses to group accessories in its
// UI (§4.9, §6).
type Category int

// Category values from §6.
const (
	CategoryOther              Category = 1
	CategoryBridge             Category = 2
	CategoryFan                Category = 3
	CategoryGarageDoorOpener   Category = 4
	CategoryLightbulb          Category = 5
	CategoryDoorLock           Category = 6
	CategoryOutlet             Category = 7
	CategorySwitch             Category = 8
	CategoryThermostat         Category = 9
	CategorySensor             Category = 10
	CategoryAlarmSystem        Category = 11
	CategoryDoor               Category = 12
	CategoryWindow             Category = 13
	CategoryWindowCovering     Category = 14
	CategoryProgrammableSwitch Category = 15
	CategoryRangeExtender      Category = 16
	CategoryCamera             Category = 17
	CategoryVideoDoorbell      Category = 18
	CategoryAirPurifier        Category = 19
	CategoryHeater             Category = 20
	CategoryAirConditioner     Category = 21
	CategoryHumidifier         Category = 22
	CategoryDehumidifier       Category = 23
	CategorySpeaker            Category = 26
	CategorySprinkler          Category = 28
	CategoryFaucet             Category = 29
	CategoryShowerHead         Category = 30
	CategoryTelevision         Category = 31
	CategoryTargetController   Category = 32
	CategoryRouter             Category = 33
)

// StandaloneAID is the AID of a non-bridged accessory, or of the bridge
// itself within a bridged graph (§3).
const StandaloneAID = 1

// Format is a characteristic's HAP value format (§3).
type Format string

// Formats defined by HAP.
const (
	FormatBool       Format = "bool"
	FormatUint8      Format = "uint8"
	FormatUint16     Format = "uint16"
	FormatUint32     Format = "uint32"
	FormatUint64     Format = "uint64"
	FormatInt        Format = "int"
	FormatFloat      Format = "float"
	FormatString     Format = "string"
	FormatTLV8       Format = "tlv8"
	FormatData       Format = "data"
	FormatArray      Format = "array"
	FormatDictionary Format = "dictionary"
)

func (f Format) numeric() bool {
	switch f {
	case FormatInt, FormatFloat, FormatUint8, FormatUint16, FormatUint32, FormatUint64:
		return true
	}
	return false
}

// defaultValue returns the zero value HAP defines for each format (§3).
func (f Format) defaultValue() interface{} {
	switch f {
	case FormatBool:
		return false
	case FormatString, FormatData, FormatTLV8:
		return ""
	case FormatFloat:
		return 0.0
	default:
		return 0
	}
}

// Perm is a characteristic permission (§3).
type Perm string

// Permissions defined by HAP.
const (
	PermRead                    Perm = "pr"
	PermWrite                   Perm = "pw"
	PermNotify                  Perm = "ev"
	PermHidden                  Perm = "hd"
	PermAdditionalAuthorization Perm = "aa"
	PermTimedWrite              Perm = "tw"
	PermWriteResponse           Perm = "wr"
)

// Unit is an optional characteristic unit (§3).
type Unit string

// Units defined by HAP.
const (
	UnitCelsius    Unit = "celsius"
	UnitPercentage Unit = "percentage"
	UnitArcDegree  Unit = "arcdegrees"
	UnitLux        Unit = "lux"
	UnitSeconds    Unit = "seconds"
)
