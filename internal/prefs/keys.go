// Package prefs is the typed key/value preference store. Keys are declared
// once in a data-driven table consumed by both the store (types, defaults)
// and the configuration portal (labels, form steps). Values persist in a
// sqlite settings table on device flash.
package prefs

// Type is the compile-time type of a preference value.
type Type int

const (
	TypeBool Type = iota
	TypeInt
	TypeString
)

// Key identifies one preference.
type Key string

const (
	MQTTHost  Key = "mqttHost"
	MQTTPort  Key = "mqttPort"
	MQTTTopic Key = "mqttTopic"

	MovementThreshold  Key = "movementThreshold"
	StillnessThreshold Key = "stillnessThreshold"
	ReadyStillnessTime Key = "readyStillnessTime"
	EndStillnessTime   Key = "endStillnessTime"
	GestureTimeout     Key = "gestureTimeout"
	IRLossTimeout      Key = "irLossTimeout"

	NightlightOnSpell    Key = "nightlightOnSpell"
	NightlightOffSpell   Key = "nightlightOffSpell"
	NightlightRaiseSpell Key = "nightlightRaiseSpell"
	NightlightLowerSpell Key = "nightlightLowerSpell"
	NightlightBrightness Key = "nightlightBrightness"

	Latitude       Key = "latitude"
	Longitude      Key = "longitude"
	TimezoneOffset Key = "timezoneOffset"

	SoundEnabled           Key = "soundEnabled"
	SpellPrimaryColorIndex Key = "spellPrimaryColorIndex"
)

// Spec describes one preference for the store and the portal form builder.
type Spec struct {
	Key   Key
	Type  Type
	Label string

	// Step is the +/- increment the portal renders for int fields.
	Step int

	DefaultBool   bool
	DefaultInt    int
	DefaultString string
}

// specs is the single source of truth for every preference.
var specs = []Spec{
	{Key: MQTTHost, Type: TypeString, Label: "MQTT Broker Address"},
	{Key: MQTTPort, Type: TypeInt, Label: "MQTT Broker Port", Step: 1, DefaultInt: 1883},
	{Key: MQTTTopic, Type: TypeString, Label: "MQTT Topic"},

	{Key: MovementThreshold, Type: TypeInt, Label: "Movement Threshold", Step: 1, DefaultInt: 15},
	{Key: StillnessThreshold, Type: TypeInt, Label: "Stillness Threshold", Step: 1, DefaultInt: 20},
	{Key: ReadyStillnessTime, Type: TypeInt, Label: "Ready Stillness Time (ms)", Step: 50, DefaultInt: 600},
	{Key: EndStillnessTime, Type: TypeInt, Label: "End Stillness Time (ms)", Step: 50, DefaultInt: 500},
	{Key: GestureTimeout, Type: TypeInt, Label: "Gesture Timeout (ms)", Step: 500, DefaultInt: 5000},
	{Key: IRLossTimeout, Type: TypeInt, Label: "IR Loss Timeout (ms)", Step: 50, DefaultInt: 300},

	{Key: NightlightOnSpell, Type: TypeString, Label: "Nightlight On Spell"},
	{Key: NightlightOffSpell, Type: TypeString, Label: "Nightlight Off Spell"},
	{Key: NightlightRaiseSpell, Type: TypeString, Label: "Nightlight Raise Spell"},
	{Key: NightlightLowerSpell, Type: TypeString, Label: "Nightlight Lower Spell"},
	{Key: NightlightBrightness, Type: TypeInt, Label: "Nightlight Brightness", Step: 10, DefaultInt: 150},

	{Key: Latitude, Type: TypeString, Label: "Latitude"},
	{Key: Longitude, Type: TypeString, Label: "Longitude"},
	{Key: TimezoneOffset, Type: TypeInt, Label: "UTC Offset (seconds)", Step: 3600},

	{Key: SoundEnabled, Type: TypeBool, Label: "Sound Enabled", DefaultBool: true},
	{Key: SpellPrimaryColorIndex, Type: TypeInt, Label: "Spell Color Index", Step: 1},
}

// Specs returns the preference table in declaration order.
func Specs() []Spec {
	out := make([]Spec, len(specs))
	copy(out, specs)
	return out
}

// SpecFor looks up one preference spec.
func SpecFor(key Key) (Spec, bool) {
	for _, s := range specs {
		if s.Key == key {
			return s, true
		}
	}
	return Spec{}, false
}
