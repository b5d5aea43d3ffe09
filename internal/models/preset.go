package models

// Preset is a one-keystroke habit template offered by the add-habit form.
type Preset struct {
	Key   string
	Title string
	Icon  Icon
}

var Presets = []Preset{
	{Key: "read", Title: "Read Book", Icon: IconBookOpen},
	{Key: "run", Title: "Morning Run", Icon: IconActivity},
	{Key: "code", Title: "Coding", Icon: IconZap},
}

// LookupPreset finds a preset by key.
func LookupPreset(key string) (Preset, bool) {
	for _, p := range Presets {
		if p.Key == key {
			return p, true
		}
	}
	return Preset{}, false
}
