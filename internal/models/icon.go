package models

import (
	"fmt"
	"strings"
)

// Icon is the closed set of habit and badge icons. Rendering layers map
// these to glyphs; the engine never compares display strings.
type Icon string

const (
	IconZap      Icon = "zap"
	IconFlame    Icon = "flame"
	IconActivity Icon = "activity"
	IconCalendar Icon = "calendar"
	IconBookOpen Icon = "book_open"
	IconCheck    Icon = "check"
)

// Icons lists every icon in picker order.
var Icons = []Icon{IconZap, IconFlame, IconActivity, IconCalendar, IconBookOpen, IconCheck}

// legacyIcons maps the component names stored by older clients.
var legacyIcons = map[string]Icon{
	"zap":          IconZap,
	"flame":        IconFlame,
	"activity":     IconActivity,
	"calendar":     IconCalendar,
	"calendaricon": IconCalendar,
	"book_open":    IconBookOpen,
	"bookopen":     IconBookOpen,
	"check":        IconCheck,
}

// ParseIcon resolves an icon tag, accepting legacy component names such as "BookOpen".
func ParseIcon(s string) (Icon, error) {
	if icon, ok := legacyIcons[strings.ToLower(strings.TrimSpace(s))]; ok {
		return icon, nil
	}
	return "", fmt.Errorf("unknown icon %q", s)
}

// ResolveIcon is ParseIcon with the habit-list fallback: anything unknown shows as a flame.
func ResolveIcon(s string) Icon {
	icon, err := ParseIcon(s)
	if err != nil {
		return IconFlame
	}
	return icon
}
