package firestore

import (
	"time"

	"github.com/julianstephens/restreak/internal/models"
)

// habitDoc is the stored shape. Icons and frequencies written by older
// clients use component names ("BookOpen") and are normalized on read.
type habitDoc struct {
	Title          string    `firestore:"title"`
	Frequency      string    `firestore:"frequency"`
	Icon           string    `firestore:"icon"`
	CompletedDates []string  `firestore:"completedDates"`
	Streak         int       `firestore:"streak"`
	CreatedAt      time.Time `firestore:"createdAt"`
}

func (d habitDoc) model(id string) models.Habit {
	freq, err := models.ParseFrequency(d.Frequency)
	if err != nil {
		freq = models.FrequencyDaily
	}
	return models.Habit{
		ID:             id,
		Title:          d.Title,
		Frequency:      freq,
		Icon:           models.ResolveIcon(d.Icon),
		CompletedDates: models.NormalizeDates(d.CompletedDates),
		Streak:         d.Streak,
		CreatedAt:      d.CreatedAt,
	}
}
