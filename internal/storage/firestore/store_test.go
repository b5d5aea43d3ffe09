package firestore

import (
	"context"
	stderrors "errors"
	"os"
	"reflect"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/julianstephens/restreak/internal/errors"
	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/storage"
)

func TestHabitDocNormalizesLegacyValues(t *testing.T) {
	d := habitDoc{
		Title:          "Read Book",
		Frequency:      "",
		Icon:           "BookOpen",
		CompletedDates: []string{"2024-05-02", "2024-05-01", "2024-05-02"},
		Streak:         2,
	}
	h := d.model("abc")
	if h.ID != "abc" || h.Icon != models.IconBookOpen || h.Frequency != models.FrequencyDaily {
		t.Errorf("unexpected habit %+v", h)
	}
	if !reflect.DeepEqual(h.CompletedDates, []string{"2024-05-01", "2024-05-02"}) {
		t.Errorf("dates = %v", h.CompletedDates)
	}

	if got := (habitDoc{Icon: "Rocket", Frequency: "Hourly"}).model("x"); got.Icon != models.IconFlame || got.Frequency != models.FrequencyDaily {
		t.Errorf("unknown values not defaulted: %+v", got)
	}
}

func TestMapErr(t *testing.T) {
	if err := mapErr("mutate_habit", "habit", "h1", status.Error(codes.NotFound, "no doc")); !errors.IsNotFound(err) {
		t.Errorf("NotFound not mapped: %v", err)
	}
	if err := mapErr("mutate_habit", "habit", "h1", status.Error(codes.PermissionDenied, "rules")); !errors.IsWriteRejected(err) {
		t.Errorf("PermissionDenied not mapped: %v", err)
	}
	if err := mapErr("add_habit", "habit", "", stderrors.New("offline")); !errors.IsWriteRejected(err) {
		t.Errorf("plain error not mapped: %v", err)
	}
}

func TestStreamErr(t *testing.T) {
	if streamErr(status.Error(codes.Canceled, "bye")) != nil {
		t.Error("cancelled stream should end cleanly")
	}
	if streamErr(status.Error(codes.Unavailable, "down")) == nil {
		t.Error("unavailable stream should be retried")
	}
}

func TestLoadRequiresIdentity(t *testing.T) {
	s := New(Config{ProjectID: "p"})
	if err := s.Load(); err == nil {
		t.Error("expected error without app and user id")
	}
}

func TestFirestoreEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set, skipping Firestore emulator test")
	}
	s := New(Config{ProjectID: "restreak-test", AppID: "test-app", UserID: "u-" + time.Now().Format("150405.000000")})
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := s.AddHabit(ctx, models.Habit{Title: "Read", Frequency: models.FrequencyDaily, Icon: models.IconBookOpen})
	if err != nil {
		t.Fatalf("AddHabit failed: %v", err)
	}
	if err := s.MutateHabit(ctx, id, storage.Patch{storage.AddToSet(storage.FieldCompletedDates, "2024-05-10"), storage.Set(storage.FieldStreak, 1)}); err != nil {
		t.Fatalf("MutateHabit failed: %v", err)
	}
	if err := s.MutateHabit(ctx, "missing", storage.Patch{storage.Set(storage.FieldStreak, 1)}); !errors.IsNotFound(err) {
		t.Errorf("missing habit: expected NotFound, got %v", err)
	}

	ch, _ := s.SubscribeHabits(ctx)
	for {
		select {
		case hs := <-ch:
			for _, h := range hs {
				if h.ID == id && h.Streak == 1 && h.HasCompleted("2024-05-10") {
					return
				}
			}
		case <-ctx.Done():
			t.Fatal("snapshot never showed the mutation")
		}
	}
}
