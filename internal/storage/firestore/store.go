// Package firestore stores habits under artifacts/{appId}/users/{uid} and
// uses realtime query snapshots as the subscription feed.
package firestore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/julianstephens/restreak/internal/errors"
	"github.com/julianstephens/restreak/internal/logger"
	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/storage"
)

type Config struct {
	ProjectID       string
	AppID           string
	UserID          string
	CredentialsFile string
	CredentialsJSON string
}

type Store struct {
	cfg    Config
	client *firestore.Client
	cancel context.CancelFunc
	wg     sync.WaitGroup

	habits   *storage.Feed[[]models.Habit]
	activity *storage.Feed[[]models.ActivityEvent]
	profile  *storage.Feed[models.Profile]
}

var _ storage.Provider = (*Store)(nil)

func New(cfg Config) *Store {
	return &Store{
		cfg:      cfg,
		habits:   storage.NewFeed[[]models.Habit](),
		activity: storage.NewFeed[[]models.ActivityEvent](),
		profile:  storage.NewFeed[models.Profile](),
	}
}

// Init and Load both connect; Firestore needs no schema.
func (s *Store) Init() error { return s.Load() }

func (s *Store) Load() error {
	if s.client != nil {
		return nil
	}
	if s.cfg.ProjectID == "" || s.cfg.AppID == "" || s.cfg.UserID == "" {
		return fmt.Errorf("firestore backend needs project id, app id and user id")
	}

	var opts []option.ClientOption
	switch {
	case s.cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(s.cfg.CredentialsJSON)))
	case s.cfg.CredentialsFile != "":
		if _, err := os.Stat(s.cfg.CredentialsFile); err != nil {
			return fmt.Errorf("credentials file %s: %w", s.cfg.CredentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(s.cfg.CredentialsFile))
	}

	ctx, cancel := context.WithCancel(context.Background())
	client, err := firestore.NewClient(ctx, s.cfg.ProjectID, opts...)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create firestore client: %w", err)
	}
	s.client = client
	s.cancel = cancel

	s.watch(ctx, "habits", s.watchHabits)
	s.watch(ctx, "activity", s.watchActivity)
	s.watch(ctx, "profile", s.watchProfile)
	return nil
}

func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.habits.Close()
	s.activity.Close()
	s.profile.Close()
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) GetConfigPath() string {
	return fmt.Sprintf("firestore://%s/artifacts/%s/users/%s", s.cfg.ProjectID, s.cfg.AppID, s.cfg.UserID)
}

func (s *Store) userDoc() *firestore.DocumentRef {
	return s.client.Collection("artifacts").Doc(s.cfg.AppID).Collection("users").Doc(s.cfg.UserID)
}

func (s *Store) habitsCol() *firestore.CollectionRef {
	return s.userDoc().Collection("habits")
}

func (s *Store) activityCol() *firestore.CollectionRef {
	return s.userDoc().Collection("activity")
}

func (s *Store) SubscribeHabits(ctx context.Context) (<-chan []models.Habit, error) {
	return s.habits.Subscribe(ctx), nil
}

func (s *Store) SubscribeActivity(ctx context.Context, limit int) (<-chan []models.ActivityEvent, error) {
	return s.activity.SubscribeFunc(ctx, storage.LimitActivity(limit)), nil
}

func (s *Store) SubscribeProfile(ctx context.Context) (<-chan models.Profile, error) {
	return s.profile.Subscribe(ctx), nil
}

// watch runs a snapshot loop, restarting it with backoff after transient errors.
func (s *Store) watch(ctx context.Context, name string, loop func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		backoff := time.Second
		for {
			err := loop(ctx)
			if ctx.Err() != nil || err == nil {
				return
			}
			logger.Warn("Firestore snapshot stream failed, retrying", "stream", name, "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	}()
}

func (s *Store) watchHabits(ctx context.Context) error {
	it := s.habitsCol().OrderBy("createdAt", firestore.Desc).Snapshots(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err != nil {
			return streamErr(err)
		}
		docs, err := snap.Documents.GetAll()
		if err != nil {
			return err
		}
		habits := make([]models.Habit, 0, len(docs))
		for _, d := range docs {
			var hd habitDoc
			if err := d.DataTo(&hd); err != nil {
				logger.Warn("Skipping undecodable habit", "habit", d.Ref.ID, "error", err)
				continue
			}
			habits = append(habits, hd.model(d.Ref.ID))
		}
		s.habits.Publish(habits)
	}
}

func (s *Store) watchActivity(ctx context.Context) error {
	it := s.activityCol().OrderBy("timestamp", firestore.Desc).Limit(storage.ActivityWindow).Snapshots(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err != nil {
			return streamErr(err)
		}
		docs, err := snap.Documents.GetAll()
		if err != nil {
			return err
		}
		events := make([]models.ActivityEvent, 0, len(docs))
		for _, d := range docs {
			var e models.ActivityEvent
			if err := d.DataTo(&e); err != nil {
				logger.Warn("Skipping undecodable activity", "activity", d.Ref.ID, "error", err)
				continue
			}
			e.ID = d.Ref.ID
			events = append(events, e)
		}
		storage.SortActivity(events)
		s.activity.Publish(events)
	}
}

func (s *Store) watchProfile(ctx context.Context) error {
	it := s.userDoc().Snapshots(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err != nil {
			return streamErr(err)
		}
		p := models.Profile{Badges: []string{}}
		if snap.Exists() {
			if err := snap.DataTo(&p); err != nil {
				logger.Warn("Undecodable profile document", "error", err)
			}
			p.Badges = models.MergeBadges(p.Badges)
		}
		s.profile.Publish(p)
	}
}

// streamErr turns the normal end of a stream into nil.
func streamErr(err error) error {
	if err == iterator.Done || status.Code(err) == codes.Canceled {
		return nil
	}
	return err
}

func (s *Store) AddHabit(ctx context.Context, h models.Habit) (string, error) {
	ref, _, err := s.habitsCol().Add(ctx, map[string]interface{}{
		"title":          h.Title,
		"frequency":      string(h.Frequency),
		"icon":           string(h.Icon),
		"createdAt":      firestore.ServerTimestamp,
		"completedDates": []string{},
		"streak":         0,
	})
	if err != nil {
		return "", mapErr("add_habit", "habit", "", err)
	}
	return ref.ID, nil
}

func (s *Store) MutateHabit(ctx context.Context, id string, p storage.Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	updates := make([]firestore.Update, 0, len(p))
	for _, op := range p {
		u := firestore.Update{Path: string(op.Field)}
		switch op.Kind {
		case storage.OpAddToSet:
			u.Value = firestore.ArrayUnion(op.Value)
		case storage.OpRemoveFromSet:
			u.Value = firestore.ArrayRemove(op.Value)
		default:
			u.Value = op.Value
		}
		updates = append(updates, u)
	}
	if _, err := s.habitsCol().Doc(id).Update(ctx, updates); err != nil {
		return mapErr("mutate_habit", "habit", id, err)
	}
	return nil
}

func (s *Store) DeleteHabit(ctx context.Context, id string) error {
	if _, err := s.habitsCol().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return mapErr("delete_habit", "habit", id, err)
	}
	return nil
}

func (s *Store) AppendActivity(ctx context.Context, e models.ActivityEvent) (string, error) {
	ref, _, err := s.activityCol().Add(ctx, map[string]interface{}{
		"text":      e.Text,
		"type":      string(e.Type),
		"timestamp": firestore.ServerTimestamp,
	})
	if err != nil {
		return "", mapErr("append_activity", "activity", "", err)
	}
	return ref.ID, nil
}

func (s *Store) SaveProfile(ctx context.Context, p models.Profile) error {
	ref := s.userDoc()
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if snap != nil && snap.Exists() {
			return tx.Update(ref, []firestore.Update{
				{Path: "displayName", Value: p.DisplayName},
				{Path: "email", Value: p.Email},
			})
		}
		return tx.Set(ref, map[string]interface{}{
			"displayName": p.DisplayName,
			"email":       p.Email,
			"joinDate":    firestore.ServerTimestamp,
			"badges":      []string{},
		})
	})
	if err != nil {
		return mapErr("save_profile", "profile", s.cfg.UserID, err)
	}
	return nil
}

func (s *Store) AddProfileBadges(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	vals := make([]interface{}, len(ids))
	for i, id := range ids {
		vals[i] = id
	}
	_, err := s.userDoc().Set(ctx, map[string]interface{}{"badges": firestore.ArrayUnion(vals...)}, firestore.MergeAll)
	if err != nil {
		return mapErr("add_profile_badges", "profile", s.cfg.UserID, err)
	}
	return nil
}

func mapErr(op, resource, id string, err error) error {
	if status.Code(err) == codes.NotFound {
		return errors.NotFound(op, resource, id, err)
	}
	return errors.WriteRejected(op, resource, id, err)
}
