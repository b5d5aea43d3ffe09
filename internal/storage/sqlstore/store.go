// Package sqlstore implements the habit document model over database/sql.
// The sqlite and postgres backends share it and differ only in how they
// open connections and learn about committed changes.
package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/restreak/internal/errors"
	"github.com/julianstephens/restreak/internal/logger"
	"github.com/julianstephens/restreak/internal/migration"
	"github.com/julianstephens/restreak/internal/models"
	"github.com/julianstephens/restreak/internal/storage"
)

// Collection names the snapshot stream a write invalidates.
type Collection string

const (
	CollectionHabits   Collection = "habits"
	CollectionActivity Collection = "activity"
	CollectionProfile  Collection = "profile"
)

// Collections lists every stream in refresh order.
var Collections = []Collection{CollectionHabits, CollectionActivity, CollectionProfile}

// timeLayout is fixed width so TEXT timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	db      *sql.DB
	dialect migration.Dialect
	now     func() time.Time

	// OnCommit runs after every committed write with the collection it touched.
	OnCommit func(Collection)

	// publishMu spans query and publish so snapshots land in read order.
	publishMu sync.Mutex

	habits   *storage.Feed[[]models.Habit]
	activity *storage.Feed[[]models.ActivityEvent]
	profile  *storage.Feed[models.Profile]
}

func New(db *sql.DB, dialect migration.Dialect) *Store {
	return &Store{
		db:       db,
		dialect:  dialect,
		now:      time.Now,
		habits:   storage.NewFeed[[]models.Habit](),
		activity: storage.NewFeed[[]models.ActivityEvent](),
		profile:  storage.NewFeed[models.Profile](),
	}
}

// SetNow overrides the clock used for backend-assigned timestamps.
func (s *Store) SetNow(now func() time.Time) {
	s.now = now
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// CloseFeeds ends every subscription.
func (s *Store) CloseFeeds() {
	s.habits.Close()
	s.activity.Close()
	s.profile.Close()
}

func (s *Store) SubscribeHabits(ctx context.Context) (<-chan []models.Habit, error) {
	if err := s.ensureLoaded(ctx, CollectionHabits); err != nil {
		return nil, err
	}
	return s.habits.Subscribe(ctx), nil
}

func (s *Store) SubscribeActivity(ctx context.Context, limit int) (<-chan []models.ActivityEvent, error) {
	if err := s.ensureLoaded(ctx, CollectionActivity); err != nil {
		return nil, err
	}
	return s.activity.SubscribeFunc(ctx, storage.LimitActivity(limit)), nil
}

func (s *Store) SubscribeProfile(ctx context.Context) (<-chan models.Profile, error) {
	if err := s.ensureLoaded(ctx, CollectionProfile); err != nil {
		return nil, err
	}
	return s.profile.Subscribe(ctx), nil
}

func (s *Store) ensureLoaded(ctx context.Context, c Collection) error {
	var loaded bool
	switch c {
	case CollectionHabits:
		_, loaded = s.habits.Latest()
	case CollectionActivity:
		_, loaded = s.activity.Latest()
	case CollectionProfile:
		_, loaded = s.profile.Latest()
	}
	if loaded {
		return nil
	}
	return s.Refresh(ctx, c)
}

// Refresh re-queries one collection and publishes the snapshot.
func (s *Store) Refresh(ctx context.Context, c Collection) error {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	switch c {
	case CollectionHabits:
		hs, err := s.LoadHabits(ctx)
		if err != nil {
			return err
		}
		s.habits.Publish(hs)
	case CollectionActivity:
		as, err := s.LoadActivity(ctx, storage.ActivityWindow)
		if err != nil {
			return err
		}
		s.activity.Publish(as)
	case CollectionProfile:
		p, err := s.LoadProfile(ctx)
		if err != nil {
			return err
		}
		s.profile.Publish(p)
	default:
		return fmt.Errorf("unknown collection %q", c)
	}
	return nil
}

// RefreshAll re-queries every collection.
func (s *Store) RefreshAll(ctx context.Context) error {
	for _, c := range Collections {
		if err := s.Refresh(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// LoadHabits reads habits and their completions from one transaction so a
// concurrent commit never splits a habit's streak from its dates.
func (s *Store) LoadHabits(ctx context.Context) ([]models.Habit, error) {
	var habits []models.Habit
	err := s.readTx(ctx, func(tx *sql.Tx) error {
		var err error
		habits, err = loadHabits(ctx, tx)
		return err
	})
	return habits, err
}

func loadHabits(ctx context.Context, tx *sql.Tx) ([]models.Habit, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, title, frequency, icon, streak, created_at
		FROM habits ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}

	habits := []models.Habit{}
	index := map[string]int{}
	for rows.Next() {
		var h models.Habit
		var freq, icon string
		var created dbTime
		if err := rows.Scan(&h.ID, &h.Title, &freq, &icon, &h.Streak, &created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		h.Frequency = models.Frequency(freq)
		h.Icon = models.ResolveIcon(icon)
		h.CreatedAt = created.t
		h.CompletedDates = []string{}
		index[h.ID] = len(habits)
		habits = append(habits, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	crow, err := tx.QueryContext(ctx, "SELECT habit_id, day FROM habit_completions ORDER BY habit_id, day")
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer crow.Close()
	for crow.Next() {
		var id, day string
		if err := crow.Scan(&id, &day); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		if i, ok := index[id]; ok {
			habits[i].CompletedDates = append(habits[i].CompletedDates, day)
		}
	}
	return habits, crow.Err()
}

func (s *Store) LoadActivity(ctx context.Context, limit int) ([]models.ActivityEvent, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, text, type, timestamp FROM activity
		ORDER BY timestamp DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	events := []models.ActivityEvent{}
	for rows.Next() {
		var e models.ActivityEvent
		var typ string
		var ts dbTime
		if err := rows.Scan(&e.ID, &e.Text, &typ, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		e.Type = models.ActivityType(typ)
		e.Timestamp = ts.t
		events = append(events, e)
	}
	storage.SortActivity(events)
	return events, rows.Err()
}

func (s *Store) LoadProfile(ctx context.Context) (models.Profile, error) {
	var p models.Profile
	err := s.readTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = loadProfile(ctx, tx)
		return err
	})
	return p, err
}

func loadProfile(ctx context.Context, tx *sql.Tx) (models.Profile, error) {
	p := models.Profile{Badges: []string{}}
	var joined dbTime
	err := tx.QueryRowContext(ctx, "SELECT display_name, email, join_date FROM profile WHERE id = 1").
		Scan(&p.DisplayName, &p.Email, &joined)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("failed to query profile: %w", err)
	}
	if joined.valid {
		t := joined.t
		p.JoinDate = &t
	}

	rows, err := tx.QueryContext(ctx, "SELECT badge_id FROM profile_badges ORDER BY position")
	if err != nil {
		return p, fmt.Errorf("failed to query badges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return p, err
		}
		p.Badges = append(p.Badges, id)
	}
	return p, rows.Err()
}

func (s *Store) AddHabit(ctx context.Context, h models.Habit) (string, error) {
	id := uuid.NewString()
	created := h.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO habits (id, title, frequency, icon, streak, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`),
		id, h.Title, string(h.Frequency), string(h.Icon), s.timeArg(created))
	if err != nil {
		return "", errors.WriteRejected("add_habit", "habit", id, err)
	}
	s.committed(CollectionHabits)
	return id, nil
}

func (s *Store) MutateHabit(ctx context.Context, id string, p storage.Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, s.rebind("SELECT 1 FROM habits WHERE id = ?"), id).Scan(&one)
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NotFound("mutate_habit", "habit", id, nil)
		}
		if err != nil {
			return err
		}
		for _, op := range p {
			if err := s.applyOp(ctx, tx, id, op); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.KindOf(err) != errors.KindUnknown {
			return err
		}
		return errors.WriteRejected("mutate_habit", "habit", id, err)
	}
	s.committed(CollectionHabits)
	return nil
}

func (s *Store) applyOp(ctx context.Context, tx *sql.Tx, id string, op storage.FieldOp) error {
	switch op.Field {
	case storage.FieldStreak:
		_, err := tx.ExecContext(ctx, s.rebind("UPDATE habits SET streak = ? WHERE id = ?"), op.Value.(int), id)
		return err
	case storage.FieldCompletedDates:
		switch op.Kind {
		case storage.OpAddToSet:
			return s.insertDay(ctx, tx, id, op.Value.(string))
		case storage.OpRemoveFromSet:
			_, err := tx.ExecContext(ctx, s.rebind("DELETE FROM habit_completions WHERE habit_id = ? AND day = ?"), id, op.Value.(string))
			return err
		case storage.OpSet:
			if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM habit_completions WHERE habit_id = ?"), id); err != nil {
				return err
			}
			for _, day := range models.NormalizeDates(op.Value.([]string)) {
				if err := s.insertDay(ctx, tx, id, day); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *Store) insertDay(ctx context.Context, tx *sql.Tx, id, day string) error {
	_, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO habit_completions (habit_id, day) VALUES (?, ?)
		ON CONFLICT DO NOTHING`), id, day)
	return err
}

func (s *Store) DeleteHabit(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM habit_completions WHERE habit_id = ?"), id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM habits WHERE id = ?"), id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return errors.NotFound("delete_habit", "habit", id, nil)
		}
		return nil
	})
	if err != nil {
		if errors.KindOf(err) != errors.KindUnknown {
			return err
		}
		return errors.WriteRejected("delete_habit", "habit", id, err)
	}
	s.committed(CollectionHabits)
	return nil
}

func (s *Store) AppendActivity(ctx context.Context, e models.ActivityEvent) (string, error) {
	id := uuid.NewString()
	ts := e.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.rebind("INSERT INTO activity (id, text, type, timestamp) VALUES (?, ?, ?, ?)"),
		id, e.Text, string(e.Type), s.timeArg(ts))
	if err != nil {
		return "", errors.WriteRejected("append_activity", "activity", id, err)
	}
	s.committed(CollectionActivity)
	return id, nil
}

func (s *Store) SaveProfile(ctx context.Context, p models.Profile) error {
	joined := s.now()
	if p.JoinDate != nil {
		joined = *p.JoinDate
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO profile (id, display_name, email, join_date) VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name, email = excluded.email`),
		p.DisplayName, p.Email, s.timeArg(joined))
	if err != nil {
		return errors.WriteRejected("save_profile", "profile", "", err)
	}
	s.committed(CollectionProfile)
	return nil
}

func (s *Store) AddProfileBadges(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			_, err := tx.ExecContext(ctx, s.rebind(`
				INSERT INTO profile_badges (badge_id, position)
				VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM profile_badges))
				ON CONFLICT DO NOTHING`), id)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.WriteRejected("add_profile_badges", "profile", "", err)
	}
	s.committed(CollectionProfile)
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// readTx runs fn in a transaction that sees one point in time. Postgres
// needs repeatable read for that; a sqlite transaction already holds it.
func (s *Store) readTx(ctx context.Context, fn func(*sql.Tx) error) error {
	var opts *sql.TxOptions
	if s.dialect == migration.Postgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return fn(tx)
}

func (s *Store) committed(c Collection) {
	if s.OnCommit != nil {
		s.OnCommit(c)
	}
}

// rebind rewrites ? placeholders into $n for postgres.
func (s *Store) rebind(q string) string {
	if s.dialect != migration.Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) timeArg(t time.Time) any {
	if s.dialect == migration.Postgres {
		return t
	}
	return t.UTC().Format(timeLayout)
}

// dbTime scans TEXT timestamps (sqlite) and native timestamps (postgres).
type dbTime struct {
	t     time.Time
	valid bool
}

func (d *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.t, d.valid = time.Time{}, false
		return nil
	case time.Time:
		d.t, d.valid = v, true
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (d *dbTime) parse(v string) error {
	for _, layout := range []string{timeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, v); err == nil {
			d.t, d.valid = t, true
			return nil
		}
	}
	logger.Warn("Unparseable stored timestamp", "value", v)
	return fmt.Errorf("failed to parse time %q", v)
}
