// services/feed.go
package services

import (
	"log"
	"sync"

	"hydrapair-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const feedFetchLimit = 50

// FetchRecent returns the newest reminders involving the profile, most recent
// first, each enriched with sender and receiver name/email.
func FetchRecent(db *gorm.DB, profileID uuid.UUID) ([]models.WaterReminder, error) {
	var reminders []models.WaterReminder
	err := db.
		Preload("Sender", profileRef).
		Preload("Receiver", profileRef).
		Where("sender_id = ? OR receiver_id = ?", profileID, profileID).
		Order("sent_at DESC").
		Limit(feedFetchLimit).
		Find(&reminders).Error
	return reminders, err
}

func profileRef(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "email")
}

// ReminderFeed maintains the live, most-recent-first view of reminders for one
// signed-in profile. It merges an initial bulk fetch with broker events into
// an id-keyed list, so a row delivered twice (live event plus fetch result, or
// a redelivered event) lands exactly once.
type ReminderFeed struct {
	db       *gorm.DB
	broker   *Broker
	notifier NotificationCapability

	mu    sync.Mutex
	order []uuid.UUID
	byID  map[uuid.UUID]models.WaterReminder

	cancel func()
	out    chan ReminderEvent
}

func NewReminderFeed(db *gorm.DB, broker *Broker, notifier NotificationCapability) *ReminderFeed {
	if notifier == nil {
		notifier = &LogNotifier{}
	}
	return &ReminderFeed{
		db:       db,
		broker:   broker,
		notifier: notifier,
		byID:     make(map[uuid.UUID]models.WaterReminder),
		out:      make(chan ReminderEvent, 16),
	}
}

// Activate subscribes to live changes for the profile and loads the initial
// history. The subscription is opened first so nothing is missed while the
// fetch runs; the id-keyed merge absorbs any overlap between the two. On a
// fetch error the feed stays live with whatever it already has.
func (f *ReminderFeed) Activate(profileID uuid.UUID) error {
	sub, cancel := f.broker.Subscribe(profileID)
	f.cancel = cancel
	go f.consume(sub)

	reminders, err := FetchRecent(f.db, profileID)
	if err != nil {
		log.Printf("Error fetching reminders: %v", err)
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range reminders {
		if _, ok := f.byID[r.ID]; ok {
			continue
		}
		f.byID[r.ID] = r
		f.order = append(f.order, r.ID)
	}
	return nil
}

// Events exposes the merged change stream. The channel closes on Deactivate.
func (f *ReminderFeed) Events() <-chan ReminderEvent {
	return f.out
}

// Reminders returns a snapshot of the current list, most recent first.
func (f *ReminderFeed) Reminders() []models.WaterReminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.WaterReminder, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.byID[id])
	}
	return out
}

// Deactivate releases the live subscription and clears the in-memory list.
func (f *ReminderFeed) Deactivate() {
	if f.cancel != nil {
		f.cancel()
	}
	f.mu.Lock()
	f.order = nil
	f.byID = make(map[uuid.UUID]models.WaterReminder)
	f.mu.Unlock()
}

func (f *ReminderFeed) consume(sub <-chan ReminderEvent) {
	for ev := range sub {
		f.apply(ev)
	}
	close(f.out)
}

func (f *ReminderFeed) apply(ev ReminderEvent) {
	switch ev.Type {
	case EventInsert:
		f.handleInsert(ev.Reminder)
	case EventUpdate:
		f.handleUpdate(ev.Reminder)
	default:
		return
	}

	select {
	case f.out <- ev:
	default:
	}
}

func (f *ReminderFeed) handleInsert(r models.WaterReminder) {
	f.mu.Lock()
	if _, ok := f.byID[r.ID]; ok {
		// Redelivered row: refresh it, but do not alert the user again.
		f.byID[r.ID] = r
		f.mu.Unlock()
		return
	}
	f.byID[r.ID] = r
	f.order = append([]uuid.UUID{r.ID}, f.order...)
	f.mu.Unlock()

	log.Printf("💕 Water Reminder! %s", r.Message)
	if f.notifier.IsGranted() {
		if err := f.notifier.Show("Water Reminder 💕", r.Message, "water-reminder"); err != nil {
			log.Printf("Error showing notification: %v", err)
		}
	}
}

func (f *ReminderFeed) handleUpdate(r models.WaterReminder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[r.ID]; !ok {
		return
	}
	// Replace in place, no reordering.
	f.byID[r.ID] = r
}
