package amqp

import (
	"time"

	"github.com/goccy/go-json"

	"spendly/internal/core"
)

// DueItem is a subscription listed in a reminder.
type DueItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	RenewalDate string `json:"renewal_date"`
}

// ReminderMessage carries everything a mailer needs to send one reminder.
type ReminderMessage struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	DueSoon   []DueItem `json:"due_soon"`
	Overdue   []DueItem `json:"overdue"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReminderMessage(r core.Reminder) *ReminderMessage {
	return &ReminderMessage{
		UserID:    r.UserID,
		Username:  r.Username,
		Email:     r.Email,
		Subject:   r.Subject,
		Body:      r.Body,
		DueSoon:   dueItems(r.Due.DueSoon),
		Overdue:   dueItems(r.Due.Overdue),
		Timestamp: time.Now(),
	}
}

func dueItems(subs []core.Subscription) []DueItem {
	items := make([]DueItem, 0, len(subs))
	for _, s := range subs {
		items = append(items, DueItem{ID: s.ID, Name: s.Name, RenewalDate: s.RenewalDate.String()})
	}
	return items
}

// Reminder rebuilds the domain reminder. Items whose date does not parse
// keep a zero renewal date.
func (m *ReminderMessage) Reminder() core.Reminder {
	return core.Reminder{
		UserID:   m.UserID,
		Username: m.Username,
		Email:    m.Email,
		Subject:  m.Subject,
		Body:     m.Body,
		Due: core.DueReport{
			DueSoon: subscriptions(m.UserID, m.DueSoon),
			Overdue: subscriptions(m.UserID, m.Overdue),
		},
	}
}

func subscriptions(owner int64, items []DueItem) []core.Subscription {
	subs := make([]core.Subscription, 0, len(items))
	for _, it := range items {
		d, _ := core.ParseDate(it.RenewalDate)
		subs = append(subs, core.Subscription{ID: it.ID, OwnerID: owner, Name: it.Name, RenewalDate: d})
	}
	return subs
}

// ToJSON converts the message to JSON bytes
func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
