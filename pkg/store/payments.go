package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/denysvitali/fatture/pkg/models"
)

// MarkPaid sets the payment flag. Applying it more than once is harmless and
// leaves every other column untouched.
func (s *Store) MarkPaid(ctx context.Context, id uint) (*models.Invoice, error) {
	res := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", id).UpdateColumn("paid", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// SetDueDate sets or, with a nil date, clears the due date.
func (s *Store) SetDueDate(ctx context.Context, id uint, due *time.Time) error {
	var value any
	if due != nil {
		value = Day(*due)
	}
	res := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", id).UpdateColumn("due_date", value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignDueDates associates payment terms with unpaid invoices lacking a due
// date: the earliest DataScadenzaPagamento becomes the due date. It returns
// the number of invoices updated.
func (s *Store) AssignDueDates(ctx context.Context) (int, error) {
	var pending []models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Payments").
		Omit("raw_xml").
		Where("paid = ? AND due_date IS NULL", false).
		Find(&pending).Error
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, inv := range pending {
		due := earliestDueDate(inv.Payments)
		if due == nil {
			continue
		}
		if err := s.SetDueDate(ctx, inv.ID, due); err != nil {
			return updated, err
		}
		log.Debugf("invoice %s due on %s", inv.Label(), due.Format(time.DateOnly))
		updated++
	}
	return updated, nil
}

func earliestDueDate(payments []models.Payment) *time.Time {
	var due *time.Time
	for _, p := range payments {
		if p.DueDate == nil {
			continue
		}
		if due == nil || p.DueDate.Before(*due) {
			due = p.DueDate
		}
	}
	return due
}

// Deadlines returns the unpaid invoices already overdue at today and the
// ones falling due within the next days (today included).
func (s *Store) Deadlines(ctx context.Context, today time.Time, days int) (overdue, upcoming []models.Invoice, err error) {
	day := Day(today)
	limit := day.AddDate(0, 0, days)

	base := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Omit("raw_xml").
		Where("paid = ? AND due_date IS NOT NULL", false).
		Order("due_date")

	if err = base.Session(&gorm.Session{}).Where("due_date < ?", day).Find(&overdue).Error; err != nil {
		return nil, nil, err
	}
	if err = base.Session(&gorm.Session{}).Where("due_date >= ? AND due_date <= ?", day, limit).Find(&upcoming).Error; err != nil {
		return nil, nil, err
	}
	return overdue, upcoming, nil
}
