package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/denysvitali/fatture/pkg/models"
)

type ListFilter struct {
	Issuer string
	Paid   *bool
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// List returns invoices without raw XML or children, newest first, and the
// number of invoices matching the filter.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Invoice, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Invoice{})
	if f.Issuer != "" {
		q = q.Where("issuer = ?", f.Issuer)
	}
	if f.Paid != nil {
		q = q.Where("paid = ?", *f.Paid)
	}
	if f.From != nil {
		q = q.Where("date >= ?", Day(*f.From))
	}
	if f.To != nil {
		q = q.Where("date <= ?", Day(*f.To))
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []models.Invoice
	err := q.Omit("raw_xml").Order("date DESC").Order("id DESC").Find(&out).Error
	return out, total, err
}

// Issuers returns the distinct issuer names, sorted.
func (s *Store) Issuers(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("issuer IS NOT NULL").
		Distinct("issuer").
		Order("issuer").
		Pluck("issuer", &out).Error
	return out, err
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
