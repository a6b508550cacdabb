package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vault-console/internal/listing"
	"github.com/vault-console/internal/logging"
	"github.com/vault-console/internal/models"
	"github.com/vault-console/internal/storage"
)

const (
	// WaitlistTimeLayout is the timestamp layout of waitlist CSV exports
	WaitlistTimeLayout = "2006-01-02 15:04:05"
	waitlistDateLayout = "01/02/2006"
)

var waitlistHeader = []string{"Email", "Created At", "Updated At"}

// WaitlistSource reads the waitlist
type WaitlistSource interface {
	Waitlist(ctx context.Context) ([]models.WaitlistUser, error)
}

// WaitlistService lists, searches and exports waitlisted users
type WaitlistService struct {
	source   WaitlistSource
	lists    *storage.ListCache
	location *time.Location
	now      func() time.Time
}

// NewWaitlistService creates a new waitlist service. Timestamps are rendered
// in loc, or UTC when loc is nil.
func NewWaitlistService(source WaitlistSource, lists *storage.ListCache, loc *time.Location) *WaitlistService {
	if loc == nil {
		loc = time.UTC
	}
	return &WaitlistService{source: source, lists: lists, location: loc, now: time.Now}
}

// List fetches every waitlisted user
func (s *WaitlistService) List(ctx context.Context) ([]models.WaitlistUser, error) {
	return storage.Cached(ctx, s.lists, s.lists.Key("waitlist", "all"), func(ctx context.Context) ([]models.WaitlistUser, error) {
		users, err := s.source.Waitlist(ctx)
		if err != nil {
			return nil, err
		}
		return nonNil(users), nil
	})
}

// Pipeline searches users by email, id and the calendar dates they were
// created and updated on
func (s *WaitlistService) Pipeline() *listing.Pipeline[models.WaitlistUser] {
	return &listing.Pipeline[models.WaitlistUser]{
		SearchFields: func(u models.WaitlistUser) []string {
			return []string{
				u.Email,
				u.ID,
				u.CreatedAt.In(s.location).Format(waitlistDateLayout),
				u.UpdatedAt.In(s.location).Format(waitlistDateLayout),
			}
		},
		Sorters: map[string]listing.Compare[models.WaitlistUser]{
			"email":      listing.ByText(func(u models.WaitlistUser) string { return u.Email }),
			"created_at": func(a, b models.WaitlistUser) int { return a.CreatedAt.Compare(b.CreatedAt) },
			"updated_at": func(a, b models.WaitlistUser) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
		},
	}
}

// Page fetches the waitlist and renders one page of it
func (s *WaitlistService) Page(ctx context.Context, st *listing.State) (listing.Page[models.WaitlistUser], error) {
	users, err := s.List(ctx)
	if err != nil {
		return listing.Page[models.WaitlistUser]{}, err
	}
	return s.Pipeline().Apply(users, st), nil
}

// FileName returns the name of an export taken now
func (s *WaitlistService) FileName() string {
	return "waitlist_users_" + s.now().UTC().Format("2006-01-02") + ".csv"
}

// ExportCSV fetches the full waitlist and writes it to w. It returns the
// number of users written.
func (s *WaitlistService) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	users, err := s.source.Waitlist(ctx)
	if err != nil {
		return 0, err
	}
	if err := WriteWaitlistCSV(w, users, s.location); err != nil {
		return 0, err
	}
	logging.FromContext(ctx).Component("waitlist").WithField("users", len(users)).Info("Exported waitlist")
	return len(users), nil
}

// WriteWaitlistCSV writes users as quoted fields joined by ", ", one user
// per line, with no trailing newline
func WriteWaitlistCSV(w io.Writer, users []models.WaitlistUser, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	bw := bufio.NewWriter(w)

	writeRow := func(fields ...string) {
		for i, f := range fields {
			if i > 0 {
				_, _ = bw.WriteString(", ")
			}
			_, _ = bw.WriteString(quoteField(f))
		}
	}

	writeRow(waitlistHeader...)
	for _, u := range users {
		_, _ = bw.WriteString("\n")
		writeRow(
			u.Email,
			u.CreatedAt.In(loc).Format(WaitlistTimeLayout),
			u.UpdatedAt.In(loc).Format(WaitlistTimeLayout),
		)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write waitlist csv: %w", err)
	}
	return nil
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
