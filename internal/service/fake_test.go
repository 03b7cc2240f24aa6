package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/movie-booking/internal/lock"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/payment"
	"github.com/iliyamo/movie-booking/internal/queue"
)

var errConflict = errors.New("conflict")

// fakeStore is an in-memory Repository and CatalogRepository.  WithTx
// snapshots the state and restores it when fn fails.
type fakeStore struct {
	mu       sync.Mutex
	movies   map[string]model.Movie
	shows    map[uint64]model.Show
	holders  map[uint64]map[string]uint64 // show -> seat -> booking
	bookings map[uint64]model.Booking
	nextShow uint64
	nextBook uint64
	releases int
	favs     map[string][]string // user -> movie ids, oldest first

	listErr error

	// lockedShow, when set, reports whether the show's lock is held.
	// Reads for update and seat claims made without it are counted in
	// unguarded.
	lockedShow func(showID uint64) bool
	unguarded  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		movies:   map[string]model.Movie{},
		shows:    map[uint64]model.Show{},
		holders:  map[uint64]map[string]uint64{},
		bookings: map[uint64]model.Booking{},
		favs:     map[string][]string{},
		nextShow: 1,
		nextBook: 1,
	}
}

type fakeState struct {
	movies   map[string]model.Movie
	shows    map[uint64]model.Show
	holders  map[uint64]map[string]uint64
	bookings map[uint64]model.Booking
	nextShow uint64
	nextBook uint64
	releases int
}

func (f *fakeStore) snapshot() fakeState {
	st := fakeState{
		movies:   map[string]model.Movie{},
		shows:    map[uint64]model.Show{},
		holders:  map[uint64]map[string]uint64{},
		bookings: map[uint64]model.Booking{},
		nextShow: f.nextShow,
		nextBook: f.nextBook,
		releases: f.releases,
	}
	for k, v := range f.movies {
		st.movies[k] = v
	}
	for k, v := range f.shows {
		v.OccupiedSeats = copySeats(v.OccupiedSeats)
		st.shows[k] = v
	}
	for k, v := range f.holders {
		m := map[string]uint64{}
		for s, b := range v {
			m[s] = b
		}
		st.holders[k] = m
	}
	for k, v := range f.bookings {
		st.bookings[k] = v
	}
	return st
}

func (f *fakeStore) restore(st fakeState) {
	f.movies, f.shows, f.holders, f.bookings = st.movies, st.shows, st.holders, st.bookings
	f.nextShow, f.nextBook, f.releases = st.nextShow, st.nextBook, st.releases
}

func copySeats(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	st := f.snapshot()
	f.mu.Unlock()
	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.restore(st)
		f.mu.Unlock()
		return err
	}
	return nil
}

// seed helpers

func (f *fakeStore) addMovie(m model.Movie) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movies[m.ID] = m
}

func (f *fakeStore) addShow(movieID string, price uint64, startsAt time.Time, occupied map[string]string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextShow
	f.nextShow++
	f.shows[id] = model.Show{ID: id, MovieID: movieID, StartsAt: startsAt, PriceCents: price, OccupiedSeats: copySeats(occupied)}
	f.holders[id] = map[string]uint64{}
	return id
}

func (f *fakeStore) occupancy(showID uint64) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copySeats(f.shows[showID].OccupiedSeats)
}

func (f *fakeStore) booking(id uint64) (model.Booking, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	return b, ok
}

func (f *fakeStore) bookingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

func (f *fakeStore) unguardedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unguarded
}

// guard must be called with f.mu held.
func (f *fakeStore) guard(showID uint64) {
	if f.lockedShow != nil && !f.lockedShow(showID) {
		f.unguarded++
	}
}

func (f *fakeStore) releaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releases
}

// Repository

func (f *fakeStore) GetShow(_ context.Context, id uint64) (model.Show, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shows[id]
	if !ok {
		return model.Show{}, model.ErrShowNotFound
	}
	s.OccupiedSeats = copySeats(s.OccupiedSeats)
	return s, nil
}

func (f *fakeStore) GetShowForUpdate(ctx context.Context, id uint64) (model.Show, error) {
	f.mu.Lock()
	f.guard(id)
	f.mu.Unlock()
	return f.GetShow(ctx, id)
}

func (f *fakeStore) GetMovie(_ context.Context, id string) (model.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.movies[id]
	if !ok {
		return model.Movie{}, model.ErrMovieNotFound
	}
	return m, nil
}

func (f *fakeStore) ClaimSeats(_ context.Context, showID, bookingID uint64, userID string, seats []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guard(showID)
	s, ok := f.shows[showID]
	if !ok {
		return model.ErrShowNotFound
	}
	// A plain write: whatever checked availability must still hold the
	// show's lock.
	for _, seat := range seats {
		s.OccupiedSeats[seat] = userID
		f.holders[showID][seat] = bookingID
	}
	return nil
}

func (f *fakeStore) CreateBooking(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b.ID = f.nextBook
	f.nextBook++
	f.bookings[b.ID] = *b
	return nil
}

func (f *fakeStore) GetBooking(_ context.Context, id uint64) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeStore) GetBookingForUpdate(ctx context.Context, id uint64) (model.Booking, error) {
	return f.GetBooking(ctx, id)
}

func (f *fakeStore) ListBookings(_ context.Context, userID string) ([]model.BookingDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.BookingDetail{}
	for _, b := range f.bookings {
		if userID != "" && b.UserID != userID {
			continue
		}
		s := f.shows[b.ShowID]
		m := f.movies[s.MovieID]
		out = append(out, model.BookingDetail{Booking: b, ShowStartsAt: s.StartsAt, MovieID: m.ID, MovieTitle: m.Title})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeStore) SetPaymentLink(_ context.Context, id uint64, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return model.ErrBookingNotFound
	}
	b.PaymentLink = link
	f.bookings[id] = b
	return nil
}

func (f *fakeStore) MarkPaid(_ context.Context, id uint64, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return false, model.ErrBookingNotFound
	}
	if b.IsPaid {
		return false, nil
	}
	b.IsPaid = true
	b.PaidAt = &at
	f.bookings[id] = b
	return true, nil
}

func (f *fakeStore) ReleaseBooking(_ context.Context, b model.Booking) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.bookings[b.ID]
	if !ok || cur.IsPaid {
		return 0, model.ErrBookingNotFound
	}
	n := 0
	s := f.shows[b.ShowID]
	for seat, owner := range f.holders[b.ShowID] {
		if owner == b.ID {
			delete(f.holders[b.ShowID], seat)
			delete(s.OccupiedSeats, seat)
			n++
		}
	}
	delete(f.bookings, b.ID)
	f.releases++
	return n, nil
}

// CatalogRepository

func (f *fakeStore) EnsureMovie(_ context.Context, m *model.Movie) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.movies[m.ID]; ok {
		return false, nil
	}
	f.movies[m.ID] = *m
	return true, nil
}

func (f *fakeStore) ListNowShowing(_ context.Context, from time.Time) ([]model.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	first := map[string]time.Time{}
	for _, s := range f.shows {
		if s.StartsAt.Before(from) {
			continue
		}
		if t, ok := first[s.MovieID]; !ok || s.StartsAt.Before(t) {
			first[s.MovieID] = s.StartsAt
		}
	}
	out := []model.Movie{}
	for id := range first {
		out = append(out, f.movies[id])
	}
	sort.Slice(out, func(i, j int) bool { return first[out[i].ID].Before(first[out[j].ID]) })
	return out, nil
}

func (f *fakeStore) CreateShow(_ context.Context, s *model.Show) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = f.nextShow
	f.nextShow++
	s.OccupiedSeats = map[string]string{}
	f.shows[s.ID] = *s
	f.holders[s.ID] = map[string]uint64{}
	return nil
}

func (f *fakeStore) ListShowsByMovie(_ context.Context, movieID string, from time.Time) ([]model.Show, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Show
	for _, s := range f.shows {
		if s.MovieID == movieID && !s.StartsAt.Before(from) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (f *fakeStore) ListUpcomingShows(_ context.Context, from time.Time) ([]model.ShowWithMovie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ShowWithMovie
	for _, s := range f.shows {
		if !s.StartsAt.Before(from) {
			out = append(out, model.ShowWithMovie{Show: s, Movie: f.movies[s.MovieID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (f *fakeStore) ListAllShows(context.Context) ([]model.ShowWithMovie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ShowWithMovie{}
	for _, s := range f.shows {
		out = append(out, model.ShowWithMovie{Show: s, Movie: f.movies[s.MovieID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (f *fakeStore) DeleteShowsByMovie(_ context.Context, movieID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uint64
	for id, s := range f.shows {
		if s.MovieID == movieID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, model.ErrShowNotFound
	}
	for _, b := range f.bookings {
		for _, id := range ids {
			if b.ShowID == id {
				return 0, errConflict
			}
		}
	}
	for _, id := range ids {
		delete(f.shows, id)
		delete(f.holders, id)
	}
	return int64(len(ids)), nil
}

func (f *fakeStore) BookingStats(context.Context) (int, uint64, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int
	var revenue uint64
	users := map[string]struct{}{}
	for _, b := range f.bookings {
		if !b.IsPaid {
			continue
		}
		count++
		revenue += b.AmountCents
		users[b.UserID] = struct{}{}
	}
	return count, revenue, len(users), nil
}

func (f *fakeStore) ToggleFavorite(_ context.Context, userID, movieID string, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := f.favs[userID]
	for i, id := range ids {
		if id == movieID {
			f.favs[userID] = append(ids[:i:i], ids[i+1:]...)
			return false, nil
		}
	}
	if _, ok := f.movies[movieID]; !ok {
		return false, model.ErrMovieNotFound
	}
	f.favs[userID] = append(ids, movieID)
	return true, nil
}

func (f *fakeStore) ListFavorites(_ context.Context, userID string) ([]model.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := f.favs[userID]
	out := make([]model.Movie, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, f.movies[ids[i]])
	}
	return out, nil
}

// collaborators

type fakeGateway struct {
	mu       sync.Mutex
	requests []payment.SessionRequest
	err      error
}

func (g *fakeGateway) CreateSession(_ context.Context, req payment.SessionRequest) (payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return payment.Session{}, g.err
	}
	g.requests = append(g.requests, req)
	id := fmt.Sprintf("cs_%s_%d", req.CorrelationID, len(g.requests))
	return payment.Session{ID: id, URL: "https://pay.example/" + id}, nil
}

func (g *fakeGateway) calls() []payment.SessionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]payment.SessionRequest(nil), g.requests...)
}

type scheduledCheck struct {
	BookingID uint64
	Delay     time.Duration
}

type fakeScheduler struct {
	mu     sync.Mutex
	checks []scheduledCheck
	err    error
}

func (s *fakeScheduler) SchedulePaymentCheck(_ context.Context, id uint64, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, scheduledCheck{id, delay})
	return s.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.BookingPaidEvent
}

func (p *fakePublisher) PublishBookingPaid(_ context.Context, ev queue.BookingPaidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// manualClock is a clock the test can move forward.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// trackingLocker wraps a Locker and records how many callers hold each
// key at once.
type trackingLocker struct {
	inner lock.Locker

	mu      sync.Mutex
	held    map[string]int
	maxHeld int
}

func newTrackingLocker(inner lock.Locker) *trackingLocker {
	return &trackingLocker{inner: inner, held: map[string]int{}}
}

func (l *trackingLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlock, err := l.inner.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.held[key]++
	if l.held[key] > l.maxHeld {
		l.maxHeld = l.held[key]
	}
	l.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.held[key]--
			l.mu.Unlock()
			unlock()
		})
	}, nil
}

func (l *trackingLocker) holds(showID uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[lock.ShowKey(showID)] > 0
}

func (l *trackingLocker) peak() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maxHeld
}

type busyLocker struct{ err error }

func (l busyLocker) Lock(context.Context, string) (func(), error) { return nil, l.err }
