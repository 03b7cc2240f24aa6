package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/clock"
	"github.com/iliyamo/movie-booking/internal/model"
)

// CatalogRepository is the persistence behind the show catalog.
type CatalogRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetMovie(ctx context.Context, id string) (model.Movie, error)
	EnsureMovie(ctx context.Context, m *model.Movie) (bool, error)
	ListNowShowing(ctx context.Context, from time.Time) ([]model.Movie, error)

	CreateShow(ctx context.Context, s *model.Show) error
	ListShowsByMovie(ctx context.Context, movieID string, from time.Time) ([]model.Show, error)
	ListUpcomingShows(ctx context.Context, from time.Time) ([]model.ShowWithMovie, error)
	ListAllShows(ctx context.Context) ([]model.ShowWithMovie, error)
	DeleteShowsByMovie(ctx context.Context, movieID string) (int64, error)

	BookingStats(ctx context.Context) (count int, revenue uint64, users int, err error)

	ToggleFavorite(ctx context.Context, userID, movieID string, at time.Time) (bool, error)
	ListFavorites(ctx context.Context, userID string) ([]model.Movie, error)
}

// CatalogService schedules shows and answers catalog and dashboard
// queries.
type CatalogService struct {
	repo  CatalogRepository
	clock clock.Clock
	log   logrus.FieldLogger
}

// NewCatalogService returns a CatalogService.
func NewCatalogService(repo CatalogRepository, clk clock.Clock, log logrus.FieldLogger) *CatalogService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CatalogService{repo: repo, clock: clk, log: log}
}

// ShowSlot lists the start times ("15:04") of shows on one date
// ("2006-01-02").
type ShowSlot struct {
	Date  string
	Times []string
}

// AddShowsInput schedules shows of one movie.
type AddShowsInput struct {
	Movie      model.Movie
	Slots      []ShowSlot
	PriceCents uint64
}

// AddShows caches the movie if it is new and creates one show per valid
// date/time pair.  Malformed entries are skipped; if none remain the
// request is rejected.  Times are interpreted as UTC.
func (c *CatalogService) AddShows(ctx context.Context, in AddShowsInput) ([]model.Show, error) {
	in.Movie.ID = strings.TrimSpace(in.Movie.ID)
	if in.Movie.ID == "" || strings.TrimSpace(in.Movie.Title) == "" {
		return nil, validationErr("movie id and title are required")
	}
	if in.PriceCents == 0 {
		return nil, validationErr("show price must be positive")
	}
	starts := parseSlots(in.Slots)
	if len(starts) == 0 {
		return nil, validationErr("no valid show times")
	}

	now := c.clock.Now()
	shows := make([]model.Show, 0, len(starts))
	err := c.repo.WithTx(ctx, func(ctx context.Context) error {
		movie := in.Movie
		movie.CreatedAt = now
		created, err := c.repo.EnsureMovie(ctx, &movie)
		if err != nil {
			return err
		}
		if created {
			c.log.WithField("movie_id", movie.ID).Info("movie cached")
		}
		for _, at := range starts {
			sh := model.Show{MovieID: movie.ID, StartsAt: at, PriceCents: in.PriceCents, CreatedAt: now}
			if err := c.repo.CreateShow(ctx, &sh); err != nil {
				return err
			}
			shows = append(shows, sh)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shows, nil
}

func parseSlots(slots []ShowSlot) []time.Time {
	var out []time.Time
	for _, slot := range slots {
		day, err := time.Parse("2006-01-02", strings.TrimSpace(slot.Date))
		if err != nil {
			continue
		}
		for _, hm := range slot.Times {
			t, err := time.Parse("15:04", strings.TrimSpace(hm))
			if err != nil {
				continue
			}
			out = append(out, time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC))
		}
	}
	return out
}

// NowShowing lists movies with at least one upcoming show.
func (c *CatalogService) NowShowing(ctx context.Context) ([]model.Movie, error) {
	return c.repo.ListNowShowing(ctx, c.clock.Now())
}

// MovieShowTimes returns a movie and its upcoming shows grouped by UTC
// date.
func (c *CatalogService) MovieShowTimes(ctx context.Context, movieID string) (model.Movie, map[string][]model.ShowTime, error) {
	movie, err := c.repo.GetMovie(ctx, movieID)
	if err != nil {
		return model.Movie{}, nil, err
	}
	shows, err := c.repo.ListShowsByMovie(ctx, movieID, c.clock.Now())
	if err != nil {
		return model.Movie{}, nil, err
	}
	byDate := make(map[string][]model.ShowTime)
	for _, sh := range shows {
		day := sh.StartsAt.UTC().Format("2006-01-02")
		byDate[day] = append(byDate[day], model.ShowTime{Time: sh.StartsAt, ShowID: sh.ID})
	}
	return movie, byDate, nil
}

// UpcomingShows lists every upcoming show with its movie.
func (c *CatalogService) UpcomingShows(ctx context.Context) ([]model.ShowWithMovie, error) {
	shows, err := c.repo.ListUpcomingShows(ctx, c.clock.Now())
	if err != nil {
		return nil, err
	}
	if shows == nil {
		shows = []model.ShowWithMovie{}
	}
	return shows, nil
}

// Dashboard aggregates paid bookings and lists every scheduled show, past
// ones included.
func (c *CatalogService) Dashboard(ctx context.Context) (model.DashboardStats, error) {
	count, revenue, users, err := c.repo.BookingStats(ctx)
	if err != nil {
		return model.DashboardStats{}, err
	}
	shows, err := c.repo.ListAllShows(ctx)
	if err != nil {
		return model.DashboardStats{}, err
	}
	if shows == nil {
		shows = []model.ShowWithMovie{}
	}
	return model.DashboardStats{
		TotalBookings: count,
		TotalRevenue:  revenue,
		TotalUsers:    users,
		ActiveShows:   shows,
	}, nil
}

// DeleteMovieShows removes every show of a movie.  It fails with
// model.ErrShowNotFound when there are none and with a conflict when any
// of them has bookings.
func (c *CatalogService) DeleteMovieShows(ctx context.Context, movieID string) (int64, error) {
	n, err := c.repo.DeleteShowsByMovie(ctx, movieID)
	if err != nil {
		return 0, err
	}
	c.log.WithField("movie_id", movieID).WithField("shows", n).Info("shows deleted")
	return n, nil
}

// ToggleFavorite adds a cached movie to the user's favorites or removes it
// if it is already there.  It reports whether the movie is a favorite
// afterwards.
func (c *CatalogService) ToggleFavorite(ctx context.Context, userID, movieID string) (bool, error) {
	movieID = strings.TrimSpace(movieID)
	if userID == "" || movieID == "" {
		return false, validationErr("user and movie are required")
	}
	added, err := c.repo.ToggleFavorite(ctx, userID, movieID, c.clock.Now())
	if err != nil {
		return false, err
	}
	c.log.WithFields(logrus.Fields{"user_id": userID, "movie_id": movieID, "favorite": added}).Debug("favorite toggled")
	return added, nil
}

// FavoriteMovies lists the user's favorite movies, most recently added
// first.
func (c *CatalogService) FavoriteMovies(ctx context.Context, userID string) ([]model.Movie, error) {
	if userID == "" {
		return nil, validationErr("user is required")
	}
	return c.repo.ListFavorites(ctx, userID)
}
