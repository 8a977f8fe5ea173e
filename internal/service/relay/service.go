package relay

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/location"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/channel"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/hub"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/metrics"
)

// Config holds relay service configuration
type Config struct {
	QueueSize     int           // default: 1000
	WorkerCount   int           // default: 1
	WriteTimeout  time.Duration // default: 5 seconds
	ObserversOnly bool          // send location updates to admins and leaders only
	Metrics       *metrics.Relay
}

type persistJob struct {
	sample *location.Sample
	status *location.StatusUpdate
	at     time.Time
}

// Service implements the relay side of the presence/location channel
type Service struct {
	hub    *hub.Hub
	repo   location.Repository
	config Config
	now    func() time.Time

	mu     sync.RWMutex
	latest map[string]location.Sample

	queue  chan persistJob
	wg     sync.WaitGroup
	stopCh chan struct{}
	once   sync.Once
}

// NewService creates a relay service. repo may be nil, in which case
// nothing is persisted.
func NewService(h *hub.Hub, repo location.Repository, cfg Config) *Service {
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 1
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	s := &Service{
		hub:    h,
		repo:   repo,
		config: cfg,
		now:    time.Now,
		latest: make(map[string]location.Sample),
		queue:  make(chan persistJob, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}

	if repo != nil {
		for i := 0; i < cfg.WorkerCount; i++ {
			s.wg.Add(1)
			go s.worker(i)
		}
		slog.Info("Relay persistence started", "workers", cfg.WorkerCount, "queue_size", cfg.QueueSize)
	}

	return s
}

// Register adds a freshly connected peer and returns its disconnect hook
func (s *Service) Register(p *hub.Peer) func() {
	cleanup := s.hub.Register(p)
	s.config.Metrics.SetConnections(s.hub.TotalPeers())
	return func() {
		userID, offline := cleanup()
		s.config.Metrics.SetConnections(s.hub.TotalPeers())
		if offline {
			s.publishStatus(p, location.StatusUpdate{UserID: userID, IsOnline: false})
		}
	}
}

// Join associates the peer with userID. A peer may only join as the
// identity its token was issued for.
func (s *Service) Join(p *hub.Peer, req location.JoinRequest) error {
	if req.UserID == "" {
		return location.ErrMissingUserID
	}
	if req.UserID != p.User.ID {
		return ErrIdentityMismatch
	}

	if s.hub.Join(p, req.UserID) {
		s.publishStatus(p, location.StatusUpdate{UserID: req.UserID, IsOnline: true})
	}

	// Bring the newcomer up to date with who is already online.
	for _, id := range s.hub.Online() {
		if id == req.UserID {
			continue
		}
		frame, err := channel.NewFrame(location.EventUserStatusUpdate, location.StatusUpdate{UserID: id, IsOnline: true})
		if err != nil {
			return err
		}
		s.hub.Send(p, frame)
	}
	return nil
}

// ShareLocation stores the sample as the user's latest and rebroadcasts it
// as a user-location-update.
func (s *Service) ShareLocation(p *hub.Peer, sample location.Sample) error {
	if err := sample.Validate(); err != nil {
		return err
	}
	joined := p.JoinedAs()
	if joined == "" {
		return ErrNotJoined
	}
	if sample.UserID != joined {
		return ErrIdentityMismatch
	}
	sample.ReceivedAt = s.now()

	s.mu.Lock()
	s.latest[sample.UserID] = sample
	s.mu.Unlock()

	frame, err := channel.NewFrame(location.EventUserLocationUpdate, sample)
	if err != nil {
		return err
	}

	var filter func(*hub.Peer) bool
	if s.config.ObserversOnly {
		filter = func(peer *hub.Peer) bool { return peer.User.CanObserve() }
	}
	s.hub.Broadcast(frame, p, filter)
	s.config.Metrics.Relayed(location.EventUserLocationUpdate)

	s.enqueue(persistJob{sample: &sample, at: sample.ReceivedAt})
	return nil
}

// Notify pushes a notification payload to every connection of userID and
// returns the number of connections reached.
func (s *Service) Notify(userID string, payload interface{}) (int, error) {
	frame, err := channel.NewFrame(location.EventNotification, payload)
	if err != nil {
		return 0, err
	}
	delivered := s.hub.Publish(userID, frame)
	s.config.Metrics.Notified(delivered)
	return delivered, nil
}

// Latest returns the most recent sample of every user, ordered by user id
func (s *Service) Latest() []location.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]location.Sample, 0, len(s.latest))
	for _, sample := range s.latest {
		out = append(out, sample)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Online returns the ids of users currently connected
func (s *Service) Online() []string {
	ids := s.hub.Online()
	sort.Strings(ids)
	return ids
}

// Restore seeds the latest-sample cache from the repository
func (s *Service) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	samples, err := s.repo.ListLatest(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sample := range samples {
		if cur, ok := s.latest[sample.UserID]; !ok || sample.ReceivedAt.After(cur.ReceivedAt) {
			s.latest[sample.UserID] = sample
		}
	}
	return nil
}

func (s *Service) publishStatus(except *hub.Peer, update location.StatusUpdate) {
	frame, err := channel.NewFrame(location.EventUserStatusUpdate, update)
	if err != nil {
		slog.Error("Failed to encode status update", "error", err)
		return
	}
	s.hub.Broadcast(frame, except, nil)
	s.config.Metrics.Relayed(location.EventUserStatusUpdate)
	s.config.Metrics.SetOnline(len(s.hub.Online()))
	s.enqueue(persistJob{status: &update, at: s.now()})
}

func (s *Service) enqueue(job persistJob) {
	if s.repo == nil {
		return
	}
	select {
	case s.queue <- job:
	case <-s.stopCh:
	default:
		s.config.Metrics.Dropped()
		slog.Warn("Relay persistence queue full, dropping write")
	}
}

// worker drains the persistence queue
func (s *Service) worker(id int) {
	defer s.wg.Done()

	write := func(job persistJob) {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
		defer cancel()

		var err error
		switch {
		case job.sample != nil:
			err = s.repo.UpsertLatest(ctx, *job.sample)
		case job.status != nil:
			err = s.repo.UpsertPresence(ctx, *job.status, job.at)
		}
		if err != nil {
			slog.Error("Relay persistence failed", "worker", id, "error", err)
		}
	}

	for {
		select {
		case job := <-s.queue:
			write(job)
		case <-s.stopCh:
			for {
				select {
				case job := <-s.queue:
					write(job)
				default:
					return
				}
			}
		}
	}
}

// Stop drains pending writes and stops the workers
func (s *Service) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		slog.Info("Relay service stopped")
	})
}
