package geo

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Position is a single geolocation fix
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geolocator watches the device position until the returned stop func is
// called. After stop returns no further callbacks are made.
type Geolocator interface {
	Watch(ctx context.Context, onSample func(Position), onError func(error)) (stop func())
}

// PositionProvider reads the device position once
type PositionProvider interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// PollingConfig holds polling geolocator configuration
type PollingConfig struct {
	Interval    time.Duration // default: 10 seconds
	Timeout     time.Duration // default: 5 seconds
	MinDistance float64       // metres; 0 reports every fix
}

// PollingGeolocator turns a PositionProvider into a watch by polling it.
// Like a browser watch it reports the first fix and then only fixes that
// moved at least MinDistance.
type PollingGeolocator struct {
	provider PositionProvider
	config   PollingConfig
}

// NewPollingGeolocator creates a polling geolocator
func NewPollingGeolocator(provider PositionProvider, cfg PollingConfig) *PollingGeolocator {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &PollingGeolocator{provider: provider, config: cfg}
}

func (g *PollingGeolocator) Watch(ctx context.Context, onSample func(Position), onError func(error)) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(g.config.Interval)
		defer ticker.Stop()

		var last *Position
		poll := func() {
			pollCtx, pollCancel := context.WithTimeout(ctx, g.config.Timeout)
			defer pollCancel()

			pos, err := g.provider.CurrentPosition(pollCtx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					err = ErrTimeout
				}
				onError(err)
				return
			}
			if last != nil && Distance(*last, pos) < g.config.MinDistance {
				return
			}
			last = &pos
			onSample(pos)
		}

		poll()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				poll()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
