package config

import "context"

// WatchService runs Loader.Watch under a supervisor.
type WatchService struct {
	loader   *Loader
	onChange func(*Config)
}

func NewWatchService(loader *Loader, onChange func(*Config)) *WatchService {
	return &WatchService{loader: loader, onChange: onChange}
}

func (s *WatchService) Serve(ctx context.Context) error {
	if err := s.loader.Watch(s.onChange, ctx.Done()); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *WatchService) String() string { return "config-watcher" }
