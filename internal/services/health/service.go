package health

import (
	"context"
	"sort"
	"time"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// Service runs dependency checks for the health endpoint.
type Service struct {
	checks  map[string]Check
	Timeout time.Duration
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{checks: make(map[string]Check), Timeout: 2 * time.Second}
}

// Register adds a named check. Optional dependencies that are not
// configured should simply not be registered.
func (s *Service) Register(name string, c Check) {
	s.checks[name] = c
}

// Status runs every check and returns "ok" or the error text per name.
// ok is false if any check failed.
func (s *Service) Status(ctx context.Context) (ok bool, results map[string]string) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ok = true
	results = make(map[string]string, len(names))
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			ok = false
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	return ok, results
}
