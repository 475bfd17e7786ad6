package session

import (
	"context"

	"chatsync/internal/app/chat"
)

type bootstrapSource string

const (
	sourceMessages bootstrapSource = "messages"
	sourceUsers    bootstrapSource = "users"
)

// bootstrapResult is the outcome of one bootstrap fetch, delivered to the event loop.
type bootstrapResult struct {
	source  bootstrapSource
	users   []string
	history []chat.Message
	err     error
}

// startBootstrap runs the history and roster fetches in parallel. Each result is
// queued for the event loop of epoch; results is buffered so neither fetch blocks
// on a loop that has already stopped.
func (s *Session) startBootstrap(ctx context.Context, epoch uint64, results chan<- bootstrapResult) {
	go func() {
		history, err := s.api.FetchMessages(ctx)
		results <- bootstrapResult{source: sourceMessages, history: history, err: err}
	}()

	go func() {
		users, err := s.api.FetchUsers(ctx)
		results <- bootstrapResult{source: sourceUsers, users: users, err: err}
	}()

	s.logger.Debug().Uint64("epoch", epoch).Msg("Bootstrap fetches started.")
}

// applyBootstrap merges a bootstrap result. A failed fetch contributes nothing;
// a result for a session that is no longer active is dropped.
func (s *Session) applyBootstrap(epoch uint64, res bootstrapResult) {
	logger := s.logger.With().Str("source", string(res.source)).Logger()

	if res.err != nil {
		logger.Warn().Err(res.err).Msg("Bootstrap fetch failed. Continuing with live events only.")
		return
	}

	s.mu.Lock()

	if epoch != s.epoch || s.state != Active {
		s.mu.Unlock()
		logger.Debug().Msg("Dropping bootstrap result for inactive session.")
		return
	}

	switch res.source {
	case sourceMessages:
		s.ledger.ApplyBootstrap(res.history)
		logger.Debug().Int("count", len(res.history)).Msg("History bootstrap applied.")
	case sourceUsers:
		added := s.roster.ApplyBootstrap(res.users)
		logger.Debug().Int("count", len(res.users)).Int("added", added).Msg("Roster bootstrap applied.")
	}

	s.mu.Unlock()
	s.notify()
}
