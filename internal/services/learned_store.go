package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/cache"
	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"github.com/sirupsen/logrus"
)

// ErrLearnedCacheStale reports that the durable write succeeded but a cached
// copy of the old content may still be served.
var ErrLearnedCacheStale = errors.New("learned response cache not invalidated")

// LearnedStore fronts the learned-response repository with a read-through cache.
type LearnedStore struct {
	repo  repositories.LearnedResponseRepository
	cache cache.Cache
	ttl   time.Duration
	log   *logrus.Logger
}

func NewLearnedStore(repo repositories.LearnedResponseRepository, c cache.Cache, ttl time.Duration, log *logrus.Logger) *LearnedStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = logrus.New()
	}
	return &LearnedStore{repo: repo, cache: c, ttl: ttl, log: log}
}

func learnedCacheKey(avatarID, fingerprint string) string {
	return avatarID + ":" + fingerprint
}

// Lookup returns nil, nil on a miss. Cache failures degrade to the repository.
func (s *LearnedStore) Lookup(ctx context.Context, avatarID, fingerprint string) (*models.LearnedResponse, error) {
	key := learnedCacheKey(avatarID, fingerprint)
	if s.cache != nil {
		var lr models.LearnedResponse
		hit, err := s.cache.GetJSON(ctx, key, &lr)
		if err != nil {
			s.log.WithError(err).WithField("fingerprint", fingerprint).Warn("learned cache read failed")
		} else if hit {
			return &lr, nil
		}
	}

	lr, err := s.repo.Get(ctx, avatarID, fingerprint)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, lr, s.ttl); err != nil {
			s.log.WithError(err).WithField("fingerprint", fingerprint).Warn("learned cache write failed")
		}
	}
	return lr, nil
}

func (s *LearnedStore) RecordHit(ctx context.Context, avatarID, fingerprint string) error {
	return s.repo.IncrementHit(ctx, avatarID, fingerprint, time.Now().UTC())
}

// Learn upserts lr and evicts any cached copy. A failed eviction after a
// successful upsert is reported as ErrLearnedCacheStale.
func (s *LearnedStore) Learn(ctx context.Context, lr *models.LearnedResponse) error {
	if err := s.repo.Upsert(ctx, lr); err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Del(ctx, learnedCacheKey(lr.AvatarID, lr.Fingerprint)); err != nil {
		return fmt.Errorf("%w: %v", ErrLearnedCacheStale, err)
	}
	return nil
}
