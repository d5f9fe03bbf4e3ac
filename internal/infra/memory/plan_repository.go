package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"attention-trainer-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// PlanBuilder produces exercise plans; the backing implementation is the
// deterministic generator registry.
type PlanBuilder interface {
	Build(exerciseID string, difficulty, trialCount int) (domain.ExercisePlan, error)
}

// PlanRepository caches built plans with TTL to avoid regenerating the same
// deterministic content for every participant. Identical (exercise,
// difficulty, count) keys always produce identical plans, so caching is
// purely a cost optimization.
type PlanRepository struct {
	builder PlanBuilder
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	rnd     *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedPlan
}

type cachedPlan struct {
	plan      domain.ExercisePlan
	expiresAt time.Time
}

func NewPlanRepository(builder PlanBuilder, ttl time.Duration) *PlanRepository {
	return &PlanRepository{
		builder: builder,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   make(map[string]cachedPlan),
	}
}

func planKey(exerciseID string, difficulty, trialCount int) string {
	return fmt.Sprintf("%s:%d:%d", exerciseID, difficulty, trialCount)
}

func (r *PlanRepository) GetPlan(_ context.Context, exerciseID string, difficulty, trialCount int) (domain.ExercisePlan, error) {
	key := planKey(exerciseID, difficulty, trialCount)
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.plan, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.plan, nil
		}
		r.mu.RUnlock()

		plan, err := r.builder.Build(exerciseID, difficulty, trialCount)
		if err != nil {
			return domain.ExercisePlan{}, err
		}

		r.mu.Lock()
		r.cache[key] = cachedPlan{
			plan:      plan,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return plan, nil
	})
	if err != nil {
		return domain.ExercisePlan{}, err
	}
	return result.(domain.ExercisePlan), nil
}

func (r *PlanRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
