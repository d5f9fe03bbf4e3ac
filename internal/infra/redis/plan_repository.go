package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"attention-trainer-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// PlanBuilder produces the deterministic trial plan for one exercise run.
type PlanBuilder interface {
	Build(exerciseID string, difficulty, trialCount int) (domain.ExercisePlan, error)
}

// PlanRepository caches built plans in Redis as JSON blobs and falls back
// to the builder on cache miss. Plans are pure functions of their key, so a
// cached copy is always valid; the TTL only bounds memory.
// Stored as: SET plan:{exerciseID}:{difficulty}:{trialCount} {json}
type PlanRepository struct {
	client  *redis.Client
	builder PlanBuilder
	ttl     time.Duration
	sf      singleflight.Group
	rnd     *rand.Rand
}

func NewPlanRepository(client *redis.Client, builder PlanBuilder, ttl time.Duration) *PlanRepository {
	return &PlanRepository{
		client:  client,
		builder: builder,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PlanRepository) GetPlan(ctx context.Context, exerciseID string, difficulty, trialCount int) (domain.ExercisePlan, error) {
	key := planKey(exerciseID, difficulty, trialCount)

	if plan, ok := r.cached(ctx, key); ok {
		return plan, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if plan, ok := r.cached(ctx, key); ok {
			return plan, nil
		}

		plan, err := r.builder.Build(exerciseID, difficulty, trialCount)
		if err != nil {
			return domain.ExercisePlan{}, err
		}

		if blob, err := json.Marshal(plan); err == nil {
			_ = r.client.Set(ctx, key, blob, r.ttlWithJitter()).Err()
		}
		return plan, nil
	})
	if err != nil {
		return domain.ExercisePlan{}, err
	}
	return result.(domain.ExercisePlan), nil
}

func (r *PlanRepository) cached(ctx context.Context, key string) (domain.ExercisePlan, bool) {
	blob, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.ExercisePlan{}, false
	}
	var plan domain.ExercisePlan
	if err := json.Unmarshal(blob, &plan); err != nil {
		return domain.ExercisePlan{}, false
	}
	return plan, true
}

func planKey(exerciseID string, difficulty, trialCount int) string {
	return fmt.Sprintf("plan:%s:%d:%d", exerciseID, difficulty, trialCount)
}

func (r *PlanRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
