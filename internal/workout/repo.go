package workout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/harshssd/HyperFit-sub001/internal/telemetry/tracing"
)

var ErrUserStateNotFound = errors.New("user state not found")

const stateChannelPrefix = "userstate||"

// Repo persists the whole per-user document as a single JSONB blob and
// broadcasts every successful write on a per-user redis channel. Readers
// on other devices pick the replacements up via Watch.
type Repo struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewRepo(db *pgxpool.Pool, redisClient *redis.Client) *Repo {
	return &Repo{
		db:          db,
		redisClient: redisClient,
	}
}

func (r *Repo) Get(ctx context.Context, userID string) (ud UserData, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workoutRepo.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var raw []byte
	err = r.db.QueryRow(ctx,
		`SELECT data FROM user_state WHERE user_id = $1`,
		userID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserData{}, ErrUserStateNotFound
		}
		return UserData{}, err
	}

	if err = json.Unmarshal(raw, &ud); err != nil {
		return UserData{}, fmt.Errorf("unmarshal user state: %w", err)
	}

	ud.Normalize()
	return ud, nil
}

func (r *Repo) update(ctx context.Context, userID string, raw []byte) (found bool, err error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE user_state SET data = $1, updated_at = now() WHERE user_id = $2`,
		raw, userID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) upsert(ctx context.Context, userID string, raw []byte) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_state (user_id, data, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (user_id) DO UPDATE SET data = $2, updated_at = now()`,
		userID, raw,
	)
	return err
}

// Save writes the full replacement document. The happy path is a plain
// update; first save for a user falls through to an upsert. Writes win
// wholesale, there is no merging of concurrent edits.
func (r *Repo) Save(ctx context.Context, userID string, ud UserData) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workoutRepo.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	raw, err := json.Marshal(ud)
	if err != nil {
		return fmt.Errorf("marshal user state: %w", err)
	}

	found, err := r.update(ctx, userID, raw)
	if err != nil {
		return err
	}
	if !found {
		if err = r.upsert(ctx, userID, raw); err != nil {
			return err
		}
	}

	r.publish(ctx, userID, raw)
	return nil
}

func (r *Repo) publish(ctx context.Context, userID string, raw []byte) {
	if err := r.redisClient.Publish(ctx, stateChannelPrefix+userID, raw).Err(); err != nil {
		// a missed broadcast only delays other devices until their next poll
		log.Errorf("publish user state for %s: %s", userID, err)
	}
}

// UserIDs lists every user with persisted state, for the nightly
// streak gauge refresh.
func (r *Repo) UserIDs(ctx context.Context) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workoutRepo.userIDs")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `SELECT user_id FROM user_state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Watch subscribes to the replacement feed for userID. The returned channel
// is closed when ctx is done or the subscription drops.
func (r *Repo) Watch(ctx context.Context, userID string) (<-chan UserData, error) {
	sub := r.redisClient.Subscribe(ctx, stateChannelPrefix+userID)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to state channel: %w", err)
	}

	updates := make(chan UserData)
	go func() {
		defer close(updates)
		defer func() {
			if err := sub.Close(); err != nil {
				log.Errorf("close state subscription for %s: %s", userID, err)
			}
		}()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ud UserData
				if err := json.Unmarshal([]byte(msg.Payload), &ud); err != nil {
					log.Errorf("unmarshal state update for %s: %s", userID, err)
					continue
				}
				ud.Normalize()
				select {
				case updates <- ud:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return updates, nil
}
