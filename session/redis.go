package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ugorji/go/codec"
	"github.com/veltabank/bankweb/apiclient"
)

const redisKeyPrefix = "bankweb:session:"

// record is the stored form of a Session.
type record struct {
	State uint8
	User  *apiclient.User
	Cred  *apiclient.Credential
}

// RedisStore keeps sessions in Redis so they survive restarts and are
// shared between processes. Expiry is Redis-native via the key TTL.
type RedisStore struct {
	client *redis.Client
	handle codec.MsgpackHandle
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	var rec record

	if err := codec.NewDecoderBytes(data, &r.handle).Decode(&rec); err != nil {
		return nil, err
	}

	return &Session{
		id:    id,
		state: State(rec.State),
		user:  rec.User,
		cred:  rec.Cred,
	}, nil
}

func (r *RedisStore) Put(ctx context.Context, sess *Session, ttl time.Duration) error {
	rec := record{
		State: uint8(sess.State()),
		User:  sess.User(),
		Cred:  sess.Credential(),
	}

	var data []byte

	if err := codec.NewEncoderBytes(&data, &r.handle).Encode(rec); err != nil {
		return err
	}

	return r.client.Set(ctx, redisKeyPrefix+sess.ID(), data, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, redisKeyPrefix+id).Err()
}
