package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gamepicker/internal/model"

	"github.com/redis/go-redis/v9"
)

// SessionCache stores the single live pick session of a scope as a Redis hash.
// Every mutation is a Lua script so concurrent callers never lose updates.
type SessionCache interface {
	Create(ctx context.Context, scope string, session *model.Session, ttl time.Duration) (bool, error)
	Get(ctx context.Context, scope string) (*model.Session, error)
	Activate(ctx context.Context, scope, sessionID, itemID, itemName string) error
	IncrementVote(ctx context.Context, scope, itemID string, choice model.Choice) (*model.Session, error)
	ClaimFinalize(ctx context.Context, scope, sessionID string) (bool, error)
	ReleaseFinalize(ctx context.Context, scope, sessionID string) error
	Delete(ctx context.Context, scope, sessionID string) (bool, error)
}

const (
	fieldID         = "id"
	fieldRoomCode   = "roomCode"
	fieldItemID     = "itemId"
	fieldItemName   = "itemName"
	fieldCreatedAt  = "createdAt"
	fieldStatus     = "status"
	fieldConfirm    = "confirm"
	fieldSkip       = "skip"
	fieldFinalizing = "finalizing"
)

var createSessionScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
redis.call('PEXPIRE', KEYS[1], ARGV[1])
return 1
`)

var activateSessionScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'id') ~= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[1], 'status', 'active', 'itemId', ARGV[2], 'itemName', ARGV[3])
return 1
`)

// returns {status, field, value, ...}
var incrementVoteScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {'missing'}
end
if redis.call('HGET', KEYS[1], 'status') ~= 'active' or redis.call('HGET', KEYS[1], 'itemId') ~= ARGV[1] then
  return {'mismatch'}
end
if redis.call('HEXISTS', KEYS[1], 'finalizing') == 1 then
  return {'finalizing'}
end
redis.call('HINCRBY', KEYS[1], ARGV[2], 1)
local out = redis.call('HGETALL', KEYS[1])
table.insert(out, 1, 'ok')
return out
`)

var claimFinalizeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'id') ~= ARGV[1] then
  return -1
end
return redis.call('HSETNX', KEYS[1], 'finalizing', '1')
`)

var releaseFinalizeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'id') == ARGV[1] then
  redis.call('HDEL', KEYS[1], 'finalizing')
end
return 1
`)

var deleteSessionScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'id') ~= ARGV[1] then
  return 0
end
return redis.call('DEL', KEYS[1])
`)

type sessionCache struct {
	client *redis.Client
}

func NewSessionCache(client *redis.Client) SessionCache {
	return &sessionCache{
		client: client,
	}
}

// Create stores session only when the scope has no live session
func (c *sessionCache) Create(ctx context.Context, scope string, session *model.Session, ttl time.Duration) (bool, error) {
	args := []interface{}{ttl.Milliseconds()}
	args = append(args, sessionFields(session)...)
	n, err := createSessionScript.Run(ctx, c.client, []string{sessionKey(scope)}, args...).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *sessionCache) Get(ctx context.Context, scope string) (*model.Session, error) {
	fields, err := c.client.HGetAll(ctx, sessionKey(scope)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return parseSession(fields), nil
}

func (c *sessionCache) Activate(ctx context.Context, scope, sessionID, itemID, itemName string) error {
	n, err := activateSessionScript.Run(ctx, c.client, []string{sessionKey(scope)}, sessionID, itemID, itemName).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementVote atomically adds one vote for choice and returns the updated session
func (c *sessionCache) IncrementVote(ctx context.Context, scope, itemID string, choice model.Choice) (*model.Session, error) {
	field := fieldConfirm
	if choice == model.ChoiceSkip {
		field = fieldSkip
	}
	res, err := incrementVoteScript.Run(ctx, c.client, []string{sessionKey(scope)}, itemID, field).StringSlice()
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("increment vote: empty reply")
	}
	switch res[0] {
	case "missing":
		return nil, ErrNotFound
	case "mismatch":
		return nil, ErrSessionMismatch
	case "finalizing":
		return nil, ErrFinalizing
	}
	fields := make(map[string]string, (len(res)-1)/2)
	for i := 1; i+1 < len(res); i += 2 {
		fields[res[i]] = res[i+1]
	}
	return parseSession(fields), nil
}

// ClaimFinalize marks the session as closing. Only the first caller gets true.
func (c *sessionCache) ClaimFinalize(ctx context.Context, scope, sessionID string) (bool, error) {
	n, err := claimFinalizeScript.Run(ctx, c.client, []string{sessionKey(scope)}, sessionID).Int()
	if err != nil {
		return false, err
	}
	if n < 0 {
		return false, ErrNotFound
	}
	return n == 1, nil
}

func (c *sessionCache) ReleaseFinalize(ctx context.Context, scope, sessionID string) error {
	return releaseFinalizeScript.Run(ctx, c.client, []string{sessionKey(scope)}, sessionID).Err()
}

// Delete removes the session if it still carries sessionID
func (c *sessionCache) Delete(ctx context.Context, scope, sessionID string) (bool, error) {
	n, err := deleteSessionScript.Run(ctx, c.client, []string{sessionKey(scope)}, sessionID).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func sessionFields(s *model.Session) []interface{} {
	itemID, itemName := "", ""
	if s.ItemID != nil {
		itemID = *s.ItemID
	}
	if s.ItemName != nil {
		itemName = *s.ItemName
	}
	return []interface{}{
		fieldID, s.ID,
		fieldRoomCode, s.RoomCode,
		fieldItemID, itemID,
		fieldItemName, itemName,
		fieldCreatedAt, s.CreatedAt,
		fieldStatus, string(s.Status),
		fieldConfirm, s.Votes.Confirm,
		fieldSkip, s.Votes.Skip,
	}
}

func parseSession(fields map[string]string) *model.Session {
	s := &model.Session{
		ID:       fields[fieldID],
		RoomCode: fields[fieldRoomCode],
		Status:   model.SessionStatus(fields[fieldStatus]),
	}
	if v := fields[fieldItemID]; v != "" {
		s.ItemID = &v
	}
	if v := fields[fieldItemName]; v != "" {
		s.ItemName = &v
	}
	s.CreatedAt, _ = strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	s.Votes.Confirm, _ = strconv.ParseInt(fields[fieldConfirm], 10, 64)
	s.Votes.Skip, _ = strconv.ParseInt(fields[fieldSkip], 10, 64)
	return s
}
