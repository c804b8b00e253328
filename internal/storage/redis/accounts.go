package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
)

// Balances are stored as integers: currency in hundredths, commodity in
// ten-thousandths of a gram.
const (
	balanceScale = 2
	goldScale    = 4
)

// createScript inserts an account hash unless the id or payment id is taken.
//
// KEYS: account hash, payment id index, account id set
// ARGV: id, field, value, field, value, ...
var createScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return 'id' end
if redis.call('SETNX', KEYS[2], ARGV[1]) == 0 then return 'payment' end
for i = 2, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
redis.call('SADD', KEYS[3], ARGV[1])
return 'ok'
`)

// applyScript is the single read-modify-write path for an account. It
// returns a status followed by the account hash as field/value pairs.
//
// KEYS: account hash, applied ref set
// ARGV: ref, counter field, signed delta, floor ('1' rejects a negative
// result), metadata category, metadata details json
var applyScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {'missing'} end
local ref = ARGV[1]
local function state(status)
  local out = redis.call('HGETALL', KEYS[1])
  table.insert(out, 1, status)
  return out
end
if ref ~= '' and redis.call('SISMEMBER', KEYS[2], ref) == 1 then
  return state('replay')
end
local delta = tonumber(ARGV[3])
if delta ~= 0 then
  local current = tonumber(redis.call('HGET', KEYS[1], ARGV[2]) or '0')
  if ARGV[4] == '1' and current + delta < 0 then return {'guard'} end
  redis.call('HINCRBY', KEYS[1], ARGV[2], ARGV[3])
end
if ARGV[5] ~= '' then
  local metadata = cjson.decode(redis.call('HGET', KEYS[1], 'metadata') or '{}')
  metadata[ARGV[5]] = ARGV[6]
  redis.call('HSET', KEYS[1], 'metadata', cjson.encode(metadata))
end
if ref ~= '' then redis.call('SADD', KEYS[2], ref) end
return state('ok')
`)

// RedisAccountStore keeps each account in a hash and runs every mutation as
// one Lua script, so check and update are never interleaved.
//
// The metadata field is a json object of category -> json encoded details.
// Lua never decodes the details, so cjson cannot turn an empty object into
// an array.
type RedisAccountStore struct {
	rdb    goredis.UniversalClient
	prefix string
}

func NewRedisAccountStore(rdb goredis.UniversalClient, prefix string) *RedisAccountStore {
	if prefix == "" {
		prefix = "ledger"
	}
	return &RedisAccountStore{rdb: rdb, prefix: prefix}
}

// Every key carries the same hash tag, {prefix}, so the multi-key scripts
// stay within one slot on Redis Cluster.
func (s *RedisAccountStore) key(parts ...string) string {
	return "{" + s.prefix + "}:" + strings.Join(parts, ":")
}

func (s *RedisAccountStore) accountKey(id string) string {
	return s.key("account", id)
}

func (s *RedisAccountStore) refsKey(id string) string {
	return s.key("refs", id)
}

func (s *RedisAccountStore) paymentKey(paymentID string) string {
	return s.key("payment", paymentID)
}

func (s *RedisAccountStore) idsKey() string {
	return s.key("accounts")
}

func (s *RedisAccountStore) CreateAccount(ctx context.Context, acc models.Account) error {
	if acc.Balance.IsNegative() || acc.GoldGrams.IsNegative() {
		return fmt.Errorf("account %s: negative opening balance", acc.ID)
	}
	balance, err := toUnits(acc.Balance, balanceScale)
	if err != nil {
		return err
	}
	gold, err := toUnits(acc.GoldGrams, goldScale)
	if err != nil {
		return err
	}
	metadata, err := encodeMetadata(acc.Metadata)
	if err != nil {
		return err
	}

	args := []any{
		acc.ID,
		"payment_id", acc.PaymentID,
		"name", acc.Name,
		"balance", balance,
		"gold", gold,
		"pin_hash", acc.PinHash,
		"metadata", metadata,
		"created_at", acc.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	keys := []string{s.accountKey(acc.ID), s.paymentKey(acc.PaymentID), s.idsKey()}

	res, err := createScript.Run(ctx, s.rdb, keys, args...).Text()
	if err != nil {
		return err
	}
	switch res {
	case "id":
		return fmt.Errorf("account %s already exists", acc.ID)
	case "payment":
		return fmt.Errorf("payment id %s already taken", acc.PaymentID)
	}
	return nil
}

func (s *RedisAccountStore) GetAccount(ctx context.Context, id string) (models.Account, error) {
	fields, err := s.rdb.HGetAll(ctx, s.accountKey(id)).Result()
	if err != nil {
		return models.Account{}, err
	}
	if len(fields) == 0 {
		return models.Account{}, models.ErrAccountNotFound
	}
	return decodeAccount(id, fields)
}

func (s *RedisAccountStore) GetAccountByPaymentID(ctx context.Context, paymentID string) (models.Account, error) {
	id, err := s.rdb.Get(ctx, s.paymentKey(paymentID)).Result()
	if errors.Is(err, goredis.Nil) {
		return models.Account{}, models.ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, err
	}
	return s.GetAccount(ctx, id)
}

// SearchAccounts matches name or payment id case-insensitively, ordered by name.
func (s *RedisAccountStore) SearchAccounts(ctx context.Context, query, excludeID string) ([]models.Account, error) {
	ids, err := s.rdb.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, err
	}

	pipe := s.rdb.Pipeline()
	cmds := make(map[string]*goredis.MapStringStringCmd, len(ids))
	for _, id := range ids {
		if id != excludeID {
			cmds[id] = pipe.HGetAll(ctx, s.accountKey(id))
		}
	}
	if len(cmds) == 0 {
		return nil, nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var out []models.Account
	for id, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		if !strings.Contains(strings.ToLower(fields["name"]), q) && !strings.Contains(strings.ToLower(fields["payment_id"]), q) {
			continue
		}
		acc, err := decodeAccount(id, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	slices.SortFunc(out, func(a, b models.Account) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.PaymentID, b.PaymentID)
	})
	return out, nil
}

func (s *RedisAccountStore) ConditionalDebit(ctx context.Context, id string, amount decimal.Decimal, ref string) (models.Account, error) {
	units, err := toUnits(amount, balanceScale)
	if err != nil {
		return models.Account{}, err
	}
	return s.apply(ctx, id, ref, models.ErrInsufficientFunds, "balance", -units, "", nil)
}

func (s *RedisAccountStore) Credit(ctx context.Context, id string, amount decimal.Decimal, ref string) (models.Account, error) {
	units, err := toUnits(amount, balanceScale)
	if err != nil {
		return models.Account{}, err
	}
	overflow := fmt.Errorf("account %s: balance would go negative", id)
	return s.apply(ctx, id, ref, overflow, "balance", units, "", nil)
}

func (s *RedisAccountStore) MutateMetadata(ctx context.Context, id string, patch models.AccountPatch, ref string) (models.Account, error) {
	units, err := toUnits(patch.GoldDelta, goldScale)
	if err != nil {
		return models.Account{}, err
	}
	negative := fmt.Errorf("account %s: commodity balance would go negative", id)
	return s.apply(ctx, id, ref, negative, "gold", units, patch.Category, patch.Details)
}

func (s *RedisAccountStore) Applied(ctx context.Context, id, ref string) (bool, error) {
	pipe := s.rdb.Pipeline()
	exists := pipe.Exists(ctx, s.accountKey(id))
	member := pipe.SIsMember(ctx, s.refsKey(id), ref)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	if exists.Val() == 0 {
		return false, models.ErrAccountNotFound
	}
	return member.Val(), nil
}

func (s *RedisAccountStore) apply(ctx context.Context, id, ref string, guardErr error, field string, delta int64, category string, details map[string]string) (models.Account, error) {
	detailsJSON := []byte("{}")
	if len(details) > 0 {
		var err error
		if detailsJSON, err = json.Marshal(details); err != nil {
			return models.Account{}, err
		}
	}

	keys := []string{s.accountKey(id), s.refsKey(id)}
	res, err := applyScript.Run(ctx, s.rdb, keys, ref, field, delta, "1", category, string(detailsJSON)).StringSlice()
	if err != nil {
		return models.Account{}, err
	}
	if len(res) == 0 {
		return models.Account{}, fmt.Errorf("account %s: empty script reply", id)
	}

	switch res[0] {
	case "missing":
		return models.Account{}, models.ErrAccountNotFound
	case "guard":
		return models.Account{}, guardErr
	}
	fields := make(map[string]string, (len(res)-1)/2)
	for i := 1; i+1 < len(res); i += 2 {
		fields[res[i]] = res[i+1]
	}
	return decodeAccount(id, fields)
}

func decodeAccount(id string, fields map[string]string) (models.Account, error) {
	balance, err := strconv.ParseInt(fields["balance"], 10, 64)
	if err != nil {
		return models.Account{}, fmt.Errorf("account %s: bad balance: %w", id, err)
	}
	gold, err := strconv.ParseInt(fields["gold"], 10, 64)
	if err != nil {
		return models.Account{}, fmt.Errorf("account %s: bad gold: %w", id, err)
	}
	acc := models.Account{
		ID:        id,
		PaymentID: fields["payment_id"],
		Name:      fields["name"],
		Balance:   decimal.New(balance, -balanceScale),
		GoldGrams: decimal.New(gold, -goldScale),
		PinHash:   fields["pin_hash"],
	}
	if acc.Metadata, err = decodeMetadata(fields["metadata"]); err != nil {
		return models.Account{}, fmt.Errorf("account %s: bad metadata: %w", id, err)
	}
	if raw := fields["created_at"]; raw != "" {
		if acc.CreatedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return models.Account{}, fmt.Errorf("account %s: bad created_at: %w", id, err)
		}
	}
	return acc, nil
}

func encodeMetadata(m models.Metadata) (string, error) {
	outer := make(map[string]string, len(m))
	for category, details := range m {
		raw, err := json.Marshal(details)
		if err != nil {
			return "", err
		}
		outer[category] = string(raw)
	}
	raw, err := json.Marshal(outer)
	return string(raw), err
}

func decodeMetadata(raw string) (models.Metadata, error) {
	if raw == "" {
		return nil, nil
	}
	var outer map[string]string
	if err := json.Unmarshal([]byte(raw), &outer); err != nil {
		return nil, err
	}
	if len(outer) == 0 {
		return nil, nil
	}
	m := make(models.Metadata, len(outer))
	for category, details := range outer {
		var inner map[string]string
		if err := json.Unmarshal([]byte(details), &inner); err != nil {
			return nil, err
		}
		if inner == nil {
			inner = map[string]string{}
		}
		m[category] = inner
	}
	return m, nil
}

// toUnits converts d to an integer count of 10^-scale units, rejecting
// values with more precision than the scale allows.
func toUnits(d decimal.Decimal, scale int32) (int64, error) {
	shifted := d.Shift(scale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("%s has more than %d decimal places", d, scale)
	}
	return shifted.IntPart(), nil
}

var _ interfaces.AccountStore = (*RedisAccountStore)(nil)
