package redis

import (
	"context"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/pkg/log"
)

const defaultPrefix = "fleet:containment:"

// observeScript swaps in one observation atomically so that concurrent
// instances see each crossing exactly once.
//
// KEYS: vehicle set, zone reverse set, zone last-seen hash
// ARGV: zone id, vehicle id, inside (1/0), observed-at unix millis
// Returns {was inside (0/1), applied (0/1)}.
var observeScript = goredis.NewScript(`
local was = redis.call('SISMEMBER', KEYS[1], ARGV[1])
local seen = redis.call('HGET', KEYS[3], ARGV[2])
if seen and tonumber(seen) > tonumber(ARGV[4]) then
	return {was, 0}
end
redis.call('HSET', KEYS[3], ARGV[2], ARGV[4])
if ARGV[3] == '1' then
	redis.call('SADD', KEYS[1], ARGV[1])
	redis.call('SADD', KEYS[2], ARGV[2])
else
	redis.call('SREM', KEYS[1], ARGV[1])
	redis.call('SREM', KEYS[2], ARGV[2])
end
return {was, 1}
`)

// ContainmentStore keeps vehicle/zone containment in redis sets so that
// several backend instances agree on which vehicles are inside which zones.
// Each vehicle has a set of zone ids and each zone a reverse set of vehicle ids
// plus a hash of the last observation time per vehicle.
type ContainmentStore struct {
	client *goredis.Client
	prefix string
	logger log.Logger
}

var _ domain.ContainmentStore = (*ContainmentStore)(nil)

// NewContainmentStore connects to redis and verifies the connection
func NewContainmentStore(addr, password string, db int, logger log.Logger) (*ContainmentStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: connection failed: %w", err)
	}

	return NewContainmentStoreWithClient(client, logger), nil
}

// NewContainmentStoreWithClient wraps an existing client
func NewContainmentStoreWithClient(client *goredis.Client, logger log.Logger) *ContainmentStore {
	return &ContainmentStore{
		client: client,
		prefix: defaultPrefix,
		logger: logger.WithName("containment"),
	}
}

func (s *ContainmentStore) Close() error {
	return s.client.Close()
}

func (s *ContainmentStore) vehicleKey(vehicleID string) string {
	return s.prefix + "vehicle:" + vehicleID
}

func (s *ContainmentStore) zoneKey(zoneID string) string {
	return s.prefix + "zone:" + zoneID
}

func (s *ContainmentStore) seenKey(zoneID string) string {
	return s.prefix + "seen:" + zoneID
}

func (s *ContainmentStore) Inside(ctx context.Context, vehicleID, zoneID string) (bool, error) {
	inside, err := s.client.SIsMember(ctx, s.vehicleKey(vehicleID), zoneID).Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to read containment: %w", err)
	}
	return inside, nil
}

func (s *ContainmentStore) Observe(ctx context.Context, vehicleID, zoneID string, inside bool, at time.Time) (domain.ContainmentObservation, error) {
	flag := "0"
	if inside {
		flag = "1"
	}

	keys := []string{s.vehicleKey(vehicleID), s.zoneKey(zoneID), s.seenKey(zoneID)}
	res, err := observeScript.Run(ctx, s.client, keys, zoneID, vehicleID, flag, at.UnixMilli()).Int64Slice()
	if err != nil {
		return domain.ContainmentObservation{}, fmt.Errorf("redis: failed to write containment: %w", err)
	}
	if len(res) != 2 {
		return domain.ContainmentObservation{}, fmt.Errorf("redis: unexpected containment reply %v", res)
	}

	obs := domain.ContainmentObservation{WasInside: res[0] == 1, Applied: res[1] == 1}
	s.logger.Debug("containment observed",
		"vehicle_id", vehicleID, "zone_id", zoneID, "inside", inside, "applied", obs.Applied)
	return obs, nil
}

func (s *ContainmentStore) ZonesFor(ctx context.Context, vehicleID string) ([]string, error) {
	zones, err := s.client.SMembers(ctx, s.vehicleKey(vehicleID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to list zones: %w", err)
	}
	sort.Strings(zones)
	return zones, nil
}

func (s *ContainmentStore) ForgetZone(ctx context.Context, zoneID string) error {
	vehicles, err := s.client.SMembers(ctx, s.zoneKey(zoneID)).Result()
	if err != nil {
		return fmt.Errorf("redis: failed to list vehicles: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, vehicleID := range vehicles {
			pipe.SRem(ctx, s.vehicleKey(vehicleID), zoneID)
		}
		pipe.Del(ctx, s.zoneKey(zoneID), s.seenKey(zoneID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: failed to forget zone: %w", err)
	}
	s.logger.Info("zone containment cleared", "zone_id", zoneID, "vehicles", len(vehicles))
	return nil
}
