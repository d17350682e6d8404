package redis

import "github.com/redis/go-redis/v9"

// Script return codes.
const (
	scriptOK       = 1
	scriptConflict = 0
	scriptDangling = -1
)

// KEYS[1]=nodes set, KEYS[2]=node hash
// ARGV[1]=id, ARGV[2]=label, ARGV[3]=properties, ARGV[4]=channel
var createNodeScript = redis.NewScript(`
	if redis.call("SADD", KEYS[1], ARGV[1]) == 0 then
		return 0
	end
	redis.call("HSET", KEYS[2], "label", ARGV[2], "properties", ARGV[3])
	redis.call("PUBLISH", ARGV[4], "node_created")
	return 1
`)

// KEYS[1]=nodes set, KEYS[2]=node hash
// ARGV[1]=id, ARGV[2]=label, ARGV[3]=properties, ARGV[4]=channel
var updateNodeScript = redis.NewScript(`
	if redis.call("SISMEMBER", KEYS[1], ARGV[1]) == 0 then
		return 0
	end
	redis.call("HSET", KEYS[2], "label", ARGV[2], "properties", ARGV[3])
	redis.call("PUBLISH", ARGV[4], "node_updated")
	return 1
`)

// KEYS[1]=nodes set, KEYS[2]=rels set, KEYS[3]=node hash, KEYS[4]=node adjacency set
// ARGV[1]=id, ARGV[2]=node key prefix, ARGV[3]=rel key prefix, ARGV[4]=channel
var deleteNodeScript = redis.NewScript(`
	if redis.call("SREM", KEYS[1], ARGV[1]) == 0 then
		return 0
	end
	local rels = redis.call("SMEMBERS", KEYS[4])
	for _, rid in ipairs(rels) do
		local rk = ARGV[3] .. rid
		local from = redis.call("HGET", rk, "from_id")
		local to = redis.call("HGET", rk, "to_id")
		if from then
			redis.call("SREM", ARGV[2] .. from .. ":rels", rid)
		end
		if to then
			redis.call("SREM", ARGV[2] .. to .. ":rels", rid)
		end
		redis.call("SREM", KEYS[2], rid)
		redis.call("DEL", rk)
	end
	redis.call("DEL", KEYS[3], KEYS[4])
	redis.call("PUBLISH", ARGV[4], "node_deleted")
	return 1
`)

// KEYS[1]=nodes set, KEYS[2]=rels set, KEYS[3]=rel hash,
// KEYS[4]=from adjacency set, KEYS[5]=to adjacency set
// ARGV[1]=id, ARGV[2]=from, ARGV[3]=to, ARGV[4]=type, ARGV[5]=channel
var createRelScript = redis.NewScript(`
	if redis.call("SISMEMBER", KEYS[2], ARGV[1]) == 1 then
		return 0
	end
	if redis.call("SISMEMBER", KEYS[1], ARGV[2]) == 0 or redis.call("SISMEMBER", KEYS[1], ARGV[3]) == 0 then
		return -1
	end
	redis.call("SADD", KEYS[2], ARGV[1])
	redis.call("HSET", KEYS[3], "from_id", ARGV[2], "to_id", ARGV[3], "type", ARGV[4])
	redis.call("SADD", KEYS[4], ARGV[1])
	redis.call("SADD", KEYS[5], ARGV[1])
	redis.call("PUBLISH", ARGV[5], "rel_created")
	return 1
`)

// KEYS[1]=rels set, KEYS[2]=rel hash
// ARGV[1]=id, ARGV[2]=node key prefix, ARGV[3]=channel
var deleteRelScript = redis.NewScript(`
	if redis.call("SREM", KEYS[1], ARGV[1]) == 0 then
		return 0
	end
	local from = redis.call("HGET", KEYS[2], "from_id")
	local to = redis.call("HGET", KEYS[2], "to_id")
	if from then
		redis.call("SREM", ARGV[2] .. from .. ":rels", ARGV[1])
	end
	if to then
		redis.call("SREM", ARGV[2] .. to .. ":rels", ARGV[1])
	end
	redis.call("DEL", KEYS[2])
	redis.call("PUBLISH", ARGV[3], "rel_deleted")
	return 1
`)
