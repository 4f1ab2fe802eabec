package store

// The state record's JSON field names below must match battledom.Battle's
// `json:"..."` tags exactly — these scripts read and write the same blob
// GetState unmarshals on the Go side.

const tryInitializeScript = `
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2])
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`

const tryOpenTurnScript = `
local raw = redis.call('GET', KEYS[1])
if not raw then return 0 end
local ok, state = pcall(cjson.decode, raw)
if not ok then return 0 end
if not (state.phase == 'ArenaOpen' or state.phase == 'Resolving') then return 0 end
if state.last_resolved_turn_index ~= (tonumber(ARGV[2]) - 1) then return 0 end
state.phase = 'TurnOpen'
state.turn_index = tonumber(ARGV[2])
state.deadline_utc_ms = tonumber(ARGV[3])
state.version = state.version + 1
redis.call('SET', KEYS[1], cjson.encode(state))
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
return 1
`

const tryMarkTurnResolvingScript = `
local raw = redis.call('GET', KEYS[1])
if not raw then return 0 end
local ok, state = pcall(cjson.decode, raw)
if not ok then return 0 end
if not (state.phase == 'TurnOpen' and state.turn_index == tonumber(ARGV[1])) then return 0 end
state.phase = 'Resolving'
state.version = state.version + 1
redis.call('SET', KEYS[1], cjson.encode(state))
return 1
`

const markTurnResolvedAndOpenNextScript = `
local raw = redis.call('GET', KEYS[1])
if not raw then return 0 end
local ok, state = pcall(cjson.decode, raw)
if not ok then return 0 end
if not (state.phase == 'Resolving' and state.turn_index == tonumber(ARGV[2])) then return 0 end
state.last_resolved_turn_index = tonumber(ARGV[2])
state.phase = 'TurnOpen'
state.turn_index = tonumber(ARGV[3])
state.deadline_utc_ms = tonumber(ARGV[4])
state.no_action_streak_both = tonumber(ARGV[5])
state.player_a.current_hp = tonumber(ARGV[6])
state.player_b.current_hp = tonumber(ARGV[7])
state.version = state.version + 1
redis.call('SET', KEYS[1], cjson.encode(state))
redis.call('ZADD', KEYS[2], ARGV[4], ARGV[1])
return 1
`

const endBattleAndMarkResolvedScript = `
local raw = redis.call('GET', KEYS[1])
if not raw then return 'NotCommitted' end
local ok, state = pcall(cjson.decode, raw)
if not ok then return 'NotCommitted' end
if state.phase == 'Ended' then return 'AlreadyEnded' end
if not (state.phase == 'Resolving' and state.turn_index == tonumber(ARGV[2])) then return 'NotCommitted' end
state.phase = 'Ended'
state.last_resolved_turn_index = tonumber(ARGV[2])
state.no_action_streak_both = tonumber(ARGV[3])
state.player_a.current_hp = tonumber(ARGV[4])
state.player_b.current_hp = tonumber(ARGV[5])
state.version = state.version + 1
redis.call('SET', KEYS[1], cjson.encode(state))
redis.call('SREM', KEYS[2], ARGV[1])
redis.call('ZREM', KEYS[3], ARGV[1])
return 'EndedNow'
`

const storeActionScript = `
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[2])
return 1
`

const storeActionAndCheckBothSubmittedScript = `
local stored = 0
if redis.call('EXISTS', KEYS[1]) == 0 then
  redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[2])
  stored = 1
end
local bothExist = redis.call('EXISTS', KEYS[2])
return {stored, bothExist}
`

// claimDueBattlesScript implements the five claim rules (spec §4.3) in one
// atomic pass over the popped candidates. Returns a flat array alternating
// battleId, turnIndex for each claimed pair.
const claimDueBattlesScript = `
local candidates = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
local claimed = {}
for _, battleId in ipairs(candidates) do
  local stateKey = 'battle:state:' .. battleId
  local raw = redis.call('GET', stateKey)
  if not raw then
    redis.call('ZREM', KEYS[1], battleId)
  else
    local ok, state = pcall(cjson.decode, raw)
    if not ok or state == nil then
      redis.call('ZREM', KEYS[1], battleId)
    elseif state.phase == 'Ended' then
      redis.call('ZREM', KEYS[1], battleId)
    elseif tonumber(state.deadline_utc_ms) > tonumber(ARGV[1]) then
      redis.call('ZADD', KEYS[1], state.deadline_utc_ms, battleId)
    elseif state.phase ~= 'TurnOpen' then
      redis.call('ZADD', KEYS[1], tonumber(ARGV[1]) + tonumber(ARGV[4]), battleId)
    else
      local leaseKey = 'lock:battle:' .. battleId .. ':turn:' .. state.turn_index
      local acquired = redis.call('SET', leaseKey, '1', 'NX', 'PX', ARGV[3])
      if acquired then
        redis.call('ZADD', KEYS[1], tonumber(ARGV[1]) + tonumber(ARGV[3]), battleId)
        table.insert(claimed, battleId)
        table.insert(claimed, state.turn_index)
      end
    end
  end
end
return claimed
`
