package rpcadapter

import (
	"context"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"

	"forgefight.gg/duel-server/internal/battledom"
)

const (
	storageCollectionCombat = "combat"
	storageKeyStats         = "stats"
)

// defaultStats backs a player with no stored combat profile yet, keeping
// HandleBattleCreated usable in environments that have not onboarded a
// dedicated stats system.
var defaultStats = battledom.PlayerStats{Strength: 10, Stamina: 10, Agility: 10, Intellect: 10}

// NakamaProfileSource implements ports.ProfileSource by reading each
// player's combat stats from Nakama storage, adapted from the teacher's
// RpcGetEquipment/RpcGetInventory StorageRead pattern (items/player_rpc.go).
type NakamaProfileSource struct {
	nk runtime.NakamaModule
}

func NewNakamaProfileSource(nk runtime.NakamaModule) *NakamaProfileSource {
	return &NakamaProfileSource{nk: nk}
}

// GetPlayerStats returns found=true whenever the storage read succeeds,
// falling back to defaultStats when the player has no stored combat record
// yet — a new account is a valid participant, not an error. A storage read
// or decode failure returns found=false with that error.
func (p *NakamaProfileSource) GetPlayerStats(ctx context.Context, playerID string) (battledom.PlayerStats, bool, error) {
	objs, err := p.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: storageCollectionCombat, Key: storageKeyStats, UserID: playerID},
	})
	if err != nil {
		return battledom.PlayerStats{}, false, err
	}
	for _, obj := range objs {
		if obj == nil || obj.Key != storageKeyStats {
			continue
		}
		var stats battledom.PlayerStats
		if err := json.Unmarshal([]byte(obj.Value), &stats); err != nil {
			return battledom.PlayerStats{}, false, err
		}
		return stats, true, nil
	}
	return defaultStats, true, nil
}
