// Package config supplies the duel server's static configuration: the
// default combat balance (embedded, loaded once) and the deadline worker's
// tunable knobs, adapted from the teacher's go:embed + sync.Once game-data
// loading pattern.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"forgefight.gg/duel-server/internal/battledom"
)

//go:embed gamedata/balance.json
var balanceData []byte

var (
	defaultBalance     battledom.CombatBalance
	defaultBalanceOnce sync.Once
	defaultBalanceErr  error
)

// LoadDefaultBalance parses the embedded combat balance exactly once.
// Subsequent calls are free and return the cached result.
func LoadDefaultBalance() (battledom.CombatBalance, error) {
	defaultBalanceOnce.Do(func() {
		if err := json.Unmarshal(balanceData, &defaultBalance); err != nil {
			defaultBalanceErr = fmt.Errorf("config: parse embedded balance: %w", err)
		}
	})
	return defaultBalance, defaultBalanceErr
}

// StaticBalanceProvider implements ports.BalanceProvider over the embedded
// default. It panics at construction if the embedded data is malformed —
// a corrupt build artifact, not a runtime condition to recover from.
type StaticBalanceProvider struct {
	balance battledom.CombatBalance
}

func NewStaticBalanceProvider() *StaticBalanceProvider {
	balance, err := LoadDefaultBalance()
	if err != nil {
		panic(err)
	}
	return &StaticBalanceProvider{balance: balance}
}

func (p *StaticBalanceProvider) CombatBalance() battledom.CombatBalance {
	return p.balance
}

// WorkerConfig holds the deadline worker's (C6) tunable knobs (spec §6).
type WorkerConfig struct {
	BatchSize    int
	LeaseTtl     time.Duration
	IdleDelayMin time.Duration
	IdleDelayMax time.Duration
	BacklogDelay time.Duration
	ErrorDelay   time.Duration
	SmallDelay   time.Duration
}

// DefaultWorkerConfig returns the spec's enumerated defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchSize:    50,
		LeaseTtl:     4 * time.Second,
		IdleDelayMin: 200 * time.Millisecond,
		IdleDelayMax: time.Second,
		BacklogDelay: 30 * time.Millisecond,
		ErrorDelay:   200 * time.Millisecond,
		SmallDelay:   200 * time.Millisecond,
	}
}

// ActionTTL bounds how long a StoredAction survives in the KV engine.
const ActionTTL = time.Hour
