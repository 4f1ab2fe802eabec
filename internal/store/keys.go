package store

import "fmt"

const (
	keyActiveBattles = "battle:active"
	keyDeadlines     = "battle:deadlines"
)

func stateKey(battleID string) string {
	return "battle:state:" + battleID
}

func actionKey(battleID string, turnIndex int, playerID string) string {
	return fmt.Sprintf("battle:action:%s:turn:%d:player:%s", battleID, turnIndex, playerID)
}

func leaseKey(battleID string, turnIndex int) string {
	return fmt.Sprintf("lock:battle:%s:turn:%d", battleID, turnIndex)
}
