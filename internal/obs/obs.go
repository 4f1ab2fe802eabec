// Package obs adapts the teacher's LogWithUser-family helpers
// (items/logging.go) to this domain: every line is tagged with battle_id,
// player_id, and turn_index instead of just the authenticated user.
package obs

import (
	"context"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Fields is the structured context attached to one log line.
type Fields struct {
	BattleID  string
	PlayerID  string
	TurnIndex int
}

func (f Fields) toMap() map[string]interface{} {
	m := map[string]interface{}{}
	if f.BattleID != "" {
		m["battle_id"] = f.BattleID
	}
	if f.PlayerID != "" {
		m["player_id"] = f.PlayerID
	}
	if f.TurnIndex != 0 {
		m["turn_index"] = f.TurnIndex
	}
	return m
}

func withUser(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	if uid, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string); ok && uid != "" {
		if fields == nil {
			fields = make(map[string]interface{})
		}
		fields["user"] = uid
	}
	return fields
}

func log(ctx context.Context, logger runtime.Logger, level string, fields Fields, message string) {
	m := withUser(ctx, fields.toMap())
	l := logger
	if len(m) > 0 {
		l = logger.WithFields(m)
	}
	switch level {
	case "debug":
		l.Debug(message)
	case "warn":
		l.Warn(message)
	case "error":
		l.Error(message)
	default:
		l.Info(message)
	}
}

func Info(ctx context.Context, logger runtime.Logger, fields Fields, message string) {
	log(ctx, logger, "info", fields, message)
}

func Warn(ctx context.Context, logger runtime.Logger, fields Fields, message string) {
	log(ctx, logger, "warn", fields, message)
}

func Debug(ctx context.Context, logger runtime.Logger, fields Fields, message string) {
	log(ctx, logger, "debug", fields, message)
}

// Error logs at error level and folds err into the structured fields, the
// same shape as the teacher's LogError.
func Error(ctx context.Context, logger runtime.Logger, fields Fields, message string, err error) {
	m := fields.toMap()
	if err != nil {
		m["error"] = err.Error()
	}
	m = withUser(ctx, m)
	l := logger
	if len(m) > 0 {
		l = logger.WithFields(m)
	}
	l.Error(message)
}
