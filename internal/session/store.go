package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/manash/cyberedit/internal/store"
	"github.com/manash/cyberedit/pkg/models"
)

// encodeKey serializes one state slice in the format of its key: JSON for
// the trial count, license flag and history, the raw code for the locale.
func encodeKey(s State, key string) (string, error) {
	switch key {
	case KeyTrialCount:
		return strconv.Itoa(s.RemainingTrialUses), nil
	case KeyLicensed:
		return strconv.FormatBool(s.Licensed), nil
	case KeyHistory:
		history := s.History
		if history == nil {
			history = []HistoryRecord{}
		}
		data, err := json.Marshal(history)
		if err != nil {
			return "", fmt.Errorf("failed to encode history: %w", err)
		}
		return string(data), nil
	case KeyLocale:
		return string(s.Locale), nil
	}
	return "", fmt.Errorf("unknown state key %q", key)
}

// LoadState reads every state slice from kv. Absent keys keep their
// defaults. Values that cannot be decoded are logged and replaced by the
// default; only store read errors are returned.
func LoadState(ctx context.Context, kv store.KV, trialLimit int, logger *zap.Logger) (State, error) {
	s := DefaultState(trialLimit)

	if raw, ok, err := kv.Get(ctx, KeyTrialCount); err != nil {
		return s, fmt.Errorf("failed to read %s: %w", KeyTrialCount, err)
	} else if ok {
		var n int
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			logger.Warn("discarding corrupt trial count", zap.String("value", raw), zap.Error(err))
		} else {
			s.RemainingTrialUses = max(0, n)
		}
	}

	if raw, ok, err := kv.Get(ctx, KeyLicensed); err != nil {
		return s, fmt.Errorf("failed to read %s: %w", KeyLicensed, err)
	} else if ok {
		var licensed bool
		if err := json.Unmarshal([]byte(raw), &licensed); err != nil {
			logger.Warn("discarding corrupt license flag", zap.String("value", raw), zap.Error(err))
		} else {
			s.Licensed = licensed
		}
	}

	if raw, ok, err := kv.Get(ctx, KeyHistory); err != nil {
		return s, fmt.Errorf("failed to read %s: %w", KeyHistory, err)
	} else if ok && raw != "" {
		var history []HistoryRecord
		if err := json.Unmarshal([]byte(raw), &history); err != nil {
			logger.Warn("discarding corrupt history", zap.Int("bytes", len(raw)), zap.Error(err))
		} else if history != nil {
			s.History = history
		}
	}

	if raw, ok, err := kv.Get(ctx, KeyLocale); err != nil {
		return s, fmt.Errorf("failed to read %s: %w", KeyLocale, err)
	} else if ok && raw != "" {
		locale, err := models.ParseLocale(raw)
		if err != nil {
			logger.Warn("discarding unsupported locale", zap.String("value", raw))
		} else {
			s.Locale = locale
		}
	}

	return s, nil
}

// SaveState writes every state slice. It is used to seed a fresh store.
func SaveState(ctx context.Context, kv store.KV, s State) error {
	for _, key := range []string{KeyTrialCount, KeyLicensed, KeyHistory, KeyLocale} {
		if err := persistKey(ctx, kv, s, key); err != nil {
			return err
		}
	}
	return nil
}

func persistKey(ctx context.Context, kv store.KV, s State, key string) error {
	value, err := encodeKey(s, key)
	if err != nil {
		return err
	}
	if err := kv.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}
