package turn

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "turn:"

// store is the consumer interface for turn hashes (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo persists conversation turns as Redis hashes keyed by session and turn index.
type Repo struct {
	store store
}

// New creates a turn repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Insert stores a single turn.
func (r *Repo) Insert(ctx context.Context, t domain.Turn) error {
	meta, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("marshal turn metadata: %w", err)
	}

	key := turnKey(t.SessionID, t.Index)
	fields := map[string]string{
		"session_id":   t.SessionID,
		"turn_index":   strconv.Itoa(t.Index),
		"user_message": t.UserMessage,
		"ai_response":  t.AIResponse,
		"created_at":   t.CreatedAt.Format(time.RFC3339Nano),
		"metadata":     string(meta),
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// ListRecent returns up to limit turns of a session, newest first.
func (r *Repo) ListRecent(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	indexes, keys, err := r.scanSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	// Newest first by turn index.
	order := make([]int, len(indexes))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return indexes[order[a]] > indexes[order[b]]
	})

	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}

	fetch := make([]string, len(order))
	for i, idx := range order {
		fetch[i] = keys[idx]
	}

	maps, err := r.store.HGetAllMulti(ctx, fetch)
	if err != nil {
		return nil, fmt.Errorf("fetch turns: %w", err)
	}

	turns := make([]domain.Turn, 0, len(maps))
	for _, fields := range maps {
		if len(fields) == 0 {
			continue
		}
		turns = append(turns, parseTurn(fields))
	}
	return turns, nil
}

// MaxIndex returns the highest turn index of a session, or -1 when the session is empty.
func (r *Repo) MaxIndex(ctx context.Context, sessionID string) (int, error) {
	indexes, _, err := r.scanSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	maxIdx := -1
	for _, idx := range indexes {
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	return maxIdx, nil
}

// DeleteBefore removes all turns with an index lower than minIndex.
func (r *Repo) DeleteBefore(ctx context.Context, sessionID string, minIndex int) error {
	indexes, keys, err := r.scanSession(ctx, sessionID)
	if err != nil {
		return err
	}

	var stale []string
	for i, idx := range indexes {
		if idx < minIndex {
			stale = append(stale, keys[i])
		}
	}
	if len(stale) == 0 {
		return nil
	}

	if err := r.store.DelMulti(ctx, stale); err != nil {
		return fmt.Errorf("delete stale turns: %w", err)
	}
	return nil
}

// DeleteSession removes all turns of a session and returns how many were deleted.
func (r *Repo) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	_, keys, err := r.scanSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := r.store.DelMulti(ctx, keys); err != nil {
		return 0, fmt.Errorf("delete session turns: %w", err)
	}
	return len(keys), nil
}

// scanSession returns parallel slices of parsed turn indexes and their keys.
func (r *Repo) scanSession(ctx context.Context, sessionID string) ([]int, []string, error) {
	found, err := r.store.Scan(ctx, keyPrefix+sessionID+":*")
	if err != nil {
		return nil, nil, fmt.Errorf("scan turns: %w", err)
	}

	prefix := keyPrefix + sessionID + ":"
	indexes := make([]int, 0, len(found))
	keys := make([]string, 0, len(found))
	for _, key := range found {
		idx, err := strconv.Atoi(strings.TrimPrefix(key, prefix))
		if err != nil {
			continue // foreign key caught by the glob
		}
		indexes = append(indexes, idx)
		keys = append(keys, key)
	}
	return indexes, keys, nil
}

func turnKey(sessionID string, index int) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, sessionID, index)
}

func parseTurn(fields map[string]string) domain.Turn {
	t := domain.Turn{
		SessionID:   fields["session_id"],
		UserMessage: fields["user_message"],
		AIResponse:  fields["ai_response"],
	}
	if idx, err := strconv.Atoi(fields["turn_index"]); err == nil {
		t.Index = idx
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["created_at"]); err == nil {
		t.CreatedAt = ts
	}
	if raw := fields["metadata"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &t.Metadata)
	}
	return t
}
