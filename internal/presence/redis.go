package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry Redis에 미러링되는 보드 참여자 정보
type Entry struct {
	OdID    string `json:"odId"`
	OdName  string `json:"odName"`
	OdColor string `json:"odColor"`
	Since   int64  `json:"since"` // join 시각 (unix seconds)
}

// Mirror 보드별 온라인 참여자 집합을 Redis에 미러링하는 관리자.
//
// 실시간 허브의 인메모리 상태가 단일 진실이고, Redis 미러는 REST 조회와
// 멀티 서버 확장 대비용이다. nil Mirror는 모든 메서드가 no-op으로
// 동작한다 (Redis 미설정 환경).
type Mirror struct {
	client *redis.Client
}

// NewMirror 생성자. addr이 빈 문자열이면 미러 비활성 (nil 반환).
func NewMirror(addr, password string, db int) (*Mirror, error) {
	if addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("[Redis] Connected to %s", addr)
	return &Mirror{client: rdb}, nil
}

// Key 생성 유틸
func boardKey(boardID string) string {
	return fmt.Sprintf("presence:board:%s", boardID)
}

// Add 보드 참여자 등록 (join-board)
func (m *Mirror) Add(ctx context.Context, boardID string, e Entry) error {
	if m == nil {
		return nil
	}
	if e.Since == 0 {
		e.Since = time.Now().Unix()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	key := boardKey(boardID)
	if err := m.client.HSet(ctx, key, e.OdID, data).Err(); err != nil {
		log.Printf("[Redis] Failed to mirror join for %s: %v", e.OdID, err)
		return err
	}

	// 서버 crash 시 고아 키가 영원히 남지 않도록 TTL 부여, 쓰기마다 갱신
	m.client.Expire(ctx, key, 24*time.Hour)
	return nil
}

// Remove 보드 참여자 제거 (leave-board, disconnect)
func (m *Mirror) Remove(ctx context.Context, boardID, odID string) error {
	if m == nil {
		return nil
	}
	return m.client.HDel(ctx, boardKey(boardID), odID).Err()
}

// Online 보드의 온라인 참여자 목록 조회
func (m *Mirror) Online(ctx context.Context, boardID string) ([]Entry, error) {
	if m == nil {
		return []Entry{}, nil
	}

	results, err := m.client.HGetAll(ctx, boardKey(boardID)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(results))
	for _, data := range results {
		var e Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// CountOnline 보드의 온라인 참여자 수
func (m *Mirror) CountOnline(ctx context.Context, boardID string) (int64, error) {
	if m == nil {
		return 0, nil
	}
	return m.client.HLen(ctx, boardKey(boardID)).Result()
}

// ClearBoard 보드 키 삭제 (보드 삭제 시)
func (m *Mirror) ClearBoard(ctx context.Context, boardID string) error {
	if m == nil {
		return nil
	}
	return m.client.Del(ctx, boardKey(boardID)).Err()
}

// Health Redis 연결 상태 확인
func (m *Mirror) Health(ctx context.Context) error {
	if m == nil {
		return fmt.Errorf("presence mirror disabled")
	}
	return m.client.Ping(ctx).Err()
}

// Close 연결 종료
func (m *Mirror) Close() error {
	if m == nil {
		return nil
	}
	return m.client.Close()
}
