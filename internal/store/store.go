// Package store persists meeting records in PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nguyentantai21042004/minutes-flow/internal/logger"
	"github.com/nguyentantai21042004/minutes-flow/internal/meeting"
)

// insertLockKey serializes record inserts so id order and created_at
// order agree.
const insertLockKey int64 = 0x6d696e7574657302

func (s *implStore) Insert(ctx context.Context, rec *meeting.Record) (int64, error) {
	if rec == nil || rec.Filename == "" {
		return 0, &meeting.StoreWriteError{Err: errors.New("record has no filename")}
	}
	writeErr := func(err error) error {
		return &meeting.StoreWriteError{Filename: rec.Filename, Err: err}
	}

	participants, err := meeting.EncodeList(rec.Participants)
	if err != nil {
		return 0, writeErr(fmt.Errorf("encode participants: %w", err))
	}
	keyPoints, err := meeting.EncodeList(rec.KeyPoints)
	if err != nil {
		return 0, writeErr(fmt.Errorf("encode key_points: %w", err))
	}
	nextSteps, err := meeting.EncodeList(rec.NextSteps)
	if err != nil {
		return 0, writeErr(fmt.Errorf("encode next_steps: %w", err))
	}
	topics, err := meeting.EncodeList(rec.MeetingTopics)
	if err != nil {
		return 0, writeErr(fmt.Errorf("encode meeting_topics: %w", err))
	}

	var id int64
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", insertLockKey); err != nil {
			return fmt.Errorf("acquire insert lock: %w", err)
		}
		return tx.QueryRow(ctx, `
			INSERT INTO meetings
				(filename, transcription, participants, key_points, next_steps, meeting_topics, summary, document, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, clock_timestamp())
			RETURNING id
		`, rec.Filename, rec.Transcription, participants, keyPoints, nextSteps, topics, rec.Summary, rec.Document).Scan(&id)
	})
	if err != nil {
		return 0, writeErr(err)
	}

	return id, nil
}

func (s *implStore) ListSummaries(ctx context.Context) ([]meeting.Summary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, filename, created_at, summary
		FROM meetings
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	out := []meeting.Summary{}
	for rows.Next() {
		var m meeting.Summary
		if err := rows.Scan(&m.ID, &m.Filename, &m.CreatedAt, &m.Summary); err != nil {
			return nil, fmt.Errorf("scan meeting summary: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}

	return out, nil
}

func (s *implStore) GetByID(ctx context.Context, id int64) (*meeting.Record, error) {
	var (
		rec                                        meeting.Record
		participants, keyPoints, nextSteps, topics []byte
	)

	err := s.pool.QueryRow(ctx, `
		SELECT id, filename, transcription, participants, key_points, next_steps,
		       meeting_topics, summary, document, created_at
		FROM meetings
		WHERE id = $1
	`, id).Scan(&rec.ID, &rec.Filename, &rec.Transcription, &participants, &keyPoints, &nextSteps,
		&topics, &rec.Summary, &rec.Document, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, meeting.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting %d: %w", id, err)
	}

	rec.Participants = decodeColumn[meeting.Participant](ctx, s.logger, id, "participants", participants)
	rec.KeyPoints = decodeColumn[meeting.KeyPoint](ctx, s.logger, id, "key_points", keyPoints)
	rec.NextSteps = decodeColumn[meeting.NextStep](ctx, s.logger, id, "next_steps", nextSteps)
	rec.MeetingTopics = decodeColumn[string](ctx, s.logger, id, "meeting_topics", topics)

	return &rec, nil
}

// decodeColumn decodes one list column. A bad value is logged and read as empty.
func decodeColumn[T any](ctx context.Context, log logger.Logger, id int64, column string, raw []byte) []T {
	items, err := meeting.DecodeList[T](raw)
	if err != nil {
		log.Warn(ctx, "Meeting %d: cannot decode %s, using empty list: %v", id, column, err)
	}
	return items
}
