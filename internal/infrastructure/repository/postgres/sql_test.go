package postgres

import (
	"testing"

	"github.com/trendybets/propcore/internal/domain/gamelog"
)

func TestIsBindParameterMismatch(t *testing.T) {
	t.Run("matches bind mismatch error", func(t *testing.T) {
		err := fakeErr("pq: bind message supplies 2 parameters, but prepared statement \"\" requires 1 (08P01)")
		if !isBindParameterMismatch(err) {
			t.Fatalf("expected true for bind mismatch error")
		}
	})

	t.Run("ignores unrelated error", func(t *testing.T) {
		err := fakeErr("pq: relation players does not exist")
		if isBindParameterMismatch(err) {
			t.Fatalf("expected false for unrelated error")
		}
	})
}

func TestIsUnnamedPreparedStatementMissing(t *testing.T) {
	t.Run("matches statement missing message", func(t *testing.T) {
		err := fakeErr("pq: unnamed prepared statement does not exist (26000)")
		if !isUnnamedPreparedStatementMissing(err) {
			t.Fatalf("expected true for statement missing error")
		}
	})

	t.Run("matches by 26000 code", func(t *testing.T) {
		err := fakeErr("pq: prepared statement missing (26000)")
		if !isUnnamedPreparedStatementMissing(err) {
			t.Fatalf("expected true for 26000 prepared statement error")
		}
	})

	t.Run("ignores unrelated error", func(t *testing.T) {
		err := fakeErr("pq: relation players does not exist")
		if isUnnamedPreparedStatementMissing(err) {
			t.Fatalf("expected false for unrelated error")
		}
	})
}

func TestEncodeStatValues(t *testing.T) {
	t.Run("empty map encodes as empty object", func(t *testing.T) {
		if got := encodeStatValues(nil); got != "{}" {
			t.Fatalf("unexpected encoding: %s", got)
		}
	})

	t.Run("round trips values", func(t *testing.T) {
		encoded := encodeStatValues(map[gamelog.StatType]float64{
			gamelog.StatPoints:   27.5,
			gamelog.StatRebounds: 8,
		})
		decoded := decodeStatValues(encoded)
		if decoded[gamelog.StatPoints] != 27.5 || decoded[gamelog.StatRebounds] != 8 {
			t.Fatalf("unexpected round trip: %v", decoded)
		}
	})

	t.Run("malformed payload decodes as empty", func(t *testing.T) {
		if got := decodeStatValues("not-json"); len(got) != 0 {
			t.Fatalf("expected empty map, got %v", got)
		}
	})
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
