package sql

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sig-0/ratehist/daterange"
	"github.com/sig-0/ratehist/storage/types"
)

// DB is the subset of the pgx API the adapter relies on,
// satisfied by both *pgx.Conn and *pgxpool.Pool
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Storage struct {
	db DB
}

func NewStorage(db DB) *Storage {
	return &Storage{
		db: db,
	}
}

const upsertRateQuery = `
INSERT INTO exchange_rates (day, base, target, rate, fetched_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (day, base, target)
DO UPDATE SET rate = EXCLUDED.rate, fetched_at = EXCLUDED.fetched_at
`

func (s *Storage) UpsertRate(ctx context.Context, rate *types.Rate) error {
	_, err := s.db.Exec(
		ctx,
		upsertRateQuery,
		timeToDate(rate.Day),
		rate.Base.String(),
		rate.Target.String(),
		floatToNumeric(rate.Rate),
		timeToTimestampz(rate.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("unable to upsert rate: %w", err)
	}

	return nil
}

const ratesInRangeQuery = `
SELECT day, base, target, rate, fetched_at
FROM exchange_rates
WHERE base = $1 AND target = ANY($2) AND day BETWEEN $3 AND $4
ORDER BY day ASC, target ASC
`

func (s *Storage) RatesInRange(
	ctx context.Context,
	base types.Currency,
	targets []types.Currency,
	rng daterange.Range,
) ([]*types.Rate, error) {
	targetCodes := make([]string, 0, len(targets))
	for _, t := range targets {
		targetCodes = append(targetCodes, t.String())
	}

	rows, err := s.db.Query(
		ctx,
		ratesInRangeQuery,
		base.String(),
		targetCodes,
		timeToDate(rng.Start()),
		timeToDate(rng.End()),
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("unable to fetch rates: %w", err)
	}
	defer rows.Close()

	var out []*types.Rate

	for rows.Next() {
		var (
			day       pgtype.Date
			baseCode  string
			target    string
			rate      pgtype.Numeric
			fetchedAt pgtype.Timestamptz
		)

		if err := rows.Scan(&day, &baseCode, &target, &rate, &fetchedAt); err != nil {
			return nil, fmt.Errorf("unable to scan rate row: %w", err)
		}

		out = append(out, &types.Rate{
			Day:       dateToTime(day),
			Base:      types.Currency(baseCode),
			Target:    types.Currency(target),
			Rate:      numericToFloat(rate),
			FetchedAt: timestampzToTime(fetchedAt),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read rate rows: %w", err)
	}

	return out, nil
}

const latestDayQuery = `
SELECT MAX(day) FROM exchange_rates WHERE base = $1
`

func (s *Storage) LatestDay(
	ctx context.Context,
	base types.Currency,
) (time.Time, bool, error) {
	var day pgtype.Date

	err := s.db.QueryRow(ctx, latestDayQuery, base.String()).Scan(&day)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}

		return time.Time{}, false, fmt.Errorf("unable to fetch latest day: %w", err)
	}

	if !day.Valid {
		return time.Time{}, false, nil // empty table for this base
	}

	return dateToTime(day), true, nil
}

const listCurrenciesQuery = `
SELECT DISTINCT code FROM (
	SELECT base AS code FROM exchange_rates
	UNION
	SELECT target AS code FROM exchange_rates
) AS codes
ORDER BY code ASC
`

func (s *Storage) ListCurrencies(ctx context.Context) ([]types.Currency, error) {
	rows, err := s.db.Query(ctx, listCurrenciesQuery)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("unable to fetch currencies: %w", err)
	}
	defer rows.Close()

	var out []types.Currency

	for rows.Next() {
		var code string

		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("unable to scan currency row: %w", err)
		}

		out = append(out, types.Currency(code))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read currency rows: %w", err)
	}

	return out, nil
}

// floatToNumeric converts the float value to postgres numeric
func floatToNumeric(value float64) pgtype.Numeric {
	// round to 6dp and store as integer with exponent -6
	i := int64(math.Round(value * 1e6))

	return pgtype.Numeric{
		Int:   big.NewInt(i),
		Exp:   -6,
		Valid: true,
	}
}

// numericToFloat converts the postgres value to float
func numericToFloat(value pgtype.Numeric) float64 {
	if !value.Valid || value.Int == nil {
		return 0
	}

	f, _ := new(big.Rat).SetInt(value.Int).Float64()

	if value.Exp > 0 {
		f *= math.Pow10(int(value.Exp))
	} else if value.Exp < 0 {
		f /= math.Pow10(int(-value.Exp))
	}

	return f
}

// timeToDate converts the time value to a postgres date
func timeToDate(t time.Time) pgtype.Date {
	return pgtype.Date{
		Time:  daterange.Normalize(t),
		Valid: true,
	}
}

// dateToTime converts the postgres date value to time
func dateToTime(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}

	return daterange.Normalize(d.Time)
}

// timeToTimestampz converts the time value to postgres timestamp
func timeToTimestampz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  t.UTC(),
		Valid: true,
	}
}

// timestampzToTime converts the postgres timestamp value to time
func timestampzToTime(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}

	return ts.Time
}
