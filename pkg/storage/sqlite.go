package storage

import (
	"context"
	"database/sql"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"fundsub/pkg/core"
	"fundsub/pkg/timing"
)

const schema = `
CREATE TABLE IF NOT EXISTS fund_realtime (
	code                    TEXT NOT NULL,
	name                    TEXT,
	nav_date                TEXT,
	estimate_time           TEXT NOT NULL,
	official_nav            TEXT NOT NULL,
	estimate_nav            TEXT NOT NULL,
	estimate_change_percent TEXT NOT NULL,
	updated_at              INTEGER NOT NULL,
	PRIMARY KEY (code, estimate_time)
);
CREATE TABLE IF NOT EXISTS fund_history (
	code           TEXT NOT NULL,
	date           TEXT NOT NULL,
	nav            TEXT NOT NULL,
	cumulative_nav TEXT,
	return_rate    TEXT,
	distribution   TEXT,
	PRIMARY KEY (code, date)
);
CREATE TABLE IF NOT EXISTS fund_list (
	seq          INTEGER NOT NULL,
	code         TEXT PRIMARY KEY,
	abbreviation TEXT,
	name         TEXT,
	type         TEXT,
	pinyin       TEXT,
	fetched_at   INTEGER NOT NULL
);`

// SQLiteSink 本地 SQLite 持久化，数值以 TEXT 保存避免精度损失
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite 打开(必要时创建)数据库并初始化表结构
func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, ioErr("open sqlite", err).WithContext("path", path)
	}
	// SQLite 单写者
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, ioErr("init schema", err).WithContext("path", path)
	}
	return &SQLiteSink{db: db}, nil
}

// SaveQuote 以 (code, estimate_time) 为键写入估值
func (s *SQLiteSink) SaveQuote(ctx context.Context, q *core.RealtimeQuote) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO fund_realtime
		(code, name, nav_date, estimate_time, official_nav, estimate_nav, estimate_change_percent, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.Code, q.Name, q.NavDate, q.EstimateTime,
		q.OfficialNav.String(), q.EstimateNav.String(), q.EstimateChangePercent.String(),
		time.Now().Unix())
	if err != nil {
		return ioErr("save quote", err).WithContext("code", q.Code)
	}
	return nil
}

// SaveHistory 在一个事务里按 (code, date) 写入整段序列
func (s *SQLiteSink) SaveHistory(ctx context.Context, series *core.HistorySeries) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ioErr("begin tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO fund_history
		(code, date, nav, cumulative_nav, return_rate, distribution) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return ioErr("prepare history insert", err)
	}
	defer stmt.Close()

	for _, p := range series.Points {
		if _, err := stmt.ExecContext(ctx, series.Code, p.DateKey(), p.Nav.String(),
			p.CumulativeNav, p.ReturnRate, p.Distribution); err != nil {
			return ioErr("save history", err).WithContext("code", series.Code).WithContext("date", p.DateKey())
		}
	}

	if err := tx.Commit(); err != nil {
		return ioErr("commit history", err).WithContext("code", series.Code)
	}
	return nil
}

// ReplaceFundList 清空后整体写入
func (s *SQLiteSink) ReplaceFundList(ctx context.Context, list *core.FundList) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ioErr("begin tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fund_list`); err != nil {
		return ioErr("clear fund list", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fund_list
		(seq, code, abbreviation, name, type, pinyin, fetched_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return ioErr("prepare fund list insert", err)
	}
	defer stmt.Close()

	fetchedAt := list.FetchedAt.Unix()
	for i, e := range list.Entries {
		if _, err := stmt.ExecContext(ctx, i, e.Code, e.Abbreviation, e.Name, e.Type, e.Pinyin, fetchedAt); err != nil {
			return ioErr("save fund list", err).WithContext("code", e.Code)
		}
	}

	if err := tx.Commit(); err != nil {
		return ioErr("commit fund list", err)
	}
	return nil
}

// LoadHistory 读回按日期升序的序列，不存在时返回空序列
func (s *SQLiteSink) LoadHistory(ctx context.Context, code string) (*core.HistorySeries, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, nav, cumulative_nav, return_rate, distribution
		FROM fund_history WHERE code = ? ORDER BY date ASC`, code)
	if err != nil {
		return nil, ioErr("query history", err).WithContext("code", code)
	}
	defer rows.Close()

	series := &core.HistorySeries{Code: code}
	for rows.Next() {
		var (
			date, nav    string
			p            core.HistoryPoint
			distribution sql.NullString
		)
		if err := rows.Scan(&date, &nav, &p.CumulativeNav, &p.ReturnRate, &distribution); err != nil {
			return nil, ioErr("scan history", err).WithContext("code", code)
		}
		if p.Date, err = time.ParseInLocation("2006-01-02", date, timing.ChinaLocation); err != nil {
			return nil, ioErr("parse history date", err).WithContext("date", date)
		}
		if p.Nav, err = decimal.NewFromString(nav); err != nil {
			return nil, ioErr("parse history nav", err).WithContext("date", date)
		}
		p.Distribution = distribution.String
		series.Points = append(series.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, ioErr("iterate history", err)
	}
	return series, nil
}

// LoadFundList 读回基金列表，保持写入顺序
func (s *SQLiteSink) LoadFundList(ctx context.Context) (*core.FundList, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, abbreviation, name, type, pinyin, fetched_at
		FROM fund_list ORDER BY seq ASC`)
	if err != nil {
		return nil, ioErr("query fund list", err)
	}
	defer rows.Close()

	list := &core.FundList{}
	for rows.Next() {
		var (
			e         core.FundListEntry
			fetchedAt int64
		)
		if err := rows.Scan(&e.Code, &e.Abbreviation, &e.Name, &e.Type, &e.Pinyin, &fetchedAt); err != nil {
			return nil, ioErr("scan fund list", err)
		}
		list.FetchedAt = time.Unix(fetchedAt, 0)
		list.Entries = append(list.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ioErr("iterate fund list", err)
	}
	return list, nil
}

// LatestQuote 返回某只基金最近一次估值，没有记录时返回 nil
func (s *SQLiteSink) LatestQuote(ctx context.Context, code string) (*core.RealtimeQuote, error) {
	row := s.db.QueryRowContext(ctx, `SELECT code, name, nav_date, estimate_time, official_nav, estimate_nav, estimate_change_percent
		FROM fund_realtime WHERE code = ? ORDER BY estimate_time DESC LIMIT 1`, code)

	var q core.RealtimeQuote
	var name, navDate sql.NullString
	err := row.Scan(&q.Code, &name, &navDate, &q.EstimateTime, &q.OfficialNav, &q.EstimateNav, &q.EstimateChangePercent)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, ioErr("query latest quote", err).WithContext("code", code)
	}
	q.Name = name.String
	q.NavDate = navDate.String
	return &q, nil
}

// Close 关闭数据库
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

var (
	_ Sink   = (*SQLiteSink)(nil)
	_ Reader = (*SQLiteSink)(nil)
)
